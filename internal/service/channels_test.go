package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PaintDesk/internal/model"
	pkgerrors "PaintDesk/pkg/errors"
)

func TestParseChannels(t *testing.T) {
	channels, err := parseChannels([]string{"email", " PUSH ", "in_app"})
	require.NoError(t, err)
	assert.Equal(t, []model.Channel{model.ChannelEmail, model.ChannelPush, model.ChannelInApp}, channels)
}

func TestParseChannelsDeduplicatesPreservingOrder(t *testing.T) {
	channels, err := parseChannels([]string{"PUSH", "EMAIL", "push"})
	require.NoError(t, err)
	assert.Equal(t, []model.Channel{model.ChannelPush, model.ChannelEmail}, channels)
}

func TestParseChannelsRejectsInvalid(t *testing.T) {
	_, err := parseChannels([]string{"EMAIL", "SMS"})
	assert.Equal(t, pkgerrors.ChannelInvalid, err)

	// REMINDER 是内部队列，不是投递通道
	_, err = parseChannels([]string{"REMINDER"})
	assert.Equal(t, pkgerrors.ChannelInvalid, err)

	_, err = parseChannels(nil)
	assert.Equal(t, pkgerrors.InvalidRequest, err)
}

func TestJoinChannels(t *testing.T) {
	s := joinChannels([]model.Channel{model.ChannelEmail, model.ChannelInApp})
	assert.Equal(t, "EMAIL,IN_APP", s)
}
