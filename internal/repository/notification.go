package repository

import (
	"context"

	"gorm.io/gorm"

	"PaintDesk/internal/model"
)

// NotificationRepo 通知主体仓储。
type NotificationRepo struct {
	db *gorm.DB
}

func NewNotificationRepo(db *gorm.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *NotificationRepo) ByID(ctx context.Context, id int64) (*model.Notification, error) {
	var n model.Notification
	err := r.db.WithContext(ctx).First(&n, id).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// StampSentAt 没有 delivery id 时的兜底：只盖一次 sent_at，重复调用不回拨。
func (r *NotificationRepo) StampSentAt(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ? AND sent_at IS NULL", id).
		Update("sent_at", gorm.Expr("now()")).Error
}

// RecipientRepo 收件人通道标识仓储。
type RecipientRepo struct {
	db *gorm.DB
}

func NewRecipientRepo(db *gorm.DB) *RecipientRepo {
	return &RecipientRepo{db: db}
}

// Deactivate 将指定通道的收件人标识标记为不可用（token 失效、号码未注册）。
func (r *RecipientRepo) Deactivate(ctx context.Context, channel model.Channel, identifier string) error {
	return r.db.WithContext(ctx).
		Model(&model.Recipient{}).
		Where("channel = ? AND identifier = ?", channel, identifier).
		Update("active", false).Error
}

// ActiveIdentifier 取用户在指定通道上最新的可用收件地址。
func (r *RecipientRepo) ActiveIdentifier(ctx context.Context, userID int64, channel model.Channel) (string, error) {
	var rec model.Recipient
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND channel = ? AND active = ?", userID, channel, true).
		Order("id DESC").
		First(&rec).Error
	if err != nil {
		return "", err
	}
	return rec.Identifier, nil
}

// Upsert 注册或刷新一个收件地址，重复注册时重新激活。
func (r *RecipientRepo) Upsert(ctx context.Context, rec *model.Recipient) error {
	existing := &model.Recipient{}
	err := r.db.WithContext(ctx).
		Where("channel = ? AND identifier = ?", rec.Channel, rec.Identifier).
		First(existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.db.WithContext(ctx).Create(rec).Error
	}
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(existing).
		Updates(map[string]interface{}{"user_id": rec.UserID, "active": true}).Error
}
