package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"PaintDesk/internal/model"
)

// ReminderRepo 提醒仓储。
type ReminderRepo struct {
	db *gorm.DB
}

func NewReminderRepo(db *gorm.DB) *ReminderRepo {
	return &ReminderRepo{db: db}
}

func (r *ReminderRepo) Create(ctx context.Context, rem *model.Reminder) error {
	return r.db.WithContext(ctx).Create(rem).Error
}

func (r *ReminderRepo) ByCode(ctx context.Context, code int64) (*model.Reminder, error) {
	var rem model.Reminder
	err := r.db.WithContext(ctx).Where("reminder_code = ?", code).First(&rem).Error
	if err != nil {
		return nil, err
	}
	return &rem, nil
}

func (r *ReminderRepo) Save(ctx context.Context, rem *model.Reminder) error {
	return r.db.WithContext(ctx).Save(rem).Error
}

// DueBatch 取已到期且仍在 scheduled 状态的提醒。
func (r *ReminderRepo) DueBatch(ctx context.Context, now time.Time, limit int) ([]*model.Reminder, error) {
	if limit <= 0 {
		limit = 100
	}
	var rems []*model.Reminder
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_for <= ?", model.ReminderStatusScheduled, now).
		Order("scheduled_for ASC").
		Limit(limit).
		Find(&rems).Error
	return rems, err
}

// MarkProcessing 原子地把 scheduled 提醒标记为 processing，
// 返回 false 表示已被其它实例抢走。
func (r *ReminderRepo) MarkProcessing(ctx context.Context, code int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Reminder{}).
		Where("reminder_code = ? AND status = ?", code, model.ReminderStatusScheduled).
		Update("status", model.ReminderStatusProcessing)
	return res.RowsAffected > 0, res.Error
}

// CancelIfScheduled 原子地取消一个仍未被领取的提醒，
// 返回 false 表示提醒已进入处理流程或已终态。
func (r *ReminderRepo) CancelIfScheduled(ctx context.Context, code int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Reminder{}).
		Where("reminder_code = ? AND status = ?", code, model.ReminderStatusScheduled).
		Update("status", model.ReminderStatusCancelled)
	return res.RowsAffected > 0, res.Error
}

// ListByUser 按创建时间倒序列出用户的提醒。
func (r *ReminderRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]*model.Reminder, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rems []*model.Reminder
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rems).Error
	return rems, err
}
