package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"PaintDesk/internal/model"
)

// DeliveryRepo 投递记录仓储。
type DeliveryRepo struct {
	db *gorm.DB
}

func NewDeliveryRepo(db *gorm.DB) *DeliveryRepo {
	return &DeliveryRepo{db: db}
}

func (r *DeliveryRepo) Create(ctx context.Context, rec *model.DeliveryRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *DeliveryRepo) ByCode(ctx context.Context, code int64) (*model.DeliveryRecord, error) {
	var rec model.DeliveryRecord
	err := r.db.WithContext(ctx).Where("delivery_code = ?", code).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *DeliveryRepo) Save(ctx context.Context, rec *model.DeliveryRecord) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

// UpdateFields 按 delivery_code 局部更新。
func (r *DeliveryRepo) UpdateFields(ctx context.Context, code int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&model.DeliveryRecord{}).
		Where("delivery_code = ?", code).
		Updates(fields).Error
}

// ListByStatus 按通道和状态列出最近的记录。
func (r *DeliveryRepo) ListByStatus(ctx context.Context, channel model.Channel, status model.DeliveryStatus, limit int) ([]*model.DeliveryRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var recs []*model.DeliveryRecord
	err := r.db.WithContext(ctx).
		Where("channel = ? AND status = ?", channel, status).
		Order("id DESC").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}

// StatusCounts 按状态统计某通道的记录数。
func (r *DeliveryRepo) StatusCounts(ctx context.Context, channel model.Channel) (map[model.DeliveryStatus]int64, error) {
	type row struct {
		Status model.DeliveryStatus
		Count  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&model.DeliveryRecord{}).
		Select("status, count(*) as count").
		Where("channel = ?", channel).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[model.DeliveryStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// CompletionsSince 统计某通道在 since 之后完成的投递数（处理速率用）。
func (r *DeliveryRepo) CompletionsSince(ctx context.Context, channel model.Channel, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.DeliveryRecord{}).
		Where("channel = ? AND status = ? AND finished_at > ?", channel, model.DeliveryStatusDelivered, since).
		Count(&count).Error
	return count, err
}

// RecentFinished 取某通道最近 limit 条已完成记录（平均处理时长用）。
func (r *DeliveryRepo) RecentFinished(ctx context.Context, channel model.Channel, limit int) ([]*model.DeliveryRecord, error) {
	var recs []*model.DeliveryRecord
	err := r.db.WithContext(ctx).
		Where("channel = ? AND finished_at IS NOT NULL AND processed_at IS NOT NULL", channel).
		Order("finished_at DESC").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}

// DeleteTerminalBefore 清理 grace 之前的终态记录，返回删除数。
func (r *DeliveryRepo) DeleteTerminalBefore(ctx context.Context, channel model.Channel, statuses []model.DeliveryStatus, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("channel = ? AND status IN ? AND updated_at < ?", channel, statuses, cutoff).
		Delete(&model.DeliveryRecord{})
	return res.RowsAffected, res.Error
}

// DeleteByCode 按 delivery_code 删除一条记录，返回是否存在。
func (r *DeliveryRepo) DeleteByCode(ctx context.Context, code int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("delivery_code = ?", code).
		Delete(&model.DeliveryRecord{})
	return res.RowsAffected > 0, res.Error
}
