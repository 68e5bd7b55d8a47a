package mysql

import (
	"context"
	"time"

	"Campus_Community/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NotificationRepository struct {
	DB *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

// CreateBatch 唯一(user_id, outbox_id) 幂等插入，事件重放不会产生重复通知
func (r *NotificationRepository) CreateBatch(ctx context.Context, list []model.Notification) (int64, error) {
	if len(list) == 0 {
		return 0, nil
	}
	res := r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(list, 500)
	return res.RowsAffected, res.Error
}

// TransferPending 原子地把用户待投递的通知标记为已投递，只返回本次标记的那一批。
// SKIP LOCKED 让并发的第二次轮询直接拿到空集，而不是阻塞后重复投递。
func (r *NotificationRepository) TransferPending(ctx context.Context, userID uint64, limit int) ([]model.Notification, error) {
	var rows []model.Notification
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("user_id = ? AND transferred = ?", userID, false).
			Order("id ASC").
			Limit(limit).
			Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		ids := make([]uint64, 0, len(rows))
		for _, n := range rows {
			ids = append(ids, n.ID)
		}
		now := time.Now()
		if err := tx.Model(&model.Notification{}).
			Where("id IN ? AND transferred = ?", ids, false).
			Updates(map[string]any{"transferred": true, "transferred_at": now}).Error; err != nil {
			return err
		}
		for i := range rows {
			rows[i].Transferred = true
			rows[i].TransferredAt = &now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// List 通知列表，id 倒序游标分页
func (r *NotificationRepository) List(ctx context.Context, userID, cursor uint64, limit int) ([]model.Notification, uint64, error) {
	q := r.DB.WithContext(ctx).Where("user_id = ?", userID)
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}
	var rows []model.Notification
	if err := q.Order("id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	var next uint64
	if len(rows) > limit {
		next = rows[limit-1].ID
		rows = rows[:limit]
	}
	return rows, next, nil
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}

// MarkRead 只能操作自己的通知；返回匹配到的行数（0 表示不存在或不属于该用户）
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id uint64) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Count(&n).Error
	if err != nil || n == 0 {
		return n, err
	}
	err = r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true).Error
	return n, err
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	tx := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return tx.RowsAffected, tx.Error
}

func (r *NotificationRepository) Delete(ctx context.Context, userID, id uint64) (int64, error) {
	tx := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.Notification{})
	return tx.RowsAffected, tx.Error
}
