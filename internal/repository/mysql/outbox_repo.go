package mysql

import (
	"context"
	"encoding/json"
	"time"

	"Campus_Community/internal/model"

	"gorm.io/gorm"
)

type OutboxRepository struct {
	DB *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{DB: db}
}

// insertOutbox 写 outbox 事件表，必须在业务事务内调用
func insertOutbox(tx *gorm.DB, ev *model.OutboxEvent) error {
	if ev.EventTime.IsZero() {
		ev.EventTime = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ob := &model.NotificationOutbox{
		EventType: ev.EventType,
		Scope:     ev.Scope,
		ScopeID:   ev.ScopeID,
		ActorID:   ev.ActorID,
		RefID:     ev.RefID,
		Payload:   string(payload),
		Status:    model.OutboxPending,
	}
	return tx.Create(ob).Error
}

// Insert 独立写入事件（如管理员广播，无业务记录）
func (r *OutboxRepository) Insert(ctx context.Context, ev *model.OutboxEvent) error {
	return insertOutbox(r.DB.WithContext(ctx), ev)
}

// ListPending 查询待投递与可重试的事件
func (r *OutboxRepository) ListPending(ctx context.Context, batchSize, maxRetry int) ([]model.NotificationOutbox, error) {
	var list []model.NotificationOutbox
	if err := r.DB.WithContext(ctx).
		Where("status = ? OR (status = ? AND retry < ?)", model.OutboxPending, model.OutboxFailed, maxRetry).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// MarkFailed outbox记录消息失败重试
func (r *OutboxRepository) MarkFailed(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.NotificationOutbox{}).Where("id = ?", id).
		Updates(map[string]any{"status": model.OutboxFailed, "retry": gorm.Expr("retry + 1")}).Error
}

// MarkSent outbox成功记录消息更新
func (r *OutboxRepository) MarkSent(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.NotificationOutbox{}).Where("id = ?", id).
		Update("status", model.OutboxSent).Error
}
