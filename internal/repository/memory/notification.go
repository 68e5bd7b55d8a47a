package memory

import (
	"context"

	"Campus_Community/internal/model"
	"Campus_Community/internal/service"
)

type NotificationRepository struct{ db *DB }

type OutboxRepository struct{ db *DB }

var (
	_ service.NotificationStore = (*NotificationRepository)(nil)
	_ service.OutboxStore       = (*OutboxRepository)(nil)
)

func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func NewOutboxRepository(db *DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *NotificationRepository) CreateBatch(_ context.Context, list []model.Notification) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var created int64
	for i := range list {
		n := list[i]
		if n.OutboxID != nil && r.exists(n.UserID, *n.OutboxID) {
			continue
		}
		n.ID = r.db.nextID()
		n.CreatedAt = r.db.now()
		r.db.notifs[n.ID] = &n
		list[i] = n
		created++
	}
	return created, nil
}

// exists 模拟唯一索引 (user_id, outbox_id)
func (r *NotificationRepository) exists(userID, outboxID uint64) bool {
	for _, n := range r.db.notifs {
		if n.UserID == userID && n.OutboxID != nil && *n.OutboxID == outboxID {
			return true
		}
	}
	return false
}

// TransferPending 整个操作在一把锁内完成，与 MySQL 的行锁事务等价
func (r *NotificationRepository) TransferPending(_ context.Context, userID uint64, limit int) ([]model.Notification, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := r.db.now()
	rows := []model.Notification{}
	for _, id := range sortedKeys(r.db.notifs) {
		n := r.db.notifs[id]
		if n.UserID != userID || n.Transferred {
			continue
		}
		if limit > 0 && len(rows) == limit {
			break
		}
		n.Transferred = true
		n.TransferredAt = &now
		rows = append(rows, *n)
	}
	return rows, nil
}

func (r *NotificationRepository) List(_ context.Context, userID, cursor uint64, limit int) ([]model.Notification, uint64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	keys := sortedKeys(r.db.notifs)
	rows := []model.Notification{}
	for i := len(keys) - 1; i >= 0 && len(rows) <= limit; i-- {
		n := r.db.notifs[keys[i]]
		if n.UserID == userID && (cursor == 0 || n.ID < cursor) {
			rows = append(rows, *n)
		}
	}
	var next uint64
	if len(rows) > limit {
		next = rows[limit-1].ID
		rows = rows[:limit]
	}
	return rows, next, nil
}

func (r *NotificationRepository) UnreadCount(_ context.Context, userID uint64) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var cnt int64
	for _, n := range r.db.notifs {
		if n.UserID == userID && !n.Read {
			cnt++
		}
	}
	return cnt, nil
}

func (r *NotificationRepository) MarkRead(_ context.Context, userID, id uint64) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n, ok := r.db.notifs[id]
	if !ok || n.UserID != userID {
		return 0, nil
	}
	n.Read = true
	return 1, nil
}

func (r *NotificationRepository) MarkAllRead(_ context.Context, userID uint64) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var cnt int64
	for _, n := range r.db.notifs {
		if n.UserID == userID && !n.Read {
			n.Read = true
			cnt++
		}
	}
	return cnt, nil
}

func (r *NotificationRepository) Delete(_ context.Context, userID, id uint64) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n, ok := r.db.notifs[id]
	if !ok || n.UserID != userID {
		return 0, nil
	}
	delete(r.db.notifs, id)
	return 1, nil
}

func (r *OutboxRepository) Insert(_ context.Context, ev *model.OutboxEvent) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.db.insertOutboxLocked(ev)
}

func (r *OutboxRepository) ListPending(_ context.Context, batchSize, maxRetry int) ([]model.NotificationOutbox, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	list := []model.NotificationOutbox{}
	for _, id := range sortedKeys(r.db.outbox) {
		ob := r.db.outbox[id]
		if ob.Status == model.OutboxPending || (ob.Status == model.OutboxFailed && ob.Retry < maxRetry) {
			list = append(list, *ob)
		}
	}
	return window(list, 0, batchSize), nil
}

func (r *OutboxRepository) MarkSent(_ context.Context, id uint64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if ob, ok := r.db.outbox[id]; ok {
		ob.Status = model.OutboxSent
		ob.UpdatedAt = r.db.now()
	}
	return nil
}

func (r *OutboxRepository) MarkFailed(_ context.Context, id uint64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if ob, ok := r.db.outbox[id]; ok {
		ob.Status = model.OutboxFailed
		ob.Retry++
		ob.UpdatedAt = r.db.now()
	}
	return nil
}

// All returns every outbox row in id order.
func (r *OutboxRepository) All() []model.NotificationOutbox {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	list := []model.NotificationOutbox{}
	for _, id := range sortedKeys(r.db.outbox) {
		list = append(list, *r.db.outbox[id])
	}
	return list
}
