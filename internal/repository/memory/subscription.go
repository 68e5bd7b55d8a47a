package memory

import (
	"context"
	"sort"

	"Campus_Community/internal/model"
	"Campus_Community/internal/service"
)

type SubscriptionRepository struct{ db *DB }

type SubscriberCountRepository struct{ db *DB }

var (
	_ service.SubscriptionStore    = (*SubscriptionRepository)(nil)
	_ service.SubscriberCountStore = (*SubscriberCountRepository)(nil)
)

func NewSubscriptionRepository(db *DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func NewSubscriberCountRepository(db *DB) *SubscriberCountRepository {
	return &SubscriberCountRepository{db: db}
}

func keyOf(userID uint64, scope model.Scope) subKey {
	return subKey{userID: userID, clubID: scope.ClubID, boardID: scope.BoardID}
}

// adjustLocked 计数不会小于 0
func (db *DB) adjustLocked(scope model.Scope, delta int64) {
	var cnt *int64
	if scope.ClubID != 0 {
		if c, ok := db.clubs[scope.ClubID]; ok {
			cnt = &c.SubscriberCount
		}
	} else if b, ok := db.boards[scope.BoardID]; ok {
		cnt = &b.SubscriberCount
	}
	if cnt == nil {
		return
	}
	if *cnt += delta; *cnt < 0 {
		*cnt = 0
	}
}

func (r *SubscriptionRepository) Subscribe(_ context.Context, userID uint64, scope model.Scope) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := keyOf(userID, scope)
	sub, ok := r.db.subs[key]
	if ok && sub.Status == 1 {
		return false, nil
	}
	if !ok {
		sub = &model.Subscription{ID: r.db.nextID(), UserID: userID, ClubID: scope.ClubID, BoardID: scope.BoardID, CreatedAt: r.db.now()}
		r.db.subs[key] = sub
	}
	sub.Status = 1
	sub.UpdatedAt = r.db.now()
	r.db.adjustLocked(scope, +1)
	return true, nil
}

func (r *SubscriptionRepository) Unsubscribe(_ context.Context, userID uint64, scope model.Scope) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	sub, ok := r.db.subs[keyOf(userID, scope)]
	if !ok || sub.Status == 0 {
		return false, nil
	}
	sub.Status = 0
	sub.UpdatedAt = r.db.now()
	r.db.adjustLocked(scope, -1)
	return true, nil
}

// page id 倒序，多取一条判断是否还有下一页
func (r *SubscriptionRepository) page(keep func(*model.Subscription) bool, cursor uint64, limit int) ([]model.Subscription, uint64) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows := []model.Subscription{}
	for _, s := range r.db.subs {
		if s.Status == 1 && keep(s) && (cursor == 0 || s.ID < cursor) {
			rows = append(rows, *s)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID > rows[j].ID })
	var next uint64
	if len(rows) > limit {
		next = rows[limit-1].ID
		rows = rows[:limit]
	}
	return rows, next
}

func (r *SubscriptionRepository) ListByUser(_ context.Context, userID, cursor uint64, limit int) ([]model.Subscription, uint64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rows, next := r.page(func(s *model.Subscription) bool { return s.UserID == userID }, cursor, limit)
	return rows, next, nil
}

func (r *SubscriptionRepository) ListByScope(_ context.Context, scope model.Scope, cursor uint64, limit int) ([]model.Subscription, uint64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	rows, next := r.page(func(s *model.Subscription) bool {
		return s.ClubID == scope.ClubID && s.BoardID == scope.BoardID
	}, cursor, limit)
	return rows, next, nil
}

func (r *SubscriptionRepository) SubscriberIDs(_ context.Context, scope model.Scope) ([]uint64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var ids []uint64
	for _, s := range r.db.subs {
		if s.Status == 1 && s.ClubID == scope.ClubID && s.BoardID == scope.BoardID {
			ids = append(ids, s.UserID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *SubscriberCountRepository) ReconcileList(_ context.Context, kind string, batchSize int, lastID uint64) ([]model.CountPair, uint64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var list []model.CountPair
	if kind == model.ScopeClub {
		for _, id := range sortedKeys(r.db.clubs) {
			if id > lastID {
				list = append(list, model.CountPair{ID: id, SubscriberCount: r.db.clubs[id].SubscriberCount})
			}
		}
	} else {
		for _, id := range sortedKeys(r.db.boards) {
			if id > lastID {
				list = append(list, model.CountPair{ID: id, SubscriberCount: r.db.boards[id].SubscriberCount})
			}
		}
	}
	list = window(list, 0, batchSize)
	if len(list) == 0 {
		return nil, lastID, nil
	}
	return list, list[len(list)-1].ID, nil
}

func (r *SubscriberCountRepository) RealSubscribers(_ context.Context, scope model.Scope) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for _, s := range r.db.subs {
		if s.Status == 1 && s.ClubID == scope.ClubID && s.BoardID == scope.BoardID {
			n++
		}
	}
	return n, nil
}

func (r *SubscriberCountRepository) FixSubscribers(_ context.Context, scope model.Scope, count int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if scope.ClubID != 0 {
		if c, ok := r.db.clubs[scope.ClubID]; ok {
			c.SubscriberCount = count
		}
	} else if b, ok := r.db.boards[scope.BoardID]; ok {
		b.SubscriberCount = count
	}
	return nil
}

// SetSubscriberCount lets tests put a counter out of sync.
func (r *SubscriberCountRepository) SetSubscriberCount(scope model.Scope, count int64) error {
	return r.FixSubscribers(context.Background(), scope, count)
}
