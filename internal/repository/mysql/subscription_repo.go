package mysql

import (
	"context"
	"errors"

	"Campus_Community/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionRepository struct {
	DB *gorm.DB
}

// SubscriberCountReconcilerRepo 订阅计数对账
type SubscriberCountReconcilerRepo struct {
	DB *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{DB: db}
}

func NewSubscriberCountReconcilerRepo(db *gorm.DB) *SubscriberCountReconcilerRepo {
	return &SubscriberCountReconcilerRepo{DB: db}
}

func scopeTable(scope model.Scope) any {
	if scope.ClubID != 0 {
		return &model.Club{}
	}
	return &model.Board{}
}

// Subscribe 设置为订阅（幂等）。状态从未订阅切换为已订阅时返回 changed=true。
func (r *SubscriptionRepository) Subscribe(ctx context.Context, userID uint64, scope model.Scope) (bool, error) {
	var changed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub model.Subscription
		// select for update 避免竞争
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND club_id = ? AND board_id = ?", userID, scope.ClubID, scope.BoardID).
			First(&sub).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			sub = model.Subscription{UserID: userID, ClubID: scope.ClubID, BoardID: scope.BoardID, Status: 1}
			if err = tx.Create(&sub).Error; err != nil {
				return translate(err)
			}
			changed = true
			return adjustSubscribers(tx, scope, +1)
		}
		// 重复请求
		if sub.Status == 1 {
			return nil
		}
		if err := tx.Model(&model.Subscription{}).
			Where("id = ? AND status = 0", sub.ID).
			Update("status", 1).Error; err != nil {
			return err
		}
		changed = true
		return adjustSubscribers(tx, scope, +1)
	})
	return changed, err
}

// Unsubscribe 取消订阅（幂等）
func (r *SubscriptionRepository) Unsubscribe(ctx context.Context, userID uint64, scope model.Scope) (bool, error) {
	var changed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub model.Subscription
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND club_id = ? AND board_id = ?", userID, scope.ClubID, scope.BoardID).
			First(&sub).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if sub.Status == 0 {
			return nil
		}
		if err := tx.Model(&model.Subscription{}).
			Where("id = ? AND status = 1", sub.ID).
			Update("status", 0).Error; err != nil {
			return err
		}
		changed = true
		return adjustSubscribers(tx, scope, -1)
	})
	return changed, err
}

// ListByUser 获取用户订阅列表，id 倒序游标分页
func (r *SubscriptionRepository) ListByUser(ctx context.Context, userID, cursor uint64, limit int) ([]model.Subscription, uint64, error) {
	q := r.DB.WithContext(ctx).Model(&model.Subscription{}).
		Where("user_id = ? AND status = 1", userID)
	return pageSubscriptions(q, cursor, limit)
}

// ListByScope 获取 club/board 的订阅者列表
func (r *SubscriptionRepository) ListByScope(ctx context.Context, scope model.Scope, cursor uint64, limit int) ([]model.Subscription, uint64, error) {
	q := r.DB.WithContext(ctx).Model(&model.Subscription{}).
		Where("club_id = ? AND board_id = ? AND status = 1", scope.ClubID, scope.BoardID)
	return pageSubscriptions(q, cursor, limit)
}

func pageSubscriptions(q *gorm.DB, cursor uint64, limit int) ([]model.Subscription, uint64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}
	var rows []model.Subscription
	// limit+1 用于判断是否还有下一页
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

func (r *SubscriptionRepository) SubscriberIDs(ctx context.Context, scope model.Scope) ([]uint64, error) {
	var ids []uint64
	err := r.DB.WithContext(ctx).Model(&model.Subscription{}).
		Where("club_id = ? AND board_id = ? AND status = 1", scope.ClubID, scope.BoardID).
		Pluck("user_id", &ids).Error
	return ids, err
}

// adjustSubscribers 调整订阅计数，不会小于 0
func adjustSubscribers(tx *gorm.DB, scope model.Scope, delta int64) error {
	return tx.Model(scopeTable(scope)).
		Where("id = ?", scope.ID()).
		UpdateColumn("subscriber_count", gorm.Expr("GREATEST(0, subscriber_count + ?)", delta)).Error
}

// ReconcileList 异步对账批量查询；kind 为 club 或 board
func (r *SubscriberCountReconcilerRepo) ReconcileList(ctx context.Context, kind string, batchSize int, lastID uint64) ([]model.CountPair, uint64, error) {
	var table any = &model.Board{}
	if kind == model.ScopeClub {
		table = &model.Club{}
	}
	var list []model.CountPair
	if err := r.DB.WithContext(ctx).Model(table).
		Select("id", "subscriber_count").
		Where("id > ?", lastID).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, lastID, err
	}
	if len(list) == 0 {
		return nil, lastID, nil
	}
	return list, list[len(list)-1].ID, nil
}

// RealSubscribers 真实订阅数
func (r *SubscriberCountReconcilerRepo) RealSubscribers(ctx context.Context, scope model.Scope) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Subscription{}).
		Where("club_id = ? AND board_id = ? AND status = 1", scope.ClubID, scope.BoardID).
		Count(&n).Error
	return n, err
}

// FixSubscribers 修正订阅数
func (r *SubscriberCountReconcilerRepo) FixSubscribers(ctx context.Context, scope model.Scope, count int64) error {
	return r.DB.WithContext(ctx).Model(scopeTable(scope)).
		Where("id = ?", scope.ID()).
		UpdateColumn("subscriber_count", count).Error
}
