package service

import (
	"context"
	"fmt"
	"time"

	"Campus_Community/internal/logging"
	"Campus_Community/internal/model"
	"Campus_Community/internal/pkg"
)

const (
	SubscribeAction   = "subscribe"
	UnsubscribeAction = "unsubscribe"
)

type SubscriptionService struct {
	repo   SubscriptionStore
	clubs  ClubStore
	boards BoardStore
}

func NewSubscriptionService(repo SubscriptionStore, clubs ClubStore, boards BoardStore) *SubscriptionService {
	return &SubscriptionService{repo: repo, clubs: clubs, boards: boards}
}

// Apply 幂等订阅/取消订阅，changed 表示状态是否真的发生变化
func (s *SubscriptionService) Apply(ctx context.Context, userID uint64, scope model.Scope, action string) (bool, error) {
	if userID == 0 {
		return false, pkg.ErrInvalidParam
	}
	if err := scopeExists(ctx, s.clubs, s.boards, scope); err != nil {
		return false, err
	}
	switch action {
	case SubscribeAction:
		return s.repo.Subscribe(ctx, userID, scope)
	case UnsubscribeAction:
		return s.repo.Unsubscribe(ctx, userID, scope)
	}
	return false, fmt.Errorf("%w: unknown action %q", pkg.ErrInvalidParam, action)
}

func (s *SubscriptionService) ListMine(ctx context.Context, userID, cursor uint64, limit int) ([]model.Subscription, uint64, error) {
	return s.repo.ListByUser(ctx, userID, cursor, clampLimit(limit))
}

func (s *SubscriptionService) ListSubscribers(ctx context.Context, scope model.Scope, cursor uint64, limit int) ([]model.Subscription, uint64, error) {
	if err := scopeExists(ctx, s.clubs, s.boards, scope); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByScope(ctx, scope, cursor, clampLimit(limit))
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}

// SubscriberCountReconciler 订阅计数对账器
type SubscriberCountReconciler struct {
	repo      SubscriberCountStore
	batchSize int
	interval  time.Duration
}

func NewSubscriberCountReconciler(repo SubscriberCountStore, batchSize int, interval time.Duration) *SubscriberCountReconciler {
	return &SubscriberCountReconciler{repo: repo, batchSize: batchSize, interval: interval}
}

// Run 对账定时任务启动器
func (r *SubscriberCountReconciler) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.ReconcileOnce(ctx)
		}
	}
}

// ReconcileOnce 按 id 翻页扫完 club 和 board，返回修正的条数
func (r *SubscriberCountReconciler) ReconcileOnce(ctx context.Context) int {
	fixed := 0
	for _, kind := range []string{model.ScopeClub, model.ScopeBoard} {
		var lastID uint64
		for {
			rows, next, err := r.repo.ReconcileList(ctx, kind, r.batchSize, lastID)
			if err != nil {
				logging.Log.Error().Err(err).Str("kind", kind).Msg("reconcile list failed")
				break
			}
			for _, row := range rows {
				scope := model.Scope{BoardID: row.ID}
				if kind == model.ScopeClub {
					scope = model.Scope{ClubID: row.ID}
				}
				// 先在订阅表查询真实值，再和计数列比对更新
				actual, err := r.repo.RealSubscribers(ctx, scope)
				if err != nil || actual == row.SubscriberCount {
					continue
				}
				if err = r.repo.FixSubscribers(ctx, scope, actual); err == nil {
					fixed++
				}
			}
			if len(rows) < r.batchSize || ctx.Err() != nil {
				break
			}
			lastID = next
		}
	}
	if fixed > 0 {
		logging.Log.Info().Int("fixed", fixed).Msg("subscriber counts reconciled")
	}
	return fixed
}
