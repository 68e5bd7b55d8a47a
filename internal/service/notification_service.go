package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"Campus_Community/internal/logging"
	"Campus_Community/internal/metrics"
	"Campus_Community/internal/model"
	"Campus_Community/internal/pkg"

	"github.com/google/uuid"
)

type NotifyOptions struct {
	TransferBatch    int
	TransferLockTTL  time.Duration
	BroadcastPageLen int
}

type NotificationService struct {
	repo    NotificationStore
	outbox  OutboxStore
	subs    SubscriptionStore
	members ForumMemberStore
	users   UserStore
	lock    Locker
	opts    NotifyOptions
}

func NewNotificationService(repo NotificationStore, outbox OutboxStore, subs SubscriptionStore,
	members ForumMemberStore, users UserStore, lock Locker, opts NotifyOptions) *NotificationService {
	if opts.TransferBatch <= 0 {
		opts.TransferBatch = 50
	}
	if opts.TransferLockTTL <= 0 {
		opts.TransferLockTTL = 5 * time.Second
	}
	if opts.BroadcastPageLen <= 0 {
		opts.BroadcastPageLen = 1000
	}
	return &NotificationService{
		repo:    repo,
		outbox:  outbox,
		subs:    subs,
		members: members,
		users:   users,
		lock:    lock,
		opts:    opts,
	}
}

func transferLockKey(userID uint64) string {
	return fmt.Sprintf("notify:transfer:%d", userID)
}

// Transfer 取走用户所有未投递的通知（最早的一批），同一条通知只会被返回一次。
// 同一用户并发轮询时，拿不到锁的一方直接返回空集。
func (s *NotificationService) Transfer(ctx context.Context, userID uint64) ([]model.Notification, error) {
	key, token := transferLockKey(userID), uuid.NewString()
	got, err := s.lock.Acquire(ctx, key, token, s.opts.TransferLockTTL)
	if err != nil {
		// redis 不可用时退化为只依赖行锁
		logging.Log.Warn().Err(err).Uint64("user_id", userID).Msg("transfer lock unavailable")
	} else if !got {
		metrics.IncTransferContended()
		return []model.Notification{}, nil
	} else {
		defer func() {
			if err := s.lock.Release(context.WithoutCancel(ctx), key, token); err != nil {
				logging.Log.Warn().Err(err).Str("key", key).Msg("release transfer lock failed")
			}
		}()
	}

	rows, err := s.repo.TransferPending(ctx, userID, s.opts.TransferBatch)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.Notification{}
	}
	metrics.AddTransferred(len(rows))
	return rows, nil
}

func (s *NotificationService) List(ctx context.Context, userID, cursor uint64, limit int) ([]model.Notification, uint64, error) {
	return s.repo.List(ctx, userID, cursor, clampLimit(limit))
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint64) (int64, error) {
	return s.repo.UnreadCount(ctx, userID)
}

// MarkRead 别人的通知一律按不存在处理
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint64) error {
	n, err := s.repo.MarkRead(ctx, userID, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return pkg.ErrNotFound
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, userID, id uint64) error {
	n, err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return pkg.ErrNotFound
	}
	return nil
}

type Broadcast struct {
	UserIDs []uint64
	Title   string
	Message string
	Link    string
}

// Broadcast 管理员公告：写入 outbox，由 relayer 扇出；UserIDs 为空表示全体用户
func (s *NotificationService) Broadcast(ctx context.Context, actor Actor, req Broadcast) error {
	if !actor.IsAdmin() {
		return pkg.ErrForbidden
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return fmt.Errorf("%w: title required", pkg.ErrInvalidParam)
	}
	if req.Link != "" && !strings.HasPrefix(req.Link, "/") && !validLink(req.Link) {
		return fmt.Errorf("%w: bad link", pkg.ErrInvalidParam)
	}
	return s.outbox.Insert(ctx, &model.OutboxEvent{
		EventType: model.EventAnnouncement,
		Scope:     model.ScopeUsers,
		ActorID:   actor.ID,
		Title:     req.Title,
		Body:      req.Message,
		Link:      req.Link,
		UserIDs:   req.UserIDs,
		EventTime: time.Now(),
	})
}

func kindOf(eventType string) string {
	switch eventType {
	case model.EventOpportunityCreated:
		return model.KindOpportunity
	case model.EventForumPostCreated:
		return model.KindForumPost
	}
	return model.KindAnnounce
}

// FanOut 解析收件人（跳过发起者）并批量写入通知，返回写入条数
func (s *NotificationService) FanOut(ctx context.Context, ev model.OutboxEvent) (int, error) {
	if ev.Scope == model.ScopeUsers && len(ev.UserIDs) == 0 {
		return s.fanOutAll(ctx, ev)
	}
	ids, err := s.recipients(ctx, ev)
	if err != nil {
		return 0, err
	}
	return s.insert(ctx, ev, ids)
}

func (s *NotificationService) recipients(ctx context.Context, ev model.OutboxEvent) ([]uint64, error) {
	switch ev.Scope {
	case model.ScopeClub:
		return s.subs.SubscriberIDs(ctx, model.Scope{ClubID: ev.ScopeID})
	case model.ScopeBoard:
		return s.subs.SubscriberIDs(ctx, model.Scope{BoardID: ev.ScopeID})
	case model.ScopeForum:
		return s.members.MemberIDs(ctx, ev.ScopeID)
	case model.ScopeUsers:
		return ev.UserIDs, nil
	}
	return nil, fmt.Errorf("%w: unknown scope %q", pkg.ErrInvalidParam, ev.Scope)
}

// fanOutAll 按 id 翻页遍历全体（未封禁）用户
func (s *NotificationService) fanOutAll(ctx context.Context, ev model.OutboxEvent) (int, error) {
	var after uint64
	total := 0
	for {
		ids, err := s.users.ListIDs(ctx, after, s.opts.BroadcastPageLen)
		if err != nil {
			return total, err
		}
		if len(ids) == 0 {
			return total, nil
		}
		n, err := s.insert(ctx, ev, ids)
		total += n
		if err != nil {
			return total, err
		}
		if len(ids) < s.opts.BroadcastPageLen {
			return total, nil
		}
		after = ids[len(ids)-1]
	}
}

func (s *NotificationService) insert(ctx context.Context, ev model.OutboxEvent, ids []uint64) (int, error) {
	kind := kindOf(ev.EventType)
	// 带上 outbox id，重试或 Kafka 重投时已写入的收件人会被唯一索引跳过
	var outboxID *uint64
	if ev.OutboxID != 0 {
		id := ev.OutboxID
		outboxID = &id
	}
	seen := make(map[uint64]struct{}, len(ids))
	list := make([]model.Notification, 0, len(ids))
	for _, id := range ids {
		if id == 0 || id == ev.ActorID {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		list = append(list, model.Notification{
			UserID:   id,
			OutboxID: outboxID,
			Kind:     kind,
			Title:    ev.Title,
			Message:  ev.Body,
			Link:     ev.Link,
		})
	}
	if len(list) == 0 {
		return 0, nil
	}
	created, err := s.repo.CreateBatch(ctx, list)
	if err != nil {
		return 0, err
	}
	metrics.AddFannedOut(int(created))
	return int(created), nil
}
