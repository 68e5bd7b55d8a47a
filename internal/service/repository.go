package service

import (
	"context"
	"time"

	"Campus_Community/internal/model"
)

// Storage contracts consumed by services. The mysql and redis packages implement them;
// tests use in-memory fakes.

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint64) (*model.User, error)
	FindByLogin(ctx context.Context, usernameOrEmail string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	UpdatePassword(ctx context.Context, id uint64, hash string) error
	SetBanned(ctx context.Context, id uint64, banned bool, reason string) error
	ListIDs(ctx context.Context, afterID uint64, limit int) ([]uint64, error)
}

type TokenStore interface {
	AddUserToken(ctx context.Context, userID uint64, token string) error
	GetUserToken(ctx context.Context, userID uint64) (string, error)
	ExtendUserToken(ctx context.Context, userID uint64) error
	DeleteUserToken(ctx context.Context, userID uint64) error
}

type CodeStore interface {
	SavePending(ctx context.Context, scope, email, code string) error
	Confirm(ctx context.Context, scope, email string) error
	DeletePending(ctx context.Context, scope, email string) error
	GetConfirmed(ctx context.Context, scope, email string) (string, error)
	DeleteConfirmed(ctx context.Context, scope, email string) error
}

type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// BanCache caches the banned flag per user. ok=false means a miss.
type BanCache interface {
	Get(ctx context.Context, userID uint64) (status model.BanStatus, ok bool, err error)
	Set(ctx context.Context, userID uint64, status model.BanStatus) error
	Delete(ctx context.Context, userID uint64) error
}

type Locker interface {
	Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, token string) error
}

type BoardStore interface {
	Create(ctx context.Context, b *model.Board) error
	FindByID(ctx context.Context, id uint64) (*model.Board, error)
	List(ctx context.Context, offset, limit int) ([]model.Board, error)
	Update(ctx context.Context, id uint64, fields map[string]any) error
	Delete(ctx context.Context, id uint64) error
}

type ClubStore interface {
	Create(ctx context.Context, c *model.Club) error
	FindByID(ctx context.Context, id uint64) (*model.Club, error)
	List(ctx context.Context, boardID uint64, offset, limit int) ([]model.Club, error)
	Update(ctx context.Context, id uint64, fields map[string]any) error
	Delete(ctx context.Context, id uint64) error
}

type PORStore interface {
	Create(ctx context.Context, p *model.PrivilegeType) error
	FindByID(ctx context.Context, id uint64) (*model.PrivilegeType, error)
	Find(ctx context.Context, userID uint64, scope model.Scope) (*model.PrivilegeType, error)
	ListByScope(ctx context.Context, scope model.Scope) ([]model.PrivilegeType, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.PrivilegeType, error)
	Update(ctx context.Context, id uint64, fields map[string]any) error
	Delete(ctx context.Context, id uint64) error
}

type ForumStore interface {
	Create(ctx context.Context, f *model.Forum) error
	FindByID(ctx context.Context, id uint64) (*model.Forum, error)
	List(ctx context.Context, scope model.Scope, offset, limit int) ([]model.Forum, error)
	SoftDelete(ctx context.Context, id uint64) error
}

type ForumMemberStore interface {
	Join(ctx context.Context, m *model.ForumMember) error
	Leave(ctx context.Context, forumID, userID uint64) error
	Find(ctx context.Context, forumID, userID uint64) (*model.ForumMember, error)
	List(ctx context.Context, forumID uint64, offset, limit int) ([]model.ForumMember, error)
	MemberIDs(ctx context.Context, forumID uint64) ([]uint64, error)
}

type PostStore interface {
	// CreateWithEvent stores the post and its outbox event in one transaction.
	CreateWithEvent(ctx context.Context, post *model.Post, ev *model.OutboxEvent) error
	FindByID(ctx context.Context, id uint64) (*model.Post, error)
	ListByForum(ctx context.Context, forumID uint64, offset, limit int) ([]model.Post, error)
	ListByForumCursor(ctx context.Context, forumID, lastID uint64, lastCreatedAt int64, limit int) ([]model.Post, error)
	SoftDelete(ctx context.Context, id uint64) (int64, error)
}

type PostLikeStore interface {
	Like(ctx context.Context, userID, postID uint64) (bool, error)
	Unlike(ctx context.Context, userID, postID uint64) (bool, error)
	IsLiked(ctx context.Context, userID, postID uint64) (bool, error)
	GetLikeCount(ctx context.Context, postID uint64) (int64, error)
}

type LikeCache interface {
	AddLike(ctx context.Context, userID, postID uint64) error
	RemoveLike(ctx context.Context, userID, postID uint64) error
	IsLikedCached(ctx context.Context, userID, postID uint64) (liked bool, hit bool, err error)
	GetLikeCountCached(ctx context.Context, postID uint64) (count int64, hit bool, err error)
	SetLikeCount(ctx context.Context, postID uint64, cnt int64) error
	WarmIsLiked(ctx context.Context, userID, postID uint64, liked bool)
	DeleteCount(ctx context.Context, postID uint64, delay ...time.Duration) error
}

type OpportunityStore interface {
	CreateWithEvent(ctx context.Context, o *model.Opportunity, ev *model.OutboxEvent) error
	FindByID(ctx context.Context, id uint64) (*model.Opportunity, error)
	List(ctx context.Context, f model.OpportunityFilter) ([]model.Opportunity, error)
	Update(ctx context.Context, id uint64, fields map[string]any) error
	Delete(ctx context.Context, id uint64) error
}

type SubscriptionStore interface {
	Subscribe(ctx context.Context, userID uint64, scope model.Scope) (bool, error)
	Unsubscribe(ctx context.Context, userID uint64, scope model.Scope) (bool, error)
	ListByUser(ctx context.Context, userID, cursor uint64, limit int) ([]model.Subscription, uint64, error)
	ListByScope(ctx context.Context, scope model.Scope, cursor uint64, limit int) ([]model.Subscription, uint64, error)
	SubscriberIDs(ctx context.Context, scope model.Scope) ([]uint64, error)
}

type SubscriberCountStore interface {
	ReconcileList(ctx context.Context, kind string, batchSize int, lastID uint64) ([]model.CountPair, uint64, error)
	RealSubscribers(ctx context.Context, scope model.Scope) (int64, error)
	FixSubscribers(ctx context.Context, scope model.Scope, count int64) error
}

type NotificationStore interface {
	// CreateBatch skips rows whose (user_id, outbox_id) already exists and reports how many were inserted.
	CreateBatch(ctx context.Context, list []model.Notification) (int64, error)
	TransferPending(ctx context.Context, userID uint64, limit int) ([]model.Notification, error)
	List(ctx context.Context, userID, cursor uint64, limit int) ([]model.Notification, uint64, error)
	UnreadCount(ctx context.Context, userID uint64) (int64, error)
	MarkRead(ctx context.Context, userID, id uint64) (int64, error)
	MarkAllRead(ctx context.Context, userID uint64) (int64, error)
	Delete(ctx context.Context, userID, id uint64) (int64, error)
}

type OutboxStore interface {
	Insert(ctx context.Context, ev *model.OutboxEvent) error
	ListPending(ctx context.Context, batchSize, maxRetry int) ([]model.NotificationOutbox, error)
	MarkSent(ctx context.Context, id uint64) error
	MarkFailed(ctx context.Context, id uint64) error
}
