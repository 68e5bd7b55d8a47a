package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"Campus_Community/internal/model"
	"Campus_Community/internal/repository/memory"
	"Campus_Community/internal/service"

	"github.com/stretchr/testify/require"
)

// world wires every service over one in-memory database.
type world struct {
	db     *memory.DB
	users  *memory.UserRepository
	tokens *memory.TokenRepository
	codes  *memory.CodeRepository
	lock   *memory.Lock
	outbox *memory.OutboxRepository
	counts *memory.SubscriberCountRepository
	mailer *memory.Mailer

	email    *service.EmailService
	user     *service.UserService
	ban      *service.BanService
	pors     *service.PORService
	boards   *service.BoardService
	clubs    *service.ClubService
	forums   *service.ForumService
	posts    *service.PostService
	likes    *service.PostLikeService
	opps     *service.OpportunityService
	subs     *service.SubscriptionService
	notify   *service.NotificationService
	uploader *service.ImageUploader
}

func newWorld(t *testing.T) *world {
	t.Helper()
	db := memory.Open()
	w := &world{
		db:     db,
		users:  memory.NewUserRepository(db),
		tokens: memory.NewTokenRepository(db),
		codes:  memory.NewCodeRepository(db),
		lock:   memory.NewLock(db),
		outbox: memory.NewOutboxRepository(db),
		counts: memory.NewSubscriberCountRepository(db),
		mailer: &memory.Mailer{},
	}
	boards := memory.NewBoardRepository(db)
	clubs := memory.NewClubRepository(db)
	members := memory.NewForumMemberRepository(db)
	posts := memory.NewPostRepository(db)
	subs := memory.NewSubscriptionRepository(db)

	w.uploader = service.NewImageUploader(t.TempDir(), 1<<20)
	w.email = service.NewEmailService(w.mailer, w.codes)
	w.user = service.NewUserService(w.users, w.tokens, w.email)
	w.ban = service.NewBanService(w.users, memory.NewBanCacheRepository(db), w.tokens)
	w.pors = service.NewPORService(memory.NewPORRepository(db), clubs, boards, w.users)
	w.boards = service.NewBoardService(boards, w.pors, w.uploader)
	w.clubs = service.NewClubService(clubs, boards, w.pors, w.uploader)
	w.forums = service.NewForumService(memory.NewForumRepository(db), members, w.pors)
	w.posts = service.NewPostService(posts, w.forums)
	w.likes = service.NewPostLikeService(memory.NewPostLikeRepository(db), posts, memory.NewLikeCacheRepository(db), w.lock)
	w.opps = service.NewOpportunityService(memory.NewOpportunityRepository(db), w.pors)
	w.subs = service.NewSubscriptionService(subs, clubs, boards)
	w.notify = service.NewNotificationService(memory.NewNotificationRepository(db), w.outbox, subs, members, w.users, w.lock,
		service.NotifyOptions{TransferBatch: 50, TransferLockTTL: time.Second, BroadcastPageLen: 2})
	return w
}

// addUser creates a user directly in storage and returns it as an actor.
func (w *world) addUser(t *testing.T, name string, role int) service.Actor {
	t.Helper()
	u := &model.User{Username: name, Password: "x", Email: name + "@campus.edu"}
	require.NoError(t, w.users.Create(context.Background(), u))
	if role != model.RoleStudent {
		w.users.SetRole(u.ID, role)
	}
	return service.Actor{ID: u.ID, Role: role}
}

// org creates one board with one club owned by admin.
func (w *world) org(t *testing.T, admin service.Actor) (*model.Board, *model.Club) {
	t.Helper()
	ctx := context.Background()
	b, err := w.boards.Create(ctx, admin, fmt.Sprintf("Board %d", admin.ID), "")
	require.NoError(t, err)
	c, err := w.clubs.Create(ctx, admin, b.ID, fmt.Sprintf("Club %d", b.ID), "")
	require.NoError(t, err)
	return b, c
}

// relay drains the outbox through in-process fan-out.
func (w *world) relay(t *testing.T) int {
	t.Helper()
	r := service.NewOutboxRelayer(w.outbox, service.DirectSender(w.notify), 100, 3, time.Second)
	return r.DrainOnce(context.Background())
}
