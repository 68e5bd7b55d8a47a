package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"Campus_Community/internal/model"
	"Campus_Community/internal/repository/memory"
	"Campus_Community/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyNotifications fails the CreateBatch call numbered failOn (1-based) once.
type flakyNotifications struct {
	*memory.NotificationRepository
	calls  int
	failOn int
}

func (f *flakyNotifications) CreateBatch(ctx context.Context, list []model.Notification) (int64, error) {
	f.calls++
	if f.calls == f.failOn {
		return 0, errors.New("deadlock found when trying to get lock")
	}
	return f.NotificationRepository.CreateBatch(ctx, list)
}

func TestBroadcastRetryAfterPartialFanOut(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	admin := w.addUser(t, "admin", model.RoleAdmin)
	alice := w.addUser(t, "alice", model.RoleStudent)
	bob := w.addUser(t, "bob", model.RoleStudent)

	// one user per page: the admin page is empty after skipping the actor,
	// alice's page is the first insert, bob's page fails
	store := &flakyNotifications{NotificationRepository: memory.NewNotificationRepository(w.db), failOn: 2}
	notify := service.NewNotificationService(store, w.outbox, memory.NewSubscriptionRepository(w.db),
		memory.NewForumMemberRepository(w.db), w.users, w.lock,
		service.NotifyOptions{TransferBatch: 50, TransferLockTTL: time.Second, BroadcastPageLen: 1})
	require.NoError(t, notify.Broadcast(ctx, admin, service.Broadcast{Title: "Exam schedule"}))

	r := service.NewOutboxRelayer(w.outbox, service.DirectSender(notify), 10, 3, time.Second)
	assert.Equal(t, 0, r.DrainOnce(ctx))
	rows := w.outbox.All()
	require.Len(t, rows, 1)
	assert.EqualValues(t, model.OutboxFailed, rows[0].Status)

	assert.Equal(t, 1, r.DrainOnce(ctx))

	for _, u := range []service.Actor{alice, bob} {
		list, _, err := store.List(ctx, u.ID, 0, 10)
		require.NoError(t, err)
		assert.Len(t, list, 1, "user %d", u.ID)

		got, err := notify.Transfer(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, got, 1, "user %d", u.ID)
		assert.Equal(t, "Exam schedule", got[0].Title)
	}
}

func TestKafkaRedeliveryDoesNotDuplicate(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	admin := w.addUser(t, "admin", model.RoleAdmin)
	alice := w.addUser(t, "alice", model.RoleStudent)
	bob := w.addUser(t, "bob", model.RoleStudent)
	require.NoError(t, w.notify.Broadcast(ctx, admin, service.Broadcast{UserIDs: []uint64{alice.ID, bob.ID}, Title: "Fest"}))

	p := &fakeProducer{}
	r := service.NewOutboxRelayer(w.outbox, service.KafkaSender(p), 10, 3, time.Second)
	require.Equal(t, 1, r.DrainOnce(ctx))
	require.Len(t, p.values, 1)

	// the consumer sees the same message twice, e.g. after a crash before commit
	require.NoError(t, w.notify.HandleMessage(ctx, []byte(p.keys[0]), p.values[0]))
	require.NoError(t, w.notify.HandleMessage(ctx, []byte(p.keys[0]), p.values[0]))

	for _, u := range []service.Actor{alice, bob} {
		got, err := w.notify.Transfer(ctx, u.ID)
		require.NoError(t, err)
		assert.Len(t, got, 1, "user %d", u.ID)
	}
}
