package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"Campus_Community/internal/model"
	"Campus_Community/internal/pkg"
	"Campus_Community/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func announce(t *testing.T, w *world, actor uint64, ids ...uint64) {
	t.Helper()
	_, err := w.notify.FanOut(context.Background(), model.OutboxEvent{
		EventType: model.EventAnnouncement,
		Scope:     model.ScopeUsers,
		ActorID:   actor,
		Title:     "hello",
		UserIDs:   ids,
	})
	require.NoError(t, err)
}

func TestTransferReturnsEachNotificationOnce(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	admin := w.addUser(t, "admin", model.RoleAdmin)
	alice := w.addUser(t, "alice", model.RoleStudent)

	announce(t, w, admin.ID, alice.ID)
	announce(t, w, admin.ID, alice.ID)

	first, err := w.notify.Transfer(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Less(t, first[0].ID, first[1].ID, "oldest first")
	for _, n := range first {
		assert.True(t, n.Transferred)
		assert.NotNil(t, n.TransferredAt)
		assert.Equal(t, model.KindAnnounce, n.Kind)
	}

	second, err := w.notify.Transfer(ctx, alice.ID)
	require.NoError(t, err)
	assert.NotNil(t, second)
	assert.Empty(t, second)

	announce(t, w, admin.ID, alice.ID)
	third, err := w.notify.Transfer(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, third, 1)
	assert.Greater(t, third[0].ID, first[1].ID)
}

func TestTransferLockedByAnotherPollReturnsEmpty(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	admin := w.addUser(t, "admin", model.RoleAdmin)
	alice := w.addUser(t, "alice", model.RoleStudent)
	announce(t, w, admin.ID, alice.ID)

	w.lock.Hold(fmt.Sprintf("notify:transfer:%d", alice.ID), time.Minute)
	got, err := w.notify.Transfer(ctx, alice.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	// the held lock expires; nothing was consumed meanwhile
	w.db.SetClock(func() time.Time { return time.Now().Add(2 * time.Minute) })
	got, err = w.notify.Transfer(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestConcurrentTransfersNeverDuplicate(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	admin := w.addUser(t, "admin", model.RoleAdmin)
	alice := w.addUser(t, "alice", model.RoleStudent)
	for i := 0; i < 30; i++ {
		announce(t, w, admin.ID, alice.ID)
	}

	var (
		mu   sync.Mutex
		seen = map[uint64]int{}
		wg   sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				list, err := w.notify.Transfer(ctx, alice.ID)
				assert.NoError(t, err)
				mu.Lock()
				for _, n := range list {
					seen[n.ID]++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// 剩余的由最后一次调用取走
	rest, err := w.notify.Transfer(ctx, alice.ID)
	require.NoError(t, err)
	for _, n := range rest {
		seen[n.ID]++
	}
	assert.Len(t, seen, 30)
	for id, cnt := range seen {
		assert.Equal(t, 1, cnt, "notification %d returned %d times", id, cnt)
	}
}

func TestTransferBoundedBatch(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	admin := w.addUser(t, "admin", model.RoleAdmin)
	alice := w.addUser(t, "alice", model.RoleStudent)
	for i := 0; i < 60; i++ {
		announce(t, w, admin.ID, alice.ID)
	}

	first, err := w.notify.Transfer(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, first, 50)
	second, err := w.notify.Transfer(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, second, 10)
}

func TestNotificationOwnership(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	admin := w.addUser(t, "admin", model.RoleAdmin)
	alice := w.addUser(t, "alice", model.RoleStudent)
	bob := w.addUser(t, "bob", model.RoleStudent)
	announce(t, w, admin.ID, alice.ID)
	announce(t, w, admin.ID, alice.ID)

	list, _, err := w.notify.List(ctx, alice.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	id := list[0].ID

	assert.ErrorIs(t, w.notify.MarkRead(ctx, bob.ID, id), pkg.ErrNotFound)
	assert.ErrorIs(t, w.notify.Delete(ctx, bob.ID, id), pkg.ErrNotFound)

	require.NoError(t, w.notify.MarkRead(ctx, alice.ID, id))
	unread, err := w.notify.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)

	n, err := w.notify.MarkAllRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, w.notify.Delete(ctx, alice.ID, id))
	assert.ErrorIs(t, w.notify.Delete(ctx, alice.ID, id), pkg.ErrNotFound)
}

func TestNotificationListCursor(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	admin := w.addUser(t, "admin", model.RoleAdmin)
	alice := w.addUser(t, "alice", model.RoleStudent)
	for i := 0; i < 5; i++ {
		announce(t, w, admin.ID, alice.ID)
	}

	page1, next, err := w.notify.List(ctx, alice.ID, 0, 3)
	require.NoError(t, err)
	require.Len(t, page1, 3)
	require.NotZero(t, next)
	assert.Greater(t, page1[0].ID, page1[2].ID, "newest first")

	page2, next, err := w.notify.List(ctx, alice.ID, next, 3)
	require.NoError(t, err)
	assert.Len(t, page2, 2)
	assert.Zero(t, next)
	assert.Less(t, page2[0].ID, page1[2].ID)
}

func TestFanOutScopes(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	admin := w.addUser(t, "admin", model.RoleAdmin)
	alice := w.addUser(t, "alice", model.RoleStudent)
	bob := w.addUser(t, "bob", model.RoleStudent)
	board, club := w.org(t, admin)

	_, err := w.subs.Apply(ctx, alice.ID, model.Scope{ClubID: club.ID}, service.SubscribeAction)
	require.NoError(t, err)
	_, err = w.subs.Apply(ctx, bob.ID, model.Scope{BoardID: board.ID}, service.SubscribeAction)
	require.NoError(t, err)
	_, err = w.subs.Apply(ctx, admin.ID, model.Scope{ClubID: club.ID}, service.SubscribeAction)
	require.NoError(t, err)

	n, err := w.notify.FanOut(ctx, model.OutboxEvent{
		EventType: model.EventOpportunityCreated, Scope: model.ScopeClub, ScopeID: club.ID, ActorID: admin.ID, Title: "job",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n, "actor is skipped")

	got, err := w.notify.Transfer(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.KindOpportunity, got[0].Kind)

	n, err = w.notify.FanOut(ctx, model.OutboxEvent{
		EventType: model.EventOpportunityCreated, Scope: model.ScopeBoard, ScopeID: board.ID, ActorID: admin.ID, Title: "event",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = w.notify.FanOut(ctx, model.OutboxEvent{EventType: "x", Scope: "planet", ScopeID: 1})
	assert.ErrorIs(t, err, pkg.ErrInvalidParam)
}

func TestFanOutDedupesRecipients(t *testing.T) {
	w := newWorld(t)
	admin := w.addUser(t, "admin", model.RoleAdmin)
	alice := w.addUser(t, "alice", model.RoleStudent)

	n, err := w.notify.FanOut(context.Background(), model.OutboxEvent{
		Scope: model.ScopeUsers, ActorID: admin.ID, Title: "x", UserIDs: []uint64{alice.ID, alice.ID, 0, admin.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBroadcastToEveryoneSkipsBanned(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	admin := w.addUser(t, "admin", model.RoleAdmin)
	var students []service.Actor
	for i := 0; i < 5; i++ {
		students = append(students, w.addUser(t, fmt.Sprintf("s%d", i), model.RoleStudent))
	}
	require.NoError(t, w.ban.Ban(ctx, admin.ID, students[4].ID, "spam"))

	assert.ErrorIs(t, w.notify.Broadcast(ctx, students[0], service.Broadcast{Title: "hi"}), pkg.ErrForbidden)
	assert.ErrorIs(t, w.notify.Broadcast(ctx, admin, service.Broadcast{Title: " "}), pkg.ErrInvalidParam)
	assert.ErrorIs(t, w.notify.Broadcast(ctx, admin, service.Broadcast{Title: "hi", Link: "javascript:alert(1)"}), pkg.ErrInvalidParam)

	require.NoError(t, w.notify.Broadcast(ctx, admin, service.Broadcast{Title: "exam week", Link: "/opportunities"}))
	assert.Equal(t, 1, w.relay(t))

	for i, s := range students {
		got, err := w.notify.Transfer(ctx, s.ID)
		require.NoError(t, err)
		if i == 4 {
			assert.Empty(t, got)
			continue
		}
		require.Len(t, got, 1, "student %d", i)
		assert.Equal(t, "exam week", got[0].Title)
		assert.Equal(t, "/opportunities", got[0].Link)
	}
	got, err := w.notify.Transfer(ctx, admin.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHandleMessageSkipsUndecodable(t *testing.T) {
	w := newWorld(t)
	assert.NoError(t, w.notify.HandleMessage(context.Background(), []byte("k"), []byte("{not json")))
}

func TestHandleMessageFansOut(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	admin := w.addUser(t, "admin", model.RoleAdmin)
	alice := w.addUser(t, "alice", model.RoleStudent)

	payload := fmt.Sprintf(`{"event_type":"announcement","scope":"users","actor_id":%d,"title":"t","user_ids":[%d]}`, admin.ID, alice.ID)
	require.NoError(t, w.notify.HandleMessage(ctx, []byte("users:0"), []byte(payload)))
	got, err := w.notify.Transfer(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

type fakeProducer struct {
	keys   []string
	values [][]byte
	err    error
}

func (p *fakeProducer) Send(_ context.Context, key string, value []byte) error {
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	p.values = append(p.values, value)
	return nil
}

func TestOutboxRelayerKafkaSender(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	admin := w.addUser(t, "admin", model.RoleAdmin)
	require.NoError(t, w.notify.Broadcast(ctx, admin, service.Broadcast{Title: "a"}))

	p := &fakeProducer{}
	r := service.NewOutboxRelayer(w.outbox, service.KafkaSender(p), 10, 3, time.Second)
	assert.Equal(t, 1, r.DrainOnce(ctx))
	assert.Equal(t, []string{"users:0"}, p.keys)
	assert.Equal(t, 0, r.DrainOnce(ctx), "sent rows are not relayed again")

	rows := w.outbox.All()
	require.Len(t, rows, 1)
	assert.EqualValues(t, model.OutboxSent, rows[0].Status)
}

func TestOutboxRelayerRetriesUntilMax(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	admin := w.addUser(t, "admin", model.RoleAdmin)
	require.NoError(t, w.notify.Broadcast(ctx, admin, service.Broadcast{Title: "a"}))

	p := &fakeProducer{err: errors.New("broker down")}
	r := service.NewOutboxRelayer(w.outbox, service.KafkaSender(p), 10, 2, time.Second)
	assert.Equal(t, 0, r.DrainOnce(ctx))
	assert.Equal(t, 0, r.DrainOnce(ctx))

	rows := w.outbox.All()
	require.Len(t, rows, 1)
	assert.EqualValues(t, model.OutboxFailed, rows[0].Status)
	assert.Equal(t, 2, rows[0].Retry)

	// retry budget exhausted: the row is no longer picked up
	p.err = nil
	assert.Equal(t, 0, r.DrainOnce(ctx))
	assert.Empty(t, p.keys)
}

func TestOutboxRelayerRunStopsOnCancel(t *testing.T) {
	w := newWorld(t)
	r := service.NewOutboxRelayer(w.outbox, service.DirectSender(w.notify), 10, 3, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relayer did not stop")
	}
}
