// Package memory provides in-process implementations of the service storage
// contracts. Tests use it in place of MySQL and redis.
package memory

import (
	"sort"
	"sync"
	"time"

	"Campus_Community/internal/model"
)

type (
	DB struct {
		mu  sync.Mutex
		seq uint64
		now func() time.Time

		users   map[uint64]*model.User
		tokens  map[uint64]string
		codes   map[string]string
		bans    map[uint64]model.BanStatus
		locks   map[string]lockEntry
		boards  map[uint64]*model.Board
		clubs   map[uint64]*model.Club
		pors    map[uint64]*model.PrivilegeType
		forums  map[uint64]*model.Forum
		members map[[2]uint64]*model.ForumMember
		posts   map[uint64]*model.Post
		likes   map[[2]uint64]struct{}
		opps    map[uint64]*model.Opportunity
		subs    map[subKey]*model.Subscription
		notifs  map[uint64]*model.Notification
		outbox  map[uint64]*model.NotificationOutbox

		likeSets   map[uint64]map[uint64]struct{}
		likeCounts map[uint64]int64
	}

	lockEntry struct {
		token   string
		expires time.Time
	}

	subKey struct {
		userID, clubID, boardID uint64
	}
)

func Open() *DB {
	return &DB{
		now:        time.Now,
		users:      make(map[uint64]*model.User),
		tokens:     make(map[uint64]string),
		codes:      make(map[string]string),
		bans:       make(map[uint64]model.BanStatus),
		locks:      make(map[string]lockEntry),
		boards:     make(map[uint64]*model.Board),
		clubs:      make(map[uint64]*model.Club),
		pors:       make(map[uint64]*model.PrivilegeType),
		forums:     make(map[uint64]*model.Forum),
		members:    make(map[[2]uint64]*model.ForumMember),
		posts:      make(map[uint64]*model.Post),
		likes:      make(map[[2]uint64]struct{}),
		opps:       make(map[uint64]*model.Opportunity),
		subs:       make(map[subKey]*model.Subscription),
		notifs:     make(map[uint64]*model.Notification),
		outbox:     make(map[uint64]*model.NotificationOutbox),
		likeSets:   make(map[uint64]map[uint64]struct{}),
		likeCounts: make(map[uint64]int64),
	}
}

// SetClock overrides time.Now for records created afterwards.
func (db *DB) SetClock(now func() time.Time) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.now = now
}

// nextID 调用方需持有锁
func (db *DB) nextID() uint64 {
	db.seq++
	return db.seq
}

func sortedKeys[V any](m map[uint64]V) []uint64 {
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func window[T any](list []T, offset, limit int) []T {
	if offset >= len(list) {
		return []T{}
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

func matchScope(clubID, boardID uint64, scope model.Scope) bool {
	if scope.ClubID != 0 && clubID != scope.ClubID {
		return false
	}
	if scope.BoardID != 0 && boardID != scope.BoardID {
		return false
	}
	return true
}
