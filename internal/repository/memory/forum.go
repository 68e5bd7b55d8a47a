package memory

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"Campus_Community/internal/model"
	"Campus_Community/internal/pkg"
	"Campus_Community/internal/service"
)

type ForumRepository struct{ db *DB }

type ForumMemberRepository struct{ db *DB }

type PostRepository struct{ db *DB }

type PostLikeRepository struct{ db *DB }

type LikeCacheRepository struct{ db *DB }

var (
	_ service.ForumStore       = (*ForumRepository)(nil)
	_ service.ForumMemberStore = (*ForumMemberRepository)(nil)
	_ service.PostStore        = (*PostRepository)(nil)
	_ service.PostLikeStore    = (*PostLikeRepository)(nil)
	_ service.LikeCache        = (*LikeCacheRepository)(nil)
)

func NewForumRepository(db *DB) *ForumRepository { return &ForumRepository{db: db} }
func NewForumMemberRepository(db *DB) *ForumMemberRepository { return &ForumMemberRepository{db: db} }
func NewPostRepository(db *DB) *PostRepository { return &PostRepository{db: db} }
func NewPostLikeRepository(db *DB) *PostLikeRepository { return &PostLikeRepository{db: db} }
func NewLikeCacheRepository(db *DB) *LikeCacheRepository { return &LikeCacheRepository{db: db} }

func (r *ForumRepository) Create(_ context.Context, f *model.Forum) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	f.ID = r.db.nextID()
	f.CreatedAt = r.db.now()
	f.UpdatedAt = f.CreatedAt
	cp := *f
	r.db.forums[f.ID] = &cp
	r.db.joinLocked(&model.ForumMember{ForumID: f.ID, UserID: f.CreatedBy, Role: model.ForumRoleModerator})
	return nil
}

func (r *ForumRepository) FindByID(_ context.Context, id uint64) (*model.Forum, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if f, ok := r.db.forums[id]; ok && f.Status == model.ForumActive {
		cp := *f
		return &cp, nil
	}
	return nil, pkg.ErrNotFound
}

func (r *ForumRepository) List(_ context.Context, scope model.Scope, offset, limit int) ([]model.Forum, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	keys := sortedKeys(r.db.forums)
	list := []model.Forum{}
	for i := len(keys) - 1; i >= 0; i-- {
		f := r.db.forums[keys[i]]
		if f.Status == model.ForumActive && matchScope(f.ClubID, f.BoardID, scope) {
			list = append(list, *f)
		}
	}
	return window(list, offset, limit), nil
}

func (r *ForumRepository) SoftDelete(_ context.Context, id uint64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if f, ok := r.db.forums[id]; ok {
		f.Status = model.ForumDeleted
	}
	return nil
}

func (db *DB) joinLocked(m *model.ForumMember) {
	key := [2]uint64{m.ForumID, m.UserID}
	if _, ok := db.members[key]; ok {
		return
	}
	m.ID = db.nextID()
	m.CreatedAt = db.now()
	m.UpdatedAt = m.CreatedAt
	cp := *m
	db.members[key] = &cp
}

func (r *ForumMemberRepository) Join(_ context.Context, m *model.ForumMember) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.joinLocked(m)
	return nil
}

func (r *ForumMemberRepository) Leave(_ context.Context, forumID, userID uint64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.members, [2]uint64{forumID, userID})
	return nil
}

func (r *ForumMemberRepository) Find(_ context.Context, forumID, userID uint64) (*model.ForumMember, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if m, ok := r.db.members[[2]uint64{forumID, userID}]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, pkg.ErrNotFound
}

func (r *ForumMemberRepository) members(forumID uint64) []model.ForumMember {
	list := []model.ForumMember{}
	for _, m := range r.db.members {
		if m.ForumID == forumID {
			list = append(list, *m)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func (r *ForumMemberRepository) List(_ context.Context, forumID uint64, offset, limit int) ([]model.ForumMember, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return window(r.members(forumID), offset, limit), nil
}

func (r *ForumMemberRepository) MemberIDs(_ context.Context, forumID uint64) ([]uint64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var ids []uint64
	for _, m := range r.members(forumID) {
		ids = append(ids, m.UserID)
	}
	return ids, nil
}

// insertOutboxLocked 与业务记录在同一把锁内写入，对应 MySQL 的同事务
func (db *DB) insertOutboxLocked(ev *model.OutboxEvent) error {
	if ev.EventTime.IsZero() {
		ev.EventTime = db.now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ob := &model.NotificationOutbox{
		ID:        db.nextID(),
		EventType: ev.EventType,
		Scope:     ev.Scope,
		ScopeID:   ev.ScopeID,
		ActorID:   ev.ActorID,
		RefID:     ev.RefID,
		Payload:   string(payload),
		Status:    model.OutboxPending,
		CreatedAt: db.now(),
	}
	ob.UpdatedAt = ob.CreatedAt
	db.outbox[ob.ID] = ob
	return nil
}

func (r *PostRepository) CreateWithEvent(_ context.Context, post *model.Post, ev *model.OutboxEvent) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	post.ID = r.db.nextID()
	post.CreatedAt = r.db.now()
	post.UpdatedAt = post.CreatedAt
	cp := *post
	r.db.posts[post.ID] = &cp
	if ev == nil {
		return nil
	}
	ev.RefID = post.ID
	return r.db.insertOutboxLocked(ev)
}

func (r *PostRepository) FindByID(_ context.Context, id uint64) (*model.Post, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if p, ok := r.db.posts[id]; ok && p.Status == model.PostNormal {
		cp := *p
		return &cp, nil
	}
	return nil, pkg.ErrNotFound
}

// newestFirst 按 (created_at DESC, id DESC) 排序
func (r *PostRepository) newestFirst(forumID uint64) []model.Post {
	list := []model.Post{}
	for _, p := range r.db.posts {
		if p.ForumID == forumID && p.Status == model.PostNormal {
			list = append(list, *p)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
	return list
}

func (r *PostRepository) ListByForum(_ context.Context, forumID uint64, offset, limit int) ([]model.Post, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return window(r.newestFirst(forumID), offset, limit), nil
}

func (r *PostRepository) ListByForumCursor(_ context.Context, forumID, lastID uint64, lastCreatedAt int64, limit int) ([]model.Post, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	list := []model.Post{}
	for _, p := range r.newestFirst(forumID) {
		ts := p.CreatedAt.Unix()
		if lastCreatedAt > 0 && !(ts < lastCreatedAt || (ts == lastCreatedAt && p.ID < lastID)) {
			continue
		}
		list = append(list, p)
	}
	return window(list, 0, limit), nil
}

func (r *PostRepository) SoftDelete(_ context.Context, id uint64) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if p, ok := r.db.posts[id]; ok && p.Status == model.PostNormal {
		p.Status = model.PostDeleted
		return 1, nil
	}
	return 0, nil
}

func (r *PostLikeRepository) Like(_ context.Context, userID, postID uint64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.posts[postID]
	if !ok {
		return false, pkg.ErrNotFound
	}
	key := [2]uint64{userID, postID}
	if _, liked := r.db.likes[key]; liked {
		return false, nil
	}
	r.db.likes[key] = struct{}{}
	p.LikeCount++
	return true, nil
}

func (r *PostLikeRepository) Unlike(_ context.Context, userID, postID uint64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := [2]uint64{userID, postID}
	if _, liked := r.db.likes[key]; !liked {
		return false, nil
	}
	delete(r.db.likes, key)
	if p, ok := r.db.posts[postID]; ok && p.LikeCount > 0 {
		p.LikeCount--
	}
	return true, nil
}

func (r *PostLikeRepository) IsLiked(_ context.Context, userID, postID uint64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	_, liked := r.db.likes[[2]uint64{userID, postID}]
	return liked, nil
}

func (r *PostLikeRepository) GetLikeCount(_ context.Context, postID uint64) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.posts[postID]
	if !ok {
		return 0, pkg.ErrNotFound
	}
	return p.LikeCount, nil
}

func (r *LikeCacheRepository) AddLike(_ context.Context, userID, postID uint64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	set, ok := r.db.likeSets[postID]
	if !ok {
		set = make(map[uint64]struct{})
		r.db.likeSets[postID] = set
	}
	set[userID] = struct{}{}
	if n, ok := r.db.likeCounts[postID]; ok {
		r.db.likeCounts[postID] = n + 1
	}
	return nil
}

func (r *LikeCacheRepository) RemoveLike(_ context.Context, userID, postID uint64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.likeSets[postID], userID)
	if n, ok := r.db.likeCounts[postID]; ok && n > 0 {
		r.db.likeCounts[postID] = n - 1
	}
	return nil
}

func (r *LikeCacheRepository) IsLikedCached(_ context.Context, userID, postID uint64) (bool, bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	set, ok := r.db.likeSets[postID]
	if !ok {
		return false, false, nil
	}
	_, liked := set[userID]
	return liked, true, nil
}

func (r *LikeCacheRepository) GetLikeCountCached(_ context.Context, postID uint64) (int64, bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n, ok := r.db.likeCounts[postID]
	return n, ok, nil
}

func (r *LikeCacheRepository) SetLikeCount(_ context.Context, postID uint64, cnt int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.likeCounts[postID] = cnt
	return nil
}

func (r *LikeCacheRepository) WarmIsLiked(_ context.Context, userID, postID uint64, liked bool) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	set, ok := r.db.likeSets[postID]
	if !ok {
		return
	}
	if liked {
		set[userID] = struct{}{}
	} else {
		delete(set, userID)
	}
}

func (r *LikeCacheRepository) DeleteCount(_ context.Context, postID uint64, _ ...time.Duration) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.likeCounts, postID)
	return nil
}
