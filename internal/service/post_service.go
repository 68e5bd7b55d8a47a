package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"Campus_Community/internal/model"
	"Campus_Community/internal/pkg"
)

const postPreviewLen = 80

type PostService struct {
	repo   PostStore
	forums *ForumService
}

func NewPostService(repo PostStore, forums *ForumService) *PostService {
	return &PostService{repo: repo, forums: forums}
}

// CreatePost 私有论坛仅成员可发帖；公开论坛自动加入。帖子和通知事件同事务写入
func (s *PostService) CreatePost(ctx context.Context, actor Actor, forumID uint64, content string) (*model.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: content required", pkg.ErrInvalidParam)
	}
	forum, err := s.forums.Get(ctx, forumID)
	if err != nil {
		return nil, err
	}

	// 判断是否是 forum 成员
	ok, err := s.forums.IsMember(ctx, forumID, actor.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		if !forum.Public {
			return nil, fmt.Errorf("%w: not a member", pkg.ErrForbidden)
		}
		if err = s.forums.Join(ctx, actor, forumID, actor.ID); err != nil {
			return nil, err
		}
	}

	post := &model.Post{
		ForumID:  forumID,
		AuthorID: actor.ID,
		Content:  content,
	}
	ev := &model.OutboxEvent{
		EventType: model.EventForumPostCreated,
		Scope:     model.ScopeForum,
		ScopeID:   forumID,
		ActorID:   actor.ID,
		Title:     "New post in " + forum.Title,
		Body:      preview(content, postPreviewLen),
		Link:      fmt.Sprintf("/forums/%d", forumID),
		EventTime: time.Now(),
	}
	if err := s.repo.CreateWithEvent(ctx, post, ev); err != nil {
		return nil, err
	}
	return post, nil
}

// ListByForum 论坛帖子列表
func (s *PostService) ListByForum(ctx context.Context, actor Actor, forumID uint64, page, size int) ([]model.Post, error) {
	if err := s.readable(ctx, actor, forumID); err != nil {
		return nil, err
	}
	offset, limit := normalizePage(page, size)
	return s.repo.ListByForum(ctx, forumID, offset, limit)
}

// ListByForumCursor 游标分页：首次不传 lastID/lastCreatedAt（或传 0）
// 返回 nextLastID/nextLastCreatedAt 供下一页使用
func (s *PostService) ListByForumCursor(ctx context.Context, actor Actor, forumID, lastID uint64, lastCreatedAt int64, size int) ([]model.Post, uint64, int64, error) {
	if err := s.readable(ctx, actor, forumID); err != nil {
		return nil, 0, 0, err
	}
	if size <= 0 || size > 50 {
		size = 20
	}
	list, err := s.repo.ListByForumCursor(ctx, forumID, lastID, lastCreatedAt, size)
	if err != nil {
		return nil, 0, 0, err
	}
	var nextID uint64
	var nextTS int64
	if len(list) > 0 {
		last := list[len(list)-1]
		nextID = last.ID
		nextTS = last.CreatedAt.Unix()
	}
	return list, nextID, nextTS, nil
}

func (s *PostService) readable(ctx context.Context, actor Actor, forumID uint64) error {
	forum, err := s.forums.Get(ctx, forumID)
	if err != nil {
		return err
	}
	return s.forums.CanRead(ctx, actor, forum)
}

// DeletePost 幂等删除：成功/已删除均返回 nil；仅无权限时报错
func (s *PostService) DeletePost(ctx context.Context, actor Actor, postID uint64) error {
	post, err := s.repo.FindByID(ctx, postID)
	if err != nil {
		// 已删除或不存在，视为幂等成功
		if errors.Is(err, pkg.ErrNotFound) {
			return nil
		}
		return err
	}
	if post.AuthorID != actor.ID {
		forum, err := s.forums.Get(ctx, post.ForumID)
		if err != nil {
			return err
		}
		ok, err := s.forums.CanModerate(ctx, actor, forum)
		if err != nil {
			return err
		}
		if !ok {
			return pkg.ErrForbidden
		}
	}
	_, err = s.repo.SoftDelete(ctx, postID)
	return err
}

func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
