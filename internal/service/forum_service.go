package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"Campus_Community/internal/model"
	"Campus_Community/internal/pkg"
)

type ForumService struct {
	repo    ForumStore
	members ForumMemberStore
	pors    *PORService
}

func NewForumService(repo ForumStore, members ForumMemberStore, pors *PORService) *ForumService {
	return &ForumService{repo: repo, members: members, pors: pors}
}

type CreateForum struct {
	Scope       model.Scope
	Title       string
	Description string
	Public      bool
}

// Create 需要该 club/board 上 can_manage_forums 的 POR；创建者自动成为版主
func (s *ForumService) Create(ctx context.Context, actor Actor, req CreateForum) (*model.Forum, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, pkg.ErrInvalidParam
	}
	if err := s.pors.ScopeExists(ctx, req.Scope); err != nil {
		return nil, err
	}
	if err := s.pors.Require(ctx, actor, req.Scope, model.CapManageForums); err != nil {
		return nil, err
	}
	forum := &model.Forum{
		ClubID:      req.Scope.ClubID,
		BoardID:     req.Scope.BoardID,
		Title:       req.Title,
		Description: req.Description,
		Public:      req.Public,
		CreatedBy:   actor.ID,
	}
	if err := s.repo.Create(ctx, forum); err != nil {
		return nil, err
	}
	return forum, nil
}

func (s *ForumService) Get(ctx context.Context, id uint64) (*model.Forum, error) {
	return s.repo.FindByID(ctx, id)
}

// List 不带 club_id/board_id 时列出全部
func (s *ForumService) List(ctx context.Context, scope model.Scope, page, size int) ([]model.Forum, error) {
	if scope.ClubID != 0 && scope.BoardID != 0 {
		return nil, fmt.Errorf("%w: %v", pkg.ErrInvalidParam, model.ErrInvalidScope)
	}
	offset, limit := normalizePage(page, size)
	return s.repo.List(ctx, scope, offset, limit)
}

func (s *ForumService) Delete(ctx context.Context, actor Actor, id uint64) error {
	forum, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil
		}
		return err
	}
	if err = s.pors.Require(ctx, actor, forum.Scope(), model.CapManageForums); err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, id)
}

// CanModerate 版主或持有 can_manage_forums 的 POR
func (s *ForumService) CanModerate(ctx context.Context, actor Actor, forum *model.Forum) (bool, error) {
	m, err := s.members.Find(ctx, forum.ID, actor.ID)
	switch {
	case err == nil && m.Role == model.ForumRoleModerator:
		return true, nil
	case err != nil && !errors.Is(err, pkg.ErrNotFound):
		return false, err
	}
	return s.pors.HasPrivilege(ctx, actor, forum.Scope(), model.CapManageForums)
}

func (s *ForumService) IsMember(ctx context.Context, forumID, userID uint64) (bool, error) {
	_, err := s.members.Find(ctx, forumID, userID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, pkg.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// CanRead 公开论坛所有人可读；私有论坛仅成员和管理者
func (s *ForumService) CanRead(ctx context.Context, actor Actor, forum *model.Forum) error {
	if forum.Public {
		return nil
	}
	ok, err := s.IsMember(ctx, forum.ID, actor.ID)
	if err != nil || ok {
		return err
	}
	if ok, err = s.CanModerate(ctx, actor, forum); err != nil {
		return err
	}
	if !ok {
		return pkg.ErrForbidden
	}
	return nil
}

// Join userID 为 0 或等于自己时是自助加入；否则为管理者拉人
func (s *ForumService) Join(ctx context.Context, actor Actor, forumID, userID uint64) error {
	forum, err := s.repo.FindByID(ctx, forumID)
	if err != nil {
		return err
	}
	if userID == 0 {
		userID = actor.ID
	}
	if userID != actor.ID || !forum.Public {
		ok, err := s.CanModerate(ctx, actor, forum)
		if err != nil {
			return err
		}
		if !ok {
			return pkg.ErrForbidden
		}
	}
	return s.members.Join(ctx, &model.ForumMember{ForumID: forumID, UserID: userID, Role: model.ForumRoleMember})
}

func (s *ForumService) Leave(ctx context.Context, actor Actor, forumID uint64) error {
	if _, err := s.repo.FindByID(ctx, forumID); err != nil {
		return err
	}
	return s.members.Leave(ctx, forumID, actor.ID)
}

func (s *ForumService) Kick(ctx context.Context, actor Actor, forumID, userID uint64) error {
	forum, err := s.repo.FindByID(ctx, forumID)
	if err != nil {
		return err
	}
	ok, err := s.CanModerate(ctx, actor, forum)
	if err != nil {
		return err
	}
	if !ok {
		return pkg.ErrForbidden
	}
	return s.members.Leave(ctx, forumID, userID)
}

func (s *ForumService) Members(ctx context.Context, actor Actor, forumID uint64, page, size int) ([]model.ForumMember, error) {
	forum, err := s.repo.FindByID(ctx, forumID)
	if err != nil {
		return nil, err
	}
	if err = s.CanRead(ctx, actor, forum); err != nil {
		return nil, err
	}
	offset, limit := normalizePage(page, size)
	return s.members.List(ctx, forumID, offset, limit)
}
