package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"Campus_Community/internal/model"
	"Campus_Community/internal/pkg"
)

type PORService struct {
	repo   PORStore
	clubs  ClubStore
	boards BoardStore
	users  UserStore
}

func NewPORService(repo PORStore, clubs ClubStore, boards BoardStore, users UserStore) *PORService {
	return &PORService{repo: repo, clubs: clubs, boards: boards, users: users}
}

type GrantPOR struct {
	UserID           uint64
	Scope            model.Scope
	Position         string
	CanPost          bool
	CanManageMembers bool
	CanManageForums  bool
}

// HasPrivilege 管理员直接通过；否则看该 scope 上的 POR，club 还会继承所属 board 的 POR
func (s *PORService) HasPrivilege(ctx context.Context, actor Actor, scope model.Scope, capability string) (bool, error) {
	if actor.IsAdmin() {
		return true, nil
	}
	if err := scope.Validate(); err != nil {
		return false, nil
	}
	ok, err := s.allows(ctx, actor.ID, scope, capability)
	if err != nil || ok {
		return ok, err
	}
	if scope.ClubID == 0 {
		return false, nil
	}
	club, err := s.clubs.FindByID(ctx, scope.ClubID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return s.allows(ctx, actor.ID, model.Scope{BoardID: club.BoardID}, capability)
}

func (s *PORService) allows(ctx context.Context, userID uint64, scope model.Scope, capability string) (bool, error) {
	por, err := s.repo.Find(ctx, userID, scope)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return por.Allows(capability), nil
}

// Require 无权限时返回 pkg.ErrForbidden
func (s *PORService) Require(ctx context.Context, actor Actor, scope model.Scope, capability string) error {
	ok, err := s.HasPrivilege(ctx, actor, scope, capability)
	if err != nil {
		return err
	}
	if !ok {
		return pkg.ErrForbidden
	}
	return nil
}

// ScopeExists 校验 club/board 是否存在
func (s *PORService) ScopeExists(ctx context.Context, scope model.Scope) error {
	return scopeExists(ctx, s.clubs, s.boards, scope)
}

func scopeExists(ctx context.Context, clubs ClubStore, boards BoardStore, scope model.Scope) error {
	if err := scope.Validate(); err != nil {
		return fmt.Errorf("%w: %v", pkg.ErrInvalidParam, err)
	}
	var err error
	if scope.ClubID != 0 {
		_, err = clubs.FindByID(ctx, scope.ClubID)
	} else {
		_, err = boards.FindByID(ctx, scope.BoardID)
	}
	return err
}

// requireGrantor 只有管理员能任免 board 的 POR；club 的 POR 还可由所属 board 上有成员管理权的 POR 任免
func (s *PORService) requireGrantor(ctx context.Context, actor Actor, scope model.Scope) error {
	if actor.IsAdmin() {
		return nil
	}
	if scope.ClubID == 0 {
		return pkg.ErrForbidden
	}
	club, err := s.clubs.FindByID(ctx, scope.ClubID)
	if err != nil {
		return err
	}
	ok, err := s.allows(ctx, actor.ID, model.Scope{BoardID: club.BoardID}, model.CapManageMembers)
	if err != nil {
		return err
	}
	if !ok {
		return pkg.ErrForbidden
	}
	return nil
}

func (s *PORService) Grant(ctx context.Context, actor Actor, req GrantPOR) (*model.PrivilegeType, error) {
	req.Position = strings.TrimSpace(req.Position)
	if req.UserID == 0 || req.Position == "" {
		return nil, pkg.ErrInvalidParam
	}
	if err := s.ScopeExists(ctx, req.Scope); err != nil {
		return nil, err
	}
	if err := s.requireGrantor(ctx, actor, req.Scope); err != nil {
		return nil, err
	}
	if _, err := s.users.FindByID(ctx, req.UserID); err != nil {
		return nil, err
	}
	por := &model.PrivilegeType{
		UserID:           req.UserID,
		ClubID:           req.Scope.ClubID,
		BoardID:          req.Scope.BoardID,
		Position:         req.Position,
		CanPost:          req.CanPost,
		CanManageMembers: req.CanManageMembers,
		CanManageForums:  req.CanManageForums,
	}
	if err := s.repo.Create(ctx, por); err != nil {
		return nil, err
	}
	return por, nil
}

type UpdatePOR struct {
	Position         *string
	CanPost          *bool
	CanManageMembers *bool
	CanManageForums  *bool
}

func (s *PORService) Update(ctx context.Context, actor Actor, id uint64, req UpdatePOR) (*model.PrivilegeType, error) {
	por, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireGrantor(ctx, actor, por.Scope()); err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if req.Position != nil {
		if strings.TrimSpace(*req.Position) == "" {
			return nil, pkg.ErrInvalidParam
		}
		fields["position"] = strings.TrimSpace(*req.Position)
	}
	if req.CanPost != nil {
		fields["can_post"] = *req.CanPost
	}
	if req.CanManageMembers != nil {
		fields["can_manage_members"] = *req.CanManageMembers
	}
	if req.CanManageForums != nil {
		fields["can_manage_forums"] = *req.CanManageForums
	}
	if len(fields) == 0 {
		return por, nil
	}
	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

func (s *PORService) Revoke(ctx context.Context, actor Actor, id uint64) error {
	por, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireGrantor(ctx, actor, por.Scope()); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *PORService) ListByScope(ctx context.Context, scope model.Scope) ([]model.PrivilegeType, error) {
	if err := scope.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrInvalidParam, err)
	}
	return s.repo.ListByScope(ctx, scope)
}

func (s *PORService) ListByUser(ctx context.Context, userID uint64) ([]model.PrivilegeType, error) {
	return s.repo.ListByUser(ctx, userID)
}
