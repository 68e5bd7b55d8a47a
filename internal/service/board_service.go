package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"Campus_Community/internal/model"
	"Campus_Community/internal/pkg"
)

type BoardService struct {
	repo     BoardStore
	pors     *PORService
	uploader *ImageUploader
}

func NewBoardService(repo BoardStore, pors *PORService, uploader *ImageUploader) *BoardService {
	return &BoardService{repo: repo, pors: pors, uploader: uploader}
}

type UpdateOrg struct {
	Name        *string
	Description *string
}

func (u UpdateOrg) fields() (map[string]any, error) {
	fields := map[string]any{}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return nil, pkg.ErrInvalidParam
		}
		fields["name"] = name
	}
	if u.Description != nil {
		fields["description"] = *u.Description
	}
	return fields, nil
}

func (s *BoardService) Create(ctx context.Context, actor Actor, name, description string) (*model.Board, error) {
	if !actor.IsAdmin() {
		return nil, pkg.ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkg.ErrInvalidParam
	}
	board := &model.Board{Name: name, Description: description, CreatedBy: actor.ID}
	if err := s.repo.Create(ctx, board); err != nil {
		return nil, err
	}
	return board, nil
}

func (s *BoardService) Get(ctx context.Context, id uint64) (*model.Board, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *BoardService) List(ctx context.Context, page, size int) ([]model.Board, error) {
	offset, limit := normalizePage(page, size)
	return s.repo.List(ctx, offset, limit)
}

func (s *BoardService) Update(ctx context.Context, actor Actor, id uint64, req UpdateOrg) (*model.Board, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.pors.Require(ctx, actor, model.Scope{BoardID: id}, model.CapAny); err != nil {
		return nil, err
	}
	fields, err := req.fields()
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		if err = s.repo.Update(ctx, id, fields); err != nil {
			return nil, err
		}
	}
	return s.repo.FindByID(ctx, id)
}

func (s *BoardService) Delete(ctx context.Context, actor Actor, id uint64) error {
	if !actor.IsAdmin() {
		return pkg.ErrForbidden
	}
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, pkg.ErrConflict) {
		return fmt.Errorf("%w: board still owns clubs", err)
	}
	return err
}

func (s *BoardService) SetImage(ctx context.Context, actor Actor, id uint64, fh *multipart.FileHeader) (string, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return "", err
	}
	if err := s.pors.Require(ctx, actor, model.Scope{BoardID: id}, model.CapAny); err != nil {
		return "", err
	}
	url, err := s.uploader.Save(fh, fmt.Sprintf("board-%d", id))
	if err != nil {
		return "", err
	}
	return url, s.repo.Update(ctx, id, map[string]any{"image": url})
}
