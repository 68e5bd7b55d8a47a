package service

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"

	"Campus_Community/internal/model"
	"Campus_Community/internal/pkg"
)

type ClubService struct {
	repo     ClubStore
	boards   BoardStore
	pors     *PORService
	uploader *ImageUploader
}

func NewClubService(repo ClubStore, boards BoardStore, pors *PORService, uploader *ImageUploader) *ClubService {
	return &ClubService{repo: repo, boards: boards, pors: pors, uploader: uploader}
}

func (s *ClubService) Create(ctx context.Context, actor Actor, boardID uint64, name, description string) (*model.Club, error) {
	if !actor.IsAdmin() {
		return nil, pkg.ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" || boardID == 0 {
		return nil, pkg.ErrInvalidParam
	}
	if _, err := s.boards.FindByID(ctx, boardID); err != nil {
		return nil, err
	}
	club := &model.Club{BoardID: boardID, Name: name, Description: description, CreatedBy: actor.ID}
	if err := s.repo.Create(ctx, club); err != nil {
		return nil, err
	}
	return club, nil
}

func (s *ClubService) Get(ctx context.Context, id uint64) (*model.Club, error) {
	return s.repo.FindByID(ctx, id)
}

// List boardID 为 0 时不过滤
func (s *ClubService) List(ctx context.Context, boardID uint64, page, size int) ([]model.Club, error) {
	offset, limit := normalizePage(page, size)
	return s.repo.List(ctx, boardID, offset, limit)
}

func (s *ClubService) Update(ctx context.Context, actor Actor, id uint64, req UpdateOrg) (*model.Club, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.pors.Require(ctx, actor, model.Scope{ClubID: id}, model.CapAny); err != nil {
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

func (s *ClubService) Delete(ctx context.Context, actor Actor, id uint64) error {
	if !actor.IsAdmin() {
		return pkg.ErrForbidden
	}
	return s.repo.Delete(ctx, id)
}

func (s *ClubService) SetImage(ctx context.Context, actor Actor, id uint64, fh *multipart.FileHeader) (string, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return "", err
	}
	if err := s.pors.Require(ctx, actor, model.Scope{ClubID: id}, model.CapAny); err != nil {
		return "", err
	}
	url, err := s.uploader.Save(fh, fmt.Sprintf("club-%d", id))
	if err != nil {
		return "", err
	}
	return url, s.repo.Update(ctx, id, map[string]any{"image": url})
}
