package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"Campus_Community/internal/model"
	"Campus_Community/internal/pkg"
)

type OpportunityService struct {
	repo OpportunityStore
	pors *PORService
}

func NewOpportunityService(repo OpportunityStore, pors *PORService) *OpportunityService {
	return &OpportunityService{repo: repo, pors: pors}
}

type CreateOpportunity struct {
	Scope       model.Scope
	Title       string
	Description string
	Kind        string
	Link        string
	Deadline    *time.Time
}

type UpdateOpportunity struct {
	Title       *string
	Description *string
	Kind        *string
	Link        *string
	Deadline    *time.Time
}

func validKind(kind string) bool {
	return kind == model.OpportunityEvent || kind == model.OpportunityJob
}

// validLink 外部报名链接必须是绝对的 http(s) 地址
func validLink(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Create 需要 can_post；订阅者的通知事件与机会同事务写入 outbox
func (s *OpportunityService) Create(ctx context.Context, actor Actor, req CreateOpportunity) (*model.Opportunity, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || !validKind(req.Kind) {
		return nil, pkg.ErrInvalidParam
	}
	if !validLink(req.Link) {
		return nil, fmt.Errorf("%w: link must be an absolute http(s) url", pkg.ErrInvalidParam)
	}
	if err := s.pors.ScopeExists(ctx, req.Scope); err != nil {
		return nil, err
	}
	if err := s.pors.Require(ctx, actor, req.Scope, model.CapPost); err != nil {
		return nil, err
	}

	o := &model.Opportunity{
		ClubID:      req.Scope.ClubID,
		BoardID:     req.Scope.BoardID,
		CreatedBy:   actor.ID,
		Title:       req.Title,
		Description: req.Description,
		Kind:        req.Kind,
		Link:        req.Link,
		Deadline:    req.Deadline,
	}
	ev := &model.OutboxEvent{
		EventType: model.EventOpportunityCreated,
		Scope:     req.Scope.Kind(),
		ScopeID:   req.Scope.ID(),
		ActorID:   actor.ID,
		Title:     "New " + req.Kind + ": " + req.Title,
		Body:      preview(req.Description, postPreviewLen),
		Link:      req.Link,
		EventTime: time.Now(),
	}
	if err := s.repo.CreateWithEvent(ctx, o, ev); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *OpportunityService) Get(ctx context.Context, id uint64) (*model.Opportunity, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *OpportunityService) List(ctx context.Context, scope model.Scope, kind string, page, size int) ([]model.Opportunity, error) {
	if scope.ClubID != 0 && scope.BoardID != 0 {
		return nil, fmt.Errorf("%w: %v", pkg.ErrInvalidParam, model.ErrInvalidScope)
	}
	if kind != "" && !validKind(kind) {
		return nil, pkg.ErrInvalidParam
	}
	offset, limit := normalizePage(page, size)
	return s.repo.List(ctx, model.OpportunityFilter{Scope: scope, Kind: kind, Offset: offset, Limit: limit})
}

func (s *OpportunityService) Update(ctx context.Context, actor Actor, id uint64, req UpdateOpportunity) (*model.Opportunity, error) {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err = s.pors.Require(ctx, actor, o.Scope(), model.CapPost); err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, pkg.ErrInvalidParam
		}
		fields["title"] = title
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Kind != nil {
		if !validKind(*req.Kind) {
			return nil, pkg.ErrInvalidParam
		}
		fields["kind"] = *req.Kind
	}
	if req.Link != nil {
		if !validLink(*req.Link) {
			return nil, fmt.Errorf("%w: link must be an absolute http(s) url", pkg.ErrInvalidParam)
		}
		fields["link"] = *req.Link
	}
	if req.Deadline != nil {
		fields["deadline"] = *req.Deadline
	}
	if len(fields) == 0 {
		return o, nil
	}
	if err = s.repo.Update(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

func (s *OpportunityService) Delete(ctx context.Context, actor Actor, id uint64) error {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err = s.pors.Require(ctx, actor, o.Scope(), model.CapPost); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
