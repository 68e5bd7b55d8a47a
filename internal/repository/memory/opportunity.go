package memory

import (
	"context"
	"sort"
	"time"

	"Campus_Community/internal/model"
	"Campus_Community/internal/pkg"
	"Campus_Community/internal/service"
)

type OpportunityRepository struct{ db *DB }

var _ service.OpportunityStore = (*OpportunityRepository)(nil)

func NewOpportunityRepository(db *DB) *OpportunityRepository { return &OpportunityRepository{db: db} }

func (r *OpportunityRepository) CreateWithEvent(_ context.Context, o *model.Opportunity, ev *model.OutboxEvent) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o.ID = r.db.nextID()
	o.CreatedAt = r.db.now()
	o.UpdatedAt = o.CreatedAt
	cp := *o
	r.db.opps[o.ID] = &cp
	if ev == nil {
		return nil
	}
	ev.RefID = o.ID
	return r.db.insertOutboxLocked(ev)
}

func (r *OpportunityRepository) FindByID(_ context.Context, id uint64) (*model.Opportunity, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if o, ok := r.db.opps[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, pkg.ErrNotFound
}

func (r *OpportunityRepository) List(_ context.Context, f model.OpportunityFilter) ([]model.Opportunity, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	list := []model.Opportunity{}
	for _, o := range r.db.opps {
		if !matchScope(o.ClubID, o.BoardID, f.Scope) || (f.Kind != "" && o.Kind != f.Kind) {
			continue
		}
		list = append(list, *o)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
	return window(list, f.Offset, f.Limit), nil
}

func (r *OpportunityRepository) Update(_ context.Context, id uint64, fields map[string]any) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	o, ok := r.db.opps[id]
	if !ok {
		return pkg.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "title":
			o.Title = v.(string)
		case "description":
			o.Description = v.(string)
		case "kind":
			o.Kind = v.(string)
		case "link":
			o.Link = v.(string)
		case "deadline":
			d := v.(time.Time)
			o.Deadline = &d
		}
	}
	o.UpdatedAt = r.db.now()
	return nil
}

func (r *OpportunityRepository) Delete(_ context.Context, id uint64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.opps, id)
	return nil
}
