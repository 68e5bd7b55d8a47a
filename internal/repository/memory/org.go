package memory

import (
	"context"
	"sort"

	"Campus_Community/internal/model"
	"Campus_Community/internal/pkg"
	"Campus_Community/internal/service"
)

type BoardRepository struct{ db *DB }

type ClubRepository struct{ db *DB }

type PORRepository struct{ db *DB }

var (
	_ service.BoardStore = (*BoardRepository)(nil)
	_ service.ClubStore  = (*ClubRepository)(nil)
	_ service.PORStore   = (*PORRepository)(nil)
)

func NewBoardRepository(db *DB) *BoardRepository { return &BoardRepository{db: db} }
func NewClubRepository(db *DB) *ClubRepository { return &ClubRepository{db: db} }
func NewPORRepository(db *DB) *PORRepository { return &PORRepository{db: db} }

func (r *BoardRepository) Create(_ context.Context, b *model.Board) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, x := range r.db.boards {
		if x.Name == b.Name {
			return pkg.ErrConflict
		}
	}
	b.ID = r.db.nextID()
	b.CreatedAt = r.db.now()
	b.UpdatedAt = b.CreatedAt
	cp := *b
	r.db.boards[b.ID] = &cp
	return nil
}

func (r *BoardRepository) FindByID(_ context.Context, id uint64) (*model.Board, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if b, ok := r.db.boards[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, pkg.ErrNotFound
}

func (r *BoardRepository) List(_ context.Context, offset, limit int) ([]model.Board, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	keys := sortedKeys(r.db.boards)
	list := make([]model.Board, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		list = append(list, *r.db.boards[keys[i]])
	}
	return window(list, offset, limit), nil
}

func (r *BoardRepository) Update(_ context.Context, id uint64, fields map[string]any) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.boards[id]
	if !ok {
		return pkg.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "name":
			for oid, x := range r.db.boards {
				if oid != id && x.Name == v.(string) {
					return pkg.ErrConflict
				}
			}
			b.Name = v.(string)
		case "description":
			b.Description = v.(string)
		case "image":
			b.Image = v.(string)
		}
	}
	b.UpdatedAt = r.db.now()
	return nil
}

func (r *BoardRepository) Delete(_ context.Context, id uint64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, c := range r.db.clubs {
		if c.BoardID == id {
			return pkg.ErrConflict
		}
	}
	for pid, p := range r.db.pors {
		if p.BoardID == id && p.ClubID == 0 {
			delete(r.db.pors, pid)
		}
	}
	delete(r.db.boards, id)
	return nil
}

func (r *ClubRepository) Create(_ context.Context, c *model.Club) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, x := range r.db.clubs {
		if x.Name == c.Name {
			return pkg.ErrConflict
		}
	}
	c.ID = r.db.nextID()
	c.CreatedAt = r.db.now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	r.db.clubs[c.ID] = &cp
	return nil
}

func (r *ClubRepository) FindByID(_ context.Context, id uint64) (*model.Club, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if c, ok := r.db.clubs[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, pkg.ErrNotFound
}

func (r *ClubRepository) List(_ context.Context, boardID uint64, offset, limit int) ([]model.Club, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	keys := sortedKeys(r.db.clubs)
	list := make([]model.Club, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		c := r.db.clubs[keys[i]]
		if boardID == 0 || c.BoardID == boardID {
			list = append(list, *c)
		}
	}
	return window(list, offset, limit), nil
}

func (r *ClubRepository) Update(_ context.Context, id uint64, fields map[string]any) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.clubs[id]
	if !ok {
		return pkg.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "name":
			for oid, x := range r.db.clubs {
				if oid != id && x.Name == v.(string) {
					return pkg.ErrConflict
				}
			}
			c.Name = v.(string)
		case "description":
			c.Description = v.(string)
		case "image":
			c.Image = v.(string)
		}
	}
	c.UpdatedAt = r.db.now()
	return nil
}

func (r *ClubRepository) Delete(_ context.Context, id uint64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for pid, p := range r.db.pors {
		if p.ClubID == id {
			delete(r.db.pors, pid)
		}
	}
	for k := range r.db.subs {
		if k.clubID == id {
			delete(r.db.subs, k)
		}
	}
	delete(r.db.clubs, id)
	return nil
}

func (r *PORRepository) Create(_ context.Context, p *model.PrivilegeType) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, x := range r.db.pors {
		if x.UserID == p.UserID && x.ClubID == p.ClubID && x.BoardID == p.BoardID {
			return pkg.ErrConflict
		}
	}
	p.ID = r.db.nextID()
	p.CreatedAt = r.db.now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	r.db.pors[p.ID] = &cp
	return nil
}

func (r *PORRepository) FindByID(_ context.Context, id uint64) (*model.PrivilegeType, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if p, ok := r.db.pors[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, pkg.ErrNotFound
}

func (r *PORRepository) Find(_ context.Context, userID uint64, scope model.Scope) (*model.PrivilegeType, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range r.db.pors {
		if p.UserID == userID && p.ClubID == scope.ClubID && p.BoardID == scope.BoardID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, pkg.ErrNotFound
}

func (r *PORRepository) collect(keep func(*model.PrivilegeType) bool) []model.PrivilegeType {
	list := []model.PrivilegeType{}
	for _, p := range r.db.pors {
		if keep(p) {
			list = append(list, *p)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func (r *PORRepository) ListByScope(_ context.Context, scope model.Scope) ([]model.PrivilegeType, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.collect(func(p *model.PrivilegeType) bool {
		return p.ClubID == scope.ClubID && p.BoardID == scope.BoardID
	}), nil
}

func (r *PORRepository) ListByUser(_ context.Context, userID uint64) ([]model.PrivilegeType, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.collect(func(p *model.PrivilegeType) bool { return p.UserID == userID }), nil
}

func (r *PORRepository) Update(_ context.Context, id uint64, fields map[string]any) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.pors[id]
	if !ok {
		return pkg.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "position":
			p.Position = v.(string)
		case "can_post":
			p.CanPost = v.(bool)
		case "can_manage_members":
			p.CanManageMembers = v.(bool)
		case "can_manage_forums":
			p.CanManageForums = v.(bool)
		}
	}
	p.UpdatedAt = r.db.now()
	return nil
}

func (r *PORRepository) Delete(_ context.Context, id uint64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.pors, id)
	return nil
}
