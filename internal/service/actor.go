package service

import "Campus_Community/internal/model"

// Actor is the authenticated caller as seen by services.
type Actor struct {
	ID   uint64
	Role int
}

func (a Actor) IsAdmin() bool { return a.Role >= model.RoleAdmin }

func normalizePage(page, size int) (offset, limit int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 50 {
		size = 20
	}
	return (page - 1) * size, size
}
