package model

import (
	"errors"
	"fmt"
)

const (
	ScopeClub  = "club"
	ScopeBoard = "board"
	ScopeForum = "forum"
	ScopeUsers = "users"
)

var ErrInvalidScope = errors.New("exactly one of club_id or board_id is required")

// Scope names the club or board a record belongs to. Exactly one id is set.
type Scope struct {
	ClubID  uint64 `json:"club_id"`
	BoardID uint64 `json:"board_id"`
}

func (s Scope) Validate() error {
	if (s.ClubID == 0) == (s.BoardID == 0) {
		return ErrInvalidScope
	}
	return nil
}

// Kind returns ScopeClub or ScopeBoard.
func (s Scope) Kind() string {
	if s.ClubID != 0 {
		return ScopeClub
	}
	return ScopeBoard
}

func (s Scope) ID() uint64 {
	if s.ClubID != 0 {
		return s.ClubID
	}
	return s.BoardID
}

func (s Scope) String() string {
	return fmt.Sprintf("%s:%d", s.Kind(), s.ID())
}
