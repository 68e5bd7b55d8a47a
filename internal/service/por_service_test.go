package service_test

import (
	"context"
	"testing"

	"Campus_Community/internal/model"
	"Campus_Community/internal/pkg"
	"Campus_Community/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasPrivilege(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	admin := w.addUser(t, "admin", model.RoleAdmin)
	head := w.addUser(t, "head", model.RoleStudent)
	sec := w.addUser(t, "sec", model.RoleStudent)
	nobody := w.addUser(t, "nobody", model.RoleStudent)
	board, club := w.org(t, admin)
	clubScope := model.Scope{ClubID: club.ID}
	boardScope := model.Scope{BoardID: board.ID}

	_, err := w.pors.Grant(ctx, admin, service.GrantPOR{
		UserID: head.ID, Scope: boardScope, Position: "Board Head",
		CanPost: true, CanManageMembers: true, CanManageForums: true,
	})
	require.NoError(t, err)
	_, err = w.pors.Grant(ctx, admin, service.GrantPOR{UserID: sec.ID, Scope: clubScope, Position: "Secretary", CanPost: true})
	require.NoError(t, err)

	tests := []struct {
		name  string
		actor service.Actor
		scope model.Scope
		cap   string
		want  bool
	}{
		{"admin always passes", admin, clubScope, model.CapManageForums, true},
		{"club POR can post", sec, clubScope, model.CapPost, true},
		{"club POR lacks forum rights", sec, clubScope, model.CapManageForums, false},
		{"club POR has no board rights", sec, boardScope, model.CapPost, false},
		{"board POR covers its clubs", head, clubScope, model.CapManageForums, true},
		{"any POR", sec, clubScope, model.CapAny, true},
		{"no POR", nobody, clubScope, model.CapAny, false},
		{"invalid scope", head, model.Scope{}, model.CapPost, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := w.pors.HasPrivilege(ctx, tt.actor, tt.scope, tt.cap)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGrantPOR(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	admin := w.addUser(t, "admin", model.RoleAdmin)
	head := w.addUser(t, "head", model.RoleStudent)
	alice := w.addUser(t, "alice", model.RoleStudent)
	board, club := w.org(t, admin)

	_, err := w.pors.Grant(ctx, head, service.GrantPOR{UserID: alice.ID, Scope: model.Scope{ClubID: club.ID}, Position: "Member"})
	assert.ErrorIs(t, err, pkg.ErrForbidden)

	_, err = w.pors.Grant(ctx, admin, service.GrantPOR{
		UserID: head.ID, Scope: model.Scope{BoardID: board.ID}, Position: "Head", CanManageMembers: true,
	})
	require.NoError(t, err)

	// board head can appoint club PORs
	p, err := w.pors.Grant(ctx, head, service.GrantPOR{UserID: alice.ID, Scope: model.Scope{ClubID: club.ID}, Position: "Coordinator", CanPost: true})
	require.NoError(t, err)
	assert.Equal(t, club.ID, p.ClubID)
	assert.Zero(t, p.BoardID)

	_, err = w.pors.Grant(ctx, admin, service.GrantPOR{UserID: alice.ID, Scope: model.Scope{ClubID: club.ID}, Position: "Again"})
	assert.ErrorIs(t, err, pkg.ErrConflict)

	// club POR holders cannot appoint, even with member rights
	sec := w.addUser(t, "sec", model.RoleStudent)
	bob := w.addUser(t, "bob", model.RoleStudent)
	_, err = w.pors.Grant(ctx, admin, service.GrantPOR{
		UserID: sec.ID, Scope: model.Scope{ClubID: club.ID}, Position: "Secretary", CanManageMembers: true,
	})
	require.NoError(t, err)
	_, err = w.pors.Grant(ctx, sec, service.GrantPOR{UserID: bob.ID, Scope: model.Scope{ClubID: club.ID}, Position: "Member"})
	assert.ErrorIs(t, err, pkg.ErrForbidden)

	// board PORs are admin only
	_, err = w.pors.Grant(ctx, head, service.GrantPOR{UserID: bob.ID, Scope: model.Scope{BoardID: board.ID}, Position: "Deputy"})
	assert.ErrorIs(t, err, pkg.ErrForbidden)

	_, err = w.pors.Grant(ctx, admin, service.GrantPOR{UserID: alice.ID, Scope: model.Scope{ClubID: club.ID, BoardID: board.ID}, Position: "x"})
	assert.ErrorIs(t, err, pkg.ErrInvalidParam)

	_, err = w.pors.Grant(ctx, admin, service.GrantPOR{UserID: alice.ID, Scope: model.Scope{ClubID: 999}, Position: "x"})
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	_, err = w.pors.Grant(ctx, admin, service.GrantPOR{UserID: 999, Scope: model.Scope{BoardID: board.ID}, Position: "x"})
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	list, err := w.pors.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.ErrorIs(t, w.pors.Revoke(ctx, sec, p.ID), pkg.ErrForbidden)
	require.NoError(t, w.pors.Revoke(ctx, head, p.ID))
}

func TestUpdateAndRevokePOR(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	admin := w.addUser(t, "admin", model.RoleAdmin)
	alice := w.addUser(t, "alice", model.RoleStudent)
	_, club := w.org(t, admin)
	scope := model.Scope{ClubID: club.ID}

	p, err := w.pors.Grant(ctx, admin, service.GrantPOR{UserID: alice.ID, Scope: scope, Position: "Member", CanPost: true})
	require.NoError(t, err)

	yes := true
	_, err = w.pors.Update(ctx, alice, p.ID, service.UpdatePOR{CanManageForums: &yes})
	assert.ErrorIs(t, err, pkg.ErrForbidden)

	updated, err := w.pors.Update(ctx, admin, p.ID, service.UpdatePOR{CanManageForums: &yes})
	require.NoError(t, err)
	assert.True(t, updated.CanManageForums)
	ok, err := w.pors.HasPrivilege(ctx, alice, scope, model.CapManageForums)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, w.pors.Revoke(ctx, admin, p.ID))
	ok, err = w.pors.HasPrivilege(ctx, alice, scope, model.CapPost)
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := w.pors.ListByScope(ctx, scope)
	require.NoError(t, err)
	assert.Empty(t, list)
}
