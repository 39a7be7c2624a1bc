package authz

import (
	"testing"

	"contactdesk/db"

	"github.com/stretchr/testify/assert"
)

func TestResolveScope(t *testing.T) {
	tests := []struct {
		name         string
		requesterID  string
		role         string
		targetUserID string
		want         string
	}{
		{"user without target", "u1", db.RoleUser, "", "u1"},
		{"user target ignored", "u1", db.RoleUser, "u2", "u1"},
		{"admin without target", "a1", db.RoleAdmin, "", "a1"},
		{"admin with target", "a1", db.RoleAdmin, "u2", "u2"},
		{"unknown role target ignored", "u1", "", "u2", "u1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveScope(tt.requesterID, tt.role, tt.targetUserID))
		})
	}
}

func TestCanAccess(t *testing.T) {
	assert.True(t, CanAccess("u1", db.RoleUser, "u1"), "owner can access")
	assert.False(t, CanAccess("u1", db.RoleUser, "u2"), "non-owner cannot access")
	assert.True(t, CanAccess("a1", db.RoleAdmin, "u2"), "admin can access any")
	assert.True(t, CanAccess("a1", db.RoleAdmin, "a1"), "admin can access own")
}

func TestIsAdmin(t *testing.T) {
	assert.True(t, IsAdmin(db.RoleAdmin))
	assert.False(t, IsAdmin(db.RoleUser))
	assert.False(t, IsAdmin(""))
}
