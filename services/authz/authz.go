// Package authz holds the ownership and impersonation policy for contact
// records. Every contact endpoint resolves its owner scope through
// ResolveScope and checks record access through CanAccess, so the rules
// live in exactly one place instead of per-route conditionals.
package authz

import "contactdesk/db"

// ResolveScope returns the owner id a contact operation applies to.
//
// Non-admin requesters always operate on their own records; any supplied
// targetUserID is ignored. Admins may pass targetUserID to read or write
// another user's records without changing their own session identity.
func ResolveScope(requesterID, role, targetUserID string) string {
	if role == db.RoleAdmin && targetUserID != "" {
		return targetUserID
	}
	return requesterID
}

// CanAccess reports whether the requester may operate on a contact owned
// by ownerID: the owner may, and an admin may regardless of owner. A false
// result is surfaced as the undistinguished not-found error so the
// existence of other users' records does not leak.
func CanAccess(requesterID, role, ownerID string) bool {
	return requesterID == ownerID || role == db.RoleAdmin
}

// IsAdmin reports whether the role grants user management and
// impersonation rights.
func IsAdmin(role string) bool {
	return role == db.RoleAdmin
}
