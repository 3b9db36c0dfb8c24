// Package moderation decides who may edit or delete community content.
package moderation

import (
	"fmt"

	"github.com/learnhub/community/internal/models"
)

// CanModify reports whether actor may edit or delete a resource owned by ownerID.
// Only the owner or an admin qualifies; moderators get no extra rights here.
func CanModify(actor models.Actor, ownerID string) bool {
	if actor.Anonymous() {
		return false
	}
	return actor.ID == ownerID || actor.IsAdmin()
}

// Authorize turns a CanModify denial into models.ErrForbidden
func Authorize(actor models.Actor, ownerID, resource string) error {
	if actor.Anonymous() {
		return models.ErrUnauthenticated
	}
	if !CanModify(actor, ownerID) {
		return fmt.Errorf("%s: actor %s: %w", resource, actor.ID, models.ErrForbidden)
	}
	return nil
}

// RequireAdmin admits admins only
func RequireAdmin(actor models.Actor) error {
	if actor.Anonymous() {
		return models.ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		return fmt.Errorf("admin role required: %w", models.ErrForbidden)
	}
	return nil
}
