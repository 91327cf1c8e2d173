// Package actor describes who is performing a lifecycle operation.
package actor

import (
	"flyttbas_backend/platform/httpkit"

	"github.com/google/uuid"
)

// Role is the acting capacity for an operation.
type Role string

const (
	RoleAdmin     Role = "admin"
	RolePartner   Role = "partner"
	RoleCustomer  Role = "customer"
	RoleSystem    Role = "system"
	RoleAnonymous Role = "anonymous"
)

// Actor is an already-authorized caller.
type Actor struct {
	UserID    uuid.UUID
	Role      Role
	PartnerID *uuid.UUID
}

// System is the actor used by sweeps and automatic transitions.
func System() Actor {
	return Actor{Role: RoleSystem}
}

// Anonymous is an unauthenticated public caller.
func Anonymous() Actor {
	return Actor{Role: RoleAnonymous}
}

// Admin builds an administrator actor.
func Admin(userID uuid.UUID) Actor {
	return Actor{UserID: userID, Role: RoleAdmin}
}

// Customer builds a customer actor.
func Customer(userID uuid.UUID) Actor {
	return Actor{UserID: userID, Role: RoleCustomer}
}

// Partner builds a partner actor bound to partnerID.
func Partner(userID, partnerID uuid.UUID) Actor {
	return Actor{UserID: userID, Role: RolePartner, PartnerID: &partnerID}
}

// FromIdentity maps a request identity to an actor. Admin wins over partner,
// partner over customer.
func FromIdentity(id httpkit.Identity) Actor {
	if id == nil || !id.IsAuthenticated() {
		return Anonymous()
	}
	switch {
	case id.HasRole(httpkit.RoleAdmin):
		return Admin(id.UserID())
	case id.HasRole(httpkit.RolePartner):
		if pid, ok := id.PartnerID(); ok {
			return Partner(id.UserID(), pid)
		}
		return Actor{UserID: id.UserID(), Role: RolePartner}
	default:
		return Customer(id.UserID())
	}
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

func (a Actor) IsSystem() bool { return a.Role == RoleSystem }

// IsPrivileged reports whether the actor bypasses ownership checks.
func (a Actor) IsPrivileged() bool { return a.Role == RoleAdmin || a.Role == RoleSystem }

// OwnsPartner reports whether the actor acts for partnerID.
func (a Actor) OwnsPartner(partnerID uuid.UUID) bool {
	return a.Role == RolePartner && a.PartnerID != nil && *a.PartnerID == partnerID
}

// UserIDPtr returns the user id or nil for system and anonymous actors.
func (a Actor) UserIDPtr() *uuid.UUID {
	if a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}
