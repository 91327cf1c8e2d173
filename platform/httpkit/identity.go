// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Roles understood by the marketplace.
const (
	RoleAdmin    = "admin"
	RolePartner  = "partner"
	RoleCustomer = "customer"
)

// Identity represents the authenticated actor supplied by the auth collaborator.
type Identity interface {
	// UserID returns the authenticated user's ID.
	UserID() uuid.UUID
	// Roles returns the user's assigned roles.
	Roles() []string
	// HasRole checks if the user has a specific role.
	HasRole(role string) bool
	// PartnerID returns the partner the user acts for, if any.
	PartnerID() (uuid.UUID, bool)
	// IsAuthenticated returns true if the user is authenticated.
	IsAuthenticated() bool
}

type identity struct {
	userID        uuid.UUID
	roles         []string
	partnerID     *uuid.UUID
	authenticated bool
}

func (i *identity) UserID() uuid.UUID { return i.userID }

func (i *identity) Roles() []string { return i.roles }

func (i *identity) HasRole(role string) bool {
	for _, r := range i.roles {
		if r == role {
			return true
		}
	}
	return false
}

func (i *identity) PartnerID() (uuid.UUID, bool) {
	if i.partnerID == nil {
		return uuid.Nil, false
	}
	return *i.partnerID, true
}

func (i *identity) IsAuthenticated() bool { return i.authenticated }

// NewIdentity builds an authenticated identity. Useful for tests and internal callers.
func NewIdentity(userID uuid.UUID, roles []string, partnerID *uuid.UUID) Identity {
	return &identity{userID: userID, roles: roles, partnerID: partnerID, authenticated: true}
}

// GetIdentity extracts the Identity from a Gin context.
// Returns an unauthenticated identity if user info is not present.
func GetIdentity(c *gin.Context) Identity {
	userID, ok := c.Get(ContextUserIDKey)
	if !ok {
		return &identity{}
	}
	uid, ok := userID.(uuid.UUID)
	if !ok {
		return &identity{}
	}

	var roleList []string
	if roles, ok := c.Get(ContextRolesKey); ok {
		roleList, _ = roles.([]string)
	}

	var partnerID *uuid.UUID
	if raw, ok := c.Get(ContextPartnerIDKey); ok {
		if pid, ok := raw.(uuid.UUID); ok {
			partnerID = &pid
		}
	}

	return &identity{userID: uid, roles: roleList, partnerID: partnerID, authenticated: true}
}

// MustGetIdentity extracts the Identity from a Gin context.
// If the user is not authenticated, it aborts with 401 Unauthorized and returns nil.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return id
}

// MustGetPartnerID returns the partner bound to the caller or aborts with 403.
func MustGetPartnerID(c *gin.Context) (uuid.UUID, bool) {
	id := MustGetIdentity(c)
	if id == nil {
		return uuid.Nil, false
	}
	pid, ok := id.PartnerID()
	if !ok {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "no partner account bound to user"})
		return uuid.Nil, false
	}
	return pid, true
}
