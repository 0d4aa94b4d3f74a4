package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity is the authenticated caller as handlers see it, detached
// from the gin context it was read from.
type Identity interface {
	UserID() uuid.UUID
	// TenantID is the clinic the user belongs to, uuid.Nil when absent.
	TenantID() uuid.UUID
	Roles() []string
	HasRole(role string) bool
	IsAuthenticated() bool
}

type identity struct {
	userID        uuid.UUID
	tenantID      uuid.UUID
	roles         []string
	authenticated bool
}

func (i *identity) UserID() uuid.UUID {
	return i.userID
}

func (i *identity) TenantID() uuid.UUID {
	return i.tenantID
}

func (i *identity) Roles() []string {
	return i.roles
}

func (i *identity) HasRole(role string) bool {
	for _, r := range i.roles {
		if r == role {
			return true
		}
	}
	return false
}

func (i *identity) IsAuthenticated() bool {
	return i.authenticated
}

// GetIdentity reads the Identity the auth middleware stored on the
// context, or an unauthenticated one when nothing is there.
func GetIdentity(c *gin.Context) Identity {
	userID, userOK := c.Get(ContextUserIDKey)
	roles, rolesOK := c.Get(ContextRolesKey)

	if !userOK {
		return &identity{authenticated: false}
	}

	uid, ok := userID.(uuid.UUID)
	if !ok {
		return &identity{authenticated: false}
	}

	var roleList []string
	if rolesOK {
		roleList, _ = roles.([]string)
	}

	var tenantID uuid.UUID
	if raw, ok := c.Get(ContextTenantIDKey); ok {
		tenantID, _ = raw.(uuid.UUID)
	}

	return &identity{
		userID:        uid,
		tenantID:      tenantID,
		roles:         roleList,
		authenticated: true,
	}
}

// MustGetIdentity is GetIdentity with a 401 abort; it returns nil after
// aborting, so callers must return immediately on nil.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return id
}

// MustGetTenantID extracts the tenant ID from the authenticated identity.
// Aborts with 403 Forbidden when the user carries no tenant claim.
func MustGetTenantID(c *gin.Context) (uuid.UUID, bool) {
	id := MustGetIdentity(c)
	if id == nil {
		return uuid.Nil, false
	}
	if id.TenantID() == uuid.Nil {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "no tenant assigned"})
		return uuid.Nil, false
	}
	return id.TenantID(), true
}
