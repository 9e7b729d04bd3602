package authcore

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LoginEvent is the best-effort bookkeeping recorded on a user when a
// session is minted.
type LoginEvent struct {
	Source     string    `json:"source,omitempty"`
	Provider   string    `json:"provider,omitempty"`
	OccurredAt time.Time `json:"occurred_at,omitempty"`
}

// Login event sources.
const (
	LoginSourcePassword  = "password"
	LoginSourceAPIKey    = "api_key"
	LoginSourceSocial    = "social"
	LoginSourceMagicLink = "magic_link"
)

// APIKeyGrant is a client-credential grant embedded in a user record. The
// client id is unique across all users, not just within one.
type APIKeyGrant struct {
	ClientID   string   `json:"client_id"`
	SecretHash string   `json:"secret_hash"`
	Scopes     []string `json:"scopes,omitempty"`
	Active     bool     `json:"active"`
}

// HasScope reports whether the grant carries the given scope.
func (g APIKeyGrant) HasScope(scope string) bool {
	for _, s := range g.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string        `bun:"email,notnull,unique" json:"email,omitempty"`
	Name          string        `bun:"name" json:"name,omitempty"`
	Phone         string        `bun:"phone_number" json:"phone_number,omitempty"`
	Source        string        `bun:"source" json:"source,omitempty"`
	PasswordHash  string        `bun:"password_hash" json:"password_hash,omitempty"`
	Disabled      bool          `bun:"disabled" json:"disabled,omitempty"`
	RoleRefs      []uuid.UUID   `bun:"role_refs" json:"role_refs,omitempty"`
	APIKeys       []APIKeyGrant `bun:"api_keys" json:"api_keys,omitempty"`
	LastLogin     *LoginEvent   `bun:"last_login" json:"last_login,omitempty"`
	CreatedAt     *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time    `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// APIKey returns the grant matching clientID, if any.
func (u *User) APIKey(clientID string) (APIKeyGrant, bool) {
	for _, key := range u.APIKeys {
		if key.ClientID == clientID {
			return key, true
		}
	}
	return APIKeyGrant{}, false
}

// IsPasswordBased reports whether the account holds a credential hash.
// Social-only accounts have none and cannot reset a password or use
// magic login.
func (u *User) IsPasswordBased() bool {
	return u.PasswordHash != ""
}

// HasRoleRef reports whether the user references the given role id.
func (u *User) HasRoleRef(roleID uuid.UUID) bool {
	for _, ref := range u.RoleRefs {
		if ref == roleID {
			return true
		}
	}
	return false
}

// RemoveRoleRef strips a role id from the user's references, reporting
// whether anything changed.
func (u *User) RemoveRoleRef(roleID uuid.UUID) bool {
	filtered := u.RoleRefs[:0]
	removed := false
	for _, ref := range u.RoleRefs {
		if ref == roleID {
			removed = true
			continue
		}
		filtered = append(filtered, ref)
	}
	u.RoleRefs = filtered
	return removed
}

// LogLogin stamps the last-login event on the record.
func (u *User) LogLogin(event LoginEvent) {
	u.LastLogin = &event
}

// Role is a named set of permission scopes.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:rol"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull,unique" json:"name,omitempty"`
	Description   string     `bun:"description" json:"description,omitempty"`
	CreatedBy     string     `bun:"created_by" json:"created_by,omitempty"`
	Scopes        []string   `bun:"scopes" json:"scopes,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// HasScope reports whether the role lists the given scope.
func (r *Role) HasScope(scope string) bool {
	for _, s := range r.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// MagicLinkPurpose distinguishes what a single-use token authorizes.
type MagicLinkPurpose string

const (
	// PurposeRecovery allows a password reset.
	PurposeRecovery MagicLinkPurpose = "recovery"
	// PurposeMagicLogin allows a passwordless login.
	PurposeMagicLogin MagicLinkPurpose = "magic_login"
)

// IsValid checks the purpose is one of the known variants.
func (p MagicLinkPurpose) IsValid() bool {
	switch p {
	case PurposeRecovery, PurposeMagicLogin:
		return true
	default:
		return false
	}
}

// MagicLink is the server-side record enforcing single use of a magic-link
// token. Keyed by a per-request nonce so multiple outstanding requests for
// the same identifier do not invalidate each other.
type MagicLink struct {
	bun.BaseModel `bun:"table:magic_links,alias:mgl"`
	Nonce         uuid.UUID        `bun:"nonce,pk,type:uuid" json:"nonce,omitempty"`
	Identifier    string           `bun:"identifier,notnull" json:"identifier,omitempty"`
	Purpose       MagicLinkPurpose `bun:"purpose,notnull" json:"purpose,omitempty"`
	ExpiresAt     time.Time        `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	Consumed      bool             `bun:"consumed" json:"consumed,omitempty"`
	ConsumedAt    *time.Time       `bun:"consumed_at,nullzero" json:"consumed_at,omitempty"`
	CreatedAt     *time.Time       `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
