package authcore

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the signed payload carried by every token class. The
// wire format is the standard three-segment compact JWS with JSON claim
// keys sub, exp, iat, scopes, roles, client_id, purpose, nonce.
type SessionClaims struct {
	jwt.RegisteredClaims
	Scopes   []string         `json:"scopes,omitempty"`
	Roles    []string         `json:"roles,omitempty"`
	ClientID string           `json:"client_id,omitempty"`
	Purpose  MagicLinkPurpose `json:"purpose,omitempty"`
	Nonce    string           `json:"nonce,omitempty"`
}

// GetEmail returns the subject claim, the owning identity's email.
func (c *SessionClaims) GetEmail() string {
	return c.RegisteredClaims.Subject
}

// Expires returns the expiration time, zero when unset.
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// Issued returns the issued-at time, zero when unset.
func (c *SessionClaims) Issued() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// HasScope reports whether the claims carry the given scope.
func (c *SessionClaims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// HasRole reports whether the claims carry the given role name.
func (c *SessionClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAPIKeySession reports whether the token was minted from an API-key
// authentication.
func (c *SessionClaims) IsAPIKeySession() bool {
	return c.ClientID != ""
}

// body returns a copy of the identity-bearing fields, used to guarantee
// access and refresh tokens of a pair share one claims body.
func (c *SessionClaims) body() SessionClaims {
	return SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:  c.RegisteredClaims.Issuer,
			Subject: c.RegisteredClaims.Subject,
		},
		Scopes:   append([]string(nil), c.Scopes...),
		Roles:    append([]string(nil), c.Roles...),
		ClientID: c.ClientID,
		Purpose:  c.Purpose,
		Nonce:    c.Nonce,
	}
}
