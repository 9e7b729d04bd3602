package authcore

import (
	"context"

	"github.com/google/uuid"
)

// UserStore is the external user-record collaborator. Lookups signal "not
// found" with ErrIdentityNotFound; GetByClientID additionally signals the
// ambiguous-owner integrity fault with ErrAmbiguousClientID.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByClientID(ctx context.Context, clientID string) (*User, error)
	Create(ctx context.Context, user *User) (*User, error)
	Save(ctx context.Context, user *User) error
	// RecordLogin persists the last-login event. Callers treat failures as
	// best-effort bookkeeping, never as login failures.
	RecordLogin(ctx context.Context, user *User, event LoginEvent) error
	// FindByRoleRef returns every user whose role_refs include roleID, for
	// referential cleanup after a role deletion.
	FindByRoleRef(ctx context.Context, roleID uuid.UUID) ([]*User, error)
}

// RoleStore is the external role-record collaborator.
type RoleStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Role, error)
	GetByName(ctx context.Context, name string) (*Role, error)
	// GetByIDs resolves a set of role refs. Dangling refs are simply absent
	// from the result, never an error.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Role, error)
	Create(ctx context.Context, role *Role) (*Role, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// MagicLinkStore persists single-use link records. Consume must be atomic:
// two concurrent consumptions of the same nonce yield exactly one success
// and one ErrAlreadyConsumed.
type MagicLinkStore interface {
	Create(ctx context.Context, link *MagicLink) error
	// Consume flips the consumed flag with a conditional write and returns
	// the record. ErrMagicLinkNotFound when the nonce is unknown,
	// ErrAlreadyConsumed when the flag was already set or the write lost a
	// race.
	Consume(ctx context.Context, nonce uuid.UUID) (*MagicLink, error)
}

// SocialVerifier validates a provider-issued assertion and yields the
// verified email. Provider specifics (OIDC, OAuth profile fetch) live
// outside this core.
type SocialVerifier interface {
	VerifyAssertion(ctx context.Context, provider, assertion string) (string, error)
}

// SocialVerifierFunc adapts a function into a SocialVerifier.
type SocialVerifierFunc func(ctx context.Context, provider, assertion string) (string, error)

// VerifyAssertion satisfies the SocialVerifier interface.
func (f SocialVerifierFunc) VerifyAssertion(ctx context.Context, provider, assertion string) (string, error) {
	if f == nil {
		return "", ErrInvalidCredentials
	}
	return f(ctx, provider, assertion)
}
