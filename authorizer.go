package authcore

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// Authorizer evaluates whether a resolved session satisfies a required
// permission scope. Read-only; safe for concurrent use.
type Authorizer struct {
	roles  RoleStore
	cfg    Config
	logger Logger
}

// NewAuthorizer creates an authorizer over the given role store.
func NewAuthorizer(roles RoleStore, cfg Config) *Authorizer {
	return &Authorizer{
		roles:  roles,
		cfg:    cfg,
		logger: defLogger{},
	}
}

func (a *Authorizer) WithLogger(logger Logger) *Authorizer {
	a.logger = normalizeLogger(logger)
	return a
}

// Authorize returns nil to allow, or one of ErrMissingAPIKeyScope,
// ErrNoRolesAssigned, ErrMissingScope to deny.
//
// API-key sessions are judged solely on the grant's own scopes, never the
// user's role-derived scopes. Role sessions short-circuit on the reserved
// admin role; otherwise the scope must appear in some resolved role.
// Dangling role refs contribute no scopes rather than faulting.
func (a *Authorizer) Authorize(ctx context.Context, session *ResolvedSession, requiredScope string) error {
	if session == nil || session.User == nil {
		return ErrIdentityNotFound
	}

	if session.UsedAPIKey() {
		return a.authorizeGrant(session.Grant, requiredScope)
	}

	roles, err := a.roles.GetByIDs(ctx, session.User.RoleRefs)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve roles for authorization")
	}

	if len(roles) == 0 {
		return ErrNoRolesAssigned
	}

	for _, role := range roles {
		if role.Name == a.cfg.adminRole() {
			return nil
		}
	}

	for _, role := range roles {
		if role.HasScope(requiredScope) {
			return nil
		}
	}

	return ErrMissingScope
}

func (a *Authorizer) authorizeGrant(grant *APIKeyGrant, requiredScope string) error {
	// Inactive grants never match, even scopes they nominally list.
	if grant == nil || !grant.Active {
		return ErrMissingAPIKeyScope
	}

	if !grant.HasScope(requiredScope) {
		return ErrMissingAPIKeyScope
	}

	return nil
}
