package authcore_test

import (
	"context"
	"testing"

	authcore "github.com/ravenmill/go-authcore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeRoleSessions(t *testing.T) {
	ctx := context.Background()

	editor := &authcore.Role{ID: uuid.New(), Name: "editor", Scopes: []string{"doc.read", "doc.write"}}
	admin := &authcore.Role{ID: uuid.New(), Name: "admin", Scopes: nil}
	roles := newMemoryRoles(editor, admin)

	authorizer := authcore.NewAuthorizer(roles, testConfig())

	session := func(refs ...uuid.UUID) *authcore.ResolvedSession {
		return &authcore.ResolvedSession{
			User:   &authcore.User{ID: uuid.New(), Email: "a@x.com", RoleRefs: refs},
			Method: authcore.AuthMethodPassword,
		}
	}

	tests := []struct {
		name    string
		session *authcore.ResolvedSession
		scope   string
		wantErr error
	}{
		{name: "Editor has doc.write", session: session(editor.ID), scope: "doc.write"},
		{name: "Editor lacks doc.delete", session: session(editor.ID), scope: "doc.delete", wantErr: authcore.ErrMissingScope},
		{name: "Admin allows any scope", session: session(admin.ID), scope: "doc.delete"},
		{name: "Admin alongside editor", session: session(editor.ID, admin.ID), scope: "anything.at.all"},
		{name: "No roles assigned", session: session(), scope: "doc.read", wantErr: authcore.ErrNoRolesAssigned},
		{name: "Only dangling refs", session: session(uuid.New(), uuid.New()), scope: "doc.read", wantErr: authcore.ErrNoRolesAssigned},
		{name: "Nil session", session: nil, scope: "doc.read", wantErr: authcore.ErrIdentityNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authorizer.Authorize(ctx, tt.session, tt.scope)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAuthorizeDanglingRefsContributeNothing(t *testing.T) {
	ctx := context.Background()

	editor := &authcore.Role{ID: uuid.New(), Name: "editor", Scopes: []string{"doc.read"}}
	authorizer := authcore.NewAuthorizer(newMemoryRoles(editor), testConfig())

	// One live ref, one dangling; the live role's scopes still apply.
	session := &authcore.ResolvedSession{
		User: &authcore.User{ID: uuid.New(), RoleRefs: []uuid.UUID{editor.ID, uuid.New()}},
	}

	assert.NoError(t, authorizer.Authorize(ctx, session, "doc.read"))
	assert.ErrorIs(t, authorizer.Authorize(ctx, session, "doc.write"), authcore.ErrMissingScope)
}

func TestAuthorizeCustomAdminRole(t *testing.T) {
	ctx := context.Background()

	superuser := &authcore.Role{ID: uuid.New(), Name: "superuser"}
	admin := &authcore.Role{ID: uuid.New(), Name: "admin"}

	cfg := testConfig()
	cfg.AdminRole = "superuser"
	authorizer := authcore.NewAuthorizer(newMemoryRoles(superuser, admin), cfg)

	bypass := &authcore.ResolvedSession{
		User: &authcore.User{ID: uuid.New(), RoleRefs: []uuid.UUID{superuser.ID}},
	}
	assert.NoError(t, authorizer.Authorize(ctx, bypass, "doc.delete"))

	// The literal "admin" name loses its reserved status once overridden.
	plain := &authcore.ResolvedSession{
		User: &authcore.User{ID: uuid.New(), RoleRefs: []uuid.UUID{admin.ID}},
	}
	assert.ErrorIs(t, authorizer.Authorize(ctx, plain, "doc.delete"), authcore.ErrMissingScope)
}

func TestAuthorizeAPIKeySessions(t *testing.T) {
	ctx := context.Background()

	// Role store deliberately holds a role the user references; grant
	// sessions must never fall back to it.
	editor := &authcore.Role{ID: uuid.New(), Name: "editor", Scopes: []string{"doc.write"}}
	authorizer := authcore.NewAuthorizer(newMemoryRoles(editor), testConfig())

	user := &authcore.User{ID: uuid.New(), Email: "svc@x.com", RoleRefs: []uuid.UUID{editor.ID}}

	session := func(grant *authcore.APIKeyGrant) *authcore.ResolvedSession {
		return &authcore.ResolvedSession{
			User:   user,
			Method: authcore.AuthMethodClientCredential,
			Grant:  grant,
		}
	}

	tests := []struct {
		name    string
		grant   *authcore.APIKeyGrant
		scope   string
		wantErr error
	}{
		{
			name:  "Grant carries scope",
			grant: &authcore.APIKeyGrant{ClientID: "c1", Scopes: []string{"doc.read"}, Active: true},
			scope: "doc.read",
		},
		{
			name:    "Grant missing scope",
			grant:   &authcore.APIKeyGrant{ClientID: "c1", Scopes: []string{"doc.read"}, Active: true},
			scope:   "doc.delete",
			wantErr: authcore.ErrMissingAPIKeyScope,
		},
		{
			name:    "Roles never backfill a grant",
			grant:   &authcore.APIKeyGrant{ClientID: "c1", Scopes: []string{"doc.read"}, Active: true},
			scope:   "doc.write",
			wantErr: authcore.ErrMissingAPIKeyScope,
		},
		{
			name:    "Inactive grant denies listed scope",
			grant:   &authcore.APIKeyGrant{ClientID: "c1", Scopes: []string{"doc.read"}, Active: false},
			scope:   "doc.read",
			wantErr: authcore.ErrMissingAPIKeyScope,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authorizer.Authorize(ctx, session(tt.grant), tt.scope)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}
