package authcore

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
)

// AuthMethod tags how a session was authenticated.
type AuthMethod string

const (
	AuthMethodPassword         AuthMethod = "password"
	AuthMethodClientCredential AuthMethod = "api_key"
	AuthMethodBearer           AuthMethod = "bearer"
	AuthMethodSocial           AuthMethod = "social"
	AuthMethodMagicLink        AuthMethod = "magic_link"
)

// LoginAttempt is the tagged union over supported login variants. Exactly
// the four concrete types below implement it.
type LoginAttempt interface {
	loginAttempt()
}

// PasswordLogin authenticates with an email and cleartext password.
type PasswordLogin struct {
	Email    string
	Password string
}

// ClientCredentialLogin authenticates with an API-key grant.
type ClientCredentialLogin struct {
	ClientID     string
	ClientSecret string
}

// BearerLogin authenticates with a previously issued access token.
type BearerLogin struct {
	Token string
}

// SocialLogin authenticates with a provider-issued assertion.
type SocialLogin struct {
	Provider  string
	Assertion string
}

func (PasswordLogin) loginAttempt()         {}
func (ClientCredentialLogin) loginAttempt() {}
func (BearerLogin) loginAttempt()           {}
func (SocialLogin) loginAttempt()           {}

// ResolvedSession is the single downstream contract every login variant
// converges on. Grant is non-nil exactly when the session authenticated
// via an API key; that changes how token scopes are computed downstream.
// It is a transient value, never persisted on the user record.
type ResolvedSession struct {
	User     *User
	Method   AuthMethod
	Grant    *APIKeyGrant
	Provider string
}

// UsedAPIKey reports whether the session authenticated via an API-key
// grant.
func (s *ResolvedSession) UsedAPIKey() bool {
	return s.Grant != nil
}

// Resolver turns login input into a canonical identity plus auth-method
// tag. It is request-scoped and state free; all state lives in the stores.
type Resolver struct {
	users  UserStore
	codec  *TokenCodec
	social SocialVerifier
	cfg    Config
	logger Logger
}

// NewResolver creates a resolver over the given user store and codec.
func NewResolver(users UserStore, codec *TokenCodec, cfg Config) *Resolver {
	return &Resolver{
		users:  users,
		codec:  codec,
		cfg:    cfg,
		logger: defLogger{},
	}
}

func (r *Resolver) WithLogger(logger Logger) *Resolver {
	r.logger = normalizeLogger(logger)
	return r
}

// WithSocialVerifier wires the provider-specific assertion verifier used
// by SocialLogin attempts.
func (r *Resolver) WithSocialVerifier(verifier SocialVerifier) *Resolver {
	r.social = verifier
	return r
}

// Resolve dispatches on the login variant.
func (r *Resolver) Resolve(ctx context.Context, attempt LoginAttempt) (*ResolvedSession, error) {
	switch a := attempt.(type) {
	case PasswordLogin:
		return r.ResolvePassword(ctx, a)
	case ClientCredentialLogin:
		return r.ResolveClientCredential(ctx, a)
	case BearerLogin:
		return r.ResolveBearer(ctx, a)
	case SocialLogin:
		return r.ResolveSocial(ctx, a)
	default:
		return nil, goerrors.New("unknown login attempt variant", goerrors.CategoryBadInput)
	}
}

// ResolvePassword looks the identity up by email and verifies the
// credential hash.
func (r *Resolver) ResolvePassword(ctx context.Context, attempt PasswordLogin) (*ResolvedSession, error) {
	user, err := r.users.GetByEmail(ctx, attempt.Email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during verification")
	}

	if err := ComparePasswordAndHash(attempt.Password, user.PasswordHash); err != nil {
		r.logger.Debug("password verification failed", "email", attempt.Email)
		return nil, ErrInvalidCredentials
	}

	if user.Disabled {
		return nil, ErrAccountDisabled
	}

	return &ResolvedSession{User: user, Method: AuthMethodPassword}, nil
}

// ResolveClientCredential finds the unique owner of the client id and
// verifies the grant secret. Zero and multiple owners both surface as
// ErrInvalidAPIKey; the multiple-owner case is a data-integrity fault and
// is logged as such.
func (r *Resolver) ResolveClientCredential(ctx context.Context, attempt ClientCredentialLogin) (*ResolvedSession, error) {
	user, err := r.users.GetByClientID(ctx, attempt.ClientID)
	if err != nil {
		if goerrors.Is(err, ErrAmbiguousClientID) {
			r.logger.Error("client id owned by multiple users, data corruption", "client_id", attempt.ClientID)
			return nil, ErrInvalidAPIKey
		}
		if goerrors.IsNotFound(err) {
			return nil, ErrInvalidAPIKey
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user by client id")
	}

	grant, ok := user.APIKey(attempt.ClientID)
	if !ok {
		return nil, ErrInvalidAPIKey
	}

	if err := ComparePasswordAndHash(attempt.ClientSecret, grant.SecretHash); err != nil {
		return nil, ErrInvalidAPIKey
	}

	if !grant.Active {
		return nil, ErrInvalidAPIKey
	}

	if user.Disabled {
		return nil, ErrAccountDisabled
	}

	return &ResolvedSession{User: user, Method: AuthMethodClientCredential, Grant: &grant}, nil
}

// ResolveBearer decodes an access token and re-resolves the identity by
// subject. Tokens minted from API-key sessions must still match an active
// grant on the user.
func (r *Resolver) ResolveBearer(ctx context.Context, attempt BearerLogin) (*ResolvedSession, error) {
	claims, err := r.codec.Decode(attempt.Token, TokenClassAccess)
	if err != nil {
		return nil, err
	}

	user, err := r.users.GetByEmail(ctx, claims.GetEmail())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve token subject")
	}

	if user.Disabled {
		return nil, ErrAccountDisabled
	}

	session := &ResolvedSession{User: user, Method: AuthMethodBearer}

	if claims.IsAPIKeySession() {
		grant, ok := user.APIKey(claims.ClientID)
		if !ok || !grant.Active {
			return nil, ErrInvalidAPIKey
		}
		session.Method = AuthMethodClientCredential
		session.Grant = &grant
	}

	return session, nil
}

// ResolveSocial delegates assertion verification to the configured
// provider verifier and provisions a user when registration is open.
func (r *Resolver) ResolveSocial(ctx context.Context, attempt SocialLogin) (*ResolvedSession, error) {
	if r.social == nil {
		return nil, goerrors.New("no social verifier configured", goerrors.CategoryOperation)
	}

	email, err := r.social.VerifyAssertion(ctx, attempt.Provider, attempt.Assertion)
	if err != nil {
		r.logger.Warn("social assertion rejected", "provider", attempt.Provider, "error", err)
		return nil, ErrInvalidCredentials
	}

	user, err := r.users.GetByEmail(ctx, email)
	if err != nil {
		if !goerrors.IsNotFound(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for social login")
		}

		if !r.cfg.AllowNewUsers {
			return nil, ErrRegistrationClosed
		}

		user, err = r.provisionSocialUser(ctx, email, attempt.Provider)
		if err != nil {
			return nil, err
		}
	}

	if user.Disabled {
		return nil, ErrAccountDisabled
	}

	return &ResolvedSession{User: user, Method: AuthMethodSocial, Provider: attempt.Provider}, nil
}

func (r *Resolver) provisionSocialUser(ctx context.Context, email, provider string) (*User, error) {
	user := &User{
		Email:  email,
		Source: provider,
	}

	// Deterministic id so repeated provisioning of the same email converges.
	if id, err := hashid.NewUUID(email); err == nil {
		user.ID = id
	}

	created, err := r.users.Create(ctx, user)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not provision social user")
	}

	return created, nil
}
