package authcore

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// TokenPair is an access/refresh pair minted from one resolved session.
// Both tokens carry an identical claims body; only TTL and signing key
// differ.
type TokenPair struct {
	AccessToken    string    `json:"accessToken"`
	AccessExpires  time.Time `json:"accessTokenExpires"`
	RefreshToken   string    `json:"refreshToken"`
	RefreshExpires time.Time `json:"refreshTokenExpires"`
}

// SessionIssuer mints token pairs from resolved sessions and exchanges
// refresh tokens.
type SessionIssuer struct {
	codec    *TokenCodec
	users    UserStore
	roles    RoleStore
	cfg      Config
	logger   Logger
	activity ActivitySink
	rederive bool
}

// NewSessionIssuer creates an issuer over the given codec and stores.
func NewSessionIssuer(codec *TokenCodec, users UserStore, roles RoleStore, cfg Config) *SessionIssuer {
	return &SessionIssuer{
		codec:    codec,
		users:    users,
		roles:    roles,
		cfg:      cfg,
		logger:   defLogger{},
		activity: noopActivitySink{},
	}
}

func (s *SessionIssuer) WithLogger(logger Logger) *SessionIssuer {
	s.logger = normalizeLogger(logger)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *SessionIssuer) WithActivitySink(sink ActivitySink) *SessionIssuer {
	s.activity = normalizeActivitySink(sink)
	return s
}

// WithRederivedAuthority makes refresh exchanges recompute scopes and
// roles from current role assignments instead of preserving the authority
// embedded in the presented token. Off by default: re-deriving silently
// changes a session's authority mid-life.
func (s *SessionIssuer) WithRederivedAuthority() *SessionIssuer {
	s.rederive = true
	return s
}

// IssuePair mints an access/refresh pair for the session and records a
// best-effort login event. API-key sessions carry only the grant's own
// scopes and no roles; role sessions carry namespaced "{role}:{scope}"
// strings plus role names.
func (s *SessionIssuer) IssuePair(ctx context.Context, session *ResolvedSession) (*TokenPair, error) {
	if session == nil || session.User == nil {
		return nil, goerrors.New("cannot issue tokens without a resolved session", goerrors.CategoryBadInput)
	}

	body := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: session.User.Email},
	}

	if session.UsedAPIKey() {
		body.Scopes = append([]string(nil), session.Grant.Scopes...)
		body.ClientID = session.Grant.ClientID
	} else {
		scopes, roleNames, err := s.deriveAuthority(ctx, session.User)
		if err != nil {
			return nil, err
		}
		body.Scopes = scopes
		body.Roles = roleNames
	}

	pair, err := s.encodePair(body)
	if err != nil {
		return nil, err
	}

	s.recordLogin(ctx, session)

	return pair, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token's
// scopes and roles are reused as the default; fresh derivation happens
// only when the token carried none or re-derivation is opted in.
func (s *SessionIssuer) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.codec.Decode(refreshToken, TokenClassRefresh)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, claims.GetEmail())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve refresh subject")
	}

	if user.Disabled {
		return nil, ErrAccountDisabled
	}

	body := claims.body()

	if s.rederive || (len(body.Scopes) == 0 && len(body.Roles) == 0 && body.ClientID == "") {
		scopes, roleNames, err := s.deriveAuthority(ctx, user)
		if err != nil {
			return nil, err
		}
		body.Scopes = scopes
		body.Roles = roleNames
	}

	pair, err := s.encodePair(body)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, ActivityEventTokenRefreshed, user, map[string]any{
		"client_id": body.ClientID,
	})

	return pair, nil
}

func (s *SessionIssuer) encodePair(body SessionClaims) (*TokenPair, error) {
	access := body.body()
	accessToken, accessExpires, err := s.codec.Encode(&access, TokenClassAccess)
	if err != nil {
		return nil, err
	}

	refresh := body.body()
	refreshToken, refreshExpires, err := s.codec.Encode(&refresh, TokenClassRefresh)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:    accessToken,
		AccessExpires:  accessExpires,
		RefreshToken:   refreshToken,
		RefreshExpires: refreshExpires,
	}, nil
}

// deriveAuthority expands every resolved role into "{role}:{scope}"
// strings and collects role names. The namespacing prevents collisions
// across roles with identically named permissions. Dangling refs resolve
// to nothing.
func (s *SessionIssuer) deriveAuthority(ctx context.Context, user *User) ([]string, []string, error) {
	roles, err := s.roles.GetByIDs(ctx, user.RoleRefs)
	if err != nil {
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve roles for issuance")
	}

	var scopes, names []string
	for _, role := range roles {
		names = append(names, role.Name)
		for _, scope := range role.Scopes {
			scopes = append(scopes, fmt.Sprintf("%s:%s", role.Name, scope))
		}
	}

	return scopes, names, nil
}

func (s *SessionIssuer) recordLogin(ctx context.Context, session *ResolvedSession) {
	event := LoginEvent{
		Source:     loginSource(session.Method),
		Provider:   session.Provider,
		OccurredAt: s.cfg.now(),
	}

	if err := s.users.RecordLogin(ctx, session.User, event); err != nil {
		// Bookkeeping only; a persistence failure must not fail the login.
		s.logger.Warn("failed to record login event", "user_id", session.User.ID, "error", err)
	}

	s.emit(ctx, ActivityEventLoginSuccess, session.User, map[string]any{
		"source":   event.Source,
		"provider": event.Provider,
	})
}

func (s *SessionIssuer) emit(ctx context.Context, eventType ActivityEventType, user *User, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		Actor:      ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:     user.ID.String(),
		Metadata:   metadata,
		OccurredAt: s.cfg.now(),
	}

	if err := s.activity.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func loginSource(method AuthMethod) string {
	switch method {
	case AuthMethodClientCredential:
		return LoginSourceAPIKey
	case AuthMethodSocial:
		return LoginSourceSocial
	case AuthMethodMagicLink:
		return LoginSourceMagicLink
	default:
		return LoginSourcePassword
	}
}
