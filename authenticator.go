package authcore

import (
	"context"
)

// Auther is the outbound surface exposed to the transport layer: login,
// refresh, magic-link request/consume, and scope authorization. Each
// method maps one-to-one onto a protocol endpoint owned by the excluded
// transport layer.
type Auther struct {
	resolver   *Resolver
	issuer     *SessionIssuer
	authorizer *Authorizer
	magic      *MagicLinkService
	cfg        Config
	logger     Logger
	activity   ActivitySink
}

// NewAuther wires the full core over its collaborator stores.
func NewAuther(users UserStore, roles RoleStore, links MagicLinkStore, mailer Mailer, cfg Config) (*Auther, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	codec := NewTokenCodec(cfg)

	return &Auther{
		resolver:   NewResolver(users, codec, cfg),
		issuer:     NewSessionIssuer(codec, users, roles, cfg),
		authorizer: NewAuthorizer(roles, cfg),
		magic:      NewMagicLinkService(codec, users, links, mailer, cfg),
		cfg:        cfg,
		logger:     defLogger{},
		activity:   noopActivitySink{},
	}, nil
}

func (a *Auther) WithLogger(logger Logger) *Auther {
	a.logger = normalizeLogger(logger)
	a.resolver.WithLogger(logger)
	a.issuer.WithLogger(logger)
	a.authorizer.WithLogger(logger)
	a.magic.WithLogger(logger)
	return a
}

// WithActivitySink configures the audit sink on every component.
func (a *Auther) WithActivitySink(sink ActivitySink) *Auther {
	a.activity = normalizeActivitySink(sink)
	a.issuer.WithActivitySink(sink)
	a.magic.WithActivitySink(sink)
	return a
}

// WithSocialVerifier wires the provider assertion verifier.
func (a *Auther) WithSocialVerifier(verifier SocialVerifier) *Auther {
	a.resolver.WithSocialVerifier(verifier)
	return a
}

// Resolver exposes the resolver for transport middleware that needs to
// resolve bearer tokens without minting sessions.
func (a *Auther) Resolver() *Resolver {
	return a.resolver
}

// Issuer exposes the session issuer.
func (a *Auther) Issuer() *SessionIssuer {
	return a.issuer
}

// Login resolves the attempt and mints a token pair. All failures are
// caller-visible rejections; nothing is retried.
func (a *Auther) Login(ctx context.Context, attempt LoginAttempt) (*TokenPair, error) {
	session, err := a.resolver.Resolve(ctx, attempt)
	if err != nil {
		a.logger.Warn("login rejected", "error", err)
		a.emitFailure(ctx, err)
		return nil, err
	}

	if session.Provider == "" {
		session.Provider = string(session.Method)
	}

	return a.issuer.IssuePair(ctx, session)
}

// Refresh exchanges a refresh token for a new pair.
func (a *Auther) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	return a.issuer.Refresh(ctx, refreshToken)
}

// RequestMagicLink starts the out-of-band single-use token flow.
func (a *Auther) RequestMagicLink(ctx context.Context, identifier string, purpose MagicLinkPurpose) error {
	return a.magic.Request(ctx, MagicLinkRequest{Identifier: identifier, Purpose: purpose})
}

// ConsumeMagicLink validates and consumes a magic-link token, then mints a
// session pair for the subject.
func (a *Auther) ConsumeMagicLink(ctx context.Context, token string) (*TokenPair, error) {
	subject, err := a.magic.Consume(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := a.resolver.users.GetByEmail(ctx, subject)
	if err != nil {
		return nil, ErrIdentityNotFound
	}

	if user.Disabled {
		return nil, ErrAccountDisabled
	}

	session := &ResolvedSession{User: user, Method: AuthMethodMagicLink, Provider: "email"}

	return a.issuer.IssuePair(ctx, session)
}

// Authorize gates a resolved session on a required scope.
func (a *Auther) Authorize(ctx context.Context, session *ResolvedSession, requiredScope string) error {
	return a.authorizer.Authorize(ctx, session, requiredScope)
}

func (a *Auther) emitFailure(ctx context.Context, cause error) {
	event := ActivityEvent{
		EventType:  ActivityEventLoginFailure,
		Actor:      ActorRef{Type: "unknown"},
		Metadata:   map[string]any{"error": cause.Error()},
		OccurredAt: a.cfg.now(),
	}

	if err := a.activity.Record(ctx, event); err != nil {
		a.logger.Warn("activity sink record error: %v", err)
	}
}
