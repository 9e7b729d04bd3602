package authcore

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// MagicLinkRequest is the inbound message asking for a single-use link.
type MagicLinkRequest struct {
	Identifier string           `json:"identifier"`
	Purpose    MagicLinkPurpose `json:"purpose"`
}

func (r MagicLinkRequest) Type() string { return "auth.magic_link_request" }

// Validate checks the message shape before any store access.
func (r MagicLinkRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Identifier, validation.Required, is.Email),
		validation.Field(&r.Purpose, validation.Required, validation.By(func(value any) error {
			if p, ok := value.(MagicLinkPurpose); !ok || !p.IsValid() {
				return goerrors.New("unknown magic link purpose", goerrors.CategoryBadInput)
			}
			return nil
		})),
	)
}

// MagicLinkService issues and consumes single-use, short-lived tokens
// bound to an identifier and purpose.
//
// State: issued -> consumed (terminal) via Consume, or issued -> expired
// implicitly through the token TTL.
type MagicLinkService struct {
	codec    *TokenCodec
	users    UserStore
	links    MagicLinkStore
	mailer   Mailer
	cfg      Config
	logger   Logger
	activity ActivitySink
}

// NewMagicLinkService wires the workflow over its collaborator stores and
// the email sink.
func NewMagicLinkService(codec *TokenCodec, users UserStore, links MagicLinkStore, mailer Mailer, cfg Config) *MagicLinkService {
	return &MagicLinkService{
		codec:    codec,
		users:    users,
		links:    links,
		mailer:   normalizeMailer(mailer),
		cfg:      cfg,
		logger:   defLogger{},
		activity: noopActivitySink{},
	}
}

func (m *MagicLinkService) WithLogger(logger Logger) *MagicLinkService {
	m.logger = normalizeLogger(logger)
	return m
}

// WithActivitySink configures an ActivitySink for emitting link events.
func (m *MagicLinkService) WithActivitySink(sink ActivitySink) *MagicLinkService {
	m.activity = normalizeActivitySink(sink)
	return m
}

// Request creates a nonce-keyed link record, signs the matching token, and
// hands the rendered message to the email collaborator. The raw token is
// never returned to the caller; delivery is out-of-band only.
func (m *MagicLinkService) Request(ctx context.Context, req MagicLinkRequest) error {
	if !m.cfg.MagicLinkEnabled {
		return ErrMagicLinkDisabled
	}

	if err := req.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid magic link request")
	}

	user, err := m.users.GetByEmail(ctx, req.Identifier)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrIdentityNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for magic link")
	}

	// Social-only accounts have no password to reset and no magic-login
	// applicability.
	if !user.IsPasswordBased() {
		return goerrors.New("account is not password based", goerrors.CategoryValidation).
			WithTextCode("NOT_PASSWORD_BASED")
	}

	nonce := uuid.New()

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: user.Email},
		Purpose:          req.Purpose,
		Nonce:            nonce.String(),
	}

	token, expiresAt, err := m.codec.Encode(claims, TokenClassMagicLink)
	if err != nil {
		return err
	}

	link := &MagicLink{
		Nonce:      nonce,
		Identifier: user.Email,
		Purpose:    req.Purpose,
		ExpiresAt:  expiresAt,
	}

	if err := m.links.Create(ctx, link); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist magic link record")
	}

	if err := m.mailer.Send(ctx, renderMagicLinkEmail(user.Email, req.Purpose, token)); err != nil {
		// Delivery failures are non-fatal to the request that triggered them.
		m.logger.Error("magic link email delivery failed", "identifier", user.Email, "error", err)
	}

	m.emit(ctx, ActivityEventMagicLinkIssued, user.Email, map[string]any{
		"purpose": string(req.Purpose),
	})

	return nil
}

// Consume validates a presented token and atomically marks the underlying
// record consumed. Exactly one of two concurrent consumptions succeeds;
// the loser gets ErrAlreadyConsumed. Returns the subject for the caller to
// mint a session.
func (m *MagicLinkService) Consume(ctx context.Context, token string) (string, error) {
	claims, err := m.codec.Decode(token, TokenClassMagicLink)
	if err != nil {
		return "", err
	}

	nonce, err := uuid.Parse(claims.Nonce)
	if err != nil {
		return "", ErrTokenMalformed
	}

	link, err := m.links.Consume(ctx, nonce)
	if err != nil {
		return "", err
	}

	if link.Identifier != claims.GetEmail() || link.Purpose != claims.Purpose {
		// Record and token disagree; treat as tampering.
		m.logger.Error("magic link record mismatch", "nonce", claims.Nonce)
		return "", ErrTokenMalformed
	}

	m.emit(ctx, ActivityEventMagicLinkConsumed, link.Identifier, map[string]any{
		"purpose": string(link.Purpose),
	})

	return claims.GetEmail(), nil
}

func (m *MagicLinkService) emit(ctx context.Context, eventType ActivityEventType, identifier string, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		Actor:      ActorRef{ID: identifier, Type: "user"},
		Metadata:   metadata,
		OccurredAt: m.cfg.now(),
	}

	if err := m.activity.Record(ctx, event); err != nil {
		m.logger.Warn("activity sink record error: %v", err)
	}
}
