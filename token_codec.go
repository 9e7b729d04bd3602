package authcore

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// TokenClass selects the signing key and TTL used for a token. The three
// classes are signed with independent keys, so presenting a token of one
// class against another fails signature validation.
type TokenClass string

const (
	TokenClassAccess    TokenClass = "access"
	TokenClassRefresh   TokenClass = "refresh"
	TokenClassMagicLink TokenClass = "magic_link"
)

// TokenCodec encodes and decodes signed, expiring claim sets. Encode and
// Decode are pure over the configured keys and clock; codecs are safe for
// concurrent use.
type TokenCodec struct {
	cfg    Config
	logger Logger
}

// NewTokenCodec creates a codec from an explicit configuration.
func NewTokenCodec(cfg Config) *TokenCodec {
	return &TokenCodec{
		cfg:    cfg,
		logger: defLogger{},
	}
}

func (c *TokenCodec) WithLogger(logger Logger) *TokenCodec {
	c.logger = normalizeLogger(logger)
	return c
}

func (c *TokenCodec) classKey(class TokenClass) ([]byte, error) {
	switch class {
	case TokenClassAccess:
		return c.cfg.AccessSigningKey, nil
	case TokenClassRefresh:
		return c.cfg.RefreshSigningKey, nil
	case TokenClassMagicLink:
		return c.cfg.MagicLinkSigningKey, nil
	default:
		return nil, goerrors.New("unknown token class", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"class": string(class)})
	}
}

func (c *TokenCodec) classTTL(class TokenClass) time.Duration {
	switch class {
	case TokenClassRefresh:
		return c.cfg.refreshTTL()
	case TokenClassMagicLink:
		return c.cfg.magicLinkTTL()
	default:
		return c.cfg.accessTTL()
	}
}

// Encode stamps issued-at and expiry from the configured clock, signs the
// claims under the class key, and returns the compact token with its
// expiry.
func (c *TokenCodec) Encode(claims *SessionClaims, class TokenClass) (string, time.Time, error) {
	if claims == nil {
		return "", time.Time{}, goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	key, err := c.classKey(class)
	if err != nil {
		return "", time.Time{}, err
	}

	now := c.cfg.now()
	expiresAt := now.Add(c.classTTL(class))

	claims.RegisteredClaims.Issuer = c.cfg.Issuer
	claims.RegisteredClaims.IssuedAt = jwt.NewNumericDate(now)
	claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(expiresAt)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(key)
	if err != nil {
		return "", time.Time{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign token")
	}

	return signed, expiresAt, nil
}

// Decode verifies the signature under the class key, then schema, then
// expiry. Failures map to ErrInvalidSignature, ErrTokenMalformed, and
// ErrTokenExpired respectively. Expiry is compared against the configured
// UTC clock with no skew allowance.
func (c *TokenCodec) Decode(tokenString string, class TokenClass) (*SessionClaims, error) {
	return c.decode(tokenString, class, true)
}

// DecodeSignatureOnly verifies signature and schema but skips the expiry
// check. Refresh exchanges use it to classify an expired-but-genuine token
// apart from a forged one.
func (c *TokenCodec) DecodeSignatureOnly(tokenString string, class TokenClass) (*SessionClaims, error) {
	return c.decode(tokenString, class, false)
}

func (c *TokenCodec) decode(tokenString string, class TokenClass, checkExpiry bool) (*SessionClaims, error) {
	key, err := c.classKey(class)
	if err != nil {
		return nil, err
	}

	// Expiry is checked separately so signature faults always win.
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			c.logger.Error("token codec rejected unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, jwt.WithoutClaimsValidation())

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrInvalidSignature
		}
		return nil, ErrTokenMalformed
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}

	if claims.RegisteredClaims.Subject == "" || claims.RegisteredClaims.ExpiresAt == nil {
		return nil, ErrTokenMalformed
	}

	if checkExpiry && claims.Expires().Before(c.cfg.now()) {
		return nil, ErrTokenExpired
	}

	return claims, nil
}
