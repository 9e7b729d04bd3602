package authcore

import (
	"bytes"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// AdminRoleDefault is the reserved role name that bypasses scope checks.
const AdminRoleDefault = "admin"

const (
	defaultAccessTokenTTL  = 30 * time.Minute
	defaultRefreshTokenTTL = 60 * time.Minute
	defaultMagicLinkTTL    = 60 * time.Minute
)

// Config carries every policy knob for the auth core. It is passed
// explicitly to constructors; nothing reads ambient global state, so tests
// can fix keys and clocks.
type Config struct {
	// Signing keys, one per token class. They must be distinct: a leaked
	// refresh key must not be able to mint access tokens.
	AccessSigningKey    []byte
	RefreshSigningKey   []byte
	MagicLinkSigningKey []byte

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	MagicLinkTTL    time.Duration

	Issuer string

	// AdminRole is the reserved role name granting the global bypass.
	// Empty means AdminRoleDefault.
	AdminRole string

	// AllowNewUsers permits social logins to provision unknown emails.
	AllowNewUsers bool

	// MagicLinkEnabled toggles the magic-link workflow.
	MagicLinkEnabled bool

	PasswordPolicy PasswordPolicy

	// Now overrides the clock. Nil means time.Now. Expiry comparisons use
	// UTC with no skew allowance.
	Now func() time.Time
}

// Validate checks that the configuration can safely sign tokens.
func (c Config) Validate() error {
	if len(c.AccessSigningKey) == 0 {
		return goerrors.New("access signing key is required", goerrors.CategoryValidation)
	}
	if len(c.RefreshSigningKey) == 0 {
		return goerrors.New("refresh signing key is required", goerrors.CategoryValidation)
	}
	if len(c.MagicLinkSigningKey) == 0 {
		return goerrors.New("magic link signing key is required", goerrors.CategoryValidation)
	}

	if bytes.Equal(c.AccessSigningKey, c.RefreshSigningKey) ||
		bytes.Equal(c.AccessSigningKey, c.MagicLinkSigningKey) ||
		bytes.Equal(c.RefreshSigningKey, c.MagicLinkSigningKey) {
		return goerrors.New("signing keys must be distinct per token class", goerrors.CategoryValidation)
	}

	return nil
}

func (c Config) adminRole() string {
	if c.AdminRole != "" {
		return c.AdminRole
	}
	return AdminRoleDefault
}

func (c Config) accessTTL() time.Duration {
	if c.AccessTokenTTL > 0 {
		return c.AccessTokenTTL
	}
	return defaultAccessTokenTTL
}

func (c Config) refreshTTL() time.Duration {
	if c.RefreshTokenTTL > 0 {
		return c.RefreshTokenTTL
	}
	return defaultRefreshTokenTTL
}

func (c Config) magicLinkTTL() time.Duration {
	if c.MagicLinkTTL > 0 {
		return c.MagicLinkTTL
	}
	return defaultMagicLinkTTL
}

func (c Config) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}
