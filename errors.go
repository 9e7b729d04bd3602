package authcore

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeAccountDisabled    = "ACCOUNT_DISABLED"
	TextCodeInvalidAPIKey      = "INVALID_API_KEY"
	TextCodeInvalidSignature   = "INVALID_SIGNATURE"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeAlreadyConsumed    = "LINK_ALREADY_CONSUMED"
	TextCodeMissingScope       = "MISSING_SCOPE"
	TextCodeMissingAPIKeyScope = "MISSING_API_KEY_SCOPE"
	TextCodeNoRolesAssigned    = "NO_ROLES_ASSIGNED"
	TextCodeRegistrationClosed = "REGISTRATION_CLOSED"
)

// ErrIdentityNotFound is returned when no identity matches the identifier.
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode("IDENTITY_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// ErrInvalidCredentials is returned when a password or secret does not match.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials)

// ErrAccountDisabled is returned when the resolved identity is disabled.
var ErrAccountDisabled = goerrors.New("account is disabled", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountDisabled)

// ErrInvalidAPIKey covers unknown client ids, bad secrets, inactive grants,
// and the ambiguous-owner integrity fault. The ambiguous case is logged
// distinctly but surfaces identically to callers.
var ErrInvalidAPIKey = goerrors.New("invalid API key", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidAPIKey)

// ErrAmbiguousClientID signals that more than one user owns a client id.
// Stores return it so callers can flag the corruption before mapping the
// failure to ErrInvalidAPIKey.
var ErrAmbiguousClientID = goerrors.New("client id owned by more than one user", goerrors.CategoryInternal).
	WithTextCode("AMBIGUOUS_CLIENT_ID")

// ErrInvalidSignature is returned when a token's signature does not verify
// under the expected key class. Covers tampering and wrong-class use.
var ErrInvalidSignature = goerrors.New("token signature is invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidSignature)

// ErrTokenMalformed is returned when a token cannot be parsed into claims.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryBadInput).
	WithTextCode(TextCodeTokenMalformed)

// ErrTokenExpired is returned when a correctly signed token is past its
// expiry.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired)

// ErrAlreadyConsumed is returned on a second consumption attempt of a
// magic link.
var ErrAlreadyConsumed = goerrors.New("magic link already consumed", goerrors.CategoryConflict).
	WithTextCode(TextCodeAlreadyConsumed).
	WithCode(goerrors.CodeConflict)

// ErrMagicLinkNotFound is returned when no record matches a token's nonce.
var ErrMagicLinkNotFound = goerrors.New("magic link not found", goerrors.CategoryNotFound).
	WithTextCode("LINK_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// ErrMagicLinkDisabled is returned when the workflow is turned off by
// configuration.
var ErrMagicLinkDisabled = goerrors.New("magic link flow is disabled", goerrors.CategoryOperation).
	WithTextCode("MAGIC_LINK_DISABLED")

// ErrMissingScope is returned when no resolved role grants the required
// scope.
var ErrMissingScope = goerrors.New("missing required scope", goerrors.CategoryAuth).
	WithTextCode(TextCodeMissingScope)

// ErrMissingAPIKeyScope is returned when the authenticating grant does not
// carry the required scope.
var ErrMissingAPIKeyScope = goerrors.New("missing required API key scope", goerrors.CategoryAuth).
	WithTextCode(TextCodeMissingAPIKeyScope)

// ErrNoRolesAssigned is returned when a role-based check finds no
// resolvable roles on the identity.
var ErrNoRolesAssigned = goerrors.New("no roles assigned", goerrors.CategoryAuth).
	WithTextCode(TextCodeNoRolesAssigned)

// ErrRegistrationClosed is returned when a social login would provision a
// new account but policy forbids it.
var ErrRegistrationClosed = goerrors.New("new registrations are not allowed", goerrors.CategoryAuth).
	WithTextCode(TextCodeRegistrationClosed)

// ErrNoEmptyString rejects empty input where a value is mandatory.
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryBadInput).
	WithTextCode("EMPTY_VALUE")

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed")
}

// IsAuthRejection reports whether an error is a caller-visible
// authentication or authorization rejection rather than an internal fault.
func IsAuthRejection(err error) bool {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	return rich.Category == goerrors.CategoryAuth
}
