package authcore

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/nyaruka/phonenumbers"
)

type RegisterUserMessage struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	// PhoneRegion is the default region for parsing national numbers.
	// Empty means US.
	PhoneRegion string `json:"phone_region"`
	UseHashid   bool
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate checks shape only; password strength is policy-driven and
// checked by the handler.
func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Length(0, 200)),
		validation.Field(&e.Email, validation.Required, validation.Length(6, 100), is.Email),
	)
}

type RegisterUserHandler struct {
	users  UserStore
	cfg    Config
	logger Logger
}

// NewRegisterUserHandler creates a handler with sane defaults.
func NewRegisterUserHandler(users UserStore, cfg Config) *RegisterUserHandler {
	return &RegisterUserHandler{
		users:  users,
		cfg:    cfg,
		logger: defLogger{},
	}
}

func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	h.logger = normalizeLogger(logger)
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration input")
	}

	user := &User{
		Email: event.Email,
		Name:  event.Name,
		Phone: normalizePhone(event.Phone, event.PhoneRegion),
	}

	if event.Password != "" {
		if violations := h.cfg.PasswordPolicy.Check(event.Password); len(violations) > 0 {
			return goerrors.New("password does not meet policy", goerrors.CategoryValidation).
				WithMetadata(map[string]any{"violations": violations})
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}
		user.PasswordHash = hash
	} else {
		// No password supplied: seed an unguessable placeholder so the
		// account must go through the recovery flow before logging in.
		user.PasswordHash = RandomPasswordHash()
	}

	if event.UseHashid {
		if id, err := hashid.NewUUID(event.Email); err == nil {
			user.ID = id
		}
	}

	if _, err := h.users.Create(ctx, user); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
	}

	return nil
}

func normalizePhone(phone, region string) string {
	if phone == "" {
		return ""
	}

	if region == "" {
		region = "US"
	}

	parsed, err := phonenumbers.Parse(strings.TrimSpace(phone), region)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return phone
	}

	return phonenumbers.Format(parsed, phonenumbers.E164)
}
