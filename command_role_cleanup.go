package authcore

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// RoleCleanupMessage asks for the referential-integrity sweep that removes
// a deleted role's id from every user still referencing it.
type RoleCleanupMessage struct {
	RoleID uuid.UUID `json:"role_id"`
}

func (e RoleCleanupMessage) Type() string { return "role.referential_cleanup" }

// RoleCleanupHandler runs the sweep. It is fire-and-forget background
// work: a partial failure logs the affected user ids for manual
// remediation and never rolls back the role deletion itself. Readers
// degrade gracefully in the meantime because dangling refs resolve to
// zero scopes.
type RoleCleanupHandler struct {
	users    UserStore
	logger   Logger
	activity ActivitySink
}

// NewRoleCleanupHandler creates a handler with sane defaults.
func NewRoleCleanupHandler(users UserStore) *RoleCleanupHandler {
	return &RoleCleanupHandler{
		users:    users,
		logger:   defLogger{},
		activity: noopActivitySink{},
	}
}

func (h *RoleCleanupHandler) WithLogger(logger Logger) *RoleCleanupHandler {
	h.logger = normalizeLogger(logger)
	return h
}

// WithActivitySink sets the sink used to emit cleanup events.
func (h *RoleCleanupHandler) WithActivitySink(sink ActivitySink) *RoleCleanupHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *RoleCleanupHandler) Execute(ctx context.Context, event RoleCleanupMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during role cleanup",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RoleCleanupHandler) execute(ctx context.Context, event RoleCleanupMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	holders, err := h.users.FindByRoleRef(ctx, event.RoleID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list users holding deleted role")
	}

	var failed []string
	for _, user := range holders {
		if !user.RemoveRoleRef(event.RoleID) {
			continue
		}

		if err := h.users.Save(ctx, user); err != nil {
			failed = append(failed, user.ID.String())
			h.logger.Error("role cleanup failed for user", "user_id", user.ID, "role_id", event.RoleID, "error", err)
		}
	}

	h.recordActivity(ctx, event.RoleID, len(holders), failed)

	if len(failed) > 0 {
		return goerrors.New("role cleanup completed with failures", goerrors.CategoryOperation).
			WithMetadata(map[string]any{
				"role_id":         event.RoleID.String(),
				"failed_user_ids": failed,
			})
	}

	return nil
}

func (h *RoleCleanupHandler) recordActivity(ctx context.Context, roleID uuid.UUID, total int, failed []string) {
	event := ActivityEvent{
		EventType: ActivityEventRoleCleanup,
		Actor:     ActorRef{Type: "system"},
		Metadata: map[string]any{
			"role_id":         roleID.String(),
			"holders":         total,
			"failed_user_ids": failed,
		},
		OccurredAt: time.Now().UTC(),
	}

	if err := h.activity.Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during role cleanup: %v", err)
	}
}

// DeleteRole removes the role and kicks off the referential sweep in the
// background. The deletion itself is not held back by the sweep.
func DeleteRole(ctx context.Context, roles RoleStore, cleanup *RoleCleanupHandler, roleID uuid.UUID) error {
	if err := roles.Delete(ctx, roleID); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete role")
	}

	go func() {
		bg, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if err := cleanup.Execute(bg, RoleCleanupMessage{RoleID: roleID}); err != nil {
			cleanup.logger.Error("background role cleanup error", "role_id", roleID, "error", err)
		}
	}()

	return nil
}
