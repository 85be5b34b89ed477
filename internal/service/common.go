package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/agency-dashboard/internal/domain"
	"github.com/spec-kit/agency-dashboard/internal/events"
	"github.com/spec-kit/agency-dashboard/internal/identity"
	"github.com/spec-kit/agency-dashboard/internal/repository"
	apperrors "github.com/spec-kit/agency-dashboard/pkg/util/errorutil"
)

type actorKey struct{}

// WithActor attaches the acting operator to ctx.
func WithActor(ctx context.Context, actor events.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the acting operator, if any.
func ActorFromContext(ctx context.Context) events.Actor {
	actor, _ := ctx.Value(actorKey{}).(events.Actor)
	return actor
}

var (
	phonePattern = regexp.MustCompile(`^\d{10}$`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// fieldErrors collects validation failures before any write happens.
type fieldErrors map[string]any

func (f fieldErrors) require(field, value string) {
	if strings.TrimSpace(value) == "" {
		f[field] = "required"
	}
}

func (f fieldErrors) email(field, value string) {
	if value != "" && !emailPattern.MatchString(strings.TrimSpace(value)) {
		f[field] = "invalid email"
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return apperrors.NewValidationError("validation failed", map[string]any(f))
}

// storeError maps store failures onto the API taxonomy.
func storeError(resource string, err error) error {
	if err == nil {
		return nil
	}
	if repository.IsNotFound(err) {
		return apperrors.NewNotFound(resource, nil)
	}
	return apperrors.MapError(err)
}

// resolveAssignment canonicalizes ref once at write time. An empty ref
// clears the assignment; an unknown one is a validation error.
func resolveAssignment(ref string, employees []domain.Employee) (identity.Assignment, error) {
	a, ok := identity.Canonicalize(ref, employees)
	if !ok {
		return identity.Assignment{}, apperrors.NewValidationError("unknown employee", map[string]any{"assignedTo": strings.TrimSpace(ref)})
	}
	return a, nil
}

func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, eventType events.EventType, subjectID string, payload any) {
	if dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Actor:     ActorFromContext(ctx),
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	if err := dispatcher.Publish(ctx, event); err != nil && logger != nil {
		logger.Warn("publish event failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

func nopIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
