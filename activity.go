package portal

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventSignUpSuccess   ActivityEventType = "auth.signup.success"
	ActivityEventSignUpFailure   ActivityEventType = "auth.signup.failure"
	ActivityEventSignInSuccess   ActivityEventType = "auth.signin.success"
	ActivityEventSignInFailure   ActivityEventType = "auth.signin.failure"
	ActivityEventLogout          ActivityEventType = "auth.logout"
	ActivityEventProfileUpdated  ActivityEventType = "user.profile.updated"
	ActivityEventPasswordChanged ActivityEventType = "user.password.changed"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	UserID     string
	Email      string
	Session    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// LoggerActivitySink writes events to a Logger at info level.
func LoggerActivitySink(l Logger) ActivitySink {
	l = normalizeLogger(l)
	return ActivitySinkFunc(func(_ context.Context, e ActivityEvent) error {
		l.Info("activity",
			"event", string(e.EventType),
			"user_id", e.UserID,
			"session", e.Session,
			"occurred_at", e.OccurredAt.Format(time.RFC3339),
		)
		return nil
	})
}

func recordActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := normalizeActivitySink(sink).Record(ctx, event); err != nil {
		normalizeLogger(logger).Warn("activity sink failed", "event", string(event.EventType), "error", err)
	}
}
