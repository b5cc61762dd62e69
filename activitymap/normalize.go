// Package activitymap turns portal activity events into flat records for
// audit logs and other downstream systems.
package activitymap

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"

	portal "github.com/goliatone/go-auth-portal"
)

const (
	// MetadataKeyEmail stores the email the event was about.
	MetadataKeyEmail = "email"
	// MetadataKeySession stores the browser session id.
	MetadataKeySession = "session"
)

const (
	defaultChannel    = "portal"
	defaultObjectType = "user"
	defaultActorID    = "anonymous"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel       string
	objectType    string
	actorFallback string
}

// Normalize converts a portal.ActivityEvent into the normalized shape.
// Failed sign ins have no user id, so the actor falls back to the configured
// value.
func Normalize(event portal.ActivityEvent, opts ...Option) Normalized {
	options := normalizeOptions{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	userID := strings.TrimSpace(event.UserID)
	actorID := userID
	if actorID == "" {
		actorID = options.actorFallback
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	return Normalized{
		ActorID:    actorID,
		Verb:       string(event.EventType),
		ObjectType: options.objectType,
		ObjectID:   userID,
		Channel:    options.channel,
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt,
	}
}

// WithDefaultChannel sets the channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithDefaultObjectType sets the object type for normalized records.
func WithDefaultObjectType(objectType string) Option {
	return func(opts *normalizeOptions) {
		opts.objectType = strings.TrimSpace(objectType)
	}
}

// WithActorFallback sets the actor id used when the event has no user.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

func normalizeMetadata(event portal.ActivityEvent) map[string]any {
	var metadata map[string]any
	set := func(k string, v any) {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[k] = v
	}

	for k, v := range event.Metadata {
		set(k, v)
	}
	if email := strings.TrimSpace(event.Email); email != "" {
		if _, exists := metadata[MetadataKeyEmail]; !exists {
			set(MetadataKeyEmail, email)
		}
	}
	if sess := strings.TrimSpace(event.Session); sess != "" {
		set(MetadataKeySession, sess)
	}
	return metadata
}

// JSONSink writes one normalized record per line to w.
func JSONSink(w io.Writer, opts ...Option) portal.ActivitySink {
	var mu sync.Mutex
	enc := json.NewEncoder(w)
	return portal.ActivitySinkFunc(func(_ context.Context, e portal.ActivityEvent) error {
		mu.Lock()
		defer mu.Unlock()
		return enc.Encode(Normalize(e, opts...))
	})
}
