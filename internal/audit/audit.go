package audit

import (
	"context"
	"sync"
	"time"

	"csfcompass.org/internal/ids"
	"csfcompass.org/internal/obs"
)

// Action is the closed vocabulary of security-relevant workflow events.
type Action string

const (
	ActionTokenValidated      Action = "token_validated"
	ActionTokenRejected       Action = "token_rejected"
	ActionTokenExpired        Action = "token_expired"
	ActionStatusUpdated       Action = "status_updated"
	ActionAssessmentSubmitted Action = "assessment_submitted"
	ActionRateLimited         Action = "rate_limited"
	ActionTokenRevoked        Action = "token_revoked"
)

// Event is one immutable audit trail row. The application only ever
// appends events; nothing updates or deletes them.
type Event struct {
	ID           string         `json:"id"`
	InvitationID string         `json:"invitation_id,omitempty"`
	Action       Action         `json:"action"`
	CallerIP     string         `json:"caller_ip,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Store persists audit events.
type Store interface {
	InsertEvent(ctx context.Context, ev Event) error
}

// Recorder appends audit events without ever failing the calling
// operation: a broken audit sink must not block the user-facing workflow,
// so storage errors surface only through the diagnostics logger.
type Recorder struct {
	store Store
	ids   func() string
	now   func() time.Time
}

// NewRecorder builds a Recorder over the given store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, ids: ids.New, now: time.Now}
}

// Record appends one event.
func (r *Recorder) Record(ctx context.Context, invitationID string, action Action, callerIP, userAgent string, metadata map[string]any) {
	ev := Event{
		ID:           r.ids(),
		InvitationID: invitationID,
		Action:       action,
		CallerIP:     callerIP,
		UserAgent:    userAgent,
		CreatedAt:    r.now().UTC(),
	}
	if len(metadata) > 0 {
		ev.Metadata = make(map[string]any, len(metadata))
		for k, v := range metadata {
			ev.Metadata[k] = v
		}
	}
	obs.BestEffort("audit."+string(action), func() error {
		return r.store.InsertEvent(ctx, ev)
	})
}

// InMemory keeps events in memory; used in tests and DSN-less runs.
type InMemory struct {
	mu     sync.Mutex
	events []Event
}

// NewInMemory creates an empty in-memory event store.
func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) InsertEvent(ctx context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

// Events returns a copy of the recorded events in insertion order.
func (s *InMemory) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
