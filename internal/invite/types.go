package invite

import (
	"context"
	"time"
)

// Status is the stored invitation lifecycle state. expired is deliberately
// absent: it is derived from the token's self-contained expiry at
// validation time and never written.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccessed  Status = "accessed"
	StatusCompleted Status = "completed"
	StatusRevoked   Status = "revoked"
)

// Invitation binds one organization assessment to its cloned vendor copy
// and one external contact. The access token is the sole credential the
// contact ever holds; it is reusable so the link survives multiple devices
// and sessions.
type Invitation struct {
	ID                 string     `json:"id"`
	OrganizationID     string     `json:"organization_id"`
	OrgAssessmentID    string     `json:"org_assessment_id"`
	VendorAssessmentID string     `json:"vendor_assessment_id"`
	VendorID           string     `json:"vendor_id"`
	ContactEmail       string     `json:"contact_email"`
	ContactName        string     `json:"contact_name,omitempty"`
	Message            string     `json:"message,omitempty"`
	AccessToken        string     `json:"-"`
	TokenExpiresAt     time.Time  `json:"token_expires_at"`
	Status             Status     `json:"status"`
	SentAt             time.Time  `json:"sent_at"`
	AccessedAt         *time.Time `json:"accessed_at,omitempty"`
	LastAccessedAt     *time.Time `json:"last_accessed_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	RevokedAt          *time.Time `json:"revoked_at,omitempty"`
	RevokedBy          string     `json:"revoked_by,omitempty"`
}

// Store persists invitations. The conditional operations are written so
// concurrent callers cannot lose or double-apply a transition.
type Store interface {
	InsertInvitation(ctx context.Context, inv Invitation) error
	GetInvitation(ctx context.Context, id string) (Invitation, error)
	// GetInvitationByAssessment returns the most recently sent invitation
	// for the organization assessment. Latest-wins by design: dispatching
	// again supersedes earlier invitations without deleting them.
	GetInvitationByAssessment(ctx context.Context, orgAssessmentID string) (Invitation, error)
	// MarkAccessed flips pending to accessed and records accessed_at, but
	// only if the invitation is still pending. Reports whether this call
	// performed the flip.
	MarkAccessed(ctx context.Context, id string, at time.Time) (bool, error)
	// TouchLastAccessed records at with most-recent-write-wins semantics.
	TouchLastAccessed(ctx context.Context, id string, at time.Time) error
	// MarkInvitationCompleted stamps completion unless the invitation is
	// already revoked; revoked is terminal and must never be overwritten.
	// Reports whether the stamp was applied.
	MarkInvitationCompleted(ctx context.Context, id string, at time.Time) (bool, error)
	// RevokeInvitation moves pending or accessed to revoked. Reports
	// whether this call performed the transition.
	RevokeInvitation(ctx context.Context, id string, at time.Time, revokedBy string) (bool, error)
}
