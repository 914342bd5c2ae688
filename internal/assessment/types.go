package assessment

import (
	"context"
	"errors"
	"time"

	"csfcompass.org/internal/scoring"
)

// Type scopes an assessment to the organization itself or to a vendor.
type Type string

const (
	TypeOrganization Type = "organization"
	TypeVendor       Type = "vendor"
)

// Status is the assessment lifecycle state.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusArchived   Status = "archived"
)

// Control is one entry of the reference framework vocabulary.
type Control struct {
	ID       string `json:"id"`
	Function string `json:"function"`
	Category string `json:"category"`
	Name     string `json:"name"`
}

// Catalog exposes the stable reference control vocabulary.
type Catalog interface {
	Controls(ctx context.Context) ([]Control, error)
}

// Assessment is a named collection of control evaluations. A vendor-typed
// assessment must reference a vendor. LinkedAssessmentID ties the two halves
// of a delegated pair together and is empty otherwise.
type Assessment struct {
	ID                 string     `json:"id"`
	OrganizationID     string     `json:"organization_id"`
	Name               string     `json:"name"`
	Type               Type       `json:"type"`
	VendorID           string     `json:"vendor_id,omitempty"`
	Status             Status     `json:"status"`
	Score              float64    `json:"score"`
	LinkedAssessmentID string     `json:"linked_assessment_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// Item is one control evaluation inside an assessment. Exactly one item
// exists per (assessment, control) pair.
type Item struct {
	ID           string         `json:"id"`
	AssessmentID string         `json:"assessment_id"`
	ControlID    string         `json:"control_id"`
	Status       scoring.Status `json:"status"`
	Notes        string         `json:"notes,omitempty"`
	Evidence     string         `json:"evidence,omitempty"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ItemUpdate is the allow-list of mutable item fields; nil fields are left
// untouched. Nothing outside this set is writable through an update.
type ItemUpdate struct {
	Status   *scoring.Status `json:"status,omitempty"`
	Notes    *string         `json:"notes,omitempty"`
	Evidence *string         `json:"evidence,omitempty"`
}

// ProgressRecord tracks one workflow step of an assessment.
type ProgressRecord struct {
	ID           string     `json:"id"`
	AssessmentID string     `json:"assessment_id"`
	Step         string     `json:"step"`
	Completed    bool       `json:"completed"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// ProgressSteps are created incomplete alongside every new assessment.
var ProgressSteps = []string{
	"getting_started",
	"control_review",
	"evidence_collection",
	"final_review",
}

var (
	ErrNotFound      = errors.New("assessment not found")
	ErrItemNotFound  = errors.New("assessment item not found")
	ErrInvalidType   = errors.New("assessment is not delegable to a vendor")
	ErrInvalidStatus = errors.New("invalid item status")
)

// Store persists assessments, their items and progress records.
type Store interface {
	// CreateAssessment inserts the assessment with its full item set and
	// progress records atomically.
	CreateAssessment(ctx context.Context, a Assessment, items []Item, progress []ProgressRecord) error
	// CreateClone is CreateAssessment plus the bidirectional linkage with
	// sourceID, all of it atomic: an observer sees either nothing or a
	// fully-formed clone.
	CreateClone(ctx context.Context, clone Assessment, items []Item, progress []ProgressRecord, sourceID string) error
	GetAssessment(ctx context.Context, id string) (Assessment, error)
	ListAssessments(ctx context.Context, organizationID string) ([]Assessment, error)
	SetAssessmentStatus(ctx context.Context, id string, status Status, completedAt *time.Time) error
	SetScore(ctx context.Context, id string, score float64) error
	ListItems(ctx context.Context, assessmentID string) ([]Item, error)
	GetItem(ctx context.Context, itemID string) (Item, error)
	UpdateItem(ctx context.Context, itemID string, upd ItemUpdate) (Item, error)
	ListProgress(ctx context.Context, assessmentID string) ([]ProgressRecord, error)
}
