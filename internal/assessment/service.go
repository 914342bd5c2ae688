package assessment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"csfcompass.org/internal/ids"
	"csfcompass.org/internal/scoring"
)

// Service implements the organization-facing assessment operations. Every
// item mutation recomputes the owning assessment's score from the full item
// set rather than incrementally, so concurrent updates cannot compound
// drift.
type Service struct {
	store   Store
	catalog Catalog
	ids     func() string
	now     func() time.Time
}

// NewService wires a Service over its store and control catalog.
func NewService(store Store, catalog Catalog) *Service {
	return &Service{store: store, catalog: catalog, ids: ids.New, now: time.Now}
}

// Store exposes the underlying store to collaborating services.
func (s *Service) Store() Store { return s.store }

// CreateParams describe a new assessment.
type CreateParams struct {
	OrganizationID string
	Name           string
	Type           Type
	VendorID       string
}

// Create inserts a draft assessment pre-populated with one not_assessed
// item per catalog control and the fixed set of incomplete progress steps.
func (s *Service) Create(ctx context.Context, p CreateParams) (Assessment, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return Assessment{}, fmt.Errorf("assessment name is required")
	}
	if p.Type != TypeOrganization && p.Type != TypeVendor {
		return Assessment{}, fmt.Errorf("unknown assessment type %q", p.Type)
	}
	// A vendor-typed assessment must reference a vendor.
	if p.Type == TypeVendor && strings.TrimSpace(p.VendorID) == "" {
		return Assessment{}, ErrInvalidType
	}

	now := s.now().UTC()
	a := Assessment{
		ID:             s.ids(),
		OrganizationID: p.OrganizationID,
		Name:           p.Name,
		Type:           p.Type,
		VendorID:       p.VendorID,
		Status:         StatusDraft,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	items, err := s.blankItems(ctx, a.ID, now)
	if err != nil {
		return Assessment{}, err
	}
	if err := s.store.CreateAssessment(ctx, a, items, s.blankProgress(a.ID)); err != nil {
		return Assessment{}, fmt.Errorf("create assessment: %w", err)
	}
	return a, nil
}

// Get returns one assessment.
func (s *Service) Get(ctx context.Context, id string) (Assessment, error) {
	return s.store.GetAssessment(ctx, id)
}

// List returns all assessments of an organization.
func (s *Service) List(ctx context.Context, organizationID string) ([]Assessment, error) {
	return s.store.ListAssessments(ctx, organizationID)
}

// ListItems returns the item set of an assessment.
func (s *Service) ListItems(ctx context.Context, assessmentID string) ([]Item, error) {
	return s.store.ListItems(ctx, assessmentID)
}

// UpdateItem mutates one item of the given assessment through the
// allow-list and recomputes the assessment score. The item must belong to
// assessmentID; a mismatch is reported as not-found without mutating
// anything, which is what prevents cross-invitation tampering.
func (s *Service) UpdateItem(ctx context.Context, assessmentID, itemID string, upd ItemUpdate) (Item, float64, error) {
	if upd.Status != nil && !scoring.Valid(*upd.Status) {
		return Item{}, 0, ErrInvalidStatus
	}

	current, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return Item{}, 0, err
	}
	if current.AssessmentID != assessmentID {
		return Item{}, 0, ErrItemNotFound
	}

	item, err := s.store.UpdateItem(ctx, itemID, upd)
	if err != nil {
		return Item{}, 0, err
	}
	score, err := s.Rescore(ctx, assessmentID)
	if err != nil {
		return Item{}, 0, err
	}
	return item, score, nil
}

// Rescore recomputes and persists the assessment score from its full item
// set. Idempotent: recomputing is safe under interleaved updates.
func (s *Service) Rescore(ctx context.Context, assessmentID string) (float64, error) {
	items, err := s.store.ListItems(ctx, assessmentID)
	if err != nil {
		return 0, err
	}
	statuses := make([]scoring.Status, 0, len(items))
	for _, it := range items {
		statuses = append(statuses, it.Status)
	}
	score := scoring.Score(statuses)
	if err := s.store.SetScore(ctx, assessmentID, score); err != nil {
		return 0, err
	}
	return score, nil
}

// Complete marks the assessment completed.
func (s *Service) Complete(ctx context.Context, assessmentID string) error {
	now := s.now().UTC()
	return s.store.SetAssessmentStatus(ctx, assessmentID, StatusCompleted, &now)
}

// Progress returns the workflow step records of an assessment.
func (s *Service) Progress(ctx context.Context, assessmentID string) ([]ProgressRecord, error) {
	return s.store.ListProgress(ctx, assessmentID)
}

func (s *Service) blankItems(ctx context.Context, assessmentID string, now time.Time) ([]Item, error) {
	controls, err := s.catalog.Controls(ctx)
	if err != nil {
		return nil, fmt.Errorf("load control catalog: %w", err)
	}
	items := make([]Item, 0, len(controls))
	for _, ctrl := range controls {
		items = append(items, Item{
			ID:           s.ids(),
			AssessmentID: assessmentID,
			ControlID:    ctrl.ID,
			Status:       scoring.StatusNotAssessed,
			UpdatedAt:    now,
		})
	}
	return items, nil
}

func (s *Service) blankProgress(assessmentID string) []ProgressRecord {
	recs := make([]ProgressRecord, 0, len(ProgressSteps))
	for _, step := range ProgressSteps {
		recs = append(recs, ProgressRecord{
			ID:           s.ids(),
			AssessmentID: assessmentID,
			Step:         step,
		})
	}
	return recs
}
