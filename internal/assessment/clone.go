package assessment

import (
	"context"
	"fmt"
	"time"

	"csfcompass.org/internal/ids"
	"csfcompass.org/internal/scoring"
)

const cloneNamePrefix = "Vendor Response: "

// Cloner produces the vendor-facing copy of an organization assessment.
type Cloner struct {
	store   Store
	catalog Catalog
	ids     func() string
	now     func() time.Time
}

// NewCloner wires a Cloner over the store and control catalog.
func NewCloner(store Store, catalog Catalog) *Cloner {
	return &Cloner{store: store, catalog: catalog, ids: ids.New, now: time.Now}
}

// Clone creates an independent copy of the source assessment with one
// not_assessed item per catalog control. The source's own item values are
// deliberately ignored: the vendor starts from a blank slate, not from the
// organization's self-assessed state. The clone, its items, its progress
// records and the bidirectional linkage are created atomically; a failed or
// abandoned clone leaves nothing visible.
func (c *Cloner) Clone(ctx context.Context, sourceID, organizationID string) (Assessment, error) {
	src, err := c.store.GetAssessment(ctx, sourceID)
	if err != nil {
		return Assessment{}, err
	}

	controls, err := c.catalog.Controls(ctx)
	if err != nil {
		return Assessment{}, fmt.Errorf("load control catalog: %w", err)
	}

	now := c.now().UTC()
	clone := Assessment{
		ID:             c.ids(),
		OrganizationID: organizationID,
		Name:           cloneNamePrefix + src.Name,
		Type:           src.Type,
		VendorID:       src.VendorID,
		Status:         StatusDraft,
		Score:          0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	items := make([]Item, 0, len(controls))
	for _, ctrl := range controls {
		items = append(items, Item{
			ID:           c.ids(),
			AssessmentID: clone.ID,
			ControlID:    ctrl.ID,
			Status:       scoring.StatusNotAssessed,
			UpdatedAt:    now,
		})
	}

	progress := make([]ProgressRecord, 0, len(ProgressSteps))
	for _, step := range ProgressSteps {
		progress = append(progress, ProgressRecord{
			ID:           c.ids(),
			AssessmentID: clone.ID,
			Step:         step,
		})
	}

	if err := c.store.CreateClone(ctx, clone, items, progress, sourceID); err != nil {
		return Assessment{}, fmt.Errorf("create clone: %w", err)
	}
	clone.LinkedAssessmentID = sourceID
	return clone, nil
}
