package invite

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"csfcompass.org/internal/assessment"
)

// Comparison is the org-vs-vendor diff for one organization assessment.
// VendorAssessment and Invitation are nil when the assessment has not been
// delegated yet; that is a valid, common state rather than an error.
type Comparison struct {
	OrgAssessment    assessment.Assessment  `json:"org_assessment"`
	VendorAssessment *assessment.Assessment `json:"vendor_assessment,omitempty"`
	Invitation       *Invitation            `json:"invitation,omitempty"`
	Items            []ComparisonItem       `json:"items"`
}

// ComparisonItem pairs the two parties' evaluations of one control. Items
// are matched by control identity, not row id: the two assessments have
// independently generated rows but share the control vocabulary.
type ComparisonItem struct {
	ControlID  string           `json:"control_id"`
	OrgItem    assessment.Item  `json:"org_item"`
	VendorItem *assessment.Item `json:"vendor_item,omitempty"`
	Matches    bool             `json:"matches"`
	Difference string           `json:"difference,omitempty"`
}

// Compare diffs the organization's item set against the vendor's, keyed by
// control.
func (s *Service) Compare(ctx context.Context, orgAssessmentID string) (Comparison, error) {
	org, err := s.assessments.Get(ctx, orgAssessmentID)
	if err != nil {
		return Comparison{}, err
	}

	inv, err := s.invites.GetInvitationByAssessment(ctx, org.ID)
	if errors.Is(err, ErrNotFound) {
		return Comparison{OrgAssessment: org, Items: []ComparisonItem{}}, nil
	}
	if err != nil {
		return Comparison{}, err
	}

	vendorAssessment, err := s.assessments.Get(ctx, inv.VendorAssessmentID)
	if err != nil {
		return Comparison{}, err
	}

	orgItems, err := s.assessments.ListItems(ctx, org.ID)
	if err != nil {
		return Comparison{}, err
	}
	vendorItems, err := s.assessments.ListItems(ctx, inv.VendorAssessmentID)
	if err != nil {
		return Comparison{}, err
	}

	byControl := make(map[string]assessment.Item, len(vendorItems))
	for _, it := range vendorItems {
		byControl[it.ControlID] = it
	}

	sort.Slice(orgItems, func(i, j int) bool { return orgItems[i].ControlID < orgItems[j].ControlID })

	entries := make([]ComparisonItem, 0, len(orgItems))
	for _, orgItem := range orgItems {
		entry := ComparisonItem{ControlID: orgItem.ControlID, OrgItem: orgItem}
		if vendorItem, ok := byControl[orgItem.ControlID]; ok {
			vi := vendorItem
			entry.VendorItem = &vi
			if vendorItem.Status == orgItem.Status {
				entry.Matches = true
			} else {
				entry.Difference = fmt.Sprintf("organization reported %s, vendor reported %s", orgItem.Status, vendorItem.Status)
			}
		} else {
			entry.Difference = "no vendor response for this control"
		}
		entries = append(entries, entry)
	}

	return Comparison{
		OrgAssessment:    org,
		VendorAssessment: &vendorAssessment,
		Invitation:       &inv,
		Items:            entries,
	}, nil
}
