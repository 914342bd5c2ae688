package invite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"csfcompass.org/internal/assessment"
	"csfcompass.org/internal/audit"
	"csfcompass.org/internal/ratelimit"
	"csfcompass.org/internal/scoring"
	"csfcompass.org/internal/token"
	"csfcompass.org/internal/vendor"
)

var caller = Caller{IP: "203.0.113.7", UserAgent: "test-agent"}

type fixture struct {
	assessments *assessment.InMemory
	invites     *InMemory
	audits      *audit.InMemory
	vendors     *vendor.InMemory
	signer      *token.Signer
	asvc        *assessment.Service
	svc         *Service
}

func newFixture(t *testing.T, controls int, rules map[string]ratelimit.Rule, signerOpts ...token.Option) *fixture {
	t.Helper()

	catalogControls := make([]assessment.Control, 0, controls)
	for i := 0; i < controls; i++ {
		catalogControls = append(catalogControls, assessment.Control{
			ID:       fmt.Sprintf("CT.XX-%03d", i+1),
			Function: "CT",
			Category: "CT.XX",
		})
	}
	catalog := assessment.NewStaticCatalog(catalogControls)

	signer, err := token.NewSigner("test-secret", signerOpts...)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	if rules == nil {
		// Generous budgets so workflow tests never trip the limiter.
		rules = map[string]ratelimit.Rule{
			ratelimit.OpValidate:   {Limit: 10000, Window: time.Minute},
			ratelimit.OpUpdateItem: {Limit: 10000, Window: time.Minute},
		}
	}

	f := &fixture{
		assessments: assessment.NewInMemory(),
		invites:     NewInMemory(),
		audits:      audit.NewInMemory(),
		vendors:     vendor.NewInMemory(),
		signer:      signer,
	}
	f.asvc = assessment.NewService(f.assessments, catalog)
	cloner := assessment.NewCloner(f.assessments, catalog)
	limiter := ratelimit.New(ratelimit.NewMemoryCounter(), rules)
	f.svc = NewService(f.invites, f.asvc, cloner, f.vendors, signer, limiter, audit.NewRecorder(f.audits))
	return f
}

func (f *fixture) dispatch(t *testing.T, ctx context.Context) (Dispatched, assessment.Assessment) {
	t.Helper()
	if err := f.vendors.CreateVendor(ctx, vendor.Vendor{ID: "ven-1", OrganizationID: "org-1", Name: "Acme Hosting"}); err != nil {
		t.Fatalf("CreateVendor: %v", err)
	}
	src, err := f.asvc.Create(ctx, assessment.CreateParams{
		OrganizationID: "org-1",
		Name:           "Acme Hosting Review",
		Type:           assessment.TypeVendor,
		VendorID:       "ven-1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	d, err := f.svc.Dispatch(ctx, DispatchParams{
		AssessmentID:  src.ID,
		ActorID:       "user-1",
		ContactEmail:  "security@acme.example",
		ContactName:   "Jordan",
		ExpiresInDays: 7,
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	return d, src
}

func (f *fixture) lastAction(t *testing.T, action audit.Action) audit.Event {
	t.Helper()
	events := f.audits.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Action == action {
			return events[i]
		}
	}
	t.Fatalf("no %s event recorded", action)
	return audit.Event{}
}

func TestDispatchRejectsNonVendorAssessment(t *testing.T) {
	f := newFixture(t, 3, nil)
	ctx := context.Background()

	src, err := f.asvc.Create(ctx, assessment.CreateParams{OrganizationID: "org-1", Name: "Self", Type: assessment.TypeOrganization})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err = f.svc.Dispatch(ctx, DispatchParams{AssessmentID: src.ID, ContactEmail: "a@b.example"})
	if !errors.Is(err, assessment.ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestDispatchMissingAssessment(t *testing.T) {
	f := newFixture(t, 1, nil)
	_, err := f.svc.Dispatch(context.Background(), DispatchParams{AssessmentID: "nope", ContactEmail: "a@b.example"})
	if !errors.Is(err, assessment.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestValidateTransitionsOnce(t *testing.T) {
	f := newFixture(t, 5, nil)
	ctx := context.Background()
	d, _ := f.dispatch(t, ctx)

	first, err := f.svc.Validate(ctx, d.AccessToken, caller)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !first.Valid || !first.FirstAccess {
		t.Fatalf("expected valid first access, got %+v", first)
	}
	if first.Invitation.Status != StatusAccessed || first.Invitation.AccessedAt == nil {
		t.Fatalf("expected accessed invitation, got %+v", first.Invitation)
	}
	if first.SessionToken == "" {
		t.Fatal("expected session token")
	}

	second, err := f.svc.Validate(ctx, d.AccessToken, caller)
	if err != nil {
		t.Fatalf("second Validate: %v", err)
	}
	if !second.Valid || second.FirstAccess {
		t.Fatalf("second validation must not re-transition: %+v", second)
	}
	if second.Invitation.Status != StatusAccessed {
		t.Fatalf("status must stay accessed, got %s", second.Invitation.Status)
	}
	if !second.Invitation.AccessedAt.Equal(*first.Invitation.AccessedAt) {
		t.Fatal("accessed_at must not move on later validations")
	}
	if second.Invitation.LastAccessedAt.Before(*first.Invitation.LastAccessedAt) {
		t.Fatal("last_accessed_at must advance")
	}

	if ev := f.lastAction(t, audit.ActionTokenValidated); ev.InvitationID != d.Invitation.ID {
		t.Fatalf("audit event bound to wrong invitation: %+v", ev)
	}
}

func TestValidateGarbageToken(t *testing.T) {
	f := newFixture(t, 1, nil)
	res, err := f.svc.Validate(context.Background(), "not-a-token", caller)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Valid || res.Reason != ReasonInvalidToken {
		t.Fatalf("expected invalid_token, got %+v", res)
	}
	f.lastAction(t, audit.ActionTokenRejected)
}

func TestValidateExpiredToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, 2, nil, token.WithClock(func() time.Time { return now }))
	ctx := context.Background()
	d, _ := f.dispatch(t, ctx)

	now = now.Add(8 * 24 * time.Hour)
	res, err := f.svc.Validate(ctx, d.AccessToken, caller)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Valid || res.Reason != ReasonExpired {
		t.Fatalf("expected expired, got %+v", res)
	}
	if ev := f.lastAction(t, audit.ActionTokenExpired); ev.InvitationID != d.Invitation.ID {
		t.Fatalf("expired audit should name the invitation: %+v", ev)
	}

	// Expiry is derived, never stored.
	inv, _ := f.invites.GetInvitation(ctx, d.Invitation.ID)
	if inv.Status != StatusPending {
		t.Fatalf("expired must not be persisted as a status, got %s", inv.Status)
	}
}

func TestValidateRevokedBeforeExpiry(t *testing.T) {
	f := newFixture(t, 2, nil)
	ctx := context.Background()
	d, _ := f.dispatch(t, ctx)

	if _, err := f.svc.Revoke(ctx, d.Invitation.ID, "user-1", caller); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	res, err := f.svc.Validate(ctx, d.AccessToken, caller)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Valid || res.Reason != ReasonRevoked {
		t.Fatalf("expected revoked, got %+v", res)
	}
}

func TestRevokeTwice(t *testing.T) {
	f := newFixture(t, 2, nil)
	ctx := context.Background()
	d, _ := f.dispatch(t, ctx)

	if _, err := f.svc.Revoke(ctx, d.Invitation.ID, "user-1", caller); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := f.svc.Revoke(ctx, d.Invitation.ID, "user-1", caller); !errors.Is(err, ErrAlreadyRevoked) {
		t.Fatalf("expected ErrAlreadyRevoked, got %v", err)
	}
	if ev := f.lastAction(t, audit.ActionTokenRevoked); ev.Metadata["revoked_by"] != "user-1" {
		t.Fatalf("revoking actor not audited: %+v", ev)
	}
}

func TestRevokeCompletedRejected(t *testing.T) {
	f := newFixture(t, 2, nil)
	ctx := context.Background()
	d, _ := f.dispatch(t, ctx)

	if _, err := f.svc.Complete(ctx, d.AccessToken, caller); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if _, err := f.svc.Revoke(ctx, d.Invitation.ID, "user-1", caller); !errors.Is(err, ErrCompleted) {
		t.Fatalf("expected ErrCompleted, got %v", err)
	}
}

// revokeOnReadStore revokes the target invitation right after handing out
// a stale pending snapshot, landing the revoke between the authorization
// read and the completion write.
type revokeOnReadStore struct {
	*InMemory
	target string
	fired  bool
}

func (s *revokeOnReadStore) GetInvitation(ctx context.Context, id string) (Invitation, error) {
	inv, err := s.InMemory.GetInvitation(ctx, id)
	if err == nil && !s.fired && id == s.target && inv.Status != StatusRevoked {
		s.fired = true
		if _, rerr := s.InMemory.RevokeInvitation(ctx, id, time.Now().UTC(), "user-2"); rerr != nil {
			return Invitation{}, rerr
		}
	}
	return inv, nil
}

func TestCompleteLosesRaceToRevoke(t *testing.T) {
	f := newFixture(t, 2, nil)
	ctx := context.Background()
	d, _ := f.dispatch(t, ctx)

	f.svc.invites = &revokeOnReadStore{InMemory: f.invites, target: d.Invitation.ID}

	_, err := f.svc.Complete(ctx, d.AccessToken, caller)
	if !errors.Is(err, ErrRevoked) {
		t.Fatalf("expected ErrRevoked, got %v", err)
	}

	// Revoked is terminal: the completion write must not overwrite it.
	inv, _ := f.invites.GetInvitation(ctx, d.Invitation.ID)
	if inv.Status != StatusRevoked {
		t.Fatalf("revoked status overwritten: %s", inv.Status)
	}
	if inv.CompletedAt != nil {
		t.Fatalf("completed_at stamped on revoked invitation: %+v", inv)
	}

	res, err := f.svc.Validate(ctx, d.AccessToken, caller)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Valid || res.Reason != ReasonRevoked {
		t.Fatalf("token must stay dead after the race, got %+v", res)
	}
}

func TestMarkInvitationCompletedSkipsRevoked(t *testing.T) {
	f := newFixture(t, 1, nil)
	ctx := context.Background()
	d, _ := f.dispatch(t, ctx)

	if _, err := f.invites.RevokeInvitation(ctx, d.Invitation.ID, time.Now().UTC(), "user-1"); err != nil {
		t.Fatalf("RevokeInvitation: %v", err)
	}
	done, err := f.invites.MarkInvitationCompleted(ctx, d.Invitation.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("MarkInvitationCompleted: %v", err)
	}
	if done {
		t.Fatal("completion must not apply to a revoked invitation")
	}
	inv, _ := f.invites.GetInvitation(ctx, d.Invitation.ID)
	if inv.Status != StatusRevoked {
		t.Fatalf("status = %s", inv.Status)
	}
}

func TestUpdateItemCrossAssessmentRejected(t *testing.T) {
	f := newFixture(t, 3, nil)
	ctx := context.Background()
	d, src := f.dispatch(t, ctx)

	// An item of the organization's own assessment, not the clone.
	srcItems, _ := f.asvc.ListItems(ctx, src.ID)
	status := scoring.StatusCompliant
	_, _, err := f.svc.UpdateItem(ctx, d.AccessToken, srcItems[0].ID, assessment.ItemUpdate{Status: &status}, caller)
	if !errors.Is(err, assessment.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
	fresh, _ := f.assessments.GetItem(ctx, srcItems[0].ID)
	if fresh.Status != scoring.StatusNotAssessed {
		t.Fatalf("foreign item mutated: %s", fresh.Status)
	}
}

func TestUpdateItemAfterRevokeRejected(t *testing.T) {
	f := newFixture(t, 2, nil)
	ctx := context.Background()
	d, _ := f.dispatch(t, ctx)

	items, _ := f.svc.ListItems(ctx, d.AccessToken, caller)
	if _, err := f.svc.Revoke(ctx, d.Invitation.ID, "user-1", caller); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	status := scoring.StatusCompliant
	_, _, err := f.svc.UpdateItem(ctx, d.AccessToken, items[0].ID, assessment.ItemUpdate{Status: &status}, caller)
	if !errors.Is(err, ErrRevoked) {
		t.Fatalf("expected ErrRevoked, got %v", err)
	}
}

func TestCompleteStampsBothSides(t *testing.T) {
	f := newFixture(t, 2, nil)
	ctx := context.Background()
	d, _ := f.dispatch(t, ctx)

	inv, err := f.svc.Complete(ctx, d.AccessToken, caller)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if inv.Status != StatusCompleted || inv.CompletedAt == nil {
		t.Fatalf("invitation not completed: %+v", inv)
	}
	clone, _ := f.asvc.Get(ctx, d.Clone.ID)
	if clone.Status != assessment.StatusCompleted || clone.CompletedAt == nil {
		t.Fatalf("clone not completed: %+v", clone)
	}
	f.lastAction(t, audit.ActionAssessmentSubmitted)
}

func TestValidateRateLimited(t *testing.T) {
	rules := map[string]ratelimit.Rule{
		ratelimit.OpValidate: {Limit: 2, Window: time.Minute},
	}
	f := newFixture(t, 1, rules)
	ctx := context.Background()
	d, _ := f.dispatch(t, ctx)

	for i := 0; i < 2; i++ {
		if _, err := f.svc.Validate(ctx, d.AccessToken, caller); err != nil {
			t.Fatalf("Validate %d: %v", i+1, err)
		}
	}
	_, err := f.svc.Validate(ctx, d.AccessToken, caller)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	var rl *RateLimitedError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitedError, got %T", err)
	}
	if rl.RetryAfter <= 0 || rl.RetryAfter > time.Minute {
		t.Fatalf("retry hint out of range: %v", rl.RetryAfter)
	}
	f.lastAction(t, audit.ActionRateLimited)
}

func TestDelegationScenario(t *testing.T) {
	f := newFixture(t, 120, nil)
	ctx := context.Background()
	d, src := f.dispatch(t, ctx)

	cloneItems, err := f.svc.ListItems(ctx, d.AccessToken, caller)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(cloneItems) != 120 {
		t.Fatalf("expected 120 clone items, got %d", len(cloneItems))
	}

	// Vendor marks 60 controls compliant through the token.
	status := scoring.StatusCompliant
	var score float64
	for _, it := range cloneItems[:60] {
		_, score, err = f.svc.UpdateItem(ctx, d.AccessToken, it.ID, assessment.ItemUpdate{Status: &status}, caller)
		if err != nil {
			t.Fatalf("UpdateItem: %v", err)
		}
	}
	if score != 50 {
		t.Fatalf("expected clone score 50.00, got %v", score)
	}

	// Organization untouched: the 60 vendor-compliant controls disagree,
	// the other 60 still match as not_assessed on both sides.
	cmp, err := f.svc.Compare(ctx, src.ID)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if len(cmp.Items) != 120 {
		t.Fatalf("expected 120 comparison entries, got %d", len(cmp.Items))
	}
	matches := 0
	for _, entry := range cmp.Items {
		if entry.Matches {
			matches++
			if entry.Difference != "" {
				t.Fatalf("matching entry carries a difference: %+v", entry)
			}
		} else if entry.Difference == "" {
			t.Fatalf("non-matching entry missing difference: %+v", entry)
		}
	}
	if matches != 60 {
		t.Fatalf("expected 60 matching entries, got %d", matches)
	}

	// Organization catches up on the same controls; everything matches.
	compliantControls := make(map[string]bool, 60)
	for _, it := range cloneItems[:60] {
		compliantControls[it.ControlID] = true
	}
	srcItems, _ := f.asvc.ListItems(ctx, src.ID)
	for _, it := range srcItems {
		if !compliantControls[it.ControlID] {
			continue
		}
		if _, _, err := f.asvc.UpdateItem(ctx, src.ID, it.ID, assessment.ItemUpdate{Status: &status}); err != nil {
			t.Fatalf("org UpdateItem: %v", err)
		}
	}
	cmp, err = f.svc.Compare(ctx, src.ID)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	for _, entry := range cmp.Items {
		if !entry.Matches {
			t.Fatalf("expected full agreement, got difference on %s: %s", entry.ControlID, entry.Difference)
		}
	}

	// Revocation kills the link regardless of remaining expiry.
	if _, err := f.svc.Revoke(ctx, d.Invitation.ID, "user-1", caller); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	res, err := f.svc.Validate(ctx, d.AccessToken, caller)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Valid || res.Reason != ReasonRevoked {
		t.Fatalf("expected revoked, got %+v", res)
	}
}
