package invite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"csfcompass.org/internal/assessment"
	"csfcompass.org/internal/audit"
	"csfcompass.org/internal/ids"
	"csfcompass.org/internal/obs"
	"csfcompass.org/internal/ratelimit"
	"csfcompass.org/internal/token"
	"csfcompass.org/internal/vendor"
)

// Validation failure reasons reported to the untrusted external caller.
// Deliberately coarse: an unknown invitation id reads the same as a bad
// signature so the response leaks nothing about what exists.
const (
	ReasonInvalidToken = "invalid_token"
	ReasonExpired      = "expired"
	ReasonRevoked      = "revoked"
)

// Caller identifies the external client for rate limiting and auditing.
type Caller struct {
	IP        string
	UserAgent string
}

// Service drives the vendor delegation workflow. It ties the cloner, the
// token signer, the rate limiter and the audit trail into the externally
// observable invitation state machine.
type Service struct {
	invites     Store
	assessments *assessment.Service
	cloner      *assessment.Cloner
	vendors     vendor.Store
	signer      *token.Signer
	limiter     *ratelimit.Limiter
	recorder    *audit.Recorder
	ids         func() string
	now         func() time.Time
}

// NewService wires the workflow service.
func NewService(invites Store, assessments *assessment.Service, cloner *assessment.Cloner, vendors vendor.Store, signer *token.Signer, limiter *ratelimit.Limiter, recorder *audit.Recorder) *Service {
	return &Service{
		invites:     invites,
		assessments: assessments,
		cloner:      cloner,
		vendors:     vendors,
		signer:      signer,
		limiter:     limiter,
		recorder:    recorder,
		ids:         ids.New,
		now:         time.Now,
	}
}

// DispatchParams describe a new delegation.
type DispatchParams struct {
	AssessmentID  string
	ActorID       string
	ContactEmail  string
	ContactName   string
	Message       string
	ExpiresInDays int
}

// Dispatched is the result of a successful dispatch. AccessToken is the
// magic-link credential; it is returned exactly once.
type Dispatched struct {
	Invitation  Invitation            `json:"invitation"`
	AccessToken string                `json:"access_token"`
	Clone       assessment.Assessment `json:"clone"`
}

// Dispatch lends a copy of the assessment to an external vendor contact:
// it clones the assessment, issues the signed access token and records the
// invitation in pending state.
func (s *Service) Dispatch(ctx context.Context, p DispatchParams) (Dispatched, error) {
	if strings.TrimSpace(p.ContactEmail) == "" {
		return Dispatched{}, fmt.Errorf("contact email is required")
	}

	src, err := s.assessments.Get(ctx, p.AssessmentID)
	if err != nil {
		return Dispatched{}, err
	}
	// Only vendor-scoped assessments can be delegated.
	if src.Type != assessment.TypeVendor || strings.TrimSpace(src.VendorID) == "" {
		return Dispatched{}, assessment.ErrInvalidType
	}
	if _, err := s.vendors.GetVendor(ctx, src.VendorID); err != nil {
		return Dispatched{}, err
	}

	clone, err := s.cloner.Clone(ctx, src.ID, src.OrganizationID)
	if err != nil {
		return Dispatched{}, err
	}

	now := s.now().UTC()
	inv := Invitation{
		ID:                 s.ids(),
		OrganizationID:     src.OrganizationID,
		OrgAssessmentID:    src.ID,
		VendorAssessmentID: clone.ID,
		VendorID:           src.VendorID,
		ContactEmail:       strings.TrimSpace(p.ContactEmail),
		ContactName:        strings.TrimSpace(p.ContactName),
		Message:            p.Message,
		Status:             StatusPending,
		SentAt:             now,
	}

	accessToken, expiresAt, err := s.signer.IssueAccess(inv.ID, clone.ID, src.ID, p.ExpiresInDays)
	if err != nil {
		return Dispatched{}, fmt.Errorf("issue access token: %w", err)
	}
	inv.AccessToken = accessToken
	inv.TokenExpiresAt = expiresAt

	if err := s.invites.InsertInvitation(ctx, inv); err != nil {
		return Dispatched{}, fmt.Errorf("insert invitation: %w", err)
	}

	obs.CountDispatched()
	return Dispatched{Invitation: inv, AccessToken: accessToken, Clone: clone}, nil
}

// Validation is the structured outcome returned to the untrusted caller.
// Token failures are recovered into Valid=false with a reason instead of
// surfacing internal error detail.
type Validation struct {
	Valid        bool                   `json:"valid"`
	Reason       string                 `json:"reason,omitempty"`
	Invitation   *Invitation            `json:"invitation,omitempty"`
	Assessment   *assessment.Assessment `json:"assessment,omitempty"`
	SessionToken string                 `json:"session_token,omitempty"`
	FirstAccess  bool                   `json:"first_access,omitempty"`
}

// Validate checks an access token end to end: window budget, stateless
// signature/expiry, then the stateful revocation check. The first
// successful validation flips pending to accessed exactly once; later ones
// only touch last_accessed_at. Every attempt, success or failure, is
// audited.
func (s *Service) Validate(ctx context.Context, rawToken string, c Caller) (Validation, error) {
	if err := s.allow(ctx, ratelimit.OpValidate, c, "validate"); err != nil {
		return Validation{}, err
	}

	claims, verr := s.signer.Validate(rawToken)
	if verr != nil {
		return s.rejectToken(ctx, claims, verr, c), nil
	}
	if claims.Kind != token.KindAccess {
		s.recorder.Record(ctx, claims.InvitationID, audit.ActionTokenRejected, c.IP, c.UserAgent, map[string]any{"reason": "wrong_token_kind"})
		obs.ObserveValidation("rejected")
		return Validation{Reason: ReasonInvalidToken}, nil
	}

	inv, err := s.invites.GetInvitation(ctx, claims.InvitationID)
	if errors.Is(err, ErrNotFound) {
		s.recorder.Record(ctx, claims.InvitationID, audit.ActionTokenRejected, c.IP, c.UserAgent, map[string]any{"reason": "unknown_invitation"})
		obs.ObserveValidation("rejected")
		return Validation{Reason: ReasonInvalidToken}, nil
	}
	if err != nil {
		return Validation{}, err
	}
	if inv.Status == StatusRevoked {
		s.recorder.Record(ctx, inv.ID, audit.ActionTokenRejected, c.IP, c.UserAgent, map[string]any{"reason": "revoked"})
		obs.ObserveValidation("revoked")
		return Validation{Reason: ReasonRevoked}, nil
	}

	now := s.now().UTC()
	first, err := s.invites.MarkAccessed(ctx, inv.ID, now)
	if err != nil {
		return Validation{}, err
	}
	if err := s.invites.TouchLastAccessed(ctx, inv.ID, now); err != nil {
		return Validation{}, err
	}
	inv, err = s.invites.GetInvitation(ctx, inv.ID)
	if err != nil {
		return Validation{}, err
	}

	clone, err := s.assessments.Get(ctx, inv.VendorAssessmentID)
	if err != nil {
		return Validation{}, err
	}
	sessionToken, err := s.signer.IssueSession(inv.ID)
	if err != nil {
		return Validation{}, err
	}

	s.recorder.Record(ctx, inv.ID, audit.ActionTokenValidated, c.IP, c.UserAgent, map[string]any{"first_access": first})
	obs.ObserveValidation("validated")
	return Validation{
		Valid:        true,
		Invitation:   &inv,
		Assessment:   &clone,
		SessionToken: sessionToken,
		FirstAccess:  first,
	}, nil
}

// ListItems returns the cloned assessment's items for a valid token.
func (s *Service) ListItems(ctx context.Context, rawToken string, c Caller) ([]assessment.Item, error) {
	inv, err := s.authorize(ctx, rawToken, ratelimit.OpValidate, c)
	if err != nil {
		return nil, err
	}
	return s.assessments.ListItems(ctx, inv.VendorAssessmentID)
}

// UpdateItem mutates one item of the cloned assessment through the
// allow-list and recomputes its score. Items outside the assessment bound
// to the token are rejected without mutation.
func (s *Service) UpdateItem(ctx context.Context, rawToken, itemID string, upd assessment.ItemUpdate, c Caller) (assessment.Item, float64, error) {
	inv, err := s.authorize(ctx, rawToken, ratelimit.OpUpdateItem, c)
	if err != nil {
		return assessment.Item{}, 0, err
	}

	item, score, err := s.assessments.UpdateItem(ctx, inv.VendorAssessmentID, itemID, upd)
	if err != nil {
		return assessment.Item{}, 0, err
	}

	meta := map[string]any{"item_id": item.ID, "control_id": item.ControlID}
	if upd.Status != nil {
		meta["status"] = string(*upd.Status)
	}
	s.recorder.Record(ctx, inv.ID, audit.ActionStatusUpdated, c.IP, c.UserAgent, meta)
	return item, score, nil
}

// Complete marks the vendor submission done on both the invitation and the
// cloned assessment. The clone is stamped first and the invitation last,
// so a failure never leaves a completed invitation pointing at an
// unfinished assessment. The invitation stamp is conditional: a revoke
// that lands between the authorization check and this write wins, and the
// caller sees ErrRevoked.
func (s *Service) Complete(ctx context.Context, rawToken string, c Caller) (Invitation, error) {
	inv, err := s.authorize(ctx, rawToken, ratelimit.OpValidate, c)
	if err != nil {
		return Invitation{}, err
	}

	if err := s.assessments.Complete(ctx, inv.VendorAssessmentID); err != nil {
		return Invitation{}, err
	}
	done, err := s.invites.MarkInvitationCompleted(ctx, inv.ID, s.now().UTC())
	if err != nil {
		return Invitation{}, err
	}
	if !done {
		s.recorder.Record(ctx, inv.ID, audit.ActionTokenRejected, c.IP, c.UserAgent, map[string]any{"reason": "revoked"})
		return Invitation{}, ErrRevoked
	}

	s.recorder.Record(ctx, inv.ID, audit.ActionAssessmentSubmitted, c.IP, c.UserAgent, nil)
	return s.invites.GetInvitation(ctx, inv.ID)
}

// InvitationForAssessment returns the most recent invitation dispatched
// for the organization assessment.
func (s *Service) InvitationForAssessment(ctx context.Context, orgAssessmentID string) (Invitation, error) {
	return s.invites.GetInvitationByAssessment(ctx, orgAssessmentID)
}

// Revoke withdraws the delegation. Valid from pending or accessed only;
// revoking twice fails with ErrAlreadyRevoked and a completed invitation
// cannot be revoked. Existing tokens keep verifying cryptographically but
// every use fails the revocation check from here on.
func (s *Service) Revoke(ctx context.Context, invitationID, actorID string, c Caller) (Invitation, error) {
	inv, err := s.invites.GetInvitation(ctx, invitationID)
	if err != nil {
		return Invitation{}, err
	}
	switch inv.Status {
	case StatusRevoked:
		return Invitation{}, ErrAlreadyRevoked
	case StatusCompleted:
		return Invitation{}, ErrCompleted
	}

	done, err := s.invites.RevokeInvitation(ctx, invitationID, s.now().UTC(), actorID)
	if err != nil {
		return Invitation{}, err
	}
	if !done {
		// Lost the race; report what actually happened.
		inv, err = s.invites.GetInvitation(ctx, invitationID)
		if err != nil {
			return Invitation{}, err
		}
		if inv.Status == StatusRevoked {
			return Invitation{}, ErrAlreadyRevoked
		}
		return Invitation{}, ErrCompleted
	}

	s.recorder.Record(ctx, invitationID, audit.ActionTokenRevoked, c.IP, c.UserAgent, map[string]any{"revoked_by": actorID})
	obs.CountRevoked()
	return s.invites.GetInvitation(ctx, invitationID)
}

// allow applies the fixed-window budget for op and audits denials.
func (s *Service) allow(ctx context.Context, op string, c Caller, label string) error {
	decision := s.limiter.Allow(ctx, op, c.IP)
	if decision.Allowed {
		return nil
	}
	s.recorder.Record(ctx, "", audit.ActionRateLimited, c.IP, c.UserAgent, map[string]any{"operation": label})
	obs.ObserveValidation("rate_limited")
	return &RateLimitedError{RetryAfter: decision.RetryAfter}
}

// authorize runs the full token check for item-level operations: budget,
// stateless signature/expiry, then the stateful revocation check.
func (s *Service) authorize(ctx context.Context, rawToken, op string, c Caller) (Invitation, error) {
	if err := s.allow(ctx, op, c, op); err != nil {
		return Invitation{}, err
	}

	claims, verr := s.signer.Validate(rawToken)
	if verr != nil {
		s.auditTokenFailure(ctx, claims, verr, c)
		return Invitation{}, verr
	}

	inv, err := s.invites.GetInvitation(ctx, claims.InvitationID)
	if errors.Is(err, ErrNotFound) {
		s.recorder.Record(ctx, claims.InvitationID, audit.ActionTokenRejected, c.IP, c.UserAgent, map[string]any{"reason": "unknown_invitation"})
		return Invitation{}, token.ErrInvalidToken
	}
	if err != nil {
		return Invitation{}, err
	}
	if inv.Status == StatusRevoked {
		s.recorder.Record(ctx, inv.ID, audit.ActionTokenRejected, c.IP, c.UserAgent, map[string]any{"reason": "revoked"})
		return Invitation{}, ErrRevoked
	}
	return inv, nil
}

// rejectToken converts a signer failure into the structured not-valid
// response for the validate operation.
func (s *Service) rejectToken(ctx context.Context, claims *token.Claims, verr error, c Caller) Validation {
	s.auditTokenFailure(ctx, claims, verr, c)
	if errors.Is(verr, token.ErrExpired) {
		obs.ObserveValidation("expired")
		return Validation{Reason: ReasonExpired}
	}
	obs.ObserveValidation("rejected")
	return Validation{Reason: ReasonInvalidToken}
}

func (s *Service) auditTokenFailure(ctx context.Context, claims *token.Claims, verr error, c Caller) {
	invitationID := ""
	if claims != nil {
		invitationID = claims.InvitationID
	}
	if errors.Is(verr, token.ErrExpired) {
		s.recorder.Record(ctx, invitationID, audit.ActionTokenExpired, c.IP, c.UserAgent, nil)
		return
	}
	s.recorder.Record(ctx, invitationID, audit.ActionTokenRejected, c.IP, c.UserAgent, map[string]any{"reason": "invalid_signature"})
}
