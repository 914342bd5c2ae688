package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"csfcompass.org/internal/assessment"
	"csfcompass.org/internal/ids"
	"csfcompass.org/internal/invite"
	"csfcompass.org/internal/scoring"
	"csfcompass.org/internal/vendor"
)

type createAssessmentRequest struct {
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	VendorID       string `json:"vendor_id"`
}

func (a *API) createAssessment(w http.ResponseWriter, r *http.Request) {
	var req createAssessmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.OrganizationID) == "" {
		writeError(w, r, http.StatusBadRequest, "organization_id is required")
		return
	}

	created, err := a.opts.Assessments.Create(r.Context(), assessment.CreateParams{
		OrganizationID: strings.TrimSpace(req.OrganizationID),
		Name:           req.Name,
		Type:           assessment.Type(req.Type),
		VendorID:       strings.TrimSpace(req.VendorID),
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/assessments/"+created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) listAssessments(w http.ResponseWriter, r *http.Request) {
	orgID := strings.TrimSpace(r.URL.Query().Get("organization_id"))
	if orgID == "" {
		writeError(w, r, http.StatusBadRequest, "organization_id query parameter is required")
		return
	}
	list, err := a.opts.Assessments.List(r.Context(), orgID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if list == nil {
		list = []assessment.Assessment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": list})
}

func (a *API) getAssessment(w http.ResponseWriter, r *http.Request) {
	got, err := a.opts.Assessments.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, got)
}

func (a *API) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := a.opts.Assessments.ListItems(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if items == nil {
		items = []assessment.Item{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type updateItemRequest struct {
	Status   *string `json:"status"`
	Notes    *string `json:"notes"`
	Evidence *string `json:"evidence"`
}

func (req updateItemRequest) toUpdate() assessment.ItemUpdate {
	upd := assessment.ItemUpdate{Notes: req.Notes, Evidence: req.Evidence}
	if req.Status != nil {
		st := scoring.Status(*req.Status)
		upd.Status = &st
	}
	return upd
}

func (a *API) updateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	vars := mux.Vars(r)
	item, score, err := a.opts.Assessments.UpdateItem(r.Context(), vars["id"], vars["itemID"], req.toUpdate())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": item, "score": score})
}

func (a *API) completeAssessment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := a.opts.Assessments.Complete(r.Context(), id); err != nil {
		handleDomainError(w, r, err)
		return
	}
	got, err := a.opts.Assessments.Get(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, got)
}

func (a *API) listProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := a.opts.Assessments.Progress(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if progress == nil {
		progress = []assessment.ProgressRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": progress})
}

func (a *API) comparison(w http.ResponseWriter, r *http.Request) {
	cmp, err := a.opts.Portal.Compare(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

type dispatchRequest struct {
	ContactEmail  string `json:"contact_email"`
	ContactName   string `json:"contact_name"`
	Message       string `json:"message"`
	ActorID       string `json:"actor_id"`
	ExpiresInDays int    `json:"expires_in_days"`
}

func (a *API) dispatchInvitation(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.ContactEmail) == "" {
		writeError(w, r, http.StatusBadRequest, "contact_email is required")
		return
	}
	expires := req.ExpiresInDays
	if expires <= 0 {
		expires = a.opts.DefaultExpiryDays
	}

	d, err := a.opts.Portal.Dispatch(r.Context(), invite.DispatchParams{
		AssessmentID:  mux.Vars(r)["id"],
		ActorID:       strings.TrimSpace(req.ActorID),
		ContactEmail:  req.ContactEmail,
		ContactName:   req.ContactName,
		Message:       req.Message,
		ExpiresInDays: expires,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (a *API) getInvitation(w http.ResponseWriter, r *http.Request) {
	inv, err := a.opts.Portal.InvitationForAssessment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

type revokeRequest struct {
	ActorID string `json:"actor_id"`
}

func (a *API) revokeInvitation(w http.ResponseWriter, r *http.Request) {
	var req revokeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	inv, err := a.opts.Portal.Revoke(r.Context(), mux.Vars(r)["id"], strings.TrimSpace(req.ActorID), callerFromRequest(r))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

type createVendorRequest struct {
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	ContactEmail   string `json:"contact_email"`
}

func (a *API) createVendor(w http.ResponseWriter, r *http.Request) {
	var req createVendorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.OrganizationID) == "" || strings.TrimSpace(req.Name) == "" {
		writeError(w, r, http.StatusBadRequest, "organization_id and name are required")
		return
	}

	v := vendor.Vendor{
		ID:             ids.New(),
		OrganizationID: strings.TrimSpace(req.OrganizationID),
		Name:           strings.TrimSpace(req.Name),
		ContactEmail:   strings.TrimSpace(req.ContactEmail),
		CreatedAt:      time.Now().UTC(),
	}
	if err := a.opts.Vendors.CreateVendor(r.Context(), v); err != nil {
		handleDomainError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/vendors/"+v.ID)
	writeJSON(w, http.StatusCreated, v)
}

func (a *API) listVendors(w http.ResponseWriter, r *http.Request) {
	orgID := strings.TrimSpace(r.URL.Query().Get("organization_id"))
	if orgID == "" {
		writeError(w, r, http.StatusBadRequest, "organization_id query parameter is required")
		return
	}
	list, err := a.opts.Vendors.ListVendors(r.Context(), orgID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if list == nil {
		list = []vendor.Vendor{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": list})
}

func (a *API) getVendor(w http.ResponseWriter, r *http.Request) {
	v, err := a.opts.Vendors.GetVendor(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func callerFromRequest(r *http.Request) invite.Caller {
	return invite.Caller{IP: clientIP(r), UserAgent: r.UserAgent()}
}
