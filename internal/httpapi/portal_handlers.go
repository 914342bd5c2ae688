package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"csfcompass.org/internal/assessment"
	"csfcompass.org/internal/invite"
)

type validateRequest struct {
	Token string `json:"token"`
}

// portalValidate is the magic-link entry point. Bad tokens come back as
// 200 with valid=false so the portal frontend can render the reason;
// only rate limiting and internal failures use error status codes.
func (a *API) portalValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		writeError(w, r, http.StatusBadRequest, "token is required")
		return
	}

	res, err := a.opts.Portal.Validate(r.Context(), req.Token, callerFromRequest(r))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) portalListItems(w http.ResponseWriter, r *http.Request) {
	tok, err := extractBearerToken(r.Header.Get("Authorization"))
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, err.Error())
		return
	}
	items, err := a.opts.Portal.ListItems(r.Context(), tok, callerFromRequest(r))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if items == nil {
		items = []assessment.Item{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) portalUpdateItem(w http.ResponseWriter, r *http.Request) {
	tok, err := extractBearerToken(r.Header.Get("Authorization"))
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, err.Error())
		return
	}
	var req updateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	item, score, err := a.opts.Portal.UpdateItem(r.Context(), tok, mux.Vars(r)["itemID"], req.toUpdate(), callerFromRequest(r))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": item, "score": score})
}

func (a *API) portalComplete(w http.ResponseWriter, r *http.Request) {
	tok, err := extractBearerToken(r.Header.Get("Authorization"))
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, err.Error())
		return
	}
	inv, err := a.opts.Portal.Complete(r.Context(), tok, callerFromRequest(r))
	if err != nil {
		if errors.Is(err, invite.ErrNotFound) {
			writeError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}
