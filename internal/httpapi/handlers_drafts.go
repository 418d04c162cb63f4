package httpapi

import (
	"errors"
	"net/http"

	"teasales/backend/internal/domain"
)

func (a *API) handleDrafts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	draft, err := a.service.OpenDraft(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, domain.DraftResponse{Draft: draft})
}

// handleDraftActions routes /api/v1/drafts/{id}[/items[/{product_id}]|/customer|/submit].
func (a *API) handleDraftActions(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/api/v1/drafts/")
	if len(parts) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("draft id required"))
		return
	}
	draftID := parts[0]

	switch {
	case len(parts) == 1:
		a.handleDraft(w, r, draftID)
	case len(parts) == 2 && parts[1] == "items":
		a.handleDraftItems(w, r, draftID)
	case len(parts) == 3 && parts[1] == "items":
		a.handleDraftItem(w, r, draftID, parts[2])
	case len(parts) == 2 && parts[1] == "customer":
		a.handleDraftCustomer(w, r, draftID)
	case len(parts) == 2 && parts[1] == "submit":
		a.handleDraftSubmit(w, r, draftID)
	default:
		writeError(w, http.StatusNotFound, errors.New("unknown draft action"))
	}
}

func (a *API) handleDraft(w http.ResponseWriter, r *http.Request, draftID string) {
	switch r.Method {
	case http.MethodGet:
		draft, err := a.service.GetDraft(r.Context(), draftID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, domain.DraftResponse{Draft: draft})
	case http.MethodDelete:
		if err := a.service.DiscardDraft(r.Context(), draftID); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleDraftItems(w http.ResponseWriter, r *http.Request, draftID string) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.DraftAddItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	draft, err := a.service.AddProduct(r.Context(), draftID, req.ProductID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.DraftResponse{Draft: draft})
}

func (a *API) handleDraftItem(w http.ResponseWriter, r *http.Request, draftID string, productID string) {
	var (
		draft domain.Draft
		err   error
	)

	switch r.Method {
	case http.MethodPatch:
		var req domain.DraftQuantityRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if req.Quantity == nil {
			writeError(w, http.StatusBadRequest, errors.New("quantity is required"))
			return
		}
		draft, err = a.service.SetQuantity(r.Context(), draftID, productID, *req.Quantity)
	case http.MethodDelete:
		draft, err = a.service.RemoveProduct(r.Context(), draftID, productID)
	default:
		writeMethodNotAllowed(w)
		return
	}

	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.DraftResponse{Draft: draft})
}

func (a *API) handleDraftCustomer(w http.ResponseWriter, r *http.Request, draftID string) {
	if r.Method != http.MethodPut {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.DraftCustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	draft, err := a.service.SelectCustomer(r.Context(), draftID, req.CustomerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.DraftResponse{Draft: draft})
}

func (a *API) handleDraftSubmit(w http.ResponseWriter, r *http.Request, draftID string) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.DraftSubmitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sale, err := a.service.SubmitDraft(r.Context(), draftID, req.PaidAmount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, domain.SaleResponse{Sale: sale})
}
