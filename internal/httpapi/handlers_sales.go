package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"teasales/backend/internal/domain"
	"teasales/backend/internal/salesfilter"
)

const dateLayout = "2006-01-02"

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	criteria, err := parseCriteria(r.URL.Query(), a.service.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.service.ListSales(r.Context(), criteria)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSaleActions serves PATCH /api/v1/sales/{id}/paid.
func (a *API) handleSaleActions(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path, "/api/v1/sales/")
	if len(parts) != 2 || parts[1] != "paid" {
		writeError(w, http.StatusNotFound, errors.New("unknown sale action"))
		return
	}
	if r.Method != http.MethodPatch {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.PaidAmountUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.PaidAmount == nil {
		writeError(w, http.StatusBadRequest, errors.New("paid_amount is required"))
		return
	}

	sale, err := a.service.UpdatePaidAmount(r.Context(), parts[0], req.PaidAmount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.SaleResponse{Sale: sale})
}

// parseCriteria reads customer, total, paid, balance, from and to. Dates are
// calendar days (YYYY-MM-DD) in loc.
func parseCriteria(q url.Values, loc *time.Location) (salesfilter.Criteria, error) {
	criteria := salesfilter.Criteria{
		CustomerName: strings.TrimSpace(q.Get("customer")),
		TotalAmount:  strings.TrimSpace(q.Get("total")),
		PaidAmount:   strings.TrimSpace(q.Get("paid")),
		Balance:      strings.TrimSpace(q.Get("balance")),
	}

	for _, bound := range []struct {
		key  string
		dest **time.Time
	}{
		{"from", &criteria.From},
		{"to", &criteria.To},
	} {
		raw := strings.TrimSpace(q.Get(bound.key))
		if raw == "" {
			continue
		}
		day, err := time.ParseInLocation(dateLayout, raw, loc)
		if err != nil {
			return salesfilter.Criteria{}, fmt.Errorf("%s must be a date in YYYY-MM-DD format", bound.key)
		}
		*bound.dest = &day
	}
	return criteria, nil
}
