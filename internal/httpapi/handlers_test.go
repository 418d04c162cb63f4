package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"teasales/backend/internal/cache"
	"teasales/backend/internal/domain"
	"teasales/backend/internal/service"
	"teasales/backend/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, cache.NoopCatalogCache{}, cache.NewMemoryDraftStore(), service.Options{})
	auth := NewAuthManager("test-secret-key-with-enough-length", time.Hour, repo)

	return New(svc, auth, Options{AllowedOrigin: "*", AllowSignup: true, MetricsEnabled: true})
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, handler http.Handler, email, password string) string {
	t.Helper()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d (body: %s)", email, rec.Code, rec.Body.String())
	}
	var resp domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return resp.AccessToken
}

func decodeDraft(t *testing.T, rec *httptest.ResponseRecorder) domain.Draft {
	t.Helper()
	var resp domain.DraftResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode draft: %v", err)
	}
	return resp.Draft
}

func TestHandleHealth(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("expected security headers on every response")
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "admin@teasales.local",
		"password": "wrongpassword",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleLogin_RateLimit(t *testing.T) {
	handler := newTestAPI(t).Handler()

	var last int
	for i := 0; i < 6; i++ {
		rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email":    "admin@teasales.local",
			"password": "badpass",
		})
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on 6th attempt, got %d", last)
	}
}

func TestHandleLogin_RejectsUnknownFields(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "admin",
		"password": "admin123",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestProtectedRoutesRequireBearerToken(t *testing.T) {
	handler := newTestAPI(t).Handler()

	for _, path := range []string{"/api/v1/catalog", "/api/v1/sales", "/api/v1/auth/me"} {
		rec := doJSON(t, handler, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, rec.Code)
		}
	}

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/catalog", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", rec.Code)
	}
}

func TestCatalogAndSearch(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "seller@teasales.local", "seller123")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/catalog", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("catalog: expected 200, got %d", rec.Code)
	}
	var catalog domain.Catalog
	if err := json.NewDecoder(rec.Body).Decode(&catalog); err != nil {
		t.Fatalf("decode catalog: %v", err)
	}
	if len(catalog.Products) != 7 || len(catalog.Customers) != 4 {
		t.Fatalf("unexpected catalog size %d/%d", len(catalog.Products), len(catalog.Customers))
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/customers?q=AMI", token, nil)
	var customers struct {
		Customers []domain.Customer `json:"customers"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&customers); err != nil {
		t.Fatalf("decode customers: %v", err)
	}
	if len(customers.Customers) != 2 {
		t.Fatalf("expected Amit and Amita, got %+v", customers.Customers)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/products", token, map[string]any{"name": "Oolong", "price": "300"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("seller creating product: expected 403, got %d", rec.Code)
	}

	admin := login(t, handler, "admin@teasales.local", "admin123")
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/products", admin, map[string]any{"name": "Oolong", "price": "300"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin creating product: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/customers", token, map[string]any{"name": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty customer name: expected 400, got %d", rec.Code)
	}
}

func TestDraftToSaleFlow(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "seller@teasales.local", "seller123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/drafts", token, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("open draft: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	draftID := decodeDraft(t, rec).ID
	base := "/api/v1/drafts/" + draftID

	for i := 0; i < 2; i++ {
		rec = doJSON(t, handler, http.MethodPost, base+"/items", token, map[string]string{"product_id": "prod-darjeeling-ff"})
		if rec.Code != http.StatusOK {
			t.Fatalf("add item: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
		}
	}
	rec = doJSON(t, handler, http.MethodPost, base+"/items", token, map[string]string{"product_id": "prod-unknown"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown product: expected 404, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPatch, base+"/items/prod-darjeeling-ff", token, map[string]int{"quantity": -1})
	draft := decodeDraft(t, rec)
	if draft.Lines[0].Quantity != 2 || !draft.TotalAmount.Equal(decimal.NewFromInt(960)) {
		t.Fatalf("negative quantity must leave the draft unchanged, got %+v", draft)
	}

	rec = doJSON(t, handler, http.MethodPost, base+"/submit", token, map[string]string{"paid_amount": "100"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("submit without customer: expected 422, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPut, base+"/customer", token, map[string]string{"customer_id": "cust-amita"})
	if rec.Code != http.StatusOK {
		t.Fatalf("select customer: expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, base+"/submit", token, map[string]any{})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("submit without paid amount: expected 422, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, base+"/submit", token, map[string]string{"paid_amount": "100"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var saleResp domain.SaleResponse
	if err := json.NewDecoder(rec.Body).Decode(&saleResp); err != nil {
		t.Fatalf("decode sale: %v", err)
	}
	sale := saleResp.Sale
	if !sale.BalanceAdded.Equal(decimal.NewFromInt(860)) {
		t.Fatalf("expected balance 860, got %s", sale.BalanceAdded)
	}

	rec = doJSON(t, handler, http.MethodGet, base, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("draft should be gone after submit, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPatch, "/api/v1/sales/"+sale.ID+"/paid", token, map[string]string{"paid_amount": "960"})
	if rec.Code != http.StatusOK {
		t.Fatalf("edit paid: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if err := json.NewDecoder(rec.Body).Decode(&saleResp); err != nil {
		t.Fatalf("decode sale: %v", err)
	}
	if !saleResp.Sale.BalanceAdded.Equal(decimal.NewFromInt(860)) {
		t.Fatalf("balance_added must not change on paid edit, got %s", saleResp.Sale.BalanceAdded)
	}

	today := time.Now().UTC().Format(dateLayout)
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/sales?customer=amita&balance=86&from="+today+"&to="+today, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list sales: expected 200, got %d", rec.Code)
	}
	var list domain.SaleListResponse
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Count != 1 || list.Sales[0].ID != sale.ID {
		t.Fatalf("expected the submitted sale, got %+v", list)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/sales?total=abc", token, nil)
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Count != 0 {
		t.Fatalf("non-numeric total text should match nothing, got %d", list.Count)
	}
}

func TestDraftsAreNotSharedBetweenSellers(t *testing.T) {
	handler := newTestAPI(t).Handler()
	seller := login(t, handler, "seller@teasales.local", "seller123")
	admin := login(t, handler, "admin@teasales.local", "admin123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/drafts", seller, nil)
	draftID := decodeDraft(t, rec).ID

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/drafts/"+draftID, admin, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for another user's draft, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/v1/drafts/"+draftID, seller, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("discard: expected 200, got %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/drafts/"+draftID, seller, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after discard, got %d", rec.Code)
	}
}

func TestListSalesRejectsBadDates(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "seller@teasales.local", "seller123")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/sales?from=05/01/2024", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSignupAndMe(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"name":     "Priya",
		"email":    "priya@example.com",
		"password": "chai-lover",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var resp domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode signup: %v", err)
	}
	if resp.Role != domain.RoleSeller {
		t.Fatalf("expected seller role, got %q", resp.Role)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/auth/me", resp.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", rec.Code)
	}
	var me domain.UserResponse
	if err := json.NewDecoder(rec.Body).Decode(&me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.User.Name != "Priya" || me.User.PasswordHash != "" {
		t.Fatalf("unexpected profile %+v", me.User)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"name":     "Priya Again",
		"email":    "PRIYA@example.com",
		"password": "another-pass",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate signup: expected 409, got %d", rec.Code)
	}
}

func TestSignupDisabled(t *testing.T) {
	repo := memory.NewSeeded()
	svc := service.New(repo, nil, nil, service.Options{})
	api := New(svc, NewAuthManager("test-secret-key-with-enough-length", time.Hour, repo), Options{})

	rec := doJSON(t, api.Handler(), http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"name": "X", "email": "x@example.com", "password": "secret1",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	rec = doJSON(t, api.Handler(), http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("metrics should be off, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	handler := newTestAPI(t).Handler()

	_ = doJSON(t, handler, http.MethodGet, "/healthz", "", nil)
	rec := doJSON(t, handler, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("teasales_http_request_duration_seconds")) {
		t.Fatalf("expected request duration histogram in output")
	}
}
