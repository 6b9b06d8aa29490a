package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/phoneadvisor/internal/catalog"
	"github.com/kalambet/phoneadvisor/internal/session"
	"github.com/kalambet/phoneadvisor/internal/storage"
)

const testToken = "test-token-12345"

type fakeImages struct{}

func (fakeImages) Lookup(_ context.Context, name string) string {
	return "https://img.test/" + strings.ReplaceAll(name, " ", "_")
}

func (f fakeImages) LookupAll(ctx context.Context, rows []catalog.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = f.Lookup(ctx, r.Name())
	}
	return out
}

func testCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Row{
		{Brand: "Samsung", Model: "Galaxy M14", PriceRs: 13999, RAMGB: 6, StorageGB: 128, BatteryMAh: 6000, BackCameraMP: 50, ScreenInches: 6.6},
		{Brand: "Xiaomi", Model: "Redmi 12", PriceRs: 9999, RAMGB: 4, StorageGB: 64, BatteryMAh: 5000, BackCameraMP: 50, ScreenInches: 6.79},
		{Brand: "Samsung", Model: "Galaxy S23", PriceRs: 74999, RAMGB: 8, StorageGB: 256, BatteryMAh: 3900, BackCameraMP: 50, ScreenInches: 6.1},
	})
}

func newTestDeps(t *testing.T) Deps {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cat := testCatalog()
	return Deps{
		Catalog:  cat,
		Sessions: session.NewManager(cat, store, session.Options{TTL: time.Hour, CleanupInterval: -1}),
		Store:    store,
		Images:   fakeImages{},
	}
}

func do(t *testing.T, h http.Handler, method, url, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decoding response %q: %v", rr.Body.String(), err)
	}
}

func errorType(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	decode(t, rr, &body)
	return body.Error.Type
}

func TestHealth(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	rr := do(t, h, http.MethodGet, "/health", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var body map[string]any
	decode(t, rr, &body)
	if body["status"] != "ok" || body["phones"] != float64(3) {
		t.Errorf("body = %v", body)
	}
}

func TestBrands(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	rr := do(t, h, http.MethodGet, "/catalog/brands", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body struct {
		Brands []string `json:"brands"`
	}
	decode(t, rr, &body)
	if len(body.Brands) != 2 || body.Brands[0] != "Samsung" || body.Brands[1] != "Xiaomi" {
		t.Errorf("brands = %v", body.Brands)
	}
}

func TestSearch(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	rr := do(t, h, http.MethodPost, "/search", `{"query":"samsung under ₹20000"}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var body searchResponse
	decode(t, rr, &body)

	if body.Count != 1 || len(body.Results) != 1 {
		t.Fatalf("results = %+v", body.Results)
	}
	card := body.Results[0]
	if card.Name != "Samsung Galaxy M14" || card.Model != "Galaxy M14" {
		t.Errorf("card = %+v", card)
	}
	if card.Image != "https://img.test/Samsung_Galaxy_M14" {
		t.Errorf("image = %q", card.Image)
	}
	if len(body.Summary) != 2 || body.Summary[1] != "under ₹20000" {
		t.Errorf("summary = %v", body.Summary)
	}
	if body.SearchID == "" {
		t.Error("expected search_id")
	}
}

func TestSearch_NoMatches(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	rr := do(t, h, http.MethodPost, "/search", `{"query":"over ₹900000"}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body map[string]any
	decode(t, rr, &body)
	results, ok := body["results"].([]any)
	if !ok || len(results) != 0 || body["count"] != float64(0) {
		t.Errorf("body = %v, want empty results array", body)
	}
}

func TestSearch_InvalidBody(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	rr := do(t, h, http.MethodPost, "/search", `{not json`, "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if got := errorType(t, rr); got != "invalid_request_error" {
		t.Errorf("error type = %q", got)
	}
}

func TestImage(t *testing.T) {
	h := NewHandler(newTestDeps(t))

	rr := do(t, h, http.MethodGet, "/images?name=Redmi+12", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body map[string]string
	decode(t, rr, &body)
	if body["url"] != "https://img.test/Redmi_12" {
		t.Errorf("body = %v", body)
	}

	rr = do(t, h, http.MethodGet, "/images", "", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing name: status = %d, want 400", rr.Code)
	}
}

func TestAuth(t *testing.T) {
	deps := newTestDeps(t)
	deps.Token = testToken
	h := NewHandler(deps)

	if rr := do(t, h, http.MethodGet, "/health", "", ""); rr.Code != http.StatusOK {
		t.Errorf("health without token: status = %d, want 200", rr.Code)
	}

	rr := do(t, h, http.MethodGet, "/catalog/brands", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", rr.Code)
	}
	if got := errorType(t, rr); got != "authentication_error" {
		t.Errorf("error type = %q", got)
	}

	if rr := do(t, h, http.MethodGet, "/catalog/brands", "", "wrong"); rr.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/catalog/brands", "", testToken); rr.Code != http.StatusOK {
		t.Errorf("valid token: status = %d, want 200", rr.Code)
	}
}

func TestParseIntParam(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 20},
		{"limit=5", 5},
		{"limit=500", 100},
		{"limit=-1", 20},
		{"limit=abc", 20},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/searches?"+tt.query, nil)
		if got := parseIntParam(req, "limit", 20, 100); got != tt.want {
			t.Errorf("parseIntParam(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}
