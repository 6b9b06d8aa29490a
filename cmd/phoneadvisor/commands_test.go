package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/kalambet/phoneadvisor/internal/catalog"
	"github.com/kalambet/phoneadvisor/internal/config"
	"github.com/kalambet/phoneadvisor/internal/session"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.mu.Lock()
		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})
		ts.mu.Unlock()

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

func (ts *testServer) recorded() []recordedRequest {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]recordedRequest(nil), ts.requests...)
}

// useClient points the commands at ts for the duration of the test.
func useClient(t *testing.T, ts *testServer) {
	t.Helper()
	old := newAPIClient
	newAPIClient = func() (*apiClient, error) { return ts.client(), nil }
	t.Cleanup(func() { newAPIClient = old })
}

func withoutColor(t *testing.T) {
	t.Helper()
	old := noColor
	noColor = true
	t.Cleanup(func() { noColor = old })
}

var ctx = context.Background()

func testRows() []catalog.Row {
	return []catalog.Row{
		{Brand: "Samsung", Model: "Galaxy M14", PriceRs: 13999, RAMGB: 6, StorageGB: 128, BatteryMAh: 6000, BackCameraMP: 50, ScreenInches: 6.6},
		{Brand: "Xiaomi", Model: "Redmi 12", PriceRs: 9999, RAMGB: 4, StorageGB: 64, BatteryMAh: 5000, BackCameraMP: 50, ScreenInches: 6.79},
		{Brand: "Samsung", Model: "Galaxy S23", PriceRs: 74999, RAMGB: 8, StorageGB: 256, BatteryMAh: 3900, BackCameraMP: 50, ScreenInches: 6.1},
	}
}

func testManager() *session.Manager {
	return session.NewManager(catalog.New(testRows()), nil, session.Options{CleanupInterval: -1})
}

func TestStatus_Running(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /health": `{"status":"ok","phones":3,"sessions":1}`,
	})

	h, err := fetchHealth(ctx, ts.client())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Status != "ok" || h.Phones != 3 || h.Sessions != 1 {
		t.Errorf("health = %+v", h)
	}

	reqs := ts.recorded()
	if len(reqs) != 1 || reqs[0].Auth != "Bearer test-token" {
		t.Errorf("requests = %+v", reqs)
	}
}

func TestStatus_Stopped(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.server.Close()

	_, err := fetchHealth(ctx, ts.client())
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestClient_NoTokenNoAuthHeader(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /health": `{"status":"ok"}`,
	})
	c := ts.client()
	c.token = ""

	if _, err := fetchHealth(ctx, c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if auth := ts.recorded()[0].Auth; auth != "" {
		t.Errorf("Authorization = %q, want none", auth)
	}
}

func TestDecodeJSON_ErrorEnvelope(t *testing.T) {
	ts := newTestServer(t, map[string]string{})

	resp, err := ts.client().get(ctx, "/searches/missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var v any
	err = decodeJSON(resp, &v)
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if err.Error() != "server returned 404: not found" {
		t.Errorf("error = %q", err.Error())
	}
}

func TestFetchHistory(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /searches": `[{"id":"0f8e2a4c-1111","created_at":"2025-01-01T00:00:00Z","mode":"direct","query":"samsung","constraints":{"brand":"samsung"},"result_count":2}]`,
	})

	records, err := fetchHistory(ctx, ts.client(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.Mode != "direct" || r.Query != "samsung" || r.ResultCount != 2 {
		t.Errorf("record = %+v", r)
	}
	if string(r.Constraints) != `{"brand":"samsung"}` {
		t.Errorf("constraints = %s", r.Constraints)
	}
	if path := ts.recorded()[0].Path; path != "/searches?limit=5" {
		t.Errorf("path = %q, want /searches?limit=5", path)
	}
}

func TestHistoryDeleteCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"DELETE /searches/abc-123": `{"status":"deleted"}`,
	})
	useClient(t, ts)
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"history", "delete", "abc-123"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reqs := ts.recorded()
	if len(reqs) != 1 || reqs[0].Method != "DELETE" || reqs[0].Path != "/searches/abc-123" {
		t.Errorf("requests = %+v", reqs)
	}
}

func TestHistoryDeleteCommand_NotFound(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	useClient(t, ts)
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"history", "delete", "missing"})
	err := rootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("expected 404 error, got %v", err)
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestRunChat_DialogueToSearch(t *testing.T) {
	withoutColor(t)
	in := strings.NewReader("under ₹20000\n4gb ram\n64gb storage\n5000 mah\nyes\n/quit\n")
	var out bytes.Buffer

	if err := runChat(ctx, testManager(), in, &out, 10); err != nil {
		t.Fatalf("runChat: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"advisor> Hello! I'm your Phone Advisor.",
		"And how much RAM are you looking for?",
		"Shall I search now",
		"Understood! Searching for",
		"advisor> Searching for phones now...",
		"Samsung Galaxy M14",
		"Xiaomi Redmi 12",
		"₹13999",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Galaxy S23") {
		t.Errorf("output lists a phone outside the criteria:\n%s", got)
	}
}

func TestRunChat_NoMatches(t *testing.T) {
	withoutColor(t)
	in := strings.NewReader("show me samsung phones under ₹1000\n")
	var out bytes.Buffer

	if err := runChat(ctx, testManager(), in, &out, 10); err != nil {
		t.Fatalf("runChat: %v", err)
	}
	got := out.String()
	for _, want := range []string{
		"advisor> Searching for phones now...",
		"advisor> No phones found matching your combined criteria.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRunChat_ResetAndQuit(t *testing.T) {
	withoutColor(t)
	m := testManager()
	in := strings.NewReader("under ₹20000\n/reset\n\n/quit\nhello\n")
	var out bytes.Buffer

	if err := runChat(ctx, m, in, &out, 10); err != nil {
		t.Fatalf("runChat: %v", err)
	}

	got := out.String()
	if n := strings.Count(got, "Tell me what you're looking for!"); n != 2 {
		t.Errorf("opener printed %d times, want 2:\n%s", n, got)
	}
	if strings.Contains(got, "Tell me what kind of phone you are looking for") {
		t.Errorf("input after /quit was processed:\n%s", got)
	}
	if m.Count() != 0 {
		t.Errorf("chat session left behind: %d", m.Count())
	}
}

func TestPrintPhones_Limit(t *testing.T) {
	var out bytes.Buffer
	printPhones(&out, testRows(), 2)

	got := out.String()
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d, want header + 2 rows + footer:\n%s", len(lines), got)
	}
	if !strings.HasPrefix(lines[0], "PHONE") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "Samsung Galaxy M14") || !strings.Contains(lines[1], "6000mAh") {
		t.Errorf("row = %q", lines[1])
	}
	if lines[3] != "... and 1 more" {
		t.Errorf("footer = %q", lines[3])
	}
}

func TestSearchCommand_MissingArgs(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"search"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing query")
	}
	if !strings.Contains(err.Error(), "requires at least 1 arg") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestSearchCommand_JSON(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("PHONEADVISOR_CATALOG_PATH", "")
	t.Setenv("PHONEADVISOR_LOG_LEVEL", "")
	oldLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(oldLogger) })

	csvPath := filepath.Join(t.TempDir(), "phones.csv")
	csv := "brand,model,launched_price_rs,ram_gb,storage_gb,battery_capacity_mah,back_camera_mp,screen_size_inches\n" +
		"Samsung,Galaxy M14,13999,6,128,6000,50,6.6\n" +
		"Xiaomi,Redmi 12,9999,4,64,5000,50,6.79\n" +
		"Samsung,Galaxy S23,74999,8,256,3900,50,6.1\n"
	if err := os.WriteFile(csvPath, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	defer rootCmd.SetOut(nil)
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"search", "--catalog", csvPath, "--json", "samsung", "phones"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var res session.DirectResult
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, out.String())
	}
	if res.Query != "samsung phones" {
		t.Errorf("query = %q", res.Query)
	}
	if len(res.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(res.Results))
	}
	for _, r := range res.Results {
		if r.Brand != "Samsung" {
			t.Errorf("unexpected brand in %+v", r)
		}
	}
}

func TestSetupLogging(t *testing.T) {
	old := slog.Default()
	defer slog.SetDefault(old)

	setupLogging("debug")
	if !slog.Default().Enabled(ctx, slog.LevelDebug) {
		t.Error("debug level not enabled")
	}

	setupLogging("loud")
	if slog.Default().Enabled(ctx, slog.LevelDebug) || !slog.Default().Enabled(ctx, slog.LevelInfo) {
		t.Error("unknown level should fall back to info")
	}
}

func TestConfigSetAndUnset(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("PHONEADVISOR_SERVER_PORT", "")
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"config", "set", "server.port", "4321"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("config set: %v", err)
	}
	cfg, err := config.LoadUnvalidated()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 4321 {
		t.Errorf("Server.Port = %d, want 4321", cfg.Server.Port)
	}

	rootCmd.SetArgs([]string{"config", "unset", "server.port"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("config unset: %v", err)
	}
	cfg, _ = config.LoadUnvalidated()
	if cfg.Server.Port != 4100 {
		t.Errorf("Server.Port = %d, want default 4100", cfg.Server.Port)
	}

	rootCmd.SetArgs([]string{"config", "set", "server.port", "high"})
	if err := rootCmd.Execute(); err == nil {
		t.Error("expected error for non-integer port")
	}
}
