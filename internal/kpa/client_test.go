package kpa

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// canned is one scripted response.
type canned struct {
	statusCode int
	body       string
}

// scriptedHandler captures incoming requests and replays canned responses in
// order; the last response repeats once the script is exhausted.
type scriptedHandler struct {
	responses []canned

	// captured from requests
	calls  int
	paths  []string
	bodies []string
}

func (h *scriptedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	h.paths = append(h.paths, r.URL.Path)
	h.bodies = append(h.bodies, string(data))

	i := h.calls
	if i >= len(h.responses) {
		i = len(h.responses) - 1
	}
	h.calls++

	resp := h.responses[i]
	w.Header().Set("Content-Type", "application/json")
	if resp.statusCode != 0 {
		w.WriteHeader(resp.statusCode)
	}
	_, _ = w.Write([]byte(resp.body))
}

// newTestClient creates a Client pointed at a test server, with sleeps
// recorded instead of performed.
func newTestClient(t *testing.T, h http.Handler) (*Client, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	var sleeps []time.Duration
	c := NewClient(Options{BaseURL: srv.URL, Token: "secret"})
	c.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return c, &sleeps
}

func TestDo_AttachesToken(t *testing.T) {
	h := &scriptedHandler{responses: []canned{{body: `{"ok":true,"forms":[]}`}}}
	c, _ := newTestClient(t, h)

	if _, err := c.ListForms(context.Background()); err != nil {
		t.Fatalf("ListForms: %v", err)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(h.bodies[0]), &body); err != nil {
		t.Fatalf("request body not JSON: %v", err)
	}
	if body["token"] != "secret" {
		t.Errorf("token = %v, want %q", body["token"], "secret")
	}
}

func TestDo_UserAgentHeader(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Options{BaseURL: srv.URL, Token: "x", UserAgent: "kpatap/1.0"})
	if _, err := c.do(context.Background(), "/forms.list", nil); err != nil {
		t.Fatalf("do: %v", err)
	}
	if gotUA != "kpatap/1.0" {
		t.Errorf("User-Agent = %q, want %q", gotUA, "kpatap/1.0")
	}
}

func TestDo_RateLimitCooldownThenRetry(t *testing.T) {
	h := &scriptedHandler{responses: []canned{
		{body: `{"ok":false,"error":"rate_limit_exceeded"}`},
		{body: `{"ok":true,"forms":[{"id":"f1","name":"Safety"}]}`},
	}}
	c, sleeps := newTestClient(t, h)

	forms, err := c.ListForms(context.Background())
	if err != nil {
		t.Fatalf("ListForms: %v", err)
	}
	if len(forms) != 1 || forms[0].Name != "Safety" {
		t.Fatalf("forms = %+v", forms)
	}
	if h.calls != 2 {
		t.Errorf("calls = %d, want 2", h.calls)
	}
	// Exactly one mandatory 120s cooldown plus one backoff sleep.
	if len(*sleeps) != 2 {
		t.Fatalf("sleeps = %v, want cooldown + backoff", *sleeps)
	}
	if (*sleeps)[0] != defaultCooldown {
		t.Errorf("cooldown = %v, want %v", (*sleeps)[0], defaultCooldown)
	}
}

func TestDo_FatalStatusNoRetry(t *testing.T) {
	h := &scriptedHandler{responses: []canned{
		{statusCode: http.StatusNotFound, body: `{"error":"unknown_method"}`},
	}}
	c, sleeps := newTestClient(t, h)

	_, err := c.do(context.Background(), "/forms.list", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", apiErr.StatusCode)
	}
	if !strings.Contains(apiErr.Error(), "unknown_method") {
		t.Errorf("error %q does not include response body", apiErr.Error())
	}
	if h.calls != 1 {
		t.Errorf("calls = %d, want 1 (no retries)", h.calls)
	}
	if len(*sleeps) != 0 {
		t.Errorf("sleeps = %v, want none", *sleeps)
	}
}

func TestDo_OKFalseIsFatal(t *testing.T) {
	h := &scriptedHandler{responses: []canned{
		{body: `{"ok":false,"error":"invalid_token"}`},
	}}
	c, _ := newTestClient(t, h)

	_, err := c.do(context.Background(), "/forms.list", nil)
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Retriable {
		t.Error("ok:false should be fatal")
	}
	if h.calls != 1 {
		t.Errorf("calls = %d, want 1", h.calls)
	}
}

func TestDo_RetriableThenSuccess(t *testing.T) {
	h := &scriptedHandler{responses: []canned{
		{statusCode: http.StatusServiceUnavailable, body: `oops`},
		{statusCode: http.StatusBadGateway, body: `oops`},
		{body: `{"ok":true}`},
	}}
	c, sleeps := newTestClient(t, h)

	if _, err := c.do(context.Background(), "/forms.list", nil); err != nil {
		t.Fatalf("do: %v", err)
	}
	if h.calls != 3 {
		t.Errorf("calls = %d, want 3", h.calls)
	}
	// Backoff doubles: 2s then 4s.
	want := []time.Duration{defaultBackoff, 2 * defaultBackoff}
	if len(*sleeps) != len(want) || (*sleeps)[0] != want[0] || (*sleeps)[1] != want[1] {
		t.Errorf("sleeps = %v, want %v", *sleeps, want)
	}
}

func TestDo_ExtraRetryStatus(t *testing.T) {
	h := &scriptedHandler{responses: []canned{
		{statusCode: http.StatusTooManyRequests, body: `slow down`},
		{body: `{"ok":true}`},
	}}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := NewClient(Options{BaseURL: srv.URL, Token: "x", ExtraRetryStatuses: []int{429}})
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	if _, err := c.do(context.Background(), "/forms.list", nil); err != nil {
		t.Fatalf("do: %v", err)
	}
	if h.calls != 2 {
		t.Errorf("calls = %d, want 2", h.calls)
	}
}

func TestDo_RetriesExhausted(t *testing.T) {
	h := &scriptedHandler{responses: []canned{
		{statusCode: http.StatusInternalServerError, body: `boom`},
	}}
	c, sleeps := newTestClient(t, h)

	_, err := c.do(context.Background(), "/forms.list", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if h.calls != defaultMaxAttempts {
		t.Errorf("calls = %d, want %d", h.calls, defaultMaxAttempts)
	}
	if len(*sleeps) != defaultMaxAttempts-1 {
		t.Errorf("sleeps = %d, want %d", len(*sleeps), defaultMaxAttempts-1)
	}
	if !strings.Contains(err.Error(), "giving up after") {
		t.Errorf("error = %q, want exhaustion message", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error = %q, want last response body", err)
	}
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	h := &scriptedHandler{responses: []canned{
		{statusCode: http.StatusInternalServerError, body: `boom`},
	}}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	c := NewClient(Options{BaseURL: srv.URL, Token: "x"})
	c.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := c.do(ctx, "/forms.list", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if h.calls != 1 {
		t.Errorf("calls = %d, want 1 (aborted between attempts)", h.calls)
	}
}
