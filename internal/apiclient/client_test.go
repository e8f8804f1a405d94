package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/jaxxstorm/dnsdash/internal/model"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recorded struct {
	Method    string
	Path      string
	Query     string
	Body      string
	RequestID string
}

type fakeBackend struct {
	mu       sync.Mutex
	requests []recorded
	status   int
	reply    string
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recorded{
		Method:    r.Method,
		Path:      r.URL.Path,
		Query:     r.URL.RawQuery,
		Body:      string(body),
		RequestID: r.Header.Get("X-Request-Id"),
	})
	status, reply := f.status, f.reply
	f.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	if reply == "" {
		reply = "{}"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, reply)
}

func (f *fakeBackend) last(t *testing.T) recorded {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatalf("no request recorded")
	}
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T) (*Client, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL + "/", HTTPClient: srv.Client()}), backend
}

func TestRequestShapes(t *testing.T) {
	client, backend := newTestClient(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		call   func() error
		method string
		path   string
		query  string
	}{
		{"health", func() error { _, err := client.Health(ctx); return err }, "GET", "/health", ""},
		{"resolver", func() error { _, err := client.CurrentResolver(ctx); return err }, "GET", "/resolver/current", ""},
		{"resolve default", func() error { _, err := client.Resolve(ctx, ""); return err }, "GET", "/dns/resolve", "hostname=www.victim.local"},
		{"resolve host", func() error { _, err := client.Resolve(ctx, "bank.victim.local"); return err }, "GET", "/dns/resolve", "hostname=bank.victim.local"},
		{"attack status", func() error { _, err := client.AttackStatus(ctx); return err }, "GET", "/attack/status", ""},
		{"attack start mode", func() error { _, err := client.StartAttack(ctx, model.ModeDNSSEC); return err }, "POST", "/attack/start", "mode=dnssec"},
		{"attack start bare", func() error { _, err := client.StartAttack(ctx, ""); return err }, "POST", "/attack/start", ""},
		{"attack stop", func() error { _, err := client.StopAttack(ctx); return err }, "POST", "/attack/stop", ""},
		{"dig default", func() error { _, err := client.Dig(ctx, ""); return err }, "GET", "/dig", "resolver=plain"},
		{"tcpdump", func() error { _, err := client.Capture(ctx, model.ModeDNSSEC); return err }, "GET", "/tcpdump", "resolver=dnssec"},
		{"logs", func() error { _, err := client.Logs(ctx, model.ModePlain); return err }, "GET", "/logs", "resolver=plain"},
		{"cache clear", func() error { _, err := client.ClearCache(ctx, model.ModeDNSSEC); return err }, "POST", "/cache/clear", "resolver=dnssec"},
		{"plot default", func() error { _, err := client.PlotData(ctx, ""); return err }, "GET", "/plot/data", "type=attack"},
		{"plot performance", func() error { _, err := client.PlotData(ctx, "performance"); return err }, "GET", "/plot/data", "type=performance"},
		{"dnssec status", func() error { _, err := client.DNSSECStatus(ctx); return err }, "GET", "/dnssec/status", ""},
	}

	for _, tc := range cases {
		if err := tc.call(); err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		req := backend.last(t)
		if req.Method != tc.method || req.Path != tc.path || req.Query != tc.query {
			t.Fatalf("%s: got %s %s?%s, want %s %s?%s", tc.name, req.Method, req.Path, req.Query, tc.method, tc.path, tc.query)
		}
		if req.RequestID == "" {
			t.Fatalf("%s: expected X-Request-Id header", tc.name)
		}
	}
}

func TestToggleSendsEnabledBody(t *testing.T) {
	client, backend := newTestClient(t)
	backend.reply = `{"dnssec_enabled": true, "resolver_ip": "10.5.0.54", "message": "DNSSEC enabled"}`

	res, err := client.ToggleDNSSEC(context.Background(), true)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !res.DNSSECEnabled || res.ResolverIP != "10.5.0.54" {
		t.Fatalf("unexpected toggle result: %#v", res)
	}

	req := backend.last(t)
	var body map[string]bool
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if enabled, ok := body["enabled"]; !ok || !enabled {
		t.Fatalf("expected enabled=true body, got %s", req.Body)
	}
}

func TestDebugLogIncludesBodies(t *testing.T) {
	backend := &fakeBackend{reply: `{"dnssec_enabled": true, "resolver_ip": "10.5.0.54"}`}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	core, logs := observer.New(zapcore.DebugLevel)
	client := New(Options{BaseURL: srv.URL, HTTPClient: srv.Client(), Logger: zap.New(core)})

	if _, err := client.ToggleDNSSEC(context.Background(), true); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	requests := logs.FilterMessage("api request").All()
	if len(requests) != 1 {
		t.Fatalf("expected one request entry, got %d", len(requests))
	}
	if body, _ := requests[0].ContextMap()["body"].(string); body != `{"enabled":true}` {
		t.Fatalf("unexpected request body field: %q", body)
	}
	responses := logs.FilterMessage("api response").All()
	if len(responses) != 1 {
		t.Fatalf("expected one response entry, got %d", len(responses))
	}
	fields := responses[0].ContextMap()
	if body, _ := fields["body"].(string); body != backend.reply {
		t.Fatalf("unexpected response body field: %q", body)
	}
	if id, _ := fields["request_id"].(string); id == "" || id != backend.last(t).RequestID {
		t.Fatalf("expected request id %q in log, got %v", backend.last(t).RequestID, fields["request_id"])
	}
}

func TestResponsesDecode(t *testing.T) {
	client, backend := newTestClient(t)
	backend.reply = `{"hostname": "www.victim.local", "resolved_ip": "10.5.0.99", "is_poisoned": true, "is_correct": false}`

	res, err := client.Resolve(context.Background(), "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.ResolvedIP != "10.5.0.99" || !res.IsPoisoned || res.IsCorrect {
		t.Fatalf("unexpected resolution: %#v", res)
	}

	backend.reply = `{"no_dnssec": 42, "dnssec": 0}`
	plot, err := client.PlotData(context.Background(), "attack")
	if err != nil {
		t.Fatalf("plot: %v", err)
	}
	if plot.Counts()["no_dnssec"] != 42 {
		t.Fatalf("unexpected plot payload: %#v", plot)
	}
}

func TestBackendErrorMessage(t *testing.T) {
	client, backend := newTestClient(t)
	backend.status = http.StatusNotFound
	backend.reply = `{"status": "error", "message": "Container dnslab-attacker_plain-1 not found"}`

	_, err := client.StartAttack(context.Background(), model.ModePlain)
	if err == nil {
		t.Fatalf("expected error")
	}
	if err.Error() != "Container dnslab-attacker_plain-1 not found" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound || apiErr.Op != "attack-start" {
		t.Fatalf("expected *Error with status 404, got %#v", err)
	}
}

func TestBackendErrorWithoutBody(t *testing.T) {
	client, backend := newTestClient(t)
	backend.status = http.StatusInternalServerError
	backend.reply = "oops"

	_, err := client.Health(context.Background())
	if err == nil || err.Error() != "health: backend returned 500 Internal Server Error" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMalformedResponse(t *testing.T) {
	client, backend := newTestClient(t)
	backend.reply = `{"plain": "yes"`

	_, err := client.AttackStatus(context.Background())
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if apiErr.Err == nil {
		t.Fatalf("expected wrapped decode error")
	}
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	client := New(Options{BaseURL: base})
	_, err := client.CurrentResolver(context.Background())
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if apiErr.Status != 0 || apiErr.Error() == "" {
		t.Fatalf("expected transport error without status, got %#v", apiErr)
	}
}

func TestWebsiteURL(t *testing.T) {
	client := New(Options{BaseURL: "http://localhost:5000/"})
	if got := client.WebsiteURL(""); got != "http://localhost:5000/proxy/website?hostname=www.victim.local" {
		t.Fatalf("unexpected url: %s", got)
	}
}

func TestErrorDefaultMessage(t *testing.T) {
	if got := (&Error{}).Error(); got != DefaultErrorMessage {
		t.Fatalf("unexpected default message: %q", got)
	}
}

func TestNewHTTPClientRejectsUnknownProxyScheme(t *testing.T) {
	if _, err := NewHTTPClient("http://proxy.local:8080"); err == nil {
		t.Fatalf("expected error for http proxy scheme")
	}
	if _, err := NewHTTPClient("socks5://127.0.0.1:1080"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
