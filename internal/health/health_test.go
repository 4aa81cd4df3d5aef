package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/bit10voice/internal/resilience"
)

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) result {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q, want JSON", ct)
	}
	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	h := New(Checker{Name: "market", Check: func(context.Context) error { return errors.New("never consulted") }})

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body := decodeResult(t, rec); body.Status != "ok" || len(body.Checks) != 0 {
		t.Errorf("body = %+v, want a bare ok", body)
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()
	ok := func(context.Context) error { return nil }
	failWith := func(msg string) func(context.Context) error {
		return func(context.Context) error { return errors.New(msg) }
	}

	tests := []struct {
		name       string
		checkers   []Checker
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name:       "no checkers",
			wantStatus: http.StatusOK,
		},
		{
			name:       "market fresh and redis reachable",
			checkers:   []Checker{{Name: "market", Check: ok}, {Name: "redis", Check: ok}},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"market": "ok", "redis": "ok"},
		},
		{
			name:       "redis down",
			checkers:   []Checker{{Name: "market", Check: ok}, {Name: "redis", Check: failWith("connection refused")}},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"market": "ok", "redis": "fail: connection refused"},
		},
		{
			name: "everything failing",
			checkers: []Checker{
				{Name: "market", Check: failWith("no successful refresh")},
				{Name: "breakers", Check: failWith("all circuit breakers open: market/coingecko")},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{
				"market":   "fail: no successful refresh",
				"breakers": "fail: all circuit breakers open: market/coingecko",
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			New(tc.checkers...).Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			body := decodeResult(t, rec)
			wantStatus := "ok"
			if tc.wantStatus != http.StatusOK {
				wantStatus = "fail"
			}
			if body.Status != wantStatus {
				t.Errorf("body status = %q, want %q", body.Status, wantStatus)
			}
			for name, want := range tc.wantChecks {
				if got := body.Checks[name]; got != want {
					t.Errorf("checks[%q] = %q, want %q", name, got, want)
				}
			}
		})
	}
}

func TestReadyz_CancelledRequest(t *testing.T) {
	t.Parallel()
	h := New(Checker{Name: "market", Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil).WithContext(ctx))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	New(Checker{Name: "market", Check: func(context.Context) error { return ErrStale }}).Register(mux)

	for path, want := range map[string]int{
		"/healthz": http.StatusOK,
		"/readyz":  http.StatusServiceUnavailable,
	} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != want {
			t.Errorf("GET %s = %d, want %d", path, rec.Code, want)
		}
	}
}

func TestReadyz_RunsCheckersConcurrently(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	wait := func(ctx context.Context) error {
		started <- struct{}{}
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	h := New(Checker{Name: "a", Check: wait}, Checker{Name: "b", Check: wait})

	done := make(chan int, 1)
	go func() {
		rec := httptest.NewRecorder()
		h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))
		done <- rec.Code
	}()

	for range 2 {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatal("checkers did not start concurrently")
		}
	}
	close(release)
	if code := <-done; code != http.StatusOK {
		t.Errorf("status = %d, want %d", code, http.StatusOK)
	}
}

func TestBreakers(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		states  map[string]resilience.State
		wantErr string
	}{
		{"none", nil, ""},
		{"all closed", map[string]resilience.State{"a": resilience.StateClosed, "b": resilience.StateClosed}, ""},
		{"one open", map[string]resilience.State{"a": resilience.StateOpen, "b": resilience.StateClosed}, ""},
		{"half open counts as usable", map[string]resilience.State{"a": resilience.StateOpen, "b": resilience.StateHalfOpen}, ""},
		{"all open", map[string]resilience.State{"b": resilience.StateOpen, "a": resilience.StateOpen}, "all circuit breakers open: a, b"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := Breakers("market", func() map[string]resilience.State { return tc.states })
			err := c.Check(context.Background())
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tc.wantErr {
				t.Errorf("error = %v, want %q", err, tc.wantErr)
			}
		})
	}
}

func TestFreshness(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		updated time.Time
		wantErr bool
	}{
		{"never", time.Time{}, true},
		{"recent", time.Now().Add(-time.Second), false},
		{"stale", time.Now().Add(-time.Hour), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := Freshness("store", 5*time.Minute, func() time.Time { return tc.updated })
			err := c.Check(context.Background())
			if tc.wantErr {
				if !errors.Is(err, ErrStale) {
					t.Errorf("error = %v, want ErrStale", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestPing(t *testing.T) {
	t.Parallel()
	h := New(Ping("redis", func(context.Context) error { return errors.New("dial tcp: refused") }))
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if !strings.Contains(rec.Body.String(), "fail: dial tcp: refused") {
		t.Errorf("body = %s", rec.Body.String())
	}
}
