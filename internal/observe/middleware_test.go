package observe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coder/websocket"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// instrumented wraps a dashboard-shaped mux in [Middleware] backed by
// in-memory metric and span sinks. It swaps the global tracer provider, so
// callers must not run in parallel.
func instrumented(t *testing.T) (http.Handler, *sdkmetric.ManualReader, *tracetest.InMemoryExporter) {
	t.Helper()

	m, reader := newTestMetrics(t)

	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/dashboard", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Seen-Correlation", CorrelationID(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /api/assets/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "dogecoin" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /api/voice/stop", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	return Middleware(m)(mux), reader, exp
}

func TestMiddleware_Requests(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantSpan   string
	}{
		{"dashboard", "GET", "/api/dashboard", http.StatusOK, "HTTP GET /api/dashboard"},
		{"known asset", "GET", "/api/assets/bitcoin", http.StatusOK, "HTTP GET /api/assets/bitcoin"},
		{"unknown asset", "GET", "/api/assets/dogecoin", http.StatusNotFound, "HTTP GET /api/assets/dogecoin"},
		{"voice offline", "POST", "/api/voice/stop", http.StatusServiceUnavailable, "HTTP POST /api/voice/stop"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler, _, exp := instrumented(t)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if cid := rec.Header().Get("X-Correlation-ID"); len(cid) != 32 {
				t.Errorf("X-Correlation-ID = %q, want a 32-char trace id", cid)
			}

			spans := exp.GetSpans()
			if len(spans) != 1 {
				t.Fatalf("spans = %d, want 1", len(spans))
			}
			if spans[0].Name != tc.wantSpan {
				t.Errorf("span name = %q, want %q", spans[0].Name, tc.wantSpan)
			}
			var status int64
			for _, a := range spans[0].Attributes {
				if a.Key == "http.response.status_code" {
					status = a.Value.AsInt64()
				}
			}
			if status != int64(tc.wantStatus) {
				t.Errorf("span status attribute = %d, want %d", status, tc.wantStatus)
			}
		})
	}
}

func TestMiddleware_HandlerSeesCorrelationID(t *testing.T) {
	handler, _, _ := instrumented(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/dashboard", nil))

	seen := rec.Header().Get("X-Seen-Correlation")
	if seen == "" || seen != rec.Header().Get("X-Correlation-ID") {
		t.Errorf("handler saw %q, response header %q", seen, rec.Header().Get("X-Correlation-ID"))
	}
}

func TestMiddleware_ContinuesIncomingTrace(t *testing.T) {
	const traceID = "0af7651916cd43dd8448eb211c80319c"
	handler, _, _ := instrumented(t)

	req := httptest.NewRequest("GET", "/api/dashboard", nil)
	req.Header.Set("traceparent", "00-"+traceID+"-b7ad6b7169203331-01")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Seen-Correlation"); got != traceID {
		t.Errorf("correlation id = %q, want %q", got, traceID)
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != traceID {
		t.Errorf("X-Correlation-ID = %q, want %q", got, traceID)
	}
}

func TestMiddleware_DurationByRoute(t *testing.T) {
	handler, reader, _ := instrumented(t)

	for _, id := range []string{"bitcoin", "ethereum", "solana"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/assets/"+id, nil))
	}
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/dashboard", nil))

	met := findMetric(collect(t, reader), "bit10.http.request.duration")
	if met == nil {
		t.Fatal("bit10.http.request.duration not recorded")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("metric data = %T, want a float64 histogram", met.Data)
	}

	counts := make(map[string]uint64)
	for _, dp := range hist.DataPoints {
		path, _ := dp.Attributes.Value("path")
		method, _ := dp.Attributes.Value("method")
		if method.AsString() != "GET" {
			t.Errorf("method attribute = %q, want GET", method.AsString())
		}
		counts[path.AsString()] += dp.Count
	}
	if counts["GET /api/assets/{id}"] != 3 {
		t.Errorf("asset route count = %d, want 3 (counts %v)", counts["GET /api/assets/{id}"], counts)
	}
	if counts["GET /api/dashboard"] != 1 {
		t.Errorf("dashboard route count = %d, want 1 (counts %v)", counts["GET /api/dashboard"], counts)
	}
}

func TestMiddleware_VoiceStreamUpgrade(t *testing.T) {
	m, _ := newTestMetrics(t)

	stream := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("Accept: %v", err)
			return
		}
		defer conn.CloseNow()
		_ = conn.Write(r.Context(), websocket.MessageText, []byte(`{"type":"state","state":"idle"}`))
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}))
	srv := httptest.NewServer(stream)
	defer srv.Close()

	ctx := context.Background()
	conn, _, err := websocket.Dial(ctx, "ws"+srv.URL[len("http"):], nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.CloseNow()

	_, msg, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(msg) != `{"type":"state","state":"idle"}` {
		t.Errorf("frame = %s", msg)
	}
}
