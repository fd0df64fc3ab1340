package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector(nil)
	tests := []struct {
		name      string
		method    string
		target    string
		agent     string
		wantSusp  bool
		wantBlock bool
	}{
		{"plain api call", http.MethodGet, "/api/reports/2025-03", "curl/8.4", false, false},
		{"path traversal", http.MethodGet, "/api/../../etc/passwd", "", true, true},
		{"scanner agent", http.MethodGet, "/api/months", "sqlmap/1.7", true, false},
		{"trace method", "TRACE", "/healthz", "", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, "http://example.com"+tt.target, nil)
			r.Header.Set("User-Agent", tt.agent)
			susp, block := d.DetectSuspiciousRequest(r)
			if susp != tt.wantSusp || block != tt.wantBlock {
				t.Fatalf("got suspicious=%v block=%v, want %v %v", susp, block, tt.wantSusp, tt.wantBlock)
			}
		})
	}
	if got := d.GetMetrics(); got.SuspiciousRequests != 3 || got.BlockedRequests != 2 {
		t.Fatalf("metrics = %+v", got)
	}
}

func TestDetectorMiddlewareBlocks(t *testing.T) {
	d := NewDetector(nil)
	called := false
	h := d.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/.env", nil))
	if rec.Code != http.StatusBadRequest || called {
		t.Fatalf("code=%d called=%v", rec.Code, called)
	}
}

func TestExtractClientIP(t *testing.T) {
	d := NewDetector(nil)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.5:4000"
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.5")
	if got := d.ExtractClientIP(r); got != "203.0.113.9" {
		t.Fatalf("behind proxy got %q", got)
	}

	r.RemoteAddr = "198.51.100.7:4000"
	if got := d.ExtractClientIP(r); got != "198.51.100.7" {
		t.Fatalf("untrusted peer got %q", got)
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/months", nil)
	req.TLS = &tls.ConnectionState{}
	h.ServeHTTP(rec, req)

	for k, want := range map[string]string{
		"X-Content-Type-Options":    "nosniff",
		"Cache-Control":             "no-store",
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	} {
		if got := rec.Header().Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
}
