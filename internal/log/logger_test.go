package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestConfigFromStrings(t *testing.T) {
	tests := []struct {
		level, format string
		want          slog.Level
		wantFormat    string
		wantErr       bool
	}{
		{"", "", slog.LevelInfo, "text", false},
		{"DEBUG", "json", slog.LevelDebug, "json", false},
		{"warning", "text", slog.LevelWarn, "text", false},
		{"verbose", "", 0, "", true},
		{"info", "xml", 0, "", true},
	}
	for _, tt := range tests {
		cfg, err := ConfigFromStrings(tt.level, tt.format)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ConfigFromStrings(%q, %q) expected error", tt.level, tt.format)
			}
			continue
		}
		if err != nil || cfg.Level != tt.want || cfg.Format != tt.wantFormat {
			t.Errorf("ConfigFromStrings(%q, %q) = %+v, %v", tt.level, tt.format, cfg, err)
		}
	}
}

func TestJSONLoggerCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: "json", Output: &buf}).WithComponent(ComponentRecorder)
	l.InfoContext(context.Background(), "Job closed", FieldTable, "Jobs")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not JSON: %q", buf.String())
	}
	if rec[FieldComponent] != ComponentRecorder || rec[FieldTable] != "Jobs" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestMiddlewareAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Format: "json", Output: &buf})
	h := Middleware(base, func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "Handled")
		}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not JSON: %q", buf.String())
	}
	if rec[FieldRequestID] != "req-1" {
		t.Fatalf("request id missing: %v", rec)
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if got := FromContext(context.Background()).Component(); got != ComponentApp {
		t.Fatalf("component = %q", got)
	}
}
