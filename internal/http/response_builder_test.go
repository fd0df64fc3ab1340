package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"cleaningos/internal/core"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/jobs").
		Body(map[string]int{"count": 2}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := w.Header().Get("Location"); got != "/api/jobs" {
		t.Errorf("Location = %q", got)
	}
	if w.Body.String() != "{\"count\":2}\n" {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestDomainErrorResponse(t *testing.T) {
	partial := &core.PartialWriteError{
		Event:   "close_job",
		Written: []core.PendingRow{{Table: core.TableJobs}},
		Pending: []core.PendingRow{{Table: core.TableCashflow}},
		Err:     errors.New("quota exceeded"),
	}
	tests := []struct {
		name     string
		err      error
		resumeID string
		status   int
		code     string
		check    func(t *testing.T, e APIError)
	}{
		{
			name:   "validation",
			err:    fmt.Errorf("close job: %w", &core.ValidationError{Field: "rating", Reason: "must be between 1 and 5"}),
			status: http.StatusUnprocessableEntity,
			code:   CodeValidation,
			check: func(t *testing.T, e APIError) {
				if e.Field != "rating" {
					t.Errorf("field = %q", e.Field)
				}
			},
		},
		{
			name:   "storage unavailable keeps upstream detail",
			err:    &core.StorageUnavailableError{Backend: "sheets", Detail: "The caller does not have permission"},
			status: http.StatusServiceUnavailable,
			code:   CodeStorage,
			check: func(t *testing.T, e APIError) {
				if e.Detail != "The caller does not have permission" || e.Backend != "sheets" {
					t.Errorf("got %+v", e)
				}
			},
		},
		{
			name:   "schema",
			err:    &core.SchemaError{Table: core.TableJobs, Column: "Rating"},
			status: http.StatusInternalServerError,
			code:   CodeSchema,
			check: func(t *testing.T, e APIError) {
				if e.Table != "Jobs" || e.Column != "Rating" {
					t.Errorf("got %+v", e)
				}
			},
		},
		{
			name:     "partial write",
			err:      partial,
			resumeID: "abc",
			status:   http.StatusInternalServerError,
			code:     CodePartialWrite,
			check: func(t *testing.T, e APIError) {
				if e.ResumeID != "abc" || e.Written != 1 || len(e.Pending) != 1 || e.Pending[0] != "Cashflow" {
					t.Errorf("got %+v", e)
				}
			},
		},
		{
			name:   "unknown",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
			code:   CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			DomainErrorResponse(tt.err, tt.resumeID).Write(w)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			var body errorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error.Code != tt.code {
				t.Fatalf("code = %q, want %q", body.Error.Code, tt.code)
			}
			if tt.check != nil {
				tt.check(t, body.Error)
			}
		})
	}
}
