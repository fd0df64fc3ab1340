// Package http exposes the ledger as a JSON API.
//
// This file implements a small builder for JSON responses and the mapping of
// domain errors to status codes.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"cleaningos/internal/core"
)

// Error codes carried in the "code" field of error bodies.
const (
	CodeValidation   = "validation_error"
	CodeStorage      = "storage_unavailable"
	CodeSchema       = "schema_error"
	CodePartialWrite = "partial_write"
	CodeNotFound     = "not_found"
	CodeBadRequest   = "bad_request"
	CodeRateLimited  = "rate_limited"
	CodeInternal     = "internal_error"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if b.body != nil {
		_ = json.NewEncoder(w).Encode(b.body)
	}
}

// APIError is the body of every error response.
type APIError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Field   string   `json:"field,omitempty"`
	Table   string   `json:"table,omitempty"`
	Column  string   `json:"column,omitempty"`
	Backend string   `json:"backend,omitempty"`
	Detail  string   `json:"detail,omitempty"`
	Event   string   `json:"event,omitempty"`
	Written int      `json:"written,omitempty"`
	Pending []string `json:"pending,omitempty"`

	// ResumeID names the stored partial write for POST /api/partial-writes/{id}/resume.
	ResumeID string `json:"resume_id,omitempty"`
}

type errorBody struct {
	Error APIError `json:"error"`
}

// ErrorResponse creates an error response with the given code and message.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(errorBody{Error: APIError{Code: code, Message: message}})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, CodeBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, CodeNotFound, message)
}

// DomainErrorResponse maps the ledger error taxonomy onto HTTP:
// validation 422, storage unavailable 503, schema 500, partial write 500.
// resumeID is only used for partial writes.
func DomainErrorResponse(err error, resumeID string) *JSONResponseBuilder {
	var (
		verr *core.ValidationError
		serr *core.StorageUnavailableError
		scer *core.SchemaError
		perr *core.PartialWriteError
	)
	switch {
	case errors.As(err, &perr):
		body := APIError{
			Code:     CodePartialWrite,
			Message:  err.Error(),
			Event:    perr.Event,
			Written:  len(perr.Written),
			ResumeID: resumeID,
		}
		for _, p := range perr.Pending {
			body.Pending = append(body.Pending, string(p.Table))
		}
		return NewJSONResponse().Status(http.StatusInternalServerError).Body(errorBody{Error: body})

	case errors.As(err, &verr):
		return NewJSONResponse().
			Status(http.StatusUnprocessableEntity).
			Body(errorBody{Error: APIError{Code: CodeValidation, Message: verr.Error(), Field: verr.Field}})

	case errors.As(err, &serr):
		return NewJSONResponse().
			Status(http.StatusServiceUnavailable).
			Header("Retry-After", "30").
			Body(errorBody{Error: APIError{Code: CodeStorage, Message: serr.Error(), Backend: serr.Backend, Detail: serr.Detail}})

	case errors.As(err, &scer):
		return NewJSONResponse().
			Status(http.StatusInternalServerError).
			Body(errorBody{Error: APIError{Code: CodeSchema, Message: scer.Error(), Table: string(scer.Table), Column: scer.Column}})
	}
	return ErrorResponse(http.StatusInternalServerError, CodeInternal, "internal error")
}
