// This file decodes and validates JSON request bodies and query parameters.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"cleaningos/internal/core"
	"cleaningos/internal/pricing"
	"cleaningos/internal/services"
)

const maxBodyBytes = 64 << 10

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CloseJobRequest is the body of POST /api/jobs.
type CloseJobRequest struct {
	Date           string          `json:"date" validate:"required,datetime=2006-01-02"`
	Property       string          `json:"property_category" validate:"required"`
	AreaSqm        decimal.Decimal `json:"area_sqm"`
	Tier           string          `json:"service_tier" validate:"required"`
	HandymanUpsell bool            `json:"handyman_upsell"`
	CleaningPrice  decimal.Decimal `json:"cleaning_price"`
	HandymanPrice  decimal.Decimal `json:"handyman_price"`
	Rating         int             `json:"rating" validate:"min=1,max=5"`
	Note           string          `json:"note" validate:"max=500"`
}

// ExpenseRequest is the body of POST /api/expenses.
type ExpenseRequest struct {
	Date     string          `json:"date" validate:"required,datetime=2006-01-02"`
	Category string          `json:"category" validate:"required"`
	Amount   decimal.Decimal `json:"amount"`
	Note     string          `json:"note" validate:"max=500"`
}

// SalaryRequest is the body of POST /api/salaries.
type SalaryRequest struct {
	Date       string          `json:"date" validate:"required,datetime=2006-01-02"`
	WorkerName string          `json:"worker_name" validate:"max=100"`
	Hours      decimal.Decimal `json:"hours"`
	CleanType  string          `json:"clean_type" validate:"required"`
}

// QuoteRequest holds the query parameters of GET /api/quote.
type QuoteRequest struct {
	Area    decimal.Decimal
	Tier    core.ServiceTier
	AddOns  []pricing.AddOn
	Version string
}

func (r CloseJobRequest) toInput() (services.CloseJobInput, error) {
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return services.CloseJobInput{}, err
	}
	property, err := core.ParsePropertyCategory(r.Property)
	if err != nil {
		return services.CloseJobInput{}, err
	}
	tier, err := core.ParseServiceTier(r.Tier)
	if err != nil {
		return services.CloseJobInput{}, err
	}
	return services.CloseJobInput{
		Date:           date,
		Property:       property,
		AreaSqm:        r.AreaSqm,
		Tier:           tier,
		HandymanUpsell: r.HandymanUpsell,
		CleaningPrice:  r.CleaningPrice,
		HandymanPrice:  r.HandymanPrice,
		Rating:         r.Rating,
		Note:           sanitizeInput(r.Note),
	}, nil
}

func (r ExpenseRequest) toInput() (services.ExpenseInput, error) {
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return services.ExpenseInput{}, err
	}
	category, err := core.ParseExpenseCategory(r.Category)
	if err != nil {
		return services.ExpenseInput{}, err
	}
	return services.ExpenseInput{Date: date, Category: category, Amount: r.Amount, Note: sanitizeInput(r.Note)}, nil
}

func (r SalaryRequest) toInput() (services.SalaryInput, error) {
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return services.SalaryInput{}, err
	}
	ct, err := core.ParseCleanType(r.CleanType)
	if err != nil {
		return services.SalaryInput{}, err
	}
	return services.SalaryInput{Date: date, WorkerName: sanitizeInput(r.WorkerName), Hours: r.Hours, CleanType: ct}, nil
}

// DecodeJSON reads a JSON body into dst and validates it. Failures come back
// as *core.ValidationError, except malformed JSON which is a plain error.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &core.ValidationError{Field: typeErr.Field, Reason: fmt.Sprintf("expected %s", typeErr.Type)}
		}
		return &malformedBodyError{err: err}
	}
	return validationError(validate.Struct(dst))
}

// malformedBodyError is a body that is not the expected JSON document.
type malformedBodyError struct {
	err error
}

func (e *malformedBodyError) Error() string {
	return "malformed request body: " + e.err.Error()
}

func (e *malformedBodyError) Unwrap() error { return e.err }

// validationError turns the first validator failure into a domain error.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	var reason string
	switch fe.Tag() {
	case "required":
		reason = "value is required"
	case "datetime":
		reason = fmt.Sprintf("expected YYYY-MM-DD, got %q", fe.Value())
	case "min":
		reason = "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			reason = "must be at most " + fe.Param() + " characters"
		} else {
			reason = "must be at most " + fe.Param()
		}
	default:
		reason = "failed " + fe.Tag() + " check"
	}
	return &core.ValidationError{Field: fe.Field(), Reason: reason}
}

// ParseQuoteRequest reads area, tier, addons (comma separated or repeated)
// and an optional version from the query string.
func ParseQuoteRequest(q url.Values) (QuoteRequest, error) {
	var req QuoteRequest
	area := strings.TrimSpace(q.Get("area"))
	if area == "" {
		return req, &core.ValidationError{Field: "area_sqm", Reason: "value is required"}
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(area, ",", "."))
	if err != nil {
		return req, &core.ValidationError{Field: "area_sqm", Reason: "malformed number " + area}
	}
	req.Area = d

	if req.Tier, err = core.ParseServiceTier(q.Get("tier")); err != nil {
		return req, err
	}
	for _, raw := range q["addons"] {
		for _, name := range strings.Split(raw, ",") {
			if strings.TrimSpace(name) == "" {
				continue
			}
			a, err := pricing.ParseAddOn(name)
			if err != nil {
				return req, err
			}
			req.AddOns = append(req.AddOns, a)
		}
	}
	req.Version = strings.TrimSpace(q.Get("version"))
	return req, nil
}

// ParseLimit reads a non-negative limit query parameter; absent means def.
func ParseLimit(q url.Values, def int) (int, error) {
	v := strings.TrimSpace(q.Get("limit"))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, &core.ValidationError{Field: "limit", Reason: fmt.Sprintf("expected a non-negative integer, got %q", v)}
	}
	return n, nil
}

// sanitizeInput removes control characters except tab and newlines and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
