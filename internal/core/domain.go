package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

const (
	Income  EntryType = "Income"
	Expense EntryType = "Expense"
)

const (
	Apartment    PropertyCategory = "Apartment"
	Villa        PropertyCategory = "Villa"
	HandymanOnly PropertyCategory = "Handyman Only"
)

const (
	Light    ServiceTier = "Light"
	Deep     ServiceTier = "Deep"
	PostReno ServiceTier = "Post-Reno"
)

const (
	Tier1 CleanType = "Tier1"
	Tier2 CleanType = "Tier2"
	Tier3 CleanType = "Tier3"
)

// Income categories written by the recorder.
const (
	CategoryCleaningRevenue = "Cleaning revenue"
	CategoryHandymanRevenue = "Handyman revenue"
)

const (
	ExpenseSupplies    ExpenseCategory = "Chemicals & supplies"
	ExpenseFuelParking ExpenseCategory = "Fuel & parking"
	ExpenseEquipment   ExpenseCategory = "Equipment"
	ExpenseRepairs     ExpenseCategory = "Vehicle & equipment repairs"
	ExpenseAdvertising ExpenseCategory = "Advertising"
	ExpensePayroll     ExpenseCategory = "Payroll: Cleaning workers"
	ExpenseOther       ExpenseCategory = "Other"
)

type (
	EntryType        string
	PropertyCategory string
	ServiceTier      string
	CleanType        string
	ExpenseCategory  string

	Date struct {
		time.Time
	}

	// CashEntry is one Cashflow row. Amount is never negative; Type carries the sign.
	CashEntry struct {
		Date     Date            `json:"date"`
		Type     EntryType       `json:"type"`
		Category string          `json:"category"`
		Amount   decimal.Decimal `json:"amount"`
		Note     string          `json:"note,omitempty"`
	}

	JobRecord struct {
		Date           Date             `json:"date"`
		Property       PropertyCategory `json:"property_category"`
		AreaSqm        decimal.Decimal  `json:"area_sqm"`
		Tier           ServiceTier      `json:"service_tier"`
		HandymanUpsell bool             `json:"handyman_upsell"`
		TotalRevenue   decimal.Decimal  `json:"total_revenue"`
		Rating         int              `json:"rating"`
		Note           string           `json:"note,omitempty"`
	}

	SalaryEntry struct {
		Date       Date            `json:"date"`
		WorkerName string          `json:"worker_name"`
		Hours      decimal.Decimal `json:"hours"`
		CleanType  CleanType       `json:"clean_type"`
		Salary     decimal.Decimal `json:"salary"`
	}
)

var (
	serviceTiers    = []ServiceTier{Light, Deep, PostReno}
	propertyKinds   = []PropertyCategory{Apartment, Villa, HandymanOnly}
	cleanTypes      = []CleanType{Tier1, Tier2, Tier3}
	expenseKinds    = []ExpenseCategory{ExpenseSupplies, ExpenseFuelParking, ExpenseEquipment, ExpenseRepairs, ExpenseAdvertising, ExpensePayroll, ExpenseOther}
	cleanTypeRates  = map[CleanType]int64{Tier1: 50, Tier2: 60, Tier3: 70}
	propertyAliases = map[string]PropertyCategory{"handymanonly": HandymanOnly, "handyman": HandymanOnly}
	serviceAliases  = map[string]ServiceTier{"postreno": PostReno, "post_reno": PostReno}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Reason: fmt.Sprintf("expected YYYY-MM-DD, got %q", s)}
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON overrides the embedded time.Time encoding with YYYY-MM-DD.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	parsed, err := ParseDate(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return &ValidationError{Field: "date", Reason: "date cannot be zero"}
	}
	return nil
}

// MonthKey returns the (year, month) grouping key of the date.
func (d Date) MonthKey() MonthKey {
	return MonthKey{Year: d.Year(), Month: int(d.Time.Month())}
}

func (t EntryType) Valid() bool {
	return t == Income || t == Expense
}

func ParseEntryType(s string) (EntryType, error) {
	for _, t := range []EntryType{Income, Expense} {
		if strings.EqualFold(strings.TrimSpace(s), string(t)) {
			return t, nil
		}
	}
	return "", &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown entry type %q", s)}
}

func (p PropertyCategory) Valid() bool {
	for _, v := range propertyKinds {
		if p == v {
			return true
		}
	}
	return false
}

func ParsePropertyCategory(s string) (PropertyCategory, error) {
	s = strings.TrimSpace(s)
	for _, v := range propertyKinds {
		if strings.EqualFold(s, string(v)) {
			return v, nil
		}
	}
	if v, ok := propertyAliases[strings.ToLower(strings.ReplaceAll(s, " ", ""))]; ok {
		return v, nil
	}
	// Older sheets label categories as "Квартира (Apartment)".
	if open := strings.LastIndex(s, "("); open > 0 && strings.HasSuffix(s, ")") {
		if v, err := ParsePropertyCategory(s[open+1 : len(s)-1]); err == nil {
			return v, nil
		}
	}
	return "", &ValidationError{Field: "property_category", Reason: fmt.Sprintf("unknown property category %q", s)}
}

func PropertyCategories() []PropertyCategory {
	return append([]PropertyCategory(nil), propertyKinds...)
}

func (t ServiceTier) Valid() bool {
	for _, v := range serviceTiers {
		if t == v {
			return true
		}
	}
	return false
}

func ParseServiceTier(s string) (ServiceTier, error) {
	s = strings.TrimSpace(s)
	for _, v := range serviceTiers {
		if strings.EqualFold(s, string(v)) {
			return v, nil
		}
	}
	if v, ok := serviceAliases[strings.ToLower(strings.ReplaceAll(s, "-", ""))]; ok {
		return v, nil
	}
	return "", &ValidationError{Field: "service_tier", Reason: fmt.Sprintf("unknown service tier %q", s)}
}

func ServiceTiers() []ServiceTier {
	return append([]ServiceTier(nil), serviceTiers...)
}

func (c CleanType) Valid() bool {
	_, ok := cleanTypeRates[c]
	return ok
}

// HourlyRate is the fixed pay rate of the clean type.
func (c CleanType) HourlyRate() decimal.Decimal {
	return decimal.NewFromInt(cleanTypeRates[c])
}

func ParseCleanType(s string) (CleanType, error) {
	s = strings.TrimSpace(s)
	for _, v := range cleanTypes {
		if strings.EqualFold(s, string(v)) {
			return v, nil
		}
	}
	return "", &ValidationError{Field: "clean_type", Reason: fmt.Sprintf("unknown clean type %q", s)}
}

func CleanTypes() []CleanType {
	return append([]CleanType(nil), cleanTypes...)
}

func (c ExpenseCategory) Valid() bool {
	for _, v := range expenseKinds {
		if c == v {
			return true
		}
	}
	return false
}

func ParseExpenseCategory(s string) (ExpenseCategory, error) {
	s = strings.TrimSpace(s)
	for _, v := range expenseKinds {
		if strings.EqualFold(s, string(v)) {
			return v, nil
		}
	}
	return "", &ValidationError{Field: "category", Reason: fmt.Sprintf("unknown expense category %q", s)}
}

func ExpenseCategories() []ExpenseCategory {
	return append([]ExpenseCategory(nil), expenseKinds...)
}

// ComputeSalary returns hours × rate(clean type).
func ComputeSalary(hours decimal.Decimal, ct CleanType) decimal.Decimal {
	return hours.Mul(ct.HourlyRate())
}

func (e CashEntry) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if !e.Type.Valid() {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown entry type %q", e.Type)}
	}
	if strings.TrimSpace(e.Category) == "" {
		return &ValidationError{Field: "category", Reason: "category is required"}
	}
	if e.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Reason: "amount cannot be negative"}
	}
	return nil
}

func (j JobRecord) Validate() error {
	if err := j.Date.Validate(); err != nil {
		return err
	}
	if !j.Property.Valid() {
		return &ValidationError{Field: "property_category", Reason: fmt.Sprintf("unknown property category %q", j.Property)}
	}
	if j.AreaSqm.IsNegative() {
		return &ValidationError{Field: "area_sqm", Reason: "area cannot be negative"}
	}
	if !j.Tier.Valid() {
		return &ValidationError{Field: "service_tier", Reason: fmt.Sprintf("unknown service tier %q", j.Tier)}
	}
	if j.TotalRevenue.IsNegative() {
		return &ValidationError{Field: "total_revenue", Reason: "revenue cannot be negative"}
	}
	if j.Rating < 1 || j.Rating > 5 {
		return &ValidationError{Field: "rating", Reason: fmt.Sprintf("rating must be between 1 and 5, got %d", j.Rating)}
	}
	return nil
}

func (s SalaryEntry) Validate() error {
	if err := s.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(s.WorkerName) == "" {
		return &ValidationError{Field: "worker_name", Reason: "worker name is required"}
	}
	if s.Hours.IsNegative() {
		return &ValidationError{Field: "hours", Reason: "hours cannot be negative"}
	}
	if !s.CleanType.Valid() {
		return &ValidationError{Field: "clean_type", Reason: fmt.Sprintf("unknown clean type %q", s.CleanType)}
	}
	return nil
}
