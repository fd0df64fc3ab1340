// Package pricing computes job quotes from area, service tier and add-ons
// against a versioned price table.
package pricing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"cleaningos/internal/core"
)

const (
	OvenFridge      AddOn = "oven_fridge"
	DetailedWindows AddOn = "detailed_windows"
	MoldRemoval     AddOn = "mold_removal"
	ComplexBalcony  AddOn = "complex_balcony"
)

// AddOn is an optional extra service with a fixed fee.
type AddOn string

var addOns = []AddOn{OvenFridge, DetailedWindows, MoldRemoval, ComplexBalcony}

// AddOns returns every known add-on in a stable order.
func AddOns() []AddOn {
	return append([]AddOn(nil), addOns...)
}

func ParseAddOn(s string) (AddOn, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, a := range addOns {
		if s == string(a) {
			return a, nil
		}
	}
	return "", &core.ValidationError{Field: "addons", Reason: fmt.Sprintf("unknown add-on %q", s)}
}

// PriceTable is one version of the pricing constants.
type PriceTable struct {
	Version            string
	Rates              map[core.ServiceTier]decimal.Decimal
	SurchargeThreshold decimal.Decimal
	Surcharge          decimal.Decimal
	AddOnFees          map[AddOn]decimal.Decimal
}

func (t PriceTable) Validate() error {
	if strings.TrimSpace(t.Version) == "" {
		return fmt.Errorf("price table version is empty")
	}
	for _, tier := range core.ServiceTiers() {
		rate, ok := t.Rates[tier]
		if !ok {
			return fmt.Errorf("price table %s: missing rate for tier %s", t.Version, tier)
		}
		if rate.IsNegative() {
			return fmt.Errorf("price table %s: negative rate for tier %s", t.Version, tier)
		}
	}
	if t.SurchargeThreshold.IsNegative() || t.Surcharge.IsNegative() {
		return fmt.Errorf("price table %s: surcharge settings cannot be negative", t.Version)
	}
	for a, fee := range t.AddOnFees {
		if fee.IsNegative() {
			return fmt.Errorf("price table %s: negative fee for add-on %s", t.Version, a)
		}
	}
	return nil
}

// AddOnLine is the fee charged for one selected add-on.
type AddOnLine struct {
	AddOn AddOn           `json:"addon"`
	Fee   decimal.Decimal `json:"fee"`
}

// Quote is the priced breakdown of a job.
type Quote struct {
	Version          string           `json:"version"`
	AreaSqm          decimal.Decimal  `json:"area_sqm"`
	Tier             core.ServiceTier `json:"tier"`
	Rate             decimal.Decimal  `json:"rate"`
	BasePrice        decimal.Decimal  `json:"base_price"`
	SurchargeApplied bool             `json:"surcharge_applied"`
	Surcharge        decimal.Decimal  `json:"surcharge"`
	AddOns           []AddOnLine      `json:"addons"`
	AddOnTotal       decimal.Decimal  `json:"addon_total"`
	Total            decimal.Decimal  `json:"total"`
}

// Engine prices jobs against a single price table. It holds no mutable state.
type Engine struct {
	table PriceTable
}

func NewEngine(table PriceTable) (*Engine, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &Engine{table: table}, nil
}

func (e *Engine) Version() string {
	return e.table.Version
}

// Table returns the price table the engine quotes against.
func (e *Engine) Table() PriceTable {
	return e.table
}

// Quote computes base + large-area surcharge + add-on fees. Add-ons are a set:
// duplicates count once and order does not matter.
func (e *Engine) Quote(area decimal.Decimal, tier core.ServiceTier, selected ...AddOn) (Quote, error) {
	if area.IsNegative() {
		return Quote{}, &core.ValidationError{Field: "area_sqm", Reason: "area cannot be negative"}
	}
	rate, ok := e.table.Rates[tier]
	if !ok {
		return Quote{}, &core.ValidationError{Field: "service_tier", Reason: fmt.Sprintf("unknown service tier %q", tier)}
	}

	q := Quote{
		Version:    e.table.Version,
		AreaSqm:    area,
		Tier:       tier,
		Rate:       rate,
		BasePrice:  area.Mul(rate),
		Surcharge:  decimal.Zero,
		AddOnTotal: decimal.Zero,
	}
	if area.GreaterThanOrEqual(e.table.SurchargeThreshold) {
		q.SurchargeApplied = true
		q.Surcharge = e.table.Surcharge
	}

	set := make(map[AddOn]struct{}, len(selected))
	for _, a := range selected {
		if _, dup := set[a]; dup {
			continue
		}
		fee, ok := e.table.AddOnFees[a]
		if !ok {
			return Quote{}, &core.ValidationError{Field: "addons", Reason: fmt.Sprintf("add-on %q is not priced in table %s", a, e.table.Version)}
		}
		set[a] = struct{}{}
		q.AddOns = append(q.AddOns, AddOnLine{AddOn: a, Fee: fee})
		q.AddOnTotal = q.AddOnTotal.Add(fee)
	}
	sort.Slice(q.AddOns, func(i, j int) bool { return q.AddOns[i].AddOn < q.AddOns[j].AddOn })

	q.Total = q.BasePrice.Add(q.Surcharge).Add(q.AddOnTotal)
	return q, nil
}
