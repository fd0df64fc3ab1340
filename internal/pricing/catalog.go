package pricing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"cleaningos/internal/core"
)

// DefaultVersion is the price table used when none is configured.
const DefaultVersion = "v2"

// Catalog holds every known price table by version.
type Catalog struct {
	tables map[string]PriceTable
}

// BuiltinCatalog returns the price tables shipped with the binary.
// v1 is the launch price list; v2 lowered the large-area threshold.
func BuiltinCatalog() *Catalog {
	fees := map[AddOn]decimal.Decimal{
		OvenFridge:      decimal.NewFromInt(150),
		DetailedWindows: decimal.NewFromInt(200),
		MoldRemoval:     decimal.NewFromInt(250),
		ComplexBalcony:  decimal.NewFromInt(100),
	}
	return &Catalog{tables: map[string]PriceTable{
		"v1": {
			Version: "v1",
			Rates: map[core.ServiceTier]decimal.Decimal{
				core.Light:    decimal.NewFromInt(17),
				core.Deep:     decimal.NewFromInt(24),
				core.PostReno: decimal.NewFromInt(30),
			},
			SurchargeThreshold: decimal.NewFromInt(140),
			Surcharge:          decimal.NewFromInt(200),
			AddOnFees:          fees,
		},
		"v2": {
			Version: "v2",
			Rates: map[core.ServiceTier]decimal.Decimal{
				core.Light:    decimal.NewFromInt(20),
				core.Deep:     decimal.NewFromInt(28),
				core.PostReno: decimal.NewFromInt(35),
			},
			SurchargeThreshold: decimal.NewFromInt(130),
			Surcharge:          decimal.NewFromInt(150),
			AddOnFees:          fees,
		},
	}}
}

// Versions lists the available versions sorted by name.
func (c *Catalog) Versions() []string {
	out := make([]string, 0, len(c.tables))
	for v := range c.tables {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (c *Catalog) Table(version string) (PriceTable, error) {
	t, ok := c.tables[strings.ToLower(strings.TrimSpace(version))]
	if !ok {
		return PriceTable{}, fmt.Errorf("unknown price table version %q (available: %s)", version, strings.Join(c.Versions(), ", "))
	}
	return t, nil
}

// Engine builds a quote engine for the given version.
func (c *Catalog) Engine(version string) (*Engine, error) {
	t, err := c.Table(version)
	if err != nil {
		return nil, err
	}
	return NewEngine(t)
}

// Add registers or replaces a table version.
func (c *Catalog) Add(t PriceTable) error {
	t.Version = strings.ToLower(strings.TrimSpace(t.Version))
	if err := t.Validate(); err != nil {
		return err
	}
	c.tables[t.Version] = t
	return nil
}

// fileTable decodes amounts as text; viper's weak typing renders YAML numbers
// in their shortest form, which parses to the exact decimal written.
type fileTable struct {
	Rates              map[string]string `mapstructure:"rates"`
	SurchargeThreshold string            `mapstructure:"surcharge_threshold"`
	Surcharge          string            `mapstructure:"surcharge"`
	AddOns             map[string]string `mapstructure:"addons"`
}

// LoadCatalog reads price tables from a YAML, JSON or TOML file and merges them
// over the built-in versions. An empty path returns the built-in catalog.
//
// Expected layout:
//
//	versions:
//	  v3:
//	    rates: {light: 18, deep: 25, post-reno: 32}
//	    surcharge_threshold: 130
//	    surcharge: 150
//	    addons: {oven_fridge: 120, mold_removal: 260}
func LoadCatalog(path string) (*Catalog, error) {
	cat := BuiltinCatalog()
	if strings.TrimSpace(path) == "" {
		return cat, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read price tables %s: %w", path, err)
	}

	var raw map[string]fileTable
	if err := v.UnmarshalKey("versions", &raw); err != nil {
		return nil, fmt.Errorf("decode price tables %s: %w", path, err)
	}
	for version, ft := range raw {
		t, err := ft.toPriceTable(version)
		if err != nil {
			return nil, fmt.Errorf("price table %s: %w", version, err)
		}
		if err := cat.Add(t); err != nil {
			return nil, err
		}
	}
	return cat, nil
}

func (ft fileTable) toPriceTable(version string) (PriceTable, error) {
	t := PriceTable{
		Version:   version,
		Rates:     make(map[core.ServiceTier]decimal.Decimal, len(ft.Rates)),
		AddOnFees: make(map[AddOn]decimal.Decimal, len(ft.AddOns)),
	}
	var err error
	if t.SurchargeThreshold, err = amount("surcharge_threshold", ft.SurchargeThreshold); err != nil {
		return PriceTable{}, err
	}
	if t.Surcharge, err = amount("surcharge", ft.Surcharge); err != nil {
		return PriceTable{}, err
	}
	for name, rate := range ft.Rates {
		tier, err := core.ParseServiceTier(name)
		if err != nil {
			return PriceTable{}, err
		}
		if t.Rates[tier], err = amount("rates."+name, rate); err != nil {
			return PriceTable{}, err
		}
	}
	for name, fee := range ft.AddOns {
		a, err := ParseAddOn(name)
		if err != nil {
			return PriceTable{}, err
		}
		if t.AddOnFees[a], err = amount("addons."+name, fee); err != nil {
			return PriceTable{}, err
		}
	}
	return t, nil
}

func amount(key, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: invalid amount %q", key, s)
	}
	return d, nil
}
