// Package aql maps an order quantity onto an AQL 2.5 sampling plan row and
// turns per-severity defect counts into an inspection verdict.
package aql

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kirillkom/footwear-qc/internal/core/domain"
)

// Row is one lot-size bracket of a sampling plan.
type Row struct {
	// MaxQuantity is the inclusive upper bound; zero marks the open-ended last row.
	MaxQuantity   int  `yaml:"max_quantity" json:"max_quantity"`
	SampleSize    int  `yaml:"sample_size" json:"sample_size"`
	SampleAll     bool `yaml:"sample_all" json:"sample_all"`
	CriticalLimit int  `yaml:"critical_limit" json:"critical_limit"`
	MajorLimit    int  `yaml:"major_limit" json:"major_limit"`
	MinorLimit    int  `yaml:"minor_limit" json:"minor_limit"`
	// Default marks the row used when the order quantity cannot be parsed.
	Default bool `yaml:"default" json:"default,omitempty"`
}

// SampleSizeLabel renders the sample size the way reports print it.
func (r Row) SampleSizeLabel() string {
	if r.SampleAll {
		return "100%"
	}
	return strconv.Itoa(r.SampleSize)
}

func (r Row) Limits() domain.Limits {
	return domain.Limits{
		Critical: r.CriticalLimit,
		Major:    r.MajorLimit,
		Minor:    r.MinorLimit,
	}
}

// Plan is an immutable, validated sampling table.
type Plan struct {
	rows         []Row
	defaultIndex int
}

var defaultRows = []Row{
	{MaxQuantity: 300, SampleAll: true, CriticalLimit: 0, MajorLimit: 1, MinorLimit: 5},
	{MaxQuantity: 1200, SampleSize: 80, CriticalLimit: 0, MajorLimit: 5, MinorLimit: 9},
	{MaxQuantity: 3200, SampleSize: 125, CriticalLimit: 0, MajorLimit: 7, MinorLimit: 10},
	{MaxQuantity: 10000, SampleSize: 200, CriticalLimit: 0, MajorLimit: 10, MinorLimit: 14, Default: true},
	{MaxQuantity: 0, SampleSize: 315, CriticalLimit: 0, MajorLimit: 14, MinorLimit: 21},
}

// DefaultPlan is the built-in five-bracket AQL 2.5 table.
func DefaultPlan() Plan {
	plan, err := NewPlan(defaultRows)
	if err != nil {
		panic(fmt.Sprintf("aql: built-in plan is invalid: %v", err))
	}
	return plan
}

// NewPlan validates rows: ascending bounds, an open-ended last row, exactly
// one default row, non-negative limits and a zero critical limit.
func NewPlan(rows []Row) (Plan, error) {
	if len(rows) == 0 {
		return Plan{}, invalidPlan(errors.New("plan has no rows"))
	}

	defaultIndex := -1
	prev := 0
	for i, row := range rows {
		last := i == len(rows)-1
		switch {
		case last && row.MaxQuantity != 0:
			return Plan{}, invalidPlan(fmt.Errorf("last row must be open-ended, got max_quantity %d", row.MaxQuantity))
		case !last && row.MaxQuantity <= prev:
			return Plan{}, invalidPlan(fmt.Errorf("row %d: max_quantity %d must exceed %d", i, row.MaxQuantity, prev))
		}
		if !last {
			prev = row.MaxQuantity
		}
		if !row.SampleAll && row.SampleSize <= 0 {
			return Plan{}, invalidPlan(fmt.Errorf("row %d: sample_size must be positive", i))
		}
		if row.CriticalLimit != 0 {
			return Plan{}, invalidPlan(fmt.Errorf("row %d: critical_limit must be 0, got %d", i, row.CriticalLimit))
		}
		if row.MajorLimit < 0 || row.MinorLimit < 0 {
			return Plan{}, invalidPlan(fmt.Errorf("row %d: limits must not be negative", i))
		}
		if row.Default {
			if defaultIndex >= 0 {
				return Plan{}, invalidPlan(fmt.Errorf("rows %d and %d are both marked default", defaultIndex, i))
			}
			defaultIndex = i
		}
	}
	if defaultIndex < 0 {
		return Plan{}, invalidPlan(errors.New("no row is marked default"))
	}

	owned := make([]Row, len(rows))
	copy(owned, rows)
	return Plan{rows: owned, defaultIndex: defaultIndex}, nil
}

func invalidPlan(err error) error {
	return domain.WrapError(domain.ErrInvalidInput, "aql plan", err)
}

// Rows returns a copy of the plan's rows.
func (p Plan) Rows() []Row {
	out := make([]Row, len(p.rows))
	copy(out, p.rows)
	return out
}

// Default is the row used for unparseable or negative quantities.
func (p Plan) Default() Row {
	return p.rows[p.defaultIndex]
}

// Lookup returns the bracket containing orderQty.
func (p Plan) Lookup(orderQty int) Row {
	if orderQty < 0 {
		return p.Default()
	}
	for _, row := range p.rows {
		if row.MaxQuantity == 0 || orderQty <= row.MaxQuantity {
			return row
		}
	}
	return p.rows[len(p.rows)-1]
}

// LookupRaw parses a free-text quantity and looks it up. The boolean is false
// when the input was malformed and the default row was used instead.
func (p Plan) LookupRaw(raw string) (Row, bool) {
	qty, err := ParseQuantity(raw)
	if err != nil || qty < 0 {
		return p.Default(), false
	}
	return p.Lookup(qty), true
}

// ParseQuantity accepts integers with optional surrounding whitespace and
// thousands separators ("1,200", "1 200", "1_200").
func ParseQuantity(raw string) (int, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ',', '_', ' ', '\u00a0':
			return -1
		default:
			return r
		}
	}, strings.TrimSpace(raw))
	if cleaned == "" {
		return 0, domain.WrapError(domain.ErrInvalidInput, "parse order quantity", errors.New("empty quantity"))
	}
	qty, err := strconv.Atoi(cleaned)
	if errors.Is(err, strconv.ErrRange) && allDigits(strings.TrimPrefix(cleaned, "+")) {
		// Too large for int, still a lot size: it lands in the open-ended row.
		return math.MaxInt, nil
	}
	if err != nil {
		return 0, domain.WrapError(domain.ErrInvalidInput, "parse order quantity", err)
	}
	return qty, nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
