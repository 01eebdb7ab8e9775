/*
Package plan contains the sales-plan target-setting engine.

PURPOSE:
  This package holds the domain types and algorithms for annual sales-plan
  rows: seeding a baseline from prior-year invoice history, upserting
  salesperson proposals, resolving the per-customer planning stage, and
  computing rollup totals where a proposal always beats the baseline it
  shadows.

KEY CONCEPTS IN THIS FILE (types.go):
  - Row: one plan row, twelve monthly quantities and amounts plus a stage
  - RowKind: Baseline (machine-seeded) vs Proposal (salesperson-edited)
  - Stage: Blank -> InProgress -> Proposed -> Confirmed lifecycle
  - MonthlySeries: fixed twelve-bucket decimal series

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere quantities or money appear
  2. Coexistence: a Proposal never replaces its sibling Baseline row;
     rollups decide which one counts
  3. Derived state: customer stage and company totals are computed from
     rows, never stored

SEE ALSO:
  - store.go: persistence and collaborator interfaces
  - seeder.go: baseline seeding and proration
  - rollup.go: proposal-wins merge
*/
package plan

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// COMPANY
// =============================================================================

// Company is the sales company a plan row belongs to.
type Company string

const (
	CompanyTNT Company = "TNT"
	CompanyDYS Company = "DYS"
)

// DefaultCompany is used when a salesperson has no customers yet.
const DefaultCompany = CompanyTNT

// NormalizeCompany trims and upper-cases a raw company value.
func NormalizeCompany(s string) Company {
	return Company(strings.ToUpper(strings.TrimSpace(s)))
}

// KnownCompany reports whether c is one of the companies the plan tracks.
func KnownCompany(c Company) bool {
	return c == CompanyTNT || c == CompanyDYS
}

// =============================================================================
// ROW KIND - Baseline vs Proposal
// =============================================================================

// RowKind tells whether a row was machine-seeded or salesperson-edited.
// The wire encoding is a single letter, matching the plan_type column.
type RowKind string

const (
	KindBaseline RowKind = "B"
	KindProposal RowKind = "P"
)

// =============================================================================
// STAGE - Planning lifecycle
// =============================================================================

// Stage is the planning lifecycle marker of a row. Note that StageBlank
// shares the letter "B" with KindBaseline; they are distinct concepts.
type Stage string

const (
	StageBlank      Stage = "B"
	StageInProgress Stage = "I"
	StageProposed   Stage = "P"
	StageConfirmed  Stage = "C"
)

// Rank orders stages for precedence math. Unknown or empty stages rank 0,
// which breaks unanimity the same way they did in the source schema.
func (s Stage) Rank() int {
	switch s {
	case StageConfirmed:
		return 4
	case StageProposed:
		return 3
	case StageInProgress:
		return 2
	case StageBlank:
		return 1
	default:
		return 0
	}
}

func stageFromRank(rank int) Stage {
	switch rank {
	case 4:
		return StageConfirmed
	case 3:
		return StageProposed
	case 2:
		return StageInProgress
	case 1:
		return StageBlank
	default:
		return ""
	}
}

// =============================================================================
// MONTHLY SERIES - Twelve decimal buckets
// =============================================================================

// Months is the number of buckets in every plan series.
const Months = 12

// MonthlySeries holds one value per calendar month, January first.
type MonthlySeries [Months]decimal.Decimal

// Total returns the exact sum of all buckets.
func (m MonthlySeries) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, v := range m {
		sum = sum.Add(v)
	}
	return sum
}

// IsZero reports whether every bucket is zero.
func (m MonthlySeries) IsZero() bool {
	for _, v := range m {
		if !v.IsZero() {
			return false
		}
	}
	return true
}

// Floats returns the series as float64 values for presentation.
func (m MonthlySeries) Floats() [Months]float64 {
	var out [Months]float64
	for i, v := range m {
		out[i], _ = v.Float64()
	}
	return out
}

// SeriesFromFloats builds a series from raw client input. Negative and NaN-ish
// values are clamped to zero and every bucket is rounded to two decimals.
func SeriesFromFloats(vals []float64) MonthlySeries {
	var out MonthlySeries
	for i := range out {
		if i < len(vals) && vals[i] > 0 {
			out[i] = decimal.NewFromFloat(vals[i]).Round(2)
		} else {
			out[i] = decimal.Zero
		}
	}
	return out
}

// =============================================================================
// ROW - The unit of plan state
// =============================================================================

// RowKey identifies a row up to its kind: for one key there is at most one
// Baseline row and at most one Proposal row.
type RowKey struct {
	Year        int
	Company     Company
	CustomerID  int64
	Subcategory string
	SalesUnit   string
	VersionNo   int
}

// Row is a single sales-plan row.
type Row struct {
	ID           string
	Year         int
	Company      Company
	Kind         RowKind
	Stage        Stage
	AssigneeID   string
	AssigneeName string
	CustomerID   int64
	CustomerName string
	Subcategory  string
	SalesUnit    string
	VersionNo    int
	Qty          MonthlySeries
	Amount       MonthlySeries
	Remark       string

	CreatedBy string
	UpdatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Key returns the row's identity excluding its kind.
func (r *Row) Key() RowKey {
	return RowKey{
		Year:        r.Year,
		Company:     r.Company,
		CustomerID:  r.CustomerID,
		Subcategory: r.Subcategory,
		SalesUnit:   r.SalesUnit,
		VersionNo:   r.VersionNo,
	}
}

// AmountTotal is the row's annual monetary total.
func (r *Row) AmountTotal() decimal.Decimal {
	return r.Amount.Total()
}

// =============================================================================
// DERIVED VIEWS
// =============================================================================

// CustomerStage is the Stage Resolver's output for one customer.
type CustomerStage struct {
	CustomerID int64
	Stage      Stage
}

// CompanyTotal is a rollup total for one company.
type CompanyTotal struct {
	Company Company
	Amount  decimal.Decimal
}

// CompanyStatus summarizes planning progress for one company.
type CompanyStatus struct {
	Company       Company
	Customers     int
	HasProposed   bool
	HasConfirmed  bool
	HasInProgress bool
}

// CustomerCounts buckets a company's customers into confirmed vs planning.
// A customer is confirmed only when every one of its rows is Confirmed.
type CustomerCounts struct {
	Company   Company
	Total     int
	Confirmed int
	Planning  int
}

// OverallCounts are cross-company distinct-customer counts for one assignee.
type OverallCounts struct {
	Total      int
	Confirmed  int
	InProgress int
}

// BreakdownRow is one line of a totals breakdown.
type BreakdownRow struct {
	Key    string
	Label  string
	Amount decimal.Decimal
}

// GroupBy selects the breakdown dimension.
type GroupBy string

const (
	GroupByCustomer GroupBy = "customer"
	GroupByUnit     GroupBy = "unit"
)
