/*
invoice.go - Prior-year invoice aggregation

PURPOSE:
  Shared aggregation over raw invoice lines, so every backend classifies
  history the same way:

  - SummarizeVolumes groups lines by (customer, sales unit) and sums the
    quantity. Blank sales units collapse into the "na" placeholder; the
    subcategory shown for a group is the alphabetically smallest non-blank
    one, or "na" when none exists.

  - AverageUnitPrices derives one price per sales unit as total amount
    divided by total quantity. Units with zero volume get a zero price.

  Backends fetch the filtered lines (year, company, optionally assignee)
  and hand them to these helpers.

SEE ALSO:
  - store.go: InvoiceReader interface the backends implement
  - seeder.go: The only producer of Baseline rows
*/
package plan

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// PlaceholderUnit stands in for invoices with no usable sales unit or
// subcategory.
const PlaceholderUnit = "na"

// InvoiceLine is one raw prior-year invoice record, already joined to its
// customer.
type InvoiceLine struct {
	CustomerID   int64
	CustomerName string
	SalesUnit    string
	Subcategory  string
	Qty          decimal.Decimal
	Amount       decimal.Decimal
}

// VolumeSummary is the summed volume for one (customer, sales unit) pair.
type VolumeSummary struct {
	CustomerID   int64
	CustomerName string
	SalesUnit    string
	Subcategory  string
	Qty          decimal.Decimal
}

func normalizeUnit(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return PlaceholderUnit
	}
	return s
}

// SummarizeVolumes groups invoice lines by (customer, sales unit),
// sorted by customer then unit.
func SummarizeVolumes(lines []InvoiceLine) []VolumeSummary {
	type key struct {
		customer int64
		unit     string
	}
	groups := map[key]*VolumeSummary{}
	for _, ln := range lines {
		k := key{ln.CustomerID, normalizeUnit(ln.SalesUnit)}
		g := groups[k]
		if g == nil {
			g = &VolumeSummary{
				CustomerID:   ln.CustomerID,
				CustomerName: ln.CustomerName,
				SalesUnit:    k.unit,
				Qty:          decimal.Zero,
			}
			groups[k] = g
		}
		g.Qty = g.Qty.Add(ln.Qty)
		if g.CustomerName == "" {
			g.CustomerName = ln.CustomerName
		}
		if sub := strings.TrimSpace(ln.Subcategory); sub != "" {
			if g.Subcategory == "" || sub < g.Subcategory {
				g.Subcategory = sub
			}
		}
	}

	out := make([]VolumeSummary, 0, len(groups))
	for _, g := range groups {
		if g.Subcategory == "" {
			g.Subcategory = PlaceholderUnit
		}
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CustomerID != out[j].CustomerID {
			return out[i].CustomerID < out[j].CustomerID
		}
		return out[i].SalesUnit < out[j].SalesUnit
	})
	return out
}

// AverageUnitPrices returns total amount / total quantity per sales unit.
func AverageUnitPrices(lines []InvoiceLine) map[string]decimal.Decimal {
	type agg struct{ qty, amt decimal.Decimal }
	sums := map[string]*agg{}
	for _, ln := range lines {
		unit := normalizeUnit(ln.SalesUnit)
		a := sums[unit]
		if a == nil {
			a = &agg{decimal.Zero, decimal.Zero}
			sums[unit] = a
		}
		a.qty = a.qty.Add(ln.Qty)
		a.amt = a.amt.Add(ln.Amount)
	}

	prices := make(map[string]decimal.Decimal, len(sums))
	for unit, a := range sums {
		if a.qty.Sign() > 0 {
			prices[unit] = a.amt.Div(a.qty)
		} else {
			prices[unit] = decimal.Zero
		}
	}
	return prices
}
