/*
seeder.go - Baseline seeding from prior-year invoices

PURPOSE:
  Turns a salesperson's prior-year invoice history into Baseline plan rows
  for the target year:

    1. Determine the companies in scope (caller's list unioned with the
       companies of the salesperson's customers, default TNT).
    2. Per company, sum prior-year volume per (customer, sales unit) and
       derive average unit prices.
    3. Per volume group: apply the uplift to the annual quantity, prorate
       it into twelve exact-cents buckets, and price each month.

  Seeding is idempotent: rows are upserted by key, so re-running refreshes
  the Baseline rows without duplicating them. Proposal rows are untouched.

FAILURE MODEL:
  One bad row must not sink the batch. Per-row upsert failures are logged
  and counted; the seed keeps going.

SEE ALSO:
  - distribute.go: The proration
  - invoice.go: The volume and price aggregation
*/
package plan

import (
	"context"
	"log"
)

// DefaultUpliftPercent is applied when the caller does not send an uplift.
const DefaultUpliftPercent = 10.0

// SeedInput parameterizes a baseline seed.
type SeedInput struct {
	AssigneeID string
	Year       int

	// UpliftPercent is applied as given: zero means a flat carry-over of
	// prior-year volume. The HTTP layer substitutes DefaultUpliftPercent
	// when the request omits the field; direct callers get exactly what
	// they ask for.
	UpliftPercent float64

	Companies []Company
	VersionNo int
	CreatedBy string

	// PreserveConfirmed skips customers whose resolved stage is already
	// Confirmed, so an automated re-seed cannot demote an accepted plan.
	// Interactive seeds leave this false and overwrite everything.
	PreserveConfirmed bool
}

// SeedResult reports what a seed run did.
type SeedResult struct {
	Year         int
	Companies    []Company
	RowsUpserted int
	RowsFailed   int
}

// SeedBaseline creates or refreshes the Baseline rows for one salesperson.
func (e *Engine) SeedBaseline(ctx context.Context, in SeedInput) (SeedResult, error) {
	if err := requireScope(in.AssigneeID, in.Year); err != nil {
		return SeedResult{}, err
	}
	if in.VersionNo <= 0 {
		in.VersionNo = 1
	}
	if in.CreatedBy == "" {
		in.CreatedBy = in.AssigneeID
	}

	companies, err := e.seedCompanies(ctx, in.AssigneeID, in.Companies)
	if err != nil {
		return SeedResult{}, err
	}

	assigneeName, err := e.directory.AssigneeName(ctx, in.AssigneeID)
	if err != nil {
		return SeedResult{}, err
	}

	priorYear := in.Year - 1
	if priorYear < 1 {
		priorYear = 1
	}

	res := SeedResult{Year: in.Year, Companies: companies}
	for _, company := range companies {
		volumes, err := VolumesByCustomer(ctx, e.invoices, in.AssigneeID, company, priorYear)
		if err != nil {
			return res, err
		}
		prices, err := UnitPrices(ctx, e.invoices, in.AssigneeID, company, priorYear)
		if err != nil {
			return res, err
		}

		confirmed := map[int64]bool{}
		if in.PreserveConfirmed {
			confirmed, err = e.confirmedCustomers(ctx, in.AssigneeID, company, in.Year)
			if err != nil {
				return res, err
			}
		}

		for _, vol := range volumes {
			if vol.Qty.Sign() <= 0 {
				continue
			}
			if confirmed[vol.CustomerID] {
				continue
			}

			annual := ApplyUplift(vol.Qty, in.UpliftPercent)
			qty := DistributeMonths(annual)
			price := prices[vol.SalesUnit].Round(2)

			var amount MonthlySeries
			for i := range qty {
				amount[i] = qty[i].Mul(price).Round(2)
			}

			row := Row{
				Year:         in.Year,
				Company:      company,
				Kind:         KindBaseline,
				Stage:        StageInProgress,
				AssigneeID:   in.AssigneeID,
				AssigneeName: assigneeName,
				CustomerID:   vol.CustomerID,
				CustomerName: vol.CustomerName,
				Subcategory:  vol.Subcategory,
				SalesUnit:    vol.SalesUnit,
				VersionNo:    in.VersionNo,
				Qty:          qty,
				Amount:       amount,
				CreatedBy:    in.CreatedBy,
				UpdatedBy:    in.CreatedBy,
			}
			if err := e.rows.Upsert(ctx, row); err != nil {
				log.Printf("plan: seed upsert failed customer=%d unit=%s: %v", vol.CustomerID, vol.SalesUnit, err)
				res.RowsFailed++
				continue
			}
			res.RowsUpserted++
		}
	}
	return res, nil
}

// confirmedCustomers returns the customers whose plan rows are unanimously
// Confirmed for (assignee, company, year).
func (e *Engine) confirmedCustomers(ctx context.Context, assigneeID string, company Company, year int) (map[int64]bool, error) {
	rows, err := e.rows.Rows(ctx, RowFilter{Year: year, AssigneeID: assigneeID, Company: company})
	if err != nil {
		return nil, err
	}
	out := map[int64]bool{}
	for id, rank := range minRankByKey(rows, func(r Row) int64 { return r.CustomerID }) {
		if rank == StageConfirmed.Rank() {
			out[id] = true
		}
	}
	return out, nil
}

// seedCompanies unions the caller's companies with the companies of the
// salesperson's customers, preserving discovery order.
func (e *Engine) seedCompanies(ctx context.Context, assigneeID string, requested []Company) ([]Company, error) {
	found, err := e.directory.Companies(ctx, assigneeID)
	if err != nil {
		return nil, err
	}

	seen := map[Company]bool{}
	var out []Company
	add := func(c Company) {
		c = NormalizeCompany(string(c))
		if c == "" || seen[c] {
			return
		}
		seen[c] = true
		out = append(out, c)
	}
	for _, c := range found {
		add(c)
	}
	for _, c := range requested {
		add(c)
	}
	if len(out) == 0 {
		out = []Company{DefaultCompany}
	}
	return out, nil
}
