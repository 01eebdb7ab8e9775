/*
proposal.go - Salesperson proposal upserts

PURPOSE:
  Writes a Proposal row for one (customer, subcategory, sales unit) cell.
  The Proposal coexists with the seeded Baseline row for the same key;
  rollups later prefer the Proposal wherever one exists.

AMOUNT DERIVATION:
  When the caller sends explicit amounts, they are used as-is (clamped and
  rounded like quantities). Otherwise each month's amount is qty times the
  prior-year average unit price. The price is looked up in the
  salesperson's own history first, then company-wide, else zero.

SEE ALSO:
  - invoice.go: Average unit price derivation
  - rollup.go: Where the Proposal shadows the Baseline
*/
package plan

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// ProposalInput is one proposal upsert.
type ProposalInput struct {
	AssigneeID  string
	Year        int
	Company     Company
	CustomerID  int64
	Subcategory string
	SalesUnit   string
	VersionNo   int
	Qty         MonthlySeries

	// Amount is used verbatim when non-nil; otherwise derived from Qty.
	Amount *MonthlySeries
}

// UpsertProposal writes the Proposal row, marking it StageProposed.
func (e *Engine) UpsertProposal(ctx context.Context, in ProposalInput) error {
	if err := requireScope(in.AssigneeID, in.Year); err != nil {
		return err
	}
	if in.CustomerID <= 0 {
		return invalidArg("customerSeq", "must be a positive customer id")
	}
	if strings.TrimSpace(in.Subcategory) == "" {
		return invalidArg("itemSubcategory", "must not be empty")
	}
	if strings.TrimSpace(in.SalesUnit) == "" {
		return invalidArg("salesMgmtUnit", "must not be empty")
	}
	company := NormalizeCompany(string(in.Company))
	if company == "" {
		company = DefaultCompany
	}
	if in.VersionNo <= 0 {
		in.VersionNo = 1
	}

	qty := clampSeries(in.Qty)

	var amount MonthlySeries
	if in.Amount != nil {
		amount = clampSeries(*in.Amount)
	} else {
		price, err := e.unitPrice(ctx, in.AssigneeID, company, in.Year-1, in.SalesUnit)
		if err != nil {
			return err
		}
		for i := range qty {
			amount[i] = qty[i].Mul(price).Round(2)
		}
	}

	customerName, err := e.directory.CustomerName(ctx, in.CustomerID)
	if err != nil {
		return err
	}
	assigneeName, err := e.directory.AssigneeName(ctx, in.AssigneeID)
	if err != nil {
		return err
	}

	return e.rows.Upsert(ctx, Row{
		Year:         in.Year,
		Company:      company,
		Kind:         KindProposal,
		Stage:        StageProposed,
		AssigneeID:   in.AssigneeID,
		AssigneeName: assigneeName,
		CustomerID:   in.CustomerID,
		CustomerName: customerName,
		Subcategory:  strings.TrimSpace(in.Subcategory),
		SalesUnit:    strings.TrimSpace(in.SalesUnit),
		VersionNo:    in.VersionNo,
		Qty:          qty,
		Amount:       amount,
		CreatedBy:    in.AssigneeID,
		UpdatedBy:    in.AssigneeID,
	})
}

// unitPrice looks up the prior-year average price for one unit, falling
// back from the salesperson's own invoices to the whole company. The price
// is rounded to 2dp, the same scale the seeder prices baselines at.
func (e *Engine) unitPrice(ctx context.Context, assigneeID string, company Company, year int, unit string) (decimal.Decimal, error) {
	unit = normalizeUnit(unit)

	own, err := UnitPrices(ctx, e.invoices, assigneeID, company, year)
	if err != nil {
		return decimal.Zero, err
	}
	if p, ok := own[unit]; ok && p.Sign() != 0 {
		return p.Round(2), nil
	}

	wide, err := UnitPrices(ctx, e.invoices, "", company, year)
	if err != nil {
		return decimal.Zero, err
	}
	return wide[unit].Round(2), nil
}

func clampSeries(m MonthlySeries) MonthlySeries {
	var out MonthlySeries
	for i, v := range m {
		if v.Sign() > 0 {
			out[i] = v.Round(2)
		} else {
			out[i] = decimal.Zero
		}
	}
	return out
}
