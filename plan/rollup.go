/*
rollup.go - Proposal-wins rollups and per-customer views

PURPOSE:
  Every aggregate here applies the same precedence rule: within a rollup
  group, Proposal rows replace the Baseline rows they shadow. A Baseline
  counts only where no Proposal exists for the same group. The selection is
  two-pass and in-memory: load the rows in scope, pick the winners, sum.

  Amounts are summed as stored. Each row's monthly amounts were rounded
  independently when written, and that drift is preserved rather than
  recomputed from quantities.

OPERATIONS:
  - CompanyTotals: one salesperson's total per company
  - ConfirmedTotals: same, restricted to fully-confirmed customers
  - PlanTotals: every salesperson, grouped per (assignee, customer, unit)
  - Breakdown: one company's total split by customer or by sales unit
  - CustomerMonthly / CustomerMonthlyRows: one customer's monthly detail

SEE ALSO:
  - stage.go: The unanimity rule ConfirmedTotals reuses
*/
package plan

import (
	"context"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

func formatCustomerID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// winnerKey identifies one rollup group. The assignee field is only set for
// cross-salesperson rollups; per-salesperson rollups leave it empty.
type winnerKey struct {
	assignee string
	customer int64
	unit     string
}

// selectWinners keeps the Proposal rows of every group that has any, and
// the Baseline rows of the groups that have none.
func selectWinners(rows []Row, key func(Row) winnerKey) []Row {
	hasProposal := map[winnerKey]bool{}
	for _, r := range rows {
		if r.Kind == KindProposal {
			hasProposal[key(r)] = true
		}
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if hasProposal[key(r)] == (r.Kind == KindProposal) {
			out = append(out, r)
		}
	}
	return out
}

func perAssigneeKey(r Row) winnerKey {
	return winnerKey{customer: r.CustomerID, unit: r.SalesUnit}
}

func crossAssigneeKey(r Row) winnerKey {
	return winnerKey{assignee: r.AssigneeID, customer: r.CustomerID, unit: r.SalesUnit}
}

func sumByCompany(rows []Row) []CompanyTotal {
	sums := map[Company]decimal.Decimal{}
	for _, r := range rows {
		sums[r.Company] = sums[r.Company].Add(r.AmountTotal())
	}
	out := make([]CompanyTotal, 0, len(sums))
	for c, amt := range sums {
		out = append(out, CompanyTotal{Company: c, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Company < out[j].Company })
	return out
}

// =============================================================================
// TOTALS
// =============================================================================

// CompanyTotals sums one salesperson's plan per company, proposals winning
// over the baselines they shadow.
func (e *Engine) CompanyTotals(ctx context.Context, assigneeID string, year int) ([]CompanyTotal, error) {
	if err := requireScope(assigneeID, year); err != nil {
		return nil, err
	}
	rows, err := e.rows.Rows(ctx, RowFilter{Year: year, AssigneeID: assigneeID})
	if err != nil {
		return nil, err
	}
	return sumByCompany(selectWinners(rows, perAssigneeKey)), nil
}

// ConfirmedTotals is CompanyTotals restricted to customers whose rows are
// unanimously Confirmed within the company.
func (e *Engine) ConfirmedTotals(ctx context.Context, assigneeID string, year int) ([]CompanyTotal, error) {
	if err := requireScope(assigneeID, year); err != nil {
		return nil, err
	}
	rows, err := e.rows.Rows(ctx, RowFilter{Year: year, AssigneeID: assigneeID})
	if err != nil {
		return nil, err
	}

	type pair struct {
		company  Company
		customer int64
	}
	mins := minRankByKey(rows, func(r Row) pair { return pair{r.Company, r.CustomerID} })

	confirmed := rows[:0]
	for _, r := range rows {
		if mins[pair{r.Company, r.CustomerID}] == StageConfirmed.Rank() {
			confirmed = append(confirmed, r)
		}
	}
	return sumByCompany(selectWinners(confirmed, perAssigneeKey)), nil
}

// PlanTotals sums the whole plan per company across every salesperson.
// Precedence is applied per (assignee, customer, unit) so one salesperson's
// proposal never displaces another's baseline.
func (e *Engine) PlanTotals(ctx context.Context, year int) ([]CompanyTotal, error) {
	if year <= 0 {
		return nil, invalidArg("targetYear", "must be a positive year")
	}
	rows, err := e.rows.Rows(ctx, RowFilter{Year: year})
	if err != nil {
		return nil, err
	}
	return sumByCompany(selectWinners(rows, crossAssigneeKey)), nil
}

// =============================================================================
// BREAKDOWN
// =============================================================================

// Breakdown splits one company's proposal-wins total by customer or by
// sales unit, largest amount first.
func (e *Engine) Breakdown(ctx context.Context, assigneeID string, year int, company Company, by GroupBy) ([]BreakdownRow, error) {
	if err := requireScope(assigneeID, year); err != nil {
		return nil, err
	}
	company = NormalizeCompany(string(company))
	if company == "" {
		return nil, invalidArg("companyType", "must not be empty")
	}
	if by != GroupByCustomer && by != GroupByUnit {
		return nil, invalidArg("groupBy", "must be customer or unit")
	}

	rows, err := e.rows.Rows(ctx, RowFilter{Year: year, AssigneeID: assigneeID, Company: company})
	if err != nil {
		return nil, err
	}
	winners := selectWinners(rows, perAssigneeKey)

	lines := map[string]*BreakdownRow{}
	for _, r := range winners {
		k, label := breakdownKey(r, by)
		ln := lines[k]
		if ln == nil {
			ln = &BreakdownRow{Key: k, Label: label, Amount: decimal.Zero}
			lines[k] = ln
		}
		ln.Amount = ln.Amount.Add(r.AmountTotal())
		if ln.Label == "" {
			ln.Label = label
		}
	}

	out := make([]BreakdownRow, 0, len(lines))
	for _, ln := range lines {
		out = append(out, *ln)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func breakdownKey(r Row, by GroupBy) (key, label string) {
	if by == GroupByUnit {
		return r.SalesUnit, r.SalesUnit
	}
	return formatCustomerID(r.CustomerID), r.CustomerName
}

// =============================================================================
// PER-CUSTOMER VIEWS
// =============================================================================

// MonthlyView is one customer's summed monthly quantities. Planned is false
// when the customer has no rows in scope.
type MonthlyView struct {
	Qty     MonthlySeries
	Stage   Stage
	Planned bool
}

// CustomerMonthly sums every row of one customer month by month, Baseline
// and Proposal together, and reports the customer's highest row stage.
func (e *Engine) CustomerMonthly(ctx context.Context, assigneeID string, year int, customerID int64, company Company) (MonthlyView, error) {
	if err := requireScope(assigneeID, year); err != nil {
		return MonthlyView{}, err
	}
	if customerID <= 0 {
		return MonthlyView{}, invalidArg("customerSeq", "must be a positive customer id")
	}
	rows, err := e.rows.Rows(ctx, RowFilter{
		Year:       year,
		AssigneeID: assigneeID,
		Company:    NormalizeCompany(string(company)),
		CustomerID: customerID,
	})
	if err != nil {
		return MonthlyView{}, err
	}
	if len(rows) == 0 {
		return MonthlyView{}, nil
	}

	view := MonthlyView{Planned: true}
	maxRank := 0
	for _, r := range rows {
		for i := range view.Qty {
			view.Qty[i] = view.Qty[i].Add(r.Qty[i])
		}
		if rank := r.Stage.Rank(); rank > maxRank {
			maxRank = rank
		}
	}
	view.Stage = stageFromRank(maxRank)
	return view, nil
}

// CustomerPlanRow is one (subcategory, sales unit) line of a customer's
// plan after precedence.
type CustomerPlanRow struct {
	Subcategory string
	SalesUnit   string
	Kind        RowKind
	Stage       Stage
	Qty         MonthlySeries
	Amount      MonthlySeries
}

// CustomerMonthlyRows lists one customer's plan lines. Groups here include
// the subcategory, so a proposal only displaces the baseline of its own
// (subcategory, unit) cell. Sorted by subcategory then unit.
func (e *Engine) CustomerMonthlyRows(ctx context.Context, assigneeID string, year int, customerID int64, company Company) ([]CustomerPlanRow, error) {
	if err := requireScope(assigneeID, year); err != nil {
		return nil, err
	}
	if customerID <= 0 {
		return nil, invalidArg("customerSeq", "must be a positive customer id")
	}
	rows, err := e.rows.Rows(ctx, RowFilter{
		Year:       year,
		AssigneeID: assigneeID,
		Company:    NormalizeCompany(string(company)),
		CustomerID: customerID,
	})
	if err != nil {
		return nil, err
	}

	type cell struct {
		sub, unit string
	}
	hasProposal := map[cell]bool{}
	for _, r := range rows {
		if r.Kind == KindProposal {
			hasProposal[cell{r.Subcategory, r.SalesUnit}] = true
		}
	}

	lines := map[cell]*CustomerPlanRow{}
	for _, r := range rows {
		c := cell{r.Subcategory, r.SalesUnit}
		if hasProposal[c] != (r.Kind == KindProposal) {
			continue
		}
		ln := lines[c]
		if ln == nil {
			ln = &CustomerPlanRow{Subcategory: c.sub, SalesUnit: c.unit, Kind: r.Kind}
			lines[c] = ln
		}
		for i := range ln.Qty {
			ln.Qty[i] = ln.Qty[i].Add(r.Qty[i])
			ln.Amount[i] = ln.Amount[i].Add(r.Amount[i])
		}
		if r.Stage.Rank() > ln.Stage.Rank() {
			ln.Stage = r.Stage
		}
	}

	out := make([]CustomerPlanRow, 0, len(lines))
	for _, ln := range lines {
		out = append(out, *ln)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Subcategory != out[j].Subcategory {
			return out[i].Subcategory < out[j].Subcategory
		}
		return out[i].SalesUnit < out[j].SalesUnit
	})
	return out, nil
}
