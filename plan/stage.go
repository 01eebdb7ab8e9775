/*
stage.go - Stage resolution and planning progress views

PURPOSE:
  The per-customer stage is derived from all of the customer's rows,
  Baseline and Proposal alike:

    Confirmed  - every row is Confirmed
    Proposed   - otherwise, any row is Proposed
    InProgress - otherwise, every row is InProgress
    Blank      - everything else (mixed or unknown stages)

  Note the asymmetry: Confirmed and InProgress demand unanimity, Proposed
  needs a single row. One fresh Proposal is enough to flag the customer as
  awaiting review, but one unconfirmed row keeps it out of Confirmed.

  The counting views reuse the unanimity rule through row ranks: a customer
  counts as confirmed only when its minimum row rank is the Confirmed rank.

SEE ALSO:
  - types.go: Stage ranks
*/
package plan

import (
	"context"
	"sort"
)

// ResolveStage derives the customer stage from the customer's rows.
// Callers pass every row of exactly one customer; no rows means Blank.
func ResolveStage(rows []Row) Stage {
	if len(rows) == 0 {
		return StageBlank
	}
	all, confirmed, proposed, inProgress := 0, 0, 0, 0
	for _, r := range rows {
		all++
		switch r.Stage {
		case StageConfirmed:
			confirmed++
		case StageProposed:
			proposed++
		case StageInProgress:
			inProgress++
		}
	}
	switch {
	case confirmed == all:
		return StageConfirmed
	case proposed > 0:
		return StageProposed
	case inProgress == all:
		return StageInProgress
	default:
		return StageBlank
	}
}

// StageQuery scopes a stage listing. CustomerIDs narrows the result when
// non-empty; Company when set.
type StageQuery struct {
	AssigneeID  string
	Year        int
	Company     Company
	CustomerIDs []int64
}

// CustomerStages resolves the stage of every customer in scope, sorted by
// customer id.
func (e *Engine) CustomerStages(ctx context.Context, q StageQuery) ([]CustomerStage, error) {
	if err := requireScope(q.AssigneeID, q.Year); err != nil {
		return nil, err
	}
	rows, err := e.rows.Rows(ctx, RowFilter{
		Year:        q.Year,
		AssigneeID:  q.AssigneeID,
		Company:     NormalizeCompany(string(q.Company)),
		CustomerIDs: q.CustomerIDs,
	})
	if err != nil {
		return nil, err
	}

	byCustomer := map[int64][]Row{}
	for _, r := range rows {
		byCustomer[r.CustomerID] = append(byCustomer[r.CustomerID], r)
	}

	out := make([]CustomerStage, 0, len(byCustomer))
	for id, group := range byCustomer {
		out = append(out, CustomerStage{CustomerID: id, Stage: ResolveStage(group)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out, nil
}

// =============================================================================
// STATUS SUMMARY
// =============================================================================

// StatusSummary reports per-company planning progress for one salesperson,
// sorted by company.
func (e *Engine) StatusSummary(ctx context.Context, assigneeID string, year int) ([]CompanyStatus, error) {
	if err := requireScope(assigneeID, year); err != nil {
		return nil, err
	}
	rows, err := e.rows.Rows(ctx, RowFilter{Year: year, AssigneeID: assigneeID})
	if err != nil {
		return nil, err
	}

	type state struct {
		customers map[int64]bool
		status    CompanyStatus
	}
	byCompany := map[Company]*state{}
	for _, r := range rows {
		s := byCompany[r.Company]
		if s == nil {
			s = &state{customers: map[int64]bool{}, status: CompanyStatus{Company: r.Company}}
			byCompany[r.Company] = s
		}
		s.customers[r.CustomerID] = true
		switch r.Stage {
		case StageProposed:
			s.status.HasProposed = true
		case StageConfirmed:
			s.status.HasConfirmed = true
		default:
			s.status.HasInProgress = true
		}
	}

	out := make([]CompanyStatus, 0, len(byCompany))
	for _, s := range byCompany {
		s.status.Customers = len(s.customers)
		out = append(out, s.status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Company < out[j].Company })
	return out, nil
}

// =============================================================================
// CUSTOMER COUNTS
// =============================================================================

// minRankByKey folds rows to the minimum stage rank per grouping key.
func minRankByKey[K comparable](rows []Row, key func(Row) K) map[K]int {
	mins := map[K]int{}
	for _, r := range rows {
		rank := r.Stage.Rank()
		if cur, ok := mins[key(r)]; !ok || rank < cur {
			mins[key(r)] = rank
		}
	}
	return mins
}

// CustomerCountsByCompany buckets each company's customers into confirmed
// vs still planning. A non-empty companies list narrows the scope.
func (e *Engine) CustomerCountsByCompany(ctx context.Context, assigneeID string, year int, companies []Company) ([]CustomerCounts, error) {
	if err := requireScope(assigneeID, year); err != nil {
		return nil, err
	}
	rows, err := e.rows.Rows(ctx, RowFilter{Year: year, AssigneeID: assigneeID})
	if err != nil {
		return nil, err
	}

	want := map[Company]bool{}
	for _, c := range companies {
		if n := NormalizeCompany(string(c)); n != "" {
			want[n] = true
		}
	}
	if len(want) > 0 {
		kept := rows[:0]
		for _, r := range rows {
			if want[r.Company] {
				kept = append(kept, r)
			}
		}
		rows = kept
	}

	type key struct {
		company  Company
		customer int64
	}
	mins := minRankByKey(rows, func(r Row) key { return key{r.Company, r.CustomerID} })

	byCompany := map[Company]*CustomerCounts{}
	for k, rank := range mins {
		c := byCompany[k.company]
		if c == nil {
			c = &CustomerCounts{Company: k.company}
			byCompany[k.company] = c
		}
		c.Total++
		if rank == StageConfirmed.Rank() {
			c.Confirmed++
		} else {
			c.Planning++
		}
	}

	out := make([]CustomerCounts, 0, len(byCompany))
	for _, c := range byCompany {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Company < out[j].Company })
	return out, nil
}

// OverallCustomerCounts counts distinct customers across all companies.
// A customer confirmed in one company but not another is still in progress.
func (e *Engine) OverallCustomerCounts(ctx context.Context, assigneeID string, year int) (OverallCounts, error) {
	if err := requireScope(assigneeID, year); err != nil {
		return OverallCounts{}, err
	}
	rows, err := e.rows.Rows(ctx, RowFilter{Year: year, AssigneeID: assigneeID})
	if err != nil {
		return OverallCounts{}, err
	}

	mins := minRankByKey(rows, func(r Row) int64 { return r.CustomerID })

	var out OverallCounts
	for _, rank := range mins {
		out.Total++
		if rank == StageConfirmed.Rank() {
			out.Confirmed++
		} else {
			out.InProgress++
		}
	}
	return out, nil
}
