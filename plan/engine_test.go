package plan_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/egjang/TNT-Test-sub000/plan"
	"github.com/egjang/TNT-Test-sub000/plan/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const (
	testYear  = 2025
	priorYear = 2024
	assignee  = "A1"
)

// newSeededEngine builds a memory backend with one salesperson, three
// customers and a year of invoices, then seeds the baseline:
//
//	customer 77 (TNT): 1200 KG of Solvent at avg price 2500
//	customer 88 (TNT): 100 EA of Additive at avg price 500
//	customer 99 (DYS): 240 L of Thinner at avg price 500
func newSeededEngine(t *testing.T) (*plan.Engine, *store.Memory) {
	t.Helper()
	m := newFixture(t)
	e := plan.NewEngine(m)

	res, err := e.SeedBaseline(context.Background(), plan.SeedInput{
		AssigneeID:    assignee,
		Year:          testYear,
		UpliftPercent: plan.DefaultUpliftPercent,
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if res.RowsFailed != 0 {
		t.Fatalf("seed reported %d failed rows", res.RowsFailed)
	}
	return e, m
}

func newFixture(t *testing.T) *store.Memory {
	t.Helper()
	ctx := context.Background()
	m := store.NewMemory()

	must := func(err error) {
		if err != nil {
			t.Fatalf("fixture setup failed: %v", err)
		}
	}

	must(m.SaveEmployee(ctx, plan.Employee{EmpID: "E1001", AssigneeID: assignee, Name: "Kim Minji"}))
	must(m.SaveCustomer(ctx, plan.Customer{ID: 77, Name: "Acme Chemical", Company: plan.CompanyTNT, AssigneeID: assignee}))
	must(m.SaveCustomer(ctx, plan.Customer{ID: 88, Name: "Beta Resins", Company: plan.CompanyTNT, AssigneeID: assignee}))
	must(m.SaveCustomer(ctx, plan.Customer{ID: 99, Name: "Gamma Coatings", Company: plan.CompanyDYS, AssigneeID: assignee}))

	must(m.AddInvoice(ctx, priorYear, plan.InvoiceLine{
		CustomerID: 77, SalesUnit: "KG", Subcategory: "Solvent",
		Qty: decimal.NewFromInt(1200), Amount: decimal.NewFromInt(3000000),
	}))
	must(m.AddInvoice(ctx, priorYear, plan.InvoiceLine{
		CustomerID: 88, SalesUnit: "EA", Subcategory: "Additive",
		Qty: decimal.NewFromInt(100), Amount: decimal.NewFromInt(50000),
	}))
	must(m.AddInvoice(ctx, priorYear, plan.InvoiceLine{
		CustomerID: 99, SalesUnit: "L", Subcategory: "Thinner",
		Qty: decimal.NewFromInt(240), Amount: decimal.NewFromInt(120000),
	}))
	return m
}

func series(t *testing.T, month int, value string) plan.MonthlySeries {
	t.Helper()
	var s plan.MonthlySeries
	s[month] = decimal.RequireFromString(value)
	return s
}

func totalFor(totals []plan.CompanyTotal, company plan.Company) decimal.Decimal {
	for _, tt := range totals {
		if tt.Company == company {
			return tt.Amount
		}
	}
	return decimal.Zero
}

// =============================================================================
// SEEDING
// =============================================================================

func TestSeedBaseline_ProratesUpliftedVolume(t *testing.T) {
	// GIVEN: Customer 77 shipped 1200 KG last year at avg price 2500
	// WHEN: Seeding with the default 10 percent uplift
	// THEN: Each month plans 110.00 KG worth 275000.00

	_, m := newSeededEngine(t)

	rows, err := m.Rows(context.Background(), plan.RowFilter{
		Year: testYear, AssigneeID: assignee, CustomerID: 77,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row for customer 77, got %d", len(rows))
	}

	row := rows[0]
	if row.Kind != plan.KindBaseline || row.Stage != plan.StageInProgress {
		t.Errorf("unexpected kind/stage: %s/%s", row.Kind, row.Stage)
	}
	if row.Subcategory != "Solvent" || row.SalesUnit != "KG" {
		t.Errorf("unexpected subcategory/unit: %s/%s", row.Subcategory, row.SalesUnit)
	}
	for i := 0; i < plan.Months; i++ {
		if row.Qty[i].StringFixed(2) != "110.00" {
			t.Errorf("month %d qty: got %s, want 110.00", i+1, row.Qty[i])
		}
		if row.Amount[i].StringFixed(2) != "275000.00" {
			t.Errorf("month %d amount: got %s, want 275000.00", i+1, row.Amount[i])
		}
	}
}

func TestSeedBaseline_UnevenTotalsSumExactly(t *testing.T) {
	// GIVEN: Customer 88 shipped 100 EA, uplifted to 110.00
	// WHEN: Seeding prorates into 12 buckets
	// THEN: The quantities sum back to exactly 110.00

	_, m := newSeededEngine(t)

	rows, err := m.Rows(context.Background(), plan.RowFilter{
		Year: testYear, AssigneeID: assignee, CustomerID: 88,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if got := rows[0].Qty.Total().StringFixed(2); got != "110.00" {
		t.Errorf("qty total: got %s, want 110.00", got)
	}
}

func TestSeedBaseline_Idempotent(t *testing.T) {
	// GIVEN: A seeded plan
	// WHEN: Seeding again with the same inputs
	// THEN: No duplicate rows appear

	e, m := newSeededEngine(t)
	ctx := context.Background()

	before, _ := m.Rows(ctx, plan.RowFilter{Year: testYear, AssigneeID: assignee})

	if _, err := e.SeedBaseline(ctx, plan.SeedInput{
		AssigneeID: assignee, Year: testYear, UpliftPercent: plan.DefaultUpliftPercent,
	}); err != nil {
		t.Fatal(err)
	}

	after, _ := m.Rows(ctx, plan.RowFilter{Year: testYear, AssigneeID: assignee})
	if len(after) != len(before) {
		t.Errorf("row count changed from %d to %d", len(before), len(after))
	}
}

func TestSeedBaseline_DoesNotTouchProposals(t *testing.T) {
	// GIVEN: A plan with a salesperson proposal
	// WHEN: The baseline is re-seeded
	// THEN: The proposal row survives unchanged

	e, m := newSeededEngine(t)
	ctx := context.Background()

	if err := e.UpsertProposal(ctx, plan.ProposalInput{
		AssigneeID: assignee, Year: testYear, Company: plan.CompanyTNT,
		CustomerID: 77, Subcategory: "Solvent", SalesUnit: "KG",
		Qty: series(t, 0, "10"),
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := e.SeedBaseline(ctx, plan.SeedInput{
		AssigneeID: assignee, Year: testYear, UpliftPercent: plan.DefaultUpliftPercent,
	}); err != nil {
		t.Fatal(err)
	}

	rows, _ := m.Rows(ctx, plan.RowFilter{Year: testYear, AssigneeID: assignee, CustomerID: 77})
	var proposals int
	for _, r := range rows {
		if r.Kind == plan.KindProposal {
			proposals++
			if r.Qty[0].StringFixed(2) != "10.00" {
				t.Errorf("proposal qty changed: %s", r.Qty[0])
			}
		}
	}
	if proposals != 1 {
		t.Errorf("expected 1 proposal row, got %d", proposals)
	}
}

func TestSeedBaseline_RequiresScope(t *testing.T) {
	e := plan.NewEngine(store.NewMemory())

	_, err := e.SeedBaseline(context.Background(), plan.SeedInput{AssigneeID: "", Year: testYear})
	if !errors.Is(err, plan.ErrInvalidArgument) {
		t.Errorf("empty assignee: got %v, want ErrInvalidArgument", err)
	}

	_, err = e.SeedBaseline(context.Background(), plan.SeedInput{AssigneeID: assignee, Year: 0})
	if !errors.Is(err, plan.ErrInvalidArgument) {
		t.Errorf("zero year: got %v, want ErrInvalidArgument", err)
	}
}

// =============================================================================
// PROPOSALS
// =============================================================================

func TestUpsertProposal_DerivesAmountsFromHistory(t *testing.T) {
	// GIVEN: Prior-year KG price of 2500 for this salesperson
	// WHEN: Proposing 10 KG in January without explicit amounts
	// THEN: January's amount is 25000.00

	e, m := newSeededEngine(t)
	ctx := context.Background()

	if err := e.UpsertProposal(ctx, plan.ProposalInput{
		AssigneeID: assignee, Year: testYear, Company: plan.CompanyTNT,
		CustomerID: 77, Subcategory: "Solvent", SalesUnit: "KG",
		Qty: series(t, 0, "10"),
	}); err != nil {
		t.Fatal(err)
	}

	rows, _ := m.Rows(ctx, plan.RowFilter{Year: testYear, AssigneeID: assignee, CustomerID: 77})
	for _, r := range rows {
		if r.Kind != plan.KindProposal {
			continue
		}
		if r.Stage != plan.StageProposed {
			t.Errorf("proposal stage: got %s, want P", r.Stage)
		}
		if r.Amount[0].StringFixed(2) != "25000.00" {
			t.Errorf("january amount: got %s, want 25000.00", r.Amount[0])
		}
		if r.CustomerName != "Acme Chemical" {
			t.Errorf("customer name: got %q", r.CustomerName)
		}
		return
	}
	t.Fatal("no proposal row found")
}

func TestUpsertProposal_ExplicitAmountsWinOverDerived(t *testing.T) {
	// GIVEN: A proposal with caller-provided amounts
	// WHEN: Upserting
	// THEN: The explicit amounts are stored, not price-derived ones

	e, m := newSeededEngine(t)
	ctx := context.Background()

	amount := series(t, 0, "12345.67")
	if err := e.UpsertProposal(ctx, plan.ProposalInput{
		AssigneeID: assignee, Year: testYear, Company: plan.CompanyTNT,
		CustomerID: 77, Subcategory: "Solvent", SalesUnit: "KG",
		Qty: series(t, 0, "10"), Amount: &amount,
	}); err != nil {
		t.Fatal(err)
	}

	rows, _ := m.Rows(ctx, plan.RowFilter{Year: testYear, AssigneeID: assignee, CustomerID: 77})
	for _, r := range rows {
		if r.Kind == plan.KindProposal {
			if r.Amount[0].StringFixed(2) != "12345.67" {
				t.Errorf("january amount: got %s, want 12345.67", r.Amount[0])
			}
			return
		}
	}
	t.Fatal("no proposal row found")
}

func TestUpsertProposal_ClampsNegativeQuantities(t *testing.T) {
	e, m := newSeededEngine(t)
	ctx := context.Background()

	var qty plan.MonthlySeries
	qty[0] = decimal.RequireFromString("-5")
	qty[1] = decimal.RequireFromString("3")

	if err := e.UpsertProposal(ctx, plan.ProposalInput{
		AssigneeID: assignee, Year: testYear, Company: plan.CompanyTNT,
		CustomerID: 77, Subcategory: "Solvent", SalesUnit: "KG", Qty: qty,
	}); err != nil {
		t.Fatal(err)
	}

	rows, _ := m.Rows(ctx, plan.RowFilter{Year: testYear, AssigneeID: assignee, CustomerID: 77})
	for _, r := range rows {
		if r.Kind == plan.KindProposal {
			if !r.Qty[0].IsZero() {
				t.Errorf("negative qty not clamped: %s", r.Qty[0])
			}
			if r.Qty[1].StringFixed(2) != "3.00" {
				t.Errorf("positive qty mangled: %s", r.Qty[1])
			}
			return
		}
	}
	t.Fatal("no proposal row found")
}

func TestUpsertProposal_ValidatesInput(t *testing.T) {
	e, _ := newSeededEngine(t)
	ctx := context.Background()

	cases := []plan.ProposalInput{
		{AssigneeID: assignee, Year: testYear, CustomerID: 0, Subcategory: "s", SalesUnit: "u"},
		{AssigneeID: assignee, Year: testYear, CustomerID: 77, Subcategory: "", SalesUnit: "u"},
		{AssigneeID: assignee, Year: testYear, CustomerID: 77, Subcategory: "s", SalesUnit: " "},
	}
	for i, in := range cases {
		if err := e.UpsertProposal(ctx, in); !errors.Is(err, plan.ErrInvalidArgument) {
			t.Errorf("case %d: got %v, want ErrInvalidArgument", i, err)
		}
	}
}

// =============================================================================
// STAGE LIFECYCLE
// =============================================================================

func TestResolveStage(t *testing.T) {
	mk := func(stages ...plan.Stage) []plan.Row {
		rows := make([]plan.Row, len(stages))
		for i, s := range stages {
			rows[i] = plan.Row{Stage: s}
		}
		return rows
	}

	cases := []struct {
		name string
		rows []plan.Row
		want plan.Stage
	}{
		{"no rows", nil, plan.StageBlank},
		{"all confirmed", mk("C", "C"), plan.StageConfirmed},
		{"one proposal flips to proposed", mk("I", "P", "I"), plan.StageProposed},
		{"proposal beats confirmed minority", mk("C", "P"), plan.StageProposed},
		{"all in progress", mk("I", "I"), plan.StageInProgress},
		{"mixed without proposal", mk("I", "C"), plan.StageBlank},
		{"unknown stage breaks unanimity", mk("C", ""), plan.StageBlank},
	}
	for _, tc := range cases {
		if got := plan.ResolveStage(tc.rows); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestCustomerStages_AfterSeedAndProposal(t *testing.T) {
	// GIVEN: A seeded plan where customer 77 also has a proposal
	// WHEN: Resolving stages
	// THEN: 77 is Proposed, 88 and 99 are InProgress

	e, _ := newSeededEngine(t)
	ctx := context.Background()

	if err := e.UpsertProposal(ctx, plan.ProposalInput{
		AssigneeID: assignee, Year: testYear, Company: plan.CompanyTNT,
		CustomerID: 77, Subcategory: "Solvent", SalesUnit: "KG",
		Qty: series(t, 0, "10"),
	}); err != nil {
		t.Fatal(err)
	}

	stages, err := e.CustomerStages(ctx, plan.StageQuery{AssigneeID: assignee, Year: testYear})
	if err != nil {
		t.Fatal(err)
	}

	want := map[int64]plan.Stage{77: plan.StageProposed, 88: plan.StageInProgress, 99: plan.StageInProgress}
	if len(stages) != len(want) {
		t.Fatalf("expected %d customers, got %d", len(want), len(stages))
	}
	for _, s := range stages {
		if want[s.CustomerID] != s.Stage {
			t.Errorf("customer %d: got %s, want %s", s.CustomerID, s.Stage, want[s.CustomerID])
		}
	}
}

func TestConfirmCustomer_ConfirmsBothKinds(t *testing.T) {
	// GIVEN: Customer 77 has a baseline and a proposal row
	// WHEN: Confirming the customer
	// THEN: Both rows move to Confirmed and the stage resolves to C

	e, _ := newSeededEngine(t)
	ctx := context.Background()

	if err := e.UpsertProposal(ctx, plan.ProposalInput{
		AssigneeID: assignee, Year: testYear, Company: plan.CompanyTNT,
		CustomerID: 77, Subcategory: "Solvent", SalesUnit: "KG",
		Qty: series(t, 0, "10"),
	}); err != nil {
		t.Fatal(err)
	}

	n, err := e.ConfirmCustomer(ctx, plan.ConfirmInput{
		AssigneeID: assignee, Year: testYear, CustomerID: 77,
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("confirmed %d rows, want 2", n)
	}

	stages, _ := e.CustomerStages(ctx, plan.StageQuery{
		AssigneeID: assignee, Year: testYear, CustomerIDs: []int64{77},
	})
	if len(stages) != 1 || stages[0].Stage != plan.StageConfirmed {
		t.Errorf("stage after confirm: %+v", stages)
	}
}

func TestConfirmCustomer_LaterProposalReopens(t *testing.T) {
	// GIVEN: A confirmed customer
	// WHEN: A new proposal is upserted afterwards
	// THEN: The customer drops back to Proposed; confirmation is not terminal

	e, _ := newSeededEngine(t)
	ctx := context.Background()

	if _, err := e.ConfirmCustomer(ctx, plan.ConfirmInput{
		AssigneeID: assignee, Year: testYear, CustomerID: 77,
	}); err != nil {
		t.Fatal(err)
	}

	if err := e.UpsertProposal(ctx, plan.ProposalInput{
		AssigneeID: assignee, Year: testYear, Company: plan.CompanyTNT,
		CustomerID: 77, Subcategory: "Solvent", SalesUnit: "KG",
		Qty: series(t, 0, "5"),
	}); err != nil {
		t.Fatal(err)
	}

	stages, _ := e.CustomerStages(ctx, plan.StageQuery{
		AssigneeID: assignee, Year: testYear, CustomerIDs: []int64{77},
	})
	if len(stages) != 1 || stages[0].Stage != plan.StageProposed {
		t.Errorf("stage after late proposal: %+v", stages)
	}
}

func TestConfirmCustomer_BaselineOnlyCustomerConfirms(t *testing.T) {
	// GIVEN: Customer 88 only has its seeded baseline row
	// WHEN: Confirming
	// THEN: The single row confirms and the customer counts as confirmed

	e, _ := newSeededEngine(t)
	ctx := context.Background()

	n, err := e.ConfirmCustomer(ctx, plan.ConfirmInput{
		AssigneeID: assignee, Year: testYear, CustomerID: 88,
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("confirmed %d rows, want 1", n)
	}

	counts, err := e.OverallCustomerCounts(ctx, assignee, testYear)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Confirmed != 1 || counts.Total != 3 {
		t.Errorf("counts: %+v", counts)
	}
}

func TestStatusSummary(t *testing.T) {
	// GIVEN: A seeded plan with a proposal at 77 and 99 confirmed
	// WHEN: Summarizing status
	// THEN: TNT shows proposed and in-progress, DYS shows confirmed only

	e, _ := newSeededEngine(t)
	ctx := context.Background()

	if err := e.UpsertProposal(ctx, plan.ProposalInput{
		AssigneeID: assignee, Year: testYear, Company: plan.CompanyTNT,
		CustomerID: 77, Subcategory: "Solvent", SalesUnit: "KG",
		Qty: series(t, 0, "10"),
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.ConfirmCustomer(ctx, plan.ConfirmInput{
		AssigneeID: assignee, Year: testYear, CustomerID: 99,
	}); err != nil {
		t.Fatal(err)
	}

	statuses, err := e.StatusSummary(ctx, assignee, testYear)
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 companies, got %d", len(statuses))
	}

	// Sorted by company: DYS before TNT.
	dys, tnt := statuses[0], statuses[1]
	if dys.Company != plan.CompanyDYS || !dys.HasConfirmed || dys.HasProposed || dys.HasInProgress {
		t.Errorf("DYS status: %+v", dys)
	}
	if tnt.Company != plan.CompanyTNT || !tnt.HasProposed || !tnt.HasInProgress || tnt.HasConfirmed {
		t.Errorf("TNT status: %+v", tnt)
	}
	if tnt.Customers != 2 || dys.Customers != 1 {
		t.Errorf("customer counts: TNT=%d DYS=%d", tnt.Customers, dys.Customers)
	}
}

// =============================================================================
// ROLLUPS
// =============================================================================

func TestCompanyTotals_ProposalReplacesBaseline(t *testing.T) {
	// GIVEN: Baseline 100.00 and proposal 150.00 on the same customer/unit
	// WHEN: Computing totals
	// THEN: The total is 150.00, not 100.00 and not 250.00

	m := store.NewMemory()
	e := plan.NewEngine(m)
	ctx := context.Background()

	base := plan.Row{
		Year: testYear, Company: plan.CompanyTNT, Kind: plan.KindBaseline,
		Stage: plan.StageInProgress, AssigneeID: assignee,
		CustomerID: 1, Subcategory: "S", SalesUnit: "U", VersionNo: 1,
	}
	base.Amount[0] = decimal.RequireFromString("100.00")
	if err := m.Upsert(ctx, base); err != nil {
		t.Fatal(err)
	}

	prop := base
	prop.Kind = plan.KindProposal
	prop.Stage = plan.StageProposed
	prop.Amount[0] = decimal.RequireFromString("150.00")
	if err := m.Upsert(ctx, prop); err != nil {
		t.Fatal(err)
	}

	totals, err := e.CompanyTotals(ctx, assignee, testYear)
	if err != nil {
		t.Fatal(err)
	}
	if got := totalFor(totals, plan.CompanyTNT).StringFixed(2); got != "150.00" {
		t.Errorf("total: got %s, want 150.00", got)
	}
}

func TestCompanyTotals_BaselineCountsWhereNoProposal(t *testing.T) {
	// GIVEN: A seeded plan plus one proposal on (77, KG)
	// WHEN: Computing totals
	// THEN: 77 contributes only the proposal, 88 keeps its baseline

	e, _ := newSeededEngine(t)
	ctx := context.Background()

	if err := e.UpsertProposal(ctx, plan.ProposalInput{
		AssigneeID: assignee, Year: testYear, Company: plan.CompanyTNT,
		CustomerID: 77, Subcategory: "Solvent", SalesUnit: "KG",
		Qty: series(t, 0, "10"),
	}); err != nil {
		t.Fatal(err)
	}

	totals, err := e.CompanyTotals(ctx, assignee, testYear)
	if err != nil {
		t.Fatal(err)
	}

	// 77: proposal 10 KG * 2500 = 25000; 88: baseline 110 EA * 500 = 55000.
	if got := totalFor(totals, plan.CompanyTNT).StringFixed(2); got != "80000.00" {
		t.Errorf("TNT total: got %s, want 80000.00", got)
	}
	// 99: baseline 264 L * 500 = 132000, untouched by the proposal.
	if got := totalFor(totals, plan.CompanyDYS).StringFixed(2); got != "132000.00" {
		t.Errorf("DYS total: got %s, want 132000.00", got)
	}
}

func TestConfirmedTotals_SubsetOfTotals(t *testing.T) {
	// GIVEN: Only customer 77 is confirmed
	// WHEN: Computing confirmed totals
	// THEN: They include 77 only, and never exceed the full totals

	e, _ := newSeededEngine(t)
	ctx := context.Background()

	if _, err := e.ConfirmCustomer(ctx, plan.ConfirmInput{
		AssigneeID: assignee, Year: testYear, CustomerID: 77,
	}); err != nil {
		t.Fatal(err)
	}

	confirmed, err := e.ConfirmedTotals(ctx, assignee, testYear)
	if err != nil {
		t.Fatal(err)
	}
	totals, err := e.CompanyTotals(ctx, assignee, testYear)
	if err != nil {
		t.Fatal(err)
	}

	// 77 baseline: 12 * 275000 = 3300000.
	if got := totalFor(confirmed, plan.CompanyTNT).StringFixed(2); got != "3300000.00" {
		t.Errorf("confirmed TNT: got %s, want 3300000.00", got)
	}
	if totalFor(confirmed, plan.CompanyDYS).Sign() != 0 {
		t.Errorf("confirmed DYS should be zero, got %s", totalFor(confirmed, plan.CompanyDYS))
	}
	for _, c := range []plan.Company{plan.CompanyTNT, plan.CompanyDYS} {
		if totalFor(confirmed, c).GreaterThan(totalFor(totals, c)) {
			t.Errorf("%s: confirmed exceeds total", c)
		}
	}
}

func TestPlanTotals_PrecedenceIsPerAssignee(t *testing.T) {
	// GIVEN: Two salespeople plan the same customer/unit; only the first
	//        has a proposal
	// WHEN: Computing cross-assignee totals
	// THEN: The second salesperson's baseline still counts

	m := store.NewMemory()
	e := plan.NewEngine(m)
	ctx := context.Background()

	mkRow := func(who string, kind plan.RowKind, stage plan.Stage, amount string) plan.Row {
		r := plan.Row{
			Year: testYear, Company: plan.CompanyTNT, Kind: kind, Stage: stage,
			AssigneeID: who, CustomerID: 5, Subcategory: "S", SalesUnit: "U", VersionNo: 1,
		}
		r.Amount[0] = decimal.RequireFromString(amount)
		return r
	}

	// Upsert matches on key+kind; distinct assignees on the same key would
	// collide, so the second salesperson plans a different version.
	rowA := mkRow("A1", plan.KindBaseline, plan.StageInProgress, "100.00")
	rowAP := mkRow("A1", plan.KindProposal, plan.StageProposed, "150.00")
	rowB := mkRow("A2", plan.KindBaseline, plan.StageInProgress, "70.00")
	rowB.VersionNo = 2

	for _, r := range []plan.Row{rowA, rowAP, rowB} {
		if err := m.Upsert(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	totals, err := e.PlanTotals(ctx, testYear)
	if err != nil {
		t.Fatal(err)
	}
	if got := totalFor(totals, plan.CompanyTNT).StringFixed(2); got != "220.00" {
		t.Errorf("total: got %s, want 220.00 (150 + 70)", got)
	}
}

func TestBreakdown_ByCustomerAndUnit(t *testing.T) {
	// GIVEN: A seeded TNT plan (77 at 3300000, 88 at 55000)
	// WHEN: Breaking totals down
	// THEN: Lines come back largest first with customer labels

	e, _ := newSeededEngine(t)
	ctx := context.Background()

	byCustomer, err := e.Breakdown(ctx, assignee, testYear, plan.CompanyTNT, plan.GroupByCustomer)
	if err != nil {
		t.Fatal(err)
	}
	if len(byCustomer) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(byCustomer))
	}
	if byCustomer[0].Key != "77" || byCustomer[0].Label != "Acme Chemical" {
		t.Errorf("first line: %+v", byCustomer[0])
	}
	if byCustomer[0].Amount.LessThan(byCustomer[1].Amount) {
		t.Error("lines not sorted by amount descending")
	}

	byUnit, err := e.Breakdown(ctx, assignee, testYear, plan.CompanyTNT, plan.GroupByUnit)
	if err != nil {
		t.Fatal(err)
	}
	if len(byUnit) != 2 {
		t.Fatalf("expected 2 unit lines, got %d", len(byUnit))
	}
	if byUnit[0].Key != "KG" {
		t.Errorf("largest unit: got %s, want KG", byUnit[0].Key)
	}

	if _, err := e.Breakdown(ctx, assignee, testYear, plan.CompanyTNT, "bogus"); !errors.Is(err, plan.ErrInvalidArgument) {
		t.Errorf("bogus groupBy: got %v", err)
	}
}

func TestCustomerCountsByCompany(t *testing.T) {
	// GIVEN: Customer 88 confirmed, 77 still planning
	// WHEN: Counting TNT customers
	// THEN: 2 total, 1 confirmed, 1 planning

	e, _ := newSeededEngine(t)
	ctx := context.Background()

	if _, err := e.ConfirmCustomer(ctx, plan.ConfirmInput{
		AssigneeID: assignee, Year: testYear, CustomerID: 88,
	}); err != nil {
		t.Fatal(err)
	}

	counts, err := e.CustomerCountsByCompany(ctx, assignee, testYear, []plan.Company{plan.CompanyTNT})
	if err != nil {
		t.Fatal(err)
	}
	if len(counts) != 1 {
		t.Fatalf("expected 1 company, got %d", len(counts))
	}
	c := counts[0]
	if c.Total != 2 || c.Confirmed != 1 || c.Planning != 1 {
		t.Errorf("counts: %+v", c)
	}
}

// =============================================================================
// CUSTOMER VIEWS
// =============================================================================

func TestCustomerMonthly_SumsBothKinds(t *testing.T) {
	// GIVEN: Customer 77 with baseline 110/month and a 10 KG January proposal
	// WHEN: Reading the monthly view
	// THEN: January sums to 120, other months stay at 110

	e, _ := newSeededEngine(t)
	ctx := context.Background()

	if err := e.UpsertProposal(ctx, plan.ProposalInput{
		AssigneeID: assignee, Year: testYear, Company: plan.CompanyTNT,
		CustomerID: 77, Subcategory: "Solvent", SalesUnit: "KG",
		Qty: series(t, 0, "10"),
	}); err != nil {
		t.Fatal(err)
	}

	view, err := e.CustomerMonthly(ctx, assignee, testYear, 77, plan.CompanyTNT)
	if err != nil {
		t.Fatal(err)
	}
	if !view.Planned {
		t.Fatal("expected planned view")
	}
	if view.Stage != plan.StageProposed {
		t.Errorf("stage: got %s, want P", view.Stage)
	}
	if view.Qty[0].StringFixed(2) != "120.00" {
		t.Errorf("january: got %s, want 120.00", view.Qty[0])
	}
	if view.Qty[1].StringFixed(2) != "110.00" {
		t.Errorf("february: got %s, want 110.00", view.Qty[1])
	}
}

func TestCustomerMonthly_UnplannedCustomer(t *testing.T) {
	e, _ := newSeededEngine(t)

	view, err := e.CustomerMonthly(context.Background(), assignee, testYear, 4242, "")
	if err != nil {
		t.Fatal(err)
	}
	if view.Planned {
		t.Error("expected unplanned view")
	}
}

func TestCustomerMonthlyRows_ProposalWinsItsCell(t *testing.T) {
	// GIVEN: A proposal on (Solvent, KG) for customer 77
	// WHEN: Listing the customer's plan lines
	// THEN: The line is the proposal, not the baseline it shadows

	e, _ := newSeededEngine(t)
	ctx := context.Background()

	if err := e.UpsertProposal(ctx, plan.ProposalInput{
		AssigneeID: assignee, Year: testYear, Company: plan.CompanyTNT,
		CustomerID: 77, Subcategory: "Solvent", SalesUnit: "KG",
		Qty: series(t, 0, "10"),
	}); err != nil {
		t.Fatal(err)
	}

	rows, err := e.CustomerMonthlyRows(ctx, assignee, testYear, 77, plan.CompanyTNT)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 line, got %d", len(rows))
	}
	if rows[0].Kind != plan.KindProposal {
		t.Errorf("kind: got %s, want P", rows[0].Kind)
	}
	if rows[0].Qty[0].StringFixed(2) != "10.00" {
		t.Errorf("january qty: got %s, want 10.00", rows[0].Qty[0])
	}
}

// =============================================================================
// REMARKS
// =============================================================================

func TestPlanRemark_RoundTrip(t *testing.T) {
	e, _ := newSeededEngine(t)
	ctx := context.Background()

	if err := e.SetPlanRemark(ctx, assignee, testYear, 77, "volume pending renewal talks"); err != nil {
		t.Fatal(err)
	}

	remark, err := e.PlanRemark(ctx, assignee, testYear, 77)
	if err != nil {
		t.Fatal(err)
	}
	if remark != "volume pending renewal talks" {
		t.Errorf("remark: got %q", remark)
	}
}

func TestPlanRemark_UnplannedCustomerIsNotFound(t *testing.T) {
	e, _ := newSeededEngine(t)
	ctx := context.Background()

	if _, err := e.PlanRemark(ctx, assignee, testYear, 31337); !errors.Is(err, plan.ErrNotFound) {
		t.Errorf("read: got %v, want ErrNotFound", err)
	}
	if err := e.SetPlanRemark(ctx, assignee, testYear, 31337, "x"); !errors.Is(err, plan.ErrNotFound) {
		t.Errorf("write: got %v, want ErrNotFound", err)
	}
}

func TestPlanRemark_SurvivesReseed(t *testing.T) {
	// GIVEN: A remark on customer 77
	// WHEN: The baseline is re-seeded
	// THEN: The remark is still there

	e, _ := newSeededEngine(t)
	ctx := context.Background()

	if err := e.SetPlanRemark(ctx, assignee, testYear, 77, "keep me"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.SeedBaseline(ctx, plan.SeedInput{
		AssigneeID: assignee, Year: testYear, UpliftPercent: plan.DefaultUpliftPercent,
	}); err != nil {
		t.Fatal(err)
	}

	remark, err := e.PlanRemark(ctx, assignee, testYear, 77)
	if err != nil {
		t.Fatal(err)
	}
	if remark != "keep me" {
		t.Errorf("remark after reseed: got %q", remark)
	}
}

// =============================================================================
// AUTOMATED REFRESH
// =============================================================================

func TestSeedBaseline_PreservesConfirmedCustomers(t *testing.T) {
	// GIVEN: Customer 77 is confirmed, 88 and 99 are still in progress
	// WHEN: Re-seeding with PreserveConfirmed, as the refresh sweep does
	// THEN: 77 keeps stage C and its accepted amounts; the others refresh

	e, m := newSeededEngine(t)
	ctx := context.Background()

	if _, err := e.ConfirmCustomer(ctx, plan.ConfirmInput{
		AssigneeID: assignee, Year: testYear, CustomerID: 77,
	}); err != nil {
		t.Fatal(err)
	}

	res, err := e.SeedBaseline(ctx, plan.SeedInput{
		AssigneeID:        assignee,
		Year:              testYear,
		UpliftPercent:     plan.DefaultUpliftPercent,
		PreserveConfirmed: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.RowsUpserted != 2 {
		t.Errorf("rows upserted: got %d, want 2 (customer 77 skipped)", res.RowsUpserted)
	}

	rows, err := m.Rows(ctx, plan.RowFilter{
		Year: testYear, AssigneeID: assignee, CustomerID: 77,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row for customer 77, got %d", len(rows))
	}
	if rows[0].Stage != plan.StageConfirmed {
		t.Errorf("stage after refresh: got %s, want %s", rows[0].Stage, plan.StageConfirmed)
	}
	if got := rows[0].Amount[0].StringFixed(2); got != "275000.00" {
		t.Errorf("amount after refresh: got %s, want 275000.00", got)
	}
}

func TestSeedBaseline_WithoutPreserveOverwritesConfirmed(t *testing.T) {
	// GIVEN: Customer 77 is confirmed
	// WHEN: Re-seeding interactively, without PreserveConfirmed
	// THEN: The baseline is rewritten back to in progress

	e, m := newSeededEngine(t)
	ctx := context.Background()

	if _, err := e.ConfirmCustomer(ctx, plan.ConfirmInput{
		AssigneeID: assignee, Year: testYear, CustomerID: 77,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.SeedBaseline(ctx, plan.SeedInput{
		AssigneeID: assignee, Year: testYear, UpliftPercent: plan.DefaultUpliftPercent,
	}); err != nil {
		t.Fatal(err)
	}

	rows, _ := m.Rows(ctx, plan.RowFilter{
		Year: testYear, AssigneeID: assignee, CustomerID: 77,
	})
	if len(rows) != 1 || rows[0].Stage != plan.StageInProgress {
		t.Errorf("expected interactive reseed to reset stage to I, got %+v", rows)
	}
}

// =============================================================================
// DERIVED PRICING
// =============================================================================

func TestUpsertProposal_RoundsDerivedUnitPrice(t *testing.T) {
	// GIVEN: A fractional average price (10 over 3 units = 3.333...)
	// WHEN: A proposal derives its amounts from that price
	// THEN: The price is scaled to 3.33 first, so 100 units cost 333.00,
	//       the same figure a seeded baseline would carry

	ctx := context.Background()
	m := store.NewMemory()
	if err := m.SaveCustomer(ctx, plan.Customer{
		ID: 55, Name: "Delta Inks", Company: plan.CompanyTNT, AssigneeID: assignee,
	}); err != nil {
		t.Fatal(err)
	}
	if err := m.AddInvoice(ctx, priorYear, plan.InvoiceLine{
		CustomerID: 55, SalesUnit: "KG", Subcategory: "Pigment",
		Qty: decimal.NewFromInt(3), Amount: decimal.NewFromInt(10),
	}); err != nil {
		t.Fatal(err)
	}
	e := plan.NewEngine(m)

	if err := e.UpsertProposal(ctx, plan.ProposalInput{
		AssigneeID:  assignee,
		Year:        testYear,
		Company:     plan.CompanyTNT,
		CustomerID:  55,
		Subcategory: "Pigment",
		SalesUnit:   "KG",
		Qty:         series(t, 0, "100"),
	}); err != nil {
		t.Fatal(err)
	}

	rows, err := m.Rows(ctx, plan.RowFilter{
		Year: testYear, AssigneeID: assignee, CustomerID: 55,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if got := rows[0].Amount[0].StringFixed(2); got != "333.00" {
		t.Errorf("derived amount: got %s, want 333.00", got)
	}
}
