/*
fixtures.go - Demo reference data

PURPOSE:
  Loads a small, deterministic dataset so the server is usable out of the
  box: two salespeople, customers in both companies, and a year of invoice
  lines to seed baselines from. Only reference data is written; plan rows
  come from hitting the seed endpoint.

USAGE:
  Enabled with the -demo flag on cmd/server.

SEE ALSO:
  - plan/store.go: FixtureStore interface
  - cmd/server/main.go: Flag wiring
*/
package api

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/egjang/TNT-Test-sub000/plan"
)

// LoadDemoData populates reference data for invoiceYear, typically the
// year before the plan target year.
func LoadDemoData(ctx context.Context, store plan.FixtureStore, invoiceYear int) error {
	employees := []plan.Employee{
		{EmpID: "E1001", AssigneeID: "A100", Name: "Kim Minji"},
		{EmpID: "E1002", AssigneeID: "A200", Name: "Park Jiho"},
	}
	for _, e := range employees {
		if err := store.SaveEmployee(ctx, e); err != nil {
			return fmt.Errorf("failed to load employee %s: %w", e.EmpID, err)
		}
	}

	customers := []plan.Customer{
		{ID: 1001, Name: "Hanil Chemical", Company: plan.CompanyTNT, AssigneeID: "A100"},
		{ID: 1002, Name: "Daesung Polymers", Company: plan.CompanyTNT, AssigneeID: "A100"},
		{ID: 1003, Name: "Sejin Coatings", Company: plan.CompanyDYS, AssigneeID: "A100"},
		{ID: 2001, Name: "Kumho Industrial", Company: plan.CompanyTNT, AssigneeID: "A200"},
		{ID: 2002, Name: "Yongsan Resins", Company: plan.CompanyDYS, AssigneeID: "A200"},
	}
	for _, c := range customers {
		if err := store.SaveCustomer(ctx, c); err != nil {
			return fmt.Errorf("failed to load customer %d: %w", c.ID, err)
		}
	}

	type inv struct {
		customer int64
		unit     string
		sub      string
		qty      string
		amt      string
	}
	invoices := []inv{
		{1001, "KG", "Solvent", "1200", "3600000"},
		{1001, "KG", "Solvent", "300", "870000"},
		{1001, "EA", "Additive", "80", "640000"},
		{1002, "KG", "Resin", "2500", "5000000"},
		{1002, "KG", "", "500", "1050000"},
		{1003, "L", "Thinner", "900", "1350000"},
		{2001, "KG", "Resin", "4000", "8800000"},
		{2001, "", "", "150", "300000"},
		{2002, "L", "Thinner", "600", "930000"},
	}
	for _, i := range invoices {
		line := plan.InvoiceLine{
			CustomerID:  i.customer,
			SalesUnit:   i.unit,
			Subcategory: i.sub,
			Qty:         mustDecimal(i.qty),
			Amount:      mustDecimal(i.amt),
		}
		if err := store.AddInvoice(ctx, invoiceYear, line); err != nil {
			return fmt.Errorf("failed to load invoice for customer %d: %w", i.customer, err)
		}
	}
	return nil
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
