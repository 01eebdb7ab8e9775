/*
store.go - Persistence and collaborator interfaces

PURPOSE:
  Defines the seams between the engine and its backends. The engine never
  builds SQL; each backend implements these interfaces natively and the
  same engine code runs against memory, SQLite, or Postgres.

INTERFACES:
  - RowStore: plan row persistence (list, upsert, confirm, remark)
  - InvoiceReader: prior-year invoice history
  - Directory: customers and employees
  - Backend: all three, what NewEngine takes
  - FixtureStore: Backend plus reference-data writers, for demos and tests

UPSERT SEMANTICS:
  Upsert matches on (year, company, kind, customer, subcategory, unit,
  version). The assignee is deliberately not part of the match key: a row
  reassigned to a new salesperson is updated in place, not duplicated.

SEE ALSO:
  - store/memory.go: In-memory implementation
  - store/sqlite: SQLite implementation
  - store/postgres: Postgres implementation
*/
package plan

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ROW STORE
// =============================================================================

// RowFilter scopes a row listing. Year is required; zero-valued fields are
// ignored. An empty AssigneeID means all assignees.
type RowFilter struct {
	Year        int
	AssigneeID  string
	Company     Company
	CustomerID  int64
	CustomerIDs []int64
}

// ConfirmFilter scopes a confirmation. Company is optional.
type ConfirmFilter struct {
	Year       int
	AssigneeID string
	CustomerID int64
	Company    Company
	UpdatedBy  string
}

// RowStore persists plan rows.
type RowStore interface {
	// Rows lists rows matching the filter in stable insertion order.
	Rows(ctx context.Context, f RowFilter) ([]Row, error)

	// Upsert inserts the row or updates the existing row with the same
	// RowKey and Kind. Updates keep CreatedAt, CreatedBy and Remark.
	Upsert(ctx context.Context, row Row) error

	// Confirm moves every matching row to StageConfirmed and returns the
	// number of rows touched, already-confirmed rows included.
	Confirm(ctx context.Context, f ConfirmFilter) (int, error)

	// Remark reads the oldest matching row's remark. ErrNotFound when the
	// customer has no rows in that scope.
	Remark(ctx context.Context, year int, assigneeID string, customerID int64) (string, error)

	// SetRemark writes the remark on the oldest matching row.
	SetRemark(ctx context.Context, year int, assigneeID string, customerID int64, remark, updatedBy string) error
}

// =============================================================================
// INVOICE READER
// =============================================================================

// InvoiceReader exposes invoice history for baseline seeding and pricing.
type InvoiceReader interface {
	// InvoiceLines returns the raw lines for year and company. An empty
	// assigneeID widens the scope to the whole company.
	InvoiceLines(ctx context.Context, assigneeID string, company Company, year int) ([]InvoiceLine, error)
}

// VolumesByCustomer sums a salesperson's prior-year volume per
// (customer, sales unit).
func VolumesByCustomer(ctx context.Context, r InvoiceReader, assigneeID string, company Company, year int) ([]VolumeSummary, error) {
	lines, err := r.InvoiceLines(ctx, assigneeID, company, year)
	if err != nil {
		return nil, err
	}
	return SummarizeVolumes(lines), nil
}

// UnitPrices derives average unit prices from a salesperson's prior-year
// invoices. An empty assigneeID derives company-wide prices.
func UnitPrices(ctx context.Context, r InvoiceReader, assigneeID string, company Company, year int) (map[string]decimal.Decimal, error) {
	lines, err := r.InvoiceLines(ctx, assigneeID, company, year)
	if err != nil {
		return nil, err
	}
	return AverageUnitPrices(lines), nil
}

// =============================================================================
// DIRECTORY
// =============================================================================

// Customer is one reference-data customer record.
type Customer struct {
	ID         int64
	Name       string
	Company    Company
	AssigneeID string
}

// Employee maps an HR employee id to a sales assignee id.
type Employee struct {
	EmpID      string
	AssigneeID string
	Name       string
}

// Directory resolves customers and employees.
type Directory interface {
	// ResolveAssignee maps an employee id to an assignee id. When no
	// mapping exists the employee id itself is returned, so legacy
	// callers that already send assignee ids keep working.
	ResolveAssignee(ctx context.Context, empID string) (string, error)

	// AssigneeName returns the display name, or "" when unknown.
	AssigneeName(ctx context.Context, assigneeID string) (string, error)

	// CustomerName returns the display name, or "" when unknown.
	CustomerName(ctx context.Context, customerID int64) (string, error)

	// Companies lists the companies of the assignee's customers.
	Companies(ctx context.Context, assigneeID string) ([]Company, error)

	// Assignees lists every assignee that owns at least one customer.
	Assignees(ctx context.Context) ([]string, error)
}

// =============================================================================
// BACKEND
// =============================================================================

// Backend is everything the engine needs from a storage implementation.
type Backend interface {
	RowStore
	InvoiceReader
	Directory
}

// FixtureStore extends Backend with reference-data writers. Used by demo
// data loading and tests; the engine itself never writes reference data.
type FixtureStore interface {
	Backend

	SaveCustomer(ctx context.Context, c Customer) error
	SaveEmployee(ctx context.Context, e Employee) error
	AddInvoice(ctx context.Context, year int, line InvoiceLine) error
}
