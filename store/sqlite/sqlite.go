/*
Package sqlite provides a SQLite-backed implementation of the plan storage
interfaces.

PURPOSE:
  Implements plan.Backend (rows, invoices, directory) plus the fixture
  writers using SQLite. The same queries port to PostgreSQL with only
  placeholder and dialect differences; see store/postgres.

KEY TABLES:
  sales_plan: Plan rows, one column pair per month (qty_01..qty_12,
              amount_01..amount_12). Decimals are stored as TEXT and
              parsed on read, so no float drift ever enters the data.
  customers:  Reference data linking customers to assignees and companies
  employees:  Employee-id to assignee-id mapping
  invoices:   Prior-year invoice lines feeding the baseline seeder

UPSERT:
  sales_plan carries a unique index over (year, company, kind, customer,
  subcategory, unit, version); Upsert is INSERT .. ON CONFLICT DO UPDATE.
  The assignee is not in the index: reassignment updates in place.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, plus WAL mode for better
  concurrent reads.

USAGE:
  store, err := sqlite.New("./data/plan.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
  engine := plan.NewEngine(store)

SEE ALSO:
  - plan/store.go: Interface definitions
  - plan/store/memory.go: In-memory implementation for testing
  - store/postgres: PostgreSQL implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/egjang/TNT-Test-sub000/plan"
)

// Store implements plan.FixtureStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ plan.FixtureStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// monthCols returns prefix_01 .. prefix_12.
func monthCols(prefix string) []string {
	cols := make([]string, plan.Months)
	for i := range cols {
		cols[i] = fmt.Sprintf("%s_%02d", prefix, i+1)
	}
	return cols
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	var monthDefs strings.Builder
	for _, col := range append(monthCols("qty"), monthCols("amount")...) {
		fmt.Fprintf(&monthDefs, "\t\t%s TEXT NOT NULL DEFAULT '0',\n", col)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS sales_plan (
		id TEXT PRIMARY KEY,
		target_year INTEGER NOT NULL,
		company_type TEXT NOT NULL,
		plan_type TEXT NOT NULL,
		target_stage TEXT NOT NULL DEFAULT 'B',
		assignee_id TEXT NOT NULL,
		emp_name TEXT,
		customer_seq INTEGER NOT NULL,
		customer_name TEXT,
		item_subcategory TEXT NOT NULL,
		sales_mgmt_unit TEXT NOT NULL,
		version_no INTEGER NOT NULL DEFAULT 1,
` + monthDefs.String() + `		plan_remark TEXT NOT NULL DEFAULT '',
		created_by TEXT,
		updated_by TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_sales_plan_key
		ON sales_plan(target_year, company_type, plan_type, customer_seq,
		              item_subcategory, sales_mgmt_unit, version_no);

	CREATE INDEX IF NOT EXISTS idx_sales_plan_assignee
		ON sales_plan(target_year, assignee_id);

	CREATE TABLE IF NOT EXISTS customers (
		customer_seq INTEGER PRIMARY KEY,
		customer_name TEXT NOT NULL,
		company_type TEXT NOT NULL,
		assignee_id TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_customers_assignee ON customers(assignee_id);

	CREATE TABLE IF NOT EXISTS employees (
		emp_id TEXT PRIMARY KEY,
		assignee_id TEXT NOT NULL,
		emp_name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS invoices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_seq INTEGER NOT NULL,
		invoice_year INTEGER NOT NULL,
		sales_mgmt_unit TEXT,
		item_subcategory TEXT,
		std_qty TEXT NOT NULL DEFAULT '0',
		cur_amt TEXT NOT NULL DEFAULT '0'
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_year ON invoices(invoice_year, customer_seq);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ROW STORE (plan.RowStore interface)
// =============================================================================

var planColumns = strings.Join(append([]string{
	"id", "target_year", "company_type", "plan_type", "target_stage",
	"assignee_id", "emp_name", "customer_seq", "customer_name",
	"item_subcategory", "sales_mgmt_unit", "version_no",
}, append(monthCols("qty"),
	append(monthCols("amount"),
		"plan_remark", "created_by", "updated_by", "created_at", "updated_at")...)...), ", ")

func (s *Store) Rows(ctx context.Context, f plan.RowFilter) ([]plan.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where := []string{"target_year = ?"}
	args := []any{f.Year}
	if f.AssigneeID != "" {
		where = append(where, "assignee_id = ?")
		args = append(args, f.AssigneeID)
	}
	if f.Company != "" {
		where = append(where, "UPPER(company_type) = ?")
		args = append(args, string(f.Company))
	}
	if f.CustomerID != 0 {
		where = append(where, "customer_seq = ?")
		args = append(args, f.CustomerID)
	}
	if len(f.CustomerIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(f.CustomerIDs)), ", ")
		where = append(where, "customer_seq IN ("+placeholders+")")
		for _, id := range f.CustomerIDs {
			args = append(args, id)
		}
	}

	query := "SELECT " + planColumns + " FROM sales_plan WHERE " +
		strings.Join(where, " AND ") + " ORDER BY rowid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan rows: %w", err)
	}
	defer rows.Close()

	var out []plan.Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRow(rows *sql.Rows) (plan.Row, error) {
	var (
		r         plan.Row
		company   string
		kind      string
		stage     string
		empName   sql.NullString
		custName  sql.NullString
		createdBy sql.NullString
		updatedBy sql.NullString
		createdAt string
		updatedAt string
		monthVals [2 * plan.Months]string
	)

	dest := []any{
		&r.ID, &r.Year, &company, &kind, &stage,
		&r.AssigneeID, &empName, &r.CustomerID, &custName,
		&r.Subcategory, &r.SalesUnit, &r.VersionNo,
	}
	for i := range monthVals {
		dest = append(dest, &monthVals[i])
	}
	dest = append(dest, &r.Remark, &createdBy, &updatedBy, &createdAt, &updatedAt)

	if err := rows.Scan(dest...); err != nil {
		return r, fmt.Errorf("failed to scan plan row: %w", err)
	}

	r.Company = plan.Company(company)
	r.Kind = plan.RowKind(kind)
	r.Stage = plan.Stage(stage)
	r.AssigneeName = empName.String
	r.CustomerName = custName.String
	r.CreatedBy = createdBy.String
	r.UpdatedBy = updatedBy.String
	for i := 0; i < plan.Months; i++ {
		r.Qty[i] = parseDecimal(monthVals[i])
		r.Amount[i] = parseDecimal(monthVals[plan.Months+i])
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return r, nil
}

func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (s *Store) Upsert(ctx context.Context, row plan.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	now := time.Now().UTC().Format(time.RFC3339)

	cols := append([]string{
		"id", "target_year", "company_type", "plan_type", "target_stage",
		"assignee_id", "emp_name", "customer_seq", "customer_name",
		"item_subcategory", "sales_mgmt_unit", "version_no",
	}, append(monthCols("qty"), monthCols("amount")...)...)
	cols = append(cols, "created_by", "updated_by", "created_at", "updated_at")

	args := []any{
		row.ID, row.Year, string(row.Company), string(row.Kind), string(row.Stage),
		row.AssigneeID, row.AssigneeName, row.CustomerID, row.CustomerName,
		row.Subcategory, row.SalesUnit, row.VersionNo,
	}
	for i := 0; i < plan.Months; i++ {
		args = append(args, row.Qty[i].String())
	}
	for i := 0; i < plan.Months; i++ {
		args = append(args, row.Amount[i].String())
	}
	args = append(args, row.CreatedBy, row.UpdatedBy, now, now)

	// On conflict the created fields and the remark survive.
	updates := []string{
		"target_stage = excluded.target_stage",
		"assignee_id = excluded.assignee_id",
		"emp_name = excluded.emp_name",
		"customer_name = excluded.customer_name",
		"updated_by = excluded.updated_by",
		"updated_at = excluded.updated_at",
	}
	for _, col := range append(monthCols("qty"), monthCols("amount")...) {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
	}

	query := "INSERT INTO sales_plan (" + strings.Join(cols, ", ") + ") VALUES (" +
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")" +
		" ON CONFLICT(target_year, company_type, plan_type, customer_seq, item_subcategory, sales_mgmt_unit, version_no)" +
		" DO UPDATE SET " + strings.Join(updates, ", ")

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert plan row: %w", err)
	}
	return nil
}

func (s *Store) Confirm(ctx context.Context, f plan.ConfirmFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE sales_plan
		SET target_stage = ?, updated_by = ?, updated_at = ?
		WHERE target_year = ? AND assignee_id = ? AND customer_seq = ?
	`
	args := []any{
		string(plan.StageConfirmed), f.UpdatedBy, time.Now().UTC().Format(time.RFC3339),
		f.Year, f.AssigneeID, f.CustomerID,
	}
	if f.Company != "" {
		query += " AND UPPER(company_type) = ?"
		args = append(args, string(f.Company))
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to confirm plan rows: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *Store) Remark(ctx context.Context, year int, assigneeID string, customerID int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var remark string
	err := s.db.QueryRowContext(ctx, `
		SELECT plan_remark FROM sales_plan
		WHERE target_year = ? AND assignee_id = ? AND customer_seq = ?
		ORDER BY rowid LIMIT 1
	`, year, assigneeID, customerID).Scan(&remark)
	if errors.Is(err, sql.ErrNoRows) {
		return "", plan.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read plan remark: %w", err)
	}
	return remark, nil
}

func (s *Store) SetRemark(ctx context.Context, year int, assigneeID string, customerID int64, remark, updatedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM sales_plan
		WHERE target_year = ? AND assignee_id = ? AND customer_seq = ?
		ORDER BY rowid LIMIT 1
	`, year, assigneeID, customerID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return plan.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to locate plan remark row: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE sales_plan SET plan_remark = ?, updated_by = ?, updated_at = ? WHERE id = ?
	`, remark, updatedBy, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to write plan remark: %w", err)
	}
	return nil
}

// =============================================================================
// INVOICE READER (plan.InvoiceReader interface)
// =============================================================================

func (s *Store) InvoiceLines(ctx context.Context, assigneeID string, company plan.Company, year int) ([]plan.InvoiceLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT c.customer_seq, c.customer_name,
		       COALESCE(i.sales_mgmt_unit, ''), COALESCE(i.item_subcategory, ''),
		       i.std_qty, i.cur_amt
		FROM invoices i
		JOIN customers c ON c.customer_seq = i.customer_seq
		WHERE i.invoice_year = ? AND UPPER(c.company_type) = ?
	`
	args := []any{year, string(company)}
	if assigneeID != "" {
		query += " AND c.assignee_id = ?"
		args = append(args, assigneeID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var out []plan.InvoiceLine
	for rows.Next() {
		var ln plan.InvoiceLine
		var qty, amt string
		if err := rows.Scan(&ln.CustomerID, &ln.CustomerName, &ln.SalesUnit, &ln.Subcategory, &qty, &amt); err != nil {
			return nil, fmt.Errorf("failed to scan invoice line: %w", err)
		}
		ln.Qty = parseDecimal(qty)
		ln.Amount = parseDecimal(amt)
		out = append(out, ln)
	}
	return out, rows.Err()
}

// =============================================================================
// DIRECTORY (plan.Directory interface)
// =============================================================================

func (s *Store) ResolveAssignee(ctx context.Context, empID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var assigneeID string
	err := s.db.QueryRowContext(ctx,
		`SELECT assignee_id FROM employees WHERE emp_id = ?`, empID).Scan(&assigneeID)
	if errors.Is(err, sql.ErrNoRows) {
		return empID, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve assignee: %w", err)
	}
	if strings.TrimSpace(assigneeID) == "" {
		return empID, nil
	}
	return assigneeID, nil
}

func (s *Store) AssigneeName(ctx context.Context, assigneeID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT emp_name FROM employees WHERE assignee_id = ? LIMIT 1`, assigneeID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read assignee name: %w", err)
	}
	return name, nil
}

func (s *Store) CustomerName(ctx context.Context, customerID int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT customer_name FROM customers WHERE customer_seq = ?`, customerID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read customer name: %w", err)
	}
	return name, nil
}

func (s *Store) Companies(ctx context.Context, assigneeID string) ([]plan.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT UPPER(company_type) FROM customers
		WHERE assignee_id = ? ORDER BY 1
	`, assigneeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	var out []plan.Company
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		if company := plan.Company(c); plan.KnownCompany(company) {
			out = append(out, company)
		}
	}
	return out, rows.Err()
}

func (s *Store) Assignees(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT assignee_id FROM customers WHERE assignee_id <> '' ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignees: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// =============================================================================
// FIXTURES (plan.FixtureStore interface)
// =============================================================================

func (s *Store) SaveCustomer(ctx context.Context, c plan.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (customer_seq, customer_name, company_type, assignee_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(customer_seq) DO UPDATE SET
			customer_name = excluded.customer_name,
			company_type = excluded.company_type,
			assignee_id = excluded.assignee_id
	`, c.ID, c.Name, string(c.Company), c.AssigneeID)
	if err != nil {
		return fmt.Errorf("failed to save customer: %w", err)
	}
	return nil
}

func (s *Store) SaveEmployee(ctx context.Context, e plan.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (emp_id, assignee_id, emp_name)
		VALUES (?, ?, ?)
		ON CONFLICT(emp_id) DO UPDATE SET
			assignee_id = excluded.assignee_id,
			emp_name = excluded.emp_name
	`, e.EmpID, e.AssigneeID, e.Name)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

func (s *Store) AddInvoice(ctx context.Context, year int, line plan.InvoiceLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invoices (customer_seq, invoice_year, sales_mgmt_unit, item_subcategory, std_qty, cur_amt)
		VALUES (?, ?, ?, ?, ?, ?)
	`, line.CustomerID, year, line.SalesUnit, line.Subcategory, line.Qty.String(), line.Amount.String())
	if err != nil {
		return fmt.Errorf("failed to add invoice: %w", err)
	}
	return nil
}

// Reset clears all plan rows and reference data. Test helper.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"sales_plan", "customers", "employees", "invoices"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}
