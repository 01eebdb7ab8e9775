/*
Package postgres provides a PostgreSQL-backed implementation of the plan
storage interfaces, using pgx connection pooling.

PURPOSE:
  The production backend. Same tables and semantics as store/sqlite, with
  Postgres dialect: $n placeholders, NUMERIC(15,2) month columns, a serial
  ordinal for oldest-row selection, and database-level concurrency instead
  of an in-process mutex.

  Month values cross the wire as text in both directions so the decimal
  package, not float64, owns every conversion.

USAGE:
  store, err := postgres.New(ctx, os.Getenv("DATABASE_URL"))
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
  engine := plan.NewEngine(store)

SEE ALSO:
  - plan/store.go: Interface definitions
  - store/sqlite: SQLite implementation with the query walkthrough
*/
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/egjang/TNT-Test-sub000/plan"
)

// Store implements plan.FixtureStore on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ plan.FixtureStore = (*Store)(nil)

// New connects to connString and migrates the schema.
func New(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	store := &Store{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

func monthCols(prefix string) []string {
	cols := make([]string, plan.Months)
	for i := range cols {
		cols[i] = fmt.Sprintf("%s_%02d", prefix, i+1)
	}
	return cols
}

func (s *Store) migrate(ctx context.Context) error {
	var monthDefs strings.Builder
	for _, col := range append(monthCols("qty"), monthCols("amount")...) {
		fmt.Fprintf(&monthDefs, "\t\t%s NUMERIC(15,2) NOT NULL DEFAULT 0,\n", col)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS sales_plan (
		id TEXT PRIMARY KEY,
		ordinal BIGSERIAL,
		target_year INTEGER NOT NULL,
		company_type TEXT NOT NULL,
		plan_type TEXT NOT NULL,
		target_stage TEXT NOT NULL DEFAULT 'B',
		assignee_id TEXT NOT NULL,
		emp_name TEXT,
		customer_seq BIGINT NOT NULL,
		customer_name TEXT,
		item_subcategory TEXT NOT NULL,
		sales_mgmt_unit TEXT NOT NULL,
		version_no INTEGER NOT NULL DEFAULT 1,
` + monthDefs.String() + `		plan_remark TEXT NOT NULL DEFAULT '',
		created_by TEXT,
		updated_by TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_sales_plan_key
		ON sales_plan(target_year, company_type, plan_type, customer_seq,
		              item_subcategory, sales_mgmt_unit, version_no);

	CREATE INDEX IF NOT EXISTS idx_sales_plan_assignee
		ON sales_plan(target_year, assignee_id);

	CREATE TABLE IF NOT EXISTS customers (
		customer_seq BIGINT PRIMARY KEY,
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
		id BIGSERIAL PRIMARY KEY,
		customer_seq BIGINT NOT NULL,
		invoice_year INTEGER NOT NULL,
		sales_mgmt_unit TEXT,
		item_subcategory TEXT,
		std_qty NUMERIC(15,2) NOT NULL DEFAULT 0,
		cur_amt NUMERIC(18,2) NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_year ON invoices(invoice_year, customer_seq);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// =============================================================================
// ROW STORE
// =============================================================================

func textMonthCols(prefix string) []string {
	cols := monthCols(prefix)
	for i, c := range cols {
		cols[i] = c + "::text"
	}
	return cols
}

var planColumns = strings.Join(append([]string{
	"id", "target_year", "company_type", "plan_type", "target_stage",
	"assignee_id", "COALESCE(emp_name, '')", "customer_seq", "COALESCE(customer_name, '')",
	"item_subcategory", "sales_mgmt_unit", "version_no",
}, append(textMonthCols("qty"),
	append(textMonthCols("amount"),
		"plan_remark", "COALESCE(created_by, '')", "COALESCE(updated_by, '')",
		"created_at", "updated_at")...)...), ", ")

func (s *Store) Rows(ctx context.Context, f plan.RowFilter) ([]plan.Row, error) {
	where := []string{"target_year = $1"}
	args := []any{f.Year}
	next := func() string { return fmt.Sprintf("$%d", len(args)+1) }

	if f.AssigneeID != "" {
		where = append(where, "assignee_id = "+next())
		args = append(args, f.AssigneeID)
	}
	if f.Company != "" {
		where = append(where, "UPPER(company_type) = "+next())
		args = append(args, string(f.Company))
	}
	if f.CustomerID != 0 {
		where = append(where, "customer_seq = "+next())
		args = append(args, f.CustomerID)
	}
	if len(f.CustomerIDs) > 0 {
		where = append(where, "customer_seq = ANY("+next()+")")
		args = append(args, f.CustomerIDs)
	}

	query := "SELECT " + planColumns + " FROM sales_plan WHERE " +
		strings.Join(where, " AND ") + " ORDER BY ordinal"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan rows: %w", err)
	}
	defer rows.Close()

	var out []plan.Row
	for rows.Next() {
		var (
			r         plan.Row
			company   string
			kind      string
			stage     string
			monthVals [2 * plan.Months]string
		)
		dest := []any{
			&r.ID, &r.Year, &company, &kind, &stage,
			&r.AssigneeID, &r.AssigneeName, &r.CustomerID, &r.CustomerName,
			&r.Subcategory, &r.SalesUnit, &r.VersionNo,
		}
		for i := range monthVals {
			dest = append(dest, &monthVals[i])
		}
		dest = append(dest, &r.Remark, &r.CreatedBy, &r.UpdatedBy, &r.CreatedAt, &r.UpdatedAt)

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan plan row: %w", err)
		}
		r.Company = plan.Company(company)
		r.Kind = plan.RowKind(kind)
		r.Stage = plan.Stage(stage)
		for i := 0; i < plan.Months; i++ {
			r.Qty[i] = parseDecimal(monthVals[i])
			r.Amount[i] = parseDecimal(monthVals[plan.Months+i])
		}
		out = append(out, r)
	}
	return out, rows.Err()
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
	if row.ID == "" {
		row.ID = uuid.NewString()
	}

	cols := append([]string{
		"id", "target_year", "company_type", "plan_type", "target_stage",
		"assignee_id", "emp_name", "customer_seq", "customer_name",
		"item_subcategory", "sales_mgmt_unit", "version_no",
	}, append(monthCols("qty"), monthCols("amount")...)...)
	cols = append(cols, "created_by", "updated_by")

	args := []any{
		row.ID, row.Year, string(row.Company), string(row.Kind), string(row.Stage),
		row.AssigneeID, row.AssigneeName, row.CustomerID, row.CustomerName,
		row.Subcategory, row.SalesUnit, row.VersionNo,
	}
	for i := 0; i < plan.Months; i++ {
		args = append(args, row.Qty[i].StringFixed(2))
	}
	for i := 0; i < plan.Months; i++ {
		args = append(args, row.Amount[i].StringFixed(2))
	}
	args = append(args, row.CreatedBy, row.UpdatedBy)

	placeholders := make([]string, len(cols))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	updates := []string{
		"target_stage = excluded.target_stage",
		"assignee_id = excluded.assignee_id",
		"emp_name = excluded.emp_name",
		"customer_name = excluded.customer_name",
		"updated_by = excluded.updated_by",
		"updated_at = now()",
	}
	for _, col := range append(monthCols("qty"), monthCols("amount")...) {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
	}

	query := "INSERT INTO sales_plan (" + strings.Join(cols, ", ") + ") VALUES (" +
		strings.Join(placeholders, ", ") + ")" +
		" ON CONFLICT (target_year, company_type, plan_type, customer_seq, item_subcategory, sales_mgmt_unit, version_no)" +
		" DO UPDATE SET " + strings.Join(updates, ", ")

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert plan row: %w", err)
	}
	return nil
}

func (s *Store) Confirm(ctx context.Context, f plan.ConfirmFilter) (int, error) {
	query := `
		UPDATE sales_plan
		SET target_stage = $1, updated_by = $2, updated_at = now()
		WHERE target_year = $3 AND assignee_id = $4 AND customer_seq = $5
	`
	args := []any{string(plan.StageConfirmed), f.UpdatedBy, f.Year, f.AssigneeID, f.CustomerID}
	if f.Company != "" {
		query += " AND UPPER(company_type) = $6"
		args = append(args, string(f.Company))
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to confirm plan rows: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) Remark(ctx context.Context, year int, assigneeID string, customerID int64) (string, error) {
	var remark string
	err := s.pool.QueryRow(ctx, `
		SELECT plan_remark FROM sales_plan
		WHERE target_year = $1 AND assignee_id = $2 AND customer_seq = $3
		ORDER BY ordinal LIMIT 1
	`, year, assigneeID, customerID).Scan(&remark)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", plan.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read plan remark: %w", err)
	}
	return remark, nil
}

func (s *Store) SetRemark(ctx context.Context, year int, assigneeID string, customerID int64, remark, updatedBy string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE sales_plan SET plan_remark = $1, updated_by = $2, updated_at = now()
		WHERE id = (
			SELECT id FROM sales_plan
			WHERE target_year = $3 AND assignee_id = $4 AND customer_seq = $5
			ORDER BY ordinal LIMIT 1
		)
	`, remark, updatedBy, year, assigneeID, customerID)
	if err != nil {
		return fmt.Errorf("failed to write plan remark: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return plan.ErrNotFound
	}
	return nil
}

// =============================================================================
// INVOICE READER
// =============================================================================

func (s *Store) InvoiceLines(ctx context.Context, assigneeID string, company plan.Company, year int) ([]plan.InvoiceLine, error) {
	query := `
		SELECT c.customer_seq, c.customer_name,
		       COALESCE(i.sales_mgmt_unit, ''), COALESCE(i.item_subcategory, ''),
		       i.std_qty::text, i.cur_amt::text
		FROM invoices i
		JOIN customers c ON c.customer_seq = i.customer_seq
		WHERE i.invoice_year = $1 AND UPPER(c.company_type) = $2
	`
	args := []any{year, string(company)}
	if assigneeID != "" {
		query += " AND c.assignee_id = $3"
		args = append(args, assigneeID)
	}

	rows, err := s.pool.Query(ctx, query, args...)
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
// DIRECTORY
// =============================================================================

func (s *Store) ResolveAssignee(ctx context.Context, empID string) (string, error) {
	var assigneeID string
	err := s.pool.QueryRow(ctx,
		`SELECT assignee_id FROM employees WHERE emp_id = $1`, empID).Scan(&assigneeID)
	if errors.Is(err, pgx.ErrNoRows) {
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
	var name string
	err := s.pool.QueryRow(ctx,
		`SELECT emp_name FROM employees WHERE assignee_id = $1 LIMIT 1`, assigneeID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read assignee name: %w", err)
	}
	return name, nil
}

func (s *Store) CustomerName(ctx context.Context, customerID int64) (string, error) {
	var name string
	err := s.pool.QueryRow(ctx,
		`SELECT customer_name FROM customers WHERE customer_seq = $1`, customerID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read customer name: %w", err)
	}
	return name, nil
}

func (s *Store) Companies(ctx context.Context, assigneeID string) ([]plan.Company, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT UPPER(company_type) FROM customers
		WHERE assignee_id = $1 ORDER BY 1
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
	rows, err := s.pool.Query(ctx,
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
// FIXTURES
// =============================================================================

func (s *Store) SaveCustomer(ctx context.Context, c plan.Customer) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO customers (customer_seq, customer_name, company_type, assignee_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (customer_seq) DO UPDATE SET
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
	_, err := s.pool.Exec(ctx, `
		INSERT INTO employees (emp_id, assignee_id, emp_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (emp_id) DO UPDATE SET
			assignee_id = excluded.assignee_id,
			emp_name = excluded.emp_name
	`, e.EmpID, e.AssigneeID, e.Name)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

func (s *Store) AddInvoice(ctx context.Context, year int, line plan.InvoiceLine) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO invoices (customer_seq, invoice_year, sales_mgmt_unit, item_subcategory, std_qty, cur_amt)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, line.CustomerID, year, line.SalesUnit, line.Subcategory, line.Qty.StringFixed(2), line.Amount.StringFixed(2))
	if err != nil {
		return fmt.Errorf("failed to add invoice: %w", err)
	}
	return nil
}
