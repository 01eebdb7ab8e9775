// Package store provides Backend implementations.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/egjang/TNT-Test-sub000/plan"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	rows      []*plan.Row // insertion order, remarks ride on the oldest row
	byKey     map[rowKey]*plan.Row
	customers map[int64]plan.Customer
	employees map[string]plan.Employee
	invoices  []invoiceRecord
}

type rowKey struct {
	key  plan.RowKey
	kind plan.RowKind
}

type invoiceRecord struct {
	year int
	line plan.InvoiceLine
}

func NewMemory() *Memory {
	return &Memory{
		byKey:     make(map[rowKey]*plan.Row),
		customers: make(map[int64]plan.Customer),
		employees: make(map[string]plan.Employee),
	}
}

var _ plan.FixtureStore = (*Memory)(nil)

// =============================================================================
// ROW STORE
// =============================================================================

func matches(r *plan.Row, f plan.RowFilter) bool {
	if r.Year != f.Year {
		return false
	}
	if f.AssigneeID != "" && r.AssigneeID != f.AssigneeID {
		return false
	}
	if f.Company != "" && r.Company != f.Company {
		return false
	}
	if f.CustomerID != 0 && r.CustomerID != f.CustomerID {
		return false
	}
	if len(f.CustomerIDs) > 0 {
		found := false
		for _, id := range f.CustomerIDs {
			if r.CustomerID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (m *Memory) Rows(_ context.Context, f plan.RowFilter) ([]plan.Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []plan.Row
	for _, r := range m.rows {
		if matches(r, f) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *Memory) Upsert(_ context.Context, row plan.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	k := rowKey{key: row.Key(), kind: row.Kind}
	if existing, ok := m.byKey[k]; ok {
		// Update in place; created fields and the remark survive.
		existing.Stage = row.Stage
		existing.AssigneeID = row.AssigneeID
		existing.AssigneeName = row.AssigneeName
		existing.CustomerName = row.CustomerName
		existing.Qty = row.Qty
		existing.Amount = row.Amount
		existing.UpdatedBy = row.UpdatedBy
		existing.UpdatedAt = now
		return nil
	}

	row.ID = uuid.NewString()
	row.CreatedAt = now
	row.UpdatedAt = now
	stored := row
	m.rows = append(m.rows, &stored)
	m.byKey[k] = &stored
	return nil
}

func (m *Memory) Confirm(_ context.Context, f plan.ConfirmFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	count := 0
	for _, r := range m.rows {
		if r.Year != f.Year || r.AssigneeID != f.AssigneeID || r.CustomerID != f.CustomerID {
			continue
		}
		if f.Company != "" && r.Company != f.Company {
			continue
		}
		r.Stage = plan.StageConfirmed
		r.UpdatedBy = f.UpdatedBy
		r.UpdatedAt = now
		count++
	}
	return count, nil
}

func (m *Memory) remarkRow(year int, assigneeID string, customerID int64) *plan.Row {
	for _, r := range m.rows {
		if r.Year == year && r.AssigneeID == assigneeID && r.CustomerID == customerID {
			return r
		}
	}
	return nil
}

func (m *Memory) Remark(_ context.Context, year int, assigneeID string, customerID int64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r := m.remarkRow(year, assigneeID, customerID)
	if r == nil {
		return "", plan.ErrNotFound
	}
	return r.Remark, nil
}

func (m *Memory) SetRemark(_ context.Context, year int, assigneeID string, customerID int64, remark, updatedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.remarkRow(year, assigneeID, customerID)
	if r == nil {
		return plan.ErrNotFound
	}
	r.Remark = remark
	r.UpdatedBy = updatedBy
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// =============================================================================
// INVOICE READER
// =============================================================================

func (m *Memory) InvoiceLines(_ context.Context, assigneeID string, company plan.Company, year int) ([]plan.InvoiceLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []plan.InvoiceLine
	for _, rec := range m.invoices {
		if rec.year != year {
			continue
		}
		cust, ok := m.customers[rec.line.CustomerID]
		if !ok || cust.Company != company {
			continue
		}
		if assigneeID != "" && cust.AssigneeID != assigneeID {
			continue
		}
		ln := rec.line
		if ln.CustomerName == "" {
			ln.CustomerName = cust.Name
		}
		out = append(out, ln)
	}
	return out, nil
}

// =============================================================================
// DIRECTORY
// =============================================================================

func (m *Memory) ResolveAssignee(_ context.Context, empID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if e, ok := m.employees[empID]; ok && strings.TrimSpace(e.AssigneeID) != "" {
		return e.AssigneeID, nil
	}
	return empID, nil
}

func (m *Memory) AssigneeName(_ context.Context, assigneeID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.employees {
		if e.AssigneeID == assigneeID {
			return e.Name, nil
		}
	}
	return "", nil
}

func (m *Memory) CustomerName(_ context.Context, customerID int64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.customers[customerID].Name, nil
}

func (m *Memory) Companies(_ context.Context, assigneeID string) ([]plan.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := map[plan.Company]bool{}
	var out []plan.Company
	for _, c := range m.customers {
		if c.AssigneeID == assigneeID && plan.KnownCompany(c.Company) && !seen[c.Company] {
			seen[c.Company] = true
			out = append(out, c.Company)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *Memory) Assignees(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := map[string]bool{}
	var out []string
	for _, c := range m.customers {
		if c.AssigneeID != "" && !seen[c.AssigneeID] {
			seen[c.AssigneeID] = true
			out = append(out, c.AssigneeID)
		}
	}
	sort.Strings(out)
	return out, nil
}

// =============================================================================
// FIXTURES
// =============================================================================

func (m *Memory) SaveCustomer(_ context.Context, c plan.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[c.ID] = c
	return nil
}

func (m *Memory) SaveEmployee(_ context.Context, e plan.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[e.EmpID] = e
	return nil
}

func (m *Memory) AddInvoice(_ context.Context, year int, line plan.InvoiceLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoices = append(m.invoices, invoiceRecord{year: year, line: line})
	return nil
}
