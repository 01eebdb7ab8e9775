/*
engine.go - The plan engine facade

PURPOSE:
  Engine ties the backend interfaces to the plan operations. Each operation
  lives in its own file next to the algorithm it implements:

    seeder.go   - SeedBaseline
    proposal.go - UpsertProposal
    stage.go    - CustomerStages, StatusSummary, customer counts
    rollup.go   - totals, breakdowns, per-customer monthly views

  This file holds construction, shared validation, confirmation and the
  plan remark operations.

SEE ALSO:
  - store.go: The Backend interface NewEngine takes
*/
package plan

import (
	"context"
	"strings"
)

// Engine executes plan operations against a Backend.
type Engine struct {
	rows      RowStore
	invoices  InvoiceReader
	directory Directory
}

// NewEngine wraps a backend.
func NewEngine(b Backend) *Engine {
	return &Engine{rows: b, invoices: b, directory: b}
}

// Directory exposes the backend's directory for transport-layer lookups.
func (e *Engine) Directory() Directory {
	return e.directory
}

func requireScope(assigneeID string, year int) error {
	if strings.TrimSpace(assigneeID) == "" {
		return invalidArg("assigneeId", "must not be empty")
	}
	if year <= 0 {
		return invalidArg("targetYear", "must be a positive year")
	}
	return nil
}

// =============================================================================
// CONFIRMATION
// =============================================================================

// ConfirmInput scopes a customer confirmation. Company narrows the scope
// when set; otherwise every company's rows for the customer are confirmed.
type ConfirmInput struct {
	AssigneeID string
	Year       int
	CustomerID int64
	Company    Company
}

// ConfirmCustomer moves every row of the customer in scope to
// StageConfirmed, Baseline and Proposal rows alike, and returns how many
// rows were touched. Confirming twice is a harmless no-op.
func (e *Engine) ConfirmCustomer(ctx context.Context, in ConfirmInput) (int, error) {
	if err := requireScope(in.AssigneeID, in.Year); err != nil {
		return 0, err
	}
	if in.CustomerID <= 0 {
		return 0, invalidArg("customerSeq", "must be a positive customer id")
	}
	return e.rows.Confirm(ctx, ConfirmFilter{
		Year:       in.Year,
		AssigneeID: in.AssigneeID,
		CustomerID: in.CustomerID,
		Company:    NormalizeCompany(string(in.Company)),
		UpdatedBy:  in.AssigneeID,
	})
}

// =============================================================================
// PLAN REMARK
// =============================================================================

// PlanRemark reads the free-text remark for a customer. The remark rides on
// the customer's oldest row; ErrNotFound when the customer has no rows.
func (e *Engine) PlanRemark(ctx context.Context, assigneeID string, year int, customerID int64) (string, error) {
	if err := requireScope(assigneeID, year); err != nil {
		return "", err
	}
	if customerID <= 0 {
		return "", invalidArg("customerSeq", "must be a positive customer id")
	}
	return e.rows.Remark(ctx, year, assigneeID, customerID)
}

// SetPlanRemark writes the remark on the customer's oldest row.
func (e *Engine) SetPlanRemark(ctx context.Context, assigneeID string, year int, customerID int64, remark string) error {
	if err := requireScope(assigneeID, year); err != nil {
		return err
	}
	if customerID <= 0 {
		return invalidArg("customerSeq", "must be a positive customer id")
	}
	return e.rows.SetRemark(ctx, year, assigneeID, customerID, remark, assigneeID)
}
