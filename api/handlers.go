/*
handlers.go - HTTP API handlers for the sales plan engine

PURPOSE:
  Exposes the plan engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS (all under /api/v1/plan):
  Seeding and editing:
    POST /seed                    Seed baseline rows from invoice history
    POST /rows                    Upsert one proposal row

  Lifecycle:
    GET  /stages                  Per-customer resolved stages
    GET  /status                  Per-company planning progress
    POST /confirm                 Confirm one customer

  Rollups:
    GET  /totals                  Per-company totals, proposals winning
    GET  /totals/confirmed        Same, fully-confirmed customers only
    GET  /totals/all              Per-company totals across every assignee
    GET  /breakdown               One company's total by customer or unit

  Customer views:
    GET  /customers/{customerSeq}/monthly  Summed monthly quantities
    GET  /customers/{customerSeq}/rows     Plan lines after precedence
    GET  /customer-counts                  Confirmed vs planning, per company
    GET  /customer-counts/overall          Cross-company distinct counts

  Remarks:
    GET  /remark                  Read a customer's plan remark
    PUT  /remark                  Write a customer's plan remark

CALLER IDENTITY:
  Read endpoints take assigneeId or empId as query parameters; write
  endpoints take them in the body. An empId is resolved through the
  employee directory and falls back to itself, so callers that already
  hold assignee ids can use either field.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Customer has no plan rows (remark endpoints)
  - 500: Store and internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - plan/engine.go: The domain logic these delegate to
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/egjang/TNT-Test-sub000/plan"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine  *plan.Engine
	Backend plan.Backend
}

// NewHandler wires a backend into the engine and the handlers.
func NewHandler(backend plan.Backend) *Handler {
	return &Handler{
		Engine:  plan.NewEngine(backend),
		Backend: backend,
	}
}

// callerID resolves the acting assignee from explicit values: assigneeID
// wins, otherwise empID goes through the directory.
func (h *Handler) callerID(r *http.Request, assigneeID, empID string) (string, error) {
	if s := strings.TrimSpace(assigneeID); s != "" {
		return s, nil
	}
	if s := strings.TrimSpace(empID); s != "" {
		return h.Backend.ResolveAssignee(r.Context(), s)
	}
	return "", nil
}

// queryCaller resolves the acting assignee from query parameters.
func (h *Handler) queryCaller(r *http.Request) (string, error) {
	return h.callerID(r, r.URL.Query().Get("assigneeId"), r.URL.Query().Get("empId"))
}

func queryYear(r *http.Request) int {
	y, _ := strconv.Atoi(r.URL.Query().Get("targetYear"))
	return y
}

// =============================================================================
// SEEDING AND EDITING
// =============================================================================

func (h *Handler) SeedBaseline(w http.ResponseWriter, r *http.Request) {
	var req SeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	assigneeID, err := h.callerID(r, req.AssigneeID, req.EmpID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve assignee", err)
		return
	}

	uplift := plan.DefaultUpliftPercent
	if req.UpliftPercent != nil {
		uplift = *req.UpliftPercent
	}

	companies := make([]plan.Company, 0, len(req.CompanyTypes))
	for _, c := range req.CompanyTypes {
		companies = append(companies, plan.Company(c))
	}

	result, err := h.Engine.SeedBaseline(r.Context(), plan.SeedInput{
		AssigneeID:    assigneeID,
		Year:          req.TargetYear,
		UpliftPercent: uplift,
		Companies:     companies,
		VersionNo:     req.VersionNo,
	})
	if err != nil {
		writePlanError(w, "failed to seed baseline", err)
		return
	}

	dto := SeedResultDTO{
		TargetYear:   result.Year,
		CompanyTypes: make([]string, 0, len(result.Companies)),
		RowsUpserted: result.RowsUpserted,
		RowsFailed:   result.RowsFailed,
	}
	for _, c := range result.Companies {
		dto.CompanyTypes = append(dto.CompanyTypes, string(c))
	}
	writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) UpsertRow(w http.ResponseWriter, r *http.Request) {
	var req UpsertRowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	assigneeID, err := h.callerID(r, req.AssigneeID, req.EmpID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve assignee", err)
		return
	}

	in := plan.ProposalInput{
		AssigneeID:  assigneeID,
		Year:        req.TargetYear,
		Company:     plan.Company(req.CompanyType),
		CustomerID:  req.CustomerSeq,
		Subcategory: req.ItemSubcategory,
		SalesUnit:   req.SalesMgmtUnit,
		VersionNo:   req.VersionNo,
		Qty:         plan.SeriesFromFloats(req.Qty),
	}
	if req.Amount != nil {
		amount := plan.SeriesFromFloats(*req.Amount)
		in.Amount = &amount
	}

	if err := h.Engine.UpsertProposal(r.Context(), in); err != nil {
		writePlanError(w, "failed to upsert proposal", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func (h *Handler) GetStages(w http.ResponseWriter, r *http.Request) {
	assigneeID, err := h.queryCaller(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve assignee", err)
		return
	}

	q := plan.StageQuery{
		AssigneeID: assigneeID,
		Year:       queryYear(r),
		Company:    plan.Company(r.URL.Query().Get("companyType")),
	}
	if raw := r.URL.Query().Get("customerSeqs"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid customerSeqs", err)
				return
			}
			q.CustomerIDs = append(q.CustomerIDs, id)
		}
	}

	stages, err := h.Engine.CustomerStages(r.Context(), q)
	if err != nil {
		writePlanError(w, "failed to resolve stages", err)
		return
	}

	out := make([]CustomerStageDTO, 0, len(stages))
	for _, s := range stages {
		out = append(out, CustomerStageDTO{CustomerSeq: s.CustomerID, TargetStage: string(s.Stage)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	assigneeID, err := h.queryCaller(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve assignee", err)
		return
	}

	statuses, err := h.Engine.StatusSummary(r.Context(), assigneeID, queryYear(r))
	if err != nil {
		writePlanError(w, "failed to summarize status", err)
		return
	}

	out := make([]CompanyStatusDTO, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, CompanyStatusDTO{
			CompanyType:   string(s.Company),
			CustomerCount: s.Customers,
			HasProposed:   s.HasProposed,
			HasConfirmed:  s.HasConfirmed,
			HasInProgress: s.HasInProgress,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) ConfirmCustomer(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	assigneeID, err := h.callerID(r, req.AssigneeID, req.EmpID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve assignee", err)
		return
	}

	n, err := h.Engine.ConfirmCustomer(r.Context(), plan.ConfirmInput{
		AssigneeID: assigneeID,
		Year:       req.TargetYear,
		CustomerID: req.CustomerSeq,
		Company:    plan.Company(req.CompanyType),
	})
	if err != nil {
		writePlanError(w, "failed to confirm customer", err)
		return
	}
	writeJSON(w, http.StatusOK, ConfirmResultDTO{RowsConfirmed: n})
}

// =============================================================================
// ROLLUPS
// =============================================================================

func (h *Handler) GetTotals(w http.ResponseWriter, r *http.Request) {
	assigneeID, err := h.queryCaller(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve assignee", err)
		return
	}

	totals, err := h.Engine.CompanyTotals(r.Context(), assigneeID, queryYear(r))
	if err != nil {
		writePlanError(w, "failed to compute totals", err)
		return
	}
	writeJSON(w, http.StatusOK, toCompanyTotalDTOs(totals))
}

func (h *Handler) GetConfirmedTotals(w http.ResponseWriter, r *http.Request) {
	assigneeID, err := h.queryCaller(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve assignee", err)
		return
	}

	totals, err := h.Engine.ConfirmedTotals(r.Context(), assigneeID, queryYear(r))
	if err != nil {
		writePlanError(w, "failed to compute confirmed totals", err)
		return
	}
	writeJSON(w, http.StatusOK, toCompanyTotalDTOs(totals))
}

func (h *Handler) GetPlanTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.Engine.PlanTotals(r.Context(), queryYear(r))
	if err != nil {
		writePlanError(w, "failed to compute plan totals", err)
		return
	}
	writeJSON(w, http.StatusOK, toCompanyTotalDTOs(totals))
}

func (h *Handler) GetBreakdown(w http.ResponseWriter, r *http.Request) {
	assigneeID, err := h.queryCaller(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve assignee", err)
		return
	}

	by := plan.GroupBy(r.URL.Query().Get("groupBy"))
	if by == "" {
		by = plan.GroupByCustomer
	}

	lines, err := h.Engine.Breakdown(r.Context(), assigneeID, queryYear(r),
		plan.Company(r.URL.Query().Get("companyType")), by)
	if err != nil {
		writePlanError(w, "failed to compute breakdown", err)
		return
	}

	out := make([]BreakdownRowDTO, 0, len(lines))
	for _, ln := range lines {
		out = append(out, BreakdownRowDTO{Key: ln.Key, Label: ln.Label, Amount: amountToFloat(ln.Amount)})
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// CUSTOMER VIEWS
// =============================================================================

func customerSeqParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "customerSeq"), 10, 64)
}

func (h *Handler) GetCustomerMonthly(w http.ResponseWriter, r *http.Request) {
	assigneeID, err := h.queryCaller(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve assignee", err)
		return
	}
	customerID, err := customerSeqParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customerSeq", err)
		return
	}

	view, err := h.Engine.CustomerMonthly(r.Context(), assigneeID, queryYear(r), customerID,
		plan.Company(r.URL.Query().Get("companyType")))
	if err != nil {
		writePlanError(w, "failed to read customer monthly", err)
		return
	}

	writeJSON(w, http.StatusOK, CustomerMonthlyDTO{
		CustomerSeq: customerID,
		Qty:         seriesToFloats(view.Qty),
		TargetStage: string(view.Stage),
		Planned:     view.Planned,
	})
}

func (h *Handler) GetCustomerMonthlyRows(w http.ResponseWriter, r *http.Request) {
	assigneeID, err := h.queryCaller(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve assignee", err)
		return
	}
	customerID, err := customerSeqParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customerSeq", err)
		return
	}

	rows, err := h.Engine.CustomerMonthlyRows(r.Context(), assigneeID, queryYear(r), customerID,
		plan.Company(r.URL.Query().Get("companyType")))
	if err != nil {
		writePlanError(w, "failed to read customer rows", err)
		return
	}

	out := make([]CustomerPlanRowDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, CustomerPlanRowDTO{
			ItemSubcategory: row.Subcategory,
			SalesMgmtUnit:   row.SalesUnit,
			PlanType:        string(row.Kind),
			TargetStage:     string(row.Stage),
			Qty:             seriesToFloats(row.Qty),
			Amount:          seriesToFloats(row.Amount),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetCustomerCounts(w http.ResponseWriter, r *http.Request) {
	assigneeID, err := h.queryCaller(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve assignee", err)
		return
	}

	var companies []plan.Company
	if raw := r.URL.Query().Get("companyTypes"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			companies = append(companies, plan.Company(part))
		}
	}

	counts, err := h.Engine.CustomerCountsByCompany(r.Context(), assigneeID, queryYear(r), companies)
	if err != nil {
		writePlanError(w, "failed to count customers", err)
		return
	}

	out := make([]CustomerCountsDTO, 0, len(counts))
	for _, c := range counts {
		out = append(out, CustomerCountsDTO{
			CompanyType: string(c.Company),
			Total:       c.Total,
			Confirmed:   c.Confirmed,
			Planning:    c.Planning,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetOverallCustomerCounts(w http.ResponseWriter, r *http.Request) {
	assigneeID, err := h.queryCaller(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve assignee", err)
		return
	}

	counts, err := h.Engine.OverallCustomerCounts(r.Context(), assigneeID, queryYear(r))
	if err != nil {
		writePlanError(w, "failed to count customers", err)
		return
	}
	writeJSON(w, http.StatusOK, OverallCountsDTO{
		Total:      counts.Total,
		Confirmed:  counts.Confirmed,
		InProgress: counts.InProgress,
	})
}

// =============================================================================
// REMARKS
// =============================================================================

func (h *Handler) GetRemark(w http.ResponseWriter, r *http.Request) {
	assigneeID, err := h.queryCaller(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve assignee", err)
		return
	}
	customerID, _ := strconv.ParseInt(r.URL.Query().Get("customerSeq"), 10, 64)

	remark, err := h.Engine.PlanRemark(r.Context(), assigneeID, queryYear(r), customerID)
	if err != nil {
		writePlanError(w, "failed to read remark", err)
		return
	}
	writeJSON(w, http.StatusOK, RemarkDTO{CustomerSeq: customerID, Remark: remark})
}

func (h *Handler) SetRemark(w http.ResponseWriter, r *http.Request) {
	var req RemarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	assigneeID, err := h.callerID(r, req.AssigneeID, req.EmpID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve assignee", err)
		return
	}

	if err := h.Engine.SetPlanRemark(r.Context(), assigneeID, req.TargetYear, req.CustomerSeq, req.Remark); err != nil {
		writePlanError(w, "failed to write remark", err)
		return
	}
	writeJSON(w, http.StatusOK, RemarkDTO{CustomerSeq: req.CustomerSeq, Remark: req.Remark})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writePlanError maps engine errors to HTTP status codes.
func writePlanError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, plan.ErrNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, plan.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
