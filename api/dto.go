/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the plan domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONTHLY SERIES:
  Quantities and amounts cross the wire as 12-element arrays, January
  first. Decimals are serialized as JSON numbers; the engine re-rounds
  everything it stores, so client-side float noise never persists.

VALIDATION:
  Validation is done in handlers and the engine, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - plan/types.go: The domain model these mirror
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/egjang/TNT-Test-sub000/plan"
)

// =============================================================================
// REQUESTS
// =============================================================================

// SeedRequest triggers baseline seeding for one salesperson.
type SeedRequest struct {
	AssigneeID    string   `json:"assigneeId"`
	EmpID         string   `json:"empId,omitempty"`
	TargetYear    int      `json:"targetYear"`
	UpliftPercent *float64 `json:"upliftPercent,omitempty"`
	CompanyTypes  []string `json:"companyTypes,omitempty"`
	VersionNo     int      `json:"versionNo,omitempty"`
}

// UpsertRowRequest writes one proposal row.
type UpsertRowRequest struct {
	AssigneeID      string     `json:"assigneeId"`
	EmpID           string     `json:"empId,omitempty"`
	TargetYear      int        `json:"targetYear"`
	CompanyType     string     `json:"companyType"`
	CustomerSeq     int64      `json:"customerSeq"`
	ItemSubcategory string     `json:"itemSubcategory"`
	SalesMgmtUnit   string     `json:"salesMgmtUnit"`
	VersionNo       int        `json:"versionNo,omitempty"`
	Qty             []float64  `json:"qty"`
	Amount          *[]float64 `json:"amount,omitempty"`
}

// ConfirmRequest confirms one customer's plan.
type ConfirmRequest struct {
	AssigneeID  string `json:"assigneeId"`
	EmpID       string `json:"empId,omitempty"`
	TargetYear  int    `json:"targetYear"`
	CustomerSeq int64  `json:"customerSeq"`
	CompanyType string `json:"companyType,omitempty"`
}

// RemarkRequest writes a customer's plan remark.
type RemarkRequest struct {
	AssigneeID  string `json:"assigneeId"`
	EmpID       string `json:"empId,omitempty"`
	TargetYear  int    `json:"targetYear"`
	CustomerSeq int64  `json:"customerSeq"`
	Remark      string `json:"remark"`
}

// =============================================================================
// RESPONSES
// =============================================================================

// SeedResultDTO reports what a seed run did.
type SeedResultDTO struct {
	TargetYear   int      `json:"targetYear"`
	CompanyTypes []string `json:"companyTypes"`
	RowsUpserted int      `json:"rowsUpserted"`
	RowsFailed   int      `json:"rowsFailed"`
}

// CustomerStageDTO is one customer's resolved stage.
type CustomerStageDTO struct {
	CustomerSeq int64  `json:"customerSeq"`
	TargetStage string `json:"targetStage"`
}

// CompanyStatusDTO summarizes one company's planning progress.
type CompanyStatusDTO struct {
	CompanyType   string `json:"companyType"`
	CustomerCount int    `json:"customerCount"`
	HasProposed   bool   `json:"hasProposed"`
	HasConfirmed  bool   `json:"hasConfirmed"`
	HasInProgress bool   `json:"hasInProgress"`
}

// ConfirmResultDTO reports how many rows a confirmation touched.
type ConfirmResultDTO struct {
	RowsConfirmed int `json:"rowsConfirmed"`
}

// CompanyTotalDTO is one company's rollup total.
type CompanyTotalDTO struct {
	CompanyType string  `json:"companyType"`
	Amount      float64 `json:"amount"`
}

// BreakdownRowDTO is one line of a totals breakdown.
type BreakdownRowDTO struct {
	Key    string  `json:"key"`
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// CustomerCountsDTO buckets one company's customers.
type CustomerCountsDTO struct {
	CompanyType string `json:"companyType"`
	Total       int    `json:"total"`
	Confirmed   int    `json:"confirmed"`
	Planning    int    `json:"planning"`
}

// OverallCountsDTO is the cross-company customer count.
type OverallCountsDTO struct {
	Total      int `json:"total"`
	Confirmed  int `json:"confirmed"`
	InProgress int `json:"inProgress"`
}

// RemarkDTO carries a customer's plan remark.
type RemarkDTO struct {
	CustomerSeq int64  `json:"customerSeq"`
	Remark      string `json:"remark"`
}

// CustomerMonthlyDTO is one customer's summed monthly quantities.
type CustomerMonthlyDTO struct {
	CustomerSeq int64     `json:"customerSeq"`
	Qty         []float64 `json:"qty"`
	TargetStage string    `json:"targetStage,omitempty"`
	Planned     bool      `json:"planned"`
}

// CustomerPlanRowDTO is one plan line of a customer after precedence.
type CustomerPlanRowDTO struct {
	ItemSubcategory string    `json:"itemSubcategory"`
	SalesMgmtUnit   string    `json:"salesMgmtUnit"`
	PlanType        string    `json:"planType"`
	TargetStage     string    `json:"targetStage"`
	Qty             []float64 `json:"qty"`
	Amount          []float64 `json:"amount"`
}

// ErrorResponse is the JSON shape of every error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func seriesToFloats(m plan.MonthlySeries) []float64 {
	f := m.Floats()
	return f[:]
}

func amountToFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func toCompanyTotalDTOs(totals []plan.CompanyTotal) []CompanyTotalDTO {
	out := make([]CompanyTotalDTO, 0, len(totals))
	for _, t := range totals {
		out = append(out, CompanyTotalDTO{
			CompanyType: string(t.Company),
			Amount:      amountToFloat(t.Amount),
		})
	}
	return out
}
