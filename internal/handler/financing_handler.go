package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jpmelo/financio-backend/internal/domain"
	"github.com/jpmelo/financio-backend/internal/middleware"
	"github.com/jpmelo/financio-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// FinancingHandler handles financing-related HTTP requests
type FinancingHandler struct {
	financingService *service.FinancingService
}

// NewFinancingHandler creates a new FinancingHandler
func NewFinancingHandler(financingService *service.FinancingService) *FinancingHandler {
	return &FinancingHandler{financingService: financingService}
}

// CreateFinancingRequest represents the create financing request body
type CreateFinancingRequest struct {
	Name         string  `json:"name"`
	Principal    string  `json:"principal"`
	PeriodicRate string  `json:"periodicRate"`
	TermPeriods  int32   `json:"termPeriods"`
	Method       string  `json:"method"`
	StartDate    string  `json:"startDate"`
	Notes        *string `json:"notes,omitempty"`
}

// PreviewScheduleRequest represents the schedule simulation request body
type PreviewScheduleRequest struct {
	Principal    string `json:"principal"`
	PeriodicRate string `json:"periodicRate"`
	TermPeriods  int32  `json:"termPeriods"`
	Method       string `json:"method"`
	StartDate    string `json:"startDate"`
}

// FinancingResponse represents a financing in API responses
type FinancingResponse struct {
	ID                int32   `json:"id"`
	WorkspaceID       int32   `json:"workspaceId"`
	Name              string  `json:"name"`
	Principal         string  `json:"principal"`
	PeriodicRate      string  `json:"periodicRate"`
	TermPeriods       int32   `json:"termPeriods"`
	Method            string  `json:"method"`
	StartDate         string  `json:"startDate"`
	CurrentBalance    string  `json:"currentBalance"`
	TotalPaid         string  `json:"totalPaid"`
	TotalInterestPaid string  `json:"totalInterestPaid"`
	PaidInstallments  int32   `json:"paidInstallments"`
	Status            string  `json:"status"`
	Notes             *string `json:"notes,omitempty"`
	CreatedAt         string  `json:"createdAt"`
	UpdatedAt         string  `json:"updatedAt"`
}

// ScheduleRowResponse represents one installment of a repayment schedule
type ScheduleRowResponse struct {
	InstallmentNumber int32  `json:"installmentNumber"`
	DueDate           string `json:"dueDate"`
	PaymentAmount     string `json:"paymentAmount"`
	PrincipalAmount   string `json:"principalAmount"`
	InterestAmount    string `json:"interestAmount"`
	RemainingBalance  string `json:"remainingBalance"`
}

// ScheduleEntryResponse is a schedule row annotated with payment state
type ScheduleEntryResponse struct {
	ScheduleRowResponse
	Paid      bool   `json:"paid"`
	PaymentID *int32 `json:"paymentId,omitempty"`
}

// CreateFinancing handles POST /api/v1/financings
func (h *FinancingHandler) CreateFinancing(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var req CreateFinancingRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	principal, err := decimal.NewFromString(req.Principal)
	if err != nil {
		return NewValidationError(c, "Invalid principal", []ValidationError{
			{Field: "principal", Message: "Must be a valid decimal number"},
		})
	}
	rate, err := decimal.NewFromString(req.PeriodicRate)
	if err != nil {
		return NewValidationError(c, "Invalid periodic rate", []ValidationError{
			{Field: "periodicRate", Message: "Must be a valid decimal number"},
		})
	}
	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return NewValidationError(c, "Invalid start date", []ValidationError{
			{Field: "startDate", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	financing, err := h.financingService.CreateFinancing(workspaceID, service.CreateFinancingInput{
		Name:         req.Name,
		Principal:    principal,
		PeriodicRate: rate,
		TermPeriods:  req.TermPeriods,
		Method:       domain.AmortizationMethod(req.Method),
		StartDate:    startDate,
		Notes:        req.Notes,
	})
	if err != nil {
		if verr := financingValidationError(c, err); verr != nil {
			return verr
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Failed to create financing")
		return NewInternalError(c, "Failed to create financing")
	}

	log.Info().Int32("workspace_id", workspaceID).Int32("financing_id", financing.ID).
		Str("method", string(financing.Method)).Msg("Financing created")

	return c.JSON(http.StatusCreated, toFinancingResponse(financing))
}

// GetFinancings handles GET /api/v1/financings
func (h *FinancingHandler) GetFinancings(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	financings, err := h.financingService.GetFinancings(workspaceID)
	if err != nil {
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Failed to get financings")
		return NewInternalError(c, "Failed to get financings")
	}

	response := make([]FinancingResponse, len(financings))
	for i, financing := range financings {
		response[i] = toFinancingResponse(financing)
	}

	return c.JSON(http.StatusOK, response)
}

// GetFinancing handles GET /api/v1/financings/:id
func (h *FinancingHandler) GetFinancing(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid financing ID", nil)
	}

	financing, err := h.financingService.GetFinancingByID(workspaceID, int32(id))
	if err != nil {
		if errors.Is(err, domain.ErrFinancingNotFound) {
			return NewNotFoundError(c, "Financing not found")
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Int("financing_id", id).Msg("Failed to get financing")
		return NewInternalError(c, "Failed to get financing")
	}

	return c.JSON(http.StatusOK, toFinancingResponse(financing))
}

// DeleteFinancing handles DELETE /api/v1/financings/:id
func (h *FinancingHandler) DeleteFinancing(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid financing ID", nil)
	}

	if err := h.financingService.DeleteFinancing(workspaceID, int32(id)); err != nil {
		if errors.Is(err, domain.ErrFinancingNotFound) {
			return NewNotFoundError(c, "Financing not found")
		}
		if errors.Is(err, domain.ErrFinancingHasPayments) {
			return NewConflictError(c, "Financing has registered payments")
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Int("financing_id", id).Msg("Failed to delete financing")
		return NewInternalError(c, "Failed to delete financing")
	}

	log.Info().Int32("workspace_id", workspaceID).Int("financing_id", id).Msg("Financing deleted")

	return c.NoContent(http.StatusNoContent)
}

// GetSchedule handles GET /api/v1/financings/:id/schedule
func (h *FinancingHandler) GetSchedule(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid financing ID", nil)
	}

	entries, err := h.financingService.GetSchedule(workspaceID, int32(id))
	if err != nil {
		if errors.Is(err, domain.ErrFinancingNotFound) {
			return NewNotFoundError(c, "Financing not found")
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Int("financing_id", id).Msg("Failed to generate schedule")
		return NewInternalError(c, "Failed to generate schedule")
	}

	response := make([]ScheduleEntryResponse, len(entries))
	for i, entry := range entries {
		response[i] = ScheduleEntryResponse{
			ScheduleRowResponse: toScheduleRowResponse(entry.ScheduleRow),
			Paid:                entry.Paid,
			PaymentID:           entry.PaymentID,
		}
	}

	return c.JSON(http.StatusOK, response)
}

// PreviewSchedule handles POST /api/v1/financings/preview
func (h *FinancingHandler) PreviewSchedule(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var req PreviewScheduleRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	principal, err := decimal.NewFromString(req.Principal)
	if err != nil {
		return NewValidationError(c, "Invalid principal", []ValidationError{
			{Field: "principal", Message: "Must be a valid decimal number"},
		})
	}
	rate, err := decimal.NewFromString(req.PeriodicRate)
	if err != nil {
		return NewValidationError(c, "Invalid periodic rate", []ValidationError{
			{Field: "periodicRate", Message: "Must be a valid decimal number"},
		})
	}
	startDate := time.Now()
	if req.StartDate != "" {
		startDate, err = time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			return NewValidationError(c, "Invalid start date", []ValidationError{
				{Field: "startDate", Message: "Must be in YYYY-MM-DD format"},
			})
		}
	}

	rows, err := h.financingService.PreviewSchedule(service.ScheduleInput{
		Principal:    principal,
		PeriodicRate: rate,
		TermPeriods:  req.TermPeriods,
		Method:       domain.AmortizationMethod(req.Method),
		StartDate:    startDate,
	})
	if err != nil {
		if verr := financingValidationError(c, err); verr != nil {
			return verr
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Failed to preview schedule")
		return NewInternalError(c, "Failed to preview schedule")
	}

	response := make([]ScheduleRowResponse, len(rows))
	for i, row := range rows {
		response[i] = toScheduleRowResponse(row)
	}

	return c.JSON(http.StatusOK, response)
}

// financingValidationError maps financing parameter errors to 400 responses,
// returning nil for errors it does not recognize.
func financingValidationError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrFinancingNameEmpty):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "name", Message: "Name is required"},
		})
	case errors.Is(err, domain.ErrFinancingNameTooLong):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "name", Message: "Name exceeds maximum length"},
		})
	case errors.Is(err, domain.ErrFinancingPrincipalInvalid):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "principal", Message: "Principal must be positive"},
		})
	case errors.Is(err, domain.ErrFinancingRateInvalid):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "periodicRate", Message: "Rate must be zero or positive"},
		})
	case errors.Is(err, domain.ErrFinancingTermInvalid):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "termPeriods", Message: "Term must be at least one period"},
		})
	case errors.Is(err, domain.ErrFinancingMethodInvalid):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "method", Message: "Method must be price or sac"},
		})
	}
	return nil
}

func toFinancingResponse(financing *domain.Financing) FinancingResponse {
	return FinancingResponse{
		ID:                financing.ID,
		WorkspaceID:       financing.WorkspaceID,
		Name:              financing.Name,
		Principal:         financing.Principal.StringFixed(2),
		PeriodicRate:      financing.PeriodicRate.String(),
		TermPeriods:       financing.TermPeriods,
		Method:            string(financing.Method),
		StartDate:         financing.StartDate.Format("2006-01-02"),
		CurrentBalance:    financing.CurrentBalance.StringFixed(2),
		TotalPaid:         financing.TotalPaid.StringFixed(2),
		TotalInterestPaid: financing.TotalInterestPaid.StringFixed(2),
		PaidInstallments:  financing.PaidInstallments,
		Status:            string(financing.Status),
		Notes:             financing.Notes,
		CreatedAt:         financing.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         financing.UpdatedAt.Format(time.RFC3339),
	}
}

func toScheduleRowResponse(row service.ScheduleRow) ScheduleRowResponse {
	return ScheduleRowResponse{
		InstallmentNumber: row.InstallmentNumber,
		DueDate:           row.DueDate.Format("2006-01-02"),
		PaymentAmount:     row.PaymentAmount.StringFixed(2),
		PrincipalAmount:   row.PrincipalAmount.StringFixed(2),
		InterestAmount:    row.InterestAmount.StringFixed(2),
		RemainingBalance:  row.RemainingBalance.StringFixed(2),
	}
}
