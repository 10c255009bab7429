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

// PaymentHandler handles financing payment HTTP requests
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// PayInstallmentRequest represents the pay installment request body
type PayInstallmentRequest struct {
	InstallmentNumber int32  `json:"installmentNumber"`
	AccountID         int32  `json:"accountId"`
	PaidAmount        string `json:"paidAmount"`
	PaymentDate       string `json:"paymentDate"`
	PaymentMethod     string `json:"paymentMethod"`
}

// EarlyPaymentRequest represents the early payment request body
type EarlyPaymentRequest struct {
	AccountID     int32  `json:"accountId"`
	PaidAmount    string `json:"paidAmount"`
	PaymentDate   string `json:"paymentDate"`
	PaymentMethod string `json:"paymentMethod"`
	Preference    string `json:"preference"`
}

// UpdateObservationRequest represents the update observation request body
type UpdateObservationRequest struct {
	Observation *string `json:"observation"`
}

// PaymentResponse represents a financing payment in API responses
type PaymentResponse struct {
	ID                int32   `json:"id"`
	FinancingID       int32   `json:"financingId"`
	AccountID         int32   `json:"accountId"`
	InstallmentNumber *int32  `json:"installmentNumber,omitempty"`
	PaymentAmount     string  `json:"paymentAmount"`
	PrincipalAmount   string  `json:"principalAmount"`
	InterestAmount    string  `json:"interestAmount"`
	PaymentDate       string  `json:"paymentDate"`
	PaymentMethod     string  `json:"paymentMethod"`
	PaymentType       string  `json:"paymentType"`
	EarlyPreference   *string `json:"earlyPreference,omitempty"`
	BalanceBefore     string  `json:"balanceBefore"`
	BalanceAfter      string  `json:"balanceAfter"`
	TransactionID     *int32  `json:"transactionId,omitempty"`
	Observation       *string `json:"observation,omitempty"`
	HasReceipt        bool    `json:"hasReceipt"`
	CreatedAt         string  `json:"createdAt"`
	UpdatedAt         string  `json:"updatedAt"`
}

// GetPayments handles GET /api/v1/financings/:id/payments
func (h *PaymentHandler) GetPayments(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	financingID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid financing ID", nil)
	}

	payments, err := h.paymentService.GetPaymentsByFinancing(workspaceID, int32(financingID))
	if err != nil {
		if errors.Is(err, domain.ErrFinancingNotFound) {
			return NewNotFoundError(c, "Financing not found")
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Int("financing_id", financingID).Msg("Failed to get payments")
		return NewInternalError(c, "Failed to get payments")
	}

	response := make([]PaymentResponse, len(payments))
	for i, payment := range payments {
		response[i] = toPaymentResponse(payment)
	}

	return c.JSON(http.StatusOK, response)
}

// PayInstallment handles POST /api/v1/financings/:id/payments
func (h *PaymentHandler) PayInstallment(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	financingID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid financing ID", nil)
	}

	var req PayInstallmentRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	paidAmount, err := decimal.NewFromString(req.PaidAmount)
	if err != nil {
		return NewValidationError(c, "Invalid paid amount", []ValidationError{
			{Field: "paidAmount", Message: "Must be a valid decimal number"},
		})
	}
	paymentDate, err := parsePaymentDate(req.PaymentDate)
	if err != nil {
		return NewValidationError(c, "Invalid payment date", []ValidationError{
			{Field: "paymentDate", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	payment, err := h.paymentService.PayInstallment(c.Request().Context(), workspaceID, service.PayInstallmentInput{
		FinancingID:       int32(financingID),
		InstallmentNumber: req.InstallmentNumber,
		AccountID:         req.AccountID,
		PaidAmount:        paidAmount,
		PaymentDate:       paymentDate,
		PaymentMethod:     req.PaymentMethod,
	})
	if err != nil {
		if resp := paymentErrorResponse(c, err); resp != nil {
			return resp
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Int("financing_id", financingID).
			Int32("installment", req.InstallmentNumber).Msg("Failed to pay installment")
		return NewInternalError(c, "Failed to pay installment")
	}

	log.Info().Int32("workspace_id", workspaceID).Int32("financing_id", payment.FinancingID).
		Int32("payment_id", payment.ID).Int32("installment", req.InstallmentNumber).
		Str("amount", payment.PaymentAmount.StringFixed(2)).Msg("Installment paid")

	return c.JSON(http.StatusCreated, toPaymentResponse(payment))
}

// RegisterEarlyPayment handles POST /api/v1/financings/:id/early-payments
func (h *PaymentHandler) RegisterEarlyPayment(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	financingID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid financing ID", nil)
	}

	var req EarlyPaymentRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	paidAmount, err := decimal.NewFromString(req.PaidAmount)
	if err != nil {
		return NewValidationError(c, "Invalid paid amount", []ValidationError{
			{Field: "paidAmount", Message: "Must be a valid decimal number"},
		})
	}
	paymentDate, err := parsePaymentDate(req.PaymentDate)
	if err != nil {
		return NewValidationError(c, "Invalid payment date", []ValidationError{
			{Field: "paymentDate", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	payment, err := h.paymentService.RegisterEarlyPayment(c.Request().Context(), workspaceID, service.EarlyPaymentInput{
		FinancingID:   int32(financingID),
		AccountID:     req.AccountID,
		PaidAmount:    paidAmount,
		PaymentDate:   paymentDate,
		PaymentMethod: req.PaymentMethod,
		Preference:    domain.EarlyPaymentPreference(req.Preference),
	})
	if err != nil {
		if resp := paymentErrorResponse(c, err); resp != nil {
			return resp
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Int("financing_id", financingID).Msg("Failed to register early payment")
		return NewInternalError(c, "Failed to register early payment")
	}

	log.Info().Int32("workspace_id", workspaceID).Int32("financing_id", payment.FinancingID).
		Int32("payment_id", payment.ID).Str("amount", payment.PaymentAmount.StringFixed(2)).
		Msg("Early payment registered")

	return c.JSON(http.StatusCreated, toPaymentResponse(payment))
}

// UpdateObservation handles PATCH /api/v1/financings/:id/payments/:paymentId/observation
func (h *PaymentHandler) UpdateObservation(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	financingID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid financing ID", nil)
	}
	paymentID, err := strconv.Atoi(c.Param("paymentId"))
	if err != nil {
		return NewValidationError(c, "Invalid payment ID", nil)
	}

	var req UpdateObservationRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	payment, err := h.paymentService.UpdateObservation(workspaceID, int32(financingID), int32(paymentID), req.Observation)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			return NewNotFoundError(c, "Payment not found")
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Int("payment_id", paymentID).Msg("Failed to update observation")
		return NewInternalError(c, "Failed to update observation")
	}

	return c.JSON(http.StatusOK, toPaymentResponse(payment))
}

// DeletePayment handles DELETE /api/v1/financings/:id/payments/:paymentId
func (h *PaymentHandler) DeletePayment(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	financingID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid financing ID", nil)
	}
	paymentID, err := strconv.Atoi(c.Param("paymentId"))
	if err != nil {
		return NewValidationError(c, "Invalid payment ID", nil)
	}

	if err := h.paymentService.DeletePayment(workspaceID, int32(financingID), int32(paymentID)); err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			return NewNotFoundError(c, "Payment not found")
		}
		if errors.Is(err, domain.ErrLinkedTransactionExists) {
			return NewConflictError(c, "Payment has a linked ledger transaction")
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Int("payment_id", paymentID).Msg("Failed to delete payment")
		return NewInternalError(c, "Failed to delete payment")
	}

	log.Info().Int32("workspace_id", workspaceID).Int("payment_id", paymentID).Msg("Payment deleted")

	return c.NoContent(http.StatusNoContent)
}

// paymentErrorResponse maps payment domain errors to HTTP responses, returning
// nil for errors it does not recognize.
func paymentErrorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrFinancingNotFound):
		return NewNotFoundError(c, "Financing not found")
	case errors.Is(err, domain.ErrAccountNotFound):
		return NewNotFoundError(c, "Account not found")
	case errors.Is(err, domain.ErrInstallmentNotFound):
		return NewNotFoundError(c, "Installment not found")
	case errors.Is(err, domain.ErrDuplicateInstallment):
		return NewConflictError(c, "Installment already paid")
	case errors.Is(err, domain.ErrInsufficientAmount):
		return NewUnprocessableError(c, "Paid amount is below the scheduled installment")
	case errors.Is(err, domain.ErrExceedsOutstandingBalance):
		return NewUnprocessableError(c, "Amount must stay below the outstanding balance")
	case errors.Is(err, domain.ErrNegativeBalance):
		return NewUnprocessableError(c, "Payment would drive the balance negative")
	case errors.Is(err, domain.ErrNoExpenseCategory):
		return NewUnprocessableError(c, "Workspace has no default expense category")
	case errors.Is(err, domain.ErrPaymentAmountInvalid):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "paidAmount", Message: "Amount must be positive"},
		})
	case errors.Is(err, domain.ErrPaymentMethodRequired):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "paymentMethod", Message: "Payment method is required"},
		})
	case errors.Is(err, domain.ErrPreferenceInvalid):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "preference", Message: "Must be shorten_term or reduce_installment"},
		})
	}
	return nil
}

func parsePaymentDate(value string) (time.Time, error) {
	if value == "" {
		return time.Now(), nil
	}
	return time.Parse("2006-01-02", value)
}

func toPaymentResponse(payment *domain.FinancingPayment) PaymentResponse {
	resp := PaymentResponse{
		ID:                payment.ID,
		FinancingID:       payment.FinancingID,
		AccountID:         payment.AccountID,
		InstallmentNumber: payment.InstallmentNumber,
		PaymentAmount:     payment.PaymentAmount.StringFixed(2),
		PrincipalAmount:   payment.PrincipalAmount.StringFixed(2),
		InterestAmount:    payment.InterestAmount.StringFixed(2),
		PaymentDate:       payment.PaymentDate.Format("2006-01-02"),
		PaymentMethod:     payment.PaymentMethod,
		PaymentType:       string(payment.PaymentType),
		BalanceBefore:     payment.BalanceBefore.StringFixed(2),
		BalanceAfter:      payment.BalanceAfter.StringFixed(2),
		TransactionID:     payment.TransactionID,
		Observation:       payment.Observation,
		HasReceipt:        payment.ReceiptKey != nil,
		CreatedAt:         payment.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         payment.UpdatedAt.Format(time.RFC3339),
	}
	if payment.EarlyPreference != nil {
		preference := string(*payment.EarlyPreference)
		resp.EarlyPreference = &preference
	}
	return resp
}
