package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/jpmelo/financio-backend/internal/domain"
	"github.com/jpmelo/financio-backend/internal/middleware"
	"github.com/jpmelo/financio-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ReceiptHandler handles payment receipt HTTP requests
type ReceiptHandler struct {
	receiptService *service.ReceiptService
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(receiptService *service.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receiptService: receiptService}
}

// ReceiptURLResponse carries a presigned receipt download URL
type ReceiptURLResponse struct {
	URL string `json:"url"`
}

// UploadReceipt handles POST /api/v1/financings/:id/payments/:paymentId/receipt
func (h *ReceiptHandler) UploadReceipt(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	if h.receiptService == nil || !h.receiptService.IsEnabled() {
		return NewUnavailableError(c, "Receipt uploads are disabled (storage not configured)")
	}

	paymentID, err := strconv.Atoi(c.Param("paymentId"))
	if err != nil {
		return NewValidationError(c, "Invalid payment ID", nil)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return NewValidationError(c, "No file provided", []ValidationError{
			{Field: "file", Message: "File is required"},
		})
	}

	src, err := file.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded file")
		return NewInternalError(c, "Failed to process file")
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded file")
		return NewInternalError(c, "Failed to read file")
	}

	payment, err := h.receiptService.Upload(c.Request().Context(), workspaceID, int32(paymentID), data, file.Filename)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPaymentNotFound):
			return NewNotFoundError(c, "Payment not found")
		case errors.Is(err, service.ErrReceiptTooLarge):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "file", Message: "File too large. Maximum size is 10MB"},
			})
		case errors.Is(err, service.ErrReceiptInvalidFormat):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "file", Message: "Unsupported format. Allowed: JPEG, PNG, PDF"},
			})
		case errors.Is(err, service.ErrReceiptInvalidData):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "file", Message: "File content does not match its extension"},
			})
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Int("payment_id", paymentID).Msg("Failed to upload receipt")
		return NewInternalError(c, "Failed to upload receipt")
	}

	log.Info().Int32("workspace_id", workspaceID).Int("payment_id", paymentID).Msg("Receipt uploaded")

	return c.JSON(http.StatusOK, toPaymentResponse(payment))
}

// GetReceiptURL handles GET /api/v1/financings/:id/payments/:paymentId/receipt
func (h *ReceiptHandler) GetReceiptURL(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	if h.receiptService == nil || !h.receiptService.IsEnabled() {
		return NewUnavailableError(c, "Receipt storage not configured")
	}

	paymentID, err := strconv.Atoi(c.Param("paymentId"))
	if err != nil {
		return NewValidationError(c, "Invalid payment ID", nil)
	}

	url, err := h.receiptService.PresignedURL(c.Request().Context(), workspaceID, int32(paymentID))
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			return NewNotFoundError(c, "Payment not found")
		}
		if errors.Is(err, service.ErrReceiptNotFound) {
			return NewNotFoundError(c, "Payment has no receipt")
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Int("payment_id", paymentID).Msg("Failed to generate receipt URL")
		return NewInternalError(c, "Failed to generate receipt URL")
	}

	return c.JSON(http.StatusOK, ReceiptURLResponse{URL: url})
}

// DeleteReceipt handles DELETE /api/v1/financings/:id/payments/:paymentId/receipt
func (h *ReceiptHandler) DeleteReceipt(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	if h.receiptService == nil || !h.receiptService.IsEnabled() {
		return NewUnavailableError(c, "Receipt storage not configured")
	}

	paymentID, err := strconv.Atoi(c.Param("paymentId"))
	if err != nil {
		return NewValidationError(c, "Invalid payment ID", nil)
	}

	if err := h.receiptService.Delete(c.Request().Context(), workspaceID, int32(paymentID)); err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			return NewNotFoundError(c, "Payment not found")
		}
		if errors.Is(err, service.ErrReceiptNotFound) {
			return NewNotFoundError(c, "Payment has no receipt")
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Int("payment_id", paymentID).Msg("Failed to delete receipt")
		return NewInternalError(c, "Failed to delete receipt")
	}

	log.Info().Int32("workspace_id", workspaceID).Int("payment_id", paymentID).Msg("Receipt deleted")

	return c.NoContent(http.StatusNoContent)
}
