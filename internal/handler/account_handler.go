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

// AccountHandler handles account-related HTTP requests
type AccountHandler struct {
	accountService     *service.AccountService
	transactionService *service.TransactionService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accountService *service.AccountService, transactionService *service.TransactionService) *AccountHandler {
	return &AccountHandler{
		accountService:     accountService,
		transactionService: transactionService,
	}
}

// CreateAccountRequest represents the create account request body
type CreateAccountRequest struct {
	Name           string `json:"name"`
	OpeningBalance string `json:"openingBalance"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID          int32  `json:"id"`
	WorkspaceID int32  `json:"workspaceId"`
	Name        string `json:"name"`
	Balance     string `json:"balance"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// TransactionResponse represents a ledger transaction in API responses
type TransactionResponse struct {
	ID              int32  `json:"id"`
	WorkspaceID     int32  `json:"workspaceId"`
	AccountID       int32  `json:"accountId"`
	CategoryID      int32  `json:"categoryId"`
	Description     string `json:"description"`
	Amount          string `json:"amount"`
	Direction       string `json:"direction"`
	TransactionDate string `json:"transactionDate"`
	PaymentMethod   string `json:"paymentMethod"`
	CreatedAt       string `json:"createdAt"`
}

// PaginatedTransactionsResponse wraps a transaction page
type PaginatedTransactionsResponse struct {
	Data       []TransactionResponse `json:"data"`
	Page       int32                 `json:"page"`
	PageSize   int32                 `json:"pageSize"`
	TotalItems int64                 `json:"totalItems"`
	TotalPages int32                 `json:"totalPages"`
}

// CreateAccount handles POST /api/v1/accounts
func (h *AccountHandler) CreateAccount(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var req CreateAccountRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	openingBalance := decimal.Zero
	if req.OpeningBalance != "" {
		var err error
		openingBalance, err = decimal.NewFromString(req.OpeningBalance)
		if err != nil {
			return NewValidationError(c, "Invalid opening balance", []ValidationError{
				{Field: "openingBalance", Message: "Must be a valid decimal number"},
			})
		}
	}

	account, err := h.accountService.CreateAccount(workspaceID, req.Name, openingBalance)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "name", Message: "Name is required and must be at most 255 characters"},
			})
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Failed to create account")
		return NewInternalError(c, "Failed to create account")
	}

	log.Info().Int32("workspace_id", workspaceID).Int32("account_id", account.ID).Msg("Account created")

	return c.JSON(http.StatusCreated, toAccountResponse(account))
}

// GetAccounts handles GET /api/v1/accounts
func (h *AccountHandler) GetAccounts(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	accounts, err := h.accountService.GetAccounts(workspaceID)
	if err != nil {
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Failed to get accounts")
		return NewInternalError(c, "Failed to get accounts")
	}

	response := make([]AccountResponse, len(accounts))
	for i, account := range accounts {
		response[i] = toAccountResponse(account)
	}

	return c.JSON(http.StatusOK, response)
}

// GetAccount handles GET /api/v1/accounts/:id
func (h *AccountHandler) GetAccount(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid account ID", nil)
	}

	account, err := h.accountService.GetAccountByID(workspaceID, int32(id))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return NewNotFoundError(c, "Account not found")
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Int("account_id", id).Msg("Failed to get account")
		return NewInternalError(c, "Failed to get account")
	}

	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// GetAccountTransactions handles GET /api/v1/accounts/:id/transactions
func (h *AccountHandler) GetAccountTransactions(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid account ID", nil)
	}

	filters, err := parseTransactionFilters(c)
	if err != nil {
		return NewValidationError(c, err.Error(), nil)
	}

	page, err := h.transactionService.GetByAccount(workspaceID, int32(id), filters)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return NewNotFoundError(c, "Account not found")
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Int("account_id", id).Msg("Failed to get transactions")
		return NewInternalError(c, "Failed to get transactions")
	}

	response := PaginatedTransactionsResponse{
		Data:       make([]TransactionResponse, len(page.Data)),
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalItems: page.TotalItems,
		TotalPages: page.TotalPages,
	}
	for i, transaction := range page.Data {
		response.Data[i] = toTransactionResponse(transaction)
	}

	return c.JSON(http.StatusOK, response)
}

func parseTransactionFilters(c echo.Context) (*domain.TransactionFilters, error) {
	filters := &domain.TransactionFilters{}

	if v := c.QueryParam("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return nil, errors.New("invalid page")
		}
		filters.Page = int32(page)
	}
	if v := c.QueryParam("pageSize"); v != "" {
		pageSize, err := strconv.Atoi(v)
		if err != nil || pageSize < 1 {
			return nil, errors.New("invalid page size")
		}
		filters.PageSize = int32(pageSize)
	}
	if v := c.QueryParam("startDate"); v != "" {
		startDate, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, errors.New("invalid start date")
		}
		filters.StartDate = &startDate
	}
	if v := c.QueryParam("endDate"); v != "" {
		endDate, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, errors.New("invalid end date")
		}
		filters.EndDate = &endDate
	}
	if v := c.QueryParam("direction"); v != "" {
		direction := domain.TransactionDirection(v)
		if direction != domain.TransactionDirectionIncome && direction != domain.TransactionDirectionExpense {
			return nil, errors.New("invalid direction")
		}
		filters.Direction = &direction
	}

	return filters, nil
}

func toAccountResponse(account *domain.Account) AccountResponse {
	return AccountResponse{
		ID:          account.ID,
		WorkspaceID: account.WorkspaceID,
		Name:        account.Name,
		Balance:     account.Balance.StringFixed(2),
		CreatedAt:   account.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   account.UpdatedAt.Format(time.RFC3339),
	}
}

func toTransactionResponse(transaction *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:              transaction.ID,
		WorkspaceID:     transaction.WorkspaceID,
		AccountID:       transaction.AccountID,
		CategoryID:      transaction.CategoryID,
		Description:     transaction.Description,
		Amount:          transaction.Amount.StringFixed(2),
		Direction:       string(transaction.Direction),
		TransactionDate: transaction.TransactionDate.Format("2006-01-02"),
		PaymentMethod:   transaction.PaymentMethod,
		CreatedAt:       transaction.CreatedAt.Format(time.RFC3339),
	}
}
