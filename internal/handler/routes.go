package handler

import (
	"github.com/jpmelo/financio-backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(
	e *echo.Echo,
	authMiddleware *middleware.AuthMiddleware,
	rateLimiter *middleware.RateLimiter,
	accountHandler *AccountHandler,
	financingHandler *FinancingHandler,
	paymentHandler *PaymentHandler,
	receiptHandler *ReceiptHandler,
	wsHandler *WebSocketHandler,
) {
	// API version 1
	api := e.Group("/api/v1")
	api.Use(authMiddleware.Authenticate())
	api.Use(middleware.RateLimitMiddleware(rateLimiter))

	// Account routes
	api.POST("/accounts", accountHandler.CreateAccount)
	api.GET("/accounts", accountHandler.GetAccounts)
	api.GET("/accounts/:id", accountHandler.GetAccount)
	api.GET("/accounts/:id/transactions", accountHandler.GetAccountTransactions)

	// Financing routes
	api.POST("/financings", financingHandler.CreateFinancing)
	api.GET("/financings", financingHandler.GetFinancings)
	api.POST("/financings/preview", financingHandler.PreviewSchedule)
	api.GET("/financings/:id", financingHandler.GetFinancing)
	api.DELETE("/financings/:id", financingHandler.DeleteFinancing)
	api.GET("/financings/:id/schedule", financingHandler.GetSchedule)

	// Payment routes
	api.GET("/financings/:id/payments", paymentHandler.GetPayments)
	api.POST("/financings/:id/payments", paymentHandler.PayInstallment)
	api.POST("/financings/:id/early-payments", paymentHandler.RegisterEarlyPayment)
	api.PATCH("/financings/:id/payments/:paymentId/observation", paymentHandler.UpdateObservation)
	api.DELETE("/financings/:id/payments/:paymentId", paymentHandler.DeletePayment)

	// Receipt routes
	api.POST("/financings/:id/payments/:paymentId/receipt", receiptHandler.UploadReceipt)
	api.GET("/financings/:id/payments/:paymentId/receipt", receiptHandler.GetReceiptURL)
	api.DELETE("/financings/:id/payments/:paymentId/receipt", receiptHandler.DeleteReceipt)

	// WebSocket endpoint authenticates via query token, outside the group
	// middleware chain.
	e.GET("/ws", wsHandler.HandleWS)
}
