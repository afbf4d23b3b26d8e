package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"numislive/internal/services"
	"numislive/pkg/logger"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
	log            logger.Logger
}

func NewPaymentHandler(paymentService *services.PaymentService, log logger.Logger) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, log: log}
}

// ConfirmPaymentRequest is the provider confirmation callback payload.
type ConfirmPaymentRequest struct {
	ListingID     string `json:"listing_id"`
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount"`
	PayerID       string `json:"payer_id"`
	Status        string `json:"status"`
}

// ConfirmPayment reconciles a provider confirmation. Replays of the same
// transaction id return the original record with 200 instead of 201.
func (h *PaymentHandler) ConfirmPayment(c echo.Context) error {
	var req ConfirmPaymentRequest
	if err := c.Bind(&req); err != nil {
		h.log.Error("Failed to bind request", "error", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}

	if req.Status != "paid" && req.Status != "succeeded" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Only successful confirmations are accepted"})
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid amount"})
	}

	payment, created, err := h.paymentService.ReconcilePayment(
		c.Request().Context(), req.ListingID, req.TransactionID, req.PayerID, amount)
	if err != nil {
		h.log.Error("Failed to reconcile payment", "external_txn_id", req.TransactionID, "error", err)
		return errorResponse(c, err)
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}

	return c.JSON(status, payment)
}

// ListPayments is the admin reconciliation view.
func (h *PaymentHandler) ListPayments(c echo.Context) error {
	payments, err := h.paymentService.ListPayments(c.Request().Context())
	if err != nil {
		h.log.Error("Failed to list payments", "error", err)
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"payments": payments})
}
