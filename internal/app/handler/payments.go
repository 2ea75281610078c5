package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"autohaul-app/internal/app/service"
)

// ==================== ПЛАТЕЖИ ====================

// CreatePaymentIntent - создание платёжного интента под предложение
// @Summary Create payment intent
// @Description Create a provider-side payment intent; amount must match the quote exactly
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body map[string]interface{} true "Quote id and amount in minor units"
// @Success 200 {object} service.IntentResult "Intent created"
// @Failure 400 {object} map[string]string "Amount mismatch or inactive quote"
// @Failure 404 {object} map[string]string "Quote not found"
// @Router /api/create-payment-intent [post]
func (h *Handler) CreatePaymentIntent(ctx *gin.Context) {
	var req struct {
		QuoteID int   `json:"quoteId" binding:"required"`
		Amount  int64 `json:"amount" binding:"required"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.PaymentService.CreatePaymentIntent(req.QuoteID, req.Amount)
	switch {
	case errors.Is(err, service.ErrQuoteNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "quote not found"})
		return
	case errors.Is(err, service.ErrQuoteInactive):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "quote is not active"})
		return
	case errors.Is(err, service.ErrAmountMismatch):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "amount does not match quote total"})
		return
	case err != nil:
		logrus.Error(err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create payment intent"})
		return
	}

	ctx.JSON(http.StatusOK, result)
}

// StripeWebhook - приём событий платёжного провайдера.
// Подпись проверяется по секрету; ошибка обработки отдаёт 500,
// чтобы провайдер повторил доставку (обработчик идемпотентен).
func (h *Handler) StripeWebhook(ctx *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, 65536))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	event, err := h.PaymentService.VerifyEvent(payload, ctx.GetHeader("Stripe-Signature"))
	if err != nil {
		logrus.Warnf("stripe webhook signature verification failed: %v", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	if err := h.PaymentService.HandleEvent(event); err != nil {
		logrus.Errorf("stripe webhook processing failed: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "event processing failed"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"received": true})
}

// GetRequestPayments - платежи по заявке (аудит, только админ)
func (h *Handler) GetRequestPayments(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		fail(ctx, http.StatusBadRequest, "invalid transportation request id")
		return
	}

	payments, err := h.Repository.GetPaymentsForRequest(id)
	if err != nil {
		fail(ctx, http.StatusInternalServerError, "failed to get payments")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "payments": payments})
}
