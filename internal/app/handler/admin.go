package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"autohaul-app/internal/app/ds"
	"autohaul-app/internal/app/repository"
)

// ==================== АДМИНКА ====================

// parseDateQuery - разбор даты из query-параметра (YYYY-MM-DD)
func parseDateQuery(ctx *gin.Context, name string) *time.Time {
	if s := ctx.Query(name); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return &t
		}
	}
	return nil
}

// GetUnassignedRequests - очередь новых заявок (pending, без назначенного админа)
func (h *Handler) GetUnassignedRequests(ctx *gin.Context) {
	requests, err := h.Repository.GetUnassignedRequests()
	if err != nil {
		fail(ctx, http.StatusInternalServerError, "failed to get unassigned requests")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "transportation_requests": requests})
}

// GetAssignedRequests - заявки, взятые текущим админом
func (h *Handler) GetAssignedRequests(ctx *gin.Context) {
	profile, ok := h.currentProfile(ctx)
	if !ok {
		fail(ctx, http.StatusUnauthorized, "authentication required")
		return
	}

	requests, err := h.Repository.GetAssignedRequests(profile.ID)
	if err != nil {
		fail(ctx, http.StatusInternalServerError, "failed to get assigned requests")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "transportation_requests": requests})
}

// ClaimTransportationRequest - админ берёт свободную заявку
// @Summary Claim transportation request
// @Description Admin claims an unassigned pending request; conflict if another admin got there first
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Transportation request ID"
// @Success 200 {object} map[string]interface{} "Request claimed"
// @Failure 409 {object} map[string]string "Already claimed"
// @Router /api/admin/transportation-requests/{id}/claim [put]
func (h *Handler) ClaimTransportationRequest(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		fail(ctx, http.StatusBadRequest, "invalid transportation request id")
		return
	}

	profile, ok := h.currentProfile(ctx)
	if !ok {
		fail(ctx, http.StatusUnauthorized, "authentication required")
		return
	}

	err = h.Repository.ClaimTransportationRequest(id, profile.ID)
	if errors.Is(err, repository.ErrAlreadyClaimed) {
		fail(ctx, http.StatusConflict, "заявка уже взята другим администратором")
		return
	}
	if err != nil {
		logrus.Error(err)
		fail(ctx, http.StatusInternalServerError, "failed to claim transportation request")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"message":    "Заявка взята в работу",
		"request_id": id,
		"admin_id":   profile.ID,
	})
}

// CreateQuote - создание ценового предложения по заявке
func (h *Handler) CreateQuote(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		fail(ctx, http.StatusBadRequest, "invalid transportation request id")
		return
	}

	profile, ok := h.currentProfile(ctx)
	if !ok {
		fail(ctx, http.StatusUnauthorized, "authentication required")
		return
	}

	var req struct {
		TotalAmount decimal.Decimal `json:"total_amount" binding:"required"`
		Notes       string          `json:"notes"`
		ValidUntil  *time.Time      `json:"valid_until"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		fail(ctx, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.TotalAmount.LessThanOrEqual(decimal.Zero) {
		fail(ctx, http.StatusBadRequest, "total_amount must be greater than 0")
		return
	}

	request, err := h.Repository.GetTransportationRequest(id)
	if err != nil {
		fail(ctx, http.StatusNotFound, "transportation request not found")
		return
	}

	switch request.Status {
	case ds.StatusPaid, ds.StatusInProgress, ds.StatusCompleted, ds.StatusCancelled:
		fail(ctx, http.StatusBadRequest, "по заявке в этом статусе предложение не создаётся")
		return
	}

	quote := ds.Quote{
		TransportationRequestID: id,
		AdminID:                 profile.ID,
		TotalAmount:             req.TotalAmount,
		Notes:                   req.Notes,
		ValidUntil:              req.ValidUntil,
	}

	if err := h.Repository.CreateQuote(&quote); err != nil {
		fail(ctx, http.StatusInternalServerError, "failed to create quote")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"status": "ok", "quote": quote})
}

// GetRequestQuotes - предложения по заявке
func (h *Handler) GetRequestQuotes(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		fail(ctx, http.StatusBadRequest, "invalid transportation request id")
		return
	}

	profile, ok := h.currentProfile(ctx)
	if !ok {
		fail(ctx, http.StatusUnauthorized, "profile not found")
		return
	}

	request, err := h.Repository.GetTransportationRequest(id)
	if err != nil {
		fail(ctx, http.StatusNotFound, "transportation request not found")
		return
	}

	// Клиент видит предложения только по своим заявкам
	if profile.Role != ds.RoleAdmin && request.CustomerID != profile.ID {
		fail(ctx, http.StatusForbidden, "access denied")
		return
	}

	quotes, err := h.Repository.GetQuotesForRequest(id)
	if err != nil {
		fail(ctx, http.StatusInternalServerError, "failed to get quotes")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "quotes": quotes})
}

// UpdateRequestStatus - перевод заявки по жизненному циклу админом
func (h *Handler) UpdateRequestStatus(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		fail(ctx, http.StatusBadRequest, "invalid transportation request id, must be integer >= 0")
		return
	}

	// Получаем новый статус из JSON
	var req struct {
		Status string `json:"status" binding:"required"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		fail(ctx, http.StatusBadRequest, "invalid request body")
		return
	}

	// Вебхук сам переводит заявку в paid, руками этот статус не ставим
	validStatuses := []string{ds.StatusInProgress, ds.StatusCompleted, ds.StatusCancelled}
	isValid := false
	for _, status := range validStatuses {
		if req.Status == status {
			isValid = true
			break
		}
	}

	if !isValid {
		fail(ctx, http.StatusBadRequest, "invalid status. allowed: in_progress, completed, cancelled")
		return
	}

	if err := h.Repository.UpdateRequestStatus(id, req.Status); err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			fail(ctx, http.StatusConflict, "переход в этот статус из текущего невозможен")
			return
		}
		logrus.Error(err)
		fail(ctx, http.StatusInternalServerError, "failed to update request status")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"message":    "Статус заявки успешно обновлен",
		"request_id": id,
		"new_status": req.Status,
	})
}

// UpdateRequestNotes - обновление заметок по заявке админом
func (h *Handler) UpdateRequestNotes(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		fail(ctx, http.StatusBadRequest, "invalid transportation request id")
		return
	}

	var req struct {
		Notes string `json:"notes"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		fail(ctx, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Repository.UpdateRequestNotes(id, req.Notes); err != nil {
		fail(ctx, http.StatusInternalServerError, "failed to update notes")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Заметки обновлены"})
}

// GetAdminStats - сводка для панели администратора (UI опрашивает периодически)
func (h *Handler) GetAdminStats(ctx *gin.Context) {
	stats, err := h.Repository.GetAdminStats()
	if err != nil {
		logrus.Error(err)
		fail(ctx, http.StatusInternalServerError, "failed to get stats")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "stats": stats})
}
