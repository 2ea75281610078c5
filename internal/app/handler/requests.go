package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"autohaul-app/internal/app/ds"
	"autohaul-app/internal/app/vin"
)

// ==================== ЗАЯВКИ НА ПЕРЕВОЗКУ ====================

// CreateTransportationRequest - создание заявки на перевозку автомобиля
// @Summary Create transportation request
// @Description Customer submits a new vehicle shipment request
// @Tags transportation-requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body map[string]interface{} true "Request data"
// @Success 201 {object} map[string]interface{} "Request submitted successfully"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /api/transportation-requests [post]
func (h *Handler) CreateTransportationRequest(ctx *gin.Context) {
	profile, ok := h.currentProfile(ctx)
	if !ok {
		fail(ctx, http.StatusUnauthorized, "authentication required")
		return
	}

	var req struct {
		PickupCompany   string  `json:"pickup_company"`
		PickupAddress   string  `json:"pickup_address" binding:"required"`
		PickupContact   string  `json:"pickup_contact"`
		PickupLat       float64 `json:"pickup_lat"`
		PickupLng       float64 `json:"pickup_lng"`
		DeliveryCompany string  `json:"delivery_company"`
		DeliveryAddress string  `json:"delivery_address" binding:"required"`
		DeliveryContact string  `json:"delivery_contact"`
		DeliveryLat     float64 `json:"delivery_lat"`
		DeliveryLng     float64 `json:"delivery_lng"`
		VehicleVIN      string  `json:"vehicle_vin"`
		VehicleMake     string  `json:"vehicle_make"`
		VehicleModel    string  `json:"vehicle_model"`
		VehicleYear     int     `json:"vehicle_year"`
		Notes           string  `json:"notes"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		fail(ctx, http.StatusBadRequest, "invalid request body")
		return
	}

	request := ds.TransportationRequest{
		CustomerID:      profile.ID,
		PickupCompany:   req.PickupCompany,
		PickupAddress:   req.PickupAddress,
		PickupContact:   req.PickupContact,
		PickupLat:       req.PickupLat,
		PickupLng:       req.PickupLng,
		DeliveryCompany: req.DeliveryCompany,
		DeliveryAddress: req.DeliveryAddress,
		DeliveryContact: req.DeliveryContact,
		DeliveryLat:     req.DeliveryLat,
		DeliveryLng:     req.DeliveryLng,
		VehicleVIN:      req.VehicleVIN,
		VehicleMake:     req.VehicleMake,
		VehicleModel:    req.VehicleModel,
		VehicleYear:     req.VehicleYear,
		Notes:           req.Notes,
	}

	// Если VIN передан, а марка/модель нет - пробуем декодировать сами.
	// Недоступность декодера заявку не блокирует.
	if request.VehicleVIN != "" && request.VehicleMake == "" {
		if err := vin.ValidateFormat(request.VehicleVIN); err != nil {
			fail(ctx, http.StatusBadRequest, err.Error())
			return
		}
		if decoded, err := h.VINDecoder.Decode(ctx.Request.Context(), request.VehicleVIN); err == nil && decoded.Valid {
			request.VehicleMake = decoded.Make
			request.VehicleModel = decoded.Model
			request.VehicleYear = decoded.Year
		} else if err != nil {
			logrus.Warnf("VIN decode failed on request creation: %v", err)
		}
	}

	if err := h.Repository.CreateTransportationRequest(&request); err != nil {
		logrus.Error(err)
		fail(ctx, http.StatusInternalServerError, "failed to create transportation request")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"status":       "success",
		"message":      "Заявка на перевозку успешно создана",
		"request_id":   request.ID,
		"order_number": request.OrderNumber,
	})
}

// GetTransportationRequests - список заявок.
// Роль определяет выборку: customer видит только свои, admin - все с фильтрами.
func (h *Handler) GetTransportationRequests(ctx *gin.Context) {
	profile, ok := h.currentProfile(ctx)
	if !ok {
		fail(ctx, http.StatusUnauthorized, "authentication required")
		return
	}

	if profile.Role != ds.RoleAdmin {
		requests, err := h.Repository.GetTransportationRequestsForCustomer(profile.ID)
		if err != nil {
			fail(ctx, http.StatusInternalServerError, "failed to get transportation requests")
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"status": "ok", "transportation_requests": requests})
		return
	}

	status := ctx.Query("status")
	dateFrom := parseDateQuery(ctx, "date_from")
	dateTo := parseDateQuery(ctx, "date_to")

	requests, err := h.Repository.GetTransportationRequests(status, dateFrom, dateTo)
	if err != nil {
		fail(ctx, http.StatusInternalServerError, "failed to get transportation requests")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "transportation_requests": requests})
}

// GetTransportationRequest - получение заявки по ID (владелец или админ)
func (h *Handler) GetTransportationRequest(ctx *gin.Context) {
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

	request, err := h.Repository.GetTransportationRequest(id)
	if err != nil {
		fail(ctx, http.StatusNotFound, "transportation request not found")
		return
	}

	if profile.Role != ds.RoleAdmin && request.CustomerID != profile.ID {
		fail(ctx, http.StatusForbidden, "access denied")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "transportation_request": request})
}

// CancelTransportationRequest - отмена заявки клиентом (до начала перевозки)
func (h *Handler) CancelTransportationRequest(ctx *gin.Context) {
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

	request, err := h.Repository.GetTransportationRequest(id)
	if err != nil {
		fail(ctx, http.StatusNotFound, "transportation request not found")
		return
	}

	if profile.Role != ds.RoleAdmin && request.CustomerID != profile.ID {
		fail(ctx, http.StatusForbidden, "access denied")
		return
	}

	switch request.Status {
	case ds.StatusCompleted, ds.StatusCancelled, ds.StatusInProgress:
		fail(ctx, http.StatusBadRequest, "заявку в этом статусе отменить нельзя")
		return
	}

	if err := h.Repository.UpdateRequestStatus(id, ds.StatusCancelled); err != nil {
		fail(ctx, http.StatusInternalServerError, "failed to cancel transportation request")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Заявка отменена"})
}

// AcceptQuote - клиент принимает ценовое предложение (quoted -> accepted)
func (h *Handler) AcceptQuote(ctx *gin.Context) {
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

	request, err := h.Repository.GetTransportationRequest(id)
	if err != nil {
		fail(ctx, http.StatusNotFound, "transportation request not found")
		return
	}

	if request.CustomerID != profile.ID {
		fail(ctx, http.StatusForbidden, "access denied")
		return
	}

	if err := h.Repository.AcceptQuoteForRequest(id); err != nil {
		fail(ctx, http.StatusBadRequest, err.Error())
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Предложение принято"})
}

// TrackOrder - публичный трекинг по номеру заказа (без авторизации, урезанный срез)
func (h *Handler) TrackOrder(ctx *gin.Context) {
	orderNumber := ctx.Param("order_number")
	if orderNumber == "" {
		fail(ctx, http.StatusBadRequest, "order number required")
		return
	}

	view, err := h.Repository.GetTrackingView(orderNumber)
	if err != nil {
		fail(ctx, http.StatusNotFound, "заказ не найден")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "tracking": view})
}
