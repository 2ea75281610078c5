package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"autohaul-app/internal/app/geo"
)

// ==================== ГЕОКОДИРОВАНИЕ ====================

// AutocompleteAddress - подсказки адресов по введённому тексту.
// При недоступности внешнего сервиса отвечаем деградированной формой,
// чтобы клиент переключился на ручной ввод, а не показывал ошибку.
func (h *Handler) AutocompleteAddress(ctx *gin.Context) {
	input := ctx.Query("input")
	if input == "" {
		fail(ctx, http.StatusBadRequest, "input query parameter required")
		return
	}

	predictions, err := h.Geocoder.Autocomplete(ctx.Request.Context(), input)
	if errors.Is(err, geo.ErrUnavailable) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":       "degraded",
			"manual_entry": true,
			"predictions":  []geo.Prediction{},
		})
		return
	}
	if err != nil {
		fail(ctx, http.StatusInternalServerError, "autocomplete failed")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "predictions": predictions})
}

// GeocodeAddress - геокодирование адреса в нормализованную форму с координатами
func (h *Handler) GeocodeAddress(ctx *gin.Context) {
	address := ctx.Query("address")
	if address == "" {
		fail(ctx, http.StatusBadRequest, "address query parameter required")
		return
	}

	result, err := h.Geocoder.Geocode(ctx.Request.Context(), address)
	if errors.Is(err, geo.ErrUnavailable) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":       "degraded",
			"manual_entry": true,
		})
		return
	}
	if err != nil {
		fail(ctx, http.StatusNotFound, err.Error())
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "address": result})
}
