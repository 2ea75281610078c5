package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"autohaul-app/internal/app/vin"
)

// DecodeVIN - декодирование VIN номера
// @Summary Decode VIN
// @Description Validate VIN format locally, then decode make/model/year via external service
// @Tags vin
// @Produce json
// @Param vin path string true "17-character VIN"
// @Success 200 {object} vin.Result "Decoded vehicle info"
// @Failure 400 {object} map[string]string "Malformed VIN"
// @Failure 502 {object} map[string]string "Decoder unavailable"
// @Router /api/vin/{vin} [get]
func (h *Handler) DecodeVIN(ctx *gin.Context) {
	candidate := ctx.Param("vin")

	// Локальная проверка формата: при невалидном входе в сеть не ходим
	if err := vin.ValidateFormat(candidate); err != nil {
		fail(ctx, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.VINDecoder.Decode(ctx.Request.Context(), candidate)
	if err != nil {
		logrus.Error(err)
		// Недоступность декодера - деградация до ручного ввода на форме
		ctx.JSON(http.StatusBadGateway, gin.H{
			"status":       "degraded",
			"manual_entry": true,
			"message":      "сервис декодирования VIN недоступен, заполните данные вручную",
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "result": result})
}
