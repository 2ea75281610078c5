package handler

import (
	"github.com/gin-gonic/gin"

	"autohaul-app/internal/app/ds"
	"autohaul-app/internal/app/geo"
	"autohaul-app/internal/app/middleware"
	"autohaul-app/internal/app/repository"
	"autohaul-app/internal/app/service"
	"autohaul-app/internal/app/vin"
)

type Handler struct {
	Repository     *repository.Repository
	AuthService    *service.AuthService
	PaymentService *service.PaymentService
	AuthMiddleware *middleware.AuthMiddleware
	VINDecoder     *vin.Decoder
	Geocoder       *geo.Geocoder
	DocumentsDir   string
}

func NewHandler(
	r *repository.Repository,
	authService *service.AuthService,
	paymentService *service.PaymentService,
	authMiddleware *middleware.AuthMiddleware,
	vinDecoder *vin.Decoder,
	geocoder *geo.Geocoder,
	documentsDir string,
) *Handler {
	return &Handler{
		Repository:     r,
		AuthService:    authService,
		PaymentService: paymentService,
		AuthMiddleware: authMiddleware,
		VINDecoder:     vinDecoder,
		Geocoder:       geocoder,
		DocumentsDir:   documentsDir,
	}
}

// helper для единых ошибок
func fail(ctx *gin.Context, code int, message string) {
	ctx.JSON(code, gin.H{
		"status":  "fail",
		"message": message,
	})
}

// currentProfile - профиль текущего пользователя из контекста запроса
func (h *Handler) currentProfile(ctx *gin.Context) (ds.Profile, bool) {
	userUUID, exists := middleware.GetUserUUID(ctx)
	if !exists {
		return ds.Profile{}, false
	}

	profile, err := h.Repository.GetProfileByUUID(userUUID)
	if err != nil {
		return ds.Profile{}, false
	}
	return profile, true
}
