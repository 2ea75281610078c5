package api

import (
	"fmt"
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"autohaul-app/internal/app/auth"
	"autohaul-app/internal/app/config"
	"autohaul-app/internal/app/dsn"
	"autohaul-app/internal/app/geo"
	"autohaul-app/internal/app/handler"
	"autohaul-app/internal/app/middleware"
	"autohaul-app/internal/app/repository"
	"autohaul-app/internal/app/service"
	"autohaul-app/internal/app/vin"
)

// StartServer - упрощённый запуск для локальной разработки:
// только HTTP, без прокси хранилища и swagger.
func StartServer() {
	log.Println("Starting server")

	conf, err := config.NewConfig()
	if err != nil {
		logrus.Fatalf("error loading config: %v", err)
	}

	postgresString := dsn.FromEnv()

	repo, err := repository.New(postgresString)
	if err != nil {
		logrus.Fatalf("error initializing repository: %v", err)
	}

	if conf.AutoMigrate {
		if err := repo.Migrate(); err != nil {
			logrus.Fatalf("error migrating schema: %v", err)
		}
	}

	jwtService := auth.NewJWTService(
		conf.JWTSecret,
		conf.JWTAccessTokenExpire,
		conf.JWTRefreshTokenExpire,
	)

	authService := service.NewAuthService(repo, jwtService)
	paymentService := service.NewPaymentService(repo, conf.StripeSecretKey, conf.StripeWebhookSecret)
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	vinDecoder := vin.NewDecoder(conf.VINDecoderURL)
	geocoder := geo.NewGeocoder(conf.GoogleMapsAPIKey)

	h := handler.NewHandler(repo, authService, paymentService, authMiddleware, vinDecoder, geocoder, conf.DocumentStorageDir)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Stripe-Signature"},
		AllowCredentials: true,
	}))

	// Авторизация
	r.POST("/sign_up", h.RegisterUser)
	r.POST("/login", h.LoginUser)
	r.POST("/logout", h.AuthMiddleware.RequireAuth(), h.LogoutUser)
	r.POST("/refresh", h.RefreshToken)

	// Публичные эндпоинты
	r.GET("/api/track/:order_number", h.TrackOrder)
	r.GET("/api/vin/:vin", h.DecodeVIN)
	r.GET("/api/geo/autocomplete", h.AutocompleteAddress)
	r.GET("/api/geo/geocode", h.GeocodeAddress)
	r.POST("/api/webhooks/stripe", h.StripeWebhook)

	// Пользователи
	r.GET("/api/users/me", h.AuthMiddleware.RequireAuth(), h.GetMe)
	r.PUT("/api/users/profile", h.AuthMiddleware.RequireAuth(), h.UpdateUserProfile)
	r.GET("/api/profile/:userId", h.AuthMiddleware.RequireAuth(), h.GetProfileByID)
	r.POST("/api/admin/setup", h.AuthMiddleware.RequireAuth(), h.AdminSetup)

	// Заявки на перевозку
	tr := r.Group("/api/transportation-requests")
	tr.Use(h.AuthMiddleware.RequireAuth())
	{
		tr.POST("", h.CreateTransportationRequest)
		tr.GET("", h.GetTransportationRequests)
		tr.GET("/:id", h.GetTransportationRequest)
		tr.PUT("/:id/cancel", h.CancelTransportationRequest)
		tr.PUT("/:id/accept", h.AcceptQuote)
		tr.GET("/:id/quotes", h.GetRequestQuotes)
		tr.POST("/:id/documents", h.UploadDocument)
		tr.GET("/:id/documents", h.GetRequestDocuments)
	}
	r.GET("/api/documents/:doc_id", h.AuthMiddleware.RequireAuth(), h.DownloadDocument)

	// Оплата
	r.POST("/api/create-payment-intent", h.AuthMiddleware.RequireAuth(), h.CreatePaymentIntent)

	// Админка
	ar := r.Group("/api/admin")
	ar.Use(h.AuthMiddleware.RequireAdmin())
	{
		ar.GET("/transportation-requests/unassigned", h.GetUnassignedRequests)
		ar.GET("/transportation-requests/assigned", h.GetAssignedRequests)
		ar.PUT("/transportation-requests/:id/claim", h.ClaimTransportationRequest)
		ar.POST("/transportation-requests/:id/quotes", h.CreateQuote)
		ar.PUT("/transportation-requests/:id/status", h.UpdateRequestStatus)
		ar.PUT("/transportation-requests/:id/notes", h.UpdateRequestNotes)
		ar.GET("/transportation-requests/:id/payments", h.GetRequestPayments)
		ar.GET("/stats", h.GetAdminStats)
	}

	serverAddress := fmt.Sprintf("%s:%d", conf.ServiceHost, conf.ServicePort)
	r.Run(serverAddress)
	log.Println("Server down")
}
