// @title AutoHaul API
// @version 1.0
// @description API for auto-transportation logistics brokerage
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token for authentication. Format: 'Bearer <token>'
package main

import (
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

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

	// Swagger imports
	_ "autohaul-app/docs"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func main() {
	logrus.Info("Application start up")

	// Загружаем конфигурацию
	conf, err := config.NewConfig()
	if err != nil {
		logrus.Fatalf("error loading config: %v", err)
	}

	// Получаем строку подключения к БД
	postgresString := dsn.FromEnv()

	// Инициализируем репозиторий
	repo, err := repository.New(postgresString)
	if err != nil {
		logrus.Fatalf("error initializing repository: %v", err)
	}

	if conf.AutoMigrate {
		if err := repo.Migrate(); err != nil {
			logrus.Fatalf("error migrating schema: %v", err)
		}
	}

	// Инициализируем JWT сервис
	jwtService := auth.NewJWTService(
		conf.JWTSecret,
		conf.JWTAccessTokenExpire,
		conf.JWTRefreshTokenExpire,
	)

	// Инициализируем сервисы
	authService := service.NewAuthService(repo, jwtService)
	paymentService := service.NewPaymentService(repo, conf.StripeSecretKey, conf.StripeWebhookSecret)

	// Инициализируем middleware авторизации
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	// Внешние интеграции
	vinDecoder := vin.NewDecoder(conf.VINDecoderURL)
	geocoder := geo.NewGeocoder(conf.GoogleMapsAPIKey)

	// Создаем хендлер
	h := handler.NewHandler(repo, authService, paymentService, authMiddleware, vinDecoder, geocoder, conf.DocumentStorageDir)

	// Создаем роутер
	r := gin.Default()

	// Настраиваем CORS для работы веб-клиента
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Stripe-Signature"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Прокси для файлового хранилища
	r.Any("/files/*path", func(c *gin.Context) {
		path := c.Param("path")
		storageURL := fmt.Sprintf("%s%s", conf.StorageProxyURL, path)

		// Создаем запрос к хранилищу
		req, err := http.NewRequest(c.Request.Method, storageURL, c.Request.Body)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create request"})
			return
		}

		// Копируем заголовки
		for key, values := range c.Request.Header {
			for _, value := range values {
				req.Header.Add(key, value)
			}
		}

		// Выполняем запрос
		client := &http.Client{Timeout: 30 * time.Second}
		resp, err := client.Do(req)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to connect to storage"})
			return
		}
		defer resp.Body.Close()

		// Копируем заголовки ответа
		for key, values := range resp.Header {
			for _, value := range values {
				c.Header(key, value)
			}
		}

		c.Status(resp.StatusCode)
		io.Copy(c.Writer, resp.Body)
	})

	// Регистрируем маршруты
	registerRoutes(r, h)

	// Обработчик для неизвестных маршрутов (SPA fallback)
	// Фронтенд маршруты обрабатывает React Router на клиенте
	r.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api") ||
			strings.HasPrefix(path, "/files") ||
			strings.HasPrefix(path, "/swagger") {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Route not found",
				"message": "This route should be handled",
			})
			return
		}

		// Для фронтенд роутов не возвращаем ошибку, чтобы не мешать SPA роутингу
		c.Status(http.StatusOK)
		c.Writer.WriteHeaderNow()
	})

	// Запускаем сервер
	serverAddress := fmt.Sprintf("%s:%d", conf.ServiceHost, conf.ServicePort)

	if conf.EnableHTTPS {
		logrus.Infof("Starting HTTPS server on %s", serverAddress)

		// Загружаем сертификат для проверки
		cert, err := tls.LoadX509KeyPair(conf.CertFile, conf.KeyFile)
		if err != nil {
			logrus.Fatalf("Failed to load certificate: %v", err)
		}
		logrus.Infof("Certificate loaded successfully from %s", conf.CertFile)

		srv := &http.Server{
			Addr:    serverAddress,
			Handler: r,
			TLSConfig: &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
				MaxVersion:   tls.VersionTLS13,
			},
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		logrus.Info("HTTPS server is ready to accept connections")
		if err := srv.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start HTTPS server: %v", err)
		}
	} else {
		logrus.Infof("Starting HTTP server on %s", serverAddress)
		if err := r.Run(serverAddress); err != nil {
			logrus.Fatal(err)
		}
	}
	logrus.Info("Application terminated")
}

func registerRoutes(r *gin.Engine, h *handler.Handler) {
	// Авторизация
	r.POST("/sign_up", h.RegisterUser)
	r.POST("/login", h.LoginUser)
	r.POST("/logout", h.AuthMiddleware.RequireAuth(), h.LogoutUser)
	r.POST("/refresh", h.RefreshToken)

	// Публичный трекинг заказа по номеру
	r.GET("/api/track/:order_number", h.TrackOrder)

	// Внешние интеграции (доступны формам до авторизации)
	r.GET("/api/vin/:vin", h.DecodeVIN)
	r.GET("/api/geo/autocomplete", h.AutocompleteAddress)
	r.GET("/api/geo/geocode", h.GeocodeAddress)

	// Вебхук платёжного провайдера (подпись проверяется внутри)
	r.POST("/api/webhooks/stripe", h.StripeWebhook)

	// Пользователи (требуют авторизации)
	userGroup := r.Group("/api/users")
	userGroup.Use(h.AuthMiddleware.RequireAuth())
	{
		userGroup.GET("/me", h.GetMe)
		userGroup.GET("/profile", h.GetMe)
		userGroup.PUT("/profile", h.UpdateUserProfile)
	}

	// Привилегированный просмотр профиля (fallback разрешения сессии)
	r.GET("/api/profile/:userId", h.AuthMiddleware.RequireAuth(), h.GetProfileByID)

	// Назначение роли admin
	r.POST("/api/admin/setup", h.AuthMiddleware.RequireAuth(), h.AdminSetup)

	// Заявки на перевозку (требуют авторизации)
	requestGroup := r.Group("/api/transportation-requests")
	requestGroup.Use(h.AuthMiddleware.RequireAuth())
	{
		requestGroup.POST("", h.CreateTransportationRequest)
		requestGroup.GET("", h.GetTransportationRequests)
		requestGroup.GET("/:id", h.GetTransportationRequest)
		requestGroup.PUT("/:id/cancel", h.CancelTransportationRequest)
		requestGroup.PUT("/:id/accept", h.AcceptQuote)
		requestGroup.GET("/:id/quotes", h.GetRequestQuotes)
		requestGroup.POST("/:id/documents", h.UploadDocument)
		requestGroup.GET("/:id/documents", h.GetRequestDocuments)
	}
	r.GET("/api/documents/:doc_id", h.AuthMiddleware.RequireAuth(), h.DownloadDocument)

	// Оплата (клиент создаёт интент под предложение)
	r.POST("/api/create-payment-intent", h.AuthMiddleware.RequireAuth(), h.CreatePaymentIntent)

	// Админка
	adminGroup := r.Group("/api/admin")
	adminGroup.Use(h.AuthMiddleware.RequireAdmin())
	{
		adminGroup.GET("/transportation-requests/unassigned", h.GetUnassignedRequests)
		adminGroup.GET("/transportation-requests/assigned", h.GetAssignedRequests)
		adminGroup.PUT("/transportation-requests/:id/claim", h.ClaimTransportationRequest)
		adminGroup.POST("/transportation-requests/:id/quotes", h.CreateQuote)
		adminGroup.PUT("/transportation-requests/:id/status", h.UpdateRequestStatus)
		adminGroup.PUT("/transportation-requests/:id/notes", h.UpdateRequestNotes)
		adminGroup.GET("/transportation-requests/:id/payments", h.GetRequestPayments)
		adminGroup.GET("/stats", h.GetAdminStats)
	}

	// Swagger документация
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
