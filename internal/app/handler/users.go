package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"autohaul-app/internal/app/ds"
	"autohaul-app/internal/app/middleware"
	"autohaul-app/internal/app/service"
)

// ==================== ПОЛЬЗОВАТЕЛИ ====================

// RegisterUser - регистрация пользователя
// @Summary Register new user
// @Description Register a new customer with login, email, password and other details
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.RegisterRequest true "Registration data"
// @Success 201 {object} service.AuthResponse "User registered successfully"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 409 {object} map[string]string "User already exists"
// @Router /sign_up [post]
func (h *Handler) RegisterUser(ctx *gin.Context) {
	var req service.RegisterRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		fail(ctx, http.StatusBadRequest, "invalid request body")
		return
	}

	// Хешируем пароль
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		fail(ctx, http.StatusInternalServerError, "failed to hash password")
		return
	}

	// Заменяем пароль на хеш
	req.Password = string(hashedPassword)

	response, err := h.AuthService.Register(req)
	if err != nil {
		if err.Error() == "user with this login already exists" {
			fail(ctx, http.StatusConflict, "user with this login already exists")
			return
		}
		fail(ctx, http.StatusInternalServerError, err.Error())
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"status":        "success",
		"message":       "User registered successfully",
		"access_token":  response.AccessToken,
		"refresh_token": response.RefreshToken,
		"user":          response.User,
		"expires_at":    response.ExpiresAt,
	})
}

// LoginUser - аутентификация
// @Summary User login
// @Description Authenticate user with login and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.LoginRequest true "Login credentials"
// @Success 200 {object} service.AuthResponse "Login successful"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Router /login [post]
func (h *Handler) LoginUser(ctx *gin.Context) {
	var req service.LoginRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		fail(ctx, http.StatusBadRequest, "invalid request body")
		return
	}

	// Получаем пользователя
	profile, err := h.Repository.GetProfileByLogin(req.Login)
	if err != nil {
		fail(ctx, http.StatusUnauthorized, "invalid credentials")
		return
	}

	// Проверяем пароль
	err = bcrypt.CompareHashAndPassword([]byte(profile.Password), []byte(req.Password))
	if err != nil {
		fail(ctx, http.StatusUnauthorized, "invalid credentials")
		return
	}

	// Используем сервис авторизации для входа
	response, err := h.AuthService.Login(req, profile.Password)
	if err != nil {
		fail(ctx, http.StatusUnauthorized, err.Error())
		return
	}

	ctx.JSON(http.StatusOK, response)
}

// LogoutUser - деавторизация
func (h *Handler) LogoutUser(ctx *gin.Context) {
	userUUID, exists := middleware.GetUserUUID(ctx)
	if !exists {
		fail(ctx, http.StatusUnauthorized, "user not authenticated")
		return
	}

	// Извлекаем токен из заголовка
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		fail(ctx, http.StatusUnauthorized, "authorization header required")
		return
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		fail(ctx, http.StatusUnauthorized, "invalid authorization header format")
		return
	}

	err := h.AuthService.Logout(userUUID, token)
	if err != nil {
		fail(ctx, http.StatusInternalServerError, "failed to logout")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Logged out successfully",
	})
}

// RefreshToken - обновление токенов
func (h *Handler) RefreshToken(ctx *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		fail(ctx, http.StatusBadRequest, "invalid request body")
		return
	}

	response, err := h.AuthService.RefreshTokens(req.RefreshToken)
	if err != nil {
		fail(ctx, http.StatusUnauthorized, err.Error())
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status":        "success",
		"message":       "Tokens refreshed successfully",
		"access_token":  response.AccessToken,
		"refresh_token": response.RefreshToken,
		"user":          response.User,
		"expires_at":    response.ExpiresAt,
	})
}

// GetMe - разрешение текущей сессии: пользователь + профиль.
// Ровно один из исходов: 401 (нет/плохой токен, отдаёт middleware),
// 200 с профилем, 200 без профиля (is_admin=false), 500 на сетевые ошибки.
func (h *Handler) GetMe(ctx *gin.Context) {
	userUUID, exists := middleware.GetUserUUID(ctx)
	if !exists {
		fail(ctx, http.StatusUnauthorized, "authentication required")
		return
	}

	profile, err := h.Repository.GetProfileByUUID(userUUID)
	if err != nil {
		// Аутентифицирован, но профиль не нашёлся: трактуем как не-админа
		ctx.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"user":     gin.H{"uuid": userUUID},
			"profile":  nil,
			"is_admin": false,
		})
		return
	}

	profile.Password = ""
	ctx.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"user":     profile,
		"profile":  profile,
		"is_admin": profile.Role == ds.RoleAdmin,
	})
}

// UpdateUserProfile - обновление профиля пользователя
func (h *Handler) UpdateUserProfile(ctx *gin.Context) {
	var req struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
		Email string `json:"email" binding:"omitempty,email"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		fail(ctx, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, ok := h.currentProfile(ctx)
	if !ok {
		fail(ctx, http.StatusUnauthorized, "authentication required")
		return
	}

	if req.Name != "" {
		profile.Name = req.Name
	}
	if req.Phone != "" {
		profile.Phone = req.Phone
	}
	if req.Email != "" {
		profile.Email = req.Email
	}

	if err := h.Repository.UpdateProfile(&profile); err != nil {
		fail(ctx, http.StatusInternalServerError, "failed to update user")
		return
	}

	profile.Password = ""
	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "user": profile})
}

// GetProfileByID - привилегированный просмотр профиля по UUID.
// Запасной путь разрешения сессии, когда обычная выборка профиля недоступна:
// свой профиль отдаём всегда, чужой - только админу.
func (h *Handler) GetProfileByID(ctx *gin.Context) {
	userUUID := ctx.Param("userId")

	requesterUUID, _ := middleware.GetUserUUID(ctx)
	requesterRole, _ := middleware.GetUserRole(ctx)
	if requesterUUID != userUUID && requesterRole != ds.RoleAdmin {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	profile, err := h.Repository.GetProfileByUUID(userUUID)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}

	profile.Password = ""
	ctx.JSON(http.StatusOK, profile)
}

// AdminSetup - привилегированное назначение роли admin.
// Первого админа может назначить любой авторизованный пользователь (bootstrap
// пустой системы), дальше роль выдаёт только действующий админ.
// @Summary Grant admin role
// @Description Elevated update of profile role, bypasses per-row access control
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body map[string]string true "User UUID"
// @Success 200 {object} map[string]interface{} "Role granted"
// @Failure 404 {object} map[string]string "User not found"
// @Router /api/admin/setup [post]
func (h *Handler) AdminSetup(ctx *gin.Context) {
	var req struct {
		UserID string `json:"userId" binding:"required"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	requesterRole, _ := middleware.GetUserRole(ctx)
	if requesterRole != ds.RoleAdmin {
		exists, err := h.Repository.AdminExists()
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check admin state"})
			return
		}
		if exists {
			ctx.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
	}

	profile, err := h.AuthService.GrantAdmin(req.UserID)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Admin role granted",
		"data":    profile,
	})
}
