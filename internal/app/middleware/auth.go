package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"autohaul-app/internal/app/auth"
	"autohaul-app/internal/app/ds"
)

// AuthMiddleware - middleware для проверки авторизации
type AuthMiddleware struct {
	jwtService *auth.JWTService
}

// NewAuthMiddleware - создание нового middleware
// Авторизация только по JWT, без серверных сессий.
func NewAuthMiddleware(jwtService *auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
	}
}

// RequireAuth - middleware для обязательной авторизации
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := am.extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "Authorization token required",
			})
			c.Abort()
			return
		}

		// Валидируем токен
		claims, err := am.jwtService.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "Invalid token",
			})
			c.Abort()
			return
		}

		if claims.Type != "access" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "Invalid token type",
			})
			c.Abort()
			return
		}

		// Сохраняем информацию о пользователе в контексте
		c.Set("user_uuid", claims.UserUUID)
		c.Set("user_role", claims.Role)
		c.Set("token_claims", claims)

		c.Next()
	}
}

// RequireAdmin - middleware для админских маршрутов.
// Различаем ровно три исхода: нет токена (401), не админ (403), админ (пропускаем).
func (am *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		// Сначала проверяем авторизацию
		token := am.extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "Authorization token required",
			})
			c.Abort()
			return
		}

		// Валидируем токен
		claims, err := am.jwtService.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "Invalid token",
			})
			c.Abort()
			return
		}

		if claims.Type != "access" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "Invalid token type",
			})
			c.Abort()
			return
		}

		// Проверяем роль
		if claims.Role != ds.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{
				"status":  "error",
				"message": "Insufficient permissions - admin role required",
			})
			c.Abort()
			return
		}

		// Сохраняем информацию о пользователе в контексте
		c.Set("user_uuid", claims.UserUUID)
		c.Set("user_role", claims.Role)
		c.Set("token_claims", claims)

		c.Next()
	})
}

// OptionalAuth - middleware для опциональной авторизации
func (am *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := am.extractToken(c)
		if token == "" {
			c.Next()
			return
		}

		// Валидируем токен
		claims, err := am.jwtService.ValidateToken(token)
		if err != nil || claims.Type != "access" {
			c.Next()
			return
		}

		// Сохраняем информацию о пользователе в контексте
		c.Set("user_uuid", claims.UserUUID)
		c.Set("user_role", claims.Role)
		c.Set("token_claims", claims)

		c.Next()
	}
}

// extractToken - извлечение токена из заголовка Authorization
func (am *AuthMiddleware) extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	// Проверяем формат "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}

	return parts[1]
}

// GetUserUUID - получение UUID пользователя из контекста
func GetUserUUID(c *gin.Context) (string, bool) {
	userUUID, exists := c.Get("user_uuid")
	if !exists {
		return "", false
	}

	uuid, ok := userUUID.(string)
	return uuid, ok
}

// GetUserRole - получение роли пользователя из контекста
func GetUserRole(c *gin.Context) (string, bool) {
	userRole, exists := c.Get("user_role")
	if !exists {
		return "", false
	}

	role, ok := userRole.(string)
	return role, ok
}

// IsAuthenticated - проверка, авторизован ли пользователь
func IsAuthenticated(c *gin.Context) bool {
	_, exists := c.Get("user_uuid")
	return exists
}
