package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTService - сервис выпуска и проверки JWT токенов (stateless, без сессий)
type JWTService struct {
	secret        []byte
	accessExpire  time.Duration
	refreshExpire time.Duration
}

// Claims - полезная нагрузка токена
type Claims struct {
	UserUUID string `json:"user_uuid"`
	Role     string `json:"role"`
	Type     string `json:"type"` // access или refresh
	jwt.RegisteredClaims
}

// NewJWTService - создание сервиса JWT
func NewJWTService(secret string, accessExpire, refreshExpire time.Duration) *JWTService {
	return &JWTService{
		secret:        []byte(secret),
		accessExpire:  accessExpire,
		refreshExpire: refreshExpire,
	}
}

// GenerateAccessToken - выпуск access токена
func (s *JWTService) GenerateAccessToken(userUUID, role string) (string, error) {
	return s.generate(userUUID, role, "access", s.accessExpire)
}

// GenerateRefreshToken - выпуск refresh токена
func (s *JWTService) GenerateRefreshToken(userUUID, role string) (string, error) {
	return s.generate(userUUID, role, "refresh", s.refreshExpire)
}

func (s *JWTService) generate(userUUID, role, tokenType string, expire time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserUUID: userUUID,
		Role:     role,
		Type:     tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expire)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken - проверка подписи и срока действия токена
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// RefreshTokenPair - выпуск новой пары токенов по refresh токену
func (s *JWTService) RefreshTokenPair(refreshToken string) (string, string, error) {
	claims, err := s.ValidateToken(refreshToken)
	if err != nil {
		return "", "", err
	}
	if claims.Type != "refresh" {
		return "", "", errors.New("invalid token type")
	}

	accessToken, err := s.GenerateAccessToken(claims.UserUUID, claims.Role)
	if err != nil {
		return "", "", err
	}
	newRefreshToken, err := s.GenerateRefreshToken(claims.UserUUID, claims.Role)
	if err != nil {
		return "", "", err
	}
	return accessToken, newRefreshToken, nil
}
