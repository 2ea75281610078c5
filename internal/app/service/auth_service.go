package service

import (
	"errors"
	"time"

	"autohaul-app/internal/app/auth"
	"autohaul-app/internal/app/ds"
	"autohaul-app/internal/app/repository"
)

// AuthService - сервис авторизации
type AuthService struct {
	repo       *repository.Repository
	jwtService *auth.JWTService
}

// NewAuthService - создание нового сервиса авторизации
// Авторизация только по JWT, без серверных сессий.
func NewAuthService(repo *repository.Repository, jwtService *auth.JWTService) *AuthService {
	return &AuthService{
		repo:       repo,
		jwtService: jwtService,
	}
}

// RegisterRequest - запрос на регистрацию
type RegisterRequest struct {
	Login    string `json:"login" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone"`
}

// LoginRequest - запрос на вход
type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse - ответ авторизации
type AuthResponse struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	User         ds.Profile `json:"user"`
	ExpiresAt    time.Time  `json:"expires_at"`
}

// Register - регистрация пользователя.
// Роль всегда customer: админа можно назначить только через привилегированный endpoint.
func (s *AuthService) Register(req RegisterRequest) (*AuthResponse, error) {
	// Проверяем, что пользователь с таким логином не существует
	_, err := s.repo.GetProfileByLogin(req.Login)
	if err == nil {
		return nil, errors.New("user with this login already exists")
	}

	// Создаем профиль
	profile := ds.Profile{
		Login:    req.Login,
		Email:    req.Email,
		Password: req.Password, // пароль будет захеширован в handler
		Name:     req.Name,
		Phone:    req.Phone,
		Role:     ds.RoleCustomer,
	}

	if err := s.repo.CreateProfile(&profile); err != nil {
		return nil, errors.New("failed to create user")
	}

	// Генерируем токены
	accessToken, err := s.jwtService.GenerateAccessToken(profile.UUID, profile.Role)
	if err != nil {
		return nil, errors.New("failed to generate access token")
	}

	refreshToken, err := s.jwtService.GenerateRefreshToken(profile.UUID, profile.Role)
	if err != nil {
		return nil, errors.New("failed to generate refresh token")
	}

	// Убираем пароль из ответа
	profile.Password = ""

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         profile,
		ExpiresAt:    time.Now().Add(15 * time.Minute), // время жизни access токена
	}, nil
}

// Login - вход пользователя
func (s *AuthService) Login(req LoginRequest, hashedPassword string) (*AuthResponse, error) {
	// Получаем пользователя по логину
	profile, err := s.repo.GetProfileByLogin(req.Login)
	if err != nil {
		return nil, errors.New("invalid credentials")
	}

	// Проверяем пароль (хеш уже проверен в handler)
	if profile.Password != hashedPassword {
		return nil, errors.New("invalid credentials")
	}

	// Генерируем токены
	accessToken, err := s.jwtService.GenerateAccessToken(profile.UUID, profile.Role)
	if err != nil {
		return nil, errors.New("failed to generate access token")
	}

	refreshToken, err := s.jwtService.GenerateRefreshToken(profile.UUID, profile.Role)
	if err != nil {
		return nil, errors.New("failed to generate refresh token")
	}

	// Убираем пароль из ответа
	profile.Password = ""

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         profile,
		ExpiresAt:    time.Now().Add(15 * time.Minute), // время жизни access токена
	}, nil
}

// Logout - выход пользователя
func (s *AuthService) Logout(userUUID, accessToken string) error {
	// Stateless JWT: сервер не хранит сессии. Выход — это "забыть токен" на клиенте.
	_ = userUUID
	_ = accessToken
	return nil
}

// RefreshTokens - обновление токенов
func (s *AuthService) RefreshTokens(refreshToken string) (*AuthResponse, error) {
	// Валидируем refresh токен
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil {
		return nil, errors.New("invalid refresh token")
	}

	if claims.Type != "refresh" {
		return nil, errors.New("invalid token type")
	}

	// Получаем пользователя
	profile, err := s.repo.GetProfileByUUID(claims.UserUUID)
	if err != nil {
		return nil, errors.New("user not found")
	}

	// Генерируем новые токены (stateless)
	accessToken, newRefreshToken, err := s.jwtService.RefreshTokenPair(refreshToken)
	if err != nil {
		return nil, errors.New("failed to refresh token pair")
	}

	// Убираем пароль из ответа
	profile.Password = ""

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		User:         profile,
		ExpiresAt:    time.Now().Add(15 * time.Minute), // время жизни access токена
	}, nil
}

// GrantAdmin - привилегированное назначение роли admin
// После смены роли старые access токены продолжают нести роль customer до обновления пары.
func (s *AuthService) GrantAdmin(userUUID string) (ds.Profile, error) {
	profile, err := s.repo.GrantAdminRole(userUUID)
	if err != nil {
		return ds.Profile{}, err
	}
	profile.Password = ""
	return profile, nil
}
