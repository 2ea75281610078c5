package config

import (
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config - конфигурация сервиса из переменных окружения
type Config struct {
	ServiceHost string `env:"SERVICE_HOST,default=0.0.0.0"`
	ServicePort int    `env:"SERVICE_PORT,default=8080"`

	EnableHTTPS bool   `env:"ENABLE_HTTPS,default=false"`
	CertFile    string `env:"CERT_FILE,default=certs/server.crt"`
	KeyFile     string `env:"KEY_FILE,default=certs/server.key"`

	JWTSecret             string        `env:"JWT_SECRET,default=autohaul-dev-secret"`
	JWTAccessTokenExpire  time.Duration `env:"JWT_ACCESS_TTL,default=15m"`
	JWTRefreshTokenExpire time.Duration `env:"JWT_REFRESH_TTL,default=720h"`

	StripeSecretKey     string `env:"STRIPE_SECRET_KEY,default="`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET,default="`

	GoogleMapsAPIKey string `env:"GOOGLE_MAPS_API_KEY,default="`

	VINDecoderURL string `env:"VIN_DECODER_URL,default=https://vpic.nhtsa.dot.gov/api"`

	DocumentStorageDir string `env:"DOCUMENT_STORAGE_DIR,default=uploads"`
	StorageProxyURL    string `env:"STORAGE_PROXY_URL,default=http://localhost:9003"`

	// Выполнять ли AutoMigrate при старте (для dev-окружения)
	AutoMigrate bool `env:"DB_AUTO_MIGRATE,default=false"`
}

// NewConfig - загрузка конфигурации (сначала .env если есть, потом окружение)
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	var conf Config
	if err := envdecode.Decode(&conf); err != nil {
		return nil, err
	}
	return &conf, nil
}
