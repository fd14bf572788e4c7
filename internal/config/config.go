package config

import (
	"os"
	"strings"
)

type AppConfig struct {
	Port        string
	CORSOrigins []string
	PostgresCfg PostgresConfig
	RedisCfg    RedisConfig
	MinioCfg    MinioConfig
	RabbitMQCfg RabbitMQConfig
	AuthCfg     AuthConfig
	PlantIDCfg  PlantIDConfig
	GeminiCfg   GeminiConfig
	WeatherCfg  WeatherConfig
}

type PostgresConfig struct {
	DBname   string
	Username string
	Password string
	Host     string
	Port     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type MinioConfig struct {
	MinioUrl       string
	MinioAccessKey string
	MinioSecretKey string
	MinioSecure    string
	MinioLocation  string
	PublicBaseURL  string
}

type RabbitMQConfig struct {
	Username string
	Password string
	Host     string
	Port     string
}

type AuthConfig struct {
	JWTSecret string
}

type PlantIDConfig struct {
	APIKey  string
	BaseURL string
}

type GeminiConfig struct {
	APIKeys        []string
	FlashModelName string
	ProModelName   string
}

type WeatherConfig struct {
	APIKey  string
	BaseURL string
}

func New() *AppConfig {
	return &AppConfig{
		Port:        getEnvOrDefault("PORT", "8080"),
		CORSOrigins: splitAndTrim(getEnvOrDefault("CORS_ORIGINS", "http://localhost:5173")),
		PostgresCfg: PostgresConfig{
			DBname:   getEnvOrDefault("DB_NAME", "agrismart"),
			Username: os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PWD"),
			Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
			Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
		},
		RedisCfg: RedisConfig{
			Host:     getEnvOrDefault("REDIS_HOST", "localhost"),
			Port:     getEnvOrDefault("REDIS_PORT", "6379"),
			Password: os.Getenv("REDIS_PWD"),
			DB:       0,
		},
		MinioCfg: MinioConfig{
			MinioUrl:       os.Getenv("MINIO_URL"),
			MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
			MinioSecure:    getEnvOrDefault("MINIO_SECURE", "false"),
			MinioLocation:  getEnvOrDefault("MINIO_LOCATION", "us-east-1"),
			PublicBaseURL:  os.Getenv("MINIO_PUBLIC_URL"),
		},
		RabbitMQCfg: RabbitMQConfig{
			Username: os.Getenv("RABBITMQ_USER"),
			Password: os.Getenv("RABBITMQ_PWD"),
			Host:     getEnvOrDefault("RABBITMQ_HOST", "localhost"),
			Port:     getEnvOrDefault("RABBITMQ_PORT", "5672"),
		},
		AuthCfg: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
		},
		PlantIDCfg: PlantIDConfig{
			APIKey:  os.Getenv("PLANT_ID_API_KEY"),
			BaseURL: getEnvOrDefault("PLANT_ID_BASE_URL", "https://plant.id/api/v3"),
		},
		GeminiCfg: GeminiConfig{
			APIKeys:        splitAndTrim(os.Getenv("GEMINI_API_KEYS")),
			FlashModelName: getEnvOrDefault("GEMINI_FLASH_MODEL", "gemini-1.5-flash"),
			ProModelName:   getEnvOrDefault("GEMINI_PRO_MODEL", "gemini-2.5-pro"),
		},
		WeatherCfg: WeatherConfig{
			APIKey:  os.Getenv("OPENWEATHER_KEY"),
			BaseURL: getEnvOrDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5"),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
