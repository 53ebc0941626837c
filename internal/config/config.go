package config

import (
	"errors"
	"strings"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort            string   `env:"HTTP_PORT" envDefault:"8080"`
	StorageDriver       string   `env:"STORAGE_DRIVER" envDefault:"postgres"`
	DatabaseURL         string   `env:"DATABASE_URL"`
	DBMaxConns          int32    `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns          int32    `env:"DB_MIN_CONNS" envDefault:"1"`
	MemoryProfiles      []string `env:"MEMORY_PROFILES" envSeparator:","`
	JWTSecret           string   `env:"JWT_SECRET"`
	JWTIssuer           string   `env:"JWT_ISSUER"`
	RedisAddr           string   `env:"REDIS_ADDR"`
	RedisPassword       string   `env:"REDIS_PASSWORD"`
	RedisDB             int      `env:"REDIS_DB" envDefault:"0"`
	BroadcastProvider   string   `env:"BROADCAST_PROVIDER" envDefault:"redis"`
	BroadcastEvent      string   `env:"BROADCAST_EVENT" envDefault:"chat-message"`
	PusherAppID         string   `env:"PUSHER_APP_ID"`
	PusherKey           string   `env:"PUSHER_KEY"`
	PusherSecret        string   `env:"PUSHER_SECRET"`
	PusherCluster       string   `env:"PUSHER_CLUSTER" envDefault:"ap3"`
	LLMProvider         string   `env:"LLM_PROVIDER" envDefault:"gemini"`
	LLMAPIKey           string   `env:"LLM_API_KEY"`
	LLMBaseURL          string   `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel            string   `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	GeminiAPIKey        string   `env:"GEMINI_API_KEY"`
	GeminiModel         string   `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	SendRateWindowSecs  int      `env:"SEND_RATE_WINDOW_SECONDS" envDefault:"60"`
	SendRateMax         int      `env:"SEND_RATE_MAX" envDefault:"30"`
	HistoryDefaultLimit int      `env:"HISTORY_DEFAULT_LIMIT" envDefault:"50"`
	CORSAllowedOrigins  []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

// ClientConfig agrupa la configuración del cliente de chat por terminal.
type ClientConfig struct {
	APIURL       string `env:"CHAT_API_URL" envDefault:"http://localhost:8080"`
	AccessToken  string `env:"CHAT_ACCESS_TOKEN,required"`
	UserID       string `env:"CHAT_USER_ID,required"`
	RecipientID  string `env:"CHAT_RECIPIENT_ID"`
	JobID        string `env:"CHAT_JOB_ID"`
	JobTitle     string `env:"CHAT_JOB_TITLE"`
	PollInterval int    `env:"CHAT_POLL_INTERVAL_SECONDS" envDefault:"3"`
	HistoryLimit int    `env:"CHAT_HISTORY_LIMIT" envDefault:"50"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if cfg.UsesPostgres() && cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required when STORAGE_DRIVER=postgres")
	}
	return &cfg, nil
}

// UsesPostgres indica si el almacenamiento de mensajes va contra Postgres.
func (c *Config) UsesPostgres() bool {
	return !strings.EqualFold(strings.TrimSpace(c.StorageDriver), "memory")
}

// LoadClientConfig carga la configuración del cliente desde variables de entorno.
func LoadClientConfig() (*ClientConfig, error) {
	var cfg ClientConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
