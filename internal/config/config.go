package config

import (
	"flag"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	Mode         string
	APIBaseURL   string
	SocketURL    string
	PollURL      string
	Token        string
	SelfID       string
	SelfName     string
	DatabasePath string
	LogLevel     string

	ReconnectAttempts int
	ReconnectDelay    time.Duration
	ReconnectDelayMax time.Duration
}

func Load() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".erp-chat")

	cfg := &Config{}

	flag.StringVar(&cfg.Mode, "mode", "interactive", "Run mode: interactive or headless")
	flag.StringVar(&cfg.APIBaseURL, "api", getEnv("ERP_CHAT_API_URL", "http://localhost:5000/api"), "REST API base URL")
	flag.StringVar(&cfg.SocketURL, "socket", getEnv("ERP_CHAT_SOCKET_URL", "ws://localhost:5000/socket"), "Socket endpoint URL")
	flag.StringVar(&cfg.PollURL, "poll", getEnv("ERP_CHAT_POLL_URL", "http://localhost:5000/poll"), "Long-poll fallback URL (empty disables fallback)")
	flag.StringVar(&cfg.Token, "token", os.Getenv("ERP_CHAT_TOKEN"), "Bearer token for the active session")
	flag.StringVar(&cfg.SelfID, "user-id", os.Getenv("ERP_CHAT_USER_ID"), "Identifier of the signed-in user")
	flag.StringVar(&cfg.SelfName, "user-name", os.Getenv("ERP_CHAT_USER_NAME"), "Display name of the signed-in user")
	flag.StringVar(&cfg.DatabasePath, "db", getEnv("ERP_CHAT_DATABASE_PATH", filepath.Join(dataDir, "chat-cache.db")), "Local cache database path (empty disables caching)")
	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("ERP_CHAT_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	flag.IntVar(&cfg.ReconnectAttempts, "reconnect-attempts", getEnvInt("ERP_CHAT_RECONNECT_ATTEMPTS", 5), "Socket reconnection attempt ceiling")
	flag.DurationVar(&cfg.ReconnectDelay, "reconnect-delay", getEnvDuration("ERP_CHAT_RECONNECT_DELAY", time.Second), "Initial reconnection backoff")
	flag.DurationVar(&cfg.ReconnectDelayMax, "reconnect-delay-max", getEnvDuration("ERP_CHAT_RECONNECT_DELAY_MAX", 5*time.Second), "Reconnection backoff ceiling")

	flag.Parse()

	if cfg.DatabasePath != "" {
		os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755)
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
