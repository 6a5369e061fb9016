package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string

	TelegramToken string
	WebhookURL    string
	MiniAppURL    string

	OpenAIKey           string
	AIBaseURL           string
	AIModel             string
	AIEnabled           bool
	AITimeout           time.Duration
	TranscribeModel     string
	ExtractionCacheSize int
	PhrasesFile         string

	GoogleCredentials string
	GoogleRedirectURL string

	ServerHost    string
	ServerPort    string
	JWTSigningKey string

	DefaultTimezone string
	WorkerCount     int
	UserCacheSize   int
	ReminderLead    time.Duration
	LogLevel        string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("Не найден файл .env")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getEnv("POSTGRES_DB", "assistant"),

		TelegramToken: getEnv("TELEGRAM_TOKEN", ""),
		WebhookURL:    getEnv("WEBHOOK_URL", ""),
		MiniAppURL:    getEnv("MINIAPP_URL", ""),

		OpenAIKey:           getEnv("OPENAI_KEY", ""),
		AIBaseURL:           getEnv("AI_BASE_URL", ""),
		AIModel:             getEnv("AI_MODEL", "gpt-4.1-mini"),
		AIEnabled:           getEnvBool("AI_ENABLED", true),
		AITimeout:           getEnvDuration("AI_TIMEOUT", 8*time.Second),
		TranscribeModel:     getEnv("TRANSCRIBE_MODEL", "whisper-1"),
		ExtractionCacheSize: getEnvInt("EXTRACTION_CACHE_SIZE", 512),
		PhrasesFile:         getEnv("PHRASES_FILE", ""),

		GoogleCredentials: getEnv("GOOGLE_CREDENTIALS", ""),
		GoogleRedirectURL: getEnv("GOOGLE_REDIRECT_URL", ""),

		ServerHost:    getEnv("SERVER_HOST", "0.0.0.0"),
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		JWTSigningKey: getEnv("JWT_SIGNING_KEY", "your-secret-signing-key"),

		DefaultTimezone: getEnv("DEFAULT_TIMEZONE", "Europe/Moscow"),
		WorkerCount:     getEnvInt("WORKER_COUNT", 8),
		UserCacheSize:   getEnvInt("USER_CACHE_SIZE", 1024),
		ReminderLead:    getEnvDuration("REMINDER_LEAD", 30*time.Minute),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
}

// Location resolves DefaultTimezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		logrus.Warnf("Неизвестный часовой пояс %q, используем UTC: %v", c.DefaultTimezone, err)
		return time.UTC
	}
	return loc
}

// AIConfigured reports whether an extraction endpoint can be reached: either
// an API key for OpenAI or a custom base URL such as a local Ollama.
func (c *Config) AIConfigured() bool {
	return c.AIEnabled && (c.OpenAIKey != "" || c.AIBaseURL != "")
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		logrus.Warnf("Некорректное значение %s=%q, используем %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		logrus.Warnf("Некорректное значение %s=%q, используем %t", key, value, defaultValue)
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		logrus.Warnf("Некорректное значение %s=%q, используем %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
