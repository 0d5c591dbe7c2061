package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

func init() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()
}

type Config struct {
	// Anthropic
	AnthropicAPIKey   string
	ClaudeModel       string
	ClaudeTemperature float64

	// Google Calendar OAuth
	GoogleCredentialsFile string
	GoogleTokenFile       string
	CalendarID            string

	// Outgoing mail
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	ResendAPIKey string
	FromAddress  string
	FromName     string

	// Incoming mail
	IMAPServer   string
	IMAPUsername string
	IMAPPassword string
	IMAPFolder   string

	// Web search
	SerperAPIKey  string
	TavilyAPIKey  string
	GoogleCSEKey  string
	GoogleCSEID   string
	BingAPIKey    string
	MaxSearchHits int
	SearchTimeout int

	// Service
	DBPath          string
	HTTPPort        int
	KnowledgeDir    string
	PollIntervalSec int
	MaxEmailsPoll   int
	WorkerCount     int
	AutoSendReplies bool
}

func LoadFromEnv() *Config {
	cfg := &Config{
		AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		ClaudeModel:       getEnvOrDefault("MAILPILOT_CLAUDE_MODEL", "claude-sonnet-4-20250514"),
		ClaudeTemperature: getEnvAsFloatOrDefault("MAILPILOT_CLAUDE_TEMPERATURE", 0.3),

		GoogleCredentialsFile: getEnvOrDefault("GOOGLE_CREDENTIALS_FILE", "./credentials.json"),
		GoogleTokenFile:       getEnvOrDefault("GOOGLE_TOKEN_FILE", "./token.json"),
		CalendarID:            getEnvOrDefault("MAILPILOT_CALENDAR_ID", "primary"),

		SMTPHost:     getEnvOrDefault("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getEnvAsIntOrDefault("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		FromAddress:  os.Getenv("MAILPILOT_FROM_ADDRESS"),
		FromName:     getEnvOrDefault("MAILPILOT_FROM_NAME", "Email Assistant"),

		IMAPServer:   getEnvOrDefault("IMAP_SERVER", "imap.gmail.com:993"),
		IMAPUsername: os.Getenv("IMAP_USERNAME"),
		IMAPPassword: os.Getenv("IMAP_PASSWORD"),
		IMAPFolder:   getEnvOrDefault("IMAP_FOLDER", "INBOX"),

		SerperAPIKey:  os.Getenv("SERPER_API_KEY"),
		TavilyAPIKey:  os.Getenv("TAVILY_API_KEY"),
		GoogleCSEKey:  os.Getenv("GOOGLE_CSE_API_KEY"),
		GoogleCSEID:   os.Getenv("GOOGLE_CSE_ID"),
		BingAPIKey:    os.Getenv("BING_API_KEY"),
		MaxSearchHits: getEnvAsIntOrDefault("MAILPILOT_MAX_SEARCH_HITS", 5),
		SearchTimeout: getEnvAsIntOrDefault("MAILPILOT_SEARCH_TIMEOUT_SEC", 10),

		DBPath:          getEnvOrDefault("MAILPILOT_DB_PATH", "./mailpilot.db"),
		HTTPPort:        getEnvAsIntOrDefault("MAILPILOT_HTTP_PORT", 8080),
		KnowledgeDir:    getEnvOrDefault("MAILPILOT_KNOWLEDGE_DIR", "./knowledge"),
		PollIntervalSec: getEnvAsIntOrDefault("MAILPILOT_POLL_INTERVAL_SEC", 300),
		MaxEmailsPoll:   getEnvAsIntOrDefault("MAILPILOT_MAX_EMAILS_PER_POLL", 10),
		WorkerCount:     getEnvAsIntOrDefault("MAILPILOT_WORKER_COUNT", 2),
		AutoSendReplies: getEnvAsBoolOrDefault("MAILPILOT_AUTO_SEND_REPLIES", false),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
