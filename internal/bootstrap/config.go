package bootstrap

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr     string
	LogLevel       string
	AllowedOrigins []string

	GeminiAPIKey   string
	GeminiModel    string
	GeminiTTSModel string
	GeminiVoice    string
	SpeechEnabled  bool

	MaxQuestions      int
	SettleDelay       time.Duration
	GenerationTimeout time.Duration
	MessageRate       float64
	MessageBurst      int

	HTTPRate  float64
	HTTPBurst int

	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// LoadConfig reads the environment, after loading an optional .env file
// from the working directory.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerAddr:     getEnv("SERVER_ADDR", ":8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS"),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiTTSModel: getEnv("GEMINI_TTS_MODEL", "gemini-2.5-flash-preview-tts"),
		GeminiVoice:    getEnv("GEMINI_VOICE", "Kore"),
		SpeechEnabled:  getEnvBool("SPEECH_ENABLED", false),

		MaxQuestions:      getEnvInt("MAX_QUESTIONS", 20),
		SettleDelay:       getEnvDuration("SETTLE_DELAY", 5*time.Second),
		GenerationTimeout: getEnvDuration("GENERATION_TIMEOUT", 60*time.Second),
		MessageRate:       getEnvFloat("MESSAGE_RATE", 2),
		MessageBurst:      getEnvInt("MESSAGE_BURST", 5),

		HTTPRate:  getEnvFloat("HTTP_RATE", 10),
		HTTPBurst: getEnvInt("HTTP_BURST", 20),

		DatabaseDSN: getEnv("DATABASE_DSN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
