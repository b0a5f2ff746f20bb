package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	DatabaseURL      string
	DatabaseType     string // "postgres" or "sqlite"
	MaxPlayers       int
	RoomCodeLength   int
	ChatMessageLimit int
	QuestionTimers   bool
	TimerGrace       int // seconds
	PersistTimeout   int // seconds
	AllowedOrigins   []string
	ReadLimit        int64
}

// Load reads the environment, seeded from a .env file when one exists.
// Variables already present in the environment win over the file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DatabaseType:     getEnv("DATABASE_TYPE", "postgres"),
		MaxPlayers:       getEnvInt("MAX_PLAYERS", 10),
		RoomCodeLength:   getEnvInt("ROOM_CODE_LENGTH", 12),
		ChatMessageLimit: getEnvInt("CHAT_MESSAGE_LIMIT", 200),
		QuestionTimers:   getEnvBool("QUESTION_TIMERS", true),
		TimerGrace:       getEnvInt("QUESTION_TIMER_GRACE", 2),
		PersistTimeout:   getEnvInt("PERSIST_TIMEOUT", 5),
		AllowedOrigins:   getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		ReadLimit:        int64(getEnvInt("READ_LIMIT", 1<<20)),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
