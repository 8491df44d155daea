package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr         string
	JudgeURL     string
	JudgeTimeout time.Duration
	DatabaseDSN  string
	MinMembers   int
}

// Load reads .env (when present) then the environment. Every value has a
// dev-friendly default so the server runs with no config at all.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:         getEnv("ADDR", ":3001"),
		JudgeURL:     getEnv("JUDGE_URL", "https://ce.judge0.com"),
		JudgeTimeout: getDuration("JUDGE_TIMEOUT", 20*time.Second),
		DatabaseDSN:  os.Getenv("DATABASE_DSN"),
		MinMembers:   getInt("ROOM_MIN_MEMBERS", 2),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
