package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr          string
	StoreBackend      string
	RedisAddr         string
	MongoURI          string
	MongoDatabase     string
	DatabaseURL       string
	SupabaseURL       string
	SupabaseKey       string
	KafkaBroker       string
	JWTSecret         string
	StatsCacheTTL     time.Duration
	ReconcileSchedule string
	StoreTimeout      time.Duration
	RejectionsDir     string
}

var backends = map[string]bool{
	"memory":   true,
	"redis":    true,
	"mongo":    true,
	"postgres": true,
	"supabase": true,
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Config: no .env file loaded, using process environment")
	}
	return FromEnv()
}

// FromEnv builds a Config from the environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		HTTPAddr:          getEnvOrDefault("TOURBOOK_HTTP_ADDR", ":8080"),
		StoreBackend:      strings.ToLower(getEnvOrDefault("STORE_BACKEND", "memory")),
		RedisAddr:         getEnvOrDefault("REDIS_ADDR", "redis:6379"),
		MongoURI:          getEnvOrDefault("MONGO_URI", "mongodb://mongo:27017"),
		MongoDatabase:     getEnvOrDefault("MONGO_DATABASE", "tourbook"),
		DatabaseURL:       os.Getenv("DB_URL"),
		SupabaseURL:       os.Getenv("SUPABASE_URL"),
		SupabaseKey:       os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		KafkaBroker:       os.Getenv("KAFKA_BROKER"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		ReconcileSchedule: getEnvOrDefault("RECONCILE_SCHEDULE", "@every 15m"),
		RejectionsDir:     getEnvOrDefault("REJECTIONS_DIR", "./data/rejections"),
	}
	if v, ok := os.LookupEnv("RECONCILE_SCHEDULE"); ok && v == "" {
		cfg.ReconcileSchedule = ""
	}

	var err error
	if cfg.StatsCacheTTL, err = durationEnv("STATS_CACHE_TTL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.StoreTimeout, err = durationEnv("STORE_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	if !backends[cfg.StoreBackend] {
		return nil, fmt.Errorf("STORE_BACKEND %q: want memory, redis, mongo, postgres or supabase", cfg.StoreBackend)
	}
	switch cfg.StoreBackend {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DB_URL is required for the postgres backend")
		}
	case "supabase":
		if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
			return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required for the supabase backend")
		}
	}
	return cfg, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
