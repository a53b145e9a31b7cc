package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Config theia-data（HTTP API）配置
type Config struct {
	HTTP struct {
		Addr               string
		CORSAllowedOrigins []string
	}

	// DBEnabled=false 时使用内存 store；DB 连接失败默认直接退出，DBRequired=false 时回退到内存 store
	DBEnabled  bool
	DBRequired bool
	Database   DatabaseConfig

	RedisEnabled bool
	Redis        RedisConfig

	Storage struct {
		OpTimeout  time.Duration
		MaxRetries int
	}

	Session struct {
		TTL time.Duration
	}

	Events struct {
		Stream string
	}

	Log struct {
		Level  string
		Format string
		File   string
	}

	SeedUsers bool
}

// LoadDotEnv loads .env files if present. Variables already set in the
// environment win over the file.
func LoadDotEnv(files ...string) error {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":5000")
	cfg.HTTP.CORSAllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:8081,http://127.0.0.1:8081"))

	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.DBRequired = getEnv("DB_REQUIRED", "true") != "false"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "theia")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "20"), 20)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.RedisEnabled = getEnv("REDIS_ENABLED", "true") == "true"
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Storage.OpTimeout = parseDuration(getEnv("STORAGE_OP_TIMEOUT", "3s"), 3*time.Second)
	cfg.Storage.MaxRetries = parseInt(getEnv("STORAGE_MAX_RETRIES", "5"), 5)
	cfg.Session.TTL = parseDuration(getEnv("SESSION_TTL", "24h"), 24*time.Hour)
	cfg.Events.Stream = getEnv("EVENTS_STREAM", "theia:events")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")
	cfg.Log.File = getEnv("LOG_FILE", "")

	cfg.SeedUsers = getEnv("SEED_USERS", "true") == "true"
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitList(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
