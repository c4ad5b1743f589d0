package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port     string
	Postgres PostgresConfig
	JWT      JWTConfig
	DB       DBConfig
	Log      LogConfig
	HTTP     HTTPConfig
	Cache    CacheConfig
	Auth     AuthConfig

	SnowflakeNode int64
}

type PostgresConfig struct {
	URL string
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

type DBConfig struct {
	QueryTimeout time.Duration
}

type LogConfig struct {
	Level string
	Dev   bool
}

type HTTPConfig struct {
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

type CacheConfig struct {
	LeaderboardTTL time.Duration
}

// AuthConfig governs self-registration. Invites are required unless
// OpenRegistration is set; the admin role always needs an admin code.
type AuthConfig struct {
	OpenRegistration bool
	InviteTTL        time.Duration
	AdminCodeTTL     time.Duration
	FrontendURL      string
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("POSTGRES_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("DB_QUERY_TIMEOUT", "5s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DEV", false)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("LEADERBOARD_CACHE_TTL", "5s")
	v.SetDefault("SNOWFLAKE_NODE", 1)
	v.SetDefault("AUTH_OPEN_REGISTRATION", false)
	v.SetDefault("AUTH_INVITE_TTL", "168h")
	v.SetDefault("AUTH_ADMIN_CODE_TTL", "1m")
	v.SetDefault("FRONTEND_URL", "http://localhost:3001")

	cfg := &Config{
		Port: v.GetString("PORT"),
		Postgres: PostgresConfig{
			URL: v.GetString("POSTGRES_URL"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
			TTL:    v.GetDuration("JWT_TTL"),
		},
		DB: DBConfig{
			QueryTimeout: v.GetDuration("DB_QUERY_TIMEOUT"),
		},
		Log: LogConfig{
			Level: strings.ToLower(v.GetString("LOG_LEVEL")),
			Dev:   v.GetBool("LOG_DEV"),
		},
		HTTP: HTTPConfig{
			CORSOrigins:    splitList(v.GetString("CORS_ORIGINS")),
			RateLimitRPS:   v.GetFloat64("RATE_LIMIT_RPS"),
			RateLimitBurst: v.GetInt("RATE_LIMIT_BURST"),
		},
		Cache: CacheConfig{
			LeaderboardTTL: v.GetDuration("LEADERBOARD_CACHE_TTL"),
		},
		Auth: AuthConfig{
			OpenRegistration: v.GetBool("AUTH_OPEN_REGISTRATION"),
			InviteTTL:        v.GetDuration("AUTH_INVITE_TTL"),
			AdminCodeTTL:     v.GetDuration("AUTH_ADMIN_CODE_TTL"),
			FrontendURL:      strings.TrimRight(v.GetString("FRONTEND_URL"), "/"),
		},
		SnowflakeNode: v.GetInt64("SNOWFLAKE_NODE"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
