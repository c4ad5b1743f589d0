package config

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("invalid config")

func (c *Config) Validate() error {
	if c.Postgres.URL == "" {
		return fmt.Errorf("%w: POSTGRES_URL is required", ErrInvalidConfig)
	}
	if len(c.JWT.Secret) < 16 {
		return fmt.Errorf("%w: JWT_SECRET must be at least 16 characters", ErrInvalidConfig)
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("%w: JWT_TTL must be positive", ErrInvalidConfig)
	}
	if c.DB.QueryTimeout <= 0 {
		return fmt.Errorf("%w: DB_QUERY_TIMEOUT must be positive", ErrInvalidConfig)
	}
	if c.HTTP.RateLimitRPS <= 0 || c.HTTP.RateLimitBurst <= 0 {
		return fmt.Errorf("%w: rate limit settings must be positive", ErrInvalidConfig)
	}
	if c.Auth.InviteTTL <= 0 || c.Auth.AdminCodeTTL <= 0 {
		return fmt.Errorf("%w: AUTH_INVITE_TTL and AUTH_ADMIN_CODE_TTL must be positive", ErrInvalidConfig)
	}
	if c.SnowflakeNode < 0 || c.SnowflakeNode > 1023 {
		return fmt.Errorf("%w: SNOWFLAKE_NODE must be in [0, 1023]", ErrInvalidConfig)
	}
	return nil
}
