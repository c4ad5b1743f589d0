package config_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"carnival/internal/config"
	"carnival/pkg/logger"
	"carnival/pkg/metrics"
	"carnival/pkg/utils"
)

var Module = fx.Provide(
	config.Load,
	provideLogger,
	provideJWT,
	provideReceipts,
	metrics.New,
)

func provideLogger(lc fx.Lifecycle, cfg *config.Config) (*zap.Logger, error) {
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Dev: cfg.Log.Dev})
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(func() {
		_ = log.Sync()
	}))
	return log, nil
}

func provideJWT(cfg *config.Config) *utils.JWTManager {
	return utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.TTL)
}

func provideReceipts(cfg *config.Config) (*utils.ReceiptGenerator, error) {
	return utils.NewReceiptGenerator(cfg.SnowflakeNode)
}
