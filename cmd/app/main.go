package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"carnival/cmd/fx/account_fx"
	"carnival/cmd/fx/bulk_fx"
	"carnival/cmd/fx/config_fx"
	"carnival/cmd/fx/controllers_fx"
	"carnival/cmd/fx/dashboard"
	"carnival/cmd/fx/db_fx"
	"carnival/cmd/fx/event_fx"
	"carnival/cmd/fx/family_fx"
	"carnival/cmd/fx/invite_fx"
	"carnival/cmd/fx/memcache_fx"
	"carnival/cmd/fx/points_fx"
	"carnival/cmd/fx/realtime_fx"
	"carnival/cmd/fx/stall_fx"
	"carnival/cmd/fx/token_fx"
	"carnival/internal/api"
	"carnival/internal/config"
	"carnival/pkg/middleware"
)

// @title Carnival Admin API
// @version 1.0
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app := fx.New(
		config_fx.Module,
		db_fx.Module,
		memcache_fx.Module,
		realtime_fx.Module,
		account_fx.Module,
		invite_fx.Module,
		family_fx.Module,
		event_fx.Module,
		stall_fx.Module,
		points_fx.Module,
		token_fx.Module,
		bulk_fx.Module,
		dashboard.Module,
		controllers_fx.Module,

		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Provide(ProvideRateLimiter),
		fx.Provide(api.NewRouter),
		fx.Invoke(StartServer),
	)

	app.Run()
}

func ProvideRateLimiter(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) *middleware.RateLimiter {
	rl := middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst, log)
	stop := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			rl.StartCleanup(time.Minute, stop)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(stop)
			return nil
		},
	})
	return rl
}

func StartServer(lc fx.Lifecycle, cfg *config.Config, engine *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("starting HTTP server", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("HTTP server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping HTTP server")
			return srv.Shutdown(ctx)
		},
	})
}
