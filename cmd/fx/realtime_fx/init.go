package realtime_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"carnival/internal/config"
	"carnival/pkg/metrics"
	"carnival/pkg/realtime"
)

var Module = fx.Provide(
	provideHub,
	func(h *realtime.Hub) realtime.Notifier { return h },
)

func provideHub(lc fx.Lifecycle, cfg *config.Config, m *metrics.Metrics, log *zap.Logger) *realtime.Hub {
	hub := realtime.NewHub(log, cfg.HTTP.CORSOrigins)
	hub.OnConnectionsChanged(m.SetRealtimeConnections)
	lc.Append(fx.StopHook(hub.Close))
	return hub
}
