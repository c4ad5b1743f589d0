package memcache_fx

import (
	"go.uber.org/fx"

	"carnival/internal/services"
	mem "carnival/pkg/memcache"
)

var Module = fx.Provide(provideStandingsCache)

func provideStandingsCache() mem.Store[*services.Standings] {
	return mem.NewTTLCache[*services.Standings]()
}
