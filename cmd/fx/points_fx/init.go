package points_fx

import (
	"go.uber.org/fx"

	"carnival/internal/repositories"
	"carnival/internal/services"
)

var Module = fx.Provide(
	repositories.NewPointRepository,
	services.NewLeaderboardService,
	services.NewPointsService,
)
