package stall_fx

import (
	"go.uber.org/fx"

	"carnival/internal/repositories"
	"carnival/internal/services"
)

var Module = fx.Provide(
	repositories.NewStallRepository,
	services.NewStallService,
	repositories.NewParticipationRepository,
	services.NewParticipationService,
)
