package event_fx

import (
	"go.uber.org/fx"

	"carnival/internal/repositories"
	"carnival/internal/services"
)

var Module = fx.Provide(
	repositories.NewEventRepository,
	services.NewEventService,
)
