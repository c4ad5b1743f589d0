package invite_fx

import (
	"go.uber.org/fx"

	"carnival/internal/repositories"
	"carnival/internal/services"
)

var Module = fx.Provide(
	repositories.NewInviteRepository,
	services.NewInviteService,
)
