package family_fx

import (
	"go.uber.org/fx"

	"carnival/internal/repositories"
	"carnival/internal/services"
)

var Module = fx.Provide(
	repositories.NewFamilyRepository,
	services.NewFamilyService,
	services.NewFamilyTreeService,
)
