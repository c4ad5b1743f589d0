package bulk_fx

import (
	"go.uber.org/fx"

	"carnival/internal/services"
)

var Module = fx.Provide(services.NewBulkService)
