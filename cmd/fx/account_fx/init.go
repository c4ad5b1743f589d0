package account_fx

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"carnival/internal/repositories"
	"carnival/internal/services"
)

var Module = fx.Provide(
	provideUserRepo,
	services.NewAccountService,
	services.NewUserService,
)

func provideUserRepo(db *gorm.DB) repositories.UserRepository {
	return repositories.NewUserRepository(db)
}
