package controllers_fx

import (
	"go.uber.org/fx"

	"carnival/internal/api/controllers"
)

var Module = fx.Options(
	fx.Provide(controllers.NewAccountController),
	fx.Provide(controllers.NewUserController),
	fx.Provide(controllers.NewEventController),
	fx.Provide(controllers.NewStallController),
	fx.Provide(controllers.NewPointsController),
	fx.Provide(controllers.NewFamilyController),
	fx.Provide(controllers.NewBulkController),
	fx.Provide(controllers.NewTokenController),
	fx.Provide(controllers.NewDashboardController),
	fx.Provide(controllers.NewSystemController),
	fx.Provide(controllers.NewInviteController),
	fx.Provide(controllers.NewParticipationController))
