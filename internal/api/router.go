package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"carnival/internal/api/controllers"
	"carnival/internal/config"
	dbm "carnival/internal/models/db_models"
	"carnival/pkg/metrics"
	"carnival/pkg/middleware"
	"carnival/pkg/utils"
)

type Controllers struct {
	fx.In

	Account   *controllers.AccountController
	User      *controllers.UserController
	Event     *controllers.EventController
	Stall     *controllers.StallController
	Points    *controllers.PointsController
	Family    *controllers.FamilyController
	Bulk      *controllers.BulkController
	Token     *controllers.TokenController
	Dashboard *controllers.DashboardController
	System    *controllers.SystemController

	Invite        *controllers.InviteController
	Participation *controllers.ParticipationController
}

var (
	admin = middleware.RoleMiddleware(string(dbm.RoleAdmin))
	staff = middleware.RoleMiddleware(string(dbm.RoleAdmin), string(dbm.RoleShopkeeper))
)

func NewRouter(
	cfg *config.Config,
	log *zap.Logger,
	m *metrics.Metrics,
	jwt *utils.JWTManager,
	limiter *middleware.RateLimiter,
	ctrl Controllers,
) *gin.Engine {
	r := gin.New()
	r.Use(middleware.TraceIDMiddleware())
	r.Use(middleware.ZapLogger(log))
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(cfg.HTTP.CORSOrigins))
	r.Use(middleware.MetricsMiddleware(m))

	r.GET("/healthz", ctrl.System.Health)
	r.GET("/metrics", gin.WrapH(m.Handler()))
	r.GET("/ws", ctrl.System.Realtime)

	RegisterRoutes(r.Group("/api"), jwt, limiter, ctrl)

	return r
}

// RegisterRoutes mounts the API. The limiter runs after authentication on
// protected routes so callers are keyed by user id; public routes are keyed
// by client IP.
func RegisterRoutes(r *gin.RouterGroup, jwt *utils.JWTManager, limiter *middleware.RateLimiter, ctrl Controllers) {
	public := []gin.HandlerFunc{}
	auth := []gin.HandlerFunc{middleware.JWTAuthMiddleware(jwt)}
	if limiter != nil {
		public = append(public, limiter.Handler())
		auth = append(auth, limiter.Handler())
	}
	adminOnly := append(append([]gin.HandlerFunc{}, auth...), admin)

	authGroup := r.Group("/auth", public...)
	authGroup.POST("/register", ctrl.Account.Register)
	authGroup.POST("/login", ctrl.Account.Login)

	me := r.Group("/auth", auth...)
	me.GET("/profile", ctrl.Account.Profile)
	me.PUT("/profile", ctrl.Account.UpdateProfile)
	me.POST("/change-password", ctrl.Account.ChangePassword)

	r.Group("/invites", public...).GET("/validate/:token", ctrl.Invite.Validate)
	invites := r.Group("/invites", auth...)
	invites.POST("/create", ctrl.Invite.Create)
	invites.GET("/my-invites", ctrl.Invite.Mine)

	adminGroup := r.Group("/admin", adminOnly...)
	adminGroup.POST("/admin-code", ctrl.Invite.GenerateAdminCode)
	adminGroup.GET("/admin-codes", ctrl.Invite.AdminCodes)
	adminGroup.POST("/token-config", ctrl.Token.SaveTokenConfig)
	adminGroup.GET("/token-config/:eventId", ctrl.Token.GetTokenConfig)

	users := r.Group("/users", auth...)
	users.GET("", admin, ctrl.User.List)
	users.GET("/search", ctrl.User.Search)
	users.GET("/leaderboard", ctrl.User.Leaderboard)
	users.GET("/:userId", ctrl.User.Get)
	users.PUT("/:userId", admin, ctrl.User.Update)
	users.PATCH("/:userId/status", admin, ctrl.User.SetStatus)
	users.DELETE("/:userId", admin, ctrl.User.Delete)

	events := r.Group("/events", auth...)
	events.GET("/active", ctrl.Event.Active)
	events.GET("", ctrl.Event.List)
	events.POST("", admin, ctrl.Event.Create)
	events.GET("/:id", ctrl.Event.Get)
	events.PUT("/:id", admin, ctrl.Event.Update)
	events.DELETE("/:id", admin, ctrl.Event.Delete)
	events.PATCH("/:id/status", admin, ctrl.Event.SetStatus)
	events.PATCH("/:id/phase2", admin, ctrl.Event.SetPhase2)

	stalls := r.Group("/stalls", auth...)
	stalls.GET("", ctrl.Stall.List)
	stalls.POST("", admin, ctrl.Stall.Create)
	stalls.GET("/qr/:qrCode", ctrl.Participation.ByQRCode)
	stalls.GET("/code/:shortCode", ctrl.Participation.ByShortCode)
	stalls.POST("/participate", ctrl.Participation.Participate)
	stalls.PATCH("/participations/:participationId/award", staff, ctrl.Participation.Award)
	stalls.PATCH("/participations/:participationId/score", admin, ctrl.Participation.UpdateScore)
	stalls.DELETE("/participations/:participationId", admin, ctrl.Participation.Delete)
	stalls.GET("/:id", ctrl.Stall.Get)
	stalls.PUT("/:id", admin, ctrl.Stall.Update)
	stalls.PATCH("/:id/status", admin, ctrl.Stall.SetStatus)
	stalls.GET("/:id/participations", staff, ctrl.Participation.List)

	points := r.Group("/points", auth...)
	points.POST("/add", staff, ctrl.Points.Add)
	points.GET("/user/:userId", ctrl.Points.UserPoints)
	points.POST("/sale", staff, ctrl.Points.RecordSale)
	points.GET("/stall/:stallId/sales", staff, ctrl.Points.StallSales)

	families := r.Group("/families", auth...)
	families.GET("/:id", ctrl.Family.Get)
	families.POST("/:id/members", admin, ctrl.Family.AddMember)
	families.DELETE("/:id/members/:userId", admin, ctrl.Family.RemoveMember)
	families.PATCH("/:id/members/:userId/parent", admin, ctrl.Family.Reparent)
	families.POST("/:id/rebuild", admin, ctrl.Family.Rebuild)
	families.PATCH("/:id/head", admin, ctrl.Family.SetHead)

	tree := r.Group("/family-tree", auth...)
	tree.GET("/member/:userId/path", ctrl.Family.MemberPath)
	tree.GET("/:familyId", ctrl.Family.Tree)
	tree.GET("/:familyId/generation/:generation", ctrl.Family.Generation)

	bulk := r.Group("/bulk", adminOnly...)
	bulk.GET("/families", ctrl.Bulk.ListFamilies)
	bulk.POST("/families", ctrl.Bulk.CreateFamily)
	bulk.DELETE("/clear-leaderboard", ctrl.Bulk.ClearLeaderboard)
	bulk.DELETE("/delete-all-users", ctrl.Bulk.DeleteAllUsers)
	bulk.POST("/import-users", ctrl.Bulk.ImportUsers)

	tokens := r.Group("/tokens", auth...)
	tokens.GET("/qrcode", ctrl.Token.QRCode)
	tokens.GET("/balance", ctrl.Token.Balance)
	tokens.GET("/history", ctrl.Token.History)
	tokens.POST("/recharge", admin, ctrl.Token.Recharge)
	tokens.GET("/transactions", admin, ctrl.Token.Transactions)
	tokens.GET("/stall/:id/stats", staff, ctrl.Token.StallStats)
	tokens.POST("/payment/initiate", staff, ctrl.Token.InitiatePayment)
	tokens.POST("/payment/complete", staff, ctrl.Token.CompletePayment)
	tokens.POST("/payment/decline", staff, ctrl.Token.DeclinePayment)
	tokens.GET("/payment/pending", staff, ctrl.Token.PendingPayments)
	tokens.POST("/refund", admin, ctrl.Token.Refund)

	analytics := r.Group("/analytics", adminOnly...)
	analytics.GET("/dashboard", ctrl.Dashboard.GetDashboard)
}
