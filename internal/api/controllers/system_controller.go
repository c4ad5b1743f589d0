package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"carnival/pkg/realtime"
	"carnival/pkg/utils"
)

type SystemController struct {
	db  *gorm.DB
	jwt *utils.JWTManager
	hub *realtime.Hub
	log *zap.Logger
}

func NewSystemController(db *gorm.DB, jwt *utils.JWTManager, hub *realtime.Hub, log *zap.Logger) *SystemController {
	return &SystemController{db: db, jwt: jwt, hub: hub, log: log}
}

// Health godoc
// @Summary Liveness and database check
// @Tags System
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Failure 503 {object} utils.APIResponse
// @Router /healthz [get]
func (s *SystemController) Health(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		s.log.Warn("health check failed", zap.Error(err))
		utils.RespondError(c, http.StatusServiceUnavailable, "Database unavailable")
		return
	}
	utils.RespondSuccess(c, gin.H{"connections": s.hub.Connections()}, "ok")
}

// Realtime godoc
// @Summary Realtime updates over WebSocket
// @Description Browsers cannot set headers on upgrade, so the bearer token travels as a query parameter
// @Tags System
// @Param token query string true "JWT"
// @Success 101
// @Failure 401 {object} utils.APIResponse
// @Router /ws [get]
func (s *SystemController) Realtime(c *gin.Context) {
	claims, err := s.jwt.ValidateToken(c.Query("token"))
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	// Serve answers the handshake itself, so nothing may be written here on failure.
	if err := s.hub.Serve(c.Writer, c.Request, claims.UserID, claims.Role); err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
	}
}
