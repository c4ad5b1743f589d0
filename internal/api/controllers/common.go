package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	dbm "carnival/internal/models/db_models"
	"carnival/internal/services"
	"carnival/pkg/middleware"
	"carnival/pkg/utils"
)

// actorFrom reads the caller placed on the context by JWTAuthMiddleware.
func actorFrom(c *gin.Context) (services.Actor, bool) {
	id, err := uuid.Parse(c.GetString(middleware.CtxUserID))
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, "Unauthorized")
		return services.Actor{}, false
	}
	return services.Actor{
		ID:        id,
		Role:      dbm.UserRole(c.GetString(middleware.CtxRole)),
		SuperUser: c.GetBool(middleware.CtxSuperUser),
	}, true
}

func isStaff(a services.Actor) bool {
	return a.IsAdmin() || a.Role == dbm.RoleShopkeeper
}

// idParam parses a uuid path parameter, answering 400 when it is malformed.
func idParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func optionalIDQuery(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid "+name)
		return nil, false
	}
	return &id, true
}

// intQuery returns def when the parameter is absent.
func intQuery(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, name+" must be an integer")
		return 0, false
	}
	return n, true
}

func boolQuery(c *gin.Context, name string) (*bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, name+" must be true or false")
		return nil, false
	}
	return &b, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return false
	}
	return true
}
