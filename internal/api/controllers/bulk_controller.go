package controllers

import (
	"github.com/gin-gonic/gin"

	"carnival/internal/models/request_models"
	"carnival/internal/models/response_models"
	"carnival/internal/services"
	"carnival/pkg/utils"
)

type BulkController struct {
	bulkService        services.BulkServiceInterface
	familyService      services.FamilyServiceInterface
	leaderboardService services.LeaderboardServiceInterface
}

func NewBulkController(
	bulkService services.BulkServiceInterface,
	familyService services.FamilyServiceInterface,
	leaderboardService services.LeaderboardServiceInterface,
) *BulkController {
	return &BulkController{
		bulkService:        bulkService,
		familyService:      familyService,
		leaderboardService: leaderboardService,
	}
}

// ListFamilies godoc
// @Summary List families
// @Description Seeds the house families on first use
// @Tags Bulk
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /bulk/families [get]
func (b *BulkController) ListFamilies(c *gin.Context) {
	families, err := b.familyService.List(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, families, "Families fetched successfully")
}

// CreateFamily godoc
// @Summary Create a family
// @Tags Bulk
// @Accept json
// @Produce json
// @Param request body request_models.CreateFamilyRequest true "Family"
// @Success 201 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Security BearerAuth
// @Router /bulk/families [post]
func (b *BulkController) CreateFamily(c *gin.Context) {
	var req request_models.CreateFamilyRequest
	if !bindJSON(c, &req) {
		return
	}

	family, err := b.familyService.Create(c.Request.Context(), req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondCreated(c, family, "Family created successfully")
}

// ClearLeaderboard godoc
// @Summary Delete every points entry
// @Description Requires confirmCode CLEAR_LEADERBOARD
// @Tags Bulk
// @Accept json
// @Produce json
// @Param request body request_models.ConfirmationRequest true "Confirmation"
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Security BearerAuth
// @Router /bulk/clear-leaderboard [delete]
func (b *BulkController) ClearLeaderboard(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req request_models.ConfirmationRequest
	if !bindJSON(c, &req) {
		return
	}

	deleted, err := b.leaderboardService.ClearLeaderboard(c.Request.Context(), req.Confirmation, actor.ID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, response_models.ClearLeaderboardResponse{Deleted: deleted}, "Leaderboard cleared successfully")
}

// DeleteAllUsers godoc
// @Summary Delete every non super user
// @Description Requires confirmCode DELETE_ALL_USERS
// @Tags Bulk
// @Accept json
// @Produce json
// @Param request body request_models.ConfirmationRequest true "Confirmation"
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Security BearerAuth
// @Router /bulk/delete-all-users [delete]
func (b *BulkController) DeleteAllUsers(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req request_models.ConfirmationRequest
	if !bindJSON(c, &req) {
		return
	}

	deleted, err := b.bulkService.DeleteAllUsers(c.Request.Context(), req.Confirmation, actor)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, response_models.DeleteAllUsersResponse{Deleted: deleted}, "Users deleted successfully")
}

// ImportUsers godoc
// @Summary Import users
// @Description Creates users row by row; failing rows are reported, not fatal
// @Tags Bulk
// @Accept json
// @Produce json
// @Param request body request_models.ImportUsersRequest true "Rows"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /bulk/import-users [post]
func (b *BulkController) ImportUsers(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req request_models.ImportUsersRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := b.bulkService.ImportUsers(c.Request.Context(), actor, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, result, "Import finished")
}
