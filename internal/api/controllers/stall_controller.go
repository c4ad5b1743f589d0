package controllers

import (
	"github.com/gin-gonic/gin"

	"carnival/internal/models/request_models"
	"carnival/internal/services"
	"carnival/pkg/utils"
)

type StallController struct {
	stallService services.StallServiceInterface
}

func NewStallController(stallService services.StallServiceInterface) *StallController {
	return &StallController{stallService: stallService}
}

// List godoc
// @Summary List stalls
// @Tags Stalls
// @Produce json
// @Param type query string false "food | game | shopping | activity | other"
// @Param shopkeeperId query string false "Owning shopkeeper"
// @Param isActive query bool false "Active flag"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /stalls [get]
func (s *StallController) List(c *gin.Context) {
	active, ok := boolQuery(c, "isActive")
	if !ok {
		return
	}

	stalls, err := s.stallService.List(c.Request.Context(), services.StallListQuery{
		Type:         c.Query("type"),
		ShopkeeperID: c.Query("shopkeeperId"),
		IsActive:     active,
	})
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, stalls, "Stalls fetched successfully")
}

// Create godoc
// @Summary Create a stall
// @Tags Stalls
// @Accept json
// @Produce json
// @Param request body request_models.CreateStallRequest true "Stall"
// @Success 201 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Security BearerAuth
// @Router /stalls [post]
func (s *StallController) Create(c *gin.Context) {
	var req request_models.CreateStallRequest
	if !bindJSON(c, &req) {
		return
	}

	stall, err := s.stallService.Create(c.Request.Context(), req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondCreated(c, stall, "Stall created successfully")
}

// Get godoc
// @Summary Get a stall
// @Tags Stalls
// @Produce json
// @Param id path string true "Stall id"
// @Success 200 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Security BearerAuth
// @Router /stalls/{id} [get]
func (s *StallController) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	stall, err := s.stallService.Get(c.Request.Context(), id)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, stall, "Stall fetched successfully")
}

// Update godoc
// @Summary Update a stall
// @Tags Stalls
// @Accept json
// @Produce json
// @Param id path string true "Stall id"
// @Param request body request_models.UpdateStallRequest true "Fields to change"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /stalls/{id} [put]
func (s *StallController) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req request_models.UpdateStallRequest
	if !bindJSON(c, &req) {
		return
	}

	stall, err := s.stallService.Update(c.Request.Context(), id, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, stall, "Stall updated successfully")
}

// SetStatus godoc
// @Summary Open or close a stall
// @Tags Stalls
// @Accept json
// @Produce json
// @Param id path string true "Stall id"
// @Param request body request_models.StallStatusRequest true "New status"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /stalls/{id}/status [patch]
func (s *StallController) SetStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req request_models.StallStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	stall, err := s.stallService.SetStatus(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, stall, "Stall status updated successfully")
}
