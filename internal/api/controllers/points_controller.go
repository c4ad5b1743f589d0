package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"carnival/internal/models/request_models"
	"carnival/internal/services"
	"carnival/pkg/utils"
)

type PointsController struct {
	pointsService services.PointsServiceInterface
}

func NewPointsController(pointsService services.PointsServiceInterface) *PointsController {
	return &PointsController{pointsService: pointsService}
}

// Add godoc
// @Summary Award points
// @Description Appends one immutable entry to the points ledger
// @Tags Points
// @Accept json
// @Produce json
// @Param request body request_models.AwardPointsRequest true "Award"
// @Success 201 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse "Duplicate transaction id"
// @Security BearerAuth
// @Router /points/add [post]
func (p *PointsController) Add(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req request_models.AwardPointsRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid userId")
		return
	}
	stallID, err := uuid.Parse(req.StallID)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid stallId")
		return
	}

	point, err := p.pointsService.AwardPoints(c.Request.Context(), services.AwardPointsInput{
		UserID:        userID,
		StallID:       stallID,
		Points:        req.Points,
		AwardedBy:     actor.ID,
		TransactionID: req.TransactionID,
		QRCodeData:    req.QRCodeData,
	})
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondCreated(c, point, "Points awarded successfully")
}

// UserPoints godoc
// @Summary Points total of a user
// @Tags Points
// @Produce json
// @Param userId path string true "User id"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /points/user/{userId} [get]
func (p *PointsController) UserPoints(c *gin.Context) {
	id, ok := idParam(c, "userId")
	if !ok {
		return
	}

	total, err := p.pointsService.UserPoints(c.Request.Context(), id)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, total, "Points fetched successfully")
}

// RecordSale godoc
// @Summary Record a stall sale
// @Tags Points
// @Accept json
// @Produce json
// @Param request body request_models.RecordSaleRequest true "Sale"
// @Success 201 {object} utils.APIResponse
// @Security BearerAuth
// @Router /points/sale [post]
func (p *PointsController) RecordSale(c *gin.Context) {
	var req request_models.RecordSaleRequest
	if !bindJSON(c, &req) {
		return
	}

	sale, err := p.pointsService.RecordSale(c.Request.Context(), req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondCreated(c, sale, "Sale recorded successfully")
}

// StallSales godoc
// @Summary Sales of a stall
// @Tags Points
// @Produce json
// @Param stallId path string true "Stall id"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /points/stall/{stallId}/sales [get]
func (p *PointsController) StallSales(c *gin.Context) {
	id, ok := idParam(c, "stallId")
	if !ok {
		return
	}

	sales, err := p.pointsService.StallSales(c.Request.Context(), id)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, sales, "Sales fetched successfully")
}
