package controllers

import (
	"github.com/gin-gonic/gin"

	"carnival/internal/models/request_models"
	"carnival/internal/services"
	"carnival/pkg/utils"
)

type ParticipationController struct {
	participationService services.ParticipationServiceInterface
}

func NewParticipationController(participationService services.ParticipationServiceInterface) *ParticipationController {
	return &ParticipationController{participationService: participationService}
}

func (p *ParticipationController) lookup(c *gin.Context, qrCode, shortCode string) {
	found, err := p.participationService.Lookup(c.Request.Context(), qrCode, shortCode)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, found, "Stall fetched successfully")
}

// ByQRCode godoc
// @Summary Find a stall by its QR code
// @Description Includes the keeper's name and the ten best scores
// @Tags Stalls
// @Produce json
// @Param qrCode path string true "Stall QR code"
// @Success 200 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Security BearerAuth
// @Router /stalls/qr/{qrCode} [get]
func (p *ParticipationController) ByQRCode(c *gin.Context) {
	p.lookup(c, c.Param("qrCode"), "")
}

// ByShortCode godoc
// @Summary Find a stall by its short code
// @Tags Stalls
// @Produce json
// @Param shortCode path string true "Stall short code"
// @Success 200 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Security BearerAuth
// @Router /stalls/code/{shortCode} [get]
func (p *ParticipationController) ByShortCode(c *gin.Context) {
	p.lookup(c, "", c.Param("shortCode"))
}

// Participate godoc
// @Summary Join a stall
// @Description Pays the stall's token cost from the caller's account
// @Tags Stalls
// @Accept json
// @Produce json
// @Param request body request_models.ParticipateRequest true "Stall code"
// @Success 201 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Security BearerAuth
// @Router /stalls/participate [post]
func (p *ParticipationController) Participate(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req request_models.ParticipateRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := p.participationService.Participate(c.Request.Context(), actor, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondCreated(c, result, "Participation recorded successfully")
}

// List godoc
// @Summary Participations at a stall
// @Tags Stalls
// @Produce json
// @Param id path string true "Stall id"
// @Param status query string false "pending | completed"
// @Success 200 {object} utils.APIResponse
// @Failure 403 {object} utils.APIResponse
// @Security BearerAuth
// @Router /stalls/{id}/participations [get]
func (p *ParticipationController) List(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	out, err := p.participationService.ListForStall(c.Request.Context(), actor, id, c.Query("status"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, out, "Participations fetched successfully")
}

// Award godoc
// @Summary Award points for a participation
// @Tags Stalls
// @Accept json
// @Produce json
// @Param participationId path string true "Participation id"
// @Param request body request_models.AwardParticipationRequest true "Points and score"
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Security BearerAuth
// @Router /stalls/participations/{participationId}/award [patch]
func (p *ParticipationController) Award(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "participationId")
	if !ok {
		return
	}
	var req request_models.AwardParticipationRequest
	if !bindJSON(c, &req) {
		return
	}

	out, err := p.participationService.Award(c.Request.Context(), actor, id, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, out, "Points awarded successfully")
}

// UpdateScore godoc
// @Summary Correct the score of a participation
// @Tags Stalls
// @Accept json
// @Produce json
// @Param participationId path string true "Participation id"
// @Param request body request_models.ParticipationScoreRequest true "Score"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /stalls/participations/{participationId}/score [patch]
func (p *ParticipationController) UpdateScore(c *gin.Context) {
	id, ok := idParam(c, "participationId")
	if !ok {
		return
	}
	var req request_models.ParticipationScoreRequest
	if !bindJSON(c, &req) {
		return
	}

	out, err := p.participationService.UpdateScore(c.Request.Context(), id, *req.Score)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, out, "Score updated successfully")
}

// Delete godoc
// @Summary Remove a participation
// @Description Frees the place at the stall; tokens are not returned
// @Tags Stalls
// @Produce json
// @Param participationId path string true "Participation id"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /stalls/participations/{participationId} [delete]
func (p *ParticipationController) Delete(c *gin.Context) {
	id, ok := idParam(c, "participationId")
	if !ok {
		return
	}

	if err := p.participationService.Delete(c.Request.Context(), id); err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, nil, "Participation deleted successfully")
}
