package controllers

import (
	"github.com/gin-gonic/gin"

	"carnival/internal/models/request_models"
	"carnival/internal/services"
	"carnival/pkg/utils"
)

type InviteController struct {
	inviteService services.InviteServiceInterface
}

func NewInviteController(inviteService services.InviteServiceInterface) *InviteController {
	return &InviteController{inviteService: inviteService}
}

// Create godoc
// @Summary Create an invite token
// @Description An email pins the invite to that address
// @Tags Invites
// @Accept json
// @Produce json
// @Param request body request_models.CreateInviteRequest false "Invitee"
// @Success 201 {object} utils.APIResponse
// @Security BearerAuth
// @Router /invites/create [post]
func (i *InviteController) Create(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req request_models.CreateInviteRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	invite, err := i.inviteService.CreateInvite(c.Request.Context(), actor, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondCreated(c, invite, "Invite created successfully")
}

// Validate godoc
// @Summary Check an invite token before registering
// @Tags Invites
// @Produce json
// @Param token path string true "Invite token"
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Router /invites/validate/{token} [get]
func (i *InviteController) Validate(c *gin.Context) {
	status, err := i.inviteService.ValidateInvite(c.Request.Context(), c.Param("token"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, status, "Invite token is valid")
}

// Mine godoc
// @Summary Invites created by the caller
// @Tags Invites
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /invites/my-invites [get]
func (i *InviteController) Mine(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	invites, err := i.inviteService.MyInvites(c.Request.Context(), actor)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, invites, "Invites fetched successfully")
}

// GenerateAdminCode godoc
// @Summary Issue a one time code for admin registration
// @Tags Invites
// @Produce json
// @Success 201 {object} utils.APIResponse
// @Security BearerAuth
// @Router /admin/admin-code [post]
func (i *InviteController) GenerateAdminCode(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	code, err := i.inviteService.GenerateAdminCode(c.Request.Context(), actor)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondCreated(c, code, "Admin code generated successfully")
}

// AdminCodes godoc
// @Summary Unused admin codes that have not expired
// @Tags Invites
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /admin/admin-codes [get]
func (i *InviteController) AdminCodes(c *gin.Context) {
	codes, err := i.inviteService.ActiveAdminCodes(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, codes, "Admin codes fetched successfully")
}
