package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"carnival/internal/models/request_models"
	"carnival/internal/services"
	"carnival/pkg/utils"
)

type FamilyController struct {
	familyService services.FamilyServiceInterface
	treeService   services.FamilyTreeServiceInterface
}

func NewFamilyController(familyService services.FamilyServiceInterface, treeService services.FamilyTreeServiceInterface) *FamilyController {
	return &FamilyController{
		familyService: familyService,
		treeService:   treeService,
	}
}

// Get godoc
// @Summary Get a family
// @Description Family with its members and the materialized tree
// @Tags Families
// @Produce json
// @Param id path string true "Family id"
// @Success 200 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Security BearerAuth
// @Router /families/{id} [get]
func (f *FamilyController) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	family, err := f.familyService.Get(c.Request.Context(), id)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, family, "Family fetched successfully")
}

// AddMember godoc
// @Summary Add a member to a family
// @Tags Families
// @Accept json
// @Produce json
// @Param id path string true "Family id"
// @Param request body request_models.AddMemberRequest true "Member and optional parent"
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse "Cycle or parent outside the family"
// @Security BearerAuth
// @Router /families/{id}/members [post]
func (f *FamilyController) AddMember(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req request_models.AddMemberRequest
	if !bindJSON(c, &req) {
		return
	}

	summary, err := f.treeService.AddMember(c.Request.Context(), id, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, summary, "Member added successfully")
}

// RemoveMember godoc
// @Summary Remove a member from a family
// @Description Children of the removed member become roots
// @Tags Families
// @Produce json
// @Param id path string true "Family id"
// @Param userId path string true "User id"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /families/{id}/members/{userId} [delete]
func (f *FamilyController) RemoveMember(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}

	summary, err := f.treeService.RemoveMember(c.Request.Context(), id, userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, summary, "Member removed successfully")
}

// Reparent godoc
// @Summary Move a member under another parent
// @Description An empty parentId makes the member a root
// @Tags Families
// @Accept json
// @Produce json
// @Param id path string true "Family id"
// @Param userId path string true "User id"
// @Param request body request_models.ReparentRequest true "New parent"
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse "Cycle"
// @Security BearerAuth
// @Router /families/{id}/members/{userId}/parent [patch]
func (f *FamilyController) Reparent(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	var req request_models.ReparentRequest
	if !bindJSON(c, &req) {
		return
	}

	var parentID *uuid.UUID
	if req.ParentID != "" {
		pid, err := uuid.Parse(req.ParentID)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, "Invalid parentId")
			return
		}
		parentID = &pid
	}

	summary, err := f.treeService.Reparent(c.Request.Context(), id, userID, parentID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, summary, "Member moved successfully")
}

// Rebuild godoc
// @Summary Rebuild the family tree
// @Description Recomputes generation and path of every member
// @Tags Families
// @Produce json
// @Param id path string true "Family id"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /families/{id}/rebuild [post]
func (f *FamilyController) Rebuild(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	summary, err := f.treeService.RebuildTree(c.Request.Context(), id)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, summary, "Family tree rebuilt successfully")
}

// SetHead godoc
// @Summary Set the head of a family
// @Description An empty userId clears the head
// @Tags Families
// @Accept json
// @Produce json
// @Param id path string true "Family id"
// @Param request body request_models.SetHeadRequest true "Head member"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /families/{id}/head [patch]
func (f *FamilyController) SetHead(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req request_models.SetHeadRequest
	if !bindJSON(c, &req) {
		return
	}

	family, err := f.familyService.SetHead(c.Request.Context(), id, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, family, "Family head updated successfully")
}

// Tree godoc
// @Summary Family tree
// @Tags Family Tree
// @Produce json
// @Param familyId path string true "Family id"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /family-tree/{familyId} [get]
func (f *FamilyController) Tree(c *gin.Context) {
	id, ok := idParam(c, "familyId")
	if !ok {
		return
	}

	tree, err := f.treeService.GetTree(c.Request.Context(), id)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, tree, "Family tree fetched successfully")
}

// Generation godoc
// @Summary Members of one generation
// @Tags Family Tree
// @Produce json
// @Param familyId path string true "Family id"
// @Param generation path int true "Generation, roots are 0"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /family-tree/{familyId}/generation/{generation} [get]
func (f *FamilyController) Generation(c *gin.Context) {
	id, ok := idParam(c, "familyId")
	if !ok {
		return
	}
	generation, err := strconv.Atoi(c.Param("generation"))
	if err != nil || generation < 0 {
		utils.RespondError(c, http.StatusBadRequest, "generation must be a non-negative integer")
		return
	}

	members, err := f.treeService.GenerationMembers(c.Request.Context(), id, generation)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, members, "Generation fetched successfully")
}

// MemberPath godoc
// @Summary Ancestry path of a member
// @Description Root first, ending at the member
// @Tags Family Tree
// @Produce json
// @Param userId path string true "User id"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /family-tree/member/{userId}/path [get]
func (f *FamilyController) MemberPath(c *gin.Context) {
	id, ok := idParam(c, "userId")
	if !ok {
		return
	}

	path, err := f.treeService.MemberPath(c.Request.Context(), id)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, path, "Member path fetched successfully")
}
