package controllers

import (
	"github.com/gin-gonic/gin"

	"carnival/internal/models/request_models"
	"carnival/internal/services"
	"carnival/pkg/utils"
)

type UserController struct {
	userService        services.UserServiceInterface
	leaderboardService services.LeaderboardServiceInterface
}

func NewUserController(userService services.UserServiceInterface, leaderboardService services.LeaderboardServiceInterface) *UserController {
	return &UserController{
		userService:        userService,
		leaderboardService: leaderboardService,
	}
}

// List godoc
// @Summary List users
// @Tags Users
// @Produce json
// @Param role query string false "user | shopkeeper | admin"
// @Param familyId query string false "Family id"
// @Param limit query int false "Page size (max 1000)"
// @Param offset query int false "Offset"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /users [get]
func (u *UserController) List(c *gin.Context) {
	limit, ok := intQuery(c, "limit", 0)
	if !ok {
		return
	}
	offset, ok := intQuery(c, "offset", 0)
	if !ok {
		return
	}

	users, err := u.userService.List(c.Request.Context(), services.UserListQuery{
		Role:     c.Query("role"),
		FamilyID: c.Query("familyId"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, users, "Users fetched successfully")
}

// Search godoc
// @Summary Search users
// @Description Case-insensitive match on name, email or phone
// @Tags Users
// @Produce json
// @Param q query string false "Search text"
// @Param limit query int false "Max results (default 1000)"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /users/search [get]
func (u *UserController) Search(c *gin.Context) {
	limit, ok := intQuery(c, "limit", 0)
	if !ok {
		return
	}

	users, err := u.userService.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, users, "Users fetched successfully")
}

// Leaderboard godoc
// @Summary Points leaderboard
// @Description Users ranked by total points, optionally scoped to an event window
// @Tags Users
// @Produce json
// @Param limit query int false "Entries to return (default 100, max 1000)"
// @Param eventId query string false "Event id"
// @Success 200 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Security BearerAuth
// @Router /users/leaderboard [get]
func (u *UserController) Leaderboard(c *gin.Context) {
	limit, ok := intQuery(c, "limit", services.DefaultLeaderboardLimit)
	if !ok {
		return
	}
	eventID, ok := optionalIDQuery(c, "eventId")
	if !ok {
		return
	}

	standings, err := u.leaderboardService.ComputeLeaderboard(c.Request.Context(), services.LeaderboardQuery{
		Limit:   limit,
		EventID: eventID,
	})
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, standings.Response(), "Leaderboard fetched successfully")
}

// Get godoc
// @Summary Get a user
// @Tags Users
// @Produce json
// @Param userId path string true "User id"
// @Success 200 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Security BearerAuth
// @Router /users/{userId} [get]
func (u *UserController) Get(c *gin.Context) {
	id, ok := idParam(c, "userId")
	if !ok {
		return
	}

	user, err := u.userService.Get(c.Request.Context(), id)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, user, "User fetched successfully")
}

// Update godoc
// @Summary Update a user
// @Description Admin update of profile fields, role, house, stall and active flag
// @Tags Users
// @Accept json
// @Produce json
// @Param userId path string true "User id"
// @Param request body request_models.AdminUpdateUserRequest true "Fields to change"
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Security BearerAuth
// @Router /users/{userId} [put]
func (u *UserController) Update(c *gin.Context) {
	id, ok := idParam(c, "userId")
	if !ok {
		return
	}
	var req request_models.AdminUpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := u.userService.Update(c.Request.Context(), id, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, user, "User updated successfully")
}

// SetStatus godoc
// @Summary Activate or deactivate a user
// @Tags Users
// @Accept json
// @Produce json
// @Param userId path string true "User id"
// @Param request body request_models.UserStatusRequest true "New status"
// @Success 200 {object} utils.APIResponse
// @Failure 403 {object} utils.APIResponse
// @Security BearerAuth
// @Router /users/{userId}/status [patch]
func (u *UserController) SetStatus(c *gin.Context) {
	id, ok := idParam(c, "userId")
	if !ok {
		return
	}
	var req request_models.UserStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := u.userService.SetStatus(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, user, "User status updated successfully")
}

// Delete godoc
// @Summary Delete a user
// @Description Removes the user with their points, sales, token ledger and family node
// @Tags Users
// @Produce json
// @Param userId path string true "User id"
// @Success 200 {object} utils.APIResponse
// @Failure 403 {object} utils.APIResponse
// @Security BearerAuth
// @Router /users/{userId} [delete]
func (u *UserController) Delete(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "userId")
	if !ok {
		return
	}

	if err := u.userService.Delete(c.Request.Context(), actor, id); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, nil, "User deleted successfully")
}
