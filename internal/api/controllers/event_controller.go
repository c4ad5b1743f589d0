package controllers

import (
	"github.com/gin-gonic/gin"

	"carnival/internal/models/request_models"
	"carnival/internal/services"
	"carnival/pkg/utils"
)

type EventController struct {
	eventService services.EventServiceInterface
}

func NewEventController(eventService services.EventServiceInterface) *EventController {
	return &EventController{eventService: eventService}
}

// Active godoc
// @Summary Event currently running phase 2
// @Description Data is null when no event is active
// @Tags Events
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /events/active [get]
func (e *EventController) Active(c *gin.Context) {
	event, err := e.eventService.Active(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, event, "Active event fetched successfully")
}

// List godoc
// @Summary List events
// @Tags Events
// @Produce json
// @Param status query string false "upcoming | active | completed"
// @Param isActive query bool false "Active flag"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /events [get]
func (e *EventController) List(c *gin.Context) {
	active, ok := boolQuery(c, "isActive")
	if !ok {
		return
	}

	events, err := e.eventService.List(c.Request.Context(), services.EventListQuery{
		Status:   c.Query("status"),
		IsActive: active,
	})
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, events, "Events fetched successfully")
}

// Create godoc
// @Summary Create an event
// @Tags Events
// @Accept json
// @Produce json
// @Param request body request_models.CreateEventRequest true "Event"
// @Success 201 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Security BearerAuth
// @Router /events [post]
func (e *EventController) Create(c *gin.Context) {
	var req request_models.CreateEventRequest
	if !bindJSON(c, &req) {
		return
	}

	event, err := e.eventService.Create(c.Request.Context(), req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondCreated(c, event, "Event created successfully")
}

// Get godoc
// @Summary Get an event
// @Tags Events
// @Produce json
// @Param id path string true "Event id"
// @Success 200 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Security BearerAuth
// @Router /events/{id} [get]
func (e *EventController) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	event, err := e.eventService.Get(c.Request.Context(), id)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, event, "Event fetched successfully")
}

// Update godoc
// @Summary Update an event
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event id"
// @Param request body request_models.UpdateEventRequest true "Fields to change"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /events/{id} [put]
func (e *EventController) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req request_models.UpdateEventRequest
	if !bindJSON(c, &req) {
		return
	}

	event, err := e.eventService.Update(c.Request.Context(), id, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, event, "Event updated successfully")
}

// Delete godoc
// @Summary Delete an event
// @Tags Events
// @Produce json
// @Param id path string true "Event id"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /events/{id} [delete]
func (e *EventController) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := e.eventService.Delete(c.Request.Context(), id); err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, nil, "Event deleted successfully")
}

// SetStatus godoc
// @Summary Change event status
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event id"
// @Param request body request_models.EventStatusRequest true "New status"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /events/{id}/status [patch]
func (e *EventController) SetStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req request_models.EventStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	event, err := e.eventService.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, event, "Event status updated successfully")
}

// SetPhase2 godoc
// @Summary Toggle phase 2
// @Description Activating phase 2 on one event deactivates it everywhere else
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event id"
// @Param request body request_models.Phase2Request true "Phase 2 flag"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /events/{id}/phase2 [patch]
func (e *EventController) SetPhase2(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req request_models.Phase2Request
	if !bindJSON(c, &req) {
		return
	}

	event, err := e.eventService.SetPhase2(c.Request.Context(), id, *req.IsPhase2Active)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, event, "Phase 2 updated successfully")
}
