package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"carnival/internal/models/request_models"
	"carnival/internal/services"
	"carnival/pkg/utils"
)

type TokenController struct {
	tokenService services.TokenServiceInterface
	userService  services.UserServiceInterface
}

func NewTokenController(tokenService services.TokenServiceInterface, userService services.UserServiceInterface) *TokenController {
	return &TokenController{
		tokenService: tokenService,
		userService:  userService,
	}
}

// QRCode godoc
// @Summary QR code of the caller's token account
// @Description Opens the account on first use
// @Tags Tokens
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /tokens/qrcode [get]
func (t *TokenController) QRCode(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	account, err := t.tokenService.EnsureAccount(c.Request.Context(), actor.ID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, gin.H{
		"userId": account.UserID,
		"qrCode": account.QRCode,
	}, "QR code fetched successfully")
}

// Balance godoc
// @Summary Token balance
// @Description Without parameters returns the caller's balance; other accounts need a staff role
// @Tags Tokens
// @Produce json
// @Param userId query string false "User id"
// @Param qrCode query string false "Account QR code"
// @Success 200 {object} utils.APIResponse
// @Failure 403 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Security BearerAuth
// @Router /tokens/balance [get]
func (t *TokenController) Balance(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	userID, ok := optionalIDQuery(c, "userId")
	if !ok {
		return
	}
	qrCode := c.Query("qrCode")

	if userID == nil && qrCode == "" {
		userID = &actor.ID
	}
	self := userID != nil && *userID == actor.ID && qrCode == ""
	if !self && !isStaff(actor) {
		utils.RespondError(c, http.StatusForbidden, "Forbidden")
		return
	}

	balance, err := t.tokenService.GetBalance(c.Request.Context(), userID, qrCode)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, balance, "Balance fetched successfully")
}

// History godoc
// @Summary Token history of the caller
// @Tags Tokens
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /tokens/history [get]
func (t *TokenController) History(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	history, err := t.tokenService.History(c.Request.Context(), actor.ID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, history, "History fetched successfully")
}

// Recharge godoc
// @Summary Recharge a token account
// @Description Identify the account by exactly one of userId or qrCode
// @Tags Tokens
// @Accept json
// @Produce json
// @Param request body request_models.RechargeRequest true "Recharge"
// @Success 201 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Security BearerAuth
// @Router /tokens/recharge [post]
func (t *TokenController) Recharge(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req request_models.RechargeRequest
	if !bindJSON(c, &req) {
		return
	}

	in := services.RechargeInput{
		QRCode:      req.QRCode,
		Tokens:      req.Tokens,
		Amount:      req.Amount,
		Description: req.Description,
		AdminID:     actor.ID,
	}
	if req.UserID != "" {
		id, err := uuid.Parse(req.UserID)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, "Invalid userId")
			return
		}
		in.UserID = &id
	}

	result, err := t.tokenService.Recharge(c.Request.Context(), in)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondCreated(c, result, fmt.Sprintf("Recharged %d tokens", req.Tokens))
}

// Transactions godoc
// @Summary List token transactions
// @Tags Tokens
// @Produce json
// @Param userId query string false "User id"
// @Param stallId query string false "Stall id"
// @Param type query string false "recharge | payment | refund"
// @Param status query string false "pending | completed | declined | failed"
// @Param startDate query string false "RFC3339 or YYYY-MM-DD"
// @Param endDate query string false "RFC3339 or YYYY-MM-DD, inclusive"
// @Param limit query int false "Max rows"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /tokens/transactions [get]
func (t *TokenController) Transactions(c *gin.Context) {
	limit, ok := intQuery(c, "limit", 0)
	if !ok {
		return
	}

	txs, err := t.tokenService.ListTransactions(c.Request.Context(), services.TransactionQuery{
		UserID:    c.Query("userId"),
		StallID:   c.Query("stallId"),
		Type:      c.Query("type"),
		Status:    c.Query("status"),
		StartDate: c.Query("startDate"),
		EndDate:   c.Query("endDate"),
		Limit:     limit,
	})
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, txs, "Transactions fetched successfully")
}

// StallStats godoc
// @Summary Token statistics of a stall
// @Tags Tokens
// @Produce json
// @Param id path string true "Stall id"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /tokens/stall/{id}/stats [get]
func (t *TokenController) StallStats(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	stats, err := t.tokenService.GetStallStats(c.Request.Context(), id)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, stats, "Stall stats fetched successfully")
}

// InitiatePayment godoc
// @Summary Start a stall payment
// @Description Creates a pending payment after checking the visitor's balance
// @Tags Tokens
// @Accept json
// @Produce json
// @Param request body request_models.InitiatePaymentRequest true "Payment"
// @Success 201 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse "Insufficient balance"
// @Failure 403 {object} utils.APIResponse
// @Security BearerAuth
// @Router /tokens/payment/initiate [post]
func (t *TokenController) InitiatePayment(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req request_models.InitiatePaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	tx, err := t.tokenService.InitiatePayment(c.Request.Context(), actor, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondCreated(c, tx, "Payment initiated")
}

// CompletePayment godoc
// @Summary Complete a pending payment
// @Description Debits the visitor and awards gameScore points when given
// @Tags Tokens
// @Accept json
// @Produce json
// @Param request body request_models.CompletePaymentRequest true "Completion"
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Security BearerAuth
// @Router /tokens/payment/complete [post]
func (t *TokenController) CompletePayment(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req request_models.CompletePaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := t.tokenService.CompletePayment(c.Request.Context(), actor, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, result, "Payment completed")
}

// DeclinePayment godoc
// @Summary Decline a pending payment
// @Tags Tokens
// @Accept json
// @Produce json
// @Param request body request_models.DeclinePaymentRequest true "Payment"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /tokens/payment/decline [post]
func (t *TokenController) DeclinePayment(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req request_models.DeclinePaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	tx, err := t.tokenService.DeclinePayment(c.Request.Context(), actor, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, tx, "Payment declined")
}

// PendingPayments godoc
// @Summary Pending payments of a stall
// @Description Defaults to the caller's own stall
// @Tags Tokens
// @Produce json
// @Param stallId query string false "Stall id"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /tokens/payment/pending [get]
func (t *TokenController) PendingPayments(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	stallID, ok := optionalIDQuery(c, "stallId")
	if !ok {
		return
	}

	if stallID == nil {
		user, err := t.userService.Get(c.Request.Context(), actor.ID)
		if err != nil {
			utils.HandleServiceError(c, err)
			return
		}
		if user.StallID == nil {
			utils.RespondError(c, http.StatusBadRequest, "stallId is required")
			return
		}
		stallID = user.StallID
	}

	pending, err := t.tokenService.PendingForStall(c.Request.Context(), actor, *stallID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, pending, "Pending payments fetched successfully")
}

// Refund godoc
// @Summary Refund a completed payment
// @Tags Tokens
// @Accept json
// @Produce json
// @Param request body request_models.RefundRequest true "Refund"
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Security BearerAuth
// @Router /tokens/refund [post]
func (t *TokenController) Refund(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req request_models.RefundRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := t.tokenService.Refund(c.Request.Context(), actor, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, result, "Payment refunded")
}

// SaveTokenConfig godoc
// @Summary Create or replace the token rules of an event
// @Tags Tokens
// @Accept json
// @Produce json
// @Param request body request_models.SaveTokenConfigRequest true "Token rules"
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Security BearerAuth
// @Router /admin/token-config [post]
func (t *TokenController) SaveTokenConfig(c *gin.Context) {
	var req request_models.SaveTokenConfigRequest
	if !bindJSON(c, &req) {
		return
	}

	cfg, err := t.tokenService.SaveTokenConfig(c.Request.Context(), req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, cfg, "Token configuration saved successfully")
}

// GetTokenConfig godoc
// @Summary Token rules of an event
// @Tags Tokens
// @Produce json
// @Param eventId path string true "Event id"
// @Success 200 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Security BearerAuth
// @Router /admin/token-config/{eventId} [get]
func (t *TokenController) GetTokenConfig(c *gin.Context) {
	eventID, ok := idParam(c, "eventId")
	if !ok {
		return
	}

	cfg, err := t.tokenService.GetTokenConfig(c.Request.Context(), eventID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, cfg, "Token configuration fetched successfully")
}
