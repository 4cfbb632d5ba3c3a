package handlers

import (
	"net/http"

	"issuance-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// GatewayHandler exposes the deposit and withdrawal flows.
type GatewayHandler struct {
	issuance *services.IssuanceService
}

func NewGatewayHandler(issuance *services.IssuanceService) *GatewayHandler {
	return &GatewayHandler{issuance: issuance}
}

// CombinationDepositRequest funds both collateral legs directly.
type CombinationDepositRequest struct {
	Caller     string `json:"caller" binding:"required"`
	Issued     string `json:"issued" binding:"required"`
	LegBChoice string `json:"leg_b_choice" binding:"required"`
	Deadline   int64  `json:"deadline"`
}

// CombinationDepositHandler handles POST /api/gateway/deposit/combination
func (h *GatewayHandler) CombinationDepositHandler(c *gin.Context) {
	var req CombinationDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	caller, ok := parseAddress(req.Caller)
	if !ok {
		badRequest(c, "invalid caller address")
		return
	}
	issued, ok := parseBigInt(req.Issued)
	if !ok {
		badRequest(c, "invalid issued amount")
		return
	}
	legBChoice, ok := parseAddress(req.LegBChoice)
	if !ok {
		badRequest(c, "invalid leg_b_choice address")
		return
	}

	op, minted, err := h.issuance.CombinationDeposit(c.Request.Context(), caller, issued, legBChoice, req.Deadline)
	if err != nil {
		respondOperationError(c, err)
		return
	}

	c.JSON(http.StatusOK, operationResponse(gin.H{
		"minted": minted.String(),
	}, op.ID, op.Seq))
}

// SingleDepositRequest funds both legs from one asset through routed swaps.
type SingleDepositRequest struct {
	Caller   string                   `json:"caller" binding:"required"`
	Issued   string                   `json:"issued" binding:"required"`
	Legs     []services.LegSuggestion `json:"legs" binding:"required"`
	Deadline int64                    `json:"deadline"`
}

// SingleDepositHandler handles POST /api/gateway/deposit/single
func (h *GatewayHandler) SingleDepositHandler(c *gin.Context) {
	var req SingleDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	caller, ok := parseAddress(req.Caller)
	if !ok {
		badRequest(c, "invalid caller address")
		return
	}
	issued, ok := parseBigInt(req.Issued)
	if !ok {
		badRequest(c, "invalid issued amount")
		return
	}
	legs, err := services.BuildSwapLegs(req.Legs)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	op, minted, err := h.issuance.SingleDeposit(c.Request.Context(), caller, issued, legs, req.Deadline)
	if err != nil {
		respondOperationError(c, err)
		return
	}

	c.JSON(http.StatusOK, operationResponse(gin.H{
		"minted": minted.String(),
	}, op.ID, op.Seq))
}

// SingleWithdrawRequest burns issued units and routes collateral out.
type SingleWithdrawRequest struct {
	Caller   string                   `json:"caller" binding:"required"`
	Amount   string                   `json:"amount" binding:"required"`
	Legs     []services.LegSuggestion `json:"legs" binding:"required"`
	Deadline int64                    `json:"deadline"`
}

// SingleWithdrawHandler handles POST /api/gateway/withdraw/single
func (h *GatewayHandler) SingleWithdrawHandler(c *gin.Context) {
	var req SingleWithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	caller, ok := parseAddress(req.Caller)
	if !ok {
		badRequest(c, "invalid caller address")
		return
	}
	amount, ok := parseBigInt(req.Amount)
	if !ok {
		badRequest(c, "invalid amount")
		return
	}
	legs, err := services.BuildSwapLegs(req.Legs)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	op, outA, outB, err := h.issuance.SingleWithdraw(c.Request.Context(), caller, amount, legs, req.Deadline)
	if err != nil {
		respondOperationError(c, err)
		return
	}

	c.JSON(http.StatusOK, operationResponse(gin.H{
		"leg_a_out": outA.String(),
		"leg_b_out": outB.String(),
	}, op.ID, op.Seq))
}

// CombinationWithdrawRequest burns issued units and returns both legs.
type CombinationWithdrawRequest struct {
	Caller     string `json:"caller" binding:"required"`
	Amount     string `json:"amount" binding:"required"`
	LegBChoice string `json:"leg_b_choice" binding:"required"`
	Deadline   int64  `json:"deadline"`
}

// CombinationWithdrawHandler handles POST /api/gateway/withdraw/combination
func (h *GatewayHandler) CombinationWithdrawHandler(c *gin.Context) {
	var req CombinationWithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	caller, ok := parseAddress(req.Caller)
	if !ok {
		badRequest(c, "invalid caller address")
		return
	}
	amount, ok := parseBigInt(req.Amount)
	if !ok {
		badRequest(c, "invalid amount")
		return
	}
	legBChoice, ok := parseAddress(req.LegBChoice)
	if !ok {
		badRequest(c, "invalid leg_b_choice address")
		return
	}

	op, outA, outB, err := h.issuance.CombinationWithdraw(c.Request.Context(), caller, amount, legBChoice, req.Deadline)
	if err != nil {
		respondOperationError(c, err)
		return
	}

	c.JSON(http.StatusOK, operationResponse(gin.H{
		"leg_a_out": outA.String(),
		"leg_b_out": outB.String(),
	}, op.ID, op.Seq))
}

// SupportedAssetsHandler handles GET /api/gateway/supported-assets
func (h *GatewayHandler) SupportedAssetsHandler(c *gin.Context) {
	assets := h.issuance.SupportedAssets()
	out := make([]string, 0, len(assets))
	for _, a := range assets {
		out = append(out, a.Hex())
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"assets":  out,
	})
}

// WhitelistedRoutersHandler handles GET /api/gateway/routers
func (h *GatewayHandler) WhitelistedRoutersHandler(c *gin.Context) {
	routers := h.issuance.WhitelistedRouters()
	out := make([]string, 0, len(routers))
	for _, r := range routers {
		out = append(out, r.Hex())
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"routers": out,
	})
}
