package handlers

import (
	"context"
	"math/big"
	"net/http"

	"issuance-backend/internal/engine"
	"issuance-backend/internal/services"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

type feeRateUpdate func(ctx context.Context, caller common.Address, rate *big.Int) (engine.Operation, error)

type pauseToggle func(ctx context.Context, caller common.Address) (engine.Operation, error)

// VaultHandler exposes reserve state and manager operations on the vault.
type VaultHandler struct {
	issuance *services.IssuanceService
}

func NewVaultHandler(issuance *services.IssuanceService) *VaultHandler {
	return &VaultHandler{issuance: issuance}
}

// StateHandler handles GET /api/vault/state
func (h *VaultHandler) StateHandler(c *gin.Context) {
	state := h.issuance.VaultState()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"state": gin.H{
			"total_issued":  state.TotalIssued.String(),
			"leg_a_balance": state.LegABalance.String(),
			"leg_b_balance": state.LegBBalance.String(),
			"accrued_fees":  state.AccruedFees.String(),
			"mint_fee_rate": state.MintFeeRate.String(),
			"burn_fee_rate": state.BurnFeeRate.String(),
			"paused":        state.Paused,
		},
	})
}

// SurplusHandler handles GET /api/vault/surplus/:asset
func (h *VaultHandler) SurplusHandler(c *gin.Context) {
	asset, ok := parseAddress(c.Param("asset"))
	if !ok {
		badRequest(c, "invalid asset address")
		return
	}

	surplus, err := h.issuance.ClaimableSurplus(asset)
	if err != nil {
		respondOperationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"asset":   asset.Hex(),
		"surplus": surplus.String(),
	})
}

// ClaimSurplusRequest moves excess reserve out of the vault.
type ClaimSurplusRequest struct {
	Caller string `json:"caller" binding:"required"`
	Asset  string `json:"asset" binding:"required"`
	To     string `json:"to" binding:"required"`
}

// ClaimSurplusHandler handles POST /api/vault/claim-surplus
func (h *VaultHandler) ClaimSurplusHandler(c *gin.Context) {
	var req ClaimSurplusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	caller, ok := parseAddress(req.Caller)
	if !ok {
		badRequest(c, "invalid caller address")
		return
	}
	asset, ok := parseAddress(req.Asset)
	if !ok {
		badRequest(c, "invalid asset address")
		return
	}
	to, ok := parseAddress(req.To)
	if !ok {
		badRequest(c, "invalid to address")
		return
	}

	op, claimed, err := h.issuance.ClaimSurplus(c.Request.Context(), caller, asset, to)
	if err != nil {
		respondOperationError(c, err)
		return
	}

	c.JSON(http.StatusOK, operationResponse(gin.H{
		"claimed": claimed.String(),
	}, op.ID, op.Seq))
}

// ClaimFeesRequest moves accrued issuance fees out of the vault.
type ClaimFeesRequest struct {
	Caller string `json:"caller" binding:"required"`
	To     string `json:"to" binding:"required"`
}

// ClaimFeesHandler handles POST /api/vault/claim-fees
func (h *VaultHandler) ClaimFeesHandler(c *gin.Context) {
	var req ClaimFeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	caller, ok := parseAddress(req.Caller)
	if !ok {
		badRequest(c, "invalid caller address")
		return
	}
	to, ok := parseAddress(req.To)
	if !ok {
		badRequest(c, "invalid to address")
		return
	}

	op, claimed, err := h.issuance.ClaimFees(c.Request.Context(), caller, to)
	if err != nil {
		respondOperationError(c, err)
		return
	}

	c.JSON(http.StatusOK, operationResponse(gin.H{
		"claimed": claimed.String(),
	}, op.ID, op.Seq))
}

// UpdateFeeRateRequest sets a mint or burn fee rate, 1e18 fixed point.
type UpdateFeeRateRequest struct {
	Caller string `json:"caller" binding:"required"`
	Rate   string `json:"rate" binding:"required"`
}

// UpdateMintFeeRateHandler handles POST /api/vault/mint-fee-rate
func (h *VaultHandler) UpdateMintFeeRateHandler(c *gin.Context) {
	h.updateFeeRate(c, h.issuance.UpdateMintFeeRate)
}

// UpdateBurnFeeRateHandler handles POST /api/vault/burn-fee-rate
func (h *VaultHandler) UpdateBurnFeeRateHandler(c *gin.Context) {
	h.updateFeeRate(c, h.issuance.UpdateBurnFeeRate)
}

func (h *VaultHandler) updateFeeRate(c *gin.Context, apply feeRateUpdate) {
	var req UpdateFeeRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	caller, ok := parseAddress(req.Caller)
	if !ok {
		badRequest(c, "invalid caller address")
		return
	}
	rate, ok := parseBigInt(req.Rate)
	if !ok {
		badRequest(c, "invalid rate")
		return
	}

	op, err := apply(c.Request.Context(), caller, rate)
	if err != nil {
		respondOperationError(c, err)
		return
	}

	c.JSON(http.StatusOK, operationResponse(gin.H{
		"rate": rate.String(),
	}, op.ID, op.Seq))
}

// PauseRequest identifies the caller asking for a pause state change.
type PauseRequest struct {
	Caller string `json:"caller" binding:"required"`
}

// PauseHandler handles POST /api/vault/pause
func (h *VaultHandler) PauseHandler(c *gin.Context) {
	h.pauseState(c, h.issuance.PauseVault)
}

// UnpauseHandler handles POST /api/vault/unpause
func (h *VaultHandler) UnpauseHandler(c *gin.Context) {
	h.pauseState(c, h.issuance.UnpauseVault)
}

func (h *VaultHandler) pauseState(c *gin.Context, apply pauseToggle) {
	var req PauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	caller, ok := parseAddress(req.Caller)
	if !ok {
		badRequest(c, "invalid caller address")
		return
	}

	op, err := apply(c.Request.Context(), caller)
	if err != nil {
		respondOperationError(c, err)
		return
	}

	c.JSON(http.StatusOK, operationResponse(gin.H{}, op.ID, op.Seq))
}
