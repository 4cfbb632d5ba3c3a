package handlers

import (
	"context"
	"net/http"

	"issuance-backend/internal/assets"
	"issuance-backend/internal/engine"
	"issuance-backend/internal/services"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

type grantHeightUpdate func(ctx context.Context, caller, agent common.Address, height uint64) (engine.Operation, error)

// CreditHandler exposes the per-agent credit ledger and the permit relay.
type CreditHandler struct {
	issuance *services.IssuanceService
}

func NewCreditHandler(issuance *services.IssuanceService) *CreditHandler {
	return &CreditHandler{issuance: issuance}
}

// GrantAgentRequest creates or replaces a credit grant for an agent.
type GrantAgentRequest struct {
	Caller           string `json:"caller" binding:"required"`
	Agent            string `json:"agent" binding:"required"`
	MaxCredit        string `json:"max_credit" binding:"required"`
	EffectiveHeight  uint64 `json:"effective_height"`
	ExpirationHeight uint64 `json:"expiration_height" binding:"required"`
	Minable          bool   `json:"minable"`
	Burnable         bool   `json:"burnable"`
}

// GrantAgentHandler handles POST /api/credit/grants
func (h *CreditHandler) GrantAgentHandler(c *gin.Context) {
	var req GrantAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	caller, ok := parseAddress(req.Caller)
	if !ok {
		badRequest(c, "invalid caller address")
		return
	}
	agent, ok := parseAddress(req.Agent)
	if !ok {
		badRequest(c, "invalid agent address")
		return
	}
	maxCredit, ok := parseBigInt(req.MaxCredit)
	if !ok {
		badRequest(c, "invalid max_credit")
		return
	}

	op, err := h.issuance.GrantAgent(c.Request.Context(), caller, agent, maxCredit, req.EffectiveHeight, req.ExpirationHeight, req.Minable, req.Burnable)
	if err != nil {
		respondOperationError(c, err)
		return
	}

	c.JSON(http.StatusOK, operationResponse(gin.H{
		"agent": agent.Hex(),
	}, op.ID, op.Seq))
}

// UpdateGrantHeightRequest adjusts one boundary of an existing grant window.
type UpdateGrantHeightRequest struct {
	Caller string `json:"caller" binding:"required"`
	Agent  string `json:"agent" binding:"required"`
	Height uint64 `json:"height" binding:"required"`
}

// SetEffectiveHeightHandler handles POST /api/credit/grants/effective-height
func (h *CreditHandler) SetEffectiveHeightHandler(c *gin.Context) {
	h.updateGrantHeight(c, h.issuance.SetEffectiveHeight)
}

// SetExpirationHeightHandler handles POST /api/credit/grants/expiration-height
func (h *CreditHandler) SetExpirationHeightHandler(c *gin.Context) {
	h.updateGrantHeight(c, h.issuance.SetExpirationHeight)
}

func (h *CreditHandler) updateGrantHeight(c *gin.Context, apply grantHeightUpdate) {
	var req UpdateGrantHeightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	caller, ok := parseAddress(req.Caller)
	if !ok {
		badRequest(c, "invalid caller address")
		return
	}
	agent, ok := parseAddress(req.Agent)
	if !ok {
		badRequest(c, "invalid agent address")
		return
	}

	op, err := apply(c.Request.Context(), caller, agent, req.Height)
	if err != nil {
		respondOperationError(c, err)
		return
	}

	c.JSON(http.StatusOK, operationResponse(gin.H{
		"agent":  agent.Hex(),
		"height": req.Height,
	}, op.ID, op.Seq))
}

// GrantHandler handles GET /api/credit/grants/:agent
func (h *CreditHandler) GrantHandler(c *gin.Context) {
	agent, ok := parseAddress(c.Param("agent"))
	if !ok {
		badRequest(c, "invalid agent address")
		return
	}

	grant := h.issuance.GrantOf(agent)
	if grant == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "no grant for agent",
			"code":    "GRANT_NOT_FOUND",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"grant":   grant,
	})
}

// GrantsHandler handles GET /api/credit/grants
func (h *CreditHandler) GrantsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"grants":  h.issuance.Grants(),
	})
}

// PermitRequest carries a signed spending approval submitted by a relayer.
type PermitRequest struct {
	Relayer   string `json:"relayer" binding:"required"`
	Asset     string `json:"asset" binding:"required"`
	Owner     string `json:"owner" binding:"required"`
	Spender   string `json:"spender" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
	Nonce     uint64 `json:"nonce"`
	Deadline  int64  `json:"deadline" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// PermitHandler handles POST /api/credit/permit
func (h *CreditHandler) PermitHandler(c *gin.Context) {
	var req PermitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	relayer, ok := parseAddress(req.Relayer)
	if !ok {
		badRequest(c, "invalid relayer address")
		return
	}
	asset, ok := parseAddress(req.Asset)
	if !ok {
		badRequest(c, "invalid asset address")
		return
	}
	owner, ok := parseAddress(req.Owner)
	if !ok {
		badRequest(c, "invalid owner address")
		return
	}
	spender, ok := parseAddress(req.Spender)
	if !ok {
		badRequest(c, "invalid spender address")
		return
	}
	amount, ok := parseBigInt(req.Amount)
	if !ok {
		badRequest(c, "invalid amount")
		return
	}
	sig := common.FromHex(req.Signature)
	if len(sig) == 0 {
		badRequest(c, "invalid signature encoding")
		return
	}

	permit := assets.PermitRequest{
		Asset:    asset,
		Owner:    owner,
		Spender:  spender,
		Amount:   amount,
		Nonce:    req.Nonce,
		Deadline: req.Deadline,
	}

	op, err := h.issuance.Permit(c.Request.Context(), relayer, permit, sig)
	if err != nil {
		respondOperationError(c, err)
		return
	}

	c.JSON(http.StatusOK, operationResponse(gin.H{
		"owner":   owner.Hex(),
		"spender": spender.Hex(),
		"amount":  amount.String(),
	}, op.ID, op.Seq))
}

// NonceHandler handles GET /api/credit/nonce/:owner
func (h *CreditHandler) NonceHandler(c *gin.Context) {
	owner, ok := parseAddress(c.Param("owner"))
	if !ok {
		badRequest(c, "invalid owner address")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"owner":   owner.Hex(),
		"nonce":   h.issuance.PermitNonce(owner),
	})
}
