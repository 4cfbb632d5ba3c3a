package handlers

import (
	"context"
	"errors"
	"net/http"

	"issuance-backend/internal/access"
	"issuance-backend/internal/engine"
	"issuance-backend/internal/services"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type roleUpdate func(ctx context.Context, caller common.Address, role access.Role, member common.Address) (engine.Operation, error)

// AdminHandler groups the authenticated operator surface: login, token and
// router registry updates, role administration, rescue, and gateway pause.
type AdminHandler struct {
	auth     *services.AdminAuthService
	issuance *services.IssuanceService
	logger   *logrus.Logger
}

func NewAdminHandler(auth *services.AdminAuthService, issuance *services.IssuanceService, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{auth: auth, issuance: issuance, logger: logger}
}

// LoginRequest carries operator credentials plus an optional TOTP code.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	TOTPCode string `json:"totp_code"`
}

// LoginHandler handles POST /api/admin/login
func (h *AdminHandler) LoginHandler(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	token, err := h.auth.Login(req.Username, req.Password, req.TOTPCode)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"username":  req.Username,
			"client_ip": c.ClientIP(),
			"error":     err.Error(),
		}).Warn("Admin login failed")

		status := http.StatusUnauthorized
		code := "INVALID_CREDENTIALS"
		switch {
		case errors.Is(err, services.ErrAdminNotConfigured):
			status = http.StatusServiceUnavailable
			code = "ADMIN_NOT_CONFIGURED"
		case errors.Is(err, services.ErrBadTOTP):
			code = "INVALID_TOTP"
		}
		c.JSON(status, gin.H{
			"success": false,
			"error":   "authentication failed",
			"code":    code,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
	})
}

// UpdateSupportTokenRequest toggles whether an asset is accepted by the gateway.
type UpdateSupportTokenRequest struct {
	Caller    string `json:"caller" binding:"required"`
	Asset     string `json:"asset" binding:"required"`
	Supported *bool  `json:"supported" binding:"required"`
}

// UpdateSupportTokenHandler handles POST /api/admin/support-tokens
func (h *AdminHandler) UpdateSupportTokenHandler(c *gin.Context) {
	var req UpdateSupportTokenRequest
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

	op, err := h.issuance.UpdateSupportToken(c.Request.Context(), caller, asset, *req.Supported)
	if err != nil {
		respondOperationError(c, err)
		return
	}

	c.JSON(http.StatusOK, operationResponse(gin.H{
		"asset":     asset.Hex(),
		"supported": *req.Supported,
	}, op.ID, op.Seq))
}

// UpdateSwapWhitelistRequest flips whitelist flags for a batch of routers.
type UpdateSwapWhitelistRequest struct {
	Caller  string   `json:"caller" binding:"required"`
	Routers []string `json:"routers" binding:"required"`
	Flags   []bool   `json:"flags" binding:"required"`
}

// UpdateSwapWhitelistHandler handles POST /api/admin/routers
func (h *AdminHandler) UpdateSwapWhitelistHandler(c *gin.Context) {
	var req UpdateSwapWhitelistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	caller, ok := parseAddress(req.Caller)
	if !ok {
		badRequest(c, "invalid caller address")
		return
	}
	routers := make([]common.Address, 0, len(req.Routers))
	for _, r := range req.Routers {
		addr, ok := parseAddress(r)
		if !ok {
			badRequest(c, "invalid router address: "+r)
			return
		}
		routers = append(routers, addr)
	}

	op, err := h.issuance.UpdateSwapWhitelist(c.Request.Context(), caller, routers, req.Flags)
	if err != nil {
		respondOperationError(c, err)
		return
	}

	c.JSON(http.StatusOK, operationResponse(gin.H{
		"routers": len(routers),
	}, op.ID, op.Seq))
}

// RoleRequest grants or revokes a role on an address.
type RoleRequest struct {
	Caller string `json:"caller" binding:"required"`
	Role   string `json:"role" binding:"required"`
	Member string `json:"member" binding:"required"`
}

// GrantRoleHandler handles POST /api/admin/roles/grant
func (h *AdminHandler) GrantRoleHandler(c *gin.Context) {
	h.applyRole(c, h.issuance.GrantRole)
}

// RevokeRoleHandler handles POST /api/admin/roles/revoke
func (h *AdminHandler) RevokeRoleHandler(c *gin.Context) {
	h.applyRole(c, h.issuance.RevokeRole)
}

func (h *AdminHandler) applyRole(c *gin.Context, apply roleUpdate) {
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	caller, ok := parseAddress(req.Caller)
	if !ok {
		badRequest(c, "invalid caller address")
		return
	}
	member, ok := parseAddress(req.Member)
	if !ok {
		badRequest(c, "invalid member address")
		return
	}

	op, err := apply(c.Request.Context(), caller, access.Role(req.Role), member)
	if err != nil {
		respondOperationError(c, err)
		return
	}

	c.JSON(http.StatusOK, operationResponse(gin.H{
		"role":   req.Role,
		"member": member.Hex(),
	}, op.ID, op.Seq))
}

// RolesHandler handles GET /api/admin/roles/:role
func (h *AdminHandler) RolesHandler(c *gin.Context) {
	role := access.Role(c.Param("role"))
	members := h.issuance.RoleMembers(role)
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, m.Hex())
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"role":    string(role),
		"members": out,
	})
}

// RescueTokensRequest moves stranded tokens out of the gateway.
type RescueTokensRequest struct {
	Caller string `json:"caller" binding:"required"`
	Asset  string `json:"asset" binding:"required"`
	To     string `json:"to" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

// RescueTokensHandler handles POST /api/admin/rescue
func (h *AdminHandler) RescueTokensHandler(c *gin.Context) {
	var req RescueTokensRequest
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
	amount, ok := parseBigInt(req.Amount)
	if !ok {
		badRequest(c, "invalid amount")
		return
	}

	op, err := h.issuance.RescueTokens(c.Request.Context(), caller, asset, to, amount)
	if err != nil {
		respondOperationError(c, err)
		return
	}

	c.JSON(http.StatusOK, operationResponse(gin.H{
		"asset":  asset.Hex(),
		"to":     to.Hex(),
		"amount": amount.String(),
	}, op.ID, op.Seq))
}

// PauseGatewayHandler handles POST /api/admin/gateway/pause
func (h *AdminHandler) PauseGatewayHandler(c *gin.Context) {
	h.pauseGateway(c, h.issuance.PauseGateway)
}

// UnpauseGatewayHandler handles POST /api/admin/gateway/unpause
func (h *AdminHandler) UnpauseGatewayHandler(c *gin.Context) {
	h.pauseGateway(c, h.issuance.UnpauseGateway)
}

func (h *AdminHandler) pauseGateway(c *gin.Context, apply pauseToggle) {
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
