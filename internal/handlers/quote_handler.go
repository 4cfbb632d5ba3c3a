package handlers

import (
	"net/http"

	"issuance-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// QuoteHandler serves swap-leg suggestions for deposits and withdrawals.
type QuoteHandler struct {
	quotes *services.QuoteService
}

func NewQuoteHandler(quotes *services.QuoteService) *QuoteHandler {
	return &QuoteHandler{quotes: quotes}
}

// DepositQuoteRequest asks how to fund an issuance from one source asset.
type DepositQuoteRequest struct {
	Source string `json:"source" binding:"required"`
	Issued string `json:"issued" binding:"required"`
}

// DepositQuoteHandler handles POST /api/quote/deposit
func (h *QuoteHandler) DepositQuoteHandler(c *gin.Context) {
	var req DepositQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	source, ok := parseAddress(req.Source)
	if !ok {
		badRequest(c, "invalid source address")
		return
	}
	issued, ok := parseBigInt(req.Issued)
	if !ok {
		badRequest(c, "invalid issued amount")
		return
	}

	quote, err := h.quotes.QuoteDeposit(c.Request.Context(), source, issued)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error":   err.Error(),
			"code":    "QUOTE_FAILED",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"quote":   quote,
	})
}

// WithdrawQuoteRequest asks how to route released collateral into one asset.
type WithdrawQuoteRequest struct {
	Target string `json:"target" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

// WithdrawQuoteHandler handles POST /api/quote/withdraw
func (h *QuoteHandler) WithdrawQuoteHandler(c *gin.Context) {
	var req WithdrawQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	target, ok := parseAddress(req.Target)
	if !ok {
		badRequest(c, "invalid target address")
		return
	}
	amount, ok := parseBigInt(req.Amount)
	if !ok {
		badRequest(c, "invalid amount")
		return
	}

	quote, err := h.quotes.QuoteWithdraw(c.Request.Context(), target, amount)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error":   err.Error(),
			"code":    "QUOTE_FAILED",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"quote":   quote,
	})
}

// RequirementsHandler handles GET /api/quote/requirements/:issued
func (h *QuoteHandler) RequirementsHandler(c *gin.Context) {
	issued, ok := parseBigInt(c.Param("issued"))
	if !ok {
		badRequest(c, "invalid issued amount")
		return
	}

	legA, legB, legAAsset, legBAsset := h.quotes.RequiredLegs(issued)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"issued":  issued.String(),
		"requirements": []gin.H{
			{"asset": legAAsset.Hex(), "required": legA.String()},
			{"asset": legBAsset.Hex(), "required": legB.String()},
		},
	})
}
