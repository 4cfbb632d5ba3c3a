package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"issuance-backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// OperationsHandler serves the persisted operation audit log.
type OperationsHandler struct {
	issuance *services.IssuanceService
}

func NewOperationsHandler(issuance *services.IssuanceService) *OperationsHandler {
	return &OperationsHandler{issuance: issuance}
}

// ListHandler handles GET /api/operations
func (h *OperationsHandler) ListHandler(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			badRequest(c, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	offset := 0
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(c, "offset must be non-negative")
			return
		}
		offset = n
	}

	records, err := h.issuance.Operations(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to load operations",
			"code":    "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"operations": records,
		"limit":      limit,
		"offset":     offset,
	})
}

// GetHandler handles GET /api/operations/:id
func (h *OperationsHandler) GetHandler(c *gin.Context) {
	id := c.Param("id")
	record, err := h.issuance.OperationByID(c.Request.Context(), id)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to load operation",
			"code":    "INTERNAL_ERROR",
		})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "operation not found",
			"code":    "OPERATION_NOT_FOUND",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"operation": record,
	})
}

// BalanceHandler handles GET /api/assets/:asset/balance/:holder
func (h *OperationsHandler) BalanceHandler(c *gin.Context) {
	asset, ok := parseAddress(c.Param("asset"))
	if !ok {
		badRequest(c, "invalid asset address")
		return
	}
	holder, ok := parseAddress(c.Param("holder"))
	if !ok {
		badRequest(c, "invalid holder address")
		return
	}

	bal := h.issuance.BalanceOf(asset, holder)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"asset":   asset.Hex(),
		"holder":  holder.Hex(),
		"balance": bal.String(),
	})
}
