package handlers

import (
	"errors"
	"math/big"
	"net/http"
	"strings"

	"issuance-backend/internal/access"
	"issuance-backend/internal/assets"
	"issuance-backend/internal/gateway"
	"issuance-backend/internal/vault"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// parseAddress validates and parses one 0x-prefixed 20-byte hex address.
func parseAddress(s string) (common.Address, bool) {
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}

// parseBigInt parses a non-negative decimal amount string.
func parseBigInt(s string) (*big.Int, bool) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   message,
	})
}

// respondOperationError maps domain errors onto HTTP statuses: authorization
// failures are 403, business rejections are 409, validation failures 400.
func respondOperationError(c *gin.Context, err error) {
	status := http.StatusConflict

	switch {
	case errors.Is(err, access.ErrNotOwner),
		errors.Is(err, access.ErrNotManager),
		errors.Is(err, assets.ErrNoAgent),
		errors.Is(err, assets.ErrNotMinable),
		errors.Is(err, assets.ErrNotBurnable):
		status = http.StatusForbidden
	case errors.Is(err, access.ErrBadRole),
		errors.Is(err, gateway.ErrArityMismatch),
		errors.Is(err, gateway.ErrTooManyLegs),
		errors.Is(err, gateway.ErrLegMismatch),
		errors.Is(err, gateway.ErrUnsupportedAsset),
		errors.Is(err, gateway.ErrAmountTooLow),
		errors.Is(err, vault.ErrZeroAmount),
		errors.Is(err, vault.ErrUnknownLeg),
		errors.Is(err, vault.ErrFeeRateTooHigh),
		errors.Is(err, assets.ErrUnknownAsset),
		errors.Is(err, assets.ErrInvalidHeightSpan),
		errors.Is(err, assets.ErrBadSignature),
		errors.Is(err, assets.ErrBadNonce),
		errors.Is(err, assets.ErrSignatureExpired):
		status = http.StatusBadRequest
	case errors.Is(err, gateway.ErrPaused),
		errors.Is(err, vault.ErrPaused):
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

// operationResponse is the common success envelope for state-changing calls.
func operationResponse(extra gin.H, opID string, seq uint64) gin.H {
	out := gin.H{
		"success":      true,
		"operation_id": opID,
		"seq":          seq,
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
