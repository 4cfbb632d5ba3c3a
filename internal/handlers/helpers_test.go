package handlers

import (
	"net/http/httptest"
	"testing"

	"issuance-backend/internal/access"
	"issuance-backend/internal/assets"
	"issuance-backend/internal/gateway"
	"issuance-backend/internal/vault"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseBigInt(t *testing.T) {
	if v, ok := parseBigInt("1000000000000000000"); !ok || v.String() != "1000000000000000000" {
		t.Fatalf("parse = %v, %v", v, ok)
	}
	if _, ok := parseBigInt("-5"); ok {
		t.Fatalf("negative accepted")
	}
	if _, ok := parseBigInt("0x10"); ok {
		t.Fatalf("hex accepted")
	}
	if _, ok := parseBigInt("abc"); ok {
		t.Fatalf("garbage accepted")
	}
}

func TestParseAddress(t *testing.T) {
	if _, ok := parseAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"); !ok {
		t.Fatalf("valid address rejected")
	}
	if _, ok := parseAddress("0x123"); ok {
		t.Fatalf("short address accepted")
	}
	if _, ok := parseAddress("not-an-address"); ok {
		t.Fatalf("garbage accepted")
	}
}

func TestRespondOperationErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{access.ErrNotOwner, 403},
		{access.ErrNotManager, 403},
		{assets.ErrNoAgent, 403},
		{assets.ErrNotMinable, 403},
		{assets.ErrSignatureExpired, 400},
		{assets.ErrCreditExceeded, 409},
		{gateway.ErrAmountTooLow, 400},
		{gateway.ErrLegMismatch, 400},
		{vault.ErrFeeRateTooHigh, 400},
		{gateway.ErrPaused, 503},
		{vault.ErrPaused, 503},
		{gateway.ErrSlippageExceeded, 409},
		{vault.ErrReserveShortfall, 409},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondOperationError(c, tc.err)
		if w.Code != tc.status {
			t.Errorf("%v -> %d, want %d", tc.err, w.Code, tc.status)
		}
	}
}
