package services

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"issuance-backend/internal/access"
	"issuance-backend/internal/assets"
	"issuance-backend/internal/engine"
	"issuance-backend/internal/events"
	"issuance-backend/internal/gateway"
	"issuance-backend/internal/vault"
)

var (
	legAAddr  = common.HexToAddress("0x0a01")
	legBAddr  = common.HexToAddress("0x0b01")
	tokenAddr = common.HexToAddress("0x1000")
	vaultAddr = common.HexToAddress("0x3000")
	gwAddr    = common.HexToAddress("0x4000")
	ownerAddr = common.HexToAddress("0x5000")
	mgrAddr   = common.HexToAddress("0x5001")
	userAddr  = common.HexToAddress("0x6000")
	agentAddr = common.HexToAddress("0x6100")
)

func tenPow(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

func newService(t *testing.T) *IssuanceService {
	t.Helper()
	book := assets.NewBook(nil)
	book.RegisterAsset(assets.Asset{Address: legAAddr, Symbol: "WBTC", Decimals: 8})
	book.RegisterAsset(assets.Asset{Address: legBAddr, Symbol: "STETH", Decimals: 18})
	book.RegisterAsset(assets.Asset{Address: tokenAddr, Symbol: "USDR", Decimals: 18})

	hc := &assets.HeightCounter{}
	hc.Advance(500)
	token := assets.NewIssuedToken(book, tokenAddr, hc)
	if err := token.GrantAgent(vaultAddr, new(big.Int).Mul(big.NewInt(1_000_000), tenPow(18)), 0, 1<<40, true, true); err != nil {
		t.Fatalf("grant vault agent: %v", err)
	}

	roles := access.NewRoles(ownerAddr)
	if err := roles.Grant(ownerAddr, access.RoleVaultManager, mgrAddr); err != nil {
		t.Fatalf("grant manager: %v", err)
	}

	v, err := vault.New(book, token, roles, vaultAddr, gwAddr, vault.Params{
		LegA:             legAAddr,
		LegB:             legBAddr,
		UnitFactor:       tenPow(10),
		RatioConstant:    new(big.Int).Mul(big.NewInt(10), vault.RateScale),
		ConversionRatioK: new(big.Int).Set(vault.RateScale),
		MintFeeRate:      big.NewInt(0),
		BurnFeeRate:      big.NewInt(0),
	})
	if err != nil {
		t.Fatalf("vault.New: %v", err)
	}

	g := gateway.New(book, token, v, roles, gateway.Config{
		Address:    gwAddr,
		MinDeposit: tenPow(18),
	}, func() time.Time { return time.Unix(1_700_000_000, 0) })
	for _, a := range []common.Address{legAAddr, legBAddr} {
		if err := g.UpdateSupportToken(mgrAddr, a, true); err != nil {
			t.Fatalf("support %v: %v", a, err)
		}
	}

	eng := engine.New(book, token, v, g, roles, hc, func() time.Time { return time.Unix(1_700_000_000, 0) })
	return NewIssuanceService(eng, nil, nil, nil, nil, nil, events.NewPublisher(nil))
}

func fund(t *testing.T, s *IssuanceService, asset common.Address, amount *big.Int) {
	t.Helper()
	eng := s.Engine()
	if err := eng.Book.Mint(asset, userAddr, amount); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := eng.Book.Approve(asset, userAddr, gwAddr, amount); err != nil {
		t.Fatalf("approve: %v", err)
	}
}

func TestCombinationDepositCommits(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	issued := new(big.Int).Mul(big.NewInt(10), tenPow(18))
	legA := s.Engine().Vault.LegAForIssued(issued)
	legB := s.Engine().Vault.LegBForLegA(legA)
	fund(t, s, legAAddr, legA)
	fund(t, s, legBAddr, legB)

	op, minted, err := s.CombinationDeposit(ctx, userAddr, issued, legBAddr, 0)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if minted.Cmp(issued) != 0 {
		t.Fatalf("minted = %v, want %v", minted, issued)
	}
	if op.Kind != OpCombinationDeposit || op.Seq != 1 {
		t.Fatalf("op = %+v", op)
	}
	if op.Detail["issued"] != issued.String() {
		t.Fatalf("detail = %v", op.Detail)
	}

	state := s.VaultState()
	if state.TotalIssued.Cmp(issued) != 0 {
		t.Fatalf("totalIssued = %v, want %v", state.TotalIssued, issued)
	}
}

func TestRejectedOperationDoesNotAdvanceSeq(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	// below the gateway minimum
	_, _, err := s.CombinationDeposit(ctx, userAddr, big.NewInt(1), legBAddr, 0)
	if !errors.Is(err, gateway.ErrAmountTooLow) {
		t.Fatalf("deposit = %v, want ErrAmountTooLow", err)
	}

	op, err := s.PauseVault(ctx, mgrAddr)
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if op.Seq != 1 {
		t.Fatalf("seq = %d, want 1", op.Seq)
	}
}

func TestPauseBlocksDeposits(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	if _, err := s.PauseVault(ctx, mgrAddr); err != nil {
		t.Fatalf("pause: %v", err)
	}

	issued := new(big.Int).Mul(big.NewInt(10), tenPow(18))
	legA := s.Engine().Vault.LegAForIssued(issued)
	legB := s.Engine().Vault.LegBForLegA(legA)
	fund(t, s, legAAddr, legA)
	fund(t, s, legBAddr, legB)

	_, _, err := s.CombinationDeposit(ctx, userAddr, issued, legBAddr, 0)
	if !errors.Is(err, vault.ErrPaused) {
		t.Fatalf("deposit = %v, want ErrPaused", err)
	}

	if _, err := s.UnpauseVault(ctx, mgrAddr); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if _, _, err := s.CombinationDeposit(ctx, userAddr, issued, legBAddr, 0); err != nil {
		t.Fatalf("deposit after unpause: %v", err)
	}
}

func TestGrantAgentOwnerOnly(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	maxCredit := new(big.Int).Mul(big.NewInt(100), tenPow(18))

	_, err := s.GrantAgent(ctx, userAddr, agentAddr, maxCredit, 0, 1<<40, true, false)
	if !errors.Is(err, access.ErrNotOwner) {
		t.Fatalf("grant by user = %v, want ErrNotOwner", err)
	}

	op, err := s.GrantAgent(ctx, ownerAddr, agentAddr, maxCredit, 600, 1<<40, true, false)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if op.Kind != OpGrantAgent {
		t.Fatalf("op kind = %q", op.Kind)
	}

	view := s.GrantOf(agentAddr)
	if view == nil {
		t.Fatalf("grant view missing")
	}
	if view.MaxCredit != maxCredit.String() || view.EffectiveHeight != 600 {
		t.Fatalf("view = %+v", view)
	}
	if !view.Minable || view.Burnable {
		t.Fatalf("flags = %+v", view)
	}
}

func TestSetExpirationHeightRejectsInvertedWindow(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	if _, err := s.GrantAgent(ctx, ownerAddr, agentAddr, tenPow(18), 600, 1000, true, true); err != nil {
		t.Fatalf("grant: %v", err)
	}

	_, err := s.SetExpirationHeight(ctx, ownerAddr, agentAddr, 500)
	if !errors.Is(err, assets.ErrInvalidHeightSpan) {
		t.Fatalf("set expiration = %v, want ErrInvalidHeightSpan", err)
	}

	if _, err := s.SetExpirationHeight(ctx, ownerAddr, agentAddr, 2000); err != nil {
		t.Fatalf("set expiration: %v", err)
	}
	if view := s.GrantOf(agentAddr); view.ExpirationHeight != 2000 {
		t.Fatalf("expiration = %d, want 2000", view.ExpirationHeight)
	}
}

func TestPermitRelayConsumesNonce(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	owner := crypto.PubkeyToAddress(key.PublicKey)

	req := assets.PermitRequest{
		Asset:    legAAddr,
		Owner:    owner,
		Spender:  gwAddr,
		Amount:   tenPow(18),
		Nonce:    0,
		Deadline: time.Now().Add(time.Hour).Unix(),
	}
	sig, err := crypto.Sign(assets.PermitDigest(req), key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := s.Permit(ctx, userAddr, req, sig); err != nil {
		t.Fatalf("permit: %v", err)
	}
	if got := s.PermitNonce(owner); got != 1 {
		t.Fatalf("nonce = %d, want 1", got)
	}

	// replay with the consumed nonce
	_, err = s.Permit(ctx, userAddr, req, sig)
	if !errors.Is(err, assets.ErrBadNonce) {
		t.Fatalf("replay = %v, want ErrBadNonce", err)
	}
}

func TestRoleAdministration(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	member := common.HexToAddress("0x5002")

	_, err := s.GrantRole(ctx, mgrAddr, access.RoleEmergencyManager, member)
	if !errors.Is(err, access.ErrNotOwner) {
		t.Fatalf("grant by manager = %v, want ErrNotOwner", err)
	}

	if _, err := s.GrantRole(ctx, ownerAddr, access.RoleEmergencyManager, member); err != nil {
		t.Fatalf("grant: %v", err)
	}
	members := s.RoleMembers(access.RoleEmergencyManager)
	if len(members) != 1 || members[0] != member {
		t.Fatalf("members = %v", members)
	}

	if _, err := s.RevokeRole(ctx, ownerAddr, access.RoleEmergencyManager, member); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if got := s.RoleMembers(access.RoleEmergencyManager); len(got) != 0 {
		t.Fatalf("members after revoke = %v", got)
	}
}

func TestUpdateFeeRateCeiling(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	_, err := s.UpdateMintFeeRate(ctx, mgrAddr, new(big.Int).Set(vault.RateScale))
	if !errors.Is(err, vault.ErrFeeRateTooHigh) {
		t.Fatalf("update = %v, want ErrFeeRateTooHigh", err)
	}

	rate := new(big.Int).Div(vault.RateScale, big.NewInt(100)) // 1%
	if _, err := s.UpdateMintFeeRate(ctx, mgrAddr, rate); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := s.VaultState().MintFeeRate; got.Cmp(rate) != 0 {
		t.Fatalf("mint fee rate = %v, want %v", got, rate)
	}
}
