package vault

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"issuance-backend/internal/access"
	"issuance-backend/internal/assets"
)

var (
	legAAddr  = common.HexToAddress("0x0a01") // 8 decimals
	legBAddr  = common.HexToAddress("0x0b01") // 18 decimals
	tokenAddr = common.HexToAddress("0x1000") // 18 decimals
	vaultAddr = common.HexToAddress("0x3000")
	gwAddr    = common.HexToAddress("0x4000")
	ownerAddr = common.HexToAddress("0x5000")
	mgrAddr   = common.HexToAddress("0x5001")
	emgAddr   = common.HexToAddress("0x5002")
	userAddr  = common.HexToAddress("0x6000")
)

func mustBig(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("bad big literal %q", s)
	}
	return v
}

func tenPow(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

// fixture wires a vault with unitFactor 1e10 (8 -> 18 decimals), k = 1.0 and
// ratioConstant = 10.0: one leg A unit backs 1e10 issued units alongside ten
// leg B base units per leg A base unit scaled up.
func fixture(t *testing.T, mintFee, burnFee *big.Int) (*Vault, *assets.Book, *assets.IssuedToken, *access.Roles) {
	t.Helper()
	book := assets.NewBook(nil)
	book.RegisterAsset(assets.Asset{Address: legAAddr, Symbol: "WBTC", Decimals: 8})
	book.RegisterAsset(assets.Asset{Address: legBAddr, Symbol: "STETH", Decimals: 18})
	book.RegisterAsset(assets.Asset{Address: tokenAddr, Symbol: "USDR", Decimals: 18})

	hc := &assets.HeightCounter{}
	hc.Advance(100)
	token := assets.NewIssuedToken(book, tokenAddr, hc)
	if err := token.GrantAgent(vaultAddr, new(big.Int).Mul(big.NewInt(1_000_000_000), tenPow(18)), 0, 1<<40, true, true); err != nil {
		t.Fatalf("grant vault agent: %v", err)
	}

	roles := access.NewRoles(ownerAddr)
	if err := roles.Grant(ownerAddr, access.RoleVaultManager, mgrAddr); err != nil {
		t.Fatalf("grant manager: %v", err)
	}
	if err := roles.Grant(ownerAddr, access.RoleEmergencyManager, emgAddr); err != nil {
		t.Fatalf("grant emergency manager: %v", err)
	}

	v, err := New(book, token, roles, vaultAddr, gwAddr, Params{
		LegA:             legAAddr,
		LegB:             legBAddr,
		UnitFactor:       tenPow(10),
		RatioConstant:    new(big.Int).Mul(big.NewInt(10), RateScale),
		ConversionRatioK: new(big.Int).Set(RateScale),
		MintFeeRate:      mintFee,
		BurnFeeRate:      burnFee,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v, book, token, roles
}

// fund places both legs for issuedAmount into vault custody, as the gateway
// does before calling Deposit, and returns the leg A amount.
func fund(t *testing.T, v *Vault, book *assets.Book, issued *big.Int) *big.Int {
	t.Helper()
	legA := v.LegAForIssued(issued)
	legB := v.LegBForLegA(legA)
	if err := book.Mint(legAAddr, vaultAddr, legA); err != nil {
		t.Fatalf("fund legA: %v", err)
	}
	if err := book.Mint(legBAddr, vaultAddr, legB); err != nil {
		t.Fatalf("fund legB: %v", err)
	}
	return legA
}

func TestDepositWithdrawExactRatio(t *testing.T) {
	v, book, _, _ := fixture(t, big.NewInt(0), big.NewInt(0))

	// 7503.15 issued at 18 decimals
	issued := mustBig(t, "7503150000000000000000")
	legA := fund(t, v, book, issued)

	if got := legA.String(); got != "750315000000" { // 7503.15 at 8 decimals
		t.Fatalf("legA = %s, want 750315000000", got)
	}
	legB := v.LegBForLegA(legA)
	if got := legB.String(); got != "75031500000000000000000" { // 75031.5 at 18 decimals
		t.Fatalf("legB = %s, want 75031500000000000000000", got)
	}

	net, err := v.Deposit(gwAddr, userAddr, legA)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if net.Cmp(issued) != 0 {
		t.Fatalf("net issued = %v, want %v", net, issued)
	}
	if got := book.BalanceOf(tokenAddr, userAddr); got.Cmp(issued) != 0 {
		t.Fatalf("user balance = %v, want %v", got, issued)
	}
	if got := v.TotalIssued(); got.Cmp(issued) != 0 {
		t.Fatalf("totalIssued = %v, want %v", got, issued)
	}

	// send the issued amount back into custody and withdraw it
	if err := book.Transfer(tokenAddr, userAddr, vaultAddr, issued); err != nil {
		t.Fatalf("return issued: %v", err)
	}
	legAOut, legBOut, err := v.Withdraw(gwAddr, issued)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if legAOut.Cmp(legA) != 0 {
		t.Fatalf("legAOut = %v, want %v", legAOut, legA)
	}
	if legBOut.Cmp(legB) != 0 {
		t.Fatalf("legBOut = %v, want %v", legBOut, legB)
	}
	if got := v.TotalIssued(); got.Sign() != 0 {
		t.Fatalf("totalIssued after round trip = %v, want 0", got)
	}
	if got := book.BalanceOf(legAAddr, vaultAddr); got.Sign() != 0 {
		t.Fatalf("legA residue = %v, want 0", got)
	}
	if got := book.BalanceOf(legBAddr, vaultAddr); got.Sign() != 0 {
		t.Fatalf("legB residue = %v, want 0", got)
	}
}

func TestMintFeeSkim(t *testing.T) {
	// 9.9999% mint fee
	fee := mustBig(t, "99999000000000000")
	v, book, _, _ := fixture(t, fee, big.NewInt(0))

	issued := new(big.Int).Mul(big.NewInt(100), tenPow(18))
	legA := fund(t, v, book, issued)

	net, err := v.Deposit(gwAddr, userAddr, legA)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	wantNet := mustBig(t, "90000100000000000000")  // 90.0001
	wantFee := mustBig(t, "9999900000000000000")   // 9.9999
	if net.Cmp(wantNet) != 0 {
		t.Fatalf("net = %v, want %v", net, wantNet)
	}
	if got := book.BalanceOf(tokenAddr, userAddr); got.Cmp(wantNet) != 0 {
		t.Fatalf("beneficiary = %v, want %v", got, wantNet)
	}
	if got := v.AccruedFees(); got.Cmp(wantFee) != 0 {
		t.Fatalf("accrued fees = %v, want %v", got, wantFee)
	}
	// the fee never counts as backed supply
	if got := v.TotalIssued(); got.Cmp(wantNet) != 0 {
		t.Fatalf("totalIssued = %v, want %v", got, wantNet)
	}
}

func TestRoundTripWithMintFee(t *testing.T) {
	fee := mustBig(t, "10000000000000000") // 1%
	v, book, _, _ := fixture(t, fee, big.NewInt(0))

	issued := new(big.Int).Mul(big.NewInt(1000), tenPow(18))
	fund(t, v, book, issued)
	legA := v.LegAForIssued(issued)
	preA := book.BalanceOf(legAAddr, vaultAddr)
	preTotal := v.TotalIssued()

	net, err := v.Deposit(gwAddr, userAddr, legA)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := book.Transfer(tokenAddr, userAddr, vaultAddr, net); err != nil {
		t.Fatalf("return issued: %v", err)
	}
	legAOut, _, err := v.Withdraw(gwAddr, net)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	if got := v.TotalIssued(); got.Cmp(preTotal) != 0 {
		t.Fatalf("totalIssued after round trip = %v, want %v", got, preTotal)
	}
	// vault keeps legA minus the floor-rounded payout; residue stays within
	// one rounding unit of the fee's share of backing
	residue := new(big.Int).Sub(preA, legAOut)
	feeBacking := v.LegAForIssued(v.AccruedFees())
	diff := new(big.Int).Sub(residue, feeBacking)
	if diff.Sign() < 0 || diff.Cmp(big.NewInt(1)) > 0 {
		t.Fatalf("legA residue %v vs fee backing %v, diff %v outside [0,1]", residue, feeBacking, diff)
	}
}

func TestClaimableSurplus(t *testing.T) {
	v, book, _, _ := fixture(t, big.NewInt(0), big.NewInt(0))

	issued := new(big.Int).Mul(big.NewInt(10), tenPow(18))
	legA := fund(t, v, book, issued)
	if _, err := v.Deposit(gwAddr, userAddr, legA); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	surplus, err := v.ClaimableSurplus(legBAddr)
	if err != nil {
		t.Fatalf("surplus: %v", err)
	}
	if surplus.Sign() != 0 {
		t.Fatalf("surplus before accrual = %v, want 0", surplus)
	}

	// external yield accrual on the yield-bearing leg
	accrual := new(big.Int).Mul(big.NewInt(3), tenPow(18))
	if err := book.Mint(legBAddr, vaultAddr, accrual); err != nil {
		t.Fatalf("accrue: %v", err)
	}
	surplus, err = v.ClaimableSurplus(legBAddr)
	if err != nil {
		t.Fatalf("surplus: %v", err)
	}
	if surplus.Cmp(accrual) != 0 {
		t.Fatalf("surplus = %v, want %v", surplus, accrual)
	}

	if _, err := v.Claim(userAddr, legBAddr, userAddr); !errors.Is(err, access.ErrNotManager) {
		t.Fatalf("claim by non-manager = %v, want ErrNotManager", err)
	}
	got, err := v.Claim(mgrAddr, legBAddr, mgrAddr)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got.Cmp(accrual) != 0 {
		t.Fatalf("claimed = %v, want %v", got, accrual)
	}
	surplus, _ = v.ClaimableSurplus(legBAddr)
	if surplus.Sign() != 0 {
		t.Fatalf("surplus after claim = %v, want 0", surplus)
	}
	// balance is back at the exact required reserve
	required, _ := v.RequiredReserve(legBAddr)
	if got := book.BalanceOf(legBAddr, vaultAddr); got.Cmp(required) != 0 {
		t.Fatalf("legB balance = %v, want required %v", got, required)
	}
}

func TestFeeRateCeiling(t *testing.T) {
	v, _, _, _ := fixture(t, big.NewInt(0), big.NewInt(0))

	atCeiling := new(big.Int).Set(FeeRateCeiling)
	if err := v.UpdateMintFeeRate(mgrAddr, atCeiling); !errors.Is(err, ErrFeeRateTooHigh) {
		t.Fatalf("rate at ceiling = %v, want ErrFeeRateTooHigh", err)
	}
	justBelow := new(big.Int).Sub(FeeRateCeiling, big.NewInt(1))
	if err := v.UpdateMintFeeRate(mgrAddr, justBelow); err != nil {
		t.Fatalf("rate just below ceiling: %v", err)
	}
	if err := v.UpdateBurnFeeRate(userAddr, big.NewInt(1)); !errors.Is(err, access.ErrNotManager) {
		t.Fatalf("update by non-manager = %v, want ErrNotManager", err)
	}
}

func TestGatewayGate(t *testing.T) {
	v, book, _, _ := fixture(t, big.NewInt(0), big.NewInt(0))
	issued := new(big.Int).Mul(big.NewInt(10), tenPow(18))
	legA := fund(t, v, book, issued)
	if _, err := v.Deposit(userAddr, userAddr, legA); !errors.Is(err, ErrNotGateway) {
		t.Fatalf("deposit by non-gateway = %v, want ErrNotGateway", err)
	}
	if _, _, err := v.Withdraw(userAddr, issued); !errors.Is(err, ErrNotGateway) {
		t.Fatalf("withdraw by non-gateway = %v, want ErrNotGateway", err)
	}
}

func TestPause(t *testing.T) {
	v, book, _, _ := fixture(t, big.NewInt(0), big.NewInt(0))
	issued := new(big.Int).Mul(big.NewInt(10), tenPow(18))
	legA := fund(t, v, book, issued)

	if err := v.Pause(userAddr); !errors.Is(err, access.ErrNotManager) {
		t.Fatalf("pause by user = %v, want ErrNotManager", err)
	}
	if err := v.Pause(emgAddr); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := v.Deposit(gwAddr, userAddr, legA); !errors.Is(err, ErrPaused) {
		t.Fatalf("deposit while paused = %v, want ErrPaused", err)
	}
	// claims stay available while paused
	if err := book.Mint(legBAddr, vaultAddr, big.NewInt(5)); err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if _, err := v.Claim(mgrAddr, legBAddr, mgrAddr); err != nil {
		t.Fatalf("claim while paused: %v", err)
	}
	if err := v.Unpause(emgAddr); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if _, err := v.Deposit(gwAddr, userAddr, legA); err != nil {
		t.Fatalf("deposit after unpause: %v", err)
	}
}

func TestSetGateway(t *testing.T) {
	v, _, _, _ := fixture(t, big.NewInt(0), big.NewInt(0))
	if err := v.SetGateway(mgrAddr, userAddr); !errors.Is(err, access.ErrNotOwner) {
		t.Fatalf("set gateway by manager = %v, want ErrNotOwner", err)
	}
	if err := v.SetGateway(ownerAddr, userAddr); err != nil {
		t.Fatalf("set gateway: %v", err)
	}
	if v.Gateway() != userAddr {
		t.Fatalf("gateway = %v, want %v", v.Gateway(), userAddr)
	}
}

func TestConstructorRejectsHighFees(t *testing.T) {
	book := assets.NewBook(nil)
	book.RegisterAsset(assets.Asset{Address: tokenAddr, Symbol: "USDR", Decimals: 18})
	hc := &assets.HeightCounter{}
	token := assets.NewIssuedToken(book, tokenAddr, hc)
	roles := access.NewRoles(ownerAddr)
	_, err := New(book, token, roles, vaultAddr, gwAddr, Params{
		LegA:             legAAddr,
		LegB:             legBAddr,
		UnitFactor:       tenPow(10),
		RatioConstant:    RateScale,
		ConversionRatioK: RateScale,
		MintFeeRate:      new(big.Int).Set(FeeRateCeiling),
		BurnFeeRate:      big.NewInt(0),
	})
	if !errors.Is(err, ErrFeeRateTooHigh) {
		t.Fatalf("constructor fee at ceiling = %v, want ErrFeeRateTooHigh", err)
	}
}
