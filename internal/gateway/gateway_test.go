package gateway

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"issuance-backend/internal/access"
	"issuance-backend/internal/assets"
	"issuance-backend/internal/vault"
)

var (
	legAAddr   = common.HexToAddress("0x0a01") // 8 decimals
	legBAddr   = common.HexToAddress("0x0b01") // 18 decimals, yield-bearing
	legBNative = common.HexToAddress("0x0b02") // 18 decimals, native form
	usdcAddr   = common.HexToAddress("0x0c01") // 6 decimals, swap source
	tokenAddr  = common.HexToAddress("0x1000")
	vaultAddr  = common.HexToAddress("0x3000")
	gwAddr     = common.HexToAddress("0x4000")
	routerAddr = common.HexToAddress("0x7000")
	shadyAddr  = common.HexToAddress("0x7999")
	ownerAddr  = common.HexToAddress("0x5000")
	mgrAddr    = common.HexToAddress("0x5001")
	emgAddr    = common.HexToAddress("0x5002")
	userAddr   = common.HexToAddress("0x6000")
)

func tenPow(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

// fixedRateRouter swaps whatever allowance the gateway granted it into its
// output asset at a fixed numerator/denominator rate, out of its own
// liquidity.
type fixedRateRouter struct {
	addr     common.Address
	from, to common.Address
	num, den *big.Int
}

func (r *fixedRateRouter) Execute(book *assets.Book, taker common.Address, data []byte) error {
	amount := book.Allowance(r.from, taker, r.addr)
	if err := book.TransferFrom(r.from, r.addr, taker, r.addr, amount); err != nil {
		return err
	}
	out := new(big.Int).Mul(amount, r.num)
	out.Div(out, r.den)
	return book.Transfer(r.to, r.addr, taker, out)
}

// wrapBridge converts leg B between its native and yield-bearing forms 1:1.
type wrapBridge struct {
	native, yield common.Address
}

func (w wrapBridge) Wrap(book *assets.Book, holder common.Address, amount *big.Int) error {
	if err := book.Burn(w.native, holder, amount); err != nil {
		return err
	}
	return book.Mint(w.yield, holder, amount)
}

func (w wrapBridge) Unwrap(book *assets.Book, holder common.Address, amount *big.Int) error {
	if err := book.Burn(w.yield, holder, amount); err != nil {
		return err
	}
	return book.Mint(w.native, holder, amount)
}

type fixtureState struct {
	book  *assets.Book
	token *assets.IssuedToken
	vault *vault.Vault
	gw    *Gateway
	now   time.Time
}

func fixture(t *testing.T) *fixtureState {
	t.Helper()
	book := assets.NewBook(nil)
	book.RegisterAsset(assets.Asset{Address: legAAddr, Symbol: "WBTC", Decimals: 8})
	book.RegisterAsset(assets.Asset{Address: legBAddr, Symbol: "STETH", Decimals: 18})
	book.RegisterAsset(assets.Asset{Address: legBNative, Symbol: "WETH", Decimals: 18})
	book.RegisterAsset(assets.Asset{Address: usdcAddr, Symbol: "USDC", Decimals: 6})
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

	now := time.Unix(1_700_000_000, 0)
	g := New(book, token, v, roles, Config{
		Address:    gwAddr,
		LegBNative: legBNative,
		MinDeposit: tenPow(18),
	}, func() time.Time { return now })
	g.BindWrapper(wrapBridge{native: legBNative, yield: legBAddr})

	for _, a := range []common.Address{legAAddr, legBAddr, legBNative, usdcAddr} {
		if err := g.UpdateSupportToken(mgrAddr, a, true); err != nil {
			t.Fatalf("support %v: %v", a, err)
		}
	}
	return &fixtureState{book: book, token: token, vault: v, gw: g, now: now}
}

// fundUser gives the user balances and the gateway allowances over them.
func (f *fixtureState) fundUser(t *testing.T, asset common.Address, amount *big.Int) {
	t.Helper()
	if err := f.book.Mint(asset, userAddr, amount); err != nil {
		t.Fatalf("mint %v: %v", asset, err)
	}
	if err := f.book.Approve(asset, userAddr, gwAddr, amount); err != nil {
		t.Fatalf("approve %v: %v", asset, err)
	}
}

// addRouter registers and whitelists a fixed-rate router with liquidity.
func (f *fixtureState) addRouter(t *testing.T, from, to common.Address, num, den int64, liquidity *big.Int) *fixedRateRouter {
	t.Helper()
	r := &fixedRateRouter{addr: routerAddr, from: from, to: to, num: big.NewInt(num), den: big.NewInt(den)}
	f.gw.BindRouter(routerAddr, r)
	if err := f.gw.UpdateSwapWhiteLists(mgrAddr, []common.Address{routerAddr}, []bool{true}); err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	if err := f.book.Mint(to, routerAddr, liquidity); err != nil {
		t.Fatalf("router liquidity: %v", err)
	}
	return r
}

func TestCombinationDepositYieldLeg(t *testing.T) {
	f := fixture(t)
	issued := new(big.Int).Mul(big.NewInt(100), tenPow(18))
	legA := f.vault.LegAForIssued(issued)
	legB := f.vault.LegBForLegA(legA)
	f.fundUser(t, legAAddr, legA)
	f.fundUser(t, legBAddr, legB)

	net, err := f.gw.CombinationDeposit(userAddr, issued, legBAddr, 0)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if net.Cmp(issued) != 0 {
		t.Fatalf("net = %v, want %v", net, issued)
	}
	if got := f.book.BalanceOf(tokenAddr, userAddr); got.Cmp(issued) != 0 {
		t.Fatalf("user issued balance = %v, want %v", got, issued)
	}
	if got := f.book.BalanceOf(legAAddr, vaultAddr); got.Cmp(legA) != 0 {
		t.Fatalf("vault legA = %v, want %v", got, legA)
	}
}

func TestCombinationDepositNativeLegWraps(t *testing.T) {
	f := fixture(t)
	issued := new(big.Int).Mul(big.NewInt(10), tenPow(18))
	legA := f.vault.LegAForIssued(issued)
	legB := f.vault.LegBForLegA(legA)
	f.fundUser(t, legAAddr, legA)
	f.fundUser(t, legBNative, legB)

	if _, err := f.gw.CombinationDeposit(userAddr, issued, legBNative, 0); err != nil {
		t.Fatalf("native-leg deposit: %v", err)
	}
	// the vault custodies the yield form
	if got := f.book.BalanceOf(legBAddr, vaultAddr); got.Cmp(legB) != 0 {
		t.Fatalf("vault legB = %v, want %v", got, legB)
	}
	if got := f.book.BalanceOf(legBNative, vaultAddr); got.Sign() != 0 {
		t.Fatalf("vault native legB = %v, want 0", got)
	}
}

func TestCombinationDepositRejections(t *testing.T) {
	f := fixture(t)
	issued := new(big.Int).Mul(big.NewInt(10), tenPow(18))

	if _, err := f.gw.CombinationDeposit(userAddr, big.NewInt(1), legBAddr, 0); !errors.Is(err, ErrAmountTooLow) {
		t.Fatalf("dust deposit = %v, want ErrAmountTooLow", err)
	}
	if _, err := f.gw.CombinationDeposit(userAddr, issued, usdcAddr, 0); !errors.Is(err, ErrUnsupportedAsset) {
		t.Fatalf("bad legB choice = %v, want ErrUnsupportedAsset", err)
	}
	if _, err := f.gw.CombinationDeposit(userAddr, issued, legBAddr, f.now.Unix()-1); !errors.Is(err, ErrDeadlineExpired) {
		t.Fatalf("stale deadline = %v, want ErrDeadlineExpired", err)
	}
	if err := f.gw.Pause(emgAddr); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := f.gw.CombinationDeposit(userAddr, issued, legBAddr, 0); !errors.Is(err, ErrPaused) {
		t.Fatalf("paused deposit = %v, want ErrPaused", err)
	}
}

func TestSingleDepositSwapsBothLegs(t *testing.T) {
	f := fixture(t)
	issued := new(big.Int).Mul(big.NewInt(10), tenPow(18))
	requiredA := f.vault.LegAForIssued(issued)
	requiredB := f.vault.LegBForLegA(requiredA)

	// route leg A through the router, supply leg B directly
	f.addRouter(t, usdcAddr, legAAddr, 1, 100, new(big.Int).Mul(big.NewInt(10), tenPow(8)))

	fromAmount := new(big.Int).Mul(requiredA, big.NewInt(100)) // exact at 1:100
	f.fundUser(t, usdcAddr, fromAmount)
	f.fundUser(t, legBAddr, requiredB)

	legs := []SwapLeg{
		{
			FromAsset:     usdcAddr,
			ToAsset:       legAAddr,
			ApproveTarget: routerAddr,
			SwapTarget:    routerAddr,
			FromAmount:    fromAmount,
			MinReturn:     requiredA,
			CallData:      []byte{0x01},
		},
		{
			FromAsset:  legBAddr,
			ToAsset:    legBAddr,
			FromAmount: requiredB,
			MinReturn:  requiredB,
		},
	}
	net, err := f.gw.SingleDeposit(userAddr, issued, legs, 0)
	if err != nil {
		t.Fatalf("single deposit: %v", err)
	}
	if net.Cmp(issued) != 0 {
		t.Fatalf("net = %v, want %v", net, issued)
	}
	if got := f.book.BalanceOf(legAAddr, vaultAddr); got.Cmp(requiredA) != 0 {
		t.Fatalf("vault legA = %v, want %v", got, requiredA)
	}
	// no gateway float remains
	for _, a := range []common.Address{usdcAddr, legAAddr, legBAddr} {
		if got := f.book.BalanceOf(a, gwAddr); got.Sign() != 0 {
			t.Fatalf("gateway float of %v = %v, want 0", a, got)
		}
	}
}

func TestSingleDepositRefundsExcessOutput(t *testing.T) {
	f := fixture(t)
	issued := new(big.Int).Mul(big.NewInt(10), tenPow(18))
	requiredA := f.vault.LegAForIssued(issued)
	requiredB := f.vault.LegBForLegA(requiredA)

	f.addRouter(t, usdcAddr, legAAddr, 1, 100, new(big.Int).Mul(big.NewInt(20), tenPow(8)))

	// swap in 5% more than needed; excess leg A must come back
	fromAmount := new(big.Int).Mul(requiredA, big.NewInt(105))
	f.fundUser(t, usdcAddr, fromAmount)
	f.fundUser(t, legBAddr, requiredB)

	legs := []SwapLeg{
		{FromAsset: usdcAddr, ToAsset: legAAddr, ApproveTarget: routerAddr, SwapTarget: routerAddr,
			FromAmount: fromAmount, MinReturn: requiredA, CallData: []byte{0x01}},
		{FromAsset: legBAddr, ToAsset: legBAddr, FromAmount: requiredB, MinReturn: requiredB},
	}
	if _, err := f.gw.SingleDeposit(userAddr, issued, legs, 0); err != nil {
		t.Fatalf("single deposit: %v", err)
	}
	wantRefund := new(big.Int).Div(new(big.Int).Mul(requiredA, big.NewInt(5)), big.NewInt(100))
	if got := f.book.BalanceOf(legAAddr, userAddr); got.Cmp(wantRefund) != 0 {
		t.Fatalf("refund = %v, want %v", got, wantRefund)
	}
}

func TestSingleDepositRouterNotWhitelisted(t *testing.T) {
	f := fixture(t)
	issued := new(big.Int).Mul(big.NewInt(10), tenPow(18))
	fromAmount := new(big.Int).Mul(big.NewInt(1000), tenPow(6))
	f.fundUser(t, usdcAddr, fromAmount)
	pre := f.book.BalanceOf(usdcAddr, userAddr)

	legs := []SwapLeg{{
		FromAsset:     usdcAddr,
		ToAsset:       legAAddr,
		ApproveTarget: shadyAddr,
		SwapTarget:    shadyAddr,
		FromAmount:    fromAmount,
		MinReturn:     big.NewInt(1),
		CallData:      []byte{0x01},
	}}
	if _, err := f.gw.SingleDeposit(userAddr, issued, legs, 0); !errors.Is(err, ErrRouterNotWhitelisted) {
		t.Fatalf("shady router = %v, want ErrRouterNotWhitelisted", err)
	}
	// zero balance change
	if got := f.book.BalanceOf(usdcAddr, userAddr); got.Cmp(pre) != 0 {
		t.Fatalf("user balance changed: %v != %v", got, pre)
	}
}

func TestSingleDepositLegValidation(t *testing.T) {
	f := fixture(t)
	f.addRouter(t, usdcAddr, legBAddr, 1, 1, tenPow(18))
	issued := new(big.Int).Mul(big.NewInt(10), tenPow(18))
	f.fundUser(t, usdcAddr, new(big.Int).Mul(big.NewInt(1000), tenPow(6)))

	// leg 0 must produce leg A, not leg B
	legs := []SwapLeg{{
		FromAsset: usdcAddr, ToAsset: legBAddr,
		ApproveTarget: routerAddr, SwapTarget: routerAddr,
		FromAmount: big.NewInt(1000), MinReturn: big.NewInt(1), CallData: []byte{0x01},
	}}
	if _, err := f.gw.SingleDeposit(userAddr, issued, legs, 0); !errors.Is(err, ErrLegMismatch) {
		t.Fatalf("wrong target asset = %v, want ErrLegMismatch", err)
	}

	// unsupported source asset
	f.book.RegisterAsset(assets.Asset{Address: common.HexToAddress("0x0c02"), Symbol: "XXX", Decimals: 18})
	legs[0].FromAsset = common.HexToAddress("0x0c02")
	legs[0].ToAsset = legAAddr
	if _, err := f.gw.SingleDeposit(userAddr, issued, legs, 0); !errors.Is(err, ErrUnsupportedAsset) {
		t.Fatalf("unsupported source = %v, want ErrUnsupportedAsset", err)
	}

	// no-op leg must already be the required asset
	legs[0] = SwapLeg{FromAsset: usdcAddr, ToAsset: usdcAddr, FromAmount: big.NewInt(1000), MinReturn: big.NewInt(0)}
	if _, err := f.gw.SingleDeposit(userAddr, issued, legs, 0); !errors.Is(err, ErrLegMismatch) {
		t.Fatalf("no-op leg of wrong asset = %v, want ErrLegMismatch", err)
	}
}

func TestSingleDepositSlippage(t *testing.T) {
	f := fixture(t)
	issued := new(big.Int).Mul(big.NewInt(10), tenPow(18))
	requiredA := f.vault.LegAForIssued(issued)
	f.addRouter(t, usdcAddr, legAAddr, 1, 200, new(big.Int).Mul(big.NewInt(10), tenPow(8))) // half the expected rate

	fromAmount := new(big.Int).Mul(requiredA, big.NewInt(100))
	f.fundUser(t, usdcAddr, fromAmount)

	legs := []SwapLeg{{
		FromAsset: usdcAddr, ToAsset: legAAddr,
		ApproveTarget: routerAddr, SwapTarget: routerAddr,
		FromAmount: fromAmount, MinReturn: requiredA, CallData: []byte{0x01},
	}}
	if _, err := f.gw.SingleDeposit(userAddr, issued, legs, 0); !errors.Is(err, ErrSlippageExceeded) {
		t.Fatalf("half-rate swap = %v, want ErrSlippageExceeded", err)
	}
}

func TestSingleDepositLegDeadline(t *testing.T) {
	f := fixture(t)
	issued := new(big.Int).Mul(big.NewInt(10), tenPow(18))
	legs := []SwapLeg{{
		FromAsset: legAAddr, ToAsset: legAAddr,
		FromAmount: big.NewInt(1), MinReturn: big.NewInt(0),
		Deadline: f.now.Unix() - 1,
	}}
	if _, err := f.gw.SingleDeposit(userAddr, issued, legs, 0); !errors.Is(err, ErrDeadlineExpired) {
		t.Fatalf("stale leg deadline = %v, want ErrDeadlineExpired", err)
	}
}

func TestSingleWithdrawWithSwap(t *testing.T) {
	f := fixture(t)
	issued := new(big.Int).Mul(big.NewInt(10), tenPow(18))
	legA := f.vault.LegAForIssued(issued)
	legB := f.vault.LegBForLegA(legA)
	f.fundUser(t, legAAddr, legA)
	f.fundUser(t, legBAddr, legB)
	if _, err := f.gw.CombinationDeposit(userAddr, issued, legBAddr, 0); err != nil {
		t.Fatalf("seed deposit: %v", err)
	}

	// swap the leg A payout into USDC on the way out
	f.addRouter(t, legAAddr, usdcAddr, 100, 1, new(big.Int).Mul(big.NewInt(1_000_000), tenPow(6)))
	if err := f.book.Approve(tokenAddr, userAddr, gwAddr, issued); err != nil {
		t.Fatalf("approve issued: %v", err)
	}
	legs := []SwapLeg{{
		FromAsset: legAAddr, ToAsset: usdcAddr,
		ApproveTarget: routerAddr, SwapTarget: routerAddr,
		FromAmount: legA, MinReturn: new(big.Int).Mul(legA, big.NewInt(100)), CallData: []byte{0x01},
	}}
	legAOut, legBOut, err := f.gw.SingleWithdraw(userAddr, issued, legs, 0)
	if err != nil {
		t.Fatalf("single withdraw: %v", err)
	}
	if legAOut.Cmp(legA) != 0 || legBOut.Cmp(legB) != 0 {
		t.Fatalf("outs = %v/%v, want %v/%v", legAOut, legBOut, legA, legB)
	}
	wantUSDC := new(big.Int).Mul(legA, big.NewInt(100))
	if got := f.book.BalanceOf(usdcAddr, userAddr); got.Cmp(wantUSDC) != 0 {
		t.Fatalf("user USDC = %v, want %v", got, wantUSDC)
	}
	// leg B delivered natively (no swap leg for it)
	if got := f.book.BalanceOf(legBAddr, userAddr); got.Cmp(legB) != 0 {
		t.Fatalf("user legB = %v, want %v", got, legB)
	}
	if got := f.book.BalanceOf(tokenAddr, userAddr); got.Sign() != 0 {
		t.Fatalf("user issued after withdraw = %v, want 0", got)
	}
}

func TestCombinationWithdrawUnwrapsNative(t *testing.T) {
	f := fixture(t)
	issued := new(big.Int).Mul(big.NewInt(10), tenPow(18))
	legA := f.vault.LegAForIssued(issued)
	legB := f.vault.LegBForLegA(legA)
	f.fundUser(t, legAAddr, legA)
	f.fundUser(t, legBAddr, legB)
	if _, err := f.gw.CombinationDeposit(userAddr, issued, legBAddr, 0); err != nil {
		t.Fatalf("seed deposit: %v", err)
	}
	if err := f.book.Approve(tokenAddr, userAddr, gwAddr, issued); err != nil {
		t.Fatalf("approve issued: %v", err)
	}
	_, legBOut, err := f.gw.CombinationWithdraw(userAddr, issued, legBNative, 0)
	if err != nil {
		t.Fatalf("combination withdraw: %v", err)
	}
	if got := f.book.BalanceOf(legBNative, userAddr); got.Cmp(legBOut) != 0 {
		t.Fatalf("user native legB = %v, want %v", got, legBOut)
	}
	if got := f.book.BalanceOf(legBAddr, userAddr); got.Sign() != 0 {
		t.Fatalf("user yield legB = %v, want 0", got)
	}
}

func TestNoOpLegMovesOnlyDeclaredAmount(t *testing.T) {
	f := fixture(t)
	issued := new(big.Int).Mul(big.NewInt(10), tenPow(18))
	requiredA := f.vault.LegAForIssued(issued)
	requiredB := f.vault.LegBForLegA(requiredA)

	extra := new(big.Int).Add(requiredA, big.NewInt(500))
	f.fundUser(t, legAAddr, extra)
	f.fundUser(t, legBAddr, requiredB)

	legs := []SwapLeg{
		{FromAsset: legAAddr, ToAsset: legAAddr, FromAmount: requiredA, MinReturn: big.NewInt(0)},
		{FromAsset: legBAddr, ToAsset: legBAddr, FromAmount: requiredB, MinReturn: big.NewInt(0)},
	}
	if _, err := f.gw.SingleDeposit(userAddr, issued, legs, 0); err != nil {
		t.Fatalf("single deposit: %v", err)
	}
	// only the declared FromAmount moved
	if got := f.book.BalanceOf(legAAddr, userAddr); got.Int64() != 500 {
		t.Fatalf("user legA = %v, want 500", got)
	}
}

func TestRescueTokens(t *testing.T) {
	f := fixture(t)
	stray := new(big.Int).Mul(big.NewInt(5), tenPow(6))
	if err := f.book.Mint(usdcAddr, gwAddr, stray); err != nil {
		t.Fatalf("stray: %v", err)
	}
	if err := f.gw.RescueTokens(userAddr, usdcAddr, userAddr, stray); !errors.Is(err, access.ErrNotManager) {
		t.Fatalf("rescue by user = %v, want ErrNotManager", err)
	}
	if err := f.gw.RescueTokens(mgrAddr, usdcAddr, mgrAddr, stray); err != nil {
		t.Fatalf("rescue: %v", err)
	}
	if got := f.book.BalanceOf(usdcAddr, mgrAddr); got.Cmp(stray) != 0 {
		t.Fatalf("rescued = %v, want %v", got, stray)
	}
}

// reentrantRouter behaves like fixedRateRouter but tries to rescue the
// gateway's in-transit balance from inside the swap call.
type reentrantRouter struct {
	inner     *fixedRateRouter
	gw        *Gateway
	rescueErr error
}

func (r *reentrantRouter) Execute(book *assets.Book, taker common.Address, data []byte) error {
	r.rescueErr = r.gw.RescueTokens(mgrAddr, r.inner.from, mgrAddr, book.BalanceOf(r.inner.from, taker))
	return r.inner.Execute(book, taker, data)
}

func TestRescueBlockedDuringSwap(t *testing.T) {
	f := fixture(t)
	issued := new(big.Int).Mul(big.NewInt(10), tenPow(18))
	requiredA := f.vault.LegAForIssued(issued)
	requiredB := f.vault.LegBForLegA(requiredA)

	inner := f.addRouter(t, usdcAddr, legAAddr, 1, 100, new(big.Int).Mul(big.NewInt(10), tenPow(8)))
	hostile := &reentrantRouter{inner: inner, gw: f.gw}
	f.gw.BindRouter(routerAddr, hostile)

	fromAmount := new(big.Int).Mul(requiredA, big.NewInt(100))
	f.fundUser(t, usdcAddr, fromAmount)
	f.fundUser(t, legBAddr, requiredB)

	legs := []SwapLeg{
		{
			FromAsset:     usdcAddr,
			ToAsset:       legAAddr,
			ApproveTarget: routerAddr,
			SwapTarget:    routerAddr,
			FromAmount:    fromAmount,
			MinReturn:     requiredA,
			CallData:      []byte{0x01},
		},
		{
			FromAsset:  legBAddr,
			ToAsset:    legBAddr,
			FromAmount: requiredB,
			MinReturn:  requiredB,
		},
	}
	if _, err := f.gw.SingleDeposit(userAddr, issued, legs, 0); err != nil {
		t.Fatalf("single deposit: %v", err)
	}
	if !errors.Is(hostile.rescueErr, ErrInFlight) {
		t.Fatalf("mid-swap rescue = %v, want ErrInFlight", hostile.rescueErr)
	}
}

func TestWhitelistAdmin(t *testing.T) {
	f := fixture(t)
	if err := f.gw.UpdateSwapWhiteLists(userAddr, []common.Address{routerAddr}, []bool{true}); !errors.Is(err, access.ErrNotManager) {
		t.Fatalf("whitelist by user = %v, want ErrNotManager", err)
	}
	if err := f.gw.UpdateSwapWhiteLists(mgrAddr, []common.Address{routerAddr}, []bool{true, false}); !errors.Is(err, ErrArityMismatch) {
		t.Fatalf("mismatched args = %v, want ErrArityMismatch", err)
	}
	if err := f.gw.UpdateSwapWhiteLists(mgrAddr, []common.Address{routerAddr, shadyAddr}, []bool{true, false}); err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	if !f.gw.Whitelisted(routerAddr) || f.gw.Whitelisted(shadyAddr) {
		t.Fatalf("whitelist flags wrong")
	}
	if err := f.gw.UpdateSupportToken(userAddr, usdcAddr, false); !errors.Is(err, access.ErrNotManager) {
		t.Fatalf("support by user = %v, want ErrNotManager", err)
	}
}
