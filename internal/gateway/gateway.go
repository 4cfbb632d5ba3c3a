// Package gateway implements the swap orchestrator: the only user-facing
// entry point. It normalizes arbitrary supported input assets into the two
// collateral legs the vault requires, executing caller-supplied swap legs
// against whitelisted routers, and drives vault deposit/withdraw.
package gateway

import (
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"issuance-backend/internal/access"
	"issuance-backend/internal/assets"
	"issuance-backend/internal/vault"
)

var (
	ErrPaused               = errors.New("gateway: paused")
	ErrUnsupportedAsset     = errors.New("gateway: unsupported asset")
	ErrAmountTooLow         = errors.New("gateway: amount below minimum")
	ErrRouterNotWhitelisted = errors.New("gateway: router not whitelisted")
	ErrLegMismatch          = errors.New("gateway: swap leg asset mismatch")
	ErrSlippageExceeded     = errors.New("gateway: swap return below minimum")
	ErrDeadlineExpired      = errors.New("gateway: deadline expired")
	ErrInFlight             = errors.New("gateway: operation in flight")
	ErrArityMismatch        = errors.New("gateway: targets and flags length mismatch")
	ErrTooManyLegs          = errors.New("gateway: at most two swap legs")
)

// SwapLeg is one caller-specified routing instruction. It is consumed once
// and discarded; empty CallData marks a no-op leg whose FromAsset must
// already be the required collateral leg.
type SwapLeg struct {
	FromAsset     common.Address
	ToAsset       common.Address
	ApproveTarget common.Address
	SwapTarget    common.Address
	FromAmount    *big.Int
	MinReturn     *big.Int
	CallData      []byte
	Deadline      int64 // unix seconds, 0 means none
}

// NoOp reports whether the leg carries no routing work.
func (l SwapLeg) NoOp() bool { return len(l.CallData) == 0 }

// RouterAdapter executes one opaque swap on behalf of taker. The gateway
// never trusts anything an adapter reports: it grants a scoped allowance
// beforehand and verifies only the balance delta afterwards.
type RouterAdapter interface {
	Execute(book *assets.Book, taker common.Address, data []byte) error
}

// WrapAdapter converts between the native form of leg B and its designated
// yield-bearing form at one-to-one.
type WrapAdapter interface {
	Wrap(book *assets.Book, holder common.Address, amount *big.Int) error
	Unwrap(book *assets.Book, holder common.Address, amount *big.Int) error
}

// Config fixes the gateway's identity and the leg B native/yield pairing.
type Config struct {
	Address    common.Address
	LegBNative common.Address
	MinDeposit *big.Int // issued units
}

// Gateway mediates every user flow. It holds the asset support table and
// the router whitelist, both mutated only by managers.
type Gateway struct {
	book  *assets.Book
	token *assets.IssuedToken
	vault *vault.Vault
	roles *access.Roles

	address    common.Address
	legBNative common.Address
	minDeposit *big.Int

	supported map[common.Address]bool
	whitelist map[common.Address]bool
	routers   map[common.Address]RouterAdapter
	wrapper   WrapAdapter

	paused   bool
	inFlight bool
	now      func() time.Time
}

func New(book *assets.Book, token *assets.IssuedToken, v *vault.Vault, roles *access.Roles, cfg Config, now func() time.Time) *Gateway {
	if now == nil {
		now = time.Now
	}
	return &Gateway{
		book:       book,
		token:      token,
		vault:      v,
		roles:      roles,
		address:    cfg.Address,
		legBNative: cfg.LegBNative,
		minDeposit: new(big.Int).Set(cfg.MinDeposit),
		supported:  make(map[common.Address]bool),
		whitelist:  make(map[common.Address]bool),
		routers:    make(map[common.Address]RouterAdapter),
		now:        now,
	}
}

func (g *Gateway) Address() common.Address    { return g.address }
func (g *Gateway) Paused() bool               { return g.paused }
func (g *Gateway) MinDeposit() *big.Int       { return new(big.Int).Set(g.minDeposit) }
func (g *Gateway) Supported(a common.Address) bool   { return g.supported[a] }
func (g *Gateway) Whitelisted(a common.Address) bool { return g.whitelist[a] }

// BindRouter attaches the executor behind a router address. Binding is
// process wiring done at startup; whether the address may be called is
// still decided by the whitelist alone.
func (g *Gateway) BindRouter(addr common.Address, adapter RouterAdapter) {
	g.routers[addr] = adapter
}

// BindWrapper attaches the native/yield leg B converter.
func (g *Gateway) BindWrapper(w WrapAdapter) { g.wrapper = w }

func (g *Gateway) guards(deadline int64) error {
	if g.paused {
		return ErrPaused
	}
	if deadline > 0 && g.now().Unix() > deadline {
		return ErrDeadlineExpired
	}
	return nil
}

func (g *Gateway) enter() error {
	if g.inFlight {
		return ErrInFlight
	}
	g.inFlight = true
	return nil
}

func (g *Gateway) exit() { g.inFlight = false }

// CombinationDeposit takes leg A in its native collateral asset plus leg B
// either in its native form or as the designated yield-bearing asset, and
// issues against them. Returns the net-of-fee amount credited to caller.
func (g *Gateway) CombinationDeposit(caller common.Address, issued *big.Int, legBChoice common.Address, deadline int64) (*big.Int, error) {
	if err := g.guards(deadline); err != nil {
		return nil, err
	}
	if issued.Cmp(g.minDeposit) < 0 {
		return nil, ErrAmountTooLow
	}
	legAAmount := g.vault.LegAForIssued(issued)
	if legAAmount.Sign() == 0 {
		return nil, ErrAmountTooLow
	}
	legBAmount := g.vault.LegBForLegA(legAAmount)
	if legBChoice != g.vault.LegB() && !(legBChoice == g.legBNative && g.wrapper != nil) {
		return nil, ErrUnsupportedAsset
	}
	if err := g.enter(); err != nil {
		return nil, err
	}
	defer g.exit()

	if err := g.book.TransferFrom(g.vault.LegA(), g.address, caller, g.vault.Address(), legAAmount); err != nil {
		return nil, err
	}
	if legBChoice == g.vault.LegB() {
		if err := g.book.TransferFrom(g.vault.LegB(), g.address, caller, g.vault.Address(), legBAmount); err != nil {
			return nil, err
		}
	} else {
		if err := g.book.TransferFrom(g.legBNative, g.address, caller, g.address, legBAmount); err != nil {
			return nil, err
		}
		if err := g.wrapper.Wrap(g.book, g.address, legBAmount); err != nil {
			return nil, err
		}
		if err := g.book.Transfer(g.vault.LegB(), g.address, g.vault.Address(), legBAmount); err != nil {
			return nil, err
		}
	}
	return g.vault.Deposit(g.address, caller, legAAmount)
}

// SingleDeposit takes one arbitrary supported asset and routes it into the
// two required legs through up to two swap legs, then deposits. Either
// every leg lands within tolerance and issuance succeeds, or the engine
// rolls the whole call back.
func (g *Gateway) SingleDeposit(caller common.Address, issued *big.Int, legs []SwapLeg, deadline int64) (*big.Int, error) {
	if err := g.guards(deadline); err != nil {
		return nil, err
	}
	if len(legs) > 2 {
		return nil, ErrTooManyLegs
	}
	if issued.Cmp(g.minDeposit) < 0 {
		return nil, ErrAmountTooLow
	}
	requiredA := g.vault.LegAForIssued(issued)
	if requiredA.Sign() == 0 {
		return nil, ErrAmountTooLow
	}
	requiredB := g.vault.LegBForLegA(requiredA)
	if err := g.enter(); err != nil {
		return nil, err
	}
	defer g.exit()

	targets := []struct {
		asset  common.Address
		amount *big.Int
	}{
		{g.vault.LegA(), requiredA},
		{g.vault.LegB(), requiredB},
	}
	preA := g.book.BalanceOf(g.vault.LegA(), g.address)
	preB := g.book.BalanceOf(g.vault.LegB(), g.address)
	preSource := make([]*big.Int, len(legs))
	for i, leg := range legs {
		preSource[i] = g.book.BalanceOf(leg.FromAsset, g.address)
	}

	for i, leg := range legs {
		if err := g.executeLegIn(caller, leg, targets[i].asset); err != nil {
			return nil, err
		}
	}

	if err := g.book.Transfer(g.vault.LegA(), g.address, g.vault.Address(), requiredA); err != nil {
		return nil, err
	}
	if err := g.book.Transfer(g.vault.LegB(), g.address, g.vault.Address(), requiredB); err != nil {
		return nil, err
	}
	net, err := g.vault.Deposit(g.address, caller, requiredA)
	if err != nil {
		return nil, err
	}
	// Swap output beyond the required legs goes back to the caller, never
	// into gateway float.
	if err := g.refundExcess(caller, g.vault.LegA(), preA); err != nil {
		return nil, err
	}
	if err := g.refundExcess(caller, g.vault.LegB(), preB); err != nil {
		return nil, err
	}
	for i, leg := range legs {
		if !leg.NoOp() {
			if err := g.refundExcess(caller, leg.FromAsset, preSource[i]); err != nil {
				return nil, err
			}
		}
	}
	return net, nil
}

// executeLegIn routes one deposit-side leg: either a declared transfer of
// the required asset itself, or a whitelisted swap whose output is verified
// by balance delta.
func (g *Gateway) executeLegIn(caller common.Address, leg SwapLeg, want common.Address) error {
	if leg.Deadline > 0 && g.now().Unix() > leg.Deadline {
		return ErrDeadlineExpired
	}
	if leg.NoOp() {
		if leg.FromAsset != want || leg.ToAsset != want {
			return ErrLegMismatch
		}
		return g.book.TransferFrom(want, g.address, caller, g.address, leg.FromAmount)
	}
	if !g.supported[leg.FromAsset] {
		return ErrUnsupportedAsset
	}
	if leg.ToAsset != want {
		return ErrLegMismatch
	}
	if !g.whitelist[leg.SwapTarget] || !g.whitelist[leg.ApproveTarget] {
		return ErrRouterNotWhitelisted
	}
	adapter := g.routers[leg.SwapTarget]
	if adapter == nil {
		return ErrRouterNotWhitelisted
	}
	if err := g.book.TransferFrom(leg.FromAsset, g.address, caller, g.address, leg.FromAmount); err != nil {
		return err
	}
	if err := g.book.Approve(leg.FromAsset, g.address, leg.ApproveTarget, leg.FromAmount); err != nil {
		return err
	}
	before := g.book.BalanceOf(leg.ToAsset, g.address)
	if err := adapter.Execute(g.book, g.address, leg.CallData); err != nil {
		return err
	}
	delta := new(big.Int).Sub(g.book.BalanceOf(leg.ToAsset, g.address), before)
	if delta.Cmp(leg.MinReturn) < 0 {
		return ErrSlippageExceeded
	}
	// Revoke whatever scope the router did not consume.
	return g.book.Approve(leg.FromAsset, g.address, leg.ApproveTarget, big.NewInt(0))
}

func (g *Gateway) refundExcess(to, asset common.Address, floor *big.Int) error {
	bal := g.book.BalanceOf(asset, g.address)
	excess := new(big.Int).Sub(bal, floor)
	if excess.Sign() <= 0 {
		return nil
	}
	return g.book.Transfer(asset, g.address, to, excess)
}

// SingleWithdraw redeems amount of the issued asset and optionally swaps
// each returned leg into the asset the caller requested. legs[0] applies to
// leg A, legs[1] to leg B; a no-op leg delivers the native collateral.
func (g *Gateway) SingleWithdraw(caller common.Address, amount *big.Int, legs []SwapLeg, deadline int64) (*big.Int, *big.Int, error) {
	if err := g.guards(deadline); err != nil {
		return nil, nil, err
	}
	if len(legs) > 2 {
		return nil, nil, ErrTooManyLegs
	}
	if amount.Sign() <= 0 {
		return nil, nil, ErrAmountTooLow
	}
	if err := g.enter(); err != nil {
		return nil, nil, err
	}
	defer g.exit()

	if err := g.book.TransferFrom(g.token.Address(), g.address, caller, g.vault.Address(), amount); err != nil {
		return nil, nil, err
	}
	legAOut, legBOut, err := g.vault.Withdraw(g.address, amount)
	if err != nil {
		return nil, nil, err
	}
	outs := []struct {
		asset  common.Address
		amount *big.Int
	}{
		{g.vault.LegA(), legAOut},
		{g.vault.LegB(), legBOut},
	}
	for i, out := range outs {
		var leg *SwapLeg
		if i < len(legs) {
			leg = &legs[i]
		}
		if err := g.deliverLegOut(caller, leg, out.asset, out.amount); err != nil {
			return nil, nil, err
		}
	}
	return legAOut, legBOut, nil
}

// deliverLegOut hands one withdrawn leg to the caller, swapping it first
// when a non-no-op leg requests a different asset.
func (g *Gateway) deliverLegOut(caller common.Address, leg *SwapLeg, asset common.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if leg == nil || leg.NoOp() {
		return g.book.Transfer(asset, g.address, caller, amount)
	}
	if leg.Deadline > 0 && g.now().Unix() > leg.Deadline {
		return ErrDeadlineExpired
	}
	if leg.FromAsset != asset {
		return ErrLegMismatch
	}
	if !g.supported[leg.ToAsset] {
		return ErrUnsupportedAsset
	}
	if !g.whitelist[leg.SwapTarget] || !g.whitelist[leg.ApproveTarget] {
		return ErrRouterNotWhitelisted
	}
	adapter := g.routers[leg.SwapTarget]
	if adapter == nil {
		return ErrRouterNotWhitelisted
	}
	if leg.FromAmount.Cmp(amount) > 0 {
		return ErrLegMismatch
	}
	if err := g.book.Approve(asset, g.address, leg.ApproveTarget, leg.FromAmount); err != nil {
		return err
	}
	before := g.book.BalanceOf(leg.ToAsset, g.address)
	if err := adapter.Execute(g.book, g.address, leg.CallData); err != nil {
		return err
	}
	delta := new(big.Int).Sub(g.book.BalanceOf(leg.ToAsset, g.address), before)
	if delta.Cmp(leg.MinReturn) < 0 {
		return ErrSlippageExceeded
	}
	if err := g.book.Approve(asset, g.address, leg.ApproveTarget, big.NewInt(0)); err != nil {
		return err
	}
	if err := g.book.Transfer(leg.ToAsset, g.address, caller, delta); err != nil {
		return err
	}
	// Any part of the leg the router did not consume still belongs to the
	// caller.
	leftover := new(big.Int).Sub(amount, leg.FromAmount)
	if leftover.Sign() > 0 {
		return g.book.Transfer(asset, g.address, caller, leftover)
	}
	return nil
}

// CombinationWithdraw redeems amount and returns the two legs natively,
// unwrapping leg B when the caller asked for its native form.
func (g *Gateway) CombinationWithdraw(caller common.Address, amount *big.Int, legBChoice common.Address, deadline int64) (*big.Int, *big.Int, error) {
	if err := g.guards(deadline); err != nil {
		return nil, nil, err
	}
	if amount.Sign() <= 0 {
		return nil, nil, ErrAmountTooLow
	}
	if legBChoice != g.vault.LegB() && !(legBChoice == g.legBNative && g.wrapper != nil) {
		return nil, nil, ErrUnsupportedAsset
	}
	if err := g.enter(); err != nil {
		return nil, nil, err
	}
	defer g.exit()

	if err := g.book.TransferFrom(g.token.Address(), g.address, caller, g.vault.Address(), amount); err != nil {
		return nil, nil, err
	}
	legAOut, legBOut, err := g.vault.Withdraw(g.address, amount)
	if err != nil {
		return nil, nil, err
	}
	if err := g.book.Transfer(g.vault.LegA(), g.address, caller, legAOut); err != nil {
		return nil, nil, err
	}
	if legBChoice == g.vault.LegB() {
		if err := g.book.Transfer(g.vault.LegB(), g.address, caller, legBOut); err != nil {
			return nil, nil, err
		}
	} else {
		if err := g.wrapper.Unwrap(g.book, g.address, legBOut); err != nil {
			return nil, nil, err
		}
		if err := g.book.Transfer(g.legBNative, g.address, caller, legBOut); err != nil {
			return nil, nil, err
		}
	}
	return legAOut, legBOut, nil
}

// UpdateSupportToken flips one asset's support flag. Manager gated.
func (g *Gateway) UpdateSupportToken(caller common.Address, asset common.Address, supported bool) error {
	if !g.roles.IsVaultManager(caller) {
		return access.ErrNotManager
	}
	g.supported[asset] = supported
	return nil
}

// UpdateSwapWhiteLists flips whitelist flags for a batch of router
// addresses. Manager gated.
func (g *Gateway) UpdateSwapWhiteLists(caller common.Address, targets []common.Address, flags []bool) error {
	if !g.roles.IsVaultManager(caller) {
		return access.ErrNotManager
	}
	if len(targets) != len(flags) {
		return ErrArityMismatch
	}
	for i, t := range targets {
		g.whitelist[t] = flags[i]
	}
	return nil
}

// RescueTokens returns assets accidentally sent to the gateway. It is never
// callable during an in-flight deposit or withdraw, so legs in transit
// cannot be drained.
func (g *Gateway) RescueTokens(caller common.Address, asset, to common.Address, amount *big.Int) error {
	if !g.roles.IsVaultManager(caller) {
		return access.ErrNotManager
	}
	if g.inFlight {
		return ErrInFlight
	}
	return g.book.Transfer(asset, g.address, to, amount)
}

// Pause halts every user flow; admin, claim and rescue stay available.
func (g *Gateway) Pause(caller common.Address) error {
	if !g.roles.IsEmergencyManager(caller) && !g.roles.IsVaultManager(caller) {
		return access.ErrNotManager
	}
	g.paused = true
	return nil
}

func (g *Gateway) Unpause(caller common.Address) error {
	if !g.roles.IsEmergencyManager(caller) && !g.roles.IsVaultManager(caller) {
		return access.ErrNotManager
	}
	g.paused = false
	return nil
}

// SupportedAssets lists every asset currently flagged supported.
func (g *Gateway) SupportedAssets() []common.Address {
	out := make([]common.Address, 0, len(g.supported))
	for a, ok := range g.supported {
		if ok {
			out = append(out, a)
		}
	}
	return out
}

// WhitelistedRouters lists every currently whitelisted router address.
func (g *Gateway) WhitelistedRouters() []common.Address {
	out := make([]common.Address, 0, len(g.whitelist))
	for a, ok := range g.whitelist {
		if ok {
			out = append(out, a)
		}
	}
	return out
}

// Snapshot captures gateway-local state for transactional rollback.
type Snapshot struct {
	supported map[common.Address]bool
	whitelist map[common.Address]bool
	paused    bool
}

func (g *Gateway) Snapshot() Snapshot {
	sup := make(map[common.Address]bool, len(g.supported))
	for a, v := range g.supported {
		sup[a] = v
	}
	wl := make(map[common.Address]bool, len(g.whitelist))
	for a, v := range g.whitelist {
		wl[a] = v
	}
	return Snapshot{supported: sup, whitelist: wl, paused: g.paused}
}

func (g *Gateway) Restore(snap Snapshot) {
	g.supported = snap.supported
	g.whitelist = snap.whitelist
	g.paused = snap.paused
	g.inFlight = false
}
