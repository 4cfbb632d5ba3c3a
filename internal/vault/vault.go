// Package vault implements the reserve engine: it custodies the two
// collateral legs at a fixed ratio, mediates all issuance through the credit
// ledger, and skims protocol fees in the issued asset.
package vault

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"issuance-backend/internal/access"
	"issuance-backend/internal/assets"
)

var (
	ErrNotGateway       = errors.New("vault: caller is not the registered gateway")
	ErrPaused           = errors.New("vault: paused")
	ErrFeeRateTooHigh   = errors.New("vault: fee rate at or above ceiling")
	ErrNothingToClaim   = errors.New("vault: no claimable surplus")
	ErrUnknownLeg       = errors.New("vault: asset is not a collateral leg")
	ErrReserveShortfall = errors.New("vault: collateral not in custody")
	ErrZeroAmount       = errors.New("vault: zero amount")
)

// RateScale is the fixed-point denominator for every rate and ratio: fee
// rates, ratioConstant and conversionRatioK are all expressed in 1e18ths.
var RateScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// FeeRateCeiling is the exclusive upper bound on fee rates (10%). Updates
// at or above it are rejected.
var FeeRateCeiling = new(big.Int).Div(new(big.Int).Set(RateScale), big.NewInt(10))

// Params fixes the conversion arithmetic at construction time.
//
// UnitFactor bridges leg A units into issued/leg B units (for an 8-decimals
// leg A and 18-decimals issued asset it is 1e10). The fixed relations, all
// evaluated multiply-first with floor division, are:
//
//	issued = legA * unitFactor * conversionRatioK / RateScale
//	legB   = legA * unitFactor * ratioConstant    / RateScale
type Params struct {
	LegA             common.Address
	LegB             common.Address
	UnitFactor       *big.Int
	RatioConstant    *big.Int // RateScale-fixed-point
	ConversionRatioK *big.Int // RateScale-fixed-point
	MintFeeRate      *big.Int // RateScale-fixed-point, < FeeRateCeiling
	BurnFeeRate      *big.Int // RateScale-fixed-point, < FeeRateCeiling
}

// Vault holds the reserve state. Balances live in the shared asset book
// under the vault's own address; only totalIssued, the fee rates and the
// pause flag are stored here, so no stored value can desynchronize from an
// actual balance.
type Vault struct {
	book  *assets.Book
	token *assets.IssuedToken
	roles *access.Roles

	address common.Address
	gateway common.Address
	params  Params

	totalIssued *big.Int
	mintFeeRate *big.Int
	burnFeeRate *big.Int
	paused      bool
}

func New(book *assets.Book, token *assets.IssuedToken, roles *access.Roles, address, gateway common.Address, params Params) (*Vault, error) {
	if params.MintFeeRate.Cmp(FeeRateCeiling) >= 0 || params.BurnFeeRate.Cmp(FeeRateCeiling) >= 0 {
		return nil, ErrFeeRateTooHigh
	}
	return &Vault{
		book:        book,
		token:       token,
		roles:       roles,
		address:     address,
		gateway:     gateway,
		params:      params,
		totalIssued: new(big.Int),
		mintFeeRate: new(big.Int).Set(params.MintFeeRate),
		burnFeeRate: new(big.Int).Set(params.BurnFeeRate),
	}, nil
}

func (v *Vault) Address() common.Address { return v.address }
func (v *Vault) Gateway() common.Address { return v.gateway }
func (v *Vault) LegA() common.Address    { return v.params.LegA }
func (v *Vault) LegB() common.Address    { return v.params.LegB }
func (v *Vault) Paused() bool            { return v.paused }

// SetGateway re-registers the single authorized caller. Owner only; the
// registered-caller field is the vault's whole concurrency discipline.
func (v *Vault) SetGateway(caller, gateway common.Address) error {
	if !v.roles.IsOwner(caller) {
		return access.ErrNotOwner
	}
	v.gateway = gateway
	return nil
}

func mulDivFloor(a, b, den *big.Int) *big.Int {
	out := new(big.Int).Mul(a, b)
	return out.Div(out, den)
}

func mulDivCeil(a, b, den *big.Int) *big.Int {
	out := new(big.Int).Mul(a, b)
	rem := new(big.Int)
	out.DivMod(out, den, rem)
	if rem.Sign() > 0 {
		out.Add(out, big.NewInt(1))
	}
	return out
}

// IssuedForLegA converts a leg A quantity into gross issuance.
func (v *Vault) IssuedForLegA(legA *big.Int) *big.Int {
	return mulDivFloor(new(big.Int).Mul(legA, v.params.UnitFactor), v.params.ConversionRatioK, RateScale)
}

// LegAForIssued converts an issuance quantity into its leg A backing,
// rounded down.
func (v *Vault) LegAForIssued(issued *big.Int) *big.Int {
	den := new(big.Int).Mul(v.params.UnitFactor, v.params.ConversionRatioK)
	return mulDivFloor(issued, RateScale, den)
}

// LegBForLegA converts a leg A quantity into the exact leg B quantity
// required alongside it.
func (v *Vault) LegBForLegA(legA *big.Int) *big.Int {
	return mulDivFloor(new(big.Int).Mul(legA, v.params.UnitFactor), v.params.RatioConstant, RateScale)
}

// RequiredReserve returns the leg balance needed to back totalIssued,
// rounded up so floor-rounded payouts can never breach it.
func (v *Vault) RequiredReserve(asset common.Address) (*big.Int, error) {
	switch asset {
	case v.params.LegA:
		den := new(big.Int).Mul(v.params.UnitFactor, v.params.ConversionRatioK)
		return mulDivCeil(v.totalIssued, RateScale, den), nil
	case v.params.LegB:
		// legB = issued * ratioConstant / conversionRatioK
		return mulDivCeil(v.totalIssued, v.params.RatioConstant, v.params.ConversionRatioK), nil
	default:
		return nil, ErrUnknownLeg
	}
}

// Deposit backs legAAmount (plus its fixed-ratio leg B counterpart, which
// the gateway must already have transferred into custody) with freshly
// issued supply. The fee stays in the vault's own issued-asset balance; only
// the net amount counts as backed supply.
func (v *Vault) Deposit(caller, beneficiary common.Address, legAAmount *big.Int) (*big.Int, error) {
	if caller != v.gateway {
		return nil, ErrNotGateway
	}
	if v.paused {
		return nil, ErrPaused
	}
	if legAAmount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	issued := v.IssuedForLegA(legAAmount)
	if issued.Sign() == 0 {
		return nil, ErrZeroAmount
	}
	fee := mulDivFloor(issued, v.mintFeeRate, RateScale)
	net := new(big.Int).Sub(issued, fee)

	if err := v.token.Mint(v.address, v.address, issued); err != nil {
		return nil, err
	}
	if err := v.book.Transfer(v.token.Address(), v.address, beneficiary, net); err != nil {
		return nil, err
	}
	v.totalIssued.Add(v.totalIssued, net)

	if err := v.checkReserves(); err != nil {
		return nil, err
	}
	return net, nil
}

// Withdraw burns backing for amount (which the gateway must already have
// transferred into custody) and pays out both legs to the gateway. The burn
// fee is skimmed first; leg payouts and the totalIssued decrement both use
// the net-of-fee amount, matching the deposit-side formula order.
func (v *Vault) Withdraw(caller common.Address, amount *big.Int) (*big.Int, *big.Int, error) {
	if caller != v.gateway {
		return nil, nil, ErrNotGateway
	}
	if v.paused {
		return nil, nil, ErrPaused
	}
	if amount.Sign() <= 0 {
		return nil, nil, ErrZeroAmount
	}
	fee := mulDivFloor(amount, v.burnFeeRate, RateScale)
	net := new(big.Int).Sub(amount, fee)

	if err := v.token.Burn(v.address, net); err != nil {
		return nil, nil, err
	}
	legAOut := v.LegAForIssued(net)
	legBOut := v.LegBForLegA(legAOut)
	if err := v.book.Transfer(v.params.LegA, v.address, v.gateway, legAOut); err != nil {
		return nil, nil, err
	}
	if err := v.book.Transfer(v.params.LegB, v.address, v.gateway, legBOut); err != nil {
		return nil, nil, err
	}
	v.totalIssued.Sub(v.totalIssued, net)
	if err := v.checkReserves(); err != nil {
		return nil, nil, err
	}
	return legAOut, legBOut, nil
}

// checkReserves asserts the backing invariant after every mutation. It can
// only trip if the gateway failed to move collateral first.
func (v *Vault) checkReserves() error {
	for _, leg := range []common.Address{v.params.LegA, v.params.LegB} {
		required, err := v.RequiredReserve(leg)
		if err != nil {
			return err
		}
		if v.book.BalanceOf(leg, v.address).Cmp(required) < 0 {
			return ErrReserveShortfall
		}
	}
	return nil
}

// ClaimableSurplus is the leg balance beyond the required reserve. It is a
// computed view, never stored: surplus arises from external yield accrual
// (and floor-rounding residue), never from a deficit.
func (v *Vault) ClaimableSurplus(asset common.Address) (*big.Int, error) {
	required, err := v.RequiredReserve(asset)
	if err != nil {
		return nil, err
	}
	surplus := new(big.Int).Sub(v.book.BalanceOf(asset, v.address), required)
	if surplus.Sign() < 0 {
		surplus.SetInt64(0)
	}
	return surplus, nil
}

// Claim transfers the exact claimable surplus of a leg out, bringing the
// balance back to the required reserve. Manager gated; available while
// paused.
func (v *Vault) Claim(caller common.Address, asset, to common.Address) (*big.Int, error) {
	if !v.roles.IsVaultManager(caller) {
		return nil, access.ErrNotManager
	}
	surplus, err := v.ClaimableSurplus(asset)
	if err != nil {
		return nil, err
	}
	if surplus.Sign() == 0 {
		return nil, ErrNothingToClaim
	}
	if err := v.book.Transfer(asset, v.address, to, surplus); err != nil {
		return nil, err
	}
	return surplus, nil
}

// ClaimFees transfers accrued issued-asset fees out. Manager gated.
func (v *Vault) ClaimFees(caller, to common.Address) (*big.Int, error) {
	if !v.roles.IsVaultManager(caller) {
		return nil, access.ErrNotManager
	}
	fees := v.AccruedFees()
	if fees.Sign() == 0 {
		return nil, ErrNothingToClaim
	}
	if err := v.book.Transfer(v.token.Address(), v.address, to, fees); err != nil {
		return nil, err
	}
	return fees, nil
}

func (v *Vault) UpdateMintFeeRate(caller common.Address, rate *big.Int) error {
	if !v.roles.IsVaultManager(caller) {
		return access.ErrNotManager
	}
	if rate.Sign() < 0 || rate.Cmp(FeeRateCeiling) >= 0 {
		return ErrFeeRateTooHigh
	}
	v.mintFeeRate.Set(rate)
	return nil
}

func (v *Vault) UpdateBurnFeeRate(caller common.Address, rate *big.Int) error {
	if !v.roles.IsVaultManager(caller) {
		return access.ErrNotManager
	}
	if rate.Sign() < 0 || rate.Cmp(FeeRateCeiling) >= 0 {
		return ErrFeeRateTooHigh
	}
	v.burnFeeRate.Set(rate)
	return nil
}

// Pause halts deposit and withdraw. Emergency managers and vault managers
// may pause; claims and fee updates stay available.
func (v *Vault) Pause(caller common.Address) error {
	if !v.roles.IsEmergencyManager(caller) && !v.roles.IsVaultManager(caller) {
		return access.ErrNotManager
	}
	v.paused = true
	return nil
}

func (v *Vault) Unpause(caller common.Address) error {
	if !v.roles.IsEmergencyManager(caller) && !v.roles.IsVaultManager(caller) {
		return access.ErrNotManager
	}
	v.paused = false
	return nil
}

// TotalIssued is the net-of-fee supply currently backed by reserve.
func (v *Vault) TotalIssued() *big.Int { return new(big.Int).Set(v.totalIssued) }

// AccruedFees is the vault's own issued-asset balance: the skimmed mint and
// burn fees, derived rather than counted so it cannot drift.
func (v *Vault) AccruedFees() *big.Int {
	return v.book.BalanceOf(v.token.Address(), v.address)
}

func (v *Vault) MintFeeRate() *big.Int { return new(big.Int).Set(v.mintFeeRate) }
func (v *Vault) BurnFeeRate() *big.Int { return new(big.Int).Set(v.burnFeeRate) }

// State is a point-in-time view of the reserve for reporting.
type State struct {
	TotalIssued *big.Int
	LegABalance *big.Int
	LegBBalance *big.Int
	AccruedFees *big.Int
	MintFeeRate *big.Int
	BurnFeeRate *big.Int
	Paused      bool
}

func (v *Vault) StateView() State {
	return State{
		TotalIssued: v.TotalIssued(),
		LegABalance: v.book.BalanceOf(v.params.LegA, v.address),
		LegBBalance: v.book.BalanceOf(v.params.LegB, v.address),
		AccruedFees: v.AccruedFees(),
		MintFeeRate: v.MintFeeRate(),
		BurnFeeRate: v.BurnFeeRate(),
		Paused:      v.paused,
	}
}

// Snapshot captures the vault-local state for transactional rollback;
// balances are rolled back by the book's own snapshot.
type Snapshot struct {
	gateway     common.Address
	totalIssued *big.Int
	mintFeeRate *big.Int
	burnFeeRate *big.Int
	paused      bool
}

func (v *Vault) Snapshot() Snapshot {
	return Snapshot{
		gateway:     v.gateway,
		totalIssued: new(big.Int).Set(v.totalIssued),
		mintFeeRate: new(big.Int).Set(v.mintFeeRate),
		burnFeeRate: new(big.Int).Set(v.burnFeeRate),
		paused:      v.paused,
	}
}

func (v *Vault) Restore(snap Snapshot) {
	v.gateway = snap.gateway
	v.totalIssued = snap.totalIssued
	v.mintFeeRate = snap.mintFeeRate
	v.burnFeeRate = snap.burnFeeRate
	v.paused = snap.paused
}

// RestoreTotalIssued seeds the backed-supply counter during rehydration.
func (v *Vault) RestoreTotalIssued(total *big.Int) {
	v.totalIssued = new(big.Int).Set(total)
}
