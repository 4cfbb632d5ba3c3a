// Package assets implements the in-process balance book for every asset the
// issuance engine touches: the two collateral legs, arbitrary supported input
// assets, and the issued token itself. The issued token additionally carries
// the per-agent credit ledger that gates all supply changes (see credit.go).
package assets

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrUnknownAsset          = errors.New("assets: unknown asset")
	ErrInsufficientBalance   = errors.New("assets: insufficient balance")
	ErrInsufficientAllowance = errors.New("assets: insufficient allowance")
	ErrRestrictedAddress     = errors.New("assets: restricted address")
)

// Asset is the registered metadata of one fungible asset.
type Asset struct {
	Address  common.Address
	Symbol   string
	Decimals uint8
}

// DenyList is consulted before crediting any destination. Transfers and
// mints to a restricted address fail; debits are never blocked.
type DenyList interface {
	IsRestricted(addr common.Address) bool
}

// Book is a multi-asset balance ledger with per-asset allowances. It is not
// safe for concurrent use; the engine serializes every call that reaches it.
type Book struct {
	assets     map[common.Address]Asset
	balances   map[common.Address]map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]map[common.Address]*big.Int
	nonces     map[common.Address]uint64
	denyList   DenyList
}

func NewBook(denyList DenyList) *Book {
	return &Book{
		assets:     make(map[common.Address]Asset),
		balances:   make(map[common.Address]map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]map[common.Address]*big.Int),
		nonces:     make(map[common.Address]uint64),
		denyList:   denyList,
	}
}

// RegisterAsset makes an asset known to the book. Registering an existing
// address overwrites its metadata and keeps balances.
func (b *Book) RegisterAsset(a Asset) {
	b.assets[a.Address] = a
	if b.balances[a.Address] == nil {
		b.balances[a.Address] = make(map[common.Address]*big.Int)
	}
}

// AssetOf returns the registered metadata for addr.
func (b *Book) AssetOf(addr common.Address) (Asset, bool) {
	a, ok := b.assets[addr]
	return a, ok
}

// BalanceOf returns the holder's balance of asset. Unknown pairs read zero.
func (b *Book) BalanceOf(asset, holder common.Address) *big.Int {
	if held, ok := b.balances[asset]; ok {
		if bal, ok := held[holder]; ok {
			return new(big.Int).Set(bal)
		}
	}
	return new(big.Int)
}

// TotalSupply sums all balances of asset.
func (b *Book) TotalSupply(asset common.Address) *big.Int {
	total := new(big.Int)
	for _, bal := range b.balances[asset] {
		total.Add(total, bal)
	}
	return total
}

func (b *Book) credit(asset, to common.Address, amount *big.Int) error {
	if b.denyList != nil && b.denyList.IsRestricted(to) {
		return ErrRestrictedAddress
	}
	held := b.balances[asset]
	if held == nil {
		held = make(map[common.Address]*big.Int)
		b.balances[asset] = held
	}
	bal, ok := held[to]
	if !ok {
		bal = new(big.Int)
		held[to] = bal
	}
	bal.Add(bal, amount)
	return nil
}

func (b *Book) debit(asset, from common.Address, amount *big.Int) error {
	held := b.balances[asset]
	if held == nil {
		return ErrInsufficientBalance
	}
	bal, ok := held[from]
	if !ok || bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	bal.Sub(bal, amount)
	return nil
}

// Transfer moves amount of asset from from to to.
func (b *Book) Transfer(asset, from, to common.Address, amount *big.Int) error {
	if _, ok := b.assets[asset]; !ok {
		return ErrUnknownAsset
	}
	if b.denyList != nil && b.denyList.IsRestricted(to) {
		return ErrRestrictedAddress
	}
	if err := b.debit(asset, from, amount); err != nil {
		return err
	}
	return b.credit(asset, to, amount)
}

// Approve sets spender's allowance over owner's asset balance to amount.
func (b *Book) Approve(asset, owner, spender common.Address, amount *big.Int) error {
	if _, ok := b.assets[asset]; !ok {
		return ErrUnknownAsset
	}
	byOwner := b.allowances[asset]
	if byOwner == nil {
		byOwner = make(map[common.Address]map[common.Address]*big.Int)
		b.allowances[asset] = byOwner
	}
	bySpender := byOwner[owner]
	if bySpender == nil {
		bySpender = make(map[common.Address]*big.Int)
		byOwner[owner] = bySpender
	}
	bySpender[spender] = new(big.Int).Set(amount)
	return nil
}

// Allowance reads spender's remaining allowance over owner's asset balance.
func (b *Book) Allowance(asset, owner, spender common.Address) *big.Int {
	if byOwner, ok := b.allowances[asset]; ok {
		if bySpender, ok := byOwner[owner]; ok {
			if a, ok := bySpender[spender]; ok {
				return new(big.Int).Set(a)
			}
		}
	}
	return new(big.Int)
}

// TransferFrom moves amount of owner's asset to to, consuming spender's
// allowance.
func (b *Book) TransferFrom(asset, spender, owner, to common.Address, amount *big.Int) error {
	allowance := b.Allowance(asset, owner, spender)
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := b.Transfer(asset, owner, to, amount); err != nil {
		return err
	}
	allowance.Sub(allowance, amount)
	b.allowances[asset][owner][spender] = allowance
	return nil
}

// Mint credits newly created units of asset to to. Callers are responsible
// for gating; the issued token routes every mint through its credit ledger.
func (b *Book) Mint(asset, to common.Address, amount *big.Int) error {
	if _, ok := b.assets[asset]; !ok {
		return ErrUnknownAsset
	}
	return b.credit(asset, to, amount)
}

// Burn destroys amount of from's balance of asset.
func (b *Book) Burn(asset, from common.Address, amount *big.Int) error {
	if _, ok := b.assets[asset]; !ok {
		return ErrUnknownAsset
	}
	return b.debit(asset, from, amount)
}

// Snapshot returns a deep copy of every balance, allowance and nonce.
func (b *Book) Snapshot() *Book {
	cp := NewBook(b.denyList)
	for addr, a := range b.assets {
		cp.assets[addr] = a
	}
	for asset, held := range b.balances {
		m := make(map[common.Address]*big.Int, len(held))
		for holder, bal := range held {
			m[holder] = new(big.Int).Set(bal)
		}
		cp.balances[asset] = m
	}
	for asset, byOwner := range b.allowances {
		om := make(map[common.Address]map[common.Address]*big.Int, len(byOwner))
		for owner, bySpender := range byOwner {
			sm := make(map[common.Address]*big.Int, len(bySpender))
			for spender, a := range bySpender {
				sm[spender] = new(big.Int).Set(a)
			}
			om[owner] = sm
		}
		cp.allowances[asset] = om
	}
	for owner, n := range b.nonces {
		cp.nonces[owner] = n
	}
	return cp
}

// Restore overwrites the receiver with a previously taken snapshot.
func (b *Book) Restore(snap *Book) {
	b.assets = snap.assets
	b.balances = snap.balances
	b.allowances = snap.allowances
	b.nonces = snap.nonces
	b.denyList = snap.denyList
}
