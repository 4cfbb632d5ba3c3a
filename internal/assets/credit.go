package assets

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrNoAgent           = errors.New("credit: no agent grant")
	ErrNotMinable        = errors.New("credit: agent not minable")
	ErrNotBurnable       = errors.New("credit: agent not burnable")
	ErrNotYetEffective   = errors.New("credit: grant not yet effective")
	ErrExpired           = errors.New("credit: grant expired")
	ErrCreditExceeded    = errors.New("credit: credit exceeded")
	ErrInvalidHeightSpan = errors.New("credit: effective height above expiration height")
)

// HeightSource supplies the monotonic counter grants are bounded by. In
// production this is the observed chain height; tests drive it manually.
type HeightSource interface {
	Height() uint64
}

// HeightCounter is the canonical HeightSource: a monotonic cell advanced by
// whoever observes the chain.
type HeightCounter struct {
	height uint64
}

func (c *HeightCounter) Height() uint64 { return c.height }

// Advance raises the counter; lower observations are ignored.
func (c *HeightCounter) Advance(h uint64) {
	if h > c.height {
		c.height = h
	}
}

// AgentGrant is one agent's credit record. MintedNet is the net outstanding
// issuance of that agent: mints increase it, burns decrease it, and it
// saturates at zero because credit tracks what the agent has issued, not a
// debt it owes.
type AgentGrant struct {
	MaxCredit        *big.Int
	MintedNet        *big.Int
	EffectiveHeight  uint64
	ExpirationHeight uint64
	Minable          bool
	Burnable         bool
}

func (g *AgentGrant) clone() *AgentGrant {
	return &AgentGrant{
		MaxCredit:        new(big.Int).Set(g.MaxCredit),
		MintedNet:        new(big.Int).Set(g.MintedNet),
		EffectiveHeight:  g.EffectiveHeight,
		ExpirationHeight: g.ExpirationHeight,
		Minable:          g.Minable,
		Burnable:         g.Burnable,
	}
}

// zero reports whether the grant is indistinguishable from no grant at all.
func (g *AgentGrant) zero() bool {
	return g.MaxCredit.Sign() == 0 && !g.Minable && !g.Burnable
}

// IssuedToken is the asset whose supply is gated by the credit ledger. All
// balance bookkeeping lives in the shared Book; IssuedToken owns only the
// per-agent grants and the mint/burn gates.
type IssuedToken struct {
	book    *Book
	address common.Address
	height  HeightSource
	grants  map[common.Address]*AgentGrant
}

func NewIssuedToken(book *Book, address common.Address, height HeightSource) *IssuedToken {
	return &IssuedToken{
		book:    book,
		address: address,
		height:  height,
		grants:  make(map[common.Address]*AgentGrant),
	}
}

func (t *IssuedToken) Address() common.Address { return t.address }

// GrantAgent overwrites the agent's full record. Granting zero fields acts
// as revocation; records are never deleted.
func (t *IssuedToken) GrantAgent(agent common.Address, maxCredit *big.Int, effective, expiration uint64, minable, burnable bool) error {
	if effective > expiration {
		return ErrInvalidHeightSpan
	}
	t.grants[agent] = &AgentGrant{
		MaxCredit:        new(big.Int).Set(maxCredit),
		MintedNet:        new(big.Int),
		EffectiveHeight:  effective,
		ExpirationHeight: expiration,
		Minable:          minable,
		Burnable:         burnable,
	}
	return nil
}

// SetEffectiveHeight moves the lower window bound without resetting MintedNet.
func (t *IssuedToken) SetEffectiveHeight(agent common.Address, height uint64) error {
	g, ok := t.grants[agent]
	if !ok {
		return ErrNoAgent
	}
	if height > g.ExpirationHeight {
		return ErrInvalidHeightSpan
	}
	g.EffectiveHeight = height
	return nil
}

// SetExpirationHeight moves the upper window bound without resetting MintedNet.
func (t *IssuedToken) SetExpirationHeight(agent common.Address, height uint64) error {
	g, ok := t.grants[agent]
	if !ok {
		return ErrNoAgent
	}
	if g.EffectiveHeight > height {
		return ErrInvalidHeightSpan
	}
	g.ExpirationHeight = height
	return nil
}

// activeGrant applies the gate checks shared by mint and burn. Height bounds
// are checked lazily here on every call rather than by scheduled transitions.
func (t *IssuedToken) activeGrant(agent common.Address) (*AgentGrant, error) {
	g, ok := t.grants[agent]
	if !ok || g.zero() {
		return nil, ErrNoAgent
	}
	h := t.height.Height()
	if h < g.EffectiveHeight {
		return nil, ErrNotYetEffective
	}
	if h >= g.ExpirationHeight {
		return nil, ErrExpired
	}
	return g, nil
}

// Mint creates amount units for to, consuming the agent's credit.
func (t *IssuedToken) Mint(agent, to common.Address, amount *big.Int) error {
	g, err := t.activeGrant(agent)
	if err != nil {
		return err
	}
	if !g.Minable {
		return ErrNotMinable
	}
	spent := new(big.Int).Add(g.MintedNet, amount)
	if spent.Cmp(g.MaxCredit) > 0 {
		return ErrCreditExceeded
	}
	if err := t.book.Mint(t.address, to, amount); err != nil {
		return err
	}
	g.MintedNet = spent
	return nil
}

// Burn destroys amount units of the agent's own balance, releasing credit.
// Burns reduce only this agent's MintedNet, never another's, and saturate
// at zero.
func (t *IssuedToken) Burn(agent common.Address, amount *big.Int) error {
	g, err := t.activeGrant(agent)
	if err != nil {
		return err
	}
	if !g.Burnable {
		return ErrNotBurnable
	}
	if t.book.BalanceOf(t.address, agent).Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if err := t.book.Burn(t.address, agent, amount); err != nil {
		return err
	}
	g.MintedNet.Sub(g.MintedNet, amount)
	if g.MintedNet.Sign() < 0 {
		g.MintedNet.SetInt64(0)
	}
	return nil
}

// GrantOf returns a copy of the agent's record, or nil if none exists.
func (t *IssuedToken) GrantOf(agent common.Address) *AgentGrant {
	if g, ok := t.grants[agent]; ok {
		return g.clone()
	}
	return nil
}

// RemainingCredit returns maxCredit - mintedNet, zero for unknown agents.
func (t *IssuedToken) RemainingCredit(agent common.Address) *big.Int {
	g, ok := t.grants[agent]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Sub(g.MaxCredit, g.MintedNet)
}

// MaxCredit returns the agent's credit ceiling, zero for unknown agents.
func (t *IssuedToken) MaxCredit(agent common.Address) *big.Int {
	g, ok := t.grants[agent]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(g.MaxCredit)
}

// RestoreGrant installs a persisted record verbatim during rehydration,
// including its MintedNet accumulator.
func (t *IssuedToken) RestoreGrant(agent common.Address, g AgentGrant) {
	t.grants[agent] = g.clone()
}

// Agents lists every address holding a record, revoked ones included.
func (t *IssuedToken) Agents() []common.Address {
	out := make([]common.Address, 0, len(t.grants))
	for a := range t.grants {
		out = append(out, a)
	}
	return out
}

// Snapshot returns a deep copy of the grant table.
func (t *IssuedToken) Snapshot() map[common.Address]*AgentGrant {
	cp := make(map[common.Address]*AgentGrant, len(t.grants))
	for a, g := range t.grants {
		cp[a] = g.clone()
	}
	return cp
}

// Restore overwrites the grant table with a previously taken snapshot.
func (t *IssuedToken) Restore(snap map[common.Address]*AgentGrant) {
	t.grants = snap
}
