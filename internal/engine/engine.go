// Package engine serializes every state-changing call into a single global
// ordered log. Each call runs to completion under the engine lock; on any
// failure the entire state is restored from the pre-call snapshot, so all
// invariants hold as pre/post-conditions of each operation and no partial
// effect is ever observable.
package engine

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"issuance-backend/internal/access"
	"issuance-backend/internal/assets"
	"issuance-backend/internal/gateway"
	"issuance-backend/internal/vault"
)

// Operation is one committed entry of the global log.
type Operation struct {
	ID     string            `json:"id"`
	Seq    uint64            `json:"seq"`
	Kind   string            `json:"kind"`
	Caller string            `json:"caller"`
	Detail map[string]string `json:"detail,omitempty"`
	Height uint64            `json:"height"`
	At     time.Time         `json:"at"`
}

// CommitHook observes every committed operation, after state has mutated
// and before the engine lock is released.
type CommitHook func(op Operation)

// Engine owns the deterministic components and the lock that is the whole
// concurrency model: one writer at a time, ordered by lock acquisition.
type Engine struct {
	mu sync.Mutex

	Book    *assets.Book
	Token   *assets.IssuedToken
	Vault   *vault.Vault
	Gateway *gateway.Gateway
	Roles   *access.Roles

	height *assets.HeightCounter
	seq    uint64
	now    func() time.Time
	hooks  []CommitHook
}

func New(book *assets.Book, token *assets.IssuedToken, v *vault.Vault, g *gateway.Gateway, roles *access.Roles, height *assets.HeightCounter, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	if height == nil {
		height = &assets.HeightCounter{}
	}
	return &Engine{
		Book:    book,
		Token:   token,
		Vault:   v,
		Gateway: g,
		Roles:   roles,
		height:  height,
		now:     now,
	}
}

// OnCommit registers a hook. Hooks run synchronously inside the lock; they
// must not call back into the engine.
func (e *Engine) OnCommit(h CommitHook) {
	e.hooks = append(e.hooks, h)
}

// Height reads the shared monotonic counter. The lock pairs with SetHeight:
// the counter is written by the chain poller while snapshots read it.
func (e *Engine) Height() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.height.Height()
}

// SetHeight advances the monotonic counter. Lower observations are ignored.
func (e *Engine) SetHeight(h uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.height.Advance(h)
}

// SetSeq seeds the log position during rehydration.
func (e *Engine) SetSeq(seq uint64) { e.seq = seq }

type snapshot struct {
	book    *assets.Book
	grants  map[common.Address]*assets.AgentGrant
	vault   vault.Snapshot
	gateway gateway.Snapshot
	roles   *access.Roles
}

func (e *Engine) snapshot() snapshot {
	return snapshot{
		book:    e.Book.Snapshot(),
		grants:  e.Token.Snapshot(),
		vault:   e.Vault.Snapshot(),
		gateway: e.Gateway.Snapshot(),
		roles:   e.Roles.Snapshot(),
	}
}

func (e *Engine) restore(s snapshot) {
	e.Book.Restore(s.book)
	e.Token.Restore(s.grants)
	e.Vault.Restore(s.vault)
	e.Gateway.Restore(s.gateway)
	e.Roles.Restore(s.roles)
}

// Execute admits one state-changing call into the log. fn runs with the
// whole engine state exclusively held; if it returns an error every effect
// is rolled back and the log is not extended.
func (e *Engine) Execute(kind string, caller common.Address, detail map[string]string, fn func() error) (Operation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.snapshot()
	if err := fn(); err != nil {
		e.restore(snap)
		return Operation{}, err
	}
	e.seq++
	op := Operation{
		ID:     uuid.New().String(),
		Seq:    e.seq,
		Kind:   kind,
		Caller: caller.Hex(),
		Detail: detail,
		Height: e.height.Height(),
		At:     e.now(),
	}
	for _, h := range e.hooks {
		h(op)
	}
	return op, nil
}

// View runs a read-only closure under the lock so reads observe committed
// state only, never a call in progress.
func (e *Engine) View(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}
