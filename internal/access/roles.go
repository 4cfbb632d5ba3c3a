// Package access holds the role model shared by the vault and the gateway.
package access

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

type Role string

const (
	RoleOwner            Role = "owner"
	RoleVaultManager     Role = "vault_manager"
	RoleEmergencyManager Role = "emergency_manager"
)

var (
	ErrNotOwner   = errors.New("access: caller is not the owner")
	ErrNotManager = errors.New("access: caller lacks the required manager role")
	ErrBadRole    = errors.New("access: unknown role")
)

// Roles is the single authority consulted by every gated entry point.
// Owner changes membership; managers never change membership themselves.
type Roles struct {
	owner             common.Address
	vaultManagers     map[common.Address]bool
	emergencyManagers map[common.Address]bool
}

func NewRoles(owner common.Address) *Roles {
	return &Roles{
		owner:             owner,
		vaultManagers:     make(map[common.Address]bool),
		emergencyManagers: make(map[common.Address]bool),
	}
}

func (r *Roles) Owner() common.Address { return r.owner }

func (r *Roles) IsOwner(addr common.Address) bool { return addr == r.owner }

func (r *Roles) IsVaultManager(addr common.Address) bool {
	return r.vaultManagers[addr] || addr == r.owner
}

func (r *Roles) IsEmergencyManager(addr common.Address) bool {
	return r.emergencyManagers[addr] || addr == r.owner
}

// Grant adds addr to the given role. Only the owner may call.
func (r *Roles) Grant(caller common.Address, role Role, addr common.Address) error {
	if !r.IsOwner(caller) {
		return ErrNotOwner
	}
	switch role {
	case RoleVaultManager:
		r.vaultManagers[addr] = true
	case RoleEmergencyManager:
		r.emergencyManagers[addr] = true
	default:
		return ErrBadRole
	}
	return nil
}

// Revoke removes addr from the given role. Only the owner may call.
func (r *Roles) Revoke(caller common.Address, role Role, addr common.Address) error {
	if !r.IsOwner(caller) {
		return ErrNotOwner
	}
	switch role {
	case RoleVaultManager:
		delete(r.vaultManagers, addr)
	case RoleEmergencyManager:
		delete(r.emergencyManagers, addr)
	default:
		return ErrBadRole
	}
	return nil
}

// Members lists the addresses holding role, excluding the implicit owner.
func (r *Roles) Members(role Role) []common.Address {
	var src map[common.Address]bool
	switch role {
	case RoleVaultManager:
		src = r.vaultManagers
	case RoleEmergencyManager:
		src = r.emergencyManagers
	default:
		return nil
	}
	out := make([]common.Address, 0, len(src))
	for addr := range src {
		out = append(out, addr)
	}
	return out
}

// Snapshot returns a deep copy for transactional rollback.
func (r *Roles) Snapshot() *Roles {
	cp := NewRoles(r.owner)
	for a := range r.vaultManagers {
		cp.vaultManagers[a] = true
	}
	for a := range r.emergencyManagers {
		cp.emergencyManagers[a] = true
	}
	return cp
}

// Restore overwrites the receiver with a previously taken snapshot.
func (r *Roles) Restore(snap *Roles) {
	r.owner = snap.owner
	r.vaultManagers = make(map[common.Address]bool, len(snap.vaultManagers))
	for a := range snap.vaultManagers {
		r.vaultManagers[a] = true
	}
	r.emergencyManagers = make(map[common.Address]bool, len(snap.emergencyManagers))
	for a := range snap.emergencyManagers {
		r.emergencyManagers[a] = true
	}
}
