package models

import (
	"time"
)

// AgentGrantRecord persists one agent's credit grant so the engine can be
// rehydrated after a restart. Amounts are decimal strings in issued units.
type AgentGrantRecord struct {
	ID               string    `json:"id" gorm:"primaryKey"` // UUID
	Agent            string    `json:"agent" gorm:"uniqueIndex;not null;type:varchar(42)"`
	MaxCredit        string    `json:"max_credit" gorm:"type:varchar(78);not null"`
	MintedNet        string    `json:"minted_net" gorm:"type:varchar(78);not null"`
	EffectiveHeight  uint64    `json:"effective_height" gorm:"not null"`
	ExpirationHeight uint64    `json:"expiration_height" gorm:"not null"`
	Minable          bool      `json:"minable" gorm:"not null"`
	Burnable         bool      `json:"burnable" gorm:"not null"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (AgentGrantRecord) TableName() string {
	return "agent_grants"
}

// RoleAssignment persists one role membership.
type RoleAssignment struct {
	ID        string    `json:"id" gorm:"primaryKey"` // UUID
	Role      string    `json:"role" gorm:"index:idx_role_member,unique;not null;type:varchar(32)"`
	Member    string    `json:"member" gorm:"index:idx_role_member,unique;not null;type:varchar(42)"`
	GrantedBy string    `json:"granted_by" gorm:"type:varchar(42)"`
	CreatedAt time.Time `json:"created_at"`
}

func (RoleAssignment) TableName() string {
	return "role_assignments"
}

// SupportedToken persists the gateway's asset support table together with
// the book metadata needed to re-register the asset on boot.
type SupportedToken struct {
	ID        string    `json:"id" gorm:"primaryKey"` // UUID
	Address   string    `json:"address" gorm:"uniqueIndex;not null;type:varchar(42)"`
	Symbol    string    `json:"symbol" gorm:"not null;type:varchar(16)"`
	Decimals  uint8     `json:"decimals" gorm:"not null"`
	Supported bool      `json:"supported" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SupportedToken) TableName() string {
	return "supported_tokens"
}

// RouterWhitelistEntry persists one router address flag.
type RouterWhitelistEntry struct {
	ID          string    `json:"id" gorm:"primaryKey"` // UUID
	Router      string    `json:"router" gorm:"uniqueIndex;not null;type:varchar(42)"`
	Whitelisted bool      `json:"whitelisted" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (RouterWhitelistEntry) TableName() string {
	return "router_whitelist"
}

// OperationRecord is one committed entry of the engine's operation log.
// Detail is the operation's key/value payload stored as JSONB.
type OperationRecord struct {
	ID        string    `json:"id" gorm:"primaryKey"` // engine operation UUID
	Seq       uint64    `json:"seq" gorm:"uniqueIndex;not null"`
	Kind      string    `json:"kind" gorm:"index;not null;type:varchar(64)"`
	Caller    string    `json:"caller" gorm:"index;not null;type:varchar(42)"`
	Detail    string    `json:"detail" gorm:"type:jsonb"`
	Height    uint64    `json:"height" gorm:"not null"`
	At        time.Time `json:"at" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (OperationRecord) TableName() string {
	return "operations"
}

// PermitNonce persists one owner's signature replay counter.
type PermitNonce struct {
	ID        string    `json:"id" gorm:"primaryKey"` // UUID
	Owner     string    `json:"owner" gorm:"uniqueIndex;not null;type:varchar(42)"`
	Nonce     uint64    `json:"nonce" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PermitNonce) TableName() string {
	return "permit_nonces"
}

// ReserveSnapshot is a periodic record of the vault state for reporting and
// reconciliation. Amounts are decimal strings.
type ReserveSnapshot struct {
	ID          string    `json:"id" gorm:"primaryKey"` // UUID
	TotalIssued string    `json:"total_issued" gorm:"type:varchar(78);not null"`
	LegABalance string    `json:"leg_a_balance" gorm:"type:varchar(78);not null"`
	LegBBalance string    `json:"leg_b_balance" gorm:"type:varchar(78);not null"`
	AccruedFees string    `json:"accrued_fees" gorm:"type:varchar(78);not null"`
	MintFeeRate string    `json:"mint_fee_rate" gorm:"type:varchar(78);not null"`
	BurnFeeRate string    `json:"burn_fee_rate" gorm:"type:varchar(78);not null"`
	Height      uint64    `json:"height" gorm:"index;not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}

func (ReserveSnapshot) TableName() string {
	return "reserve_snapshots"
}
