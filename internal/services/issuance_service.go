package services

import (
	"context"
	"encoding/json"
	"math/big"
	"strconv"
	"time"

	"issuance-backend/internal/access"
	"issuance-backend/internal/assets"
	"issuance-backend/internal/engine"
	"issuance-backend/internal/events"
	"issuance-backend/internal/gateway"
	"issuance-backend/internal/metrics"
	"issuance-backend/internal/models"
	"issuance-backend/internal/repository"
	"issuance-backend/internal/vault"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// Operation kinds as they appear in the log, in NATS subjects, and in metric
// labels.
const (
	OpCombinationDeposit  = "combination_deposit"
	OpSingleDeposit       = "single_deposit"
	OpSingleWithdraw      = "single_withdraw"
	OpCombinationWithdraw = "combination_withdraw"
	OpClaimSurplus        = "claim_surplus"
	OpClaimFees           = "claim_fees"
	OpUpdateMintFeeRate   = "update_mint_fee_rate"
	OpUpdateBurnFeeRate   = "update_burn_fee_rate"
	OpPauseVault          = "pause_vault"
	OpUnpauseVault        = "unpause_vault"
	OpPauseGateway        = "pause_gateway"
	OpUnpauseGateway      = "unpause_gateway"
	OpGrantAgent          = "grant_agent"
	OpSetEffectiveHeight  = "set_effective_height"
	OpSetExpirationHeight = "set_expiration_height"
	OpPermit              = "permit"
	OpUpdateSupportToken  = "update_support_token"
	OpUpdateSwapWhitelist = "update_swap_whitelist"
	OpRescueTokens        = "rescue_tokens"
	OpGrantRole           = "grant_role"
	OpRevokeRole          = "revoke_role"
)

// IssuanceService is the single entry point for state-changing calls. Every
// method funnels through the engine's ordered log; after a commit the service
// mirrors the durable slice of state to Postgres and publishes the operation
// to NATS. The in-memory engine is the source of truth, so persistence
// failures are logged and do not fail the committed operation.
type IssuanceService struct {
	engine     *engine.Engine
	operations repository.OperationRepository
	grants     repository.GrantRepository
	roles      repository.RoleRepository
	registry   repository.RegistryRepository
	nonces     repository.NonceRepository
	publisher  *events.Publisher
}

func NewIssuanceService(
	eng *engine.Engine,
	operations repository.OperationRepository,
	grants repository.GrantRepository,
	roles repository.RoleRepository,
	registry repository.RegistryRepository,
	nonces repository.NonceRepository,
	publisher *events.Publisher,
) *IssuanceService {
	return &IssuanceService{
		engine:     eng,
		operations: operations,
		grants:     grants,
		roles:      roles,
		registry:   registry,
		nonces:     nonces,
		publisher:  publisher,
	}
}

func (s *IssuanceService) Engine() *engine.Engine { return s.engine }

// run executes one operation through the engine and handles the ambient
// concerns every operation shares: timing, counters, the durable op log, and
// the NATS publish.
func (s *IssuanceService) run(ctx context.Context, kind string, caller common.Address, detail map[string]string, fn func() error) (engine.Operation, error) {
	start := time.Now()
	op, err := s.engine.Execute(kind, caller, detail, fn)
	metrics.OperationDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.OperationsRejected.WithLabelValues(kind, err.Error()).Inc()
		return engine.Operation{}, err
	}
	metrics.OperationsCommitted.WithLabelValues(kind).Inc()

	s.recordOperation(ctx, op)
	s.publisher.PublishOperation(op)
	s.refreshGauges()
	return op, nil
}

func (s *IssuanceService) recordOperation(ctx context.Context, op engine.Operation) {
	if s.operations == nil {
		return
	}
	detail := ""
	if len(op.Detail) > 0 {
		if raw, err := json.Marshal(op.Detail); err == nil {
			detail = string(raw)
		}
	}
	record := &models.OperationRecord{
		ID:     op.ID,
		Seq:    op.Seq,
		Kind:   op.Kind,
		Caller: op.Caller,
		Detail: detail,
		Height: op.Height,
		At:     op.At,
	}
	if err := s.operations.Create(ctx, record); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"seq":  op.Seq,
			"kind": op.Kind,
		}).Error("failed to persist operation record")
	}
}

// refreshGauges mirrors the committed reserve state into Prometheus. Gauges
// are approximate for big.Int amounts beyond float precision; the exact
// figures live in the API and the snapshot table.
func (s *IssuanceService) refreshGauges() {
	var state vault.State
	var gwPaused bool
	s.engine.View(func() {
		state = s.engine.Vault.StateView()
		gwPaused = s.engine.Gateway.Paused()
	})

	metrics.TotalIssued.Set(bigToFloat(state.TotalIssued))
	metrics.AccruedFees.Set(bigToFloat(state.AccruedFees))
	metrics.ReserveBalance.WithLabelValues("leg_a").Set(bigToFloat(state.LegABalance))
	metrics.ReserveBalance.WithLabelValues("leg_b").Set(bigToFloat(state.LegBBalance))
	metrics.VaultPaused.Set(boolToFloat(state.Paused))
	metrics.GatewayPaused.Set(boolToFloat(gwPaused))
}

func bigToFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// ============================================================================
// Gateway flows
// ============================================================================

// CombinationDeposit mints `issued` units against both collateral legs taken
// directly from the caller, leg B in either its native or yield form.
func (s *IssuanceService) CombinationDeposit(ctx context.Context, caller common.Address, issued *big.Int, legBChoice common.Address, deadline int64) (engine.Operation, *big.Int, error) {
	var minted *big.Int
	detail := map[string]string{
		"issued":       issued.String(),
		"leg_b_choice": legBChoice.Hex(),
	}
	op, err := s.run(ctx, OpCombinationDeposit, caller, detail, func() error {
		var err error
		minted, err = s.engine.Gateway.CombinationDeposit(caller, issued, legBChoice, deadline)
		return err
	})
	if err != nil {
		return engine.Operation{}, nil, err
	}
	return op, minted, nil
}

// SingleDeposit mints `issued` units, sourcing each collateral leg through
// the supplied routed swap legs.
func (s *IssuanceService) SingleDeposit(ctx context.Context, caller common.Address, issued *big.Int, legs []gateway.SwapLeg, deadline int64) (engine.Operation, *big.Int, error) {
	var minted *big.Int
	detail := map[string]string{
		"issued": issued.String(),
		"legs":   legsSummary(legs),
	}
	op, err := s.run(ctx, OpSingleDeposit, caller, detail, func() error {
		var err error
		minted, err = s.engine.Gateway.SingleDeposit(caller, issued, legs, deadline)
		return err
	})
	if err != nil {
		return engine.Operation{}, nil, err
	}
	return op, minted, nil
}

// SingleWithdraw burns `amount` issued units and routes the released
// collateral through the supplied swap legs.
func (s *IssuanceService) SingleWithdraw(ctx context.Context, caller common.Address, amount *big.Int, legs []gateway.SwapLeg, deadline int64) (engine.Operation, *big.Int, *big.Int, error) {
	var outA, outB *big.Int
	detail := map[string]string{
		"amount": amount.String(),
		"legs":   legsSummary(legs),
	}
	op, err := s.run(ctx, OpSingleWithdraw, caller, detail, func() error {
		var err error
		outA, outB, err = s.engine.Gateway.SingleWithdraw(caller, amount, legs, deadline)
		return err
	})
	if err != nil {
		return engine.Operation{}, nil, nil, err
	}
	return op, outA, outB, nil
}

// CombinationWithdraw burns `amount` issued units and returns both collateral
// legs directly, leg B in either its native or yield form.
func (s *IssuanceService) CombinationWithdraw(ctx context.Context, caller common.Address, amount *big.Int, legBChoice common.Address, deadline int64) (engine.Operation, *big.Int, *big.Int, error) {
	var outA, outB *big.Int
	detail := map[string]string{
		"amount":       amount.String(),
		"leg_b_choice": legBChoice.Hex(),
	}
	op, err := s.run(ctx, OpCombinationWithdraw, caller, detail, func() error {
		var err error
		outA, outB, err = s.engine.Gateway.CombinationWithdraw(caller, amount, legBChoice, deadline)
		return err
	})
	if err != nil {
		return engine.Operation{}, nil, nil, err
	}
	return op, outA, outB, nil
}

func legsSummary(legs []gateway.SwapLeg) string {
	type legView struct {
		From       string `json:"from"`
		To         string `json:"to"`
		FromAmount string `json:"from_amount"`
		MinReturn  string `json:"min_return,omitempty"`
		NoOp       bool   `json:"no_op,omitempty"`
	}
	views := make([]legView, 0, len(legs))
	for _, leg := range legs {
		v := legView{
			From:       leg.FromAsset.Hex(),
			To:         leg.ToAsset.Hex(),
			FromAmount: leg.FromAmount.String(),
			NoOp:       leg.NoOp(),
		}
		if leg.MinReturn != nil {
			v.MinReturn = leg.MinReturn.String()
		}
		views = append(views, v)
	}
	raw, err := json.Marshal(views)
	if err != nil {
		return ""
	}
	return string(raw)
}

// ============================================================================
// Vault operations
// ============================================================================

// ClaimSurplus sends collateral above the required reserve of `asset` to
// `to`. Manager only.
func (s *IssuanceService) ClaimSurplus(ctx context.Context, caller, asset, to common.Address) (engine.Operation, *big.Int, error) {
	var claimed *big.Int
	detail := map[string]string{"asset": asset.Hex(), "to": to.Hex()}
	op, err := s.run(ctx, OpClaimSurplus, caller, detail, func() error {
		var err error
		claimed, err = s.engine.Vault.Claim(caller, asset, to)
		if err == nil {
			detail["claimed"] = claimed.String()
		}
		return err
	})
	if err != nil {
		return engine.Operation{}, nil, err
	}
	return op, claimed, nil
}

// ClaimFees sends the accrued issued-unit fees to `to`. Manager only.
func (s *IssuanceService) ClaimFees(ctx context.Context, caller, to common.Address) (engine.Operation, *big.Int, error) {
	var claimed *big.Int
	detail := map[string]string{"to": to.Hex()}
	op, err := s.run(ctx, OpClaimFees, caller, detail, func() error {
		var err error
		claimed, err = s.engine.Vault.ClaimFees(caller, to)
		if err == nil {
			detail["claimed"] = claimed.String()
		}
		return err
	})
	if err != nil {
		return engine.Operation{}, nil, err
	}
	return op, claimed, nil
}

func (s *IssuanceService) UpdateMintFeeRate(ctx context.Context, caller common.Address, rate *big.Int) (engine.Operation, error) {
	return s.run(ctx, OpUpdateMintFeeRate, caller, map[string]string{"rate": rate.String()}, func() error {
		return s.engine.Vault.UpdateMintFeeRate(caller, rate)
	})
}

func (s *IssuanceService) UpdateBurnFeeRate(ctx context.Context, caller common.Address, rate *big.Int) (engine.Operation, error) {
	return s.run(ctx, OpUpdateBurnFeeRate, caller, map[string]string{"rate": rate.String()}, func() error {
		return s.engine.Vault.UpdateBurnFeeRate(caller, rate)
	})
}

func (s *IssuanceService) PauseVault(ctx context.Context, caller common.Address) (engine.Operation, error) {
	return s.run(ctx, OpPauseVault, caller, nil, func() error {
		return s.engine.Vault.Pause(caller)
	})
}

func (s *IssuanceService) UnpauseVault(ctx context.Context, caller common.Address) (engine.Operation, error) {
	return s.run(ctx, OpUnpauseVault, caller, nil, func() error {
		return s.engine.Vault.Unpause(caller)
	})
}

func (s *IssuanceService) PauseGateway(ctx context.Context, caller common.Address) (engine.Operation, error) {
	return s.run(ctx, OpPauseGateway, caller, nil, func() error {
		return s.engine.Gateway.Pause(caller)
	})
}

func (s *IssuanceService) UnpauseGateway(ctx context.Context, caller common.Address) (engine.Operation, error) {
	return s.run(ctx, OpUnpauseGateway, caller, nil, func() error {
		return s.engine.Gateway.Unpause(caller)
	})
}

// ============================================================================
// Credit ledger operations
// ============================================================================

// GrantAgent writes an agent's credit grant. Owner only; the grant replaces
// any existing grant for the agent wholesale.
func (s *IssuanceService) GrantAgent(ctx context.Context, caller, agent common.Address, maxCredit *big.Int, effective, expiration uint64, minable, burnable bool) (engine.Operation, error) {
	detail := map[string]string{
		"agent":      agent.Hex(),
		"max_credit": maxCredit.String(),
	}
	op, err := s.run(ctx, OpGrantAgent, caller, detail, func() error {
		if !s.engine.Roles.IsOwner(caller) {
			return access.ErrNotOwner
		}
		return s.engine.Token.GrantAgent(agent, maxCredit, effective, expiration, minable, burnable)
	})
	if err != nil {
		return engine.Operation{}, err
	}
	s.persistGrant(ctx, agent)
	return op, nil
}

func (s *IssuanceService) SetEffectiveHeight(ctx context.Context, caller, agent common.Address, height uint64) (engine.Operation, error) {
	detail := map[string]string{"agent": agent.Hex()}
	op, err := s.run(ctx, OpSetEffectiveHeight, caller, detail, func() error {
		if !s.engine.Roles.IsOwner(caller) {
			return access.ErrNotOwner
		}
		return s.engine.Token.SetEffectiveHeight(agent, height)
	})
	if err != nil {
		return engine.Operation{}, err
	}
	s.persistGrant(ctx, agent)
	return op, nil
}

func (s *IssuanceService) SetExpirationHeight(ctx context.Context, caller, agent common.Address, height uint64) (engine.Operation, error) {
	detail := map[string]string{"agent": agent.Hex()}
	op, err := s.run(ctx, OpSetExpirationHeight, caller, detail, func() error {
		if !s.engine.Roles.IsOwner(caller) {
			return access.ErrNotOwner
		}
		return s.engine.Token.SetExpirationHeight(agent, height)
	})
	if err != nil {
		return engine.Operation{}, err
	}
	s.persistGrant(ctx, agent)
	return op, nil
}

// persistGrant mirrors one agent's committed grant to Postgres and NATS.
func (s *IssuanceService) persistGrant(ctx context.Context, agent common.Address) {
	var grant *assets.AgentGrant
	s.engine.View(func() {
		grant = s.engine.Token.GrantOf(agent)
	})
	if grant == nil {
		return
	}
	record := &models.AgentGrantRecord{
		Agent:            agent.Hex(),
		MaxCredit:        grant.MaxCredit.String(),
		MintedNet:        grant.MintedNet.String(),
		EffectiveHeight:  grant.EffectiveHeight,
		ExpirationHeight: grant.ExpirationHeight,
		Minable:          grant.Minable,
		Burnable:         grant.Burnable,
	}
	if s.grants != nil {
		if err := s.grants.Upsert(ctx, record); err != nil {
			logrus.WithError(err).WithField("agent", agent.Hex()).Error("failed to persist agent grant")
		}
	}
	s.publisher.PublishGrant(events.GrantEvent{
		Agent:            record.Agent,
		MaxCredit:        record.MaxCredit,
		MintedNet:        record.MintedNet,
		EffectiveHeight:  record.EffectiveHeight,
		ExpirationHeight: record.ExpirationHeight,
		Minable:          record.Minable,
		Burnable:         record.Burnable,
	})
}

// Permit applies a signed allowance grant. Anyone may relay the signature.
func (s *IssuanceService) Permit(ctx context.Context, relayer common.Address, req assets.PermitRequest, sig []byte) (engine.Operation, error) {
	detail := map[string]string{
		"owner":   req.Owner.Hex(),
		"spender": req.Spender.Hex(),
		"asset":   req.Asset.Hex(),
		"amount":  req.Amount.String(),
	}
	op, err := s.run(ctx, OpPermit, relayer, detail, func() error {
		return s.engine.Book.Permit(req, sig, time.Now())
	})
	if err != nil {
		return engine.Operation{}, err
	}
	if s.nonces != nil {
		var next uint64
		s.engine.View(func() {
			next = s.engine.Book.Nonce(req.Owner)
		})
		if err := s.nonces.Set(ctx, req.Owner.Hex(), next); err != nil {
			logrus.WithError(err).WithField("owner", req.Owner.Hex()).Error("failed to persist permit nonce")
		}
	}
	return op, nil
}

// PermitNonce returns the next unused permit nonce for owner.
func (s *IssuanceService) PermitNonce(owner common.Address) uint64 {
	var nonce uint64
	s.engine.View(func() {
		nonce = s.engine.Book.Nonce(owner)
	})
	return nonce
}

// ============================================================================
// Registry and role administration
// ============================================================================

// UpdateSupportToken flips the gateway's support flag for one asset. The
// asset must already be registered in the book so its metadata can be
// mirrored to the registry table.
func (s *IssuanceService) UpdateSupportToken(ctx context.Context, caller, asset common.Address, supported bool) (engine.Operation, error) {
	detail := map[string]string{
		"asset":     asset.Hex(),
		"supported": boolString(supported),
	}
	op, err := s.run(ctx, OpUpdateSupportToken, caller, detail, func() error {
		return s.engine.Gateway.UpdateSupportToken(caller, asset, supported)
	})
	if err != nil {
		return engine.Operation{}, err
	}
	if s.registry != nil {
		record := &models.SupportedToken{Address: asset.Hex(), Supported: supported}
		s.engine.View(func() {
			if meta, ok := s.engine.Book.AssetOf(asset); ok {
				record.Symbol = meta.Symbol
				record.Decimals = meta.Decimals
			}
		})
		if err := s.registry.UpsertToken(ctx, record); err != nil {
			logrus.WithError(err).WithField("asset", asset.Hex()).Error("failed to persist supported token")
		}
	}
	return op, nil
}

// UpdateSwapWhitelist flips router whitelist flags, positionally paired.
func (s *IssuanceService) UpdateSwapWhitelist(ctx context.Context, caller common.Address, routers []common.Address, flags []bool) (engine.Operation, error) {
	detail := map[string]string{"count": strconv.Itoa(len(routers))}
	op, err := s.run(ctx, OpUpdateSwapWhitelist, caller, detail, func() error {
		return s.engine.Gateway.UpdateSwapWhiteLists(caller, routers, flags)
	})
	if err != nil {
		return engine.Operation{}, err
	}
	if s.registry != nil {
		for i, router := range routers {
			if err := s.registry.UpsertRouter(ctx, router.Hex(), flags[i]); err != nil {
				logrus.WithError(err).WithField("router", router.Hex()).Error("failed to persist router whitelist entry")
			}
		}
	}
	return op, nil
}

// RescueTokens sweeps stranded gateway balances to `to`. Manager only.
func (s *IssuanceService) RescueTokens(ctx context.Context, caller, asset, to common.Address, amount *big.Int) (engine.Operation, error) {
	detail := map[string]string{
		"asset":  asset.Hex(),
		"to":     to.Hex(),
		"amount": amount.String(),
	}
	return s.run(ctx, OpRescueTokens, caller, detail, func() error {
		return s.engine.Gateway.RescueTokens(caller, asset, to, amount)
	})
}

// GrantRole adds a member to a manager role. Owner only.
func (s *IssuanceService) GrantRole(ctx context.Context, caller common.Address, role access.Role, member common.Address) (engine.Operation, error) {
	detail := map[string]string{
		"role":   string(role),
		"member": member.Hex(),
	}
	op, err := s.run(ctx, OpGrantRole, caller, detail, func() error {
		return s.engine.Roles.Grant(caller, role, member)
	})
	if err != nil {
		return engine.Operation{}, err
	}
	if s.roles != nil {
		if err := s.roles.Add(ctx, string(role), member.Hex(), caller.Hex()); err != nil {
			logrus.WithError(err).WithField("member", member.Hex()).Error("failed to persist role assignment")
		}
	}
	return op, nil
}

// RevokeRole removes a member from a manager role. Owner only.
func (s *IssuanceService) RevokeRole(ctx context.Context, caller common.Address, role access.Role, member common.Address) (engine.Operation, error) {
	detail := map[string]string{
		"role":   string(role),
		"member": member.Hex(),
	}
	op, err := s.run(ctx, OpRevokeRole, caller, detail, func() error {
		return s.engine.Roles.Revoke(caller, role, member)
	})
	if err != nil {
		return engine.Operation{}, err
	}
	if s.roles != nil {
		if err := s.roles.Remove(ctx, string(role), member.Hex()); err != nil {
			logrus.WithError(err).WithField("member", member.Hex()).Error("failed to remove role assignment")
		}
	}
	return op, nil
}

// ============================================================================
// Read-only views
// ============================================================================

// VaultState returns the committed reserve view.
func (s *IssuanceService) VaultState() vault.State {
	var state vault.State
	s.engine.View(func() {
		state = s.engine.Vault.StateView()
	})
	return state
}

// ClaimableSurplus reports how much of `asset` sits above the required
// reserve.
func (s *IssuanceService) ClaimableSurplus(asset common.Address) (*big.Int, error) {
	var surplus *big.Int
	var err error
	s.engine.View(func() {
		surplus, err = s.engine.Vault.ClaimableSurplus(asset)
	})
	return surplus, err
}

// GrantView is the external shape of one agent's credit grant.
type GrantView struct {
	Agent            string `json:"agent"`
	MaxCredit        string `json:"max_credit"`
	MintedNet        string `json:"minted_net"`
	RemainingCredit  string `json:"remaining_credit"`
	EffectiveHeight  uint64 `json:"effective_height"`
	ExpirationHeight uint64 `json:"expiration_height"`
	Minable          bool   `json:"minable"`
	Burnable         bool   `json:"burnable"`
}

// GrantOf returns one agent's grant, or nil when none exists.
func (s *IssuanceService) GrantOf(agent common.Address) *GrantView {
	var view *GrantView
	s.engine.View(func() {
		grant := s.engine.Token.GrantOf(agent)
		if grant == nil {
			return
		}
		view = &GrantView{
			Agent:            agent.Hex(),
			MaxCredit:        grant.MaxCredit.String(),
			MintedNet:        grant.MintedNet.String(),
			RemainingCredit:  s.engine.Token.RemainingCredit(agent).String(),
			EffectiveHeight:  grant.EffectiveHeight,
			ExpirationHeight: grant.ExpirationHeight,
			Minable:          grant.Minable,
			Burnable:         grant.Burnable,
		}
	})
	return view
}

// Grants lists every agent's grant.
func (s *IssuanceService) Grants() []GrantView {
	var views []GrantView
	s.engine.View(func() {
		for _, agent := range s.engine.Token.Agents() {
			grant := s.engine.Token.GrantOf(agent)
			if grant == nil {
				continue
			}
			views = append(views, GrantView{
				Agent:            agent.Hex(),
				MaxCredit:        grant.MaxCredit.String(),
				MintedNet:        grant.MintedNet.String(),
				RemainingCredit:  s.engine.Token.RemainingCredit(agent).String(),
				EffectiveHeight:  grant.EffectiveHeight,
				ExpirationHeight: grant.ExpirationHeight,
				Minable:          grant.Minable,
				Burnable:         grant.Burnable,
			})
		}
	})
	return views
}

// BalanceOf reads one holder's committed balance of one asset.
func (s *IssuanceService) BalanceOf(asset, holder common.Address) *big.Int {
	var bal *big.Int
	s.engine.View(func() {
		bal = s.engine.Book.BalanceOf(asset, holder)
	})
	return bal
}

// SupportedAssets lists the gateway's supported asset set.
func (s *IssuanceService) SupportedAssets() []common.Address {
	var out []common.Address
	s.engine.View(func() {
		out = s.engine.Gateway.SupportedAssets()
	})
	return out
}

// WhitelistedRouters lists the gateway's whitelisted router set.
func (s *IssuanceService) WhitelistedRouters() []common.Address {
	var out []common.Address
	s.engine.View(func() {
		out = s.engine.Gateway.WhitelistedRouters()
	})
	return out
}

// RoleMembers lists the members of a manager role.
func (s *IssuanceService) RoleMembers(role access.Role) []common.Address {
	var out []common.Address
	s.engine.View(func() {
		out = s.engine.Roles.Members(role)
	})
	return out
}

// Owner returns the role owner address.
func (s *IssuanceService) Owner() common.Address {
	var owner common.Address
	s.engine.View(func() {
		owner = s.engine.Roles.Owner()
	})
	return owner
}

// Operations pages the durable operation log, newest first.
func (s *IssuanceService) Operations(ctx context.Context, limit, offset int) ([]*models.OperationRecord, error) {
	if s.operations == nil {
		return nil, nil
	}
	return s.operations.ListRecent(ctx, limit, offset)
}

// OperationByID fetches one operation log entry.
func (s *IssuanceService) OperationByID(ctx context.Context, id string) (*models.OperationRecord, error) {
	if s.operations == nil {
		return nil, nil
	}
	return s.operations.GetByID(ctx, id)
}

func boolString(b bool) string {
	return strconv.FormatBool(b)
}
