package services

import (
	"context"
	"fmt"
	"math/big"

	"issuance-backend/internal/access"
	"issuance-backend/internal/assets"
	"issuance-backend/internal/config"
	"issuance-backend/internal/engine"
	"issuance-backend/internal/gateway"
	"issuance-backend/internal/repository"
	"issuance-backend/internal/vault"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// BootstrapService builds the deterministic engine from configuration and
// rehydrates the durable slice of its state from Postgres: agent grants,
// role assignments, the asset registry, router whitelist, permit nonces and
// the operation log position. Balances are process state and start empty;
// the operation log is the audit record across restarts.
type BootstrapService struct {
	grants     repository.GrantRepository
	roles      repository.RoleRepository
	registry   repository.RegistryRepository
	nonces     repository.NonceRepository
	operations repository.OperationRepository
}

func NewBootstrapService(
	grants repository.GrantRepository,
	roles repository.RoleRepository,
	registry repository.RegistryRepository,
	nonces repository.NonceRepository,
	operations repository.OperationRepository,
) *BootstrapService {
	return &BootstrapService{
		grants:     grants,
		roles:      roles,
		registry:   registry,
		nonces:     nonces,
		operations: operations,
	}
}

// BuildEngine wires the asset book, issued token, vault, gateway and roles
// from AppConfig into one engine. The returned engine has no agent grants or
// role members yet; Rehydrate loads those.
func (s *BootstrapService) BuildEngine(cfg *config.Config) (*engine.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: nil config")
	}

	owner := common.HexToAddress(cfg.Seed.Owner)
	if owner == (common.Address{}) {
		return nil, fmt.Errorf("bootstrap: seed owner not configured")
	}

	book := assets.NewBook(nil)
	for _, a := range cfg.Assets.Registered {
		book.RegisterAsset(assets.Asset{
			Address:  common.HexToAddress(a.Address),
			Symbol:   a.Symbol,
			Decimals: a.Decimals,
		})
	}

	height := &assets.HeightCounter{}
	token := assets.NewIssuedToken(book, common.HexToAddress(cfg.Assets.Issued), height)
	roles := access.NewRoles(owner)

	params, err := vaultParams(cfg)
	if err != nil {
		return nil, err
	}

	vaultAddr := common.HexToAddress(cfg.Vault.Address)
	gatewayAddr := common.HexToAddress(cfg.Gateway.Address)
	v, err := vault.New(book, token, roles, vaultAddr, gatewayAddr, params)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: vault: %w", err)
	}

	minDeposit, err := parseAmount(cfg.Gateway.MinDeposit, "gateway.min_deposit")
	if err != nil {
		return nil, err
	}
	g := gateway.New(book, token, v, roles, gateway.Config{
		Address:    gatewayAddr,
		LegBNative: common.HexToAddress(cfg.Assets.LegBNative),
		MinDeposit: minDeposit,
	}, nil)

	for _, addr := range cfg.Gateway.Supported {
		if err := g.UpdateSupportToken(owner, common.HexToAddress(addr), true); err != nil {
			return nil, fmt.Errorf("bootstrap: support token %s: %w", addr, err)
		}
	}
	if len(cfg.Gateway.Routers) > 0 {
		routers := make([]common.Address, len(cfg.Gateway.Routers))
		flags := make([]bool, len(cfg.Gateway.Routers))
		for i, addr := range cfg.Gateway.Routers {
			routers[i] = common.HexToAddress(addr)
			flags[i] = true
		}
		if err := g.UpdateSwapWhiteLists(owner, routers, flags); err != nil {
			return nil, fmt.Errorf("bootstrap: router whitelist: %w", err)
		}
	}

	return engine.New(book, token, v, g, roles, height, nil), nil
}

func vaultParams(cfg *config.Config) (vault.Params, error) {
	unitFactor, err := parseAmount(cfg.Vault.UnitFactor, "vault.unit_factor")
	if err != nil {
		return vault.Params{}, err
	}
	ratioConstant, err := parseAmount(cfg.Vault.RatioConstant, "vault.ratio_constant")
	if err != nil {
		return vault.Params{}, err
	}
	conversionRatioK, err := parseAmount(cfg.Vault.ConversionRatioK, "vault.conversion_ratio_k")
	if err != nil {
		return vault.Params{}, err
	}
	mintFeeRate, err := parseAmount(cfg.Vault.MintFeeRate, "vault.mint_fee_rate")
	if err != nil {
		return vault.Params{}, err
	}
	burnFeeRate, err := parseAmount(cfg.Vault.BurnFeeRate, "vault.burn_fee_rate")
	if err != nil {
		return vault.Params{}, err
	}
	return vault.Params{
		LegA:             common.HexToAddress(cfg.Assets.LegA),
		LegB:             common.HexToAddress(cfg.Assets.LegB),
		UnitFactor:       unitFactor,
		RatioConstant:    ratioConstant,
		ConversionRatioK: conversionRatioK,
		MintFeeRate:      mintFeeRate,
		BurnFeeRate:      burnFeeRate,
	}, nil
}

func parseAmount(s, field string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("bootstrap: %s: not a decimal integer: %q", field, s)
	}
	return v, nil
}

// Rehydrate loads the persisted state into a freshly built engine. It must
// run before the engine accepts traffic.
func (s *BootstrapService) Rehydrate(ctx context.Context, eng *engine.Engine) error {
	if err := s.rehydrateGrants(ctx, eng); err != nil {
		return err
	}
	if err := s.rehydrateRoles(ctx, eng); err != nil {
		return err
	}
	if err := s.rehydrateRegistry(ctx, eng); err != nil {
		return err
	}
	if err := s.rehydrateNonces(ctx, eng); err != nil {
		return err
	}
	return s.rehydrateSeq(ctx, eng)
}

func (s *BootstrapService) rehydrateGrants(ctx context.Context, eng *engine.Engine) error {
	if s.grants == nil {
		return nil
	}
	records, err := s.grants.List(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: load grants: %w", err)
	}
	for _, r := range records {
		maxCredit, ok := new(big.Int).SetString(r.MaxCredit, 10)
		if !ok {
			return fmt.Errorf("bootstrap: grant %s: bad max_credit %q", r.Agent, r.MaxCredit)
		}
		mintedNet, ok := new(big.Int).SetString(r.MintedNet, 10)
		if !ok {
			return fmt.Errorf("bootstrap: grant %s: bad minted_net %q", r.Agent, r.MintedNet)
		}
		eng.Token.RestoreGrant(common.HexToAddress(r.Agent), assets.AgentGrant{
			MaxCredit:        maxCredit,
			MintedNet:        mintedNet,
			EffectiveHeight:  r.EffectiveHeight,
			ExpirationHeight: r.ExpirationHeight,
			Minable:          r.Minable,
			Burnable:         r.Burnable,
		})
	}
	logrus.WithField("count", len(records)).Info("rehydrated agent grants")
	return nil
}

func (s *BootstrapService) rehydrateRoles(ctx context.Context, eng *engine.Engine) error {
	if s.roles == nil {
		return nil
	}
	records, err := s.roles.List(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: load roles: %w", err)
	}
	owner := eng.Roles.Owner()
	for _, r := range records {
		if err := eng.Roles.Grant(owner, access.Role(r.Role), common.HexToAddress(r.Member)); err != nil {
			return fmt.Errorf("bootstrap: role %s for %s: %w", r.Role, r.Member, err)
		}
	}
	logrus.WithField("count", len(records)).Info("rehydrated role assignments")
	return nil
}

func (s *BootstrapService) rehydrateRegistry(ctx context.Context, eng *engine.Engine) error {
	if s.registry == nil {
		return nil
	}
	owner := eng.Roles.Owner()
	tokens, err := s.registry.ListTokens(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: load supported tokens: %w", err)
	}
	for _, t := range tokens {
		addr := common.HexToAddress(t.Address)
		eng.Book.RegisterAsset(assets.Asset{Address: addr, Symbol: t.Symbol, Decimals: t.Decimals})
		if err := eng.Gateway.UpdateSupportToken(owner, addr, t.Supported); err != nil {
			return fmt.Errorf("bootstrap: support token %s: %w", t.Address, err)
		}
	}

	routers, err := s.registry.ListRouters(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: load router whitelist: %w", err)
	}
	for _, r := range routers {
		err := eng.Gateway.UpdateSwapWhiteLists(owner, []common.Address{common.HexToAddress(r.Router)}, []bool{r.Whitelisted})
		if err != nil {
			return fmt.Errorf("bootstrap: router %s: %w", r.Router, err)
		}
	}
	logrus.WithFields(logrus.Fields{
		"tokens":  len(tokens),
		"routers": len(routers),
	}).Info("rehydrated asset registry")
	return nil
}

func (s *BootstrapService) rehydrateNonces(ctx context.Context, eng *engine.Engine) error {
	if s.nonces == nil {
		return nil
	}
	records, err := s.nonces.List(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: load permit nonces: %w", err)
	}
	for _, r := range records {
		eng.Book.SetNonce(common.HexToAddress(r.Owner), r.Nonce)
	}
	return nil
}

func (s *BootstrapService) rehydrateSeq(ctx context.Context, eng *engine.Engine) error {
	if s.operations == nil {
		return nil
	}
	seq, err := s.operations.MaxSeq(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: load operation log position: %w", err)
	}
	eng.SetSeq(seq)
	logrus.WithField("seq", seq).Info("rehydrated operation log position")
	return nil
}
