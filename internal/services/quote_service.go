package services

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"issuance-backend/internal/clients"
	"issuance-backend/internal/engine"
	"issuance-backend/internal/gateway"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// quoteValidity is how long a suggested leg set is considered fresh; the
// deadline baked into each leg enforces it downstream.
const quoteValidity = 5 * time.Minute

// QuoteService turns a funding asset plus a desired issuance amount into
// executable swap legs by asking the route aggregator for quotes against the
// reserve's collateral requirements.
type QuoteService struct {
	engine *engine.Engine
	client *clients.RouteQuoteClient
}

func NewQuoteService(eng *engine.Engine, client *clients.RouteQuoteClient) *QuoteService {
	return &QuoteService{engine: eng, client: client}
}

// LegRequirement is one collateral leg's target.
type LegRequirement struct {
	Asset    string `json:"asset"`
	Required string `json:"required"`
}

// LegSuggestion is one aggregator-backed swap leg, ready to submit.
type LegSuggestion struct {
	FromAsset     string `json:"from_asset"`
	ToAsset       string `json:"to_asset"`
	ApproveTarget string `json:"approve_target,omitempty"`
	SwapTarget    string `json:"swap_target,omitempty"`
	FromAmount    string `json:"from_amount"`
	MinReturn     string `json:"min_return,omitempty"`
	CallData      string `json:"call_data,omitempty"`
	Deadline      int64  `json:"deadline"`
	Tool          string `json:"tool,omitempty"`
}

// DepositQuote is the full answer for one single-asset deposit.
type DepositQuote struct {
	Issued       string           `json:"issued"`
	Requirements []LegRequirement `json:"requirements"`
	Legs         []LegSuggestion  `json:"legs"`
	ValidUntil   string           `json:"valid_until"`
}

// RequiredLegs reports the collateral both legs need for `issued` units.
func (s *QuoteService) RequiredLegs(issued *big.Int) (legA, legB *big.Int, legAAsset, legBAsset common.Address) {
	s.engine.View(func() {
		legAAsset = s.engine.Vault.LegA()
		legBAsset = s.engine.Vault.LegB()
		legA = s.engine.Vault.LegAForIssued(issued)
		legB = s.engine.Vault.LegBForLegA(legA)
	})
	return legA, legB, legAAsset, legBAsset
}

// QuoteDeposit suggests the two swap legs that fund `issued` units from
// `source`. When source already is a collateral leg that leg comes back as a
// no-op carrying only the required amount.
func (s *QuoteService) QuoteDeposit(ctx context.Context, source common.Address, issued *big.Int) (*DepositQuote, error) {
	if s.client == nil {
		return nil, fmt.Errorf("quote: aggregator not configured")
	}

	legA, legB, legAAsset, legBAsset := s.RequiredLegs(issued)
	now := time.Now()
	deadline := now.Add(quoteValidity).Unix()

	quote := &DepositQuote{
		Issued: issued.String(),
		Requirements: []LegRequirement{
			{Asset: legAAsset.Hex(), Required: legA.String()},
			{Asset: legBAsset.Hex(), Required: legB.String()},
		},
		ValidUntil: now.Add(quoteValidity).UTC().Format(time.RFC3339),
	}

	for _, target := range []struct {
		asset    common.Address
		required *big.Int
	}{
		{legAAsset, legA},
		{legBAsset, legB},
	} {
		if target.asset == source {
			quote.Legs = append(quote.Legs, LegSuggestion{
				FromAsset:  source.Hex(),
				ToAsset:    target.asset.Hex(),
				FromAmount: target.required.String(),
				Deadline:   deadline,
			})
			continue
		}
		leg, err := s.suggestLeg(ctx, source, target.asset, target.required, deadline)
		if err != nil {
			return nil, err
		}
		quote.Legs = append(quote.Legs, *leg)
	}
	return quote, nil
}

// WithdrawQuote is the answer for one single-asset withdrawal.
type WithdrawQuote struct {
	Amount     string           `json:"amount"`
	Released   []LegRequirement `json:"released"`
	Legs       []LegSuggestion  `json:"legs"`
	ValidUntil string           `json:"valid_until"`
}

// QuoteWithdraw suggests how to route the collateral released by burning
// `amount` issued units into `target`.
func (s *QuoteService) QuoteWithdraw(ctx context.Context, target common.Address, amount *big.Int) (*WithdrawQuote, error) {
	if s.client == nil {
		return nil, fmt.Errorf("quote: aggregator not configured")
	}

	var legA, legB *big.Int
	var legAAsset, legBAsset common.Address
	s.engine.View(func() {
		legAAsset = s.engine.Vault.LegA()
		legBAsset = s.engine.Vault.LegB()
		legA = s.engine.Vault.LegAForIssued(amount)
		legB = s.engine.Vault.LegBForLegA(legA)
	})

	now := time.Now()
	deadline := now.Add(quoteValidity).Unix()
	quote := &WithdrawQuote{
		Amount: amount.String(),
		Released: []LegRequirement{
			{Asset: legAAsset.Hex(), Required: legA.String()},
			{Asset: legBAsset.Hex(), Required: legB.String()},
		},
		ValidUntil: now.Add(quoteValidity).UTC().Format(time.RFC3339),
	}

	for _, out := range []struct {
		asset    common.Address
		released *big.Int
	}{
		{legAAsset, legA},
		{legBAsset, legB},
	} {
		if out.asset == target || out.released.Sign() == 0 {
			quote.Legs = append(quote.Legs, LegSuggestion{
				FromAsset:  out.asset.Hex(),
				ToAsset:    target.Hex(),
				FromAmount: out.released.String(),
				Deadline:   deadline,
			})
			continue
		}
		resp, err := s.client.GetQuote(ctx, &clients.RouteQuoteRequest{
			FromToken:  out.asset.Hex(),
			ToToken:    target.Hex(),
			FromAmount: out.released.String(),
		})
		if err != nil {
			return nil, fmt.Errorf("quote: %s -> %s: %w", out.asset.Hex(), target.Hex(), err)
		}
		quote.Legs = append(quote.Legs, LegSuggestion{
			FromAsset:     out.asset.Hex(),
			ToAsset:       target.Hex(),
			ApproveTarget: resp.Estimate.ApprovalAddress,
			SwapTarget:    resp.Estimate.SwapTarget,
			FromAmount:    out.released.String(),
			MinReturn:     resp.Estimate.ToAmountMin,
			CallData:      resp.Estimate.CallData,
			Deadline:      deadline,
			Tool:          resp.Tool,
		})
	}
	return quote, nil
}

// suggestLeg sizes and quotes one source -> target swap that must deliver at
// least `required` of target. The first call probes the rate; the second
// fetches calldata for the sized amount.
func (s *QuoteService) suggestLeg(ctx context.Context, source, target common.Address, required *big.Int, deadline int64) (*LegSuggestion, error) {
	probe, err := s.client.GetQuote(ctx, &clients.RouteQuoteRequest{
		FromToken:  source.Hex(),
		ToToken:    target.Hex(),
		FromAmount: required.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("quote: probe %s -> %s: %w", source.Hex(), target.Hex(), err)
	}

	probeOut, ok := new(big.Int).SetString(probe.Estimate.ToAmount, 10)
	if !ok || probeOut.Sign() <= 0 {
		return nil, fmt.Errorf("quote: aggregator returned unusable output %q", probe.Estimate.ToAmount)
	}

	// fromNeeded = required * required / probeOut: the probe's implied rate
	// applied to the requirement, then padded 1% for rate drift between the
	// probe and execution.
	fromNeeded := new(big.Int).Mul(required, required)
	fromNeeded.Div(fromNeeded, probeOut)
	fromNeeded.Mul(fromNeeded, big.NewInt(101))
	fromNeeded.Div(fromNeeded, big.NewInt(100))

	sized, err := s.client.GetQuote(ctx, &clients.RouteQuoteRequest{
		FromToken:  source.Hex(),
		ToToken:    target.Hex(),
		FromAmount: fromNeeded.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("quote: size %s -> %s: %w", source.Hex(), target.Hex(), err)
	}

	sizedOut, ok := new(big.Int).SetString(sized.Estimate.ToAmountMin, 10)
	if !ok {
		sizedOut = new(big.Int)
	}
	if sizedOut.Cmp(required) < 0 {
		logrus.WithFields(logrus.Fields{
			"required": required.String(),
			"min_out":  sized.Estimate.ToAmountMin,
		}).Warn("sized quote below requirement after padding")
	}

	return &LegSuggestion{
		FromAsset:     source.Hex(),
		ToAsset:       target.Hex(),
		ApproveTarget: sized.Estimate.ApprovalAddress,
		SwapTarget:    sized.Estimate.SwapTarget,
		FromAmount:    fromNeeded.String(),
		MinReturn:     required.String(),
		CallData:      sized.Estimate.CallData,
		Deadline:      deadline,
		Tool:          sized.Tool,
	}, nil
}

// BuildSwapLegs converts suggestions into executable gateway legs.
func BuildSwapLegs(suggestions []LegSuggestion) ([]gateway.SwapLeg, error) {
	legs := make([]gateway.SwapLeg, 0, len(suggestions))
	for _, s := range suggestions {
		fromAmount, ok := new(big.Int).SetString(s.FromAmount, 10)
		if !ok {
			return nil, fmt.Errorf("quote: bad from_amount %q", s.FromAmount)
		}
		leg := gateway.SwapLeg{
			FromAsset:     common.HexToAddress(s.FromAsset),
			ToAsset:       common.HexToAddress(s.ToAsset),
			ApproveTarget: common.HexToAddress(s.ApproveTarget),
			SwapTarget:    common.HexToAddress(s.SwapTarget),
			FromAmount:    fromAmount,
			CallData:      common.FromHex(s.CallData),
			Deadline:      s.Deadline,
		}
		leg.MinReturn = big.NewInt(0)
		if s.MinReturn != "" {
			minReturn, ok := new(big.Int).SetString(s.MinReturn, 10)
			if !ok {
				return nil, fmt.Errorf("quote: bad min_return %q", s.MinReturn)
			}
			leg.MinReturn = minReturn
		}
		legs = append(legs, leg)
	}
	return legs, nil
}
