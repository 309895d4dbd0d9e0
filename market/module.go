// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package market implements a Gaussian-distribution prediction market AMM
// precompile: traders pay to move a market's belief distribution toward
// their own forecast, LPs back that distribution with collateral, and
// positions pay out against the distribution's state at close or exit.
package market

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/precompile/contract"
	"github.com/luxfi/precompile/modules"
	"github.com/luxfi/precompile/precompileconfig"
	"github.com/luxfi/precompile/registry"
)

var _ contract.Configurator = (*configurator)(nil)
var _ contract.StatefulPrecompiledContract = (*Contract)(nil)

// ConfigKey is the key used in json config files to specify this precompile's
// config, matching dex/ai's ConfigKey convention.
const ConfigKey = "distributionMarketConfig"

// ContractAddress is the address this precompile lives at: LP-9090
// (LXDistMarket) in the registry's LP-9xxx DEX/Markets page, beside
// LXLiquid/Liquidator/LiquidFX at 9060-9080.
var ContractAddress = common.HexToAddress(registry.LXDistMarket)

// Precompile is the singleton instance.
var Precompile = &Contract{}

// Module is this precompile's registration entry.
var Module = modules.Module{
	ConfigKey:    ConfigKey,
	Address:      ContractAddress,
	Contract:     Precompile,
	Configurator: &configurator{},
}

func init() {
	if err := modules.RegisterModule(Module); err != nil {
		panic(err)
	}
}

// Gas costs per operation, tiered the way blake3/dex price their
// precompiles: a base cost per write, a flat lookup cost per read.
const (
	GasInitialize        = 50_000
	GasCreateMarket      = 150_000
	GasTradeDistribution = 120_000
	GasClosePosition     = 100_000
	GasAddLiquidity      = 80_000
	GasRemoveLiquidity   = 80_000
	GasResolveMarket     = 50_000
	GasClaimWinnings     = 80_000
	GasRead              = 5_000
)

type configurator struct{}

func (*configurator) MakeConfig() precompileconfig.Config {
	return new(Config)
}

func (*configurator) Configure(
	chainConfig precompileconfig.ChainConfig,
	cfg precompileconfig.Config,
	state contract.StateDB,
	blockContext contract.ConfigurationBlockContext,
) error {
	_, ok := cfg.(*Config)
	if !ok {
		return fmt.Errorf("expected config type %T, got %T: %v", &Config{}, cfg, cfg)
	}
	return nil
}

// Config implements precompileconfig.Config.
type Config struct {
	Upgrade precompileconfig.Upgrade `json:"upgrade,omitempty"`
}

func (c *Config) Key() string { return ConfigKey }

func (c *Config) Timestamp() *uint64 { return c.Upgrade.Timestamp() }

func (c *Config) IsDisabled() bool { return c.Upgrade.Disable }

func (c *Config) Equal(cfg precompileconfig.Config) bool {
	other, ok := cfg.(*Config)
	if !ok {
		return false
	}
	return c.Upgrade.Equal(&other.Upgrade)
}

func (c *Config) Verify(chainConfig precompileconfig.ChainConfig) error { return nil }

// Contract is the distribution market precompile.
type Contract struct{}

func (c *Contract) Address() common.Address { return ContractAddress }

// RequiredGas returns the gas required for the precompile input, keyed off
// the 4-byte method selector exactly like dex.DEXContract.RequiredGas.
func (c *Contract) RequiredGas(input []byte) uint64 {
	if len(input) < 4 {
		return GasRead
	}
	switch binary.BigEndian.Uint32(input[:4]) {
	case selectorInitialize:
		return GasInitialize
	case selectorCreateMarket:
		return GasCreateMarket
	case selectorTradeDistribution:
		return GasTradeDistribution
	case selectorClosePosition:
		return GasClosePosition
	case selectorAddLiquidity:
		return GasAddLiquidity
	case selectorRemoveLiquidity:
		return GasRemoveLiquidity
	case selectorResolveMarket:
		return GasResolveMarket
	case selectorClaimWinnings:
		return GasClaimWinnings
	default:
		return GasRead
	}
}

// stateAdapter adapts a contract.StateDB's raw storage calls to the
// market.StateDB interface this package's Store expects.
type stateAdapter struct {
	db contract.StateDB
}

func (a *stateAdapter) GetStorage(key []byte) ([]byte, bool) { return a.db.GetStorage(key) }
func (a *stateAdapter) SetStorage(key []byte, value []byte)  { a.db.SetStorage(key, value) }

// Run dispatches a call by its 4-byte selector, the way dex.DEXContract.Run
// and blake3Precompile.Run both do, decoding calldata with this package's ABI
// helpers and translating Controller results and errors into ABI return data
// or an Error(string) revert payload.
func (c *Contract) Run(
	accessibleState contract.AccessibleState,
	caller common.Address,
	addr common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) (ret []byte, remainingGas uint64, err error) {
	requiredGas := c.RequiredGas(input)
	if suppliedGas < requiredGas {
		return nil, 0, contract.ErrOutOfGas
	}
	remainingGas = suppliedGas - requiredGas

	if len(input) == 0 {
		return nil, remainingGas, nil
	}
	if len(input) < 4 {
		return encodeRevert("Invalid input"), remainingGas, nil
	}

	selector := binary.BigEndian.Uint32(input[:4])
	data := input[4:]

	stateDB := accessibleState.GetStateDB()
	ctl := NewController(&stateAdapter{db: stateDB})
	blockCtx := accessibleState.GetBlockContext()

	writeSelectors := map[uint32]bool{
		selectorInitialize:        true,
		selectorCreateMarket:      true,
		selectorTradeDistribution: true,
		selectorClosePosition:     true,
		selectorAddLiquidity:      true,
		selectorRemoveLiquidity:   true,
		selectorResolveMarket:     true,
		selectorClaimWinnings:     true,
	}
	if readOnly && writeSelectors[selector] {
		return encodeRevert("cannot write in read-only mode"), remainingGas, nil
	}

	switch selector {
	case selectorInitialize:
		if err := ctl.Initialize(caller); err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		return packBool(true), remainingGas, nil

	case selectorCreateMarket:
		params, err := unpackCreateMarket(data)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		params.Now = blockCtx.Timestamp()
		callValue := callValueToWei(accessibleState.GetCallValue().ToBig())
		params.BackingWei = callValue
		marketID, err := ctl.CreateMarket(caller, params)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		logMarketCreated(marketID, caller, params.BackingWei)
		return packUint64(marketID), remainingGas, nil

	case selectorCalculateTrade:
		v, err := unpackUint64x4(data)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		quote, err := ctl.CalculateTrade(v[0], v[1], v[2], v[3])
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		return packUint64x3(quote.TotalCost, quote.Fee, quote.CollateralRequirement), remainingGas, nil

	case selectorTradeDistribution:
		v, err := unpackUint64x5(data)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		callValue := callValueToWei(accessibleState.GetCallValue().ToBig())
		result, err := ctl.TradeDistribution(caller, v[0], v[1], v[2], v[3], v[4], callValue, blockCtx.Timestamp(), blockCtx.Number())
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		if result.RefundWei > 0 {
			refund, _ := uint256.FromBig(weiToBig(result.RefundWei))
			stateDB.SubBalance(addr, refund)
			stateDB.AddBalance(caller, refund)
		}
		logTradeOpened(result.PositionID, v[0], caller, 0)
		return packUint64(result.PositionID), remainingGas, nil

	case selectorClosePosition:
		positionID, err := unpackUint64(data)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		result, err := ctl.ClosePosition(caller, positionID, blockCtx.Number())
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		if result.PayoutWei > 0 {
			payout, _ := uint256.FromBig(weiToBig(result.PayoutWei))
			stateDB.SubBalance(addr, payout)
			stateDB.AddBalance(caller, payout)
		}
		logPositionClosed(positionID, result.RealizedPnL)
		return packUint64Int256(result.ExitValue, result.RealizedPnL), remainingGas, nil

	case selectorAddLiquidity:
		marketID, err := unpackUint64(data)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		callValue := callValueToWei(accessibleState.GetCallValue().ToBig())
		shares, err := ctl.AddLiquidity(caller, marketID, callValue)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		return packUint64(shares), remainingGas, nil

	case selectorRemoveLiquidity:
		marketID, shares, err := unpackUint64x2(data)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		result, err := ctl.RemoveLiquidity(caller, marketID, shares)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		if result.PayoutWei > 0 {
			payout, _ := uint256.FromBig(weiToBig(result.PayoutWei))
			stateDB.SubBalance(addr, payout)
			stateDB.AddBalance(caller, payout)
		}
		return packUint64(result.BackingReturned), remainingGas, nil

	case selectorResolveMarket:
		v, err := unpackUint64x3(data)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		if err := ctl.ResolveMarket(caller, v[0], v[1], v[2], blockCtx.Timestamp()); err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		logMarketResolved(v[0], v[1], v[2])
		return packBool(true), remainingGas, nil

	case selectorClaimWinnings:
		positionID, err := unpackUint64(data)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		result, err := ctl.ClaimWinnings(caller, positionID)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		if result.PayoutWei > 0 {
			payout, _ := uint256.FromBig(weiToBig(result.PayoutWei))
			stateDB.SubBalance(addr, payout)
			stateDB.AddBalance(caller, payout)
		}
		return packUint64(result.FinalValue), remainingGas, nil

	case selectorGetMarketState:
		marketID, err := unpackUint64(data)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		state, err := ctl.GetMarketState(marketID)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		return packMarketState(state), remainingGas, nil

	case selectorGetMarketInfo:
		marketID, err := unpackUint64(data)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		info, err := ctl.GetMarketInfo(marketID)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		return packMarketInfo(info), remainingGas, nil

	case selectorGetPosition:
		positionID, err := unpackUint64(data)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		p, err := ctl.GetPosition(positionID)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		return packPosition(p), remainingGas, nil

	case selectorGetPositionValue:
		positionID, err := unpackUint64(data)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		v, err := ctl.GetPositionValue(positionID)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		return packUint64(v), remainingGas, nil

	case selectorGetTVL:
		marketID, err := unpackUint64(data)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		v, err := ctl.GetTVL(marketID)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		return packUint64(v), remainingGas, nil

	case selectorGetConsensus:
		marketID, x, err := unpackUint64x2(data)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		f, holdings, err := ctl.GetConsensus(marketID, x)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		return packUint64x2(f, holdings), remainingGas, nil

	case selectorGetMetadata:
		marketID, err := unpackUint64(data)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		md, err := ctl.GetMetadata(marketID)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		return packStringx3(md.Title, md.Description, md.ResolutionCriteria), remainingGas, nil

	case selectorGetMarketCount:
		return packUint64(ctl.GetMarketCount()), remainingGas, nil

	case selectorGetTraderPositions:
		trader, err := unpackAddress(data)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		return packUint64Slice(ctl.GetTraderPositions(trader)), remainingGas, nil

	case selectorGetLPBalance:
		marketID, holder, err := unpackUint64Address(data)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		return packUint64(ctl.GetLPBalance(marketID, holder)), remainingGas, nil

	case selectorGetAMMHoldings:
		marketID, x, err := unpackUint64x2(data)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		v, err := ctl.GetAMMHoldings(marketID, x)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		return packUint64(v), remainingGas, nil

	case selectorEvaluateAt:
		marketID, x, err := unpackUint64x2(data)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		pdf, capped, err := ctl.EvaluateAt(marketID, x)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		return packUint64x2(pdf, capped), remainingGas, nil

	case selectorGetCDF:
		marketID, x, err := unpackUint64x2(data)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		v, err := ctl.GetCDF(marketID, x)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		return packUint64(v), remainingGas, nil

	case selectorGetExpectedValue:
		marketID, err := unpackUint64(data)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		v, err := ctl.GetExpectedValue(marketID)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		return packUint64(v), remainingGas, nil

	case selectorGetBounds:
		marketID, err := unpackUint64(data)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		lower, upper, err := ctl.GetBounds(marketID)
		if err != nil {
			return encodeRevert(err.Error()), remainingGas, nil
		}
		return packUint64x2(lower, upper), remainingGas, nil

	default:
		// Unknown selectors return empty data with success, matching the
		// original contract's `_ => Vec::new()` fallthrough rather than
		// aborting the call frame.
		return nil, remainingGas, nil
	}
}

func weiToBig(wei uint64) *big.Int {
	return new(big.Int).SetUint64(wei)
}
