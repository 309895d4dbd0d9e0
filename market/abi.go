// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package market

import (
	"math/big"

	"github.com/luxfi/geth/accounts/abi"
	"github.com/luxfi/geth/common"
)

// Method selectors, computed the same way as the original contract's
// 4-byte dispatch table (first 4 bytes of the method signature's hash). Kept
// as literal constants rather than hashed at init time since this contract's
// calldata layout, like its storage layout, must stay wire-compatible with
// callers that already target these values.
const (
	selectorInitialize         uint32 = 0x8129fc1c
	selectorCreateMarket       uint32 = 0x44b85a62
	selectorTradeDistribution  uint32 = 0x5ea5ecce
	selectorAddLiquidity       uint32 = 0x72261333
	selectorRemoveLiquidity    uint32 = 0x88b22637
	selectorGetMarketState     uint32 = 0x201d2f2b
	selectorGetConsensus       uint32 = 0xb9f2f5bb
	selectorGetMetadata        uint32 = 0x998e84a3
	selectorGetMarketCount     uint32 = 0xfd69f3c2
	selectorClosePosition      uint32 = 0x384c07e6
	selectorGetPosition        uint32 = 0x0f85fc5a
	selectorGetTraderPositions uint32 = 0x5fbbb2ff
	selectorResolveMarket      uint32 = 0x6d2283a4
	selectorClaimWinnings      uint32 = 0x08f7ed50
	selectorCalculateTrade     uint32 = 0x6cfa491b
	selectorGetLPBalance       uint32 = 0x0e3e56f8
	selectorGetAMMHoldings     uint32 = 0x8251a282
	selectorEvaluateAt         uint32 = 0x3b51076f
	selectorGetCDF             uint32 = 0xd8ffb35a
	selectorGetExpectedValue   uint32 = 0x92acfdf9
	selectorGetBounds          uint32 = 0x3524ad0d
	selectorGetMarketInfo      uint32 = 0x3cc4fc4a
	selectorGetPositionValue   uint32 = 0xe6951661
	selectorGetTVL             uint32 = 0xee4cc84c
)

// revertSelector prefixes every revert payload, matching Solidity's
// Error(string) selector that the original contract hand-encodes.
var revertSelector = [4]byte{0x08, 0xc3, 0x79, 0xa0}

var (
	typeUint64   abi.Type
	typeString   abi.Type
	typeAddress  abi.Type
	typeInt256   abi.Type
	typeBool     abi.Type
	typeUint64Sl abi.Type
)

func init() {
	var err error
	if typeUint64, err = abi.NewType("uint64", "", nil); err != nil {
		panic(err)
	}
	if typeString, err = abi.NewType("string", "", nil); err != nil {
		panic(err)
	}
	if typeAddress, err = abi.NewType("address", "", nil); err != nil {
		panic(err)
	}
	if typeInt256, err = abi.NewType("int256", "", nil); err != nil {
		panic(err)
	}
	if typeBool, err = abi.NewType("bool", "", nil); err != nil {
		panic(err)
	}
	if typeUint64Sl, err = abi.NewType("uint64[]", "", nil); err != nil {
		panic(err)
	}
}

func args(types ...abi.Type) abi.Arguments {
	a := make(abi.Arguments, len(types))
	for i, t := range types {
		a[i] = abi.Argument{Type: t}
	}
	return a
}

// encodeRevert packs a revert reason the way the original contract's
// encode_revert does: the Error(string) selector followed by the ABI
// encoding of the single string argument.
func encodeRevert(reason string) []byte {
	packed, err := args(typeString).Pack(reason)
	if err != nil {
		packed = nil
	}
	out := make([]byte, 0, 4+len(packed))
	out = append(out, revertSelector[:]...)
	return append(out, packed...)
}

// isRevert reports whether ret carries the Error(string) revert prefix.
func isRevert(ret []byte) bool {
	return len(ret) >= 4 &&
		ret[0] == revertSelector[0] && ret[1] == revertSelector[1] &&
		ret[2] == revertSelector[2] && ret[3] == revertSelector[3]
}

func unpackCreateMarket(data []byte) (CreateMarketParams, error) {
	vals, err := args(typeString, typeString, typeString, typeUint64, typeUint64, typeUint64, typeUint64).Unpack(data)
	if err != nil {
		return CreateMarketParams{}, ErrInvalidParameters
	}
	return CreateMarketParams{
		Title:              vals[0].(string),
		Description:        vals[1].(string),
		ResolutionCriteria: vals[2].(string),
		CloseTime:          vals[3].(uint64),
		KNorm:              vals[4].(uint64),
		InitialMean:        vals[5].(uint64),
		InitialVariance:    vals[6].(uint64),
	}, nil
}

func unpackUint64(data []byte) (uint64, error) {
	vals, err := args(typeUint64).Unpack(data)
	if err != nil {
		return 0, ErrInvalidParameters
	}
	return vals[0].(uint64), nil
}

func unpackUint64x2(data []byte) (uint64, uint64, error) {
	vals, err := args(typeUint64, typeUint64).Unpack(data)
	if err != nil {
		return 0, 0, ErrInvalidParameters
	}
	return vals[0].(uint64), vals[1].(uint64), nil
}

func unpackUint64x3(data []byte) (uint64, uint64, uint64, error) {
	vals, err := args(typeUint64, typeUint64, typeUint64).Unpack(data)
	if err != nil {
		return 0, 0, 0, ErrInvalidParameters
	}
	return vals[0].(uint64), vals[1].(uint64), vals[2].(uint64), nil
}

func unpackUint64x4(data []byte) ([4]uint64, error) {
	vals, err := args(typeUint64, typeUint64, typeUint64, typeUint64).Unpack(data)
	if err != nil {
		return [4]uint64{}, ErrInvalidParameters
	}
	var out [4]uint64
	for i := range out {
		out[i] = vals[i].(uint64)
	}
	return out, nil
}

func unpackUint64x5(data []byte) ([5]uint64, error) {
	vals, err := args(typeUint64, typeUint64, typeUint64, typeUint64, typeUint64).Unpack(data)
	if err != nil {
		return [5]uint64{}, ErrInvalidParameters
	}
	var out [5]uint64
	for i := range out {
		out[i] = vals[i].(uint64)
	}
	return out, nil
}

func unpackAddress(data []byte) (common.Address, error) {
	vals, err := args(typeAddress).Unpack(data)
	if err != nil {
		return common.Address{}, ErrInvalidParameters
	}
	return vals[0].(common.Address), nil
}

func unpackUint64Address(data []byte) (uint64, common.Address, error) {
	vals, err := args(typeUint64, typeAddress).Unpack(data)
	if err != nil {
		return 0, common.Address{}, ErrInvalidParameters
	}
	return vals[0].(uint64), vals[1].(common.Address), nil
}

func packBool(v bool) []byte {
	packed, _ := args(typeBool).Pack(v)
	return packed
}

func packUint64(v uint64) []byte {
	packed, _ := args(typeUint64).Pack(v)
	return packed
}

func packUint64x2(a, b uint64) []byte {
	packed, _ := args(typeUint64, typeUint64).Pack(a, b)
	return packed
}

func packUint64x3(a, b, c uint64) []byte {
	packed, _ := args(typeUint64, typeUint64, typeUint64).Pack(a, b, c)
	return packed
}

func packStringx3(a, b, c string) []byte {
	packed, _ := args(typeString, typeString, typeString).Pack(a, b, c)
	return packed
}

func packUint64Slice(vs []uint64) []byte {
	packed, _ := args(typeUint64Sl).Pack(vs)
	return packed
}

func packUint64Int256(v uint64, pnl int64) []byte {
	packed, _ := args(typeUint64, typeInt256).Pack(v, big.NewInt(pnl))
	return packed
}

func packMarketState(s MarketState) []byte {
	packed, _ := args(typeUint64, typeUint64, typeUint64, typeUint64, typeUint64, typeUint64, typeUint64, typeUint64, typeUint64).
		Pack(s.CurrentMean, s.CurrentVariance, s.KNorm, s.BBacking, s.TotalLPShares, s.FMax, uint64(s.Status), s.AccumulatedFees, s.Lambda)
	return packed
}

func packMarketInfo(i MarketInfo) []byte {
	packed, _ := args(
		typeAddress, typeUint64, typeUint64, typeUint64, typeUint64, typeUint64, typeUint64, typeUint64,
		typeUint64, typeUint64, typeUint64, typeUint64, typeUint64, typeUint64, typeUint64, typeUint64, typeUint64, typeUint64,
	).Pack(
		i.Creator, i.CreationTime, i.CloseTime, i.KNorm, i.BBacking, i.CurrentMean, i.CurrentVariance, i.Lambda,
		i.TotalLPShares, i.TotalBacking, i.AccumulatedFees, i.FMax, i.MinVariance, i.TotalVolume, uint64(i.Status), i.ExpectedValue, i.LowerBound, i.UpperBound,
	)
	return packed
}

func packPosition(p *Position) []byte {
	isOpen := uint64(0)
	if p.IsOpen {
		isOpen = 1
	}
	claimed := uint64(0)
	if p.Claimed {
		claimed = 1
	}
	packed, _ := args(
		typeUint64, typeAddress, typeUint64, typeUint64, typeUint64, typeUint64, typeUint64, typeUint64, typeUint64,
		typeUint64, typeUint64, typeUint64, typeUint64, typeUint64, typeUint64, typeInt256, typeUint64,
	).Pack(
		p.PositionID, p.Trader, p.MarketID, p.FromMean, p.FromVariance, p.ToMean, p.ToVariance, p.Size,
		p.CollateralLocked, p.CostBasis, p.OpenedAt, isOpen, p.ClosedAt, p.ExitValue, p.FeesPaid, big.NewInt(p.RealizedPnL), claimed,
	)
	return packed
}

// callValueToWei truncates the 256-bit call value to its low 8 bytes, the
// way the original contract's api::value_transferred followed by a
// from_le_bytes of the first 8 bytes does.
func callValueToWei(v *big.Int) uint64 {
	if v == nil {
		return 0
	}
	return v.Uint64()
}
