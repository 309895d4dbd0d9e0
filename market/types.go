// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package market

import (
	"errors"

	"github.com/luxfi/geth/common"
)

// Market status values, matching the original contract's MARKET_STATUS_*
// constants.
const (
	StatusOpen     uint8 = 0
	StatusClosed   uint8 = 1
	StatusResolved uint8 = 2
)

// Market is a single Gaussian distribution market: its creator, lifecycle
// timestamps, pricing parameters, and accounting totals. current_mean and
// current_variance describe the market's live consensus distribution; after
// resolution, resolution_mean/resolution_variance hold the settled outcome.
type Market struct {
	Creator             common.Address
	CreationTime        uint64
	CloseTime           uint64
	KNorm               uint64
	BBacking            uint64
	CurrentMean         uint64
	CurrentVariance     uint64
	TotalLPShares       uint64
	TotalBacking        uint64
	AccumulatedFees     uint64
	NextPositionID      uint64
	TotalVolume         uint64
	Status              uint8
	ResolutionMean      uint64
	ResolutionVariance  uint64
}

// Position is a single trader's stake in a directional move of a market's
// distribution, from (FromMean, FromVariance) to (ToMean, ToVariance), sized
// and collateralized at open time.
type Position struct {
	PositionID       uint64
	Trader           common.Address
	MarketID         uint64
	FromMean         uint64
	FromVariance     uint64
	ToMean           uint64
	ToVariance       uint64
	Size             uint64
	CollateralLocked uint64
	CostBasis        uint64
	IsOpen           bool
	OpenedAt         uint64
	ClosedAt         uint64
	ExitValue        uint64
	FeesPaid         uint64
	RealizedPnL      int64
	Claimed          bool
}

// Sentinel errors returned by the controller, switched on to decide revert
// vs. swallow the way dex/types.go's Err* block does for the pool manager.
var (
	ErrMarketNotFound        = errors.New("market not found")
	ErrPositionNotFound      = errors.New("position not found")
	ErrMarketNotOpen         = errors.New("market not open")
	ErrMarketNotClosed       = errors.New("market not closed")
	ErrMarketAlreadyResolved = errors.New("market already resolved")
	ErrMarketStillOpen       = errors.New("market still open")
	ErrPositionAlreadyClosed = errors.New("position already closed")
	ErrPositionNotClosed     = errors.New("position not closed")
	ErrAlreadyClaimed        = errors.New("winnings already claimed")
	ErrNotOwner              = errors.New("caller is not the owner")
	ErrNotTrader             = errors.New("caller is not the position's trader")
	ErrInvalidParameters     = errors.New("invalid parameters")
	ErrInsufficientBacking   = errors.New("insufficient backing")
	ErrInsufficientLPShares  = errors.New("insufficient lp shares")
	ErrZeroSize              = errors.New("trade size must be positive")
	ErrAlreadyInitialized    = errors.New("already initialized")
	ErrNotInitialized        = errors.New("not initialized")

	ErrMustProvideBacking     = errors.New("must provide initial backing")
	ErrBackingTooSmall        = errors.New("backing too small")
	ErrVarianceTooLow         = errors.New("variance too low for backing constraint")
	ErrBackingConstraint      = errors.New("backing constraint violated")
	ErrCostExceedsMax         = errors.New("cost exceeds maximum")
	ErrInsufficientPayment    = errors.New("insufficient payment")
	ErrMustProvideLiquidity   = errors.New("must provide liquidity")
	ErrCannotBurnZeroShares   = errors.New("cannot burn 0 shares")
	ErrMinLiquidityViolation  = errors.New("would violate minimum liquidity")
	ErrVarianceConstraint     = errors.New("would violate variance constraint")
	ErrResolutionVarianceLow  = errors.New("resolution variance too small")
	ErrResolutionVarianceLow2 = errors.New("resolution variance too low")
	ErrTransferFailed         = errors.New("transfer failed")
)
