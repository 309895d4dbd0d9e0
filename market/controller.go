// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package market

import "github.com/luxfi/geth/common"

// Controller implements every lifecycle and query operation a distribution
// market precompile exposes, operating on a Store for persistence. It knows
// nothing about ABI encoding or gas accounting: module.go's dispatch layer
// translates calldata into Controller calls and their results back into
// return data, the way dex's DEXContract.Run sits above PoolManager.
type Controller struct {
	store *Store
}

// NewController wraps a StateDB for use by a single precompile invocation.
func NewController(db StateDB) *Controller {
	return &Controller{store: newStore(db)}
}

// Initialize sets the deploying caller as owner and zeroes the market and
// position counters. It may run exactly once.
func (c *Controller) Initialize(caller common.Address) error {
	if c.store.initialized() {
		return ErrAlreadyInitialized
	}
	c.store.setOwner(caller)
	c.store.setInitialized()
	c.store.setMarketCount(0)
	c.store.setPositionCount(0)
	return nil
}

// CreateMarketParams groups a new market's initial parameters.
type CreateMarketParams struct {
	Title               string
	Description         string
	ResolutionCriteria  string
	CloseTime           uint64
	KNorm               uint64
	InitialMean         uint64
	InitialVariance     uint64
	BackingWei          uint64
	Now                 uint64
}

// CreateMarket opens a new Gaussian distribution market backed by the native
// currency attached to the call, minting the creator an initial LP position
// equal to that backing.
func (c *Controller) CreateMarket(caller common.Address, p CreateMarketParams) (uint64, error) {
	if p.InitialVariance < minVariance {
		return 0, ErrInvalidParameters
	}
	if p.BackingWei == 0 {
		return 0, ErrMustProvideBacking
	}
	backing, err := weiToFixed(p.BackingWei)
	if err != nil {
		return 0, err
	}
	if backing == 0 {
		return 0, ErrBackingTooSmall
	}
	minVar, err := calculateMinVariance(backing)
	if err != nil {
		return 0, err
	}
	if p.InitialVariance < minVar {
		return 0, ErrVarianceTooLow
	}
	if _, err := calculateLambda(p.KNorm, p.InitialVariance); err != nil {
		return 0, err
	}
	fMax, err := calculateFMax(p.KNorm, p.InitialVariance)
	if err != nil {
		return 0, err
	}
	if fMax > backing {
		return 0, ErrBackingConstraint
	}

	marketID := c.store.marketCount()
	m := &Market{
		Creator:         caller,
		CreationTime:    p.Now,
		CloseTime:       p.CloseTime,
		KNorm:           p.KNorm,
		BBacking:        backing,
		CurrentMean:     p.InitialMean,
		CurrentVariance: p.InitialVariance,
		TotalLPShares:   backing,
		TotalBacking:    backing,
		Status:          StatusOpen,
	}
	c.store.saveMarket(marketID, m)
	c.store.saveMetadata(marketID, &Metadata{
		Title:              p.Title,
		Description:        p.Description,
		ResolutionCriteria: p.ResolutionCriteria,
	})
	c.store.setLPBalance(marketID, caller, backing)
	c.store.setMarketCount(marketID + 1)
	return marketID, nil
}

// CalculateTrade prices a hypothetical move of a market's distribution
// without mutating any state, mirroring calculate_trade's read-only role.
func (c *Controller) CalculateTrade(marketID, newMean, newVariance, size uint64) (tradeQuote, error) {
	m, ok := c.store.loadMarket(marketID)
	if !ok {
		return tradeQuote{}, ErrMarketNotFound
	}
	if m.Status != StatusOpen {
		return tradeQuote{}, ErrMarketNotOpen
	}
	if newVariance < minVariance {
		return tradeQuote{}, ErrInvalidParameters
	}
	minVar, err := calculateMinVariance(m.BBacking)
	if err != nil {
		return tradeQuote{}, err
	}
	if newVariance < minVar {
		return tradeQuote{}, ErrVarianceTooLow
	}
	fMax, err := calculateFMax(m.KNorm, newVariance)
	if err != nil {
		return tradeQuote{}, err
	}
	if fMax > m.BBacking {
		return tradeQuote{}, ErrBackingConstraint
	}
	return priceTrade(m.KNorm, m.CurrentMean, m.CurrentVariance, newMean, newVariance, size)
}

// TradeResult is the outcome of opening a directional position.
type TradeResult struct {
	PositionID uint64
	RefundWei  uint64
}

// TradeDistribution opens a new position moving a market's distribution from
// its current state to (newMean, newVariance), charging the trader cost+fee
// and recording on the position the collateral the worst-case move would
// require; that collateral is not escrowed from any balance. It auto-closes the
// market in place if called after CloseTime, the way the original contract's
// handle_trade_distribution lazily transitions status on the first trade
// attempt past close time rather than on a schedule.
func (c *Controller) TradeDistribution(caller common.Address, marketID, newMean, newVariance, size, maxCost, valueWei, now, blockNumber uint64) (TradeResult, error) {
	m, ok := c.store.loadMarket(marketID)
	if !ok {
		return TradeResult{}, ErrMarketNotFound
	}
	if m.Status != StatusOpen {
		return TradeResult{}, ErrMarketNotOpen
	}
	if now >= m.CloseTime {
		m.Status = StatusClosed
		c.store.saveMarket(marketID, m)
		return TradeResult{}, ErrMarketNotOpen
	}
	if newVariance < minVariance {
		return TradeResult{}, ErrInvalidParameters
	}
	minVar, err := calculateMinVariance(m.BBacking)
	if err != nil {
		return TradeResult{}, err
	}
	if newVariance < minVar {
		return TradeResult{}, ErrVarianceTooLow
	}
	entryMean, entryVariance := m.CurrentMean, m.CurrentVariance
	fMax, err := calculateFMax(m.KNorm, newVariance)
	if err != nil {
		return TradeResult{}, err
	}
	if fMax > m.BBacking {
		return TradeResult{}, ErrBackingConstraint
	}
	quote, err := priceTrade(m.KNorm, entryMean, entryVariance, newMean, newVariance, size)
	if err != nil {
		return TradeResult{}, err
	}
	if quote.TotalCost > maxCost {
		return TradeResult{}, ErrCostExceedsMax
	}
	valueFixed, err := weiToFixed(valueWei)
	if err != nil {
		return TradeResult{}, err
	}
	if valueFixed < quote.TotalCost {
		return TradeResult{}, ErrInsufficientPayment
	}

	positionID := c.store.positionCount()
	c.store.setPositionCount(positionID + 1)

	position := &Position{
		PositionID:       positionID,
		Trader:           caller,
		MarketID:         marketID,
		FromMean:         entryMean,
		FromVariance:     entryVariance,
		ToMean:           newMean,
		ToVariance:       newVariance,
		Size:             size,
		CollateralLocked: quote.CollateralRequirement,
		CostBasis:        quote.TotalCost,
		IsOpen:           true,
		OpenedAt:         blockNumber,
		FeesPaid:         quote.Fee,
	}
	c.store.savePosition(position)
	c.store.addTraderPosition(caller, positionID)

	m.CurrentMean = newMean
	m.CurrentVariance = newVariance
	m.NextPositionID++
	m.TotalVolume += quote.TotalCost
	m.AccumulatedFees += quote.Fee
	c.store.saveMarket(marketID, m)

	result := TradeResult{PositionID: positionID}
	if valueFixed > quote.TotalCost {
		excessWei, err := fixedToWei(valueFixed - quote.TotalCost)
		if err == nil {
			result.RefundWei = roundWeiForTransfer(excessWei)
		}
	}
	return result, nil
}

// ClosePositionResult is the outcome of voluntarily exiting a position before
// market resolution.
type ClosePositionResult struct {
	ExitValue   uint64
	RealizedPnL int64
	PayoutWei   uint64
}

// ClosePosition marks a position closed at its current mark-to-market value
// against the market's live distribution, recording realized PnL.
func (c *Controller) ClosePosition(caller common.Address, positionID, blockNumber uint64) (ClosePositionResult, error) {
	position, ok := c.store.loadPosition(positionID)
	if !ok {
		return ClosePositionResult{}, ErrPositionNotFound
	}
	if !position.IsOpen {
		return ClosePositionResult{}, ErrPositionAlreadyClosed
	}
	if caller != position.Trader {
		return ClosePositionResult{}, ErrNotTrader
	}
	m, ok := c.store.loadMarket(position.MarketID)
	if !ok {
		return ClosePositionResult{}, ErrMarketNotFound
	}
	positionValue, err := valuePosition(position, m.CurrentMean, m.CurrentVariance, m.KNorm)
	if err != nil {
		return ClosePositionResult{}, err
	}

	position.IsOpen = false
	position.ClosedAt = blockNumber
	position.ExitValue = positionValue
	if positionValue >= position.CostBasis {
		position.RealizedPnL = int64(positionValue - position.CostBasis)
	} else {
		loss := position.CostBasis - positionValue
		if loss > 1<<63-1 {
			return ClosePositionResult{}, ErrInvalidParameters
		}
		position.RealizedPnL = -int64(loss)
	}
	c.store.savePosition(position)

	result := ClosePositionResult{ExitValue: positionValue, RealizedPnL: position.RealizedPnL}
	if positionValue > 0 {
		if wei, err := fixedToWei(positionValue); err == nil {
			rounded := roundWeiForTransfer(wei)
			if rounded >= MinTransferUnit {
				result.PayoutWei = rounded
			}
		}
	}
	return result, nil
}

// AddLiquidity mints LP shares proportional to the value contributed, at the
// pool's current backing-to-shares ratio (or 1:1 for the first deposit).
func (c *Controller) AddLiquidity(caller common.Address, marketID, valueWei uint64) (uint64, error) {
	m, ok := c.store.loadMarket(marketID)
	if !ok {
		return 0, ErrMarketNotFound
	}
	if m.Status != StatusOpen {
		return 0, ErrMarketNotOpen
	}
	valueFixed, err := weiToFixed(valueWei)
	if err != nil {
		return 0, err
	}
	if valueFixed == 0 {
		return 0, ErrMustProvideLiquidity
	}

	var sharesToMint uint64
	if m.TotalBacking == 0 {
		sharesToMint = valueFixed
	} else {
		ratio, err := divFixed(valueFixed, m.TotalBacking)
		if err != nil {
			return 0, err
		}
		sharesToMint, err = mulFixed(ratio, m.TotalLPShares)
		if err != nil {
			return 0, err
		}
	}

	m.TotalBacking += valueFixed
	m.TotalLPShares += sharesToMint
	m.BBacking = m.TotalBacking
	minVar, err := calculateMinVariance(m.BBacking)
	if err != nil {
		return 0, err
	}
	if m.CurrentVariance < minVar {
		return 0, ErrVarianceConstraint
	}
	c.store.saveMarket(marketID, m)

	balance := c.store.lpBalance(marketID, caller)
	c.store.setLPBalance(marketID, caller, balance+sharesToMint)
	return sharesToMint, nil
}

// RemoveLiquidityResult is the outcome of burning LP shares for a
// proportional share of backing plus accrued fees.
type RemoveLiquidityResult struct {
	BackingReturned uint64
	PayoutWei       uint64
}

// RemoveLiquidity burns sharesToBurn LP shares, returning the caller's
// proportional share of total backing and accumulated fees.
func (c *Controller) RemoveLiquidity(caller common.Address, marketID, sharesToBurn uint64) (RemoveLiquidityResult, error) {
	m, ok := c.store.loadMarket(marketID)
	if !ok {
		return RemoveLiquidityResult{}, ErrMarketNotFound
	}
	balance := c.store.lpBalance(marketID, caller)
	if balance == 0 {
		return RemoveLiquidityResult{}, ErrInsufficientLPShares
	}
	if sharesToBurn == 0 {
		return RemoveLiquidityResult{}, ErrCannotBurnZeroShares
	}
	if balance < sharesToBurn {
		return RemoveLiquidityResult{}, ErrInsufficientLPShares
	}

	totalAssets := m.TotalBacking + m.AccumulatedFees
	ratio, err := divFixed(sharesToBurn, m.TotalLPShares)
	if err != nil {
		return RemoveLiquidityResult{}, err
	}
	backingToReturn, err := mulFixed(ratio, totalAssets)
	if err != nil {
		return RemoveLiquidityResult{}, err
	}
	backingPortion, err := mulFixed(ratio, m.TotalBacking)
	if err != nil {
		return RemoveLiquidityResult{}, err
	}
	feePortion := saturatingSub(backingToReturn, backingPortion)

	remainingBacking := saturatingSub(m.TotalBacking, backingPortion)
	remainingShares := saturatingSub(m.TotalLPShares, sharesToBurn)
	if remainingShares > 0 && remainingBacking < m.KNorm {
		return RemoveLiquidityResult{}, ErrMinLiquidityViolation
	}

	m.TotalBacking = remainingBacking
	m.TotalLPShares = remainingShares
	m.BBacking = m.TotalBacking
	m.AccumulatedFees = saturatingSub(m.AccumulatedFees, feePortion)
	if m.TotalBacking > 0 {
		minVar, err := calculateMinVariance(m.BBacking)
		if err != nil {
			return RemoveLiquidityResult{}, err
		}
		if m.CurrentVariance < minVar {
			return RemoveLiquidityResult{}, ErrVarianceConstraint
		}
	}
	c.store.saveMarket(marketID, m)
	c.store.setLPBalance(marketID, caller, balance-sharesToBurn)

	result := RemoveLiquidityResult{BackingReturned: backingToReturn}
	if backingToReturn > 0 {
		if wei, err := fixedToWei(backingToReturn); err == nil {
			rounded := roundWeiForTransfer(wei)
			if rounded > 0 {
				result.PayoutWei = rounded
			}
		}
	}
	return result, nil
}

// ResolveMarket settles a market to a final distribution once it has closed,
// gated to the deploying owner.
func (c *Controller) ResolveMarket(caller common.Address, marketID, finalMean, finalVariance, now uint64) error {
	m, ok := c.store.loadMarket(marketID)
	if !ok {
		return ErrMarketNotFound
	}
	owner, ok := c.store.owner()
	if !ok || caller != owner {
		return ErrNotOwner
	}
	if m.Status == StatusResolved {
		return ErrMarketAlreadyResolved
	}
	if m.Status == StatusOpen && now < m.CloseTime {
		return ErrMarketStillOpen
	}
	if finalVariance < minVariance {
		return ErrResolutionVarianceLow
	}
	minVar, err := calculateMinVariance(m.BBacking)
	if err != nil {
		return err
	}
	if finalVariance < minVar {
		return ErrResolutionVarianceLow2
	}
	m.Status = StatusResolved
	m.ResolutionMean = finalMean
	m.ResolutionVariance = finalVariance
	c.store.saveMarket(marketID, m)
	return nil
}

// ClaimWinningsResult is the outcome of settling a position against a
// resolved market.
type ClaimWinningsResult struct {
	FinalValue uint64
	PayoutWei  uint64
}

// ClaimWinnings pays out a position's final value once its market has
// resolved: still-open positions are marked-to-market against the
// resolution distribution, already-closed ones pay their recorded exit
// value.
func (c *Controller) ClaimWinnings(caller common.Address, positionID uint64) (ClaimWinningsResult, error) {
	position, ok := c.store.loadPosition(positionID)
	if !ok {
		return ClaimWinningsResult{}, ErrPositionNotFound
	}
	if caller != position.Trader {
		return ClaimWinningsResult{}, ErrNotTrader
	}
	if position.Claimed {
		return ClaimWinningsResult{}, ErrAlreadyClaimed
	}
	m, ok := c.store.loadMarket(position.MarketID)
	if !ok {
		return ClaimWinningsResult{}, ErrMarketNotFound
	}
	if m.Status != StatusResolved {
		return ClaimWinningsResult{}, ErrMarketNotClosed
	}

	var finalValue uint64
	if position.IsOpen {
		finalValue, _ = valuePosition(position, m.ResolutionMean, m.ResolutionVariance, m.KNorm)
	} else {
		finalValue = position.ExitValue
	}
	position.Claimed = true
	c.store.savePosition(position)

	result := ClaimWinningsResult{FinalValue: finalValue}
	if finalValue > 0 {
		if wei, err := fixedToWei(finalValue); err == nil {
			rounded := roundWeiForTransfer(wei)
			if rounded > 0 {
				result.PayoutWei = rounded
			}
		}
	}
	return result, nil
}

// MarketState is the summary returned by GetMarketState.
type MarketState struct {
	CurrentMean     uint64
	CurrentVariance uint64
	KNorm           uint64
	BBacking        uint64
	TotalLPShares   uint64
	FMax            uint64
	Status          uint8
	AccumulatedFees uint64
	Lambda          uint64
}

// GetMarketState returns a market's live pricing state.
func (c *Controller) GetMarketState(marketID uint64) (MarketState, error) {
	m, ok := c.store.loadMarket(marketID)
	if !ok {
		return MarketState{}, ErrMarketNotFound
	}
	lambda, _ := calculateLambda(m.KNorm, m.CurrentVariance)
	fMax, _ := calculateFMax(m.KNorm, m.CurrentVariance)
	return MarketState{
		CurrentMean:     m.CurrentMean,
		CurrentVariance: m.CurrentVariance,
		KNorm:           m.KNorm,
		BBacking:        m.BBacking,
		TotalLPShares:   m.TotalLPShares,
		FMax:            fMax,
		Status:          m.Status,
		AccumulatedFees: m.AccumulatedFees,
		Lambda:          lambda,
	}, nil
}

// MarketInfo is the full read-only summary returned by GetMarketInfo.
type MarketInfo struct {
	Creator         common.Address
	CreationTime    uint64
	CloseTime       uint64
	KNorm           uint64
	BBacking        uint64
	CurrentMean     uint64
	CurrentVariance uint64
	Lambda          uint64
	TotalLPShares   uint64
	TotalBacking    uint64
	AccumulatedFees uint64
	FMax            uint64
	MinVariance     uint64
	TotalVolume     uint64
	Status          uint8
	ExpectedValue   uint64
	LowerBound      uint64
	UpperBound      uint64
}

// GetMarketInfo returns a market's full public state.
func (c *Controller) GetMarketInfo(marketID uint64) (MarketInfo, error) {
	m, ok := c.store.loadMarket(marketID)
	if !ok {
		return MarketInfo{}, ErrMarketNotFound
	}
	lambda, _ := calculateLambda(m.KNorm, m.CurrentVariance)
	fMax, _ := calculateFMax(m.KNorm, m.CurrentVariance)
	minVar, _ := calculateMinVariance(m.BBacking)
	ev := expectedValue(m.CurrentMean, m.CurrentVariance)
	lower, upper := distributionBounds(m.CurrentMean, m.CurrentVariance)
	return MarketInfo{
		Creator:         m.Creator,
		CreationTime:    m.CreationTime,
		CloseTime:       m.CloseTime,
		KNorm:           m.KNorm,
		BBacking:        m.BBacking,
		CurrentMean:     m.CurrentMean,
		CurrentVariance: m.CurrentVariance,
		Lambda:          lambda,
		TotalLPShares:   m.TotalLPShares,
		TotalBacking:    m.TotalBacking,
		AccumulatedFees: m.AccumulatedFees,
		FMax:            fMax,
		MinVariance:     minVar,
		TotalVolume:     m.TotalVolume,
		Status:          m.Status,
		ExpectedValue:   ev,
		LowerBound:      lower,
		UpperBound:      upper,
	}, nil
}

// GetPosition returns a position's full record.
func (c *Controller) GetPosition(positionID uint64) (*Position, error) {
	p, ok := c.store.loadPosition(positionID)
	if !ok {
		return nil, ErrPositionNotFound
	}
	return p, nil
}

// GetPositionValue returns a position's current mark-to-market value: its
// recorded exit value if already closed, or a live valuation against the
// market's current distribution otherwise.
func (c *Controller) GetPositionValue(positionID uint64) (uint64, error) {
	position, ok := c.store.loadPosition(positionID)
	if !ok {
		return 0, ErrPositionNotFound
	}
	if !position.IsOpen {
		return position.ExitValue, nil
	}
	m, ok := c.store.loadMarket(position.MarketID)
	if !ok {
		return 0, ErrMarketNotFound
	}
	value, err := valuePosition(position, m.CurrentMean, m.CurrentVariance, m.KNorm)
	if err != nil {
		return 0, nil
	}
	return value, nil
}

// GetTVL returns a market's total value locked: backing plus accumulated
// fees.
func (c *Controller) GetTVL(marketID uint64) (uint64, error) {
	m, ok := c.store.loadMarket(marketID)
	if !ok {
		return 0, ErrMarketNotFound
	}
	return m.TotalBacking + m.AccumulatedFees, nil
}

// GetConsensus returns the AMM's scaled density and remaining holdings at a
// price point x.
func (c *Controller) GetConsensus(marketID, x uint64) (fValue, holdings uint64, err error) {
	m, ok := c.store.loadMarket(marketID)
	if !ok {
		return 0, 0, ErrMarketNotFound
	}
	pdfValue := gaussianPDF(x, m.CurrentMean, m.CurrentVariance)
	lambda, _ := calculateLambda(m.KNorm, m.CurrentVariance)
	f, ferr := mulFixed(lambda, pdfValue)
	if ferr != nil {
		f = 0
	}
	if f > m.BBacking {
		f = m.BBacking
	}
	return f, ammHoldings(x, m.CurrentMean, m.CurrentVariance, m.KNorm, m.BBacking), nil
}

// GetMetadata returns a market's descriptive text.
func (c *Controller) GetMetadata(marketID uint64) (*Metadata, error) {
	md, ok := c.store.loadMetadata(marketID)
	if !ok {
		return &Metadata{}, nil
	}
	return md, nil
}

// GetMarketCount returns the number of markets ever created.
func (c *Controller) GetMarketCount() uint64 {
	return c.store.marketCount()
}

// GetTraderPositions returns every position id a trader has ever opened.
func (c *Controller) GetTraderPositions(trader common.Address) []uint64 {
	return c.store.traderPositions(trader)
}

// GetLPBalance returns a holder's LP share balance in a market.
func (c *Controller) GetLPBalance(marketID uint64, holder common.Address) uint64 {
	return c.store.lpBalance(marketID, holder)
}

// GetAMMHoldings returns the AMM's remaining collateral-backed capacity at a
// price point x.
func (c *Controller) GetAMMHoldings(marketID, x uint64) (uint64, error) {
	m, ok := c.store.loadMarket(marketID)
	if !ok {
		return 0, ErrMarketNotFound
	}
	return ammHoldings(x, m.CurrentMean, m.CurrentVariance, m.KNorm, m.BBacking), nil
}

// EvaluateAt returns the raw density and backing-capped scaled density at a
// price point x.
func (c *Controller) EvaluateAt(marketID, x uint64) (pdfValue, cappedFValue uint64, err error) {
	m, ok := c.store.loadMarket(marketID)
	if !ok {
		return 0, 0, ErrMarketNotFound
	}
	pdfValue = gaussianPDF(x, m.CurrentMean, m.CurrentVariance)
	lambda, _ := calculateLambda(m.KNorm, m.CurrentVariance)
	f, ferr := mulFixed(lambda, pdfValue)
	if ferr != nil {
		f = 0
	}
	if f > m.BBacking {
		f = m.BBacking
	}
	return pdfValue, f, nil
}

// GetCDF returns the market's current cumulative distribution at x.
func (c *Controller) GetCDF(marketID, x uint64) (uint64, error) {
	m, ok := c.store.loadMarket(marketID)
	if !ok {
		return 0, ErrMarketNotFound
	}
	return gaussianCDF(x, m.CurrentMean, m.CurrentVariance), nil
}

// GetExpectedValue returns the market's current distribution mean.
func (c *Controller) GetExpectedValue(marketID uint64) (uint64, error) {
	m, ok := c.store.loadMarket(marketID)
	if !ok {
		return 0, ErrMarketNotFound
	}
	return expectedValue(m.CurrentMean, m.CurrentVariance), nil
}

// GetBounds returns the 3-sigma display window around the market's current
// mean.
func (c *Controller) GetBounds(marketID uint64) (lower, upper uint64, err error) {
	m, ok := c.store.loadMarket(marketID)
	if !ok {
		return 0, 0, ErrMarketNotFound
	}
	lower, upper = distributionBounds(m.CurrentMean, m.CurrentVariance)
	return lower, upper, nil
}
