// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package market

// feeNumerator/feeDenominator charge a 30bps fee on every trade's base cost,
// matching the original contract's `(base_cost * 3) / 1000`.
const (
	feeNumerator   = 3
	feeDenominator = 1000
)

// tradeQuote is the result of pricing a trade from one Gaussian distribution
// state to another: the total cost (base + fee) the trader pays, the fee
// component, and the collateral the AMM must be able to cover at the worst
// point along the trade.
type tradeQuote struct {
	TotalCost             uint64
	Fee                   uint64
	CollateralRequirement uint64
}

// priceTrade computes the L2-distance cost of moving the market's
// distribution from (fromMean, fromVariance) to (toMean, toVariance) for the
// given trade size, plus the 30bps fee and the collateral the AMM must be
// able to honor across the move.
func priceTrade(kNorm, fromMean, fromVariance, toMean, toVariance, size uint64) (tradeQuote, error) {
	lambdaFrom, err := calculateLambda(kNorm, fromVariance)
	if err != nil {
		return tradeQuote{}, err
	}
	lambdaTo, err := calculateLambda(kNorm, toVariance)
	if err != nil {
		return tradeQuote{}, err
	}
	l2Diff, err := l2NormDifference(fromMean, fromVariance, lambdaFrom, toMean, toVariance, lambdaTo)
	if err != nil {
		return tradeQuote{}, err
	}
	baseCost, err := mulFixed(l2Diff, size)
	if err != nil {
		return tradeQuote{}, err
	}
	fee := (baseCost * feeNumerator) / feeDenominator

	collateral, err := collateralRequirement(kNorm, fromMean, fromVariance, toMean, toVariance, size)
	if err != nil {
		return tradeQuote{}, err
	}

	return tradeQuote{
		TotalCost:             baseCost + fee,
		Fee:                   fee,
		CollateralRequirement: collateral,
	}, nil
}

// collateralRequirement bounds the worst-case amount by which the target
// distribution's holdings function can exceed the source's along the move,
// scaled by trade size. When both distributions share the same variance the
// peak deficit has a closed form at the distributions' midpoint; otherwise it
// is bounded by sampling the same seven candidate points the original
// contract checks (the two means, their midpoint, and each mean offset by
// its own one-sigma).
func collateralRequirement(kNorm, fromMean, fromVariance, toMean, toVariance, size uint64) (uint64, error) {
	lambdaFrom, err := calculateLambda(kNorm, fromVariance)
	if err != nil {
		return 0, err
	}
	lambdaTo, err := calculateLambda(kNorm, toVariance)
	if err != nil {
		return 0, err
	}

	if fromVariance == toVariance {
		xMin := (fromMean + toMean) / 2
		gValue, err := mulFixed(lambdaFrom, gaussianPDF(xMin, fromMean, fromVariance))
		if err != nil {
			return 0, err
		}
		fValue, err := mulFixed(lambdaTo, gaussianPDF(xMin, toMean, toVariance))
		if err != nil {
			return 0, err
		}
		if gValue > fValue {
			return 0, nil
		}
		return mulFixed(fValue-gValue, size)
	}

	sigmaFrom := sqrtFixed(fromVariance)
	sigmaTo := sqrtFixed(toVariance)
	points := [7]uint64{
		fromMean,
		toMean,
		(fromMean + toMean) / 2,
		saturatingSub(fromMean, sigmaFrom),
		saturatingAdd(fromMean, sigmaFrom),
		saturatingSub(toMean, sigmaTo),
		saturatingAdd(toMean, sigmaTo),
	}

	var maxDeficit uint64
	for _, x := range points {
		gValue, err := mulFixed(lambdaFrom, gaussianPDF(x, fromMean, fromVariance))
		if err != nil {
			return 0, err
		}
		fValue, err := mulFixed(lambdaTo, gaussianPDF(x, toMean, toVariance))
		if err != nil {
			return 0, err
		}
		if fValue > gValue {
			deficit := fValue - gValue
			if deficit > maxDeficit {
				maxDeficit = deficit
			}
		}
	}
	return mulFixed(maxDeficit, size)
}
