// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package market

import "math/big"

// integrationSteps is the number of composite-trapezoidal steps used to
// integrate a position's payout profile against the market's current
// distribution, matching the original contract's INTEGRATION_STEPS.
const integrationSteps = 20

// valuePosition estimates a position's current payout by integrating the
// product of its payout profile (to-distribution minus from-distribution,
// both scaled by lambda) against the market's current density over a
// 3-sigma window centered on the median of the three means. The integral is accumulated in a signed big.Int to avoid the
// overflow a plain int64 accumulator would risk when trade sizes are large,
// then clamped to zero: a position can never have negative value to its
// holder, only a realized loss relative to its cost basis.
func valuePosition(p *Position, currentMean, currentVariance, kNorm uint64) (uint64, error) {
	currentLambda, err := calculateLambda(kNorm, currentVariance)
	if err != nil {
		return 0, err
	}
	fromLambda, err := calculateLambda(kNorm, p.FromVariance)
	if err != nil {
		return 0, err
	}
	toLambda, err := calculateLambda(kNorm, p.ToVariance)
	if err != nil {
		return 0, err
	}

	currentStd := sqrtFixed(currentVariance)
	fromStd := sqrtFixed(p.FromVariance)
	toStd := sqrtFixed(p.ToVariance)
	maxStd := currentStd
	if fromStd > maxStd {
		maxStd = fromStd
	}
	if toStd > maxStd {
		maxStd = toStd
	}
	threeSigma, err := mulFixed(maxStd, 3*Scale)
	if err != nil {
		return 0, err
	}

	lo, mid, hi := p.FromMean, currentMean, p.ToMean
	if lo > mid {
		lo, mid = mid, lo
	}
	if mid > hi {
		mid, hi = hi, mid
	}
	if lo > mid {
		mid = lo
	}
	center := mid

	lowerBound := saturatingSub(center, threeSigma)
	upperBound := saturatingAdd(center, threeSigma)
	valueRange := saturatingSub(upperBound, lowerBound)
	if valueRange == 0 {
		return p.CostBasis, nil
	}

	var dx uint64
	if valueRange < integrationSteps {
		dx = 1
	} else {
		dx = valueRange / integrationSteps
	}

	scaleBig := big.NewInt(0).SetUint64(Scale)
	integralSum := big.NewInt(0)

	for i := uint64(0); i <= integrationSteps; i++ {
		var stepOffset uint64
		switch {
		case i == 0:
			stepOffset = 0
		case i == integrationSteps:
			stepOffset = valueRange
		default:
			stepOffset = uint64((uint64Mul128(valueRange, i)) / integrationSteps)
		}
		x := saturatingAdd(lowerBound, stepOffset)

		pdfFrom := gaussianPDF(x, p.FromMean, p.FromVariance)
		fFrom, err := mulFixed(fromLambda, pdfFrom)
		if err != nil {
			return 0, err
		}
		pdfTo := gaussianPDF(x, p.ToMean, p.ToVariance)
		fTo, err := mulFixed(toLambda, pdfTo)
		if err != nil {
			return 0, err
		}
		pdfCurrent := gaussianPDF(x, currentMean, currentVariance)
		fCurrent, err := mulFixed(currentLambda, pdfCurrent)
		if err != nil {
			return 0, err
		}

		positionValue := new(big.Int).Sub(big.NewInt(0).SetUint64(fTo), big.NewInt(0).SetUint64(fFrom))
		product := new(big.Int).Mul(positionValue, big.NewInt(0).SetUint64(fCurrent))
		product.Div(product, scaleBig)

		if i == 0 || i == integrationSteps {
			integralSum.Add(integralSum, new(big.Int).Div(product, big.NewInt(2)))
		} else {
			integralSum.Add(integralSum, product)
		}
	}

	var integralResult *big.Int
	if valueRange < integrationSteps {
		integralResult = new(big.Int).Div(integralSum, scaleBig)
	} else {
		integralResult = new(big.Int).Mul(integralSum, big.NewInt(0).SetUint64(dx))
		integralResult.Div(integralResult, scaleBig)
	}

	if integralResult.Sign() < 0 {
		return 0, nil
	}
	if !integralResult.IsUint64() {
		return ^uint64(0), nil
	}
	payoutPerUnit := integralResult.Uint64()
	return mulFixed(payoutPerUnit, p.Size)
}

// uint64Mul128 returns range*i without overflowing uint64, using the same
// 128-bit multiply helper the fixed-point kernels use.
func uint64Mul128(rangeVal, i uint64) uint64 {
	hi, lo := bitsMul64(rangeVal, i)
	if hi == 0 {
		return lo
	}
	// unreachable for valid market state: a distribution window and a step
	// index both bounded well under 2^32.
	return ^uint64(0)
}
