// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package market

import "testing"

func TestValuePositionUnchangedDistributionIsWorthZero(t *testing.T) {
	// From and to are the same distribution, so the payout profile is zero at
	// every node. Even at the minimum variance the integration window is
	// 6*sigma wide, so the zero-range branch that returns the cost basis is
	// not taken.
	p := &Position{
		FromMean:     100 * Scale,
		FromVariance: minVariance,
		ToMean:       100 * Scale,
		ToVariance:   minVariance,
		Size:         Scale,
		CostBasis:    42 * Scale,
	}
	got, err := valuePosition(p, 100*Scale, minVariance, Scale)
	if err != nil {
		t.Fatalf("valuePosition: %v", err)
	}
	if got != 0 {
		t.Fatalf("identical from/to distributions: got %d, want 0", got)
	}
}

func TestValuePositionNeverNegative(t *testing.T) {
	p := &Position{
		FromMean:     120 * Scale,
		FromVariance: 25 * Scale,
		ToMean:       80 * Scale,
		ToVariance:   25 * Scale,
		Size:         5 * Scale,
		CostBasis:    10 * Scale,
	}
	got, err := valuePosition(p, 100*Scale, 25*Scale, Scale)
	if err != nil {
		t.Fatalf("valuePosition: %v", err)
	}
	if got > ^uint64(0)/2 {
		t.Fatalf("valuePosition returned a suspiciously large value: %d", got)
	}
	_ = got
}

func TestValuePositionFavorsConvergedDirection(t *testing.T) {
	// A position betting the mean moves from 100 to 120 should be worth more
	// once the market's current mean has actually moved to 120 than if it
	// stayed at 100.
	p := &Position{
		FromMean:     100 * Scale,
		FromVariance: 25 * Scale,
		ToMean:       120 * Scale,
		ToVariance:   25 * Scale,
		Size:         5 * Scale,
		CostBasis:    Scale,
	}
	atStart, err := valuePosition(p, 100*Scale, 25*Scale, Scale)
	if err != nil {
		t.Fatalf("valuePosition at start: %v", err)
	}
	atTarget, err := valuePosition(p, 120*Scale, 25*Scale, Scale)
	if err != nil {
		t.Fatalf("valuePosition at target: %v", err)
	}
	if atTarget <= atStart {
		t.Fatalf("value at target (%d) should exceed value at start (%d)", atTarget, atStart)
	}
}
