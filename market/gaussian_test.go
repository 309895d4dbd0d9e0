// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package market

import "testing"

func TestGaussianPDFPeaksAtMean(t *testing.T) {
	mean := 100 * Scale
	variance := 25 * Scale
	atMean := gaussianPDF(mean, mean, variance)
	offMean := gaussianPDF(mean+5*Scale, mean, variance)
	if atMean <= offMean {
		t.Fatalf("pdf(mean)=%d should exceed pdf(mean+1 sigma)=%d", atMean, offMean)
	}
}

func TestGaussianPDFBelowVarianceFloor(t *testing.T) {
	if got := gaussianPDF(0, 0, minVariance-1); got != 0 {
		t.Fatalf("pdf with sub-floor variance = %d, want 0", got)
	}
}

func TestGaussianCDFMonotonic(t *testing.T) {
	mean := 100 * Scale
	variance := 25 * Scale
	lo := gaussianCDF(mean-2*Scale, mean, variance)
	mid := gaussianCDF(mean, mean, variance)
	hi := gaussianCDF(mean+2*Scale, mean, variance)
	if !(lo < mid && mid < hi) {
		t.Fatalf("cdf not monotonic: %d, %d, %d", lo, mid, hi)
	}
}

func TestGaussianCDFAtMeanIsHalf(t *testing.T) {
	mean := 50 * Scale
	variance := 9 * Scale
	got := gaussianCDF(mean, mean, variance)
	want := Scale / 2
	if diff := absDiff(got, want); diff > Scale/1000 {
		t.Fatalf("cdf(mean) = %d, want ~%d", got, want)
	}
}

func TestCalculateFMaxIsKNorm(t *testing.T) {
	kNorm := 7 * Scale
	got, err := calculateFMax(kNorm, 25*Scale)
	if err != nil {
		t.Fatalf("calculateFMax: %v", err)
	}
	if got != kNorm {
		t.Fatalf("f_max = %d, want k_norm = %d", got, kNorm)
	}
}

func TestCalculateLambdaVarianceFloor(t *testing.T) {
	if _, err := calculateLambda(Scale, minVariance-1); err != ErrVarianceTooSmall {
		t.Fatalf("expected ErrVarianceTooSmall, got %v", err)
	}
}

func TestDistributionBoundsSymmetric(t *testing.T) {
	mean := 100 * Scale
	variance := 16 * Scale
	lower, upper := distributionBounds(mean, variance)
	if lower >= mean || upper <= mean {
		t.Fatalf("bounds [%d,%d] not symmetric around mean %d", lower, upper, mean)
	}
	if (mean - lower) != (upper - mean) {
		t.Fatalf("bounds not symmetric: lower gap %d, upper gap %d", mean-lower, upper-mean)
	}
}

func TestAmmHoldingsNeverExceedsBacking(t *testing.T) {
	mean := 100 * Scale
	variance := 25 * Scale
	kNorm := Scale
	backing := 1000 * Scale
	for _, x := range []uint64{mean - 10*Scale, mean, mean + 10*Scale} {
		got := ammHoldings(x, mean, variance, kNorm, backing)
		if got > backing {
			t.Fatalf("ammHoldings(%d) = %d exceeds backing %d", x, got, backing)
		}
	}
}

func TestL2NormDifferenceZeroForIdenticalDistributions(t *testing.T) {
	mean := 100 * Scale
	variance := 25 * Scale
	kNorm := Scale
	lambda, err := calculateLambda(kNorm, variance)
	if err != nil {
		t.Fatalf("calculateLambda: %v", err)
	}
	got, err := l2NormDifference(mean, variance, lambda, mean, variance, lambda)
	if err != nil {
		t.Fatalf("l2NormDifference: %v", err)
	}
	if got > Scale/100 {
		t.Fatalf("l2 distance between identical distributions = %d, want ~0", got)
	}
}

func TestL2NormDifferencePositiveForDistinctMeans(t *testing.T) {
	variance := 25 * Scale
	kNorm := Scale
	lambda, err := calculateLambda(kNorm, variance)
	if err != nil {
		t.Fatalf("calculateLambda: %v", err)
	}
	got, err := l2NormDifference(100*Scale, variance, lambda, 200*Scale, variance, lambda)
	if err != nil {
		t.Fatalf("l2NormDifference: %v", err)
	}
	if got == 0 {
		t.Fatal("l2 distance between distinct distributions should be positive")
	}
}
