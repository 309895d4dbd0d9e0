// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package market

import "testing"

func TestMulFixedIdentity(t *testing.T) {
	got, err := mulFixed(Scale, Scale)
	if err != nil {
		t.Fatalf("mulFixed: %v", err)
	}
	if got != Scale {
		t.Fatalf("1.0 * 1.0 = %d, want %d", got, Scale)
	}
}

func TestMulFixedHalves(t *testing.T) {
	half := Scale / 2
	got, err := mulFixed(half, half)
	if err != nil {
		t.Fatalf("mulFixed: %v", err)
	}
	want := Scale / 4
	if diff := absDiff(got, want); diff > 2 {
		t.Fatalf("0.5 * 0.5 = %d, want ~%d", got, want)
	}
}

func TestDivFixedIdentity(t *testing.T) {
	got, err := divFixed(Scale, Scale)
	if err != nil {
		t.Fatalf("divFixed: %v", err)
	}
	if got != Scale {
		t.Fatalf("1.0 / 1.0 = %d, want %d", got, Scale)
	}
}

func TestDivFixedByZero(t *testing.T) {
	if _, err := divFixed(Scale, 0); err == nil {
		t.Fatal("expected error dividing by zero")
	}
}

func TestIsqrt(t *testing.T) {
	cases := []struct {
		x, want uint64
	}{
		{0, 0},
		{1, 1},
		{4, 2},
		{1_000_000, 1000},
		{999_999, 999},
	}
	for _, c := range cases {
		if got := isqrt(c.x); got != c.want {
			t.Fatalf("isqrt(%d) = %d, want %d", c.x, got, c.want)
		}
	}
}

func TestSqrtFixedOfOne(t *testing.T) {
	got := sqrtFixed(Scale)
	if diff := absDiff(got, Scale); diff > 1000 {
		t.Fatalf("sqrtFixed(1.0) = %d, want ~%d", got, Scale)
	}
}

func TestSqrtFixedOfFour(t *testing.T) {
	four := 4 * Scale
	got := sqrtFixed(four)
	want := 2 * Scale
	if diff := absDiff(got, want); diff > 2000 {
		t.Fatalf("sqrtFixed(4.0) = %d, want ~%d", got, want)
	}
}

func TestExpFixedAtZero(t *testing.T) {
	if got := expFixed(0); got != Scale {
		t.Fatalf("exp(0) = %d, want %d", got, Scale)
	}
}

func TestExpFixedApproximatesE(t *testing.T) {
	got := expFixed(Scale)
	want := uint64(2_718_281_828)
	if diff := absDiff(got, want); diff > Scale/1000 {
		t.Fatalf("exp(1) = %d, want ~%d", got, want)
	}
}

func TestExpNegFixedIsReciprocal(t *testing.T) {
	x := Scale / 2
	ex := expFixed(x)
	enx := expNegFixed(x)
	product, err := mulFixed(ex, enx)
	if err != nil {
		t.Fatalf("mulFixed: %v", err)
	}
	if diff := absDiff(product, Scale); diff > Scale/10000 {
		t.Fatalf("exp(x)*exp(-x) = %d, want ~%d", product, Scale)
	}
}

func TestErfFixedAtZero(t *testing.T) {
	if got := erfFixed(0); got > Scale/100 {
		t.Fatalf("erf(0) = %d, want ~0", got)
	}
}

func TestErfFixedApproachesOne(t *testing.T) {
	got := erfFixed(3 * Scale)
	if diff := absDiff(got, Scale); diff > Scale/100 {
		t.Fatalf("erf(3) = %d, want ~%d", got, Scale)
	}
}

func TestSaturatingSub(t *testing.T) {
	if got := saturatingSub(5, 10); got != 0 {
		t.Fatalf("saturatingSub(5,10) = %d, want 0", got)
	}
	if got := saturatingSub(10, 5); got != 5 {
		t.Fatalf("saturatingSub(10,5) = %d, want 5", got)
	}
}

func TestSaturatingAddOverflow(t *testing.T) {
	max := ^uint64(0)
	if got := saturatingAdd(max, 1); got != max {
		t.Fatalf("saturatingAdd overflow = %d, want %d", got, max)
	}
}
