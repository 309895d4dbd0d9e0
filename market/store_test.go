// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package market

import (
	"bytes"
	"testing"

	"github.com/luxfi/geth/common"
)

func TestMarketKeyLayout(t *testing.T) {
	key := marketKey(7)
	if len(key) != 16 {
		t.Fatalf("market key length = %d, want 16", len(key))
	}
	if !bytes.Equal(key[0:7], []byte("market_")) {
		t.Fatalf("market key prefix = %q, want market_", key[0:7])
	}
	if key[7] != 0 {
		t.Fatalf("market key gap byte = %d, want 0", key[7])
	}
	if got := key[8:16]; got[0] != 7 {
		t.Fatalf("market key id bytes = %v, want id 7 little-endian", got)
	}
}

func TestMarketRoundTrip(t *testing.T) {
	m := &Market{
		Creator:            common.HexToAddress("0x0102030405060708090a0b0c0d0e0f1011121314"),
		CreationTime:       1000,
		CloseTime:          2000,
		KNorm:              Scale,
		BBacking:           500 * Scale,
		CurrentMean:        100 * Scale,
		CurrentVariance:    25 * Scale,
		TotalLPShares:      10 * Scale,
		TotalBacking:       500 * Scale,
		AccumulatedFees:    Scale,
		NextPositionID:     3,
		TotalVolume:        42 * Scale,
		Status:             StatusOpen,
		ResolutionMean:     0,
		ResolutionVariance: 0,
	}
	buf := encodeMarket(m)
	got, ok := decodeMarket(buf)
	if !ok {
		t.Fatal("decodeMarket returned ok=false for freshly encoded market")
	}
	if *got != *m {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, m)
	}
}

func TestDecodeMarketEmptySlotIsAbsent(t *testing.T) {
	buf := make([]byte, marketSize)
	if _, ok := decodeMarket(buf); ok {
		t.Fatal("all-zero buffer should decode as absent")
	}
}

func TestPositionRoundTrip(t *testing.T) {
	p := &Position{
		PositionID:       5,
		Trader:           common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		MarketID:         7,
		FromMean:         100 * Scale,
		FromVariance:     25 * Scale,
		ToMean:           110 * Scale,
		ToVariance:       25 * Scale,
		Size:             Scale,
		CollateralLocked: 10 * Scale,
		CostBasis:        9 * Scale,
		IsOpen:           true,
		OpenedAt:         42,
		ClosedAt:         0,
		ExitValue:        0,
		FeesPaid:         0,
		RealizedPnL:      -1234,
		Claimed:          false,
	}
	buf := encodePosition(p)
	got, ok := decodePosition(buf)
	if !ok {
		t.Fatal("decodePosition returned ok=false for freshly encoded position")
	}
	if *got != *p {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, p)
	}
}

func TestDecodePositionEmptySlotIsAbsent(t *testing.T) {
	buf := make([]byte, positionSize)
	if _, ok := decodePosition(buf); ok {
		t.Fatal("all-zero buffer should decode as absent")
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	md := &Metadata{
		Title:               "Will it rain tomorrow",
		Description:         "Resolves to the recorded rainfall distribution",
		ResolutionCriteria: "NOAA station report",
	}
	buf := encodeMetadata(md)
	got, ok := decodeMetadata(buf)
	if !ok {
		t.Fatal("decodeMetadata returned ok=false")
	}
	if *got != *md {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, md)
	}
}

func TestLPBalanceKeyLayout(t *testing.T) {
	addr := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	key := lpBalanceKey(1, addr)
	if len(key) != 32 {
		t.Fatalf("lp balance key length = %d, want 32", len(key))
	}
	if !bytes.Equal(key[0:3], []byte("lp_")) {
		t.Fatalf("lp balance key prefix = %q, want lp_", key[0:3])
	}
	if !bytes.Equal(key[11:31], addr.Bytes()) {
		t.Fatal("lp balance key address segment mismatch")
	}
	if key[31] != 0 {
		t.Fatalf("lp balance key trailing pad byte = %d, want 0", key[31])
	}
}
