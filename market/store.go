// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package market

import (
	"encoding/binary"

	"github.com/luxfi/geth/common"
)

// Storage key prefixes, exactly as the original contract's byte literals.
// Keys are plain prefix-concatenated bytes, never hashed: this repo's
// persistence layout must stay migration-stable byte-for-byte, so there is
// no role here for a hashing library (see DESIGN.md's note on blake3).
var (
	ownerKey          = []byte("owner")
	initializedKey    = []byte("initialized")
	marketCountKey    = []byte("market_count")
	positionCountKey  = []byte("position_count")
	blockNumberKey    = []byte("block_number")
	lpTokenPrefix     = []byte("lp_")
	metadataPrefix    = []byte("meta_")
	positionByIDPrefix = []byte("pos_id_")
	traderPosPrefix   = []byte("trader_pos_")
	traderCountPrefix = []byte("trader_cnt_")
	marketPrefix      = []byte("market_")
)

// marketKey reproduces the original contract's get_market_key exactly,
// including its one-byte gap between the 7-byte "market_" literal and the
// 8-byte little-endian id (the original writes the prefix into key[0..7]
// and the id into key[8..16] of a 16-byte array, leaving key[7] as a zero
// pad byte). Byte-for-byte compatibility with that layout is what makes
// this repo's storage migration-stable.
func marketKey(marketID uint64) []byte {
	key := make([]byte, 16)
	copy(key[0:7], marketPrefix)
	binary.LittleEndian.PutUint64(key[8:16], marketID)
	return key
}

// lpBalanceKey reproduces get_lp_balance_key: a 3-byte prefix, the 8-byte
// market id, and a 20-byte holder address, packed into a 32-byte array whose
// final byte is always zero (3+8+20 = 31 of 32 bytes used).
func lpBalanceKey(marketID uint64, holder common.Address) []byte {
	key := make([]byte, 32)
	copy(key[0:3], lpTokenPrefix)
	binary.LittleEndian.PutUint64(key[3:11], marketID)
	copy(key[11:31], holder.Bytes())
	return key
}

func metadataKey(marketID uint64) []byte {
	key := make([]byte, 13)
	copy(key[0:5], metadataPrefix)
	binary.LittleEndian.PutUint64(key[5:13], marketID)
	return key
}

func positionKey(positionID uint64) []byte {
	key := make([]byte, 15)
	copy(key[0:7], positionByIDPrefix)
	binary.LittleEndian.PutUint64(key[7:15], positionID)
	return key
}

func traderPositionsKey(trader common.Address, index uint64) []byte {
	key := make([]byte, 39)
	copy(key[0:11], traderPosPrefix)
	copy(key[11:31], trader.Bytes())
	binary.LittleEndian.PutUint64(key[31:39], index)
	return key
}

func traderPositionCountKey(trader common.Address) []byte {
	key := make([]byte, 31)
	copy(key[0:11], traderCountPrefix)
	copy(key[11:31], trader.Bytes())
	return key
}

// boolByte/byteBool round-trip the Rust contract's u8-as-bool convention
// (0 = false, nonzero = true, canonically 1).
func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func byteBool(b byte) bool {
	return b != 0
}

// marketSize is the fixed byte length of a serialized Market record: 20
// (creator) + 11*8 (uint64 fields) + 1 (status) + 2*8 (resolution fields).
const marketSize = 20 + 11*8 + 1 + 2*8

// encodeMarket serializes a Market using little-endian fixed-width fields in
// the exact field order the original contract's save_market writes.
func encodeMarket(m *Market) []byte {
	buf := make([]byte, marketSize)
	offset := 0
	copy(buf[offset:offset+20], m.Creator.Bytes())
	offset += 20
	binary.LittleEndian.PutUint64(buf[offset:offset+8], m.CreationTime)
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:offset+8], m.CloseTime)
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:offset+8], m.KNorm)
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:offset+8], m.BBacking)
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:offset+8], m.CurrentMean)
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:offset+8], m.CurrentVariance)
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:offset+8], m.TotalLPShares)
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:offset+8], m.TotalBacking)
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:offset+8], m.AccumulatedFees)
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:offset+8], m.NextPositionID)
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:offset+8], m.TotalVolume)
	offset += 8
	buf[offset] = m.Status
	offset += 1
	binary.LittleEndian.PutUint64(buf[offset:offset+8], m.ResolutionMean)
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:offset+8], m.ResolutionVariance)
	return buf
}

// decodeMarket is the inverse of encodeMarket. It returns false if buf is too
// short or looks like an empty (never-written) storage slot, i.e. the
// creator-address bytes (offset 0..20) are all zero.
func decodeMarket(buf []byte) (*Market, bool) {
	if len(buf) < marketSize {
		return nil, false
	}
	hasData := false
	for _, b := range buf[0:20] {
		if b != 0 {
			hasData = true
			break
		}
	}
	if !hasData {
		return nil, false
	}
	m := &Market{}
	offset := 0
	m.Creator = common.BytesToAddress(buf[offset : offset+20])
	offset += 20
	m.CreationTime = binary.LittleEndian.Uint64(buf[offset : offset+8])
	offset += 8
	m.CloseTime = binary.LittleEndian.Uint64(buf[offset : offset+8])
	offset += 8
	m.KNorm = binary.LittleEndian.Uint64(buf[offset : offset+8])
	offset += 8
	m.BBacking = binary.LittleEndian.Uint64(buf[offset : offset+8])
	offset += 8
	m.CurrentMean = binary.LittleEndian.Uint64(buf[offset : offset+8])
	offset += 8
	m.CurrentVariance = binary.LittleEndian.Uint64(buf[offset : offset+8])
	offset += 8
	m.TotalLPShares = binary.LittleEndian.Uint64(buf[offset : offset+8])
	offset += 8
	m.TotalBacking = binary.LittleEndian.Uint64(buf[offset : offset+8])
	offset += 8
	m.AccumulatedFees = binary.LittleEndian.Uint64(buf[offset : offset+8])
	offset += 8
	m.NextPositionID = binary.LittleEndian.Uint64(buf[offset : offset+8])
	offset += 8
	m.TotalVolume = binary.LittleEndian.Uint64(buf[offset : offset+8])
	offset += 8
	m.Status = buf[offset]
	offset += 1
	m.ResolutionMean = binary.LittleEndian.Uint64(buf[offset : offset+8])
	offset += 8
	m.ResolutionVariance = binary.LittleEndian.Uint64(buf[offset : offset+8])
	return m, true
}

// positionSize is the fixed byte length of a serialized Position record.
const positionSize = 8 + 20 + 8 + 8 + 8 + 8 + 8 + 8 + 8 + 8 + 1 + 8 + 8 + 8 + 8 + 8 + 1

// encodePosition serializes a Position in the original contract's
// save_position field order.
func encodePosition(p *Position) []byte {
	buf := make([]byte, positionSize)
	offset := 0
	binary.LittleEndian.PutUint64(buf[offset:offset+8], p.PositionID)
	offset += 8
	copy(buf[offset:offset+20], p.Trader.Bytes())
	offset += 20
	binary.LittleEndian.PutUint64(buf[offset:offset+8], p.MarketID)
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:offset+8], p.FromMean)
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:offset+8], p.FromVariance)
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:offset+8], p.ToMean)
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:offset+8], p.ToVariance)
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:offset+8], p.Size)
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:offset+8], p.CollateralLocked)
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:offset+8], p.CostBasis)
	offset += 8
	buf[offset] = boolByte(p.IsOpen)
	offset += 1
	binary.LittleEndian.PutUint64(buf[offset:offset+8], p.OpenedAt)
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:offset+8], p.ClosedAt)
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:offset+8], p.ExitValue)
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:offset+8], p.FeesPaid)
	offset += 8
	binary.LittleEndian.PutUint64(buf[offset:offset+8], uint64(p.RealizedPnL))
	offset += 8
	buf[offset] = boolByte(p.Claimed)
	return buf
}

// decodePosition is the inverse of encodePosition. It mirrors the original
// contract's load_position, which treats a record as absent whenever the
// trader-address bytes (offset 8..28) are all zero.
func decodePosition(buf []byte) (*Position, bool) {
	if len(buf) < positionSize {
		return nil, false
	}
	hasData := false
	for _, b := range buf[8:28] {
		if b != 0 {
			hasData = true
			break
		}
	}
	if !hasData {
		return nil, false
	}
	p := &Position{}
	offset := 0
	p.PositionID = binary.LittleEndian.Uint64(buf[offset : offset+8])
	offset += 8
	p.Trader = common.BytesToAddress(buf[offset : offset+20])
	offset += 20
	p.MarketID = binary.LittleEndian.Uint64(buf[offset : offset+8])
	offset += 8
	p.FromMean = binary.LittleEndian.Uint64(buf[offset : offset+8])
	offset += 8
	p.FromVariance = binary.LittleEndian.Uint64(buf[offset : offset+8])
	offset += 8
	p.ToMean = binary.LittleEndian.Uint64(buf[offset : offset+8])
	offset += 8
	p.ToVariance = binary.LittleEndian.Uint64(buf[offset : offset+8])
	offset += 8
	p.Size = binary.LittleEndian.Uint64(buf[offset : offset+8])
	offset += 8
	p.CollateralLocked = binary.LittleEndian.Uint64(buf[offset : offset+8])
	offset += 8
	p.CostBasis = binary.LittleEndian.Uint64(buf[offset : offset+8])
	offset += 8
	p.IsOpen = byteBool(buf[offset])
	offset += 1
	p.OpenedAt = binary.LittleEndian.Uint64(buf[offset : offset+8])
	offset += 8
	p.ClosedAt = binary.LittleEndian.Uint64(buf[offset : offset+8])
	offset += 8
	p.ExitValue = binary.LittleEndian.Uint64(buf[offset : offset+8])
	offset += 8
	p.FeesPaid = binary.LittleEndian.Uint64(buf[offset : offset+8])
	offset += 8
	p.RealizedPnL = int64(binary.LittleEndian.Uint64(buf[offset : offset+8]))
	offset += 8
	p.Claimed = byteBool(buf[offset])
	return p, true
}

// Metadata holds a market's free-text title, description, and resolution
// criteria, stored as a single length-prefixed record (matching
// save_market_metadata: one length byte per field, then the concatenated
// field bytes, each field capped at 255 bytes).
type Metadata struct {
	Title               string
	Description         string
	ResolutionCriteria string
}

func encodeMetadata(md *Metadata) []byte {
	title := []byte(md.Title)
	if len(title) > 255 {
		title = title[:255]
	}
	desc := []byte(md.Description)
	if len(desc) > 255 {
		desc = desc[:255]
	}
	criteria := []byte(md.ResolutionCriteria)
	if len(criteria) > 255 {
		criteria = criteria[:255]
	}
	buf := make([]byte, 3+len(title)+len(desc)+len(criteria))
	buf[0] = byte(len(title))
	buf[1] = byte(len(desc))
	buf[2] = byte(len(criteria))
	offset := 3
	copy(buf[offset:], title)
	offset += len(title)
	copy(buf[offset:], desc)
	offset += len(desc)
	copy(buf[offset:], criteria)
	return buf
}

func decodeMetadata(buf []byte) (*Metadata, bool) {
	if len(buf) < 3 {
		return nil, false
	}
	titleLen := int(buf[0])
	descLen := int(buf[1])
	criteriaLen := int(buf[2])
	want := 3 + titleLen + descLen + criteriaLen
	if len(buf) < want {
		return nil, false
	}
	offset := 3
	title := string(buf[offset : offset+titleLen])
	offset += titleLen
	desc := string(buf[offset : offset+descLen])
	offset += descLen
	criteria := string(buf[offset : offset+criteriaLen])
	return &Metadata{Title: title, Description: desc, ResolutionCriteria: criteria}, true
}

// Store adapts the controller's record types onto a flat variable-length KV
// backend (contract.StateDB's GetStorage/SetStorage), the way the original
// contract's load_market/save_market/load_position/save_position functions
// sit directly on top of ink!'s storage API.
type Store struct {
	db StateDB
}

// StateDB is the narrow storage surface the market package needs: it is
// satisfied by contract.StateDB, kept separate here so this package's tests
// can supply an in-memory fake without importing the contract package.
type StateDB interface {
	GetStorage(key []byte) ([]byte, bool)
	SetStorage(key []byte, value []byte)
}

func newStore(db StateDB) *Store {
	return &Store{db: db}
}

func (s *Store) loadMarket(marketID uint64) (*Market, bool) {
	raw, ok := s.db.GetStorage(marketKey(marketID))
	if !ok {
		return nil, false
	}
	return decodeMarket(raw)
}

func (s *Store) saveMarket(marketID uint64, m *Market) {
	s.db.SetStorage(marketKey(marketID), encodeMarket(m))
}

func (s *Store) loadPosition(positionID uint64) (*Position, bool) {
	raw, ok := s.db.GetStorage(positionKey(positionID))
	if !ok {
		return nil, false
	}
	return decodePosition(raw)
}

func (s *Store) savePosition(p *Position) {
	s.db.SetStorage(positionKey(p.PositionID), encodePosition(p))
}

func (s *Store) loadMetadata(marketID uint64) (*Metadata, bool) {
	raw, ok := s.db.GetStorage(metadataKey(marketID))
	if !ok {
		return nil, false
	}
	return decodeMetadata(raw)
}

func (s *Store) saveMetadata(marketID uint64, md *Metadata) {
	s.db.SetStorage(metadataKey(marketID), encodeMetadata(md))
}

func (s *Store) lpBalance(marketID uint64, holder common.Address) uint64 {
	raw, ok := s.db.GetStorage(lpBalanceKey(marketID, holder))
	return uint64FromStorage(raw, ok)
}

func (s *Store) setLPBalance(marketID uint64, holder common.Address, balance uint64) {
	s.db.SetStorage(lpBalanceKey(marketID, holder), uint64ToStorage(balance))
}

func (s *Store) marketCount() uint64 {
	raw, ok := s.db.GetStorage(marketCountKey)
	return uint64FromStorage(raw, ok)
}

func (s *Store) setMarketCount(v uint64) {
	s.db.SetStorage(marketCountKey, uint64ToStorage(v))
}

func (s *Store) positionCount() uint64 {
	raw, ok := s.db.GetStorage(positionCountKey)
	return uint64FromStorage(raw, ok)
}

func (s *Store) setPositionCount(v uint64) {
	s.db.SetStorage(positionCountKey, uint64ToStorage(v))
}

func (s *Store) owner() (common.Address, bool) {
	raw, ok := s.db.GetStorage(ownerKey)
	if !ok || len(raw) < 20 {
		return common.Address{}, false
	}
	return common.BytesToAddress(raw[:20]), true
}

func (s *Store) setOwner(addr common.Address) {
	s.db.SetStorage(ownerKey, addr.Bytes())
}

func (s *Store) initialized() bool {
	raw, ok := s.db.GetStorage(initializedKey)
	return ok && len(raw) > 0 && raw[0] != 0
}

func (s *Store) setInitialized() {
	s.db.SetStorage(initializedKey, []byte{1})
}

func (s *Store) traderPositionCount(trader common.Address) uint64 {
	raw, ok := s.db.GetStorage(traderPositionCountKey(trader))
	return uint64FromStorage(raw, ok)
}

func (s *Store) traderPositionAt(trader common.Address, index uint64) uint64 {
	raw, ok := s.db.GetStorage(traderPositionsKey(trader, index))
	return uint64FromStorage(raw, ok)
}

func (s *Store) addTraderPosition(trader common.Address, positionID uint64) {
	count := s.traderPositionCount(trader)
	s.db.SetStorage(traderPositionsKey(trader, count), uint64ToStorage(positionID))
	s.db.SetStorage(traderPositionCountKey(trader), uint64ToStorage(count+1))
}

func (s *Store) traderPositions(trader common.Address) []uint64 {
	count := s.traderPositionCount(trader)
	ids := make([]uint64, 0, count)
	for i := uint64(0); i < count; i++ {
		ids = append(ids, s.traderPositionAt(trader, i))
	}
	return ids
}

// uint64FromStorage reads an 8-byte little-endian counter from storage,
// treating a missing or short value as zero (the original contract's
// get_storage leaves the destination buffer zeroed on a miss).
func uint64FromStorage(raw []byte, ok bool) uint64 {
	if !ok || len(raw) < 8 {
		return 0
	}
	return binary.LittleEndian.Uint64(raw[:8])
}

func uint64ToStorage(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}
