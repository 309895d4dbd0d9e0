// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package market

import (
	"encoding/binary"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/accounts/abi"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/precompile/contract"
	"github.com/stretchr/testify/require"
)

const scaleD = 1_000_000_000

// mockStateDB is a minimal in-memory contract.StateDB, the way
// dex/liquid_test.go and blake3/contract_test.go each supply their own
// in-package fake rather than importing a shared test double.
type mockStateDB struct {
	storage  map[string][]byte
	state    map[common.Address]map[common.Hash]common.Hash
	balances map[common.Address]*uint256.Int
	blockNum uint64
}

func newMockStateDB() *mockStateDB {
	return &mockStateDB{
		storage:  make(map[string][]byte),
		state:    make(map[common.Address]map[common.Hash]common.Hash),
		balances: make(map[common.Address]*uint256.Int),
	}
}

func (m *mockStateDB) GetState(addr common.Address, key common.Hash) common.Hash {
	return m.state[addr][key]
}

func (m *mockStateDB) SetState(addr common.Address, key common.Hash, value common.Hash) {
	if m.state[addr] == nil {
		m.state[addr] = make(map[common.Hash]common.Hash)
	}
	m.state[addr][key] = value
}

func (m *mockStateDB) GetBalance(addr common.Address) *uint256.Int {
	if b, ok := m.balances[addr]; ok {
		return b.Clone()
	}
	return uint256.NewInt(0)
}

func (m *mockStateDB) AddBalance(addr common.Address, amount *uint256.Int) {
	b := m.GetBalance(addr)
	b.Add(b, amount)
	m.balances[addr] = b
}

func (m *mockStateDB) SubBalance(addr common.Address, amount *uint256.Int) {
	b := m.GetBalance(addr)
	b.Sub(b, amount)
	m.balances[addr] = b
}

func (m *mockStateDB) Exist(addr common.Address) bool {
	_, ok := m.balances[addr]
	return ok
}

func (m *mockStateDB) CreateAccount(addr common.Address) {
	if _, ok := m.balances[addr]; !ok {
		m.balances[addr] = uint256.NewInt(0)
	}
}

func (m *mockStateDB) GetBlockNumber() uint64 { return m.blockNum }

func (m *mockStateDB) GetStorage(key []byte) ([]byte, bool) {
	v, ok := m.storage[string(key)]
	return v, ok
}

func (m *mockStateDB) SetStorage(key []byte, value []byte) {
	m.storage[string(key)] = append([]byte(nil), value...)
}

type mockBlockContext struct {
	number    uint64
	timestamp uint64
}

func (b mockBlockContext) Number() uint64    { return b.number }
func (b mockBlockContext) Timestamp() uint64 { return b.timestamp }

type mockAccessibleState struct {
	db        *mockStateDB
	block     mockBlockContext
	callValue *uint256.Int
}

func (a *mockAccessibleState) GetStateDB() contract.StateDB          { return a.db }
func (a *mockAccessibleState) GetBlockContext() contract.BlockContext { return a.block }
func (a *mockAccessibleState) GetCallValue() *uint256.Int             { return a.callValue }

var _ contract.AccessibleState = (*mockAccessibleState)(nil)

func callInput(t *testing.T, selector uint32, packed []byte) []byte {
	t.Helper()
	input := make([]byte, 4+len(packed))
	binary.BigEndian.PutUint32(input[:4], selector)
	copy(input[4:], packed)
	return input
}

func mustPack(t *testing.T, types []abi.Type, values ...interface{}) []byte {
	t.Helper()
	packed, err := args(types...).Pack(values...)
	require.NoError(t, err)
	return packed
}

func run(t *testing.T, c *Contract, state *mockAccessibleState, caller common.Address, input []byte, readOnly bool) []byte {
	t.Helper()
	ret, _, err := c.Run(state, caller, ContractAddress, input, 10_000_000, readOnly)
	require.NoError(t, err)
	return ret
}

func TestScenarioCreateThenRead(t *testing.T) {
	db := newMockStateDB()
	creator := common.HexToAddress("0xaaaa000000000000000000000000000000000a")
	state := &mockAccessibleState{db: db, block: mockBlockContext{number: 1, timestamp: 1}}
	c := &Contract{}

	db.CreateAccount(ContractAddress)
	require.NoError(t, (&Controller{store: newStore(db)}).Initialize(creator))

	createInput := callInput(t, selectorCreateMarket, mustPack(t,
		[]abi.Type{typeString, typeString, typeString, typeUint64, typeUint64, typeUint64, typeUint64},
		"T", "D", "C", uint64(2_000_000), uint64(10*scaleD), uint64(50*scaleD), uint64(4*scaleD),
	))
	state.callValue = uint256.NewInt(100 * scaleD)
	ret := run(t, c, state, creator, createInput, false)
	require.False(t, isRevert(ret))
	marketID, err := unpackUint64(ret)
	require.NoError(t, err)
	require.Equal(t, uint64(0), marketID)

	readInput := callInput(t, selectorGetMarketState, mustPack(t, []abi.Type{typeUint64}, uint64(0)))
	state.callValue = uint256.NewInt(0)
	ret = run(t, c, state, creator, readInput, true)
	require.False(t, isRevert(ret))

	ctl := NewController(&stateAdapter{db: db})
	s, err := ctl.GetMarketState(0)
	require.NoError(t, err)
	require.Equal(t, uint64(50*scaleD), s.CurrentMean)
	require.Equal(t, uint64(4*scaleD), s.CurrentVariance)
	require.Equal(t, uint64(100), s.BBacking)
	require.Equal(t, StatusOpen, s.Status)
}

func TestScenarioAddLiquidityScaled(t *testing.T) {
	db := newMockStateDB()
	creator := common.HexToAddress("0xaaaa000000000000000000000000000000000a")
	lp2 := common.HexToAddress("0xbbbb000000000000000000000000000000000b")
	ctl := NewController(&stateAdapter{db: db})
	require.NoError(t, ctl.Initialize(creator))
	marketID, err := ctl.CreateMarket(creator, CreateMarketParams{
		Title: "T", Description: "D", ResolutionCriteria: "C",
		CloseTime: 2_000_000, KNorm: 10 * scaleD, InitialMean: 50 * scaleD, InitialVariance: 4 * scaleD,
		BackingWei: 100 * scaleD, Now: 1,
	})
	require.NoError(t, err)

	shares, err := ctl.AddLiquidity(lp2, marketID, 50*scaleD)
	require.NoError(t, err)
	require.Equal(t, uint64(50), shares)

	s, err := ctl.GetMarketState(marketID)
	require.NoError(t, err)
	require.Equal(t, uint64(150), s.TotalLPShares)

	info, err := ctl.GetMarketInfo(marketID)
	require.NoError(t, err)
	require.Equal(t, uint64(150), info.TotalBacking)
}

func TestScenarioTradeCostSymmetry(t *testing.T) {
	db := newMockStateDB()
	creator := common.HexToAddress("0xaaaa000000000000000000000000000000000a")
	ctl := NewController(&stateAdapter{db: db})
	require.NoError(t, ctl.Initialize(creator))
	marketID, err := ctl.CreateMarket(creator, CreateMarketParams{
		Title: "T", Description: "D", ResolutionCriteria: "C",
		CloseTime: 2_000_000, KNorm: 10 * scaleD, InitialMean: 50 * scaleD, InitialVariance: 4 * scaleD,
		BackingWei: 100 * scaleD, Now: 1,
	})
	require.NoError(t, err)

	up, err := ctl.CalculateTrade(marketID, 52*scaleD, 4*scaleD, scaleD)
	require.NoError(t, err)
	down, err := ctl.CalculateTrade(marketID, 48*scaleD, 4*scaleD, scaleD)
	require.NoError(t, err)

	diff := int64(up.TotalCost) - int64(down.TotalCost)
	if diff < 0 {
		diff = -diff
	}
	require.LessOrEqual(t, diff, int64(2))

	feeDiff := int64(up.Fee) - int64(down.Fee)
	if feeDiff < 0 {
		feeDiff = -feeDiff
	}
	require.LessOrEqual(t, feeDiff, int64(2))
}

func TestScenarioTradeThenMarkToMarket(t *testing.T) {
	db := newMockStateDB()
	creator := common.HexToAddress("0xaaaa000000000000000000000000000000000a")
	trader := common.HexToAddress("0xcccc000000000000000000000000000000000c")
	ctl := NewController(&stateAdapter{db: db})
	require.NoError(t, ctl.Initialize(creator))
	marketID, err := ctl.CreateMarket(creator, CreateMarketParams{
		Title: "T", Description: "D", ResolutionCriteria: "C",
		CloseTime: 2_000_000, KNorm: 10 * scaleD, InitialMean: 50 * scaleD, InitialVariance: 4 * scaleD,
		BackingWei: 100 * scaleD, Now: 1,
	})
	require.NoError(t, err)

	quote, err := ctl.CalculateTrade(marketID, 52*scaleD, 4*scaleD, scaleD)
	require.NoError(t, err)

	costWei, err := fixedToWei(quote.TotalCost)
	require.NoError(t, err)

	result, err := ctl.TradeDistribution(trader, marketID, 52*scaleD, 4*scaleD, scaleD, quote.TotalCost+scaleD, costWei, 2, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(0), result.PositionID)

	value, err := ctl.GetPositionValue(result.PositionID)
	require.NoError(t, err)

	basis := quote.TotalCost - quote.Fee
	tolerance := basis / 100
	diff := int64(value) - int64(basis)
	if diff < 0 {
		diff = -diff
	}
	require.LessOrEqual(t, uint64(diff), tolerance+1)
}

func TestScenarioResolveAndClaim(t *testing.T) {
	db := newMockStateDB()
	creator := common.HexToAddress("0xaaaa000000000000000000000000000000000a")
	trader := common.HexToAddress("0xcccc000000000000000000000000000000000c")
	ctl := NewController(&stateAdapter{db: db})
	require.NoError(t, ctl.Initialize(creator))
	marketID, err := ctl.CreateMarket(creator, CreateMarketParams{
		Title: "T", Description: "D", ResolutionCriteria: "C",
		CloseTime: 2_000_000, KNorm: 10 * scaleD, InitialMean: 50 * scaleD, InitialVariance: 4 * scaleD,
		BackingWei: 100 * scaleD, Now: 1,
	})
	require.NoError(t, err)

	quote, err := ctl.CalculateTrade(marketID, 52*scaleD, 4*scaleD, scaleD)
	require.NoError(t, err)
	costWei, err := fixedToWei(quote.TotalCost)
	require.NoError(t, err)
	result, err := ctl.TradeDistribution(trader, marketID, 52*scaleD, 4*scaleD, scaleD, quote.TotalCost+scaleD, costWei, 2, 2)
	require.NoError(t, err)

	require.NoError(t, ctl.ResolveMarket(creator, marketID, 52*scaleD, 4*scaleD, 2_000_001))

	claim, err := ctl.ClaimWinnings(trader, result.PositionID)
	require.NoError(t, err)
	require.Greater(t, claim.FinalValue, uint64(0))

	p, err := ctl.GetPosition(result.PositionID)
	require.NoError(t, err)
	require.True(t, p.Claimed)

	_, err = ctl.ClaimWinnings(trader, result.PositionID)
	require.ErrorIs(t, err, ErrAlreadyClaimed)
}

func TestScenarioClosePreResolution(t *testing.T) {
	db := newMockStateDB()
	creator := common.HexToAddress("0xaaaa000000000000000000000000000000000a")
	trader := common.HexToAddress("0xcccc000000000000000000000000000000000c")
	ctl := NewController(&stateAdapter{db: db})
	require.NoError(t, ctl.Initialize(creator))
	marketID, err := ctl.CreateMarket(creator, CreateMarketParams{
		Title: "T", Description: "D", ResolutionCriteria: "C",
		CloseTime: 2_000_000, KNorm: 10 * scaleD, InitialMean: 50 * scaleD, InitialVariance: 4 * scaleD,
		BackingWei: 100 * scaleD, Now: 1,
	})
	require.NoError(t, err)

	quote, err := ctl.CalculateTrade(marketID, 52*scaleD, 4*scaleD, scaleD)
	require.NoError(t, err)
	costWei, err := fixedToWei(quote.TotalCost)
	require.NoError(t, err)
	result, err := ctl.TradeDistribution(trader, marketID, 52*scaleD, 4*scaleD, scaleD, quote.TotalCost+scaleD, costWei, 2, 2)
	require.NoError(t, err)

	closeResult, err := ctl.ClosePosition(trader, result.PositionID, 3)
	require.NoError(t, err)

	p, err := ctl.GetPosition(result.PositionID)
	require.NoError(t, err)
	require.False(t, p.IsOpen)
	require.Equal(t, closeResult.ExitValue, p.ExitValue)

	_, err = ctl.ClosePosition(trader, result.PositionID, 4)
	require.ErrorIs(t, err, ErrPositionAlreadyClosed)
}

func TestContractAddress(t *testing.T) {
	expected := "0x0000000000000000000000000000000000009090"
	require.Equal(t, expected, ContractAddress.Hex())
}

func TestRequiredGasUnknownSelector(t *testing.T) {
	c := &Contract{}
	input := callInput(t, 0xdeadbeef, nil)
	require.Equal(t, uint64(GasRead), c.RequiredGas(input))
}

func TestRunUnknownSelectorReturnsEmptySuccess(t *testing.T) {
	db := newMockStateDB()
	state := &mockAccessibleState{db: db, block: mockBlockContext{}, callValue: uint256.NewInt(0)}
	c := &Contract{}
	input := callInput(t, 0xdeadbeef, nil)
	ret, _, err := c.Run(state, common.Address{}, ContractAddress, input, 1_000_000, false)
	require.NoError(t, err)
	require.Empty(t, ret)
}

func TestRunReadOnlyRejectsWrites(t *testing.T) {
	db := newMockStateDB()
	state := &mockAccessibleState{db: db, block: mockBlockContext{}, callValue: uint256.NewInt(0)}
	c := &Contract{}
	input := callInput(t, selectorInitialize, nil)
	ret, _, err := c.Run(state, common.Address{}, ContractAddress, input, 1_000_000, true)
	require.NoError(t, err)
	require.True(t, isRevert(ret))
}
