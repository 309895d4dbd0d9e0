// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package contract reconstructs the slice of github.com/luxfi/precompile/contract
// actually exercised by this repository's call sites (dex/module.go, blake3/contract.go,
// ai/module.go in the retrieved pack all import it, but the package itself was not
// part of the retrieval). It is not a third-party dependency: it is this repo's own
// adapter layer between a precompile and its host EVM.
package contract

import (
	"errors"

	"github.com/holiman/uint256"
	"github.com/luxfi/precompile/precompileconfig"
	"github.com/luxfi/geth/common"
)

// ErrOutOfGas is returned by a precompile's Run when suppliedGas is insufficient
// for the requested operation.
var ErrOutOfGas = errors.New("out of gas")

// StateDB is the state surface a precompile needs from the host EVM: storage
// slots, native-balance transfers and basic account existence, matching the
// package-local StateDB interfaces observed across the retrieved precompiles
// (dex/pool_manager.go, ai/module.go's stateDBAdapter).
type StateDB interface {
	GetState(addr common.Address, key common.Hash) common.Hash
	SetState(addr common.Address, key common.Hash, value common.Hash)
	GetBalance(addr common.Address) *uint256.Int
	AddBalance(addr common.Address, amount *uint256.Int)
	SubBalance(addr common.Address, amount *uint256.Int)
	Exist(addr common.Address) bool
	CreateAccount(addr common.Address)
	GetBlockNumber() uint64

	// GetStorage/SetStorage expose the precompile's own variable-length,
	// unhashed key/value storage (the flat KV map a market precompile needs
	// for records larger than a single 32-byte slot: serialized Market and
	// Position records, market metadata strings). This is additional to the
	// fixed 32-byte GetState/SetState slots above, which dex/pool_manager.go
	// and ai/module.go use for their own hash-keyed records.
	GetStorage(key []byte) ([]byte, bool)
	SetStorage(key []byte, value []byte)
}

// BlockContext exposes the block-level values a precompile may need to read
// while executing (timestamp for market close/resolve checks, number for the
// block-per-call counter this repo uses in place of wall-clock time).
type BlockContext interface {
	Number() uint64
	Timestamp() uint64
}

// AccessibleState is the handle a precompile's Run receives into the host. The
// two accessors mirror blake3/contract_test.go's mockAccessibleState exactly
// (GetStateDB/GetBlockContext); GetCallValue is added because this precompile,
// unlike blake3 or ai, accepts native-currency collateral and so needs to read
// the value attached to the call.
type AccessibleState interface {
	GetStateDB() StateDB
	GetBlockContext() BlockContext
	GetCallValue() *uint256.Int
}

// ConfigurationBlockContext is the narrower context passed to a Configurator
// at chain-config activation time, before a full AccessibleState exists.
type ConfigurationBlockContext interface {
	Number() uint64
	Timestamp() uint64
}

// StatefulPrecompiledContract is the interface a precompile module's Contract
// field must satisfy, matching dex.DEXContract / ai.AIMiningContract / blake3Precompile.
type StatefulPrecompiledContract interface {
	Address() common.Address
	RequiredGas(input []byte) uint64
	Run(accessibleState AccessibleState, caller common.Address, addr common.Address, input []byte, suppliedGas uint64, readOnly bool) (ret []byte, remainingGas uint64, err error)
}

// Configurator wires a precompile's Config into on-chain state at activation,
// matching dex/module.go and ai/module.go's configurator types.
type Configurator interface {
	MakeConfig() precompileconfig.Config
	Configure(chainConfig precompileconfig.ChainConfig, cfg precompileconfig.Config, state StateDB, blockContext ConfigurationBlockContext) error
}
