// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package modules

import (
	"github.com/luxfi/precompile/contract"
	"github.com/luxfi/geth/common"
)

// Module is the registration record every precompile package builds a package
// level var for (see ai.Module, dex's per-precompile modules, market.Module in
// this repo) and passes to RegisterModule from an init().
type Module struct {
	ConfigKey    string
	Address      common.Address
	Contract     contract.StatefulPrecompiledContract
	Configurator contract.Configurator
}

// moduleArray sorts Modules by address, giving deterministic iteration order
// for RegisteredModules.
type moduleArray []Module

func (m moduleArray) Len() int      { return len(m) }
func (m moduleArray) Swap(i, j int) { m[i], m[j] = m[j], m[i] }
func (m moduleArray) Less(i, j int) bool {
	return string(m[i].Address.Bytes()) < string(m[j].Address.Bytes())
}
