// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package precompileconfig reconstructs the slice of
// github.com/luxfi/precompile/precompileconfig exercised by the retrieved
// modules (dex/module.go, ai/module.go): the Config interface every
// per-precompile Config struct implements, the Upgrade helper embedded in
// those structs, and the ChainConfig handed to Configure at activation.
package precompileconfig

// Config is implemented by every precompile's own Config struct (see
// dex.Config, ai.Config, and market.Config in this repo).
type Config interface {
	Key() string
	Timestamp() *uint64
	IsDisabled() bool
	Equal(Config) bool
	Verify(ChainConfig) error
}

// ChainConfig is the subset of chain configuration a precompile's Configurator
// and Config.Verify may consult.
type ChainConfig interface {
	ChainID() uint64
}

// Upgrade is the embeddable activation toggle every retrieved Config struct
// carries as `Upgrade precompileconfig.Upgrade `json:"upgrade,omitempty"``.
type Upgrade struct {
	Disable        bool    `json:"disable,omitempty"`
	BlockTimestamp *uint64 `json:"blockTimestamp,omitempty"`
}

// Timestamp returns the activation timestamp, or nil if this upgrade has none.
func (u *Upgrade) Timestamp() *uint64 {
	return u.BlockTimestamp
}

// Equal reports whether two upgrades describe the same activation.
func (u *Upgrade) Equal(other *Upgrade) bool {
	if u == nil || other == nil {
		return u == other
	}
	if u.Disable != other.Disable {
		return false
	}
	if (u.BlockTimestamp == nil) != (other.BlockTimestamp == nil) {
		return false
	}
	if u.BlockTimestamp != nil && *u.BlockTimestamp != *other.BlockTimestamp {
		return false
	}
	return true
}
