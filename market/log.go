// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package market

import (
	log "github.com/luxfi/log"

	"github.com/luxfi/geth/common"
)

// logger is the package-level structured logger, matching the
// log.Logger field threshold.ThresholdClient keeps for its own protocol
// operations. A market precompile has no per-instance configuration worth
// threading a logger through by constructor, so a package singleton is
// enough.
var logger = log.NewTestLogger(log.InfoLevel)

func logMarketCreated(marketID uint64, creator common.Address, backing uint64) {
	logger.Info("market created", "marketId", marketID, "creator", creator, "backing", backing)
}

func logTradeOpened(positionID, marketID uint64, trader common.Address, cost uint64) {
	logger.Debug("position opened", "positionId", positionID, "marketId", marketID, "trader", trader, "cost", cost)
}

func logPositionClosed(positionID uint64, realizedPnL int64) {
	logger.Debug("position closed", "positionId", positionID, "realizedPnL", realizedPnL)
}

func logMarketResolved(marketID uint64, finalMean, finalVariance uint64) {
	logger.Info("market resolved", "marketId", marketID, "finalMean", finalMean, "finalVariance", finalVariance)
}
