package model_test

import (
	"testing"
	"time"

	"tradepulse/backend/internal/model"
	"tradepulse/backend/pkg/engine"

	"gotest.tools/assert"
)

func TestTradingSnapshot_CloneIsolation(t *testing.T) {
	now := time.Now()
	snap := &model.TradingSnapshot{
		BotState: model.BotStateRunning,
		Tick: &model.MarketTick{
			Symbol:    engine.DefaultSymbol,
			LastPrice: 123.45,
			Timestamp: 1700000000,
		},
		Balance:     1000.5,
		Performance: engine.Metrics{"win_rate": 60},
		Trades: []engine.Trade{
			{ID: "t1", Direction: engine.DirectionRise, Status: engine.TradeStatusWon},
		},
		Signals: []engine.Signal{
			{ID: "s1", Direction: engine.DirectionFall},
		},
		ConnectionStatus: "connected",
		LastUpdated:      &now,
	}

	clone := snap.Clone()

	clone.Tick.LastPrice = 999
	clone.Performance["win_rate"] = 10
	clone.Trades[0].ID = "mutated"
	clone.Signals[0].ID = "mutated"
	*clone.LastUpdated = now.Add(time.Hour)
	clone.BotState = model.BotStateStopped

	assert.Equal(t, snap.Tick.LastPrice, 123.45)
	assert.Equal(t, snap.Performance["win_rate"], 60.0)
	assert.Equal(t, snap.Trades[0].ID, "t1")
	assert.Equal(t, snap.Signals[0].ID, "s1")
	assert.Equal(t, snap.LastUpdated.Equal(now), true)
	assert.Equal(t, snap.BotState, model.BotStateRunning)
}

func TestTradingSnapshot_CloneNilFields(t *testing.T) {
	snap := &model.TradingSnapshot{BotState: model.BotStateStopped}
	clone := snap.Clone()

	assert.Assert(t, clone.Tick == nil)
	assert.Assert(t, clone.Performance == nil)
	assert.Assert(t, clone.LastUpdated == nil)
	assert.Equal(t, clone.BotState, model.BotStateStopped)
}
