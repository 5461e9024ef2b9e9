package service

import (
	"bytes"
	"context"
	"sync"
	"time"

	"tradepulse/backend/internal/model"
	"tradepulse/backend/pkg/engine"
	"tradepulse/backend/pkg/logger"

	jsoniter "github.com/json-iterator/go"
)

var fastJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// PullAPI is the request/response surface the reconciler pulls
// authoritative state from.
type PullAPI interface {
	GetBalance(ctx context.Context) (float64, error)
	GetBotStatus(ctx context.Context) (*engine.BotStatusResponse, error)
	GetPerformance(ctx context.Context) (engine.Metrics, error)
	GetTradeHistory(ctx context.Context, limit int) ([]engine.Trade, error)
	GetSignals(ctx context.Context, limit int) ([]engine.Signal, error)
	StartBot(ctx context.Context) (*engine.CommandResponse, error)
	StopBot(ctx context.Context) (*engine.CommandResponse, error)
	ExecuteManualTrade(ctx context.Context, direction string, amount float64) (*engine.TradeReceipt, error)
}

// PushFeed is the duplex event channel the reconciler folds into the snapshot.
type PushFeed interface {
	Connect() error
	Disconnect()
	Subscribe(category string, fn engine.Listener) func()
	Status() engine.ConnState
}

// ReconcilerConfig carries the sync cadence and feed bounds.
type ReconcilerConfig struct {
	FeedCap                int
	BalanceRefreshInterval time.Duration
	FullRefreshInterval    time.Duration
	StatusSampleInterval   time.Duration
}

// Reconciler owns the authoritative trading snapshot for one session.
// Push-delivered deltas from the engine feed and periodic REST pulls are
// merged into a single consistent view handed to readers as copies.
type Reconciler struct {
	api  PullAPI
	feed PushFeed

	feedCap      int
	balanceEvery time.Duration
	fullEvery    time.Duration
	sampleEvery  time.Duration

	mu       sync.RWMutex
	snapshot model.TradingSnapshot

	subMu       sync.RWMutex
	subscribers []func(model.WSMessage)

	runMu  sync.Mutex
	runCtx context.Context
	cancel context.CancelFunc
	unsubs []func()
}

func NewReconciler(api PullAPI, feed PushFeed, cfg ReconcilerConfig) *Reconciler {
	if cfg.FeedCap <= 0 {
		cfg.FeedCap = 50
	}
	if cfg.BalanceRefreshInterval <= 0 {
		cfg.BalanceRefreshInterval = 30 * time.Second
	}
	if cfg.FullRefreshInterval <= 0 {
		cfg.FullRefreshInterval = 2 * time.Minute
	}
	if cfg.StatusSampleInterval <= 0 {
		cfg.StatusSampleInterval = 3 * time.Second
	}

	return &Reconciler{
		api:          api,
		feed:         feed,
		feedCap:      cfg.FeedCap,
		balanceEvery: cfg.BalanceRefreshInterval,
		fullEvery:    cfg.FullRefreshInterval,
		sampleEvery:  cfg.StatusSampleInterval,
		snapshot: model.TradingSnapshot{
			BotState:         model.BotStateStopped,
			ConnectionStatus: string(engine.StateDisconnected),
			Trades:           []engine.Trade{},
			Signals:          []engine.Signal{},
		},
	}
}

// Start wires the push handlers, connects the feed, performs the initial
// full pull and launches the periodic refresh loops. The loops stop when
// ctx is cancelled or Stop is called.
func (r *Reconciler) Start(ctx context.Context) {
	r.runMu.Lock()
	if r.cancel != nil {
		r.runMu.Unlock()
		logger.Warnf("Reconciler already started, ignoring")
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.runCtx = runCtx
	r.cancel = cancel
	r.unsubs = []func(){
		r.feed.Subscribe(engine.CategoryTick, r.onTick),
		r.feed.Subscribe(engine.CategoryTrade, r.onTrade),
		r.feed.Subscribe(engine.CategorySignal, r.onSignal),
		r.feed.Subscribe(engine.CategoryBalance, r.onBalance),
		r.feed.Subscribe(engine.CategoryPerformance, r.onPerformance),
	}
	r.runMu.Unlock()

	if err := r.feed.Connect(); err != nil {
		// retry loop takes over, pulls still work meanwhile
		logger.Errorf("Engine feed connect failed: %v", err)
	}

	if failed := r.RefreshAll(runCtx); len(failed) > 0 {
		logger.Warnf("Initial state refresh incomplete, %d pull(s) failed", len(failed))
	}

	go r.pollBalance(runCtx)
	go r.pollFullRefresh(runCtx)
	go r.sampleConnection(runCtx)

	logger.Infof("State reconciler started")
}

// Stop tears down the refresh loops, push subscriptions and the feed
// connection. Safe to call more than once.
func (r *Reconciler) Stop() {
	r.runMu.Lock()
	cancel := r.cancel
	unsubs := r.unsubs
	r.cancel = nil
	r.runCtx = nil
	r.unsubs = nil
	r.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	for _, unsub := range unsubs {
		unsub()
	}
	r.feed.Disconnect()
	logger.Infof("State reconciler stopped")
}

// Snapshot returns a deep copy of the current trading state.
func (r *Reconciler) Snapshot() *model.TradingSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot.Clone()
}

// ConnectionStatus reports the live engine link state, bypassing the
// sampled copy held in the snapshot.
func (r *Reconciler) ConnectionStatus() engine.ConnState {
	return r.feed.Status()
}

// SubscribeUpdates registers a handler invoked for every snapshot change.
// Handlers run on the updating goroutine and must not block.
func (r *Reconciler) SubscribeUpdates(fn func(model.WSMessage)) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	r.subscribers = append(r.subscribers, fn)
}

func (r *Reconciler) notify(msg model.WSMessage) {
	r.subMu.RLock()
	handlers := r.subscribers
	r.subMu.RUnlock()
	for _, h := range handlers {
		h(msg)
	}
}

// RefreshAll pulls every snapshot field from the engine in parallel. Each
// pull merges independently, so one failing leaves its field stale rather
// than clearing it. The returned map holds the error per failed field and
// is empty when everything settled. The last-updated stamp is set once all
// pulls have settled, regardless of individual outcomes.
func (r *Reconciler) RefreshAll(ctx context.Context) map[string]error {
	pulls := map[string]func(context.Context) error{
		"balance":     r.RefreshBalance,
		"bot_status":  r.RefreshBotStatus,
		"performance": r.RefreshPerformance,
		"trades":      r.RefreshTradeHistory,
		"signals":     r.RefreshSignals,
	}

	var (
		wg     sync.WaitGroup
		failMu sync.Mutex
		failed = make(map[string]error)
	)
	for field, pull := range pulls {
		wg.Add(1)
		go func(field string, pull func(context.Context) error) {
			defer wg.Done()
			if err := pull(ctx); err != nil {
				logger.Warnf("Refresh %s failed: %v", field, err)
				failMu.Lock()
				failed[field] = err
				failMu.Unlock()
			}
		}(field, pull)
	}
	wg.Wait()

	now := time.Now()
	r.mu.Lock()
	r.snapshot.LastUpdated = &now
	r.mu.Unlock()

	return failed
}

// RefreshBalance pulls the account balance.
func (r *Reconciler) RefreshBalance(ctx context.Context) error {
	balance, err := r.api.GetBalance(ctx)
	if err != nil {
		return err
	}
	r.setBalance(balance, "")
	return nil
}

// RefreshBotStatus pulls the bot run state.
func (r *Reconciler) RefreshBotStatus(ctx context.Context) error {
	status, err := r.api.GetBotStatus(ctx)
	if err != nil {
		return err
	}
	r.setBotState(status.Running)
	return nil
}

// RefreshPerformance pulls the performance metrics bag.
func (r *Reconciler) RefreshPerformance(ctx context.Context) error {
	metrics, err := r.api.GetPerformance(ctx)
	if err != nil {
		return err
	}
	r.setPerformance(metrics)
	return nil
}

// RefreshTradeHistory pulls the recent trade list.
func (r *Reconciler) RefreshTradeHistory(ctx context.Context) error {
	trades, err := r.api.GetTradeHistory(ctx, r.feedCap)
	if err != nil {
		return err
	}
	r.setTrades(trades)
	return nil
}

// RefreshSignals pulls the recent signal feed.
func (r *Reconciler) RefreshSignals(ctx context.Context) error {
	signals, err := r.api.GetSignals(ctx, r.feedCap)
	if err != nil {
		return err
	}
	r.setSignals(signals)
	return nil
}

// StartBot asks the engine to start automated trading. The snapshot is
// only updated from the engine's acknowledgement, never ahead of it.
func (r *Reconciler) StartBot(ctx context.Context) error {
	resp, err := r.api.StartBot(ctx)
	if err != nil {
		return err
	}
	r.setBotState(resp.Running)
	if err := r.RefreshPerformance(ctx); err != nil {
		logger.Warnf("Post-start performance refresh failed: %v", err)
	}
	return nil
}

// StopBot asks the engine to stop automated trading.
func (r *Reconciler) StopBot(ctx context.Context) error {
	resp, err := r.api.StopBot(ctx)
	if err != nil {
		return err
	}
	r.setBotState(resp.Running)
	if err := r.RefreshPerformance(ctx); err != nil {
		logger.Warnf("Post-stop performance refresh failed: %v", err)
	}
	return nil
}

// ExecuteManualTrade submits a one-shot trade. Settlement lands through
// the push feed and the periodic pulls, so the snapshot stays untouched.
func (r *Reconciler) ExecuteManualTrade(ctx context.Context, direction string, amount float64) (*engine.TradeReceipt, error) {
	return r.api.ExecuteManualTrade(ctx, direction, amount)
}

func (r *Reconciler) onTick(_ string, data []byte) {
	var ev engine.TickEvent
	if err := fastJSON.Unmarshal(data, &ev); err != nil {
		logger.Warnf("Dropping malformed tick frame: %v", err)
		return
	}
	r.setTick(ev)
}

func (r *Reconciler) onTrade(_ string, data []byte) {
	var ev engine.TradeEvent
	if err := fastJSON.Unmarshal(data, &ev); err != nil {
		logger.Warnf("Dropping malformed trade frame: %v", err)
		return
	}

	// the frame itself is only a hint; the REST history stays the source
	// of truth. Refresh off the dispatch goroutine to keep reads flowing.
	ctx := r.runContext()
	terminal := ev.IsTerminal()
	go func() {
		if err := r.RefreshTradeHistory(ctx); err != nil {
			logger.Warnf("Trade-event history refresh failed: %v", err)
		}
		if terminal {
			if err := r.RefreshPerformance(ctx); err != nil {
				logger.Warnf("Trade-event performance refresh failed: %v", err)
			}
		}
	}()
}

func (r *Reconciler) onSignal(_ string, data []byte) {
	var sig engine.Signal
	if err := fastJSON.Unmarshal(data, &sig); err != nil {
		logger.Warnf("Dropping malformed signal frame: %v", err)
		return
	}
	r.applySignal(sig)
}

func (r *Reconciler) onBalance(_ string, data []byte) {
	var ev engine.BalanceEvent
	if err := fastJSON.Unmarshal(data, &ev); err != nil {
		logger.Warnf("Dropping malformed balance frame: %v", err)
		return
	}
	r.setBalance(ev.Balance, ev.Currency)
}

func (r *Reconciler) onPerformance(_ string, data []byte) {
	var raw map[string]interface{}
	if err := fastJSON.Unmarshal(data, &raw); err != nil {
		logger.Warnf("Dropping malformed performance frame: %v", err)
		return
	}
	r.setPerformance(engine.MetricsFromPayload(raw))
}

func (r *Reconciler) setTick(ev engine.TickEvent) {
	tick := &model.MarketTick{
		Symbol:     ev.Symbol,
		LastPrice:  ev.Quote,
		Timestamp:  ev.Epoch,
		ReceivedAt: time.Now(),
	}
	r.mu.Lock()
	r.snapshot.Tick = tick
	r.mu.Unlock()
	r.notify(model.WSMessage{Type: model.MessageTypeTick, Data: tick})
}

func (r *Reconciler) setBalance(balance float64, currency string) {
	r.mu.Lock()
	if r.snapshot.Balance == balance {
		r.mu.Unlock()
		return
	}
	r.snapshot.Balance = balance
	r.mu.Unlock()
	r.notify(model.WSMessage{
		Type: model.MessageTypeBalance,
		Data: model.WSBalancePayload{Balance: balance, Currency: currency},
	})
}

func (r *Reconciler) setPerformance(metrics engine.Metrics) {
	r.mu.Lock()
	if jsonEqual(metrics, r.snapshot.Performance) {
		r.mu.Unlock()
		return
	}
	r.snapshot.Performance = metrics
	r.mu.Unlock()
	r.notify(model.WSMessage{Type: model.MessageTypePerformance, Data: metrics})
}

func (r *Reconciler) setBotState(running bool) {
	state := model.BotStateStopped
	if running {
		state = model.BotStateRunning
	}
	r.mu.Lock()
	if r.snapshot.BotState == state {
		r.mu.Unlock()
		return
	}
	r.snapshot.BotState = state
	r.mu.Unlock()
	r.notify(model.WSMessage{
		Type: model.MessageTypeBotState,
		Data: model.WSBotStatePayload{State: state},
	})
}

func (r *Reconciler) setTrades(list []engine.Trade) {
	trades := dedupeTrades(list, r.feedCap)
	r.mu.Lock()
	if jsonEqual(trades, r.snapshot.Trades) {
		r.mu.Unlock()
		return
	}
	r.snapshot.Trades = trades
	r.mu.Unlock()
	r.notify(model.WSMessage{Type: model.MessageTypeTrades, Data: trades})
}

// setSignals replaces the feed from a pull. The engine returns signals
// oldest first, so each entry is applied as an arrival to end up with a
// most-recent-first feed where a reused id keeps only the later signal.
func (r *Reconciler) setSignals(list []engine.Signal) {
	feed := make([]engine.Signal, 0, r.feedCap)
	for _, sig := range list {
		feed = prependSignal(feed, sig, r.feedCap)
	}

	r.mu.Lock()
	if jsonEqual(feed, r.snapshot.Signals) {
		r.mu.Unlock()
		return
	}
	r.snapshot.Signals = feed
	r.mu.Unlock()
	r.notify(model.WSMessage{Type: model.MessageTypeSignals, Data: feed})
}

func (r *Reconciler) applySignal(sig engine.Signal) {
	r.mu.Lock()
	next := prependSignal(r.snapshot.Signals, sig, r.feedCap)
	if jsonEqual(next, r.snapshot.Signals) {
		r.mu.Unlock()
		return
	}
	r.snapshot.Signals = next
	r.mu.Unlock()
	r.notify(model.WSMessage{Type: model.MessageTypeSignal, Data: sig})
}

func (r *Reconciler) setConnectionStatus(status string) {
	r.mu.Lock()
	if r.snapshot.ConnectionStatus == status {
		r.mu.Unlock()
		return
	}
	r.snapshot.ConnectionStatus = status
	r.mu.Unlock()
	r.notify(model.WSMessage{
		Type: model.MessageTypeConnection,
		Data: model.WSConnectionPayload{Status: status, Timestamp: time.Now()},
	})
}

func (r *Reconciler) pollBalance(ctx context.Context) {
	ticker := time.NewTicker(r.balanceEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.RefreshBalance(ctx); err != nil {
				logger.Warnf("Periodic balance refresh failed: %v", err)
			}
		}
	}
}

// pollFullRefresh is the fallback for anything the push feed missed.
func (r *Reconciler) pollFullRefresh(ctx context.Context) {
	ticker := time.NewTicker(r.fullEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RefreshAll(ctx)
		}
	}
}

func (r *Reconciler) sampleConnection(ctx context.Context) {
	ticker := time.NewTicker(r.sampleEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.setConnectionStatus(string(r.feed.Status()))
		}
	}
}

func (r *Reconciler) runContext() context.Context {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	if r.runCtx != nil {
		return r.runCtx
	}
	return context.Background()
}

// dedupeTrades keeps the first occurrence of each distinct trade record,
// preserving the engine's most-recent-first order, bounded to limit.
func dedupeTrades(in []engine.Trade, limit int) []engine.Trade {
	out := make([]engine.Trade, 0, limit)
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		raw, err := fastJSON.Marshal(t)
		if err != nil {
			continue
		}
		key := string(raw)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
		if len(out) == limit {
			break
		}
	}
	return out
}

// prependSignal puts sig at the head of the feed, dropping any earlier
// entry with the same id and truncating the oldest past limit.
func prependSignal(feed []engine.Signal, sig engine.Signal, limit int) []engine.Signal {
	for i := range feed {
		if feed[i].ID == sig.ID {
			feed = append(feed[:i:i], feed[i+1:]...)
			break
		}
	}
	next := make([]engine.Signal, 0, len(feed)+1)
	next = append(next, sig)
	next = append(next, feed...)
	if len(next) > limit {
		next = next[:limit]
	}
	return next
}

// jsonEqual compares two values by serialized form. Used to skip
// no-op snapshot replacements and the notifications they would fan out.
func jsonEqual(a, b interface{}) bool {
	rawA, err := fastJSON.Marshal(a)
	if err != nil {
		return false
	}
	rawB, err := fastJSON.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(rawA, rawB)
}
