package subscription

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"contractbind/internal/contract"
	"contractbind/internal/metrics"
	"contractbind/internal/model"
)

const (
	DefaultPollInterval           = time.Second
	DefaultMaxConsecutiveFailures = 5
)

var (
	// ErrSubscriptionFailed is delivered once to every subscription that is
	// moved to Errored after repeated polling failures.
	ErrSubscriptionFailed = errors.New("subscription failed")
	ErrAnonymousEvent     = errors.New("anonymous events cannot be subscribed to")
)

// LogSource is the part of the node endpoint the manager polls.
type LogSource interface {
	HeadBlockNumber(ctx context.Context) (uint64, error)
	GetLogs(ctx context.Context, query model.LogQuery) ([]model.LogRecord, error)
}

// Callback receives either a decoded event or an error, never both.
type Callback func(ev *model.DecodedEvent, err error)

// State is the lifecycle state of a subscription.
type State int

const (
	Unknown State = iota
	Active
	Cancelled
	Errored
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Cancelled:
		return "cancelled"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Config tunes a Manager.
type Config struct {
	PollInterval           time.Duration
	MaxConsecutiveFailures int
	Logger                 *zap.Logger
	Metrics                *metrics.Subscriptions
}

type subscription struct {
	token    string
	address  common.Address
	event    *contract.Event
	filter   contract.IndexFilter
	callback Callback
}

// Manager owns a set of event subscriptions and the single polling driver
// that advances all of them. The driver starts with the first subscription
// and stops when the last one is removed.
type Manager struct {
	source  LogSource
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Subscriptions

	mu          sync.Mutex
	subs        map[string]*subscription
	order       []string
	terminal    map[string]State
	gen         uint64
	cancel      context.CancelFunc
	initialized bool
	lastSeen    uint64
	failures    int
	wg          sync.WaitGroup

	// manual disables the background driver; tests call tick directly.
	manual bool
}

// NewManager builds a manager polling source.
func NewManager(source LogSource, cfg Config) *Manager {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxConsecutiveFailures <= 0 {
		cfg.MaxConsecutiveFailures = DefaultMaxConsecutiveFailures
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		source:   source,
		cfg:      cfg,
		logger:   logger,
		metrics:  cfg.Metrics,
		subs:     make(map[string]*subscription),
		terminal: make(map[string]State),
	}
}

// Subscribe registers a callback for an event emitted by address. It
// returns immediately. A new polling run delivers logs starting with the
// block at the first head it observes, so a block mined right after
// Subscribe returns is not skipped.
func (m *Manager) Subscribe(address common.Address, event *contract.Event, filter contract.IndexFilter, cb Callback) (string, error) {
	if event == nil {
		return "", fmt.Errorf("%w: nil event", contract.ErrUnknownEvent)
	}
	if cb == nil {
		return "", errors.New("callback is nil")
	}
	if event.Anonymous {
		return "", fmt.Errorf("%w: %s", ErrAnonymousEvent, event.Signature)
	}
	if _, err := event.FilterTopics(filter); err != nil {
		return "", err
	}

	copied := make(contract.IndexFilter, len(filter))
	for k, v := range filter {
		copied[k] = v
	}
	sub := &subscription{
		token:    uuid.NewString(),
		address:  address,
		event:    event,
		filter:   copied,
		callback: cb,
	}

	m.mu.Lock()
	m.subs[sub.token] = sub
	m.order = append(m.order, sub.token)
	m.metrics.SetActive(len(m.subs))
	if m.cancel == nil {
		m.startLocked()
	}
	m.mu.Unlock()

	m.logger.Info("subscribe", zap.String("token", sub.token), zap.String("event", event.Signature), zap.String("address", address.Hex()))
	return sub.token, nil
}

// Unsubscribe removes a subscription. Unknown tokens are ignored.
func (m *Manager) Unsubscribe(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[token]; !ok {
		return
	}
	m.removeLocked(token, Cancelled)
	if len(m.subs) == 0 {
		m.stopLocked()
	}
}

// UnsubscribeAll removes every subscription and stops polling. It never
// fails and does not wait for an in-flight tick.
func (m *Manager) UnsubscribeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, token := range append([]string(nil), m.order...) {
		m.removeLocked(token, Cancelled)
	}
	m.stopLocked()
}

// Close unsubscribes everything and waits for the polling driver to exit.
// It must not be called from a callback.
func (m *Manager) Close() {
	m.UnsubscribeAll()
	m.wg.Wait()
}

// Active returns the number of active subscriptions.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// State reports the state of a subscription token.
func (m *Manager) State(token string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[token]; ok {
		return Active
	}
	return m.terminal[token]
}

// LastSeen returns the last block processed and whether a head has been
// recorded yet.
func (m *Manager) LastSeen() (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSeen, m.initialized
}

func (m *Manager) removeLocked(token string, state State) {
	delete(m.subs, token)
	m.terminal[token] = state
	for i, t := range m.order {
		if t == token {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.metrics.SetActive(len(m.subs))
}

// startLocked begins a new polling run. Each run starts with the block at
// the head it first observes.
func (m *Manager) startLocked() {
	m.gen++
	m.initialized = false
	m.failures = 0
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	if m.manual {
		return
	}
	m.wg.Add(1)
	go m.run(ctx, m.gen)
}

func (m *Manager) stopLocked() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.cancel = nil
	m.gen++
}

func (m *Manager) run(ctx context.Context, gen uint64) {
	defer m.wg.Done()
	m.logger.Debug("poller started", zap.Uint64("generation", gen))
	defer m.logger.Debug("poller stopped", zap.Uint64("generation", gen))

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()
	for {
		m.tick(ctx, gen)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// snapshot returns the active subscriptions of run gen in subscription
// order, or false when the run has been superseded.
func (m *Manager) snapshot(gen uint64) ([]*subscription, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return nil, false
	}
	out := make([]*subscription, 0, len(m.order))
	for _, token := range m.order {
		out = append(out, m.subs[token])
	}
	return out, true
}

func (m *Manager) isActive(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.subs[token]
	return ok
}

// tick runs one polling step of run gen. No lock is held while talking to
// the source.
func (m *Manager) tick(ctx context.Context, gen uint64) {
	subs, ok := m.snapshot(gen)
	if !ok || len(subs) == 0 {
		return
	}
	m.metrics.Tick()

	head, err := m.source.HeadBlockNumber(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		m.failTick(gen, fmt.Errorf("get head block: %w", err))
		return
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	from := head
	if m.initialized {
		if head <= m.lastSeen {
			m.failures = 0
			m.mu.Unlock()
			return
		}
		from = m.lastSeen + 1
	} else {
		m.logger.Debug("record head", zap.Uint64("head", head))
	}
	m.mu.Unlock()

	logs, err := m.source.GetLogs(ctx, buildQuery(subs, from, head))
	if ctx.Err() != nil {
		return
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	// The cursor moves past this range whether or not the fetch succeeded.
	m.lastSeen = head
	m.initialized = true
	m.mu.Unlock()
	m.metrics.SetCursor(head)

	if err != nil {
		m.failTick(gen, fmt.Errorf("get logs %d-%d: %w", from, head, err))
		return
	}

	m.mu.Lock()
	m.failures = 0
	m.mu.Unlock()

	m.logger.Debug("fetch logs", zap.Uint64("from", from), zap.Uint64("to", head), zap.Int("logs", len(logs)))
	for _, log := range logs {
		if log.Removed {
			continue
		}
		for _, sub := range subs {
			m.deliver(sub, log)
		}
	}
}

func (m *Manager) deliver(sub *subscription, log model.LogRecord) {
	if log.Address != sub.address || log.Topic0() != sub.event.ID {
		return
	}
	ev, err := sub.event.DecodeLog(log)
	if err != nil {
		m.metrics.DecodeFailed()
		m.logger.Warn("decode log failed", zap.String("token", sub.token), zap.String("tx", log.TxHash.Hex()), zap.Uint64("log_index", log.LogIndex), zap.Error(err))
		if m.isActive(sub.token) {
			sub.callback(nil, err)
		}
		return
	}
	matched, err := sub.event.Matches(ev, sub.filter)
	if err != nil || !matched {
		return
	}
	if !m.isActive(sub.token) {
		return
	}
	m.metrics.Delivered(sub.event.Name)
	sub.callback(ev, nil)
}

// failTick reports err to every active subscription. After
// MaxConsecutiveFailures failing ticks the subscriptions are moved to
// Errored and the run stops.
func (m *Manager) failTick(gen uint64, err error) {
	m.metrics.TickFailed()

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.failures++
	failures := m.failures
	exhausted := failures >= m.cfg.MaxConsecutiveFailures
	var errored []*subscription
	if exhausted {
		for _, token := range append([]string(nil), m.order...) {
			errored = append(errored, m.subs[token])
			m.removeLocked(token, Errored)
		}
		m.stopLocked()
	}
	m.mu.Unlock()

	m.logger.Warn("poll tick failed", zap.Int("consecutive", failures), zap.Error(err))
	if exhausted {
		final := fmt.Errorf("%w after %d consecutive failures: %w", ErrSubscriptionFailed, failures, err)
		for _, sub := range errored {
			sub.callback(nil, final)
		}
		return
	}

	subs, ok := m.snapshot(gen)
	if !ok {
		return
	}
	for _, sub := range subs {
		if m.isActive(sub.token) {
			sub.callback(nil, err)
		}
	}
}

// buildQuery covers every subscribed address and event topic.
func buildQuery(subs []*subscription, from, to uint64) model.LogQuery {
	seenAddr := make(map[common.Address]struct{}, len(subs))
	seenTopic := make(map[common.Hash]struct{}, len(subs))
	query := model.LogQuery{FromBlock: from, ToBlock: to}
	var topic0 []common.Hash
	for _, sub := range subs {
		if _, ok := seenAddr[sub.address]; !ok {
			seenAddr[sub.address] = struct{}{}
			query.Addresses = append(query.Addresses, sub.address)
		}
		if _, ok := seenTopic[sub.event.ID]; !ok {
			seenTopic[sub.event.ID] = struct{}{}
			topic0 = append(topic0, sub.event.ID)
		}
	}
	query.Topics = [][]common.Hash{topic0}
	return query
}
