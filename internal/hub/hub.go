package hub

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/atikulmunna/logdiagram/internal/diagram"
	"github.com/atikulmunna/logdiagram/internal/filter"
	"github.com/atikulmunna/logdiagram/internal/metrics"
	"github.com/atikulmunna/logdiagram/internal/model"
	"github.com/atikulmunna/logdiagram/internal/pipeline"
)

const subscriberBuffer = 64

// Update is a regenerated diagram for one tailed file.
type Update struct {
	Source string          `json:"source"`
	Lines  int             `json:"lines"`
	Result pipeline.Result `json:"result"`
}

// Config controls what the hub renders and how often.
type Config struct {
	Type     diagram.Type
	Dialect  model.Dialect
	Filters  filter.Selection
	Interval time.Duration // minimum spacing between rebuilds
	MaxLines int           // per-source window; 0 keeps every line
}

// Hub accumulates tailed lines per source, rebuilds that source's diagram
// when it changes, and broadcasts the result to every subscriber.
type Hub struct {
	cfg     Config
	gen     *pipeline.Generator
	input   <-chan model.RawLine
	limiter *rate.Limiter
	metrics *metrics.Metrics
	logger  *zap.Logger

	mu          sync.RWMutex
	lines       map[string][]string
	dirty       map[string]bool
	latest      map[string]Update
	subscribers []chan Update
	received    int64
	dropped     int64
}

// New creates a Hub reading from input.
func New(input <-chan model.RawLine, gen *pipeline.Generator, cfg Config, m *metrics.Metrics, logger *zap.Logger) *Hub {
	if cfg.Interval <= 0 {
		cfg.Interval = 500 * time.Millisecond
	}
	if m == nil {
		m = metrics.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		cfg:     cfg,
		gen:     gen,
		input:   input,
		limiter: rate.NewLimiter(rate.Every(cfg.Interval), 1),
		metrics: m,
		logger:  logger,
		lines:   make(map[string][]string),
		dirty:   make(map[string]bool),
		latest:  make(map[string]Update),
	}
}

// Subscribe returns a buffered channel that receives every Update.
func (h *Hub) Subscribe() <-chan Update {
	ch := make(chan Update, subscriberBuffer)
	h.mu.Lock()
	h.subscribers = append(h.subscribers, ch)
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (h *Hub) Unsubscribe(sub <-chan Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, ch := range h.subscribers {
		if ch == sub {
			close(ch)
			h.subscribers = append(h.subscribers[:i], h.subscribers[i+1:]...)
			return
		}
	}
}

// Latest returns the most recent Update for every source, sorted by source.
func (h *Hub) Latest() []Update {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Update, 0, len(h.latest))
	for _, u := range h.latest {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

// Received returns the number of raw lines taken from the input.
func (h *Hub) Received() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.received
}

// Dropped returns the number of updates dropped for slow subscribers.
func (h *Hub) Dropped() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Start consumes lines until the context is cancelled or the input closes.
// Sources changed while the limiter was saturated are rebuilt on the next tick.
func (h *Hub) Start(ctx context.Context) {
	defer h.closeAll()

	ticker := time.NewTicker(h.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-h.input:
			if !ok {
				h.flush(ctx)
				return
			}
			h.append(raw)
			if h.limiter.Allow() {
				h.flush(ctx)
			}
		case <-ticker.C:
			h.flush(ctx)
		}
	}
}

func (h *Hub) append(raw model.RawLine) {
	h.mu.Lock()
	defer h.mu.Unlock()
	lines := append(h.lines[raw.Source], raw.Text)
	if n := h.cfg.MaxLines; n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	h.lines[raw.Source] = lines
	h.dirty[raw.Source] = true
	h.received++
}

// flush rebuilds every dirty source.
func (h *Hub) flush(ctx context.Context) {
	h.mu.Lock()
	pending := make(map[string][]string, len(h.dirty))
	for src := range h.dirty {
		pending[src] = append([]string(nil), h.lines[src]...)
	}
	h.dirty = make(map[string]bool)
	h.mu.Unlock()

	for src, lines := range pending {
		res, err := h.gen.Generate(ctx, pipeline.Request{
			Lines:   lines,
			Type:    h.cfg.Type,
			Dialect: h.cfg.Dialect,
			Filters: h.cfg.Filters,
		})
		if err != nil {
			h.logger.Debug("skipping rebuild", zap.String("source", src), zap.Error(err))
			continue
		}

		h.metrics.Regenerations.Inc()
		h.broadcast(Update{Source: src, Lines: len(lines), Result: res})
	}
}

// broadcast records u as latest and offers it to every subscriber.
// A full subscriber channel drops the update for that subscriber only.
func (h *Hub) broadcast(u Update) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest[u.Source] = u
	for _, ch := range h.subscribers {
		select {
		case ch <- u:
		default:
			h.dropped++
			h.metrics.DroppedResults.Inc()
			h.logger.Debug("dropped update for slow subscriber",
				zap.String("source", u.Source), zap.Int64("total_dropped", h.dropped))
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = nil
}
