package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/atikulmunna/logdiagram/internal/hub"
	"github.com/atikulmunna/logdiagram/internal/model"
)

const window = 5 * time.Second

// Stats holds a point-in-time snapshot of the live session.
type Stats struct {
	Uptime         string           `json:"uptime"`
	LinesReceived  int64            `json:"lines_received"`
	Regenerations  int64            `json:"regenerations"`
	UpdatesPerSec  float64          `json:"updates_per_sec"`
	LegacySources  int              `json:"legacy_sources"`
	Entries        int              `json:"entries"`
	DistinctEvents int              `json:"distinct_events"` // unique (module, function, action) per source
	ActionCounts   map[string]int64 `json:"action_counts"`
	DroppedUpdates int64            `json:"dropped_updates"`
	FilesWatched   int              `json:"files_watched"`
}

// Aggregator subscribes to the Hub and summarizes the latest diagram of every source.
type Aggregator struct {
	mu            sync.RWMutex
	startTime     time.Time
	regenerations int64
	latest        map[string]hub.Update
	window        []time.Time // rebuild timestamps within the last 5 seconds
	received      func() int64
	dropped       func() int64
	fileCount     func() int
	updates       <-chan hub.Update
}

// New creates an Aggregator reading from a Hub subscription.
// The func arguments supply live counters from the Hub and Watcher.
func New(updates <-chan hub.Update, receivedFn, droppedFn func() int64, fileCountFn func() int) *Aggregator {
	return &Aggregator{
		startTime: time.Now(),
		latest:    make(map[string]hub.Update),
		received:  receivedFn,
		dropped:   droppedFn,
		fileCount: fileCountFn,
		updates:   updates,
	}
}

// Snapshot returns the current stats.
func (a *Aggregator) Snapshot() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	counts := make(map[string]int64)
	var entries, distinct, legacy int
	for _, u := range a.latest {
		if u.Result.Legacy {
			legacy++
			continue
		}
		entries += len(u.Result.Entries)
		distinct += len(model.Dedupe(u.Result.Entries))
		for _, e := range u.Result.Entries {
			counts[string(e.Action)]++
		}
	}

	cutoff := time.Now().Add(-window)
	var recent int
	for _, t := range a.window {
		if t.After(cutoff) {
			recent++
		}
	}

	return Stats{
		Uptime:         time.Since(a.startTime).Truncate(time.Second).String(),
		LinesReceived:  a.received(),
		Regenerations:  a.regenerations,
		UpdatesPerSec:  float64(recent) / window.Seconds(),
		LegacySources:  legacy,
		Entries:        entries,
		DistinctEvents: distinct,
		ActionCounts:   counts,
		DroppedUpdates: a.dropped(),
		FilesWatched:   a.fileCount(),
	}
}

// Start consumes updates until the context is cancelled or the subscription closes.
func (a *Aggregator) Start(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-a.updates:
			if !ok {
				return
			}
			a.record(u)
		case <-ticker.C:
			a.prune()
		}
	}
}

func (a *Aggregator) record(u hub.Update) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.regenerations++
	a.latest[u.Source] = u
	a.window = append(a.window, time.Now())
}

// prune drops rebuild timestamps older than the window.
func (a *Aggregator) prune() {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := time.Now().Add(-window)
	i := 0
	for _, t := range a.window {
		if t.After(cutoff) {
			a.window[i] = t
			i++
		}
	}
	a.window = a.window[:i]
}
