package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/atikulmunna/logdiagram/internal/diagram"
	"github.com/atikulmunna/logdiagram/internal/metrics"
	"github.com/atikulmunna/logdiagram/internal/model"
	"github.com/atikulmunna/logdiagram/internal/pipeline"
)

func newHub(t *testing.T, input chan model.RawLine, interval time.Duration) *Hub {
	m := metrics.New()
	gen := pipeline.New(nil, nil, m, zaptest.NewLogger(t))
	return New(input, gen, Config{Type: diagram.TypeSequence, Interval: interval}, m, zaptest.NewLogger(t))
}

func waitFor(t *testing.T, ch <-chan Update, cond func(Update) bool) Update {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case u, ok := <-ch:
			require.True(t, ok, "subscription closed early")
			if cond(u) {
				return u
			}
		case <-deadline:
			t.Fatal("timed out waiting for update")
		}
	}
}

func TestHubBroadcastsToAllSubscribers(t *testing.T) {
	input := make(chan model.RawLine, 10)
	h := newHub(t, input, 20*time.Millisecond)

	sub1 := h.Subscribe()
	sub2 := h.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Start(ctx)

	input <- model.RawLine{Text: "[0.1] pf:init: ----- QDMA entering the probe function at x [Thread ID: 5]", Source: "a.log"}
	input <- model.RawLine{Text: "[0.2] pf:probe: ----- QDMA exiting the probe function at x [Thread ID: 5]", Source: "a.log"}

	complete := func(u Update) bool { return u.Lines == 2 }
	for _, sub := range []<-chan Update{sub1, sub2} {
		u := waitFor(t, sub, complete)
		assert.Equal(t, "a.log", u.Source)
		assert.Contains(t, u.Result.Source, "probe-->User: exiting")
	}

	assert.Equal(t, int64(2), h.Received())
	latest := h.Latest()
	require.Len(t, latest, 1)
	assert.Equal(t, "a.log", latest[0].Source)
}

func TestHubKeepsSourcesSeparate(t *testing.T) {
	input := make(chan model.RawLine, 10)
	h := newHub(t, input, 10*time.Millisecond)
	sub := h.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Start(ctx)

	input <- model.RawLine{Text: "Function foo is called", Source: "b.log"}
	input <- model.RawLine{Text: "[0.1] pf:init: ----- QDMA entering the probe function at x [Thread ID: 5]", Source: "a.log"}

	u := waitFor(t, sub, func(u Update) bool { return u.Source == "b.log" })
	assert.True(t, u.Result.Legacy)

	waitFor(t, sub, func(u Update) bool { return u.Source == "a.log" })
	assert.Len(t, h.Latest(), 2)
}

func TestHubSlowSubscriber(t *testing.T) {
	input := make(chan model.RawLine, subscriberBuffer*2)
	h := newHub(t, input, time.Millisecond)

	// Subscribe but never read.
	_ = h.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Start(ctx)

	for i := 0; i < subscriberBuffer*2; i++ {
		input <- model.RawLine{Text: "Function foo is called", Source: "slow.log"}
		time.Sleep(time.Millisecond)
	}

	assert.Eventually(t, func() bool { return h.Dropped() > 0 }, 3*time.Second, 20*time.Millisecond)
}

func TestHubUnsubscribe(t *testing.T) {
	h := newHub(t, make(chan model.RawLine), time.Second)
	sub := h.Subscribe()
	h.Unsubscribe(sub)

	_, ok := <-sub
	assert.False(t, ok)
}

func TestHubClosesSubscribersOnInputClose(t *testing.T) {
	input := make(chan model.RawLine, 1)
	h := newHub(t, input, time.Hour)
	sub := h.Subscribe()

	done := make(chan struct{})
	go func() {
		h.Start(context.Background())
		close(done)
	}()

	input <- model.RawLine{Text: "Function foo is called", Source: "c.log"}
	close(input)

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("hub did not stop")
	}

	var last Update
	for u := range sub {
		last = u
	}
	assert.Equal(t, "c.log", last.Source)
}

func TestHubMaxLinesKeepsNewest(t *testing.T) {
	m := metrics.New()
	gen := pipeline.New(nil, nil, m, zaptest.NewLogger(t))
	input := make(chan model.RawLine, 3)
	h := New(input, gen, Config{Type: diagram.TypeSequence, Interval: time.Hour, MaxLines: 2}, m, zaptest.NewLogger(t))

	input <- model.RawLine{Text: "Function first is called", Source: "a.log"}
	input <- model.RawLine{Text: "Function second is called", Source: "a.log"}
	input <- model.RawLine{Text: "Function third is called", Source: "a.log"}
	close(input)

	// Start returns once the closed input has been drained and flushed.
	h.Start(context.Background())

	assert.Equal(t, int64(3), h.Received())
	latest := h.Latest()
	require.Len(t, latest, 1)
	assert.Equal(t, 2, latest[0].Lines)
	assert.NotContains(t, latest[0].Result.Source, "first")
	assert.Contains(t, latest[0].Result.Source, "participant second")
	assert.Contains(t, latest[0].Result.Source, "participant third")
}
