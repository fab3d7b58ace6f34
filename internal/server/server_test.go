package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/atikulmunna/logdiagram/internal/aggregator"
	"github.com/atikulmunna/logdiagram/internal/diagram"
	"github.com/atikulmunna/logdiagram/internal/hub"
	"github.com/atikulmunna/logdiagram/internal/metrics"
	"github.com/atikulmunna/logdiagram/internal/model"
	"github.com/atikulmunna/logdiagram/internal/pipeline"
)

const qdmaLog = "[0.1] pf:init: ----- QDMA entering the probe function at x [Thread ID: 5]\n" +
	"[0.2] pf:probe: ----- QDMA exiting the probe function at x [Thread ID: 5]\n"

func newServer(t *testing.T, opts ...Option) *Server {
	m := metrics.New()
	gen := pipeline.New(nil, nil, m, zaptest.NewLogger(t))
	return New(gen, m, zaptest.NewLogger(t), ":0", opts...)
}

func post(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestDiagramEndpoint(t *testing.T) {
	s := newServer(t)

	rec := post(t, s, "/api/diagram", map[string]any{"log": qdmaLog, "type": "Sequence Diagram"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp diagramResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, diagram.TypeSequence, resp.Type)
	assert.Equal(t, model.DialectQDMA, resp.Dialect)
	assert.Equal(t, 2, resp.Entries)
	assert.Contains(t, resp.Source, "User->probe: entering")
	assert.True(t, strings.HasPrefix(resp.URL, "http://www.plantuml.com/plantuml/png/"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestDiagramEndpointFilters(t *testing.T) {
	s := newServer(t)

	rec := post(t, s, "/api/diagram", map[string]any{
		"log":     qdmaLog,
		"type":    "activity",
		"filters": map[string]any{"actions": []string{"exiting"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp diagramResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Entries)
	assert.Contains(t, resp.Source, ":Exit probe;")
	assert.NotContains(t, resp.Source, ":Enter probe;")
}

func TestDiagramEndpointLegacy(t *testing.T) {
	s := newServer(t)

	rec := post(t, s, "/api/diagram", map[string]any{"log": "Function foo is called\nFunction foo is completed"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp diagramResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Legacy)
	assert.Contains(t, resp.Source, "Caller -> foo: called")
}

func TestDiagramEndpointErrors(t *testing.T) {
	s := newServer(t)

	cases := []map[string]any{
		{"log": ""},
		{"log": "   \n  "},
		{"log": qdmaLog, "type": "gantt"},
		{"log": qdmaLog, "dialect": "syslog"},
	}
	for _, body := range cases {
		rec := post(t, s, "/api/diagram", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %v", body)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/diagram", strings.NewReader("{not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFacetsEndpoint(t *testing.T) {
	s := newServer(t)

	rec := post(t, s, "/api/facets", map[string]any{"log": qdmaLog + "[0.3] Command: dmactl qdma01000 q list\n"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp facetsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"command", "probe"}, resp.Functions)
	assert.Equal(t, []string{"pf", "system"}, resp.Modules)
	assert.Equal(t, []string{"5"}, resp.Threads)
	assert.Equal(t, resp.Functions, resp.DefaultSelection.Functions)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t)
	post(t, s, "/api/diagram", map[string]any{"log": qdmaLog})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"live":false`)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `logdiagram_diagrams_generated_total{type="sequence"} 1`)

	// Live routes are absent without a hub.
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebSocketStreamsUpdates(t *testing.T) {
	m := metrics.New()
	gen := pipeline.New(nil, nil, m, zaptest.NewLogger(t))
	input := make(chan model.RawLine, 10)
	h := hub.New(input, gen, hub.Config{Type: diagram.TypeSequence, Interval: 10 * time.Millisecond}, m, zaptest.NewLogger(t))
	agg := aggregator.New(h.Subscribe(), h.Received, h.Dropped, func() int { return 1 })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Start(ctx)
	go agg.Start(ctx)

	s := New(gen, m, zaptest.NewLogger(t), ":0", WithLive(h, agg))
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	input <- model.RawLine{Text: "Function foo is called", Source: "live.log"}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg liveMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "live.log", msg.Source)
	assert.True(t, msg.Legacy)
	assert.Contains(t, msg.Diagram, "participant foo")

	assert.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
		return rec.Code == http.StatusOK && strings.Contains(rec.Body.String(), `"legacy_sources":1`)
	}, 3*time.Second, 20*time.Millisecond)
}
