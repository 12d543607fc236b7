package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/casesync"
	"github.com/agentstation/casesync/internal/server"
	"github.com/agentstation/casesync/internal/server/response"
	"github.com/agentstation/casesync/pkg/cases"
	"github.com/agentstation/casesync/pkg/errors"
	"github.com/agentstation/casesync/pkg/logging"
	"github.com/agentstation/casesync/pkg/store"
	"github.com/agentstation/casesync/pkg/store/memory"
)

var epoch = time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)

func rec(caseID, deviceID, author int64, t int) cases.Case {
	p := int16(1)
	return cases.Case{
		CaseID:           caseID,
		DeviceID:         deviceID,
		ModificationTime: cases.NewTimestamp(epoch.Add(time.Duration(t) * time.Second)),
		Author:           author,
		Status:           "open",
		Description:      fmt.Sprintf("case %d/%d v%d", caseID, deviceID, t),
		Priority:         &p,
		TimeOfCrime:      cases.At(epoch),
	}
}

type testServer struct {
	*server.Server
	http  *httptest.Server
	store *memory.Store
}

func newTestServer(t *testing.T, mutate func(*server.Config), seed ...cases.Case) *testServer {
	t.Helper()

	st, err := memory.New(memory.WithCases(seed...))
	require.NoError(t, err)

	cfg := server.DefaultConfig()
	cfg.RateLimit = 0
	if mutate != nil {
		mutate(&cfg)
	}

	srv, err := server.New(st, cfg, logging.NewNopLogger())
	require.NoError(t, err)
	srv.Start()

	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		hs.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return &testServer{Server: srv, http: hs, store: st}
}

func (ts *testServer) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(ts.http.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func (ts *testServer) post(t *testing.T, body []byte) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.http.URL+"/case", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (ts *testServer) postCase(t *testing.T, c cases.Case) *http.Response {
	t.Helper()
	body, err := json.Marshal(c)
	require.NoError(t, err)
	return ts.post(t, body)
}

func (ts *testServer) listFor(t *testing.T, author int64, query string) []cases.Case {
	t.Helper()
	resp, body := ts.get(t, fmt.Sprintf("/casesForUser/%d%s", author, query))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var list []cases.Case
	require.NoError(t, json.Unmarshal(body, &list))
	return list
}

func TestNewValidates(t *testing.T) {
	st, err := memory.New()
	require.NoError(t, err)

	_, err = server.New(nil, server.DefaultConfig(), nil)
	assert.True(t, errors.IsValidationError(err))

	cfg := server.DefaultConfig()
	cfg.Port = 70000
	_, err = server.New(st, cfg, nil)
	assert.True(t, errors.IsValidationError(err))

	cfg = server.DefaultConfig()
	cfg.AuthEnabled = true
	_, err = server.New(st, cfg, nil)
	assert.True(t, errors.IsValidationError(err))
}

func TestConfigValidateNormalises(t *testing.T) {
	cfg := server.Config{PathPrefix: "api/v1/"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "/api/v1", cfg.PathPrefix)
	assert.Equal(t, server.DefaultConfig().CacheTTL, cfg.CacheTTL)
	assert.Equal(t, "X-API-Key", cfg.AuthHeader)

	cfg = server.Config{PathPrefix: "/"}
	require.NoError(t, cfg.Validate())
	assert.Empty(t, cfg.PathPrefix)

	assert.Equal(t, "localhost:8080", server.DefaultConfig().Addr())
}

func TestCasesForUser(t *testing.T) {
	ts := newTestServer(t, nil, rec(1, 1, 2, 10), rec(2, 1, 3, 10), rec(3, 1, 2, 20))

	list := ts.listFor(t, 2, "")
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), list[0].CaseID)
	assert.Equal(t, int64(3), list[1].CaseID)

	// bare array, never null
	resp, body := ts.get(t, "/casesForUser/42")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]\n", string(body))

	resp, _ = ts.get(t, "/casesForUser/abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.get(t, "/casesForUser/-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	filtered := ts.listFor(t, 2, "?modified_after="+epoch.Add(15*time.Second).Format(time.RFC3339))
	require.Len(t, filtered, 1)
	assert.Equal(t, int64(3), filtered[0].CaseID)
}

func TestCasesForUserIsCached(t *testing.T) {
	ts := newTestServer(t, nil, rec(1, 1, 2, 10))

	ts.listFor(t, 2, "")
	ts.listFor(t, 2, "")

	stats := ts.Cache().GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

// pausingStore blocks its first List until release is closed.
type pausingStore struct {
	store.Store
	entered chan struct{}
	release chan struct{}
	paused  atomic.Bool
}

func (p *pausingStore) List(ctx context.Context) ([]cases.Case, error) {
	list, err := p.Store.List(ctx)
	if p.paused.CompareAndSwap(false, true) {
		close(p.entered)
		<-p.release
	}
	return list, err
}

func TestCasesForUserNotCachedAcrossUpload(t *testing.T) {
	mem, err := memory.New()
	require.NoError(t, err)
	st := &pausingStore{Store: mem, entered: make(chan struct{}), release: make(chan struct{})}

	cfg := server.DefaultConfig()
	cfg.RateLimit = 0
	srv, err := server.New(st, cfg, logging.NewNopLogger())
	require.NoError(t, err)
	srv.Start()
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		hs.Close()
		_ = srv.Shutdown(context.Background())
	})

	status := func(resp *http.Response, err error) int {
		if err != nil {
			return 0
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	listed := make(chan int, 1)
	go func() { listed <- status(http.Get(hs.URL + "/casesForUser/2")) }()
	<-st.entered

	body, err := json.Marshal(rec(1, 1, 2, 10))
	require.NoError(t, err)
	posted := make(chan int, 1)
	go func() {
		posted <- status(http.Post(hs.URL+"/case", "application/json", bytes.NewReader(body)))
	}()

	// give the upload a chance to race the paused listing
	time.Sleep(50 * time.Millisecond)
	close(st.release)
	assert.Equal(t, http.StatusOK, <-listed)
	assert.Equal(t, http.StatusCreated, <-posted)

	resp, err := http.Get(hs.URL + "/casesForUser/2")
	require.NoError(t, err)
	defer resp.Body.Close()
	var list []cases.Case
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Len(t, list, 1, "listing after accepted upload")
}

func TestUpsertCase(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.listFor(t, 2, "") // warm the cache

	resp := ts.postCase(t, rec(1, 1, 2, 10))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var stored cases.Case
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stored))
	assert.Equal(t, cases.Key{CaseID: 1, DeviceID: 1}, stored.Key())

	// cache invalidated on write
	list := ts.listFor(t, 2, "")
	require.Len(t, list, 1)

	t.Run("newer replaces", func(t *testing.T) {
		resp := ts.postCase(t, rec(1, 1, 2, 20))
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "case 1/1 v20", ts.listFor(t, 2, "")[0].Description)
	})

	t.Run("equal timestamp replaces", func(t *testing.T) {
		c := rec(1, 1, 2, 20)
		c.Status = "closed"
		resp := ts.postCase(t, c)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "closed", ts.listFor(t, 2, "")[0].Status)
	})

	t.Run("older is rejected", func(t *testing.T) {
		resp := ts.postCase(t, rec(1, 1, 2, 5))
		assert.Equal(t, http.StatusConflict, resp.StatusCode)

		var env response.Response
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
		require.NotNil(t, env.Error)
		assert.Equal(t, "CONFLICT", env.Error.Code)

		assert.Equal(t, "case 1/1 v20", ts.listFor(t, 2, "")[0].Description)
	})

	t.Run("author change invalidates both listings", func(t *testing.T) {
		ts.listFor(t, 3, "")
		resp := ts.postCase(t, rec(1, 1, 3, 30))
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Empty(t, ts.listFor(t, 2, ""))
		assert.Len(t, ts.listFor(t, 3, ""), 1)
	})
}

func TestUpsertCaseRejectsBadInput(t *testing.T) {
	ts := newTestServer(t, func(c *server.Config) { c.MaxBodyBytes = 512 })

	tests := []struct {
		name   string
		body   []byte
		status int
	}{
		{"malformed json", []byte(`{"caseid":`), http.StatusBadRequest},
		{"bad timestamp", []byte(`{"caseid":1,"deviceid":1,"modificationtime":"soon"}`), http.StatusBadRequest},
		{"missing modification time", []byte(`{"caseid":1,"deviceid":1}`), http.StatusBadRequest},
		{"too large", []byte(`{"description":"` + strings.Repeat("x", 1024) + `"}`), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.post(t, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
	assert.Zero(t, ts.store.Len())

	resp, err := http.Get(ts.http.URL + "/case")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestPathPrefix(t *testing.T) {
	ts := newTestServer(t, func(c *server.Config) { c.PathPrefix = "/api" }, rec(1, 1, 2, 10))

	resp, _ := ts.get(t, "/api/casesForUser/2")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = ts.get(t, "/casesForUser/2")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = ts.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthReadyStats(t *testing.T) {
	ts := newTestServer(t, nil, rec(1, 1, 2, 10), rec(2, 1, 3, 10))

	for _, path := range []string{"/health", "/ready", "/stats"} {
		resp, body := ts.get(t, path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)

		var env struct {
			Data  map[string]any  `json:"data"`
			Error *response.Error `json:"error"`
		}
		require.NoError(t, json.Unmarshal(body, &env), path)
		assert.Nil(t, env.Error)
		assert.NotEmpty(t, env.Data)
	}

	_, body := ts.get(t, "/stats")
	assert.Contains(t, string(body), `"total":2`)
	assert.Contains(t, string(body), `"authors":2`)
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, _ := ts.get(t, "/health")
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t, func(c *server.Config) {
		c.AuthEnabled = true
		c.APIKey = "k1"
	}, rec(1, 1, 2, 10))

	resp, _ := ts.get(t, "/casesForUser/2")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = ts.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	client, err := casesync.New(
		casesync.WithEndpoint(ts.http.URL),
		casesync.WithUserID(2),
		casesync.WithAPIKey("k1"),
		casesync.WithLogger(logging.NewNopLogger()),
	)
	require.NoError(t, err)
	defer client.Close()

	result, err := client.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
}

func TestRateLimited(t *testing.T) {
	ts := newTestServer(t, func(c *server.Config) { c.RateLimit = 2 })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, _ := ts.get(t, "/casesForUser/1")
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestWebSocketStreamsUpserts(t *testing.T) {
	ts := newTestServer(t, nil)

	url := "ws" + strings.TrimPrefix(ts.http.URL, "http") + "/updates/ws?user=2"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() map[string]any {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg map[string]any
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	}

	assert.Equal(t, "client.connected", read()["type"])
	require.Eventually(t, func() bool { return ts.WSHub().ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	// another user's case is filtered out
	require.Equal(t, http.StatusCreated, ts.postCase(t, rec(9, 9, 3, 10)).StatusCode)
	require.Equal(t, http.StatusCreated, ts.postCase(t, rec(1, 1, 2, 10)).StatusCode)

	msg := read()
	assert.Equal(t, "case.upserted", msg["type"])
	data, ok := msg["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1/1", data["key"])
	assert.Equal(t, true, data["created"])

	require.Equal(t, http.StatusConflict, ts.postCase(t, rec(1, 1, 2, 5)).StatusCode)
	assert.Equal(t, "case.rejected", read()["type"])
}

func TestWebSocketRejectsBadUser(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, _ := ts.get(t, "/updates/ws?user=x")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// TestClientRoundTrip drives the sync client against the server: one
// client uploads, a second one with an empty replica syncs it down.
func TestClientRoundTrip(t *testing.T) {
	ts := newTestServer(t, nil, rec(1, 1, 2, 10))
	ctx := context.Background()

	newClient := func() (casesync.Client, *memory.Store) {
		st, err := memory.New()
		require.NoError(t, err)
		c, err := casesync.New(
			casesync.WithEndpoint(ts.http.URL),
			casesync.WithUserID(2),
			casesync.WithStore(st),
			casesync.WithLogger(logging.NewNopLogger()),
		)
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })
		return c, st
	}

	writer, _ := newClient()
	require.NoError(t, writer.Upload(ctx, rec(2, 1, 2, 20)))

	// an older revision loses on the server
	err := writer.Upload(ctx, rec(2, 1, 2, 15))
	assert.Error(t, err)

	reader, st := newClient()
	result, err := reader.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Added)
	assert.Equal(t, 2, st.Len())

	again, err := reader.Sync(ctx)
	require.NoError(t, err)
	assert.False(t, again.HasChanges())

	// newer server copy updates the replica
	require.NoError(t, writer.Upload(ctx, rec(1, 1, 2, 30)))
	result, err = reader.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)

	got, ok, err := st.Get(ctx, cases.Key{CaseID: 1, DeviceID: 1})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "case 1/1 v30", got.Description)
}

func TestServeStopsOnCancel(t *testing.T) {
	st, err := memory.New()
	require.NoError(t, err)
	srv, err := server.New(st, server.DefaultConfig(), logging.NewNopLogger())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
