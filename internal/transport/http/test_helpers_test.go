package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-client/internal/config"
	"github.com/vovakirdan/wirechat-client/internal/core"
	"github.com/vovakirdan/wirechat-client/internal/memnet"
	"github.com/vovakirdan/wirechat-client/internal/store"
	"github.com/vovakirdan/wirechat-client/internal/store/sqlite"
)

const (
	selfID = "11111111-1111-1111-1111-111111111111"
	peerID = "22222222-2222-2222-2222-222222222222"
)

type testEnv struct {
	self    *core.ChatClient
	peer    *core.ChatClient
	history store.HistoryStore
	server  *http.Server
}

// newTestEnv logs in the local client and one peer on an in-memory network.
func newTestEnv(t *testing.T, withHistory bool) *testEnv {
	t.Helper()

	disabledLogger := zerolog.New(nil)
	network := memnet.New()
	env := &testEnv{}

	var recorder core.HistoryRecorder
	if withHistory {
		st, err := sqlite.New(":memory:")
		if err != nil {
			t.Fatalf("failed to create test store: %v", err)
		}
		t.Cleanup(func() { _ = st.Close() })
		env.history = st
		recorder = st
	}

	newClient := func(id string, history core.HistoryRecorder) *core.ChatClient {
		node := network.Join(core.Endpoint{ClientID: id, Address: "mem://" + id})
		c := core.NewChatClient(core.Options{
			ChatEndpoint:  node.Endpoint(),
			Presence:      node,
			Chat:          node,
			History:       history,
			EnableLogging: history != nil,
			Logger:        &disabledLogger,
		})
		t.Cleanup(func() { _ = c.Close() })
		return c
	}
	env.self = newClient(selfID, recorder)
	env.peer = newClient(peerID, nil)

	ctx := context.Background()
	if err := env.self.Login(ctx, "Me", nil); err != nil {
		t.Fatalf("self login: %v", err)
	}
	if err := env.peer.Login(ctx, "Peer", core.Properties{"team": "blue"}); err != nil {
		t.Fatalf("peer login: %v", err)
	}

	env.server = NewServer(env.self, env.history, config.Config{
		HTTPAddr:          ":0",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
	}, &disabledLogger)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp := httptest.NewRecorder()
	e.server.Handler.ServeHTTP(resp, req)
	return resp
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to unmarshal response %q: %v", resp.Body.String(), err)
	}
	return out
}
