package http

import (
	"context"
	"net/http"
	"testing"

	"github.com/vovakirdan/wirechat-client/internal/core"
	"github.com/vovakirdan/wirechat-client/internal/proto"
)

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.do(t, http.MethodGet, "/health", "")
	if resp.Code != http.StatusOK || resp.Body.String() != "ok" {
		t.Fatalf("unexpected health response: %d %q", resp.Code, resp.Body.String())
	}
}

func TestGetSelfAndBuddies(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.do(t, http.MethodGet, "/api/self", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	self := decode[SelfResponse](t, resp)
	if self.ID != selfID || self.DisplayName != "Me" || !self.LoggedIn || !self.UpdatesEnabled {
		t.Errorf("unexpected self: %+v", self)
	}

	resp = env.do(t, http.MethodGet, "/api/buddies", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	buddies := decode[[]proto.Buddy](t, resp)
	if len(buddies) != 1 {
		t.Fatalf("expected 1 buddy, got %d", len(buddies))
	}
	peer := buddies[0]
	if peer.ID != peerID || peer.DisplayName != "Peer" || peer.Status != "online" || !peer.Online {
		t.Errorf("unexpected buddy: %+v", peer)
	}
	if peer.Properties["team"] != "blue" || peer.Endpoint.Address != "mem://"+peerID {
		t.Errorf("unexpected buddy details: %+v", peer)
	}

	resp = env.do(t, http.MethodGet, "/api/buddies/"+peerID, "")
	if resp.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.Code)
	}
	resp = env.do(t, http.MethodGet, "/api/buddies/nobody", "")
	if resp.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", resp.Code)
	}
}

func TestUpdateSelfPublishes(t *testing.T) {
	env := newTestEnv(t, false)

	var seen []core.BuddyState
	env.peer.OnBuddyUpdated(func(ev core.BuddyEvent) { seen = append(seen, ev.Buddy.Snapshot()) })

	resp := env.do(t, http.MethodPatch, "/api/self", `{"display_name":"Me Too","status":"away","properties":{"mood":"calm"}}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	self := decode[SelfResponse](t, resp)
	if self.DisplayName != "Me Too" || self.Status != "away" || self.Properties["mood"] != "calm" {
		t.Errorf("unexpected self: %+v", self)
	}

	// One publish per setter.
	if len(seen) != 3 {
		t.Fatalf("expected 3 updates at the peer, got %d", len(seen))
	}
	last := seen[len(seen)-1]
	if last.DisplayName != "Me Too" || last.Status != core.StatusAway || last.Properties["mood"] != "calm" {
		t.Errorf("peer saw %+v", last)
	}

	resp = env.do(t, http.MethodPatch, "/api/self", `{"remove_properties":["mood"]}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if _, ok := seen[len(seen)-1].Properties["mood"]; ok {
		t.Errorf("peer still sees removed property")
	}

	before := len(seen)
	resp = env.do(t, http.MethodPatch, "/api/self", `{"display_name":"X","status":"sleeping"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	if len(seen) != before {
		t.Errorf("invalid request must not publish anything")
	}
	if name := env.self.CurrentUser().DisplayName(); name != "Me Too" {
		t.Errorf("invalid request must not mutate, display name is %q", name)
	}
}

func TestStartAndLeaveChat(t *testing.T) {
	env := newTestEnv(t, false)

	var inbound []core.ChatStartedEvent
	env.peer.OnChatStarted(func(ev core.ChatStartedEvent) { inbound = append(inbound, ev) })

	resp := env.do(t, http.MethodPost, "/api/chats", `{"buddy_id":"`+peerID+`"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	chat := decode[ChatResponse](t, resp)
	if chat.ID == "" || len(chat.Buddies) != 1 || chat.Buddies[0].ID != peerID {
		t.Fatalf("unexpected chat: %+v", chat)
	}
	if len(inbound) != 1 || inbound[0].Buddies[0].ID() != selfID {
		t.Fatalf("peer should be offered a chat with us: %+v", inbound)
	}

	resp = env.do(t, http.MethodGet, "/api/chats", "")
	chats := decode[[]ChatResponse](t, resp)
	if len(chats) != 1 || chats[0].ID != chat.ID {
		t.Fatalf("unexpected open chats: %+v", chats)
	}

	resp = env.do(t, http.MethodDelete, "/api/chats/"+chat.ID, "")
	if resp.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", resp.Code)
	}
	resp = env.do(t, http.MethodDelete, "/api/chats/"+chat.ID, "")
	if resp.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", resp.Code)
	}

	resp = env.do(t, http.MethodPost, "/api/chats", `{"buddy_id":"nobody"}`)
	if resp.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", resp.Code)
	}
	resp = env.do(t, http.MethodPost, "/api/chats", `{}`)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", resp.Code)
	}
}

func TestRemoteChatIsTracked(t *testing.T) {
	env := newTestEnv(t, false)

	me, ok := env.peer.Buddy(selfID)
	if !ok {
		t.Fatalf("peer does not know us")
	}
	remote, err := env.peer.StartChat(context.Background(), me)
	if err != nil {
		t.Fatalf("peer start chat: %v", err)
	}

	chats := decode[[]ChatResponse](t, env.do(t, http.MethodGet, "/api/chats", ""))
	if len(chats) != 1 || chats[0].ID != remote.ID() || chats[0].Buddies[0].ID != peerID {
		t.Fatalf("remote chat not tracked: %+v", chats)
	}
}

func TestStartChatAfterLogout(t *testing.T) {
	env := newTestEnv(t, false)

	if err := env.self.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}

	// The registry is cleared on logout.
	resp := env.do(t, http.MethodPost, "/api/chats", `{"buddy_id":"`+peerID+`"}`)
	if resp.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", resp.Code)
	}

	self := decode[SelfResponse](t, env.do(t, http.MethodGet, "/api/self", ""))
	if self.LoggedIn || self.Status != "offline" || self.UpdatesEnabled {
		t.Errorf("unexpected self after logout: %+v", self)
	}
}

func TestListHistory(t *testing.T) {
	env := newTestEnv(t, true)

	if err := env.peer.CurrentUser().SetStatus(context.Background(), core.StatusBusy); err != nil {
		t.Fatalf("set status: %v", err)
	}

	resp := env.do(t, http.MethodGet, "/api/history?buddy_id="+peerID, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	updates := decode[[]StatusUpdateResponse](t, resp)
	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %+v", updates)
	}
	if updates[0].Status != "busy" || updates[1].Status != "online" {
		t.Errorf("expected newest first, got %+v", updates)
	}

	updates = decode[[]StatusUpdateResponse](t, env.do(t, http.MethodGet, "/api/history?limit=1", ""))
	if len(updates) != 1 {
		t.Errorf("limit not applied: %+v", updates)
	}

	if resp := env.do(t, http.MethodGet, "/api/history?buddy_id=nope", ""); resp.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", resp.Code)
	}
	if resp := env.do(t, http.MethodGet, "/api/history?limit=abc", ""); resp.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", resp.Code)
	}
}

func TestHistoryDisabled(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.do(t, http.MethodGet, "/api/history", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestUpdateSelfAfterLogout(t *testing.T) {
	env := newTestEnv(t, false)

	if err := env.self.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}

	resp := env.do(t, http.MethodPatch, "/api/self", `{"status":"online"}`)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", resp.Code, resp.Body.String())
	}
	if status := env.self.CurrentUser().Status(); status != core.StatusOffline {
		t.Errorf("logged-out self must stay offline, got %s", status)
	}
}

func TestChatsPrunedAcrossLogin(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	resp := env.do(t, http.MethodPost, "/api/chats", `{"buddy_id":"`+peerID+`"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	if err := env.self.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if chats := decode[[]ChatResponse](t, env.do(t, http.MethodGet, "/api/chats", "")); len(chats) != 0 {
		t.Fatalf("expected no chats after logout, got %+v", chats)
	}

	if err := env.self.Login(ctx, "Me", nil); err != nil {
		t.Fatalf("login: %v", err)
	}
	if chats := decode[[]ChatResponse](t, env.do(t, http.MethodGet, "/api/chats", "")); len(chats) != 0 {
		t.Fatalf("chats from the previous login must not come back: %+v", chats)
	}
}

func TestChatsPrunedWhenParticipantsLeave(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.do(t, http.MethodPost, "/api/chats", `{"buddy_id":"`+peerID+`"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if chats := decode[[]ChatResponse](t, env.do(t, http.MethodGet, "/api/chats", "")); len(chats) != 1 {
		t.Fatalf("expected one chat, got %+v", chats)
	}

	if err := env.peer.Logout(context.Background()); err != nil {
		t.Fatalf("peer logout: %v", err)
	}
	if chats := decode[[]ChatResponse](t, env.do(t, http.MethodGet, "/api/chats", "")); len(chats) != 0 {
		t.Fatalf("expected chat with an offline buddy to be pruned, got %+v", chats)
	}
}
