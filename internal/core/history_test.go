package core

import (
	"context"
	"testing"
	"time"
)

func TestStatusHistoryOnlyWhenEnabled(t *testing.T) {
	env := newLoggedInEnv(t)

	env.client.HandleUserOnline(userInfo("a", "Alice", StatusOnline), false)
	if got := len(env.history.Records()); got != 0 {
		t.Fatalf("expected no history while logging disabled, got %d", got)
	}

	env.client.SetLoggingEnabled(true)
	env.client.HandleUserUpdated(userInfo("a", "Alice", StatusAway))
	env.client.HandleUserOffline(userInfo("a", "Alice", StatusOffline))

	records := env.history.Records()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %+v", records)
	}
	want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if !records[0].At.Equal(want) || records[0].BuddyID != "a" || records[0].Status != int(StatusAway) {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if records[1].Status != int(StatusOffline) {
		t.Fatalf("unexpected second record: %+v", records[1])
	}
}

func TestDiscoveredOnlineIsNotRecorded(t *testing.T) {
	env := newLoggedInEnv(t)
	env.client.SetLoggingEnabled(true)

	env.client.HandleUserOnline(userInfo("a", "Alice", StatusOnline), true)
	if got := len(env.history.Records()); got != 0 {
		t.Fatalf("initial discovery must not be recorded, got %d", got)
	}

	env.client.HandleUserOnline(userInfo("a", "Alice", StatusOnline), true)
	if got := len(env.history.Records()); got != 1 {
		t.Fatalf("refresh must be recorded, got %d", got)
	}
}

func TestHistoryFailuresDoNotAffectReconciliation(t *testing.T) {
	tests := []struct {
		name    string
		history *fakeHistory
	}{
		{name: "error", history: &fakeHistory{err: errBoom}},
		{name: "panic", history: &fakeHistory{panics: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewChatClient(Options{
				ChatEndpoint:  testSelfEndpoint,
				Presence:      &fakePresence{},
				Chat:          &fakeChatService{},
				History:       tt.history,
				EnableLogging: true,
			})
			if err := client.Login(context.Background(), "me", nil); err != nil {
				t.Fatalf("login: %v", err)
			}
			defer client.Close()
			rec := recordEvents(t, client)

			client.HandleUserOnline(userInfo("a", "Alice", StatusOnline), false)
			mustSingleEvent(t, rec, EventBuddyOnline)

			if err := client.CurrentUser().SetStatus(context.Background(), StatusBusy); err != nil {
				t.Fatalf("set status: %v", err)
			}
		})
	}
}

func TestAttemptAndDiscard(t *testing.T) {
	env := newTestEnv(t)

	ran := false
	attemptAndDiscard(env.client.log, "noop", func() error {
		ran = true
		return nil
	})
	if !ran {
		t.Fatalf("expected fn to run")
	}

	attemptAndDiscard(env.client.log, "fails", func() error { return errBoom })
	attemptAndDiscard(env.client.log, "panics", func() error { panic("nope") })
}
