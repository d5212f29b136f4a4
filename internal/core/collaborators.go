package core

import (
	"context"
	"time"
)

// PresenceListener receives presence notifications from the network.
// Calls may arrive on any goroutine.
type PresenceListener interface {
	UserOnline(info UserInfo, discovered bool)
	UserOffline(info UserInfo)
	UserUpdated(info UserInfo)
}

// PresenceService announces the local user and discovers remote participants.
type PresenceService interface {
	Login(ctx context.Context, username string, props Properties) error
	Logout(ctx context.Context) error
	Update(ctx context.Context, displayName string, props Properties, status Status) error
	SetPresenceListener(l PresenceListener)
}

// Session is a point-to-point conversation established by the chat transport.
type Session interface {
	ID() string
	RemoteUsers() []Endpoint
	Close() error
}

// SessionListener receives sessions opened by remote participants.
type SessionListener interface {
	SessionStarted(session Session)
}

// ChatService establishes chat sessions.
type ChatService interface {
	Start(ctx context.Context) error
	Stop() error
	CreateSession(ctx context.Context, target Endpoint) (Session, error)
	SetSessionListener(l SessionListener)
}

// HistoryRecorder durably records status changes.
type HistoryRecorder interface {
	AddStatusUpdate(ctx context.Context, at time.Time, buddyID, displayName string, status int) error
}
