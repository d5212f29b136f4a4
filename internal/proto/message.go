package proto

const (
	ProtocolVersion = 1

	OutboundTypeHello = "hello"
	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventBuddyOnline  = "buddy_online"
	EventBuddyOffline = "buddy_offline"
	EventBuddyUpdated = "buddy_updated"
	EventChatStarted  = "chat_started"
)

// Outbound is the envelope for messages sent to the event stream subscriber.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// HelloData greets a freshly connected subscriber.
type HelloData struct {
	Protocol int     `json:"protocol"`
	Self     Buddy   `json:"self"`
	Buddies  []Buddy `json:"buddies"`
}

// Endpoint is the network address of a participant.
type Endpoint struct {
	ClientID string `json:"client_id"`
	Address  string `json:"address,omitempty"`
}

// Buddy is the wire form of a participant snapshot.
type Buddy struct {
	ID          string            `json:"id"`
	DisplayName string            `json:"display_name"`
	Status      string            `json:"status"`
	Online      bool              `json:"online"`
	Endpoint    Endpoint          `json:"endpoint"`
	Properties  map[string]string `json:"properties,omitempty"`
}

// EventBuddyOnlineData reports a buddy that appeared or was refreshed.
type EventBuddyOnlineData struct {
	Buddy      Buddy `json:"buddy"`
	Discovered bool  `json:"discovered"`
}

// EventBuddyData reports an offline or updated buddy.
type EventBuddyData struct {
	Buddy Buddy `json:"buddy"`
}

// EventChatStartedData reports a conversation opened by a remote participant.
type EventChatStartedData struct {
	ChatID  string  `json:"chat_id"`
	Buddies []Buddy `json:"buddies"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
