package core

import "sync"

// EventKind is a notification the client emits to the application.
type EventKind int

const (
	// EventBuddyOnline notifies that a buddy appeared or was refreshed.
	EventBuddyOnline EventKind = iota
	// EventBuddyOffline notifies that a buddy left the network.
	EventBuddyOffline
	// EventBuddyUpdated notifies a profile or status change that kept the buddy online or offline.
	EventBuddyUpdated
	// EventChatStarted notifies a remote participant opened a conversation with us.
	EventChatStarted
)

func (k EventKind) String() string {
	switch k {
	case EventBuddyOnline:
		return "buddy_online"
	case EventBuddyOffline:
		return "buddy_offline"
	case EventBuddyUpdated:
		return "buddy_updated"
	case EventChatStarted:
		return "chat_started"
	default:
		return "unknown"
	}
}

// Event is the single-stream form of every outbound notification.
type Event struct {
	Kind       EventKind
	Buddy      *Buddy   // online, offline, updated
	Discovered bool     // online
	Chat       *Chat    // chat started
	Buddies    []*Buddy // chat started
}

// BuddyOnlineEvent is delivered on the buddy-online channel.
type BuddyOnlineEvent struct {
	Buddy      *Buddy
	Discovered bool
}

// BuddyEvent is delivered on the buddy-offline and buddy-updated channels.
type BuddyEvent struct {
	Buddy *Buddy
}

// ChatStartedEvent is delivered on the chat-started channel.
type ChatStartedEvent struct {
	Chat    *Chat
	Buddies []*Buddy
}

type handlerEntry[T any] struct {
	id uint64
	fn func(T)
}

// notifier is one outbound channel. Handlers run in registration order.
type notifier[T any] struct {
	mu       sync.Mutex
	nextID   uint64
	handlers []handlerEntry[T]
}

func (n *notifier[T]) subscribe(fn func(T)) func() {
	n.mu.Lock()
	n.nextID++
	id := n.nextID
	n.handlers = append(n.handlers, handlerEntry[T]{id: id, fn: fn})
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			for i, h := range n.handlers {
				if h.id == id {
					n.handlers = append(n.handlers[:i:i], n.handlers[i+1:]...)
					return
				}
			}
		})
	}
}

func (n *notifier[T]) emit(v T) {
	n.mu.Lock()
	handlers := make([]handlerEntry[T], len(n.handlers))
	copy(handlers, n.handlers)
	n.mu.Unlock()

	for _, h := range handlers {
		h.fn(v)
	}
}

// OnBuddyOnline registers fn for buddy-online notifications. The returned func unsubscribes.
func (c *ChatClient) OnBuddyOnline(fn func(BuddyOnlineEvent)) func() {
	return c.buddyOnline.subscribe(fn)
}

// OnBuddyOffline registers fn for buddy-offline notifications.
func (c *ChatClient) OnBuddyOffline(fn func(BuddyEvent)) func() {
	return c.buddyOffline.subscribe(fn)
}

// OnBuddyUpdated registers fn for buddy-updated notifications.
func (c *ChatClient) OnBuddyUpdated(fn func(BuddyEvent)) func() {
	return c.buddyUpdated.subscribe(fn)
}

// OnChatStarted registers fn for chat-started notifications.
func (c *ChatClient) OnChatStarted(fn func(ChatStartedEvent)) func() {
	return c.chatStarted.subscribe(fn)
}

// Subscribe registers fn for every notification kind, delivered in emission order.
func (c *ChatClient) Subscribe(fn func(Event)) func() {
	return c.events.subscribe(fn)
}

func (c *ChatClient) emitBuddyOnline(b *Buddy, discovered bool) {
	c.buddyOnline.emit(BuddyOnlineEvent{Buddy: b, Discovered: discovered})
	c.events.emit(Event{Kind: EventBuddyOnline, Buddy: b, Discovered: discovered})
}

func (c *ChatClient) emitBuddyOffline(b *Buddy) {
	c.buddyOffline.emit(BuddyEvent{Buddy: b})
	c.events.emit(Event{Kind: EventBuddyOffline, Buddy: b})
}

func (c *ChatClient) emitBuddyUpdated(b *Buddy) {
	c.buddyUpdated.emit(BuddyEvent{Buddy: b})
	c.events.emit(Event{Kind: EventBuddyUpdated, Buddy: b})
}

func (c *ChatClient) emitChatStarted(chat *Chat, buddies []*Buddy) {
	c.chatStarted.emit(ChatStartedEvent{Chat: chat, Buddies: buddies})
	c.events.emit(Event{Kind: EventChatStarted, Chat: chat, Buddies: buddies})
}
