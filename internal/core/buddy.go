package core

import (
	"fmt"
	"strings"
	"sync"
)

// Status is the presence state a participant announces.
type Status int

const (
	// StatusOnline means the participant is available.
	StatusOnline Status = iota
	// StatusBusy means the participant is online but does not want to be disturbed.
	StatusBusy
	// StatusBeRightBack means the participant stepped away briefly.
	StatusBeRightBack
	// StatusAway means the participant is away from the device.
	StatusAway
	// StatusIdle means the participant has been inactive for a while.
	StatusIdle
	// StatusOffline means the participant left the network.
	StatusOffline
)

var statusNames = map[Status]string{
	StatusOnline:      "online",
	StatusBusy:        "busy",
	StatusBeRightBack: "be_right_back",
	StatusAway:        "away",
	StatusIdle:        "idle",
	StatusOffline:     "offline",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// IsOnline reports whether the status counts as present on the network.
func (s Status) IsOnline() bool {
	return s != StatusOffline
}

// ParseStatus converts a status name (case-insensitive) into a Status.
func ParseStatus(name string) (Status, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for status, statusName := range statusNames {
		if statusName == normalized {
			return status, nil
		}
	}
	return StatusOffline, fmt.Errorf("%w: %q", ErrUnknownStatus, name)
}

// Properties is the open-ended profile attribute set of a participant.
type Properties map[string]string

// Clone returns an independent copy. A nil set clones to an empty one.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Endpoint addresses a participant's chat transport.
type Endpoint struct {
	ClientID string
	Address  string
}

// UserInfo is the participant record carried by presence notifications.
type UserInfo struct {
	ID           string
	DisplayName  string
	Status       Status
	ChatEndpoint string
	Properties   Properties
}

// BuddyState is a point-in-time copy of a buddy.
type BuddyState struct {
	ID           string
	DisplayName  string
	Status       Status
	ChatEndpoint string
	Properties   Properties
}

// Buddy is the local view of a remote participant.
// Only the client mutates it; consumers get read accessors.
type Buddy struct {
	id string

	mu           sync.RWMutex
	displayName  string
	status       Status
	chatEndpoint string
	properties   Properties
}

func newBuddy(info UserInfo) *Buddy {
	return &Buddy{
		id:           info.ID,
		displayName:  info.DisplayName,
		status:       info.Status,
		chatEndpoint: info.ChatEndpoint,
		properties:   info.Properties.Clone(),
	}
}

// ID returns the stable identifier.
func (b *Buddy) ID() string {
	return b.id
}

// DisplayName returns the current display name.
func (b *Buddy) DisplayName() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.displayName
}

// Status returns the current status.
func (b *Buddy) Status() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

// IsOnline reports whether the buddy's status is anything but offline.
func (b *Buddy) IsOnline() bool {
	return b.Status().IsOnline()
}

// Property returns a single profile attribute.
func (b *Buddy) Property(key string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.properties[key]
	return v, ok
}

// Properties returns a copy of the profile attributes.
func (b *Buddy) Properties() Properties {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.properties.Clone()
}

// Endpoint returns the descriptor needed to open a chat session with the buddy.
func (b *Buddy) Endpoint() Endpoint {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Endpoint{ClientID: b.id, Address: b.chatEndpoint}
}

// Snapshot copies the buddy's current state.
func (b *Buddy) Snapshot() BuddyState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return BuddyState{
		ID:           b.id,
		DisplayName:  b.displayName,
		Status:       b.status,
		ChatEndpoint: b.chatEndpoint,
		Properties:   b.properties.Clone(),
	}
}

// update overwrites status, name, endpoint and properties in one step.
// The identifier in info is ignored; a buddy's id never changes.
func (b *Buddy) update(info UserInfo) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = info.Status
	b.displayName = info.DisplayName
	b.chatEndpoint = info.ChatEndpoint
	b.properties = info.Properties.Clone()
}
