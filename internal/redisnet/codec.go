package redisnet

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/vovakirdan/wirechat-client/internal/core"
)

// ErrMalformedFrame is returned for payloads that are not valid frames.
var ErrMalformedFrame = errors.New("malformed frame")

type frameKind uint8

const (
	// frameOnline is broadcast by a node that just logged in.
	frameOnline frameKind = iota + 1
	// frameAnnounce answers frameOnline directly to the newcomer.
	frameAnnounce
	frameUpdate
	frameOffline
	// frameSession invites the receiver into a chat session.
	frameSession
)

type frame struct {
	Kind    frameKind     `cbor:"1,keyasint"`
	Sender  string        `cbor:"2,keyasint"`
	User    *userFrame    `cbor:"3,keyasint,omitempty"`
	Session *sessionFrame `cbor:"4,keyasint,omitempty"`
}

type userFrame struct {
	ID           string            `cbor:"1,keyasint"`
	DisplayName  string            `cbor:"2,keyasint"`
	Status       uint8             `cbor:"3,keyasint"`
	ChatEndpoint string            `cbor:"4,keyasint,omitempty"`
	Properties   map[string]string `cbor:"5,keyasint,omitempty"`
}

type sessionFrame struct {
	ID          string `cbor:"1,keyasint"`
	FromID      string `cbor:"2,keyasint"`
	FromAddress string `cbor:"3,keyasint,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("redisnet: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("redisnet: CBOR decoder initialization failed: " + err.Error())
	}
}

func userFrameFrom(info core.UserInfo) *userFrame {
	return &userFrame{
		ID:           info.ID,
		DisplayName:  info.DisplayName,
		Status:       uint8(info.Status),
		ChatEndpoint: info.ChatEndpoint,
		Properties:   info.Properties.Clone(),
	}
}

func (u *userFrame) info() core.UserInfo {
	return core.UserInfo{
		ID:           u.ID,
		DisplayName:  u.DisplayName,
		Status:       core.Status(u.Status),
		ChatEndpoint: u.ChatEndpoint,
		Properties:   core.Properties(u.Properties).Clone(),
	}
}

func encodeFrame(f frame) ([]byte, error) {
	return encMode.Marshal(f)
}

func decodeFrame(data []byte) (frame, error) {
	var f frame
	if err := decMode.Unmarshal(data, &f); err != nil {
		return frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if f.Sender == "" {
		return frame{}, fmt.Errorf("%w: missing sender", ErrMalformedFrame)
	}

	switch f.Kind {
	case frameOnline, frameAnnounce, frameUpdate, frameOffline:
		if f.User == nil || f.User.ID != f.Sender {
			return frame{}, fmt.Errorf("%w: %d frame without sender profile", ErrMalformedFrame, f.Kind)
		}
		if f.User.Status > uint8(core.StatusOffline) {
			return frame{}, fmt.Errorf("%w: status %d", ErrMalformedFrame, f.User.Status)
		}
	case frameSession:
		if f.Session == nil || f.Session.ID == "" || f.Session.FromID != f.Sender {
			return frame{}, fmt.Errorf("%w: session frame without session", ErrMalformedFrame)
		}
	default:
		return frame{}, fmt.Errorf("%w: unknown kind %d", ErrMalformedFrame, f.Kind)
	}
	return f, nil
}
