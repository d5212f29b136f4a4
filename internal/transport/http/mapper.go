package http

import (
	"github.com/vovakirdan/wirechat-client/internal/core"
	"github.com/vovakirdan/wirechat-client/internal/proto"
)

func buddyToProto(b *core.Buddy) proto.Buddy {
	state := b.Snapshot()
	return proto.Buddy{
		ID:          state.ID,
		DisplayName: state.DisplayName,
		Status:      state.Status.String(),
		Online:      state.Status.IsOnline(),
		Endpoint: proto.Endpoint{
			ClientID: state.ID,
			Address:  state.ChatEndpoint,
		},
		Properties: state.Properties,
	}
}

func buddiesToProto(buddies []*core.Buddy) []proto.Buddy {
	out := make([]proto.Buddy, 0, len(buddies))
	for _, b := range buddies {
		out = append(out, buddyToProto(b))
	}
	return out
}

func outboundFromEvent(event core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventBuddyOnline:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventBuddyOnline,
			Data: proto.EventBuddyOnlineData{
				Buddy:      buddyToProto(event.Buddy),
				Discovered: event.Discovered,
			},
		}
	case core.EventBuddyOffline:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventBuddyOffline,
			Data:  proto.EventBuddyData{Buddy: buddyToProto(event.Buddy)},
		}
	case core.EventBuddyUpdated:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventBuddyUpdated,
			Data:  proto.EventBuddyData{Buddy: buddyToProto(event.Buddy)},
		}
	case core.EventChatStarted:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventChatStarted,
			Data: proto.EventChatStartedData{
				ChatID:  event.Chat.ID(),
				Buddies: buddiesToProto(event.Buddies),
			},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown_event", Msg: event.Kind.String()}}
	}
}
