package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirechat-client/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8090/ws", "WebSocket address")
	events := flag.Int("events", 0, "number of events to wait for after hello")
	timeout := flag.Duration("timeout", 30*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	var hello struct {
		Type string          `json:"type"`
		Data proto.HelloData `json:"data"`
	}
	if err := wsjson.Read(ctx, conn, &hello); err != nil {
		return fmt.Errorf("read hello: %w", err)
	}
	if hello.Type != proto.OutboundTypeHello {
		return fmt.Errorf("expected hello, got %q", hello.Type)
	}
	fmt.Printf("Self: %s (%s) status=%s\n", hello.Data.Self.DisplayName, hello.Data.Self.ID, hello.Data.Self.Status)
	for _, b := range hello.Data.Buddies {
		fmt.Printf("Buddy: %s (%s) status=%s\n", b.DisplayName, b.ID, b.Status)
	}

	for i := 0; i < *events; i++ {
		var outbound struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("timed out after %d of %d events", i, *events)
			}
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received outbound: type=%s", outbound.Type)
		if outbound.Event != "" {
			fmt.Printf(" event=%s", outbound.Event)
		}
		fmt.Println()

		if outbound.Error != nil {
			fmt.Printf("Error: %s: %s\n", outbound.Error.Code, outbound.Error.Msg)
			continue
		}

		switch outbound.Event {
		case proto.EventBuddyOnline:
			var evt proto.EventBuddyOnlineData
			if err := json.Unmarshal(outbound.Data, &evt); err == nil {
				fmt.Printf("Online: %s status=%s discovered=%t\n", evt.Buddy.DisplayName, evt.Buddy.Status, evt.Discovered)
			}
		case proto.EventBuddyOffline, proto.EventBuddyUpdated:
			var evt proto.EventBuddyData
			if err := json.Unmarshal(outbound.Data, &evt); err == nil {
				fmt.Printf("Buddy: %s status=%s\n", evt.Buddy.DisplayName, evt.Buddy.Status)
			}
		case proto.EventChatStarted:
			var evt proto.EventChatStartedData
			if err := json.Unmarshal(outbound.Data, &evt); err == nil {
				fmt.Printf("Chat: id=%s participants=%d\n", evt.ChatID, len(evt.Buddies))
			}
		default:
			fmt.Printf("Raw data: %s\n", string(outbound.Data))
		}
	}
	return nil
}
