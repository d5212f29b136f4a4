package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-client/internal/core"
	"github.com/vovakirdan/wirechat-client/internal/proto"
	"github.com/vovakirdan/wirechat-client/internal/utils"
)

const eventBufferSize = 64

// WSHandler upgrades HTTP connections and streams client notifications to them.
type WSHandler struct {
	client Client
	log    *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(client Client, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{client: client, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	subscriberID := utils.NewID()
	logger := h.log.With().Str("subscriber_id", subscriberID).Logger()

	// Notifications are delivered synchronously by the client; never block it.
	events := make(chan proto.Outbound, eventBufferSize)
	unsubscribe := h.client.Subscribe(func(ev core.Event) {
		select {
		case events <- outboundFromEvent(ev):
		default:
			logger.Warn().Str("event", ev.Kind.String()).Msg("subscriber too slow, dropping event")
		}
	})
	defer unsubscribe()

	if err := wsjson.Write(ctx, conn, h.hello()); err != nil {
		logger.Warn().Err(err).Msg("write ws hello")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, &logger)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, events, &logger)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			logger.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) hello() proto.Outbound {
	data := proto.HelloData{
		Protocol: proto.ProtocolVersion,
		Buddies:  buddiesToProto(h.client.Buddies()),
	}
	if self := h.client.CurrentUser(); self != nil {
		data.Self = buddyToProto(self.Buddy)
	}
	return proto.Outbound{Type: proto.OutboundTypeHello, Data: data}
}

// readLoop keeps the connection's control frames flowing. The stream is
// one-way, so every inbound message is answered with an error.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, logger *zerolog.Logger) error {
	for {
		var inbound json.RawMessage
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			logger.Debug().Err(err).Msg("read ws inbound")
			return err
		}
		if err := wsjson.Write(ctx, conn, proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: "unsupported", Msg: "event stream is read-only"},
		}); err != nil {
			return err
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, events <-chan proto.Outbound, logger *zerolog.Logger) error {
	for {
		select {
		case out := <-events:
			if err := wsjson.Write(ctx, conn, out); err != nil {
				logger.Error().Err(err).Str("event", out.Event).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
