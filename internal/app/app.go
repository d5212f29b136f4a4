package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-client/internal/config"
	"github.com/vovakirdan/wirechat-client/internal/core"
	"github.com/vovakirdan/wirechat-client/internal/store"
	transporthttp "github.com/vovakirdan/wirechat-client/internal/transport/http"
	"github.com/vovakirdan/wirechat-client/internal/utils"
)

// App wires together the chat client, its collaborators and the HTTP surface.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	client          *core.ChatClient
	username        string
	properties      core.Properties
	peers           []*simulatedPeer
	store           store.HistoryStore
	network         network
	log             *zerolog.Logger
}

type simulatedPeer struct {
	name       string
	status     core.Status
	properties core.Properties
	client     *core.ChatClient
}

// New constructs the application with provided configuration.
// ctx bounds connecting to redis and opening the history database.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	peerStatuses := make([]core.Status, len(cfg.SimulatedPeers))
	for i, p := range cfg.SimulatedPeers {
		status := core.StatusOnline
		if p.Status != "" {
			parsed, err := core.ParseStatus(p.Status)
			if err != nil {
				return nil, fmt.Errorf("simulated peer %q: %w", p.Name, err)
			}
			status = parsed
		}
		peerStatuses[i] = status
	}

	a := &App{
		shutdownTimeout: cfg.ShutdownTimeout,
		username:        cfg.Username,
		properties:      core.Properties(cfg.Properties).Clone(),
		log:             logger,
	}

	// A nil store pointer must not end up inside the interfaces below.
	var recorder core.HistoryRecorder
	if cfg.EnableHistory {
		st, err := openHistory(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("init history store: %w", err)
		}
		a.store = st
		recorder = st
		logger.Info().Str("history_driver", cfg.HistoryDriver).Msg("history store initialized")
	}

	net, err := openNetwork(ctx, cfg, logger)
	if err != nil {
		a.closeStore()
		return nil, fmt.Errorf("init network: %w", err)
	}
	a.network = net

	selfNode, err := net.Join(ctx, core.Endpoint{ClientID: cfg.ClientID, Address: cfg.ChatAddr})
	if err != nil {
		a.closeNetwork()
		a.closeStore()
		return nil, fmt.Errorf("join network: %w", err)
	}
	a.client = core.NewChatClient(core.Options{
		ChatEndpoint:  selfNode.Endpoint(),
		Presence:      selfNode,
		Chat:          selfNode,
		History:       recorder,
		EnableLogging: recorder != nil,
		Logger:        logger,
	})
	a.client.Subscribe(a.logEvent)

	for i, p := range cfg.SimulatedPeers {
		id := utils.NewID()
		peerNode, err := net.Join(ctx, core.Endpoint{ClientID: id, Address: net.PeerAddress(id)})
		if err != nil {
			a.closeNetwork()
			a.closeStore()
			return nil, fmt.Errorf("join simulated peer %q: %w", p.Name, err)
		}
		peerLogger := logger.With().Str("peer", p.Name).Logger()
		a.peers = append(a.peers, &simulatedPeer{
			name:       p.Name,
			status:     peerStatuses[i],
			properties: core.Properties(p.Properties).Clone(),
			client: core.NewChatClient(core.Options{
				ChatEndpoint: peerNode.Endpoint(),
				Presence:     peerNode,
				Chat:         peerNode,
				Logger:       &peerLogger,
			}),
		})
	}

	a.server = transporthttp.NewServer(a.client, a.store, *cfg, logger)
	return a, nil
}

// Client returns the local chat client.
func (a *App) Client() *core.ChatClient {
	return a.client
}

// Run logs everyone in, serves HTTP and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	if err := a.login(ctx); err != nil {
		a.cleanup()
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

func (a *App) login(ctx context.Context) error {
	if err := a.client.Login(ctx, a.username, a.properties); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	for _, p := range a.peers {
		if err := p.client.Login(ctx, p.name, p.properties); err != nil {
			return fmt.Errorf("login simulated peer %q: %w", p.name, err)
		}
		if p.status != core.StatusOnline {
			if err := p.client.CurrentUser().SetStatus(ctx, p.status); err != nil {
				return fmt.Errorf("set status of simulated peer %q: %w", p.name, err)
			}
		}
	}
	return nil
}

// cleanup logs out peers and self, then releases the network and history store.
func (a *App) cleanup() {
	var errs []error
	for _, p := range a.peers {
		if err := p.client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("peer %q: %w", p.name, err))
		}
	}
	if err := a.client.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		a.log.Warn().Err(err).Msg("logout finished with errors")
	} else {
		a.log.Info().Msg("logged out")
	}

	a.closeNetwork()
	a.closeStore()
}

func (a *App) closeNetwork() {
	if a.network == nil {
		return
	}
	if err := a.network.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close network")
	}
}

func (a *App) closeStore() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close store")
	} else {
		a.log.Info().Msg("store closed")
	}
}

func (a *App) logEvent(ev core.Event) {
	entry := a.log.Info().Str("event", ev.Kind.String())
	switch ev.Kind {
	case core.EventChatStarted:
		entry.Str("chat_id", ev.Chat.ID()).Int("participants", len(ev.Buddies)).Msg("chat started")
	default:
		entry.
			Str("buddy_id", ev.Buddy.ID()).
			Str("display_name", ev.Buddy.DisplayName()).
			Str("status", ev.Buddy.Status().String()).
			Bool("discovered", ev.Discovered).
			Msg("buddy changed")
	}
}
