package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-client/internal/config"
	"github.com/vovakirdan/wirechat-client/internal/core"
	"github.com/vovakirdan/wirechat-client/internal/memnet"
	"github.com/vovakirdan/wirechat-client/internal/redisnet"
	"github.com/vovakirdan/wirechat-client/internal/store"
	"github.com/vovakirdan/wirechat-client/internal/store/postgres"
	"github.com/vovakirdan/wirechat-client/internal/store/sqlite"
)

// node is one participant's presence and chat collaborators.
type node interface {
	core.PresenceService
	core.ChatService
	Endpoint() core.Endpoint
}

type network interface {
	Join(ctx context.Context, endpoint core.Endpoint) (node, error)
	PeerAddress(clientID string) string
	Close() error
}

func openNetwork(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (network, error) {
	switch cfg.Network {
	case config.NetworkRedis:
		return newRedisNetwork(ctx, cfg.RedisAddr, cfg.RedisPrefix, logger)
	default:
		return &memoryNetwork{net: memnet.New()}, nil
	}
}

type memoryNetwork struct {
	net   *memnet.Network
	nodes []*memnet.Node
}

func (m *memoryNetwork) Join(_ context.Context, endpoint core.Endpoint) (node, error) {
	nd := m.net.Join(endpoint)
	m.nodes = append(m.nodes, nd)
	return nd, nil
}

func (m *memoryNetwork) PeerAddress(clientID string) string {
	return "mem://" + clientID
}

func (m *memoryNetwork) Close() error {
	for _, nd := range m.nodes {
		m.net.Leave(nd)
	}
	return nil
}

type redisNetwork struct {
	client *redis.Client
	prefix string
	log    *zerolog.Logger
	nodes  []*redisnet.Node
}

func newRedisNetwork(ctx context.Context, addr, prefix string, logger *zerolog.Logger) (*redisNetwork, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	logger.Info().Str("redis_addr", addr).Str("prefix", prefix).Msg("connected to redis")
	return &redisNetwork{client: client, prefix: prefix, log: logger}, nil
}

func (r *redisNetwork) Join(ctx context.Context, endpoint core.Endpoint) (node, error) {
	nd, err := redisnet.Dial(ctx, r.client, r.prefix, endpoint, r.log)
	if err != nil {
		return nil, err
	}
	r.nodes = append(r.nodes, nd)
	return nd, nil
}

func (r *redisNetwork) PeerAddress(clientID string) string {
	return "redis://" + r.prefix + "/" + clientID
}

func (r *redisNetwork) Close() error {
	var errs []error
	for _, nd := range r.nodes {
		errs = append(errs, nd.Close())
	}
	errs = append(errs, r.client.Close())
	return errors.Join(errs...)
}

// openHistory opens the configured history store.
func openHistory(ctx context.Context, cfg *config.Config) (store.HistoryStore, error) {
	switch cfg.HistoryDriver {
	case config.HistoryPostgres:
		st, err := postgres.New(ctx, cfg.HistoryDSN)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		st, err := sqlite.New(cfg.HistoryPath)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
}
