package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"easel/plugin/internal/model"
)

// RedisGateway stores each collection blob under
// "easel:<documentID>:decisions" / "easel:<documentID>:resources".
type RedisGateway struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisGateway connects to Redis and verifies the connection.
func NewRedisGateway(redisURL string, logger *slog.Logger) (*RedisGateway, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisGateway{client: client, logger: logger}, nil
}

// NewRedisGatewayWithClient wraps an existing Redis client.
func NewRedisGatewayWithClient(client *redis.Client, logger *slog.Logger) *RedisGateway {
	return &RedisGateway{client: client, logger: logger}
}

func blobKey(documentID, name string) string {
	return Namespace + ":" + documentID + ":" + name
}

func (g *RedisGateway) LoadDecisions(ctx context.Context, documentID string) ([]model.Decision, error) {
	data, err := g.client.Get(ctx, blobKey(documentID, KeyDecisions)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []model.Decision{}, nil
	}
	if err != nil {
		return []model.Decision{}, fmt.Errorf("load decisions: %w", err)
	}
	return decodeDecisions(data, g.logger)
}

func (g *RedisGateway) SaveDecisions(ctx context.Context, documentID string, decisions []model.Decision) error {
	data, err := json.Marshal(decisions)
	if err != nil {
		return fmt.Errorf("encode decisions: %w", err)
	}
	if err := g.client.Set(ctx, blobKey(documentID, KeyDecisions), data, 0).Err(); err != nil {
		return fmt.Errorf("save decisions: %w", err)
	}
	return nil
}

func (g *RedisGateway) LoadResources(ctx context.Context, documentID string) ([]model.Resource, error) {
	data, err := g.client.Get(ctx, blobKey(documentID, KeyResources)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []model.Resource{}, nil
	}
	if err != nil {
		return []model.Resource{}, fmt.Errorf("load resources: %w", err)
	}
	return decodeResources(data, g.logger)
}

func (g *RedisGateway) SaveResources(ctx context.Context, documentID string, resources []model.Resource) error {
	data, err := json.Marshal(resources)
	if err != nil {
		return fmt.Errorf("encode resources: %w", err)
	}
	if err := g.client.Set(ctx, blobKey(documentID, KeyResources), data, 0).Err(); err != nil {
		return fmt.Errorf("save resources: %w", err)
	}
	return nil
}

// Ping checks if Redis is reachable.
func (g *RedisGateway) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (g *RedisGateway) Close() error {
	return g.client.Close()
}
