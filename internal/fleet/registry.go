package fleet

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// State is a worker's self-reported processing state.
type State string

const (
	StateIdle State = "idle"
	StateBusy State = "busy"
)

// Config holds the registry connection and timing settings.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// KeyPrefix namespaces worker keys.
	KeyPrefix string

	// TTL is the liveness window. A worker missing HeartbeatInterval
	// refreshes inside it is considered gone.
	TTL               time.Duration
	HeartbeatInterval time.Duration
}

// NewConfig reads from environment variables.
func NewConfig() Config {
	cfg := Config{
		RedisAddr:         os.Getenv("FLEET_REDIS_ADDR"),
		RedisPassword:     os.Getenv("FLEET_REDIS_PASSWORD"),
		KeyPrefix:         "fleet:worker",
		TTL:               30 * time.Second,
		HeartbeatInterval: 10 * time.Second,
	}
	if v := os.Getenv("FLEET_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.RedisDB = n
		}
	}
	return cfg
}

// Registry is the Redis-backed worker registry.
type Registry struct {
	client redis.UniversalClient
	cfg    Config
}

// NewRegistry connects to Redis and verifies the connection.
func NewRegistry(cfg Config) (*Registry, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("fleet: redis ping failed: %w", err)
	}

	return &Registry{client: client, cfg: cfg}, nil
}

// NewRegistryWithClient wraps an existing client. Used by tests.
func NewRegistryWithClient(client redis.UniversalClient, cfg Config) *Registry {
	return &Registry{client: client, cfg: cfg}
}

func (r *Registry) key(workerID string) string {
	return r.cfg.KeyPrefix + ":" + workerID
}

// Report writes the worker's current state with the liveness TTL.
func (r *Registry) Report(ctx context.Context, workerID string, state State) error {
	if err := r.client.Set(ctx, r.key(workerID), string(state), r.cfg.TTL).Err(); err != nil {
		return fmt.Errorf("fleet: report %s for '%s': %w", state, workerID, err)
	}
	return nil
}

// Remove drops the worker's key. Called on clean shutdown so the
// controller sees the departure immediately instead of after the TTL.
func (r *Registry) Remove(ctx context.Context, workerID string) error {
	return r.client.Del(ctx, r.key(workerID)).Err()
}

// Workers returns the state of every live worker.
func (r *Registry) Workers(ctx context.Context) (map[string]State, error) {
	pattern := r.cfg.KeyPrefix + ":*"
	out := make(map[string]State)

	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("fleet: scan workers: %w", err)
		}
		for _, key := range keys {
			state, err := r.client.Get(ctx, key).Result()
			if err == redis.Nil {
				continue // expired between scan and get
			}
			if err != nil {
				return nil, fmt.Errorf("fleet: read worker key '%s': %w", key, err)
			}
			id := strings.TrimPrefix(key, r.cfg.KeyPrefix+":")
			out[id] = State(state)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out, nil
}

// IdleWorkers returns the ids of workers currently reporting idle.
func (r *Registry) IdleWorkers(ctx context.Context) ([]string, error) {
	workers, err := r.Workers(ctx)
	if err != nil {
		return nil, err
	}
	var idle []string
	for id, state := range workers {
		if state == StateIdle {
			idle = append(idle, id)
		}
	}
	return idle, nil
}

// Heartbeat refreshes the worker's state every interval until the
// context ends. The state is read through getState on each tick so the
// loop always publishes the current value.
func (r *Registry) Heartbeat(ctx context.Context, workerID string, getState func() State, onErr func(error)) {
	ticker := time.NewTicker(r.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Report(ctx, workerID, getState()); err != nil && onErr != nil {
				onErr(err)
			}
		}
	}
}

// Close releases the Redis connection.
func (r *Registry) Close() error {
	return r.client.Close()
}
