package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/nfagent/internal/domain"
	domtask "github.com/kailas-cloud/nfagent/internal/domain/task"
)

const keyPrefix = "nfagent:task:"

// RedisStore persists tasks in Redis via rueidis with a TTL, so task state
// survives restarts and is shared across replicas.
type RedisStore struct {
	client rueidis.Client
	ttl    time.Duration
}

// RedisConfig holds connection parameters for a Redis task store.
type RedisConfig struct {
	Addrs    []string
	Username string
	Password string
	TTL      time.Duration
}

// NewRedisStore creates a Redis task store.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

var _ Store = (*RedisStore)(nil)

// Save stores a task record as JSON with the configured TTL.
func (s *RedisStore) Save(ctx context.Context, t domtask.Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	cmd := s.client.B().Set().Key(keyPrefix + t.ID).Value(string(data)).Ex(s.ttl).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("save task %s: %w", t.ID, err)
	}
	return nil
}

// Get returns a task by id or domain.ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, id string) (domtask.Task, error) {
	cmd := s.client.B().Get().Key(keyPrefix + id).Build()
	data, err := s.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return domtask.Task{}, domain.ErrNotFound
		}
		return domtask.Task{}, fmt.Errorf("get task %s: %w", id, err)
	}

	var t domtask.Task
	if err := json.Unmarshal(data, &t); err != nil {
		return domtask.Task{}, fmt.Errorf("unmarshal task %s: %w", id, err)
	}
	return t, nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *RedisStore) Close() {
	s.client.Close()
}
