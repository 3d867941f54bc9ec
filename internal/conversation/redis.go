package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultKeyPrefix namespaces conversation keys in Redis.
const DefaultKeyPrefix = "rag:conversation:"

// RedisConfig holds connection settings for RedisStore.
type RedisConfig struct {
	Address   string        `mapstructure:"address"`
	Password  string        `mapstructure:"password"`
	Database  int           `mapstructure:"database"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"` // 0 keeps conversations forever
}

// RedisStore keeps each conversation as a Redis list of JSON-encoded turns.
// Every Append is a single RPUSH, so concurrent appends never interleave
// partial turns.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig, logger *slog.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.Database,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis conversation store initialized",
		"address", cfg.Address,
		"database", cfg.Database,
		"ttl", cfg.TTL,
	)

	return &RedisStore{
		client: rdb,
		prefix: prefix,
		ttl:    cfg.TTL,
		logger: logger,
	}, nil
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

// Create returns a new ID. Nothing is written until the first Append.
func (s *RedisStore) Create(ctx context.Context) (string, error) {
	return NewID(), nil
}

func (s *RedisStore) History(ctx context.Context, id string) ([]Turn, error) {
	raw, err := s.client.LRange(ctx, s.key(id), 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to read conversation %s: %w", id, err)
	}

	turns := make([]Turn, 0, len(raw))
	for _, item := range raw {
		var turn Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("failed to decode turn in conversation %s: %w", id, err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (s *RedisStore) Append(ctx context.Context, id string, turn Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to encode turn: %w", err)
	}

	key := s.key(id)
	if s.ttl <= 0 {
		if err := s.client.RPush(ctx, key, data).Err(); err != nil {
			return fmt.Errorf("failed to append to conversation %s: %w", id, err)
		}
		return nil
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append to conversation %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to clear conversation %s: %w", id, err)
	}
	return nil
}

// Health pings Redis.
func (s *RedisStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
