package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"sentinel/internal/session"
)

// RedisConfig configures Redis access for investigation archival.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// RedisStore persists completed investigation snapshots to Redis so the
// evidence outlives the in-memory session retention window.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore constructs a Redis-backed archive.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	if strings.TrimSpace(cfg.KeyPrefix) == "" {
		cfg.KeyPrefix = "sentinel:investigation"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 7 * 24 * time.Hour
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis archive: %w", err)
	}

	return &RedisStore{client: client, prefix: strings.TrimSpace(cfg.KeyPrefix), ttl: cfg.TTL}, nil
}

// Archive stores one session snapshot and indexes it by completion time.
// Re-archiving the same id after a deepen turn overwrites the snapshot.
func (s *RedisStore) Archive(ctx context.Context, snap session.Session) error {
	if snap.ID == "" {
		return fmt.Errorf("archive snapshot with empty id")
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", snap.ID, err)
	}

	now := time.Now()
	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.snapshotKey(snap.ID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(now.Unix()), Member: snap.ID})
	pipe.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%d", now.Add(-s.ttl).Unix()))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write archive keys for %s: %w", snap.ID, err)
	}
	return nil
}

// Fetch loads an archived snapshot. The second return is false when the
// id is unknown or its snapshot has expired.
func (s *RedisStore) Fetch(ctx context.Context, id string) (session.Session, bool, error) {
	data, err := s.client.Get(ctx, s.snapshotKey(id)).Bytes()
	if err == redis.Nil {
		return session.Session{}, false, nil
	}
	if err != nil {
		return session.Session{}, false, fmt.Errorf("read archive snapshot %s: %w", id, err)
	}

	var snap session.Session
	if err := json.Unmarshal(data, &snap); err != nil {
		return session.Session{}, false, fmt.Errorf("decode archive snapshot %s: %w", id, err)
	}
	return snap, true, nil
}

// Recent returns the ids of the most recently archived investigations,
// newest first.
func (s *RedisStore) Recent(ctx context.Context, limit int64) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read archive index: %w", err)
	}
	return ids, nil
}

// Close closes Redis resources.
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *RedisStore) snapshotKey(id string) string {
	return s.prefix + ":snapshot:" + id
}

func (s *RedisStore) indexKey() string {
	return s.prefix + ":recent"
}
