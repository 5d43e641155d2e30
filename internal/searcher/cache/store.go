package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/sqlite"
)

// Store is a string key/value backend. Get reports ok=false for a missing
// key; Clear removes every entry and returns how many were removed.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Clear(ctx context.Context) (int64, error)
	Close() error
}

// OpenStore builds the backend selected by cfg.Cache.Backend. The "none"
// backend returns a nil Store, which disables caching. m may be nil.
func OpenStore(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (Store, error) {
	switch cfg.Cache.Backend {
	case "memory", "":
		return NewMemoryStore(), nil
	case "redis":
		client, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, cfg.Redis.CacheTTL, m), nil
	case "sqlite":
		return NewSQLiteStore(cfg.Cache.SQLitePath)
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unknown cache backend %q", apperrors.ErrInvalidInput, cfg.Cache.Backend)
	}
}

// MemoryStore keeps entries in a map for the life of the process.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *MemoryStore) Clear(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.data))
	clear(s.data)
	return n, nil
}

func (s *MemoryStore) Close() error { return nil }

const redisKeyPrefix = "wikisearch:query:"

// RedisStore keeps entries in Redis behind a circuit breaker, so an
// unreachable server fails fast instead of slowing every query.
type RedisStore struct {
	client  *pkgredis.Client
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
}

func NewRedisStore(client *pkgredis.Client, ttl time.Duration, m *metrics.Metrics) *RedisStore {
	var cbCfg resilience.CircuitBreakerConfig
	if m != nil {
		cbCfg.OnStateChange = func(name string, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		}
	}
	return &RedisStore{
		client:  client,
		ttl:     ttl,
		breaker: resilience.NewCircuitBreaker("redis-cache", cbCfg),
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := s.breaker.Execute(func() error {
		v, err := s.client.Get(ctx, redisKeyPrefix+key)
		if pkgredis.IsNilError(err) {
			return nil
		}
		if err != nil {
			return err
		}
		value, found = v, true
		return nil
	})
	return value, found, err
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.breaker.Execute(func() error {
		return s.client.Set(ctx, redisKeyPrefix+key, value, s.ttl)
	})
}

func (s *RedisStore) Clear(ctx context.Context) (int64, error) {
	return s.client.FlushByPattern(ctx, redisKeyPrefix+"*")
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS query_cache (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	created_at INTEGER NOT NULL
);`

// SQLiteStore keeps entries in a local SQLite file so they survive restarts.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sqlite.Open(path, sqliteSchema)
	if err != nil {
		return nil, fmt.Errorf("opening cache store: %w", err)
	}
	return &SQLiteStore{
		db:     db,
		logger: slog.Default().With("component", "query-cache", "backend", "sqlite"),
	}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM query_cache WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading cache entry: %w", err)
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO query_cache (key, value, created_at) VALUES (?, ?, ?)`,
		key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM query_cache`)
	if err != nil {
		return 0, fmt.Errorf("clearing cache: %w", err)
	}
	n, _ := res.RowsAffected()
	s.logger.Debug("cache table cleared", "rows", n)
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
