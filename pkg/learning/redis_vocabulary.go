package learning

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the redis vocabulary store configuration
type RedisConfig struct {
	RedisURL    string `json:"redis_url" yaml:"redis_url"`
	KeyPrefix   string `json:"key_prefix" yaml:"key_prefix"`
	DatabaseNum int    `json:"database_num" yaml:"database_num"`
	BatchSize   int    `json:"batch_size" yaml:"batch_size"`
}

// DefaultRedisConfig returns default Redis configuration
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		RedisURL:    "redis://localhost:6379",
		KeyPrefix:   "trecprep:vocab",
		DatabaseNum: 0,
		BatchSize:   500,
	}
}

// RedisVocabulary keeps the ranked vocabulary in redis: a sorted set
// scored by rank (0 = most frequent) plus a hash of aggregate counts.
type RedisVocabulary struct {
	client *redis.Client
	config *RedisConfig
}

// NewRedisVocabulary connects to redis and returns a store.
func NewRedisVocabulary(ctx context.Context, config *RedisConfig) (*RedisVocabulary, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultRedisConfig().BatchSize
	}

	opt, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	opt.DB = config.DatabaseNum
	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("Redis connection failed: %w", err)
	}

	return &RedisVocabulary{client: client, config: config}, nil
}

// Save replaces the stored vocabulary. Writes are pipelined in batches.
func (rv *RedisVocabulary) Save(ctx context.Context, ranked []TermCount) error {
	if err := rv.Reset(ctx); err != nil {
		return err
	}

	pipe := rv.client.Pipeline()
	pending := 0
	for rank, tc := range ranked {
		pipe.ZAdd(ctx, rv.rankKey(), redis.Z{Score: float64(rank), Member: tc.Term})
		pipe.HSet(ctx, rv.countKey(), tc.Term, tc.Count)
		pending++

		if pending >= rv.config.BatchSize {
			if _, err := pipe.Exec(ctx); err != nil {
				return fmt.Errorf("failed to store vocabulary batch: %w", err)
			}
			pipe = rv.client.Pipeline()
			pending = 0
		}
	}

	if pending > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to store vocabulary batch: %w", err)
		}
	}
	return nil
}

// Load returns the n best ranked terms (all when n <= 0).
func (rv *RedisVocabulary) Load(ctx context.Context, n int) ([]string, error) {
	stop := int64(n) - 1
	if n <= 0 {
		stop = -1
	}
	terms, err := rv.client.ZRange(ctx, rv.rankKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary: %w", err)
	}
	return terms, nil
}

// TopCounts returns the n best ranked terms with their aggregate counts.
func (rv *RedisVocabulary) TopCounts(ctx context.Context, n int) ([]TermCount, error) {
	terms, err := rv.Load(ctx, n)
	if err != nil {
		return nil, err
	}
	if len(terms) == 0 {
		return nil, nil
	}

	values, err := rv.client.HMGet(ctx, rv.countKey(), terms...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary counts: %w", err)
	}

	out := make([]TermCount, len(terms))
	for i, term := range terms {
		out[i].Term = term
		if s, ok := values[i].(string); ok {
			out[i].Count, _ = strconv.Atoi(s)
		}
	}
	return out, nil
}

// Len returns the number of stored terms.
func (rv *RedisVocabulary) Len(ctx context.Context) (int64, error) {
	return rv.client.ZCard(ctx, rv.rankKey()).Result()
}

// Reset removes the stored vocabulary.
func (rv *RedisVocabulary) Reset(ctx context.Context) error {
	if err := rv.client.Del(ctx, rv.rankKey(), rv.countKey()).Err(); err != nil {
		return fmt.Errorf("failed to reset vocabulary: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (rv *RedisVocabulary) Close() error {
	return rv.client.Close()
}

func (rv *RedisVocabulary) rankKey() string {
	return fmt.Sprintf("%s:rank", rv.config.KeyPrefix)
}

func (rv *RedisVocabulary) countKey() string {
	return fmt.Sprintf("%s:count", rv.config.KeyPrefix)
}

var _ VocabularyStore = (*RedisVocabulary)(nil)
