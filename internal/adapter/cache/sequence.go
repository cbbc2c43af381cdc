package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/seu-repo/wasteledger/internal/ports"
)

// SequenceTTL keeps a day's counter around long enough to cover every
// timezone offset plus late retries.
const SequenceTTL = 72 * time.Hour

// RedisSequence allocates per-store daily numbers with INCR on
// txseq:{store}:{day}. A missing key is created with SETNX, seeded with the
// count of ids already stored for the day, so the expiry is set exactly once
// and a flushed or evicted counter resumes after the persisted ids.
type RedisSequence struct {
	client *redis.Client
	seeder ports.SequenceSeeder
	log    *zap.Logger
}

// NewRedisSequence returns an allocator. seeder may be nil, in which case
// every new day starts at 1.
func NewRedisSequence(client *redis.Client, seeder ports.SequenceSeeder, log *zap.Logger) *RedisSequence {
	return &RedisSequence{
		client: client,
		seeder: seeder,
		log:    log,
	}
}

func SequenceKey(storeID, day string) string {
	return fmt.Sprintf("txseq:%s:%s", storeID, day)
}

func (s *RedisSequence) Next(ctx context.Context, storeID, day string) (int, error) {
	key := SequenceKey(storeID, day)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		s.log.Error("Failed to look up transaction sequence", zap.String("key", key), zap.Error(err))
		return 0, fmt.Errorf("look up sequence %s: %w", key, err)
	}
	if exists == 0 {
		if err := s.seed(ctx, key, storeID, day); err != nil {
			return 0, err
		}
	}

	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		s.log.Error("Failed to increment transaction sequence", zap.String("key", key), zap.Error(err))
		return 0, fmt.Errorf("increment sequence %s: %w", key, err)
	}
	return int(n), nil
}

func (s *RedisSequence) seed(ctx context.Context, key, storeID, day string) error {
	start := 0
	if s.seeder != nil {
		n, err := s.seeder.CountForDay(ctx, storeID, day)
		if err != nil {
			s.log.Error("Failed to count stored transactions", zap.String("key", key), zap.Error(err))
			return fmt.Errorf("seed sequence %s: %w", key, err)
		}
		start = n
	}

	created, err := s.client.SetNX(ctx, key, start, SequenceTTL).Result()
	if err != nil {
		s.log.Error("Failed to seed transaction sequence", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("seed sequence %s: %w", key, err)
	}
	if created && start > 0 {
		s.log.Info("Transaction sequence resumed from stored ids",
			zap.String("key", key),
			zap.Int("stored", start),
		)
	}
	return nil
}
