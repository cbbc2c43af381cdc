//go:build integration

package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/seu-repo/wasteledger/internal/mocks"
	"github.com/seu-repo/wasteledger/internal/ports"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		container, err := tcredis.RunContainer(ctx,
			testcontainers.WithImage("redis:7-alpine"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("Ready to accept connections").
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			t.Skipf("Redis not available: %v", err)
		}
		t.Cleanup(func() {
			if err := container.Terminate(ctx); err != nil {
				t.Logf("Failed to terminate redis container: %v", err)
			}
		})

		host, err := container.Host(ctx)
		if err != nil {
			t.Fatalf("Failed to get redis host: %v", err)
		}
		port, err := container.MappedPort(ctx, "6379")
		if err != nil {
			t.Fatalf("Failed to get redis port: %v", err)
		}
		url = fmt.Sprintf("redis://%s:%s/0", host, port.Port())
	}

	client, err := NewRedisClient(url, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to connect to redis: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	if err := client.FlushAll(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush redis: %v", err)
	}
	return client
}

func TestRedisCache_Operations(t *testing.T) {
	client := setupRedis(t)
	c := NewRedisCache(client, zap.NewNop())
	ctx := context.Background()

	if _, err := c.Get(ctx, "recognition:missing"); !errors.Is(err, ports.ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
	if err := c.Set(ctx, "recognition:abc", `{"weight":4}`, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := c.Get(ctx, "recognition:abc")
	if err != nil || got != `{"weight":4}` {
		t.Errorf("unexpected value %q, %v", got, err)
	}
	if err := c.Ping(); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestRedisSequence_Next(t *testing.T) {
	client := setupRedis(t)
	seq := NewRedisSequence(client, nil, zap.NewNop())
	ctx := context.Background()

	const workers = 40
	seen := make(map[int]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := seq.Next(ctx, "ST01", "14102026")
			if err != nil {
				t.Errorf("Next failed: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[n] {
				t.Errorf("value %d allocated twice", n)
			}
			seen[n] = true
		}()
	}
	wg.Wait()

	for i := 1; i <= workers; i++ {
		if !seen[i] {
			t.Errorf("value %d never allocated", i)
		}
	}

	ttl, err := client.TTL(ctx, SequenceKey("ST01", "14102026")).Result()
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 0 || ttl > SequenceTTL {
		t.Errorf("unexpected ttl %v", ttl)
	}

	n, _ := seq.Next(ctx, "ST01", "15102026")
	if n != 1 {
		t.Errorf("expected a new day to start at 1, got %d", n)
	}
}

func TestRedisSequence_ResumesAfterStoredIDs(t *testing.T) {
	client := setupRedis(t)
	seeder := &mocks.MockSequenceSeeder{
		CountForDayFunc: func(ctx context.Context, storeID, day string) (int, error) {
			if storeID == "ST01" && day == "14102026" {
				return 3, nil
			}
			return 0, nil
		},
	}
	seq := NewRedisSequence(client, seeder, zap.NewNop())
	ctx := context.Background()

	for want := 4; want <= 5; want++ {
		n, err := seq.Next(ctx, "ST01", "14102026")
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if n != want {
			t.Errorf("expected %d, got %d", want, n)
		}
	}
	if seeder.Calls() != 1 {
		t.Errorf("expected the seeder to be consulted once, got %d", seeder.Calls())
	}

	// the counter is lost mid-day
	if err := client.Del(ctx, SequenceKey("ST01", "14102026")).Err(); err != nil {
		t.Fatalf("Del failed: %v", err)
	}
	n, err := seq.Next(ctx, "ST01", "14102026")
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if n != 4 {
		t.Errorf("expected numbering to resume after the 3 stored ids, got %d", n)
	}

	if n, _ := seq.Next(ctx, "ST02", "14102026"); n != 1 {
		t.Errorf("expected a store without ids to start at 1, got %d", n)
	}
}

func TestRedisSequence_SeederFailure(t *testing.T) {
	client := setupRedis(t)
	seeder := &mocks.MockSequenceSeeder{
		CountForDayFunc: func(ctx context.Context, storeID, day string) (int, error) {
			return 0, errors.New("database down")
		},
	}
	seq := NewRedisSequence(client, seeder, zap.NewNop())

	if _, err := seq.Next(context.Background(), "ST01", "14102026"); err == nil {
		t.Fatal("expected an error when the stored ids cannot be counted")
	}
	exists, _ := client.Exists(context.Background(), SequenceKey("ST01", "14102026")).Result()
	if exists != 0 {
		t.Error("expected no counter to be created")
	}
}
