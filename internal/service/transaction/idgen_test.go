package transaction

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/seu-repo/wasteledger/internal/domain"
)

type memorySequence struct {
	mu   sync.Mutex
	last map[string]int
}

func newMemorySequence() *memorySequence {
	return &memorySequence{last: make(map[string]int)}
}

func (m *memorySequence) Next(ctx context.Context, storeID, day string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := storeID + "|" + day
	m.last[key]++
	return m.last[key], nil
}

func kolkata(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	return loc
}

func TestGenerate_SequentialIDs(t *testing.T) {
	loc := kolkata(t)
	gen := NewIDGenerator(newMemorySequence(), loc)
	gen.now = func() time.Time { return time.Date(2026, time.January, 5, 10, 0, 0, 0, loc) }

	first, err := gen.Generate(context.Background(), "ST01")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := gen.Generate(context.Background(), "ST01")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if first != "ST0105012026-01" {
		t.Errorf("expected ST0105012026-01, got %s", first)
	}
	if second != "ST0105012026-02" {
		t.Errorf("expected ST0105012026-02, got %s", second)
	}
	pattern := regexp.MustCompile(`^ST01\d{8}-\d{2}$`)
	for _, id := range []string{first, second} {
		if !pattern.MatchString(id) {
			t.Errorf("%s does not match %s", id, pattern)
		}
	}
}

func TestGenerate_UsesStoreTimezone(t *testing.T) {
	loc := kolkata(t)
	gen := NewIDGenerator(newMemorySequence(), loc)
	// 20:00 UTC on the 4th is already the 5th in Kolkata
	gen.now = func() time.Time { return time.Date(2026, time.January, 4, 20, 0, 0, 0, time.UTC) }

	id, err := gen.Generate(context.Background(), "ST01")
	if err != nil {
		t.Fatal(err)
	}
	if id != "ST0105012026-01" {
		t.Errorf("expected Kolkata date, got %s", id)
	}
}

func TestGenerate_EmptyStore(t *testing.T) {
	gen := NewIDGenerator(newMemorySequence(), time.UTC)

	_, err := gen.Generate(context.Background(), "  ")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGenerate_ConcurrentUnique(t *testing.T) {
	gen := NewIDGenerator(newMemorySequence(), time.UTC)

	const n = 50
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := gen.Generate(context.Background(), "ST02")
			if err != nil {
				t.Error(err)
				return
			}
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		if seen[id] {
			t.Errorf("duplicate id %s", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Errorf("expected %d ids, got %d", n, len(seen))
	}
}

func TestFormatID_WidensPastNinetyNine(t *testing.T) {
	if got := FormatID("ST01", "05012026", 100); got != "ST0105012026-100" {
		t.Errorf("unexpected id %s", got)
	}
	if got := FormatID("ST01", "05012026", 7); got != "ST0105012026-07" {
		t.Errorf("unexpected id %s", got)
	}
}
