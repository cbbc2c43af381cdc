package transaction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/seu-repo/wasteledger/internal/domain"
	"github.com/seu-repo/wasteledger/internal/ports"
)

const (
	DefaultTimezone = "Asia/Kolkata"
	dayLayout       = "02012006" // DDMMYYYY
)

// IDGenerator builds ids of the form {storeID}{DDMMYYYY}-{NN}, where NN is
// the per-store, per-day sequence number, zero padded to two digits.
type IDGenerator struct {
	seq ports.SequenceAllocator
	loc *time.Location
	now func() time.Time
}

func NewIDGenerator(seq ports.SequenceAllocator, loc *time.Location) *IDGenerator {
	if loc == nil {
		loc = time.UTC
	}
	return &IDGenerator{seq: seq, loc: loc, now: time.Now}
}

// Day formats t as the DDMMYYYY string of the generator's timezone.
func (g *IDGenerator) Day(t time.Time) string {
	return t.In(g.loc).Format(dayLayout)
}

func (g *IDGenerator) Generate(ctx context.Context, storeID string) (string, error) {
	storeID = strings.TrimSpace(storeID)
	if storeID == "" {
		return "", &domain.ValidationError{Field: "store_id", Reason: "required"}
	}

	day := g.Day(g.now())
	n, err := g.seq.Next(ctx, storeID, day)
	if err != nil {
		return "", fmt.Errorf("allocate sequence: %w", err)
	}
	return FormatID(storeID, day, n), nil
}

func FormatID(storeID, day string, n int) string {
	return fmt.Sprintf("%s%s-%02d", storeID, day, n)
}
