package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// allocateSQL increments the counter of (store, day) in one statement. A new
// counter starts after the ids already stored for that day, so days that
// were numbered before the counter table existed continue without gaps.
const allocateSQL = `
INSERT INTO transaction_sequences (store_id, day, last_no, updated_at)
VALUES (?, ?, (SELECT COUNT(*) FROM transactions WHERE transaction_id LIKE ? ESCAPE '\') + 1, ?)
ON CONFLICT (store_id, day)
DO UPDATE SET last_no = transaction_sequences.last_no + 1, updated_at = excluded.updated_at
RETURNING last_no`

type SequenceRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewSequenceRepository(db *gorm.DB, log *zap.Logger) *SequenceRepository {
	return &SequenceRepository{
		db:  db,
		log: log,
	}
}

func (r *SequenceRepository) Next(ctx context.Context, storeID, day string) (int, error) {
	defer observe(time.Now())

	pattern := dayPattern(storeID, day)
	var lastNo int
	err := r.db.WithContext(ctx).
		Raw(allocateSQL, storeID, day, pattern, time.Now().UTC()).
		Scan(&lastNo).Error
	if err != nil {
		r.log.Error("Failed to allocate transaction sequence",
			zap.String("store_id", storeID),
			zap.String("day", day),
			zap.Error(err),
		)
		return 0, fmt.Errorf("allocate sequence for %s/%s: %w", storeID, day, err)
	}
	if lastNo <= 0 {
		return 0, fmt.Errorf("allocate sequence for %s/%s: no value returned", storeID, day)
	}
	return lastNo, nil
}

// CountForDay counts the stored ids of (store, day) with a two-digit
// sequence, the set a fresh counter has to skip.
func (r *TransactionRepository) CountForDay(ctx context.Context, storeID, day string) (int, error) {
	defer observe(time.Now())

	var n int64
	err := r.db.WithContext(ctx).
		Model(&transactionRow{}).
		Where("transaction_id LIKE ? ESCAPE '\\'", dayPattern(storeID, day)).
		Count(&n).Error
	if err != nil {
		r.log.Error("Failed to count transactions for day",
			zap.String("store_id", storeID),
			zap.String("day", day),
			zap.Error(err),
		)
		return 0, fmt.Errorf("count transactions for %s/%s: %w", storeID, day, err)
	}
	return int(n), nil
}

func dayPattern(storeID, day string) string {
	return escapeLike(storeID+day) + "-__"
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
