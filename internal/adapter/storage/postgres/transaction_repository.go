package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seu-repo/wasteledger/internal/domain"
	"github.com/seu-repo/wasteledger/internal/observability/telemetry"
)

type TransactionRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewTransactionRepository(db *gorm.DB, log *zap.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:  db,
		log: log,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	defer observe(time.Now())

	row, err := toRow(tx)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateTransactionID, tx.TransactionID)
		}
		return err
	}
	return nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	defer observe(time.Now())

	var row transactionRow
	err := r.db.WithContext(ctx).First(&row, "transaction_id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return row.toDomain()
}

func (r *TransactionRepository) FindByStore(ctx context.Context, storeID string) ([]domain.Transaction, error) {
	defer observe(time.Now())

	var rows []transactionRow
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("created_at desc, transaction_id desc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	txs := make([]domain.Transaction, 0, len(rows))
	for i := range rows {
		tx, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	return txs, nil
}

// Modify runs fn inside a database transaction holding a row lock on the
// transaction, so concurrent item appends are applied one after another.
// SQLite has no row locks; its single writer gives the same ordering.
func (r *TransactionRepository) Modify(ctx context.Context, id string, fn func(tx *domain.Transaction) error) (*domain.Transaction, error) {
	defer observe(time.Now())

	var result *domain.Transaction
	err := r.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		q := dbtx
		if dbtx.Dialector.Name() != "sqlite" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var row transactionRow
		if err := q.First(&row, "transaction_id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrTransactionNotFound
			}
			return err
		}

		tx, err := row.toDomain()
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			return err
		}

		updated, err := toRow(tx)
		if err != nil {
			return err
		}
		// the snapshot and id are immutable
		err = dbtx.Model(&transactionRow{}).
			Where("transaction_id = ?", id).
			Updates(map[string]interface{}{
				"calibration":  updated.Calibration,
				"credential":   updated.Credential,
				"items":        updated.Items,
				"state":        updated.State,
				"finalized_at": updated.FinalizedAt,
				"updated_at":   updated.UpdatedAt,
			}).Error
		if err != nil {
			return err
		}

		result = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *TransactionRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func observe(start time.Time) {
	telemetry.DatabaseLatency.Observe(time.Since(start).Seconds())
}

// isDuplicateKey also matches raw driver messages for dialects whose
// translator misses the violation.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "sqlstate 23505")
}
