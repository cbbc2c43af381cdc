package ports

import (
	"context"

	"github.com/seu-repo/wasteledger/internal/domain"
)

// TransactionRepository persists transactions. FindByID returns (nil, nil)
// when the id is unknown.
type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	FindByID(ctx context.Context, id string) (*domain.Transaction, error)
	FindByStore(ctx context.Context, storeID string) ([]domain.Transaction, error)
	// Modify loads the transaction under a row lock, applies fn and persists
	// the result. When fn fails nothing is written. Unknown ids yield
	// domain.ErrTransactionNotFound.
	Modify(ctx context.Context, id string, fn func(tx *domain.Transaction) error) (*domain.Transaction, error)
	Ping(ctx context.Context) error
}

// SequenceAllocator hands out per-store, per-day sequence numbers. Next is
// an atomic increment-and-return; the first call for a (store, day) pair
// returns 1 unless ids for that pair already exist.
type SequenceAllocator interface {
	Next(ctx context.Context, storeID, day string) (int, error)
}

// SequenceSeeder counts the ids already stored for a (store, day) pair, so
// an allocator that loses its counter resumes after them.
type SequenceSeeder interface {
	CountForDay(ctx context.Context, storeID, day string) (int, error)
}
