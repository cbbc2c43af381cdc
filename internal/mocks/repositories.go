package mocks

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/seu-repo/wasteledger/internal/domain"
)

// MockTransactionRepository is a mock implementation of TransactionRepository.
// Without func overrides it behaves as an in-memory store.
type MockTransactionRepository struct {
	mu              sync.Mutex
	data            map[string]*domain.Transaction
	CreateFunc      func(ctx context.Context, tx *domain.Transaction) error
	FindByIDFunc    func(ctx context.Context, id string) (*domain.Transaction, error)
	FindByStoreFunc func(ctx context.Context, storeID string) ([]domain.Transaction, error)
	ModifyFunc      func(ctx context.Context, id string, fn func(tx *domain.Transaction) error) (*domain.Transaction, error)
	PingFunc        func(ctx context.Context) error
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		data: make(map[string]*domain.Transaction),
	}
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[tx.TransactionID]; ok {
		return domain.ErrDuplicateTransactionID
	}
	m.data[tx.TransactionID] = clone(tx)
	return nil
}

func (m *MockTransactionRepository) FindByID(ctx context.Context, id string) (*domain.Transaction, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.data[id]
	if !ok {
		return nil, nil
	}
	return clone(tx), nil
}

func (m *MockTransactionRepository) FindByStore(ctx context.Context, storeID string) ([]domain.Transaction, error) {
	if m.FindByStoreFunc != nil {
		return m.FindByStoreFunc(ctx, storeID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Transaction{}
	for _, tx := range m.data {
		if tx.Store.StoreID == storeID {
			out = append(out, *clone(tx))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].TransactionID > out[j].TransactionID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MockTransactionRepository) Modify(ctx context.Context, id string, fn func(tx *domain.Transaction) error) (*domain.Transaction, error) {
	if m.ModifyFunc != nil {
		return m.ModifyFunc(ctx, id, fn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.data[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	working := clone(stored)
	if err := fn(working); err != nil {
		return nil, err
	}
	m.data[id] = clone(working)
	return working, nil
}

func (m *MockTransactionRepository) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

// Put stores tx directly, bypassing Create
func (m *MockTransactionRepository) Put(tx *domain.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[tx.TransactionID] = clone(tx)
}

// clone deep-copies through JSON so callers never share slices with the store
func clone(tx *domain.Transaction) *domain.Transaction {
	data, err := json.Marshal(tx)
	if err != nil {
		panic(err)
	}
	var out domain.Transaction
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return &out
}

// MockSequenceAllocator is a mock implementation of SequenceAllocator
type MockSequenceAllocator struct {
	mu       sync.Mutex
	last     map[string]int
	NextFunc func(ctx context.Context, storeID, day string) (int, error)
}

func NewMockSequenceAllocator() *MockSequenceAllocator {
	return &MockSequenceAllocator{last: make(map[string]int)}
}

func (m *MockSequenceAllocator) Next(ctx context.Context, storeID, day string) (int, error) {
	if m.NextFunc != nil {
		return m.NextFunc(ctx, storeID, day)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := storeID + "|" + day
	m.last[key]++
	return m.last[key], nil
}

// MockSequenceSeeder is a mock implementation of SequenceSeeder
type MockSequenceSeeder struct {
	CountForDayFunc func(ctx context.Context, storeID, day string) (int, error)
	calls           int32
}

func (m *MockSequenceSeeder) CountForDay(ctx context.Context, storeID, day string) (int, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.CountForDayFunc != nil {
		return m.CountForDayFunc(ctx, storeID, day)
	}
	return 0, nil
}

// Calls returns how many times CountForDay was invoked
func (m *MockSequenceSeeder) Calls() int {
	return int(atomic.LoadInt32(&m.calls))
}
