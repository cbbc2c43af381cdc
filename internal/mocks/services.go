package mocks

import (
	"context"

	"github.com/seu-repo/wasteledger/internal/domain"
	"github.com/seu-repo/wasteledger/internal/ports"
)

// MockTransactionService is a mock implementation of TransactionService interface
type MockTransactionService struct {
	CreateTransactionFunc       func(ctx context.Context, in ports.CreateTransactionInput) (*domain.Transaction, error)
	SubmitCalibrationFunc       func(ctx context.Context, id string, in ports.CalibrationInput) (*domain.Transaction, error)
	VerifyCredentialFunc        func(ctx context.Context, id string, in ports.CredentialInput) (*domain.Transaction, error)
	AddItemFunc                 func(ctx context.Context, id string, in ports.AddItemInput) ([]domain.Item, error)
	CaptureWeightFunc           func(ctx context.Context, raw []byte) (domain.Reading, error)
	GetTransactionFunc          func(ctx context.Context, id string) (*domain.Transaction, error)
	ListTransactionsByStoreFunc func(ctx context.Context, storeID string) ([]domain.Transaction, error)
}

func (m *MockTransactionService) CreateTransaction(ctx context.Context, in ports.CreateTransactionInput) (*domain.Transaction, error) {
	if m.CreateTransactionFunc != nil {
		return m.CreateTransactionFunc(ctx, in)
	}
	return nil, nil
}

func (m *MockTransactionService) SubmitCalibration(ctx context.Context, id string, in ports.CalibrationInput) (*domain.Transaction, error) {
	if m.SubmitCalibrationFunc != nil {
		return m.SubmitCalibrationFunc(ctx, id, in)
	}
	return nil, nil
}

func (m *MockTransactionService) VerifyCredential(ctx context.Context, id string, in ports.CredentialInput) (*domain.Transaction, error) {
	if m.VerifyCredentialFunc != nil {
		return m.VerifyCredentialFunc(ctx, id, in)
	}
	return nil, nil
}

func (m *MockTransactionService) AddItem(ctx context.Context, id string, in ports.AddItemInput) ([]domain.Item, error) {
	if m.AddItemFunc != nil {
		return m.AddItemFunc(ctx, id, in)
	}
	return []domain.Item{}, nil
}

func (m *MockTransactionService) CaptureWeight(ctx context.Context, raw []byte) (domain.Reading, error) {
	if m.CaptureWeightFunc != nil {
		return m.CaptureWeightFunc(ctx, raw)
	}
	return domain.Reading{}, domain.ErrWeightNotDetected
}

func (m *MockTransactionService) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	if m.GetTransactionFunc != nil {
		return m.GetTransactionFunc(ctx, id)
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockTransactionService) ListTransactionsByStore(ctx context.Context, storeID string) ([]domain.Transaction, error) {
	if m.ListTransactionsByStoreFunc != nil {
		return m.ListTransactionsByStoreFunc(ctx, storeID)
	}
	return []domain.Transaction{}, nil
}

// MockBillingService is a mock implementation of BillingService interface
type MockBillingService struct {
	SummarizeFunc           func(tx *domain.Transaction) domain.Summary
	GenerateBillFunc        func(ctx context.Context, id string) (*domain.Bill, error)
	FinalizeTransactionFunc func(ctx context.Context, id string) (*domain.Bill, error)
	StoreSummaryFunc        func(ctx context.Context, storeID string) (*domain.StoreSummary, error)
}

func (m *MockBillingService) Summarize(tx *domain.Transaction) domain.Summary {
	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(tx)
	}
	return domain.Summary{}
}

func (m *MockBillingService) GenerateBill(ctx context.Context, id string) (*domain.Bill, error) {
	if m.GenerateBillFunc != nil {
		return m.GenerateBillFunc(ctx, id)
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockBillingService) FinalizeTransaction(ctx context.Context, id string) (*domain.Bill, error) {
	if m.FinalizeTransactionFunc != nil {
		return m.FinalizeTransactionFunc(ctx, id)
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockBillingService) StoreSummary(ctx context.Context, storeID string) (*domain.StoreSummary, error) {
	if m.StoreSummaryFunc != nil {
		return m.StoreSummaryFunc(ctx, storeID)
	}
	return &domain.StoreSummary{StoreID: storeID}, nil
}
