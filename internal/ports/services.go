package ports

import (
	"context"

	"github.com/seu-repo/wasteledger/internal/domain"
)

// RecognitionProvider reads a weight from a preprocessed scale image.
// Failures are returned as *domain.ProviderError.
type RecognitionProvider interface {
	Name() string
	Recognize(ctx context.Context, img domain.EncodedImage) (domain.Reading, error)
}

// WeightRecognizer runs the provider chain.
type WeightRecognizer interface {
	Recognize(ctx context.Context, img domain.EncodedImage) (domain.Reading, error)
	Capture(ctx context.Context, raw []byte) (domain.Reading, domain.EncodedImage, error)
}

// CredentialVerifier decides whether a vendor credential is acceptable.
type CredentialVerifier interface {
	Verify(ctx context.Context, in CredentialInput) error
}

type TransactionService interface {
	CreateTransaction(ctx context.Context, in CreateTransactionInput) (*domain.Transaction, error)
	SubmitCalibration(ctx context.Context, id string, in CalibrationInput) (*domain.Transaction, error)
	VerifyCredential(ctx context.Context, id string, in CredentialInput) (*domain.Transaction, error)
	AddItem(ctx context.Context, id string, in AddItemInput) ([]domain.Item, error)
	CaptureWeight(ctx context.Context, raw []byte) (domain.Reading, error)
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	ListTransactionsByStore(ctx context.Context, storeID string) ([]domain.Transaction, error)
}

type BillingService interface {
	Summarize(tx *domain.Transaction) domain.Summary
	GenerateBill(ctx context.Context, id string) (*domain.Bill, error)
	FinalizeTransaction(ctx context.Context, id string) (*domain.Bill, error)
	StoreSummary(ctx context.Context, storeID string) (*domain.StoreSummary, error)
}

type CreateTransactionInput struct {
	StoreID       string `json:"store_id"`
	StoreName     string `json:"store_name"`
	StoreLocation string `json:"store_location"`
	ManagerName   string `json:"manager_name"`
	VendorName    string `json:"vendor_name"`
}

// CalibrationInput carries the recognized reading of the calibration weight
// and the value the manager entered by hand.
type CalibrationInput struct {
	Image       string  `json:"image"`
	FetchWeight float64 `json:"fetch_weight"`
	EnterWeight float64 `json:"enter_weight"`
}

type CredentialInput struct {
	Kind       domain.CredentialKind `json:"kind"`
	Signature  string                `json:"signature"`
	VerifiedBy string                `json:"verified_by"`
	// Verified is the external assertion for kinds checked outside this
	// service (otp).
	Verified bool `json:"verified"`
}

type AddItemInput struct {
	MaterialType string              `json:"material_type"`
	Image        string              `json:"image"`
	Weight       float64             `json:"weight"`
	WeightSource domain.WeightSource `json:"weight_source"`
}
