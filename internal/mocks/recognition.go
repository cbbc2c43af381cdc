package mocks

import (
	"context"
	"sync/atomic"

	"github.com/seu-repo/wasteledger/internal/domain"
	"github.com/seu-repo/wasteledger/internal/ports"
)

// MockRecognitionProvider is a mock implementation of RecognitionProvider
type MockRecognitionProvider struct {
	NameValue     string
	RecognizeFunc func(ctx context.Context, img domain.EncodedImage) (domain.Reading, error)
	calls         int32
}

func (m *MockRecognitionProvider) Name() string {
	return m.NameValue
}

func (m *MockRecognitionProvider) Recognize(ctx context.Context, img domain.EncodedImage) (domain.Reading, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.RecognizeFunc != nil {
		return m.RecognizeFunc(ctx, img)
	}
	return domain.Reading{}, &domain.ProviderError{Provider: m.NameValue, Kind: domain.FailureEmpty}
}

// Calls returns how many times Recognize was invoked
func (m *MockRecognitionProvider) Calls() int {
	return int(atomic.LoadInt32(&m.calls))
}

// MockWeightRecognizer is a mock implementation of WeightRecognizer
type MockWeightRecognizer struct {
	RecognizeFunc func(ctx context.Context, img domain.EncodedImage) (domain.Reading, error)
	CaptureFunc   func(ctx context.Context, raw []byte) (domain.Reading, domain.EncodedImage, error)
}

func (m *MockWeightRecognizer) Recognize(ctx context.Context, img domain.EncodedImage) (domain.Reading, error) {
	if m.RecognizeFunc != nil {
		return m.RecognizeFunc(ctx, img)
	}
	return domain.Reading{}, domain.ErrWeightNotDetected
}

func (m *MockWeightRecognizer) Capture(ctx context.Context, raw []byte) (domain.Reading, domain.EncodedImage, error) {
	if m.CaptureFunc != nil {
		return m.CaptureFunc(ctx, raw)
	}
	return domain.Reading{}, domain.EncodedImage{}, domain.ErrWeightNotDetected
}

// MockCredentialVerifier is a mock implementation of CredentialVerifier
type MockCredentialVerifier struct {
	VerifyFunc func(ctx context.Context, in ports.CredentialInput) error
}

func (m *MockCredentialVerifier) Verify(ctx context.Context, in ports.CredentialInput) error {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, in)
	}
	return nil
}
