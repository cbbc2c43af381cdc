package ocr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/seu-repo/wasteledger/internal/domain"
	"github.com/seu-repo/wasteledger/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/wasteledger/internal/service/recognition"
)

const DefaultTimeout = 8 * time.Second

// Config describes one HTTP recognition provider.
type Config struct {
	Name     string
	BaseURL  string
	APIKey   string
	Model    string
	Prompt   string
	Language string
	Engine   string
	Timeout  time.Duration
	Policy   recognition.ExtractionPolicy
}

func (c Config) withDefaults(name string) Config {
	if c.Name == "" {
		c.Name = name
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if !c.Policy.Valid() {
		c.Policy = recognition.PolicyFirst
	}
	return c
}

func fail(provider string, kind domain.FailureKind, err error) *domain.ProviderError {
	return &domain.ProviderError{Provider: provider, Kind: kind, Err: err}
}

// classify maps a transport error onto a failure kind.
func classify(provider string, err error) *domain.ProviderError {
	var se *circuitbreaker.StatusError
	var ne net.Error
	var ue *url.Error
	cause := err
	if errors.As(err, &ue) {
		// request URLs can carry credentials; keep only the method and cause
		cause = fmt.Errorf("%s request: %w", ue.Op, ue.Err)
	}
	switch {
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return fail(provider, domain.FailureCircuitOpen, cause)
	case errors.Is(err, context.DeadlineExceeded):
		return fail(provider, domain.FailureTimeout, cause)
	case errors.As(err, &ne) && ne.Timeout():
		return fail(provider, domain.FailureTimeout, cause)
	case errors.As(err, &se):
		return fail(provider, domain.FailureStatus, cause)
	default:
		return fail(provider, domain.FailureNetwork, cause)
	}
}

// weightFromText turns provider text into a reading or a typed failure.
func weightFromText(provider, text string, policy recognition.ExtractionPolicy) (domain.Reading, error) {
	if text == "" {
		return domain.Reading{}, fail(provider, domain.FailureEmpty, nil)
	}
	w, err := recognition.ExtractWeight(text, policy)
	if err != nil {
		return domain.Reading{}, fail(provider, domain.FailureNoNumeric, err)
	}
	return domain.Reading{Weight: w, Provider: provider, RawText: text}, nil
}

// classifyRead handles errors raised while reading a 200 body: a body cut
// off by the deadline is a timeout, anything else is a decode failure.
func classifyRead(provider string, err error) *domain.ProviderError {
	if errors.Is(err, context.DeadlineExceeded) {
		return fail(provider, domain.FailureTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fail(provider, domain.FailureTimeout, err)
	}
	return fail(provider, domain.FailureDecode, err)
}
