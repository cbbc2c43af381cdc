package config

import (
	"errors"
	"fmt"
	"time"
)

// Validate rejects settings the service cannot start with. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if _, err := time.LoadLocation(c.Transactions.Timezone); err != nil || c.Transactions.Timezone == "" {
		errs = append(errs, fmt.Errorf("transactions.timezone: unknown timezone %q", c.Transactions.Timezone))
	}
	switch c.Transactions.SequenceBackend {
	case "database":
	case "redis":
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("transactions.sequence_backend: redis backend needs redis.url"))
		}
	default:
		errs = append(errs, fmt.Errorf("transactions.sequence_backend: unknown backend %q", c.Transactions.SequenceBackend))
	}
	if c.Transactions.CalibrationTolerance < 0 {
		errs = append(errs, errors.New("transactions.calibration_tolerance: must not be negative"))
	}

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver: unknown driver %q", c.Database.Driver))
	}
	switch c.Queue.Driver {
	case "nats", "rabbitmq", "none", "":
	default:
		errs = append(errs, fmt.Errorf("queue.driver: unknown driver %q", c.Queue.Driver))
	}

	r := c.Recognition
	if len(r.Providers) == 0 && !r.Heuristic.Enabled {
		errs = append(errs, errors.New("recognition.providers: provider chain is empty"))
	}
	seen := map[string]bool{}
	for _, name := range r.Providers {
		if seen[name] {
			errs = append(errs, fmt.Errorf("recognition.providers: %q listed twice", name))
		}
		seen[name] = true
		switch name {
		case "vision":
			if r.Vision.Timeout <= 0 {
				errs = append(errs, errors.New("recognition.vision.timeout: must be positive"))
			}
		case "ocr":
			if r.OCR.Timeout <= 0 {
				errs = append(errs, errors.New("recognition.ocr.timeout: must be positive"))
			}
		case "heuristic":
		default:
			errs = append(errs, fmt.Errorf("recognition.providers: unknown provider %q", name))
		}
	}
	switch r.ExtractionPolicy {
	case "first", "strict":
	default:
		errs = append(errs, fmt.Errorf("recognition.extraction_policy: unknown policy %q", r.ExtractionPolicy))
	}
	if r.TargetWidth <= 0 {
		errs = append(errs, errors.New("recognition.target_width: must be positive"))
	}
	if r.JPEGQuality < 1 || r.JPEGQuality > 100 {
		errs = append(errs, errors.New("recognition.jpeg_quality: must be between 1 and 100"))
	}
	if r.Heuristic.Enabled && len(r.Heuristic.Candidates) == 0 {
		errs = append(errs, errors.New("recognition.heuristic.candidates: required when heuristic is enabled"))
	}

	for material, rate := range c.Billing.Rates {
		if rate < 0 {
			errs = append(errs, fmt.Errorf("billing.rates.%s: must not be negative", material))
		}
	}

	if c.Vault.Enabled && c.Vault.Address == "" {
		errs = append(errs, errors.New("vault.address: required when vault is enabled"))
	}

	return errors.Join(errs...)
}
