package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"github.com/seu-repo/wasteledger/internal/adapter/cache"
	"github.com/seu-repo/wasteledger/internal/adapter/ocr"
	"github.com/seu-repo/wasteledger/internal/adapter/queue"
	"github.com/seu-repo/wasteledger/internal/adapter/storage/postgres"
	"github.com/seu-repo/wasteledger/internal/adapter/vault"
	"github.com/seu-repo/wasteledger/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/wasteledger/internal/ports"
	"github.com/seu-repo/wasteledger/internal/service/recognition"
	"github.com/seu-repo/wasteledger/internal/service/transaction"
	"github.com/seu-repo/wasteledger/pkg/config"
)

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

// applyVaultSecrets replaces configured credentials with the ones stored in
// Vault. Secrets absent from Vault keep their configured value.
func applyVaultSecrets(cfg *config.Config, log *zap.Logger) error {
	sm, err := vault.NewSecretManager(cfg.Vault.Address, cfg.Vault.Token, cfg.Vault.Mount, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	secrets, err := sm.Load(ctx)
	if err != nil {
		return err
	}

	overlay := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	overlay(&cfg.Database.URL, secrets.DatabaseURL)
	overlay(&cfg.Recognition.Vision.APIKey, secrets.VisionAPIKey)
	overlay(&cfg.Recognition.OCR.APIKey, secrets.OCRAPIKey)
	overlay(&cfg.JWT.Secret, secrets.JWTSecret)
	return nil
}

// newCache returns the shared Redis client (nil when no URL is configured)
// and the cache the recognition pipeline and token revocation read from.
func newCache(cfg config.RedisConfig, log *zap.Logger) (*redis.Client, ports.Cache, error) {
	if cfg.URL == "" {
		return nil, cache.NewLocalCache(time.Minute, log), nil
	}
	client, err := cache.NewRedisClient(cfg.URL, log)
	if err != nil {
		return nil, nil, err
	}
	return client, cache.NewRedisCache(client, log), nil
}

func newSequenceAllocator(backend string, db *gorm.DB, client *redis.Client, seeder ports.SequenceSeeder, log *zap.Logger) (ports.SequenceAllocator, error) {
	switch backend {
	case "database":
		return postgres.NewSequenceRepository(db, log), nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("redis sequence backend requires redis.url")
		}
		return cache.NewRedisSequence(client, seeder, log), nil
	default:
		return nil, fmt.Errorf("unknown sequence backend %q", backend)
	}
}

// newRecognitionPipeline builds the provider chain in configured order. The
// heuristic provider, when enabled or listed, always runs last. The returned map holds
// the breaker-wrapped client of each HTTP provider.
func newRecognitionPipeline(cfg config.RecognitionConfig, resultCache ports.Cache, log *zap.Logger) (*recognition.Pipeline, map[string]*circuitbreaker.HTTPClient) {
	policy := recognition.ExtractionPolicy(cfg.ExtractionPolicy)
	breakers := make(map[string]*circuitbreaker.HTTPClient)

	newClient := func(name string) *circuitbreaker.HTTPClient {
		settings := circuitbreaker.DefaultSettings(name)
		if cfg.Breaker.FailureThreshold > 0 {
			settings.FailureThreshold = uint32(cfg.Breaker.FailureThreshold)
		}
		if cfg.Breaker.Interval > 0 {
			settings.Interval = cfg.Breaker.Interval
		}
		if cfg.Breaker.Timeout > 0 {
			settings.Timeout = cfg.Breaker.Timeout
		}
		client := circuitbreaker.NewHTTPClient(&http.Client{}, circuitbreaker.New(settings, log), log)
		breakers[name] = client
		return client
	}

	var providers []ports.RecognitionProvider
	for _, name := range cfg.Providers {
		switch name {
		case ocr.VisionProviderName:
			providers = append(providers, ocr.NewVisionProvider(providerConfig(name, cfg.Vision, policy), newClient(name), log))
		case ocr.OCRProviderName:
			providers = append(providers, ocr.NewOCRProvider(providerConfig(name, cfg.OCR, policy), newClient(name), log))
		case recognition.HeuristicProviderName:
			cfg.Heuristic.Enabled = true
		default:
			log.Warn("Ignoring unknown recognition provider", zap.String("provider", name))
		}
	}
	if cfg.Heuristic.Enabled {
		providers = append(providers, recognition.NewHeuristicProvider(cfg.Heuristic.Candidates))
	}

	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name())
	}
	log.Info("Recognition chain configured",
		zap.Strings("providers", names),
		zap.String("extraction_policy", string(policy)),
	)

	pre := recognition.NewPreprocessor(cfg.TargetWidth, cfg.JPEGQuality)
	return recognition.NewPipeline(pre, providers, log, recognition.WithCache(resultCache, cfg.CacheTTL)), breakers
}

func providerConfig(name string, p config.ProviderConfig, policy recognition.ExtractionPolicy) ocr.Config {
	return ocr.Config{
		Name:     name,
		BaseURL:  p.BaseURL,
		APIKey:   p.APIKey,
		Model:    p.Model,
		Prompt:   p.Prompt,
		Language: p.Language,
		Engine:   p.Engine,
		Timeout:  p.Timeout,
		Policy:   policy,
	}
}

// breakerCheck reports an open provider breaker as a failed check.
func breakerCheck(client *circuitbreaker.HTTPClient) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if state := client.State(); state == gobreaker.StateOpen {
			return fmt.Errorf("circuit %s", state)
		}
		return nil
	}
}

// startEventAudit logs every finalized bill published on the queue.
func startEventAudit(mq queue.MessageQueue, log *zap.Logger) {
	err := mq.Subscribe(transaction.SubjectTransactionFinalized, func(msg []byte) error {
		var evt transaction.Event
		if err := json.Unmarshal(msg, &evt); err != nil {
			return fmt.Errorf("decode finalized event: %w", err)
		}
		log.Info("Transaction finalized",
			zap.String("event_id", evt.EventID),
			zap.String("transaction_id", evt.TransactionID),
			zap.Time("occurred_at", evt.OccurredAt),
		)
		return nil
	})
	if err != nil {
		log.Warn("Failed to subscribe to finalized events", zap.Error(err))
	}
}
