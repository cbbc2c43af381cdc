package recognition

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/seu-repo/wasteledger/internal/domain"
	"github.com/seu-repo/wasteledger/internal/observability/telemetry"
	"github.com/seu-repo/wasteledger/internal/ports"
)

const cacheKeyPrefix = "recognition:"

// Pipeline tries the configured providers in order and returns the first
// successful reading. Provider failures are logged and never surface to the
// caller; only exhaustion (ErrWeightNotDetected) or cancellation does.
type Pipeline struct {
	pre       *Preprocessor
	providers []ports.RecognitionProvider
	cache     ports.Cache
	cacheTTL  time.Duration
	group     singleflight.Group
	log       *zap.Logger

	mu      sync.Mutex
	flights map[string]*flight
}

type Option func(*Pipeline)

// WithCache stores non-estimated readings keyed by image digest.
func WithCache(c ports.Cache, ttl time.Duration) Option {
	return func(p *Pipeline) {
		p.cache = c
		p.cacheTTL = ttl
	}
}

func NewPipeline(pre *Preprocessor, providers []ports.RecognitionProvider, log *zap.Logger, opts ...Option) *Pipeline {
	if pre == nil {
		pre = NewPreprocessor(DefaultTargetWidth, DefaultJPEGQuality)
	}
	p := &Pipeline{
		pre:       pre,
		providers: providers,
		log:       log,
		flights:   make(map[string]*flight),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Capture preprocesses raw and runs the chain on the result.
func (p *Pipeline) Capture(ctx context.Context, raw []byte) (domain.Reading, domain.EncodedImage, error) {
	img, err := p.pre.Preprocess(raw)
	if err != nil {
		return domain.Reading{}, domain.EncodedImage{}, err
	}
	reading, err := p.Recognize(ctx, img)
	return reading, img, err
}

func (p *Pipeline) Recognize(ctx context.Context, img domain.EncodedImage) (domain.Reading, error) {
	if err := ctx.Err(); err != nil {
		return domain.Reading{}, err
	}
	if img.SHA256 == "" {
		return p.run(ctx, img)
	}

	for {
		f := p.join(ctx, img.SHA256)
		stop := context.AfterFunc(ctx, func() { f.Err() })

		ch := p.group.DoChan(img.SHA256, func() (interface{}, error) {
			defer p.forget(img.SHA256, f)
			return p.run(f, img)
		})
		select {
		case <-ctx.Done():
			stop()
			return domain.Reading{}, ctx.Err()
		case res := <-ch:
			stop()
			if res.Err != nil {
				// the run we joined was abandoned by its other callers
				if errors.Is(res.Err, context.Canceled) && ctx.Err() == nil {
					continue
				}
				return domain.Reading{}, res.Err
			}
			return res.Val.(domain.Reading), nil
		}
	}
}

func (p *Pipeline) run(ctx context.Context, img domain.EncodedImage) (domain.Reading, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "recognition.pipeline")
	defer span.End()

	if reading, ok := p.cached(ctx, img.SHA256); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		telemetry.RecognitionPipelineTotal.WithLabelValues("cache_hit").Inc()
		return reading, nil
	}

	for _, provider := range p.providers {
		if err := ctx.Err(); err != nil {
			telemetry.RecognitionPipelineTotal.WithLabelValues("cancelled").Inc()
			return domain.Reading{}, err
		}

		reading, err := p.attempt(ctx, provider, img)
		if err == nil {
			span.SetAttributes(attribute.String("provider", reading.Provider))
			telemetry.RecognitionPipelineTotal.WithLabelValues("detected").Inc()
			p.store(ctx, img.SHA256, reading)
			return reading, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			telemetry.RecognitionPipelineTotal.WithLabelValues("cancelled").Inc()
			return domain.Reading{}, ctxErr
		}
	}

	p.log.Warn("No provider could read the weight",
		zap.String("image_sha256", img.SHA256),
		zap.Int("providers", len(p.providers)),
	)
	span.SetStatus(codes.Error, domain.ErrWeightNotDetected.Error())
	telemetry.RecognitionPipelineTotal.WithLabelValues("not_detected").Inc()
	return domain.Reading{}, domain.ErrWeightNotDetected
}

func (p *Pipeline) attempt(ctx context.Context, provider ports.RecognitionProvider, img domain.EncodedImage) (domain.Reading, error) {
	name := provider.Name()
	ctx, span := telemetry.Tracer().Start(ctx, "recognition.provider."+name)
	defer span.End()

	start := time.Now()
	reading, err := provider.Recognize(ctx, img)
	latency := time.Since(start)
	telemetry.RecognitionProviderLatency.WithLabelValues(name).Observe(latency.Seconds())

	if err != nil {
		kind := "error"
		var pe *domain.ProviderError
		if errors.As(err, &pe) {
			kind = string(pe.Kind)
		}
		telemetry.RecognitionAttemptsTotal.WithLabelValues(name, kind).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		p.log.Warn("Recognition provider failed",
			zap.String("provider", name),
			zap.String("kind", kind),
			zap.Duration("latency", latency),
			zap.Error(err),
		)
		return domain.Reading{}, err
	}

	if reading.Provider == "" {
		reading.Provider = name
	}
	telemetry.RecognitionAttemptsTotal.WithLabelValues(name, "success").Inc()
	p.log.Debug("Recognition provider succeeded",
		zap.String("provider", name),
		zap.Float64("weight", reading.Weight),
		zap.Bool("estimated", reading.Estimated),
		zap.Duration("latency", latency),
	)
	return reading, nil
}

func (p *Pipeline) cached(ctx context.Context, digest string) (domain.Reading, bool) {
	if p.cache == nil || digest == "" {
		return domain.Reading{}, false
	}
	raw, err := p.cache.Get(ctx, cacheKeyPrefix+digest)
	if err != nil {
		if !errors.Is(err, ports.ErrCacheMiss) {
			p.log.Debug("Recognition cache lookup failed", zap.Error(err))
		}
		return domain.Reading{}, false
	}
	var reading domain.Reading
	if err := json.Unmarshal([]byte(raw), &reading); err != nil {
		return domain.Reading{}, false
	}
	return reading, true
}

// store skips estimated readings so a later run can still reach a real
// provider for the same image.
func (p *Pipeline) store(ctx context.Context, digest string, reading domain.Reading) {
	if p.cache == nil || digest == "" || reading.Estimated {
		return
	}
	data, err := json.Marshal(reading)
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, cacheKeyPrefix+digest, string(data), p.cacheTTL); err != nil {
		p.log.Debug("Recognition cache write failed", zap.Error(err))
	}
}
