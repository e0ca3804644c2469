package embedding

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/avellore/ragstack/internal/config"
	"github.com/avellore/ragstack/internal/metrics"
	"github.com/avellore/ragstack/pkg/logger_i"
)

type InputType string

const (
	//documents being indexed vs queries searching them - providers embed
	//these differently
	InputDocument InputType = "search_document"
	InputQuery    InputType = "search_query"
)

var (
	ErrNotConfigured = errors.New("no embedding provider configured")
	ErrUnavailable   = errors.New("all embedding providers unavailable")
	//providers wrap quota errors with this so retry policy can tell them apart
	ErrRateLimited = errors.New("embedding provider rate limited")
)

type Provider interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, texts []string, input InputType) ([][]float32, error)
}

// Embedder is the view retrieval and ingestion take of the generator. The
// int return is the dimension of the vectors actually produced, which can
// differ between primary and fallback providers.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, int, error)
	EmbedQuery(ctx context.Context, query string) ([]float32, int, error)
}

type FailureKind int

const (
	FailureTransient FailureKind = iota
	FailureRateLimit
	FailureFatal
)

// Classify buckets a provider error for the retry policy. Cancelled contexts
// are fatal, rate limits get their own backoff schedule, everything else is
// assumed transient.
func Classify(err error) FailureKind {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return FailureFatal
	case errors.Is(err, ErrRateLimited):
		return FailureRateLimit
	default:
		return FailureTransient
	}
}

// BackoffDelay computes the wait before retry number attempt (0-based):
// exponential growth from a per-kind base, capped, then jittered down to
// 50-100% so concurrent workers don't retry in lockstep. Rate limits start
// at the minimum delay but may climb to the full ceiling; other transients
// start at twice that and cap at half the ceiling.
func BackoffDelay(attempt int, kind FailureKind) time.Duration {
	base := config.EmbeddingMinRetryDelay
	ceiling := config.EmbeddingMaxRetryDelay
	if kind != FailureRateLimit {
		base = 2 * config.EmbeddingMinRetryDelay
		ceiling = config.EmbeddingMaxRetryDelay / 2
	}

	delay := base << uint(attempt)
	if delay > ceiling || delay <= 0 {
		delay = ceiling
	}
	jitter := 0.5 + rand.Float64()*0.5
	return time.Duration(float64(delay) * jitter)
}

// Validate reports whether a returned vector is usable for storage.
func Validate(emb []float32, expectedDim int) bool {
	return expectedDim > 0 && len(emb) == expectedDim
}

// Generator runs texts through the primary provider and falls over to the
// secondary when the primary is exhausted. The two providers may produce
// different dimensions, so callers get the dimension of whichever one served.
type Generator struct {
	primary  Provider
	fallback Provider
	retries  int
	backoff  func(attempt int, kind FailureKind) time.Duration
	sleep    func(time.Duration)
	logger   *logger_i.Logger
}

func NewGenerator(primary Provider, fallback Provider) *Generator {
	return &Generator{
		primary:  primary,
		fallback: fallback,
		retries:  config.EmbeddingMaxRetries,
		backoff:  BackoffDelay,
		sleep:    time.Sleep,
		logger:   logger_i.NewLogger("embedding_generator"),
	}
}

func (g *Generator) providers() []Provider {
	var out []Provider
	if g.primary != nil {
		out = append(out, g.primary)
	}
	if g.fallback != nil {
		out = append(out, g.fallback)
	}
	return out
}

// EmbedDocuments embeds texts in provider-sized batches. All vectors in the
// result come from a single provider, so the returned dimension holds for
// every one of them. Order matches the input.
func (g *Generator) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, int, error) {
	if len(texts) == 0 {
		return nil, 0, nil
	}
	providers := g.providers()
	if len(providers) == 0 {
		return nil, 0, ErrNotConfigured
	}
	log := g.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embed_documents", time.Since(start)) }()

	var lastErr error
	for _, p := range providers {
		vectors, err := g.embedAllBatches(ctx, p, texts)
		if err == nil {
			return vectors, p.Dimension(), nil
		}
		lastErr = err
		log.Warn("Embedding provider exhausted, trying next", "provider", p.Name(), "error", err.Error())
	}
	return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// EmbedQuery embeds a single search query.
func (g *Generator) EmbedQuery(ctx context.Context, query string) ([]float32, int, error) {
	providers := g.providers()
	if len(providers) == 0 {
		return nil, 0, ErrNotConfigured
	}
	log := g.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	var lastErr error
	for _, p := range providers {
		vectors, err := g.withRetries(ctx, p, []string{query}, InputQuery)
		if err == nil && len(vectors) == 1 && Validate(vectors[0], p.Dimension()) {
			return vectors[0], p.Dimension(), nil
		}
		if err == nil {
			err = fmt.Errorf("provider %s returned a malformed query vector", p.Name())
		}
		lastErr = err
		log.Warn("Query embedding failed, trying next provider", "provider", p.Name(), "error", err.Error())
	}
	return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (g *Generator) embedAllBatches(ctx context.Context, p Provider, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += config.EmbeddingBatchCeiling {
		end := start + config.EmbeddingBatchCeiling
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := g.withRetries(ctx, p, texts[start:end], InputDocument)
		if err != nil {
			return nil, err
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("provider %s returned %d vectors for %d texts", p.Name(), len(batch), end-start)
		}
		for i, v := range batch {
			if !Validate(v, p.Dimension()) {
				return nil, fmt.Errorf("provider %s returned a bad vector at index %d", p.Name(), start+i)
			}
		}
		vectors = append(vectors, batch...)

		if end < len(texts) {
			g.sleep(config.EmbeddingInterBatchDelay)
		}
	}
	return vectors, nil
}

func (g *Generator) withRetries(ctx context.Context, p Provider, texts []string, input InputType) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= g.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		vectors, err := p.Embed(ctx, texts, input)
		if err == nil {
			return vectors, nil
		}
		lastErr = err

		kind := Classify(err)
		if kind == FailureFatal || attempt == g.retries {
			break
		}
		g.sleep(g.backoff(attempt, kind))
	}
	return nil, lastErr
}
