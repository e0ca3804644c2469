package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/avellore/ragstack/pkg/logger_i"
)

type mockProvider struct {
	name      string
	dimension int
	OnEmbed   func(ctx context.Context, texts []string, input InputType) ([][]float32, error)
}

func (m *mockProvider) Name() string   { return m.name }
func (m *mockProvider) Dimension() int { return m.dimension }
func (m *mockProvider) Embed(ctx context.Context, texts []string, input InputType) ([][]float32, error) {
	return m.OnEmbed(ctx, texts, input)
}

func vectorsFor(texts []string, dim int) [][]float32 {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, dim)
		out[i][0] = float32(i) + 1
	}
	return out
}

func newTestGenerator(primary, fallback Provider) *Generator {
	g := NewGenerator(primary, fallback)
	g.sleep = func(time.Duration) {}
	g.logger = logger_i.NewLogger("embedding_generator_test")
	return g
}

func TestEmbedDocuments_RateLimitThenSuccess(t *testing.T) {
	calls := 0
	primary := &mockProvider{
		name:      "flaky",
		dimension: 4,
		OnEmbed: func(_ context.Context, texts []string, _ InputType) ([][]float32, error) {
			calls++
			if calls <= 2 {
				return nil, fmt.Errorf("quota: %w", ErrRateLimited)
			}
			return vectorsFor(texts, 4), nil
		},
	}

	g := newTestGenerator(primary, nil)
	vectors, dim, err := g.EmbedDocuments(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("expected recovery after two rate limits, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
	if dim != 4 || len(vectors) != 2 {
		t.Errorf("got %d vectors of dim %d, want 2 of dim 4", len(vectors), dim)
	}
}

func TestEmbedDocuments_FallbackDimension(t *testing.T) {
	primary := &mockProvider{
		name:      "down",
		dimension: 8,
		OnEmbed: func(context.Context, []string, InputType) ([][]float32, error) {
			return nil, errors.New("upstream down")
		},
	}
	fallback := &mockProvider{
		name:      "backup",
		dimension: 3,
		OnEmbed: func(_ context.Context, texts []string, _ InputType) ([][]float32, error) {
			return vectorsFor(texts, 3), nil
		},
	}

	g := newTestGenerator(primary, fallback)
	vectors, dim, err := g.EmbedDocuments(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("fallback should have served: %v", err)
	}
	if dim != 3 {
		t.Errorf("expected fallback dimension 3, got %d", dim)
	}
	if len(vectors) != 1 || len(vectors[0]) != 3 {
		t.Errorf("vectors do not match fallback dimension: %v", vectors)
	}
}

func TestEmbedDocuments_AllProvidersDown(t *testing.T) {
	dead := &mockProvider{
		name:      "dead",
		dimension: 4,
		OnEmbed: func(context.Context, []string, InputType) ([][]float32, error) {
			return nil, errors.New("boom")
		},
	}

	g := newTestGenerator(dead, nil)
	if _, _, err := g.EmbedDocuments(context.Background(), []string{"a"}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestEmbedDocuments_Batching(t *testing.T) {
	var batchSizes []int
	provider := &mockProvider{
		name:      "batcher",
		dimension: 2,
		OnEmbed: func(_ context.Context, texts []string, input InputType) ([][]float32, error) {
			if input != InputDocument {
				t.Errorf("document embedding must use InputDocument, got %s", input)
			}
			batchSizes = append(batchSizes, len(texts))
			return vectorsFor(texts, 2), nil
		},
	}

	texts := make([]string, 200)
	for i := range texts {
		texts[i] = fmt.Sprintf("text %d", i)
	}

	g := newTestGenerator(provider, nil)
	vectors, _, err := g.EmbedDocuments(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	if len(vectors) != 200 {
		t.Fatalf("expected 200 vectors, got %d", len(vectors))
	}
	// 200 texts at a 96 ceiling -> 96, 96, 8
	want := []int{96, 96, 8}
	if len(batchSizes) != len(want) {
		t.Fatalf("expected %d batches, got %v", len(want), batchSizes)
	}
	for i := range want {
		if batchSizes[i] != want[i] {
			t.Errorf("batch %d has size %d, want %d", i, batchSizes[i], want[i])
		}
	}
}

func TestEmbedQuery_UsesQueryInput(t *testing.T) {
	provider := &mockProvider{
		name:      "q",
		dimension: 2,
		OnEmbed: func(_ context.Context, texts []string, input InputType) ([][]float32, error) {
			if input != InputQuery {
				t.Errorf("query embedding must use InputQuery, got %s", input)
			}
			return vectorsFor(texts, 2), nil
		},
	}

	g := newTestGenerator(provider, nil)
	vec, dim, err := g.EmbedQuery(context.Background(), "what is dedup")
	if err != nil {
		t.Fatal(err)
	}
	if dim != 2 || len(vec) != 2 {
		t.Errorf("got vector of len %d dim %d, want 2/2", len(vec), dim)
	}
}

func TestEmbedDocuments_ContextCancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	provider := &mockProvider{
		name:      "cancelled",
		dimension: 2,
		OnEmbed: func(context.Context, []string, InputType) ([][]float32, error) {
			calls++
			cancel()
			return nil, ctx.Err()
		},
	}

	g := newTestGenerator(provider, nil)
	if _, _, err := g.EmbedDocuments(ctx, []string{"a"}); err == nil {
		t.Fatal("expected error after cancellation")
	}
	if calls != 1 {
		t.Errorf("cancelled context must not be retried, got %d calls", calls)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"rate limit", fmt.Errorf("429: %w", ErrRateLimited), FailureRateLimit},
		{"cancelled", context.Canceled, FailureFatal},
		{"deadline", context.DeadlineExceeded, FailureFatal},
		{"other", errors.New("connection reset"), FailureTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Errorf("Classify(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestBackoffDelay_Bounds(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := BackoffDelay(attempt, FailureRateLimit)
		if d <= 0 || d > 60*time.Second {
			t.Errorf("rate limit delay out of bounds at attempt %d: %v", attempt, d)
		}

		d = BackoffDelay(attempt, FailureTransient)
		if d <= 0 || d > 30*time.Second {
			t.Errorf("transient delay out of bounds at attempt %d: %v", attempt, d)
		}
	}

	// growth: a late rate-limit attempt should never undershoot the base
	if d := BackoffDelay(0, FailureRateLimit); d < 500*time.Millisecond {
		t.Errorf("first rate limit delay too small: %v", d)
	}
}

// Rate limits start at the minimum delay but may wait up to the full
// ceiling; other transients start at twice the minimum and cap at half.
// Jitter keeps every delay within 50-100% of the computed value.
func TestBackoffDelay_PerKindSchedule(t *testing.T) {
	if d := BackoffDelay(0, FailureRateLimit); d < 500*time.Millisecond || d > time.Second {
		t.Errorf("first rate limit delay %v outside [0.5s, 1s]", d)
	}
	if d := BackoffDelay(0, FailureTransient); d < time.Second || d > 2*time.Second {
		t.Errorf("first transient delay %v outside [1s, 2s]", d)
	}
	if d := BackoffDelay(20, FailureRateLimit); d < 30*time.Second || d > 60*time.Second {
		t.Errorf("capped rate limit delay %v outside [30s, 60s]", d)
	}
	if d := BackoffDelay(20, FailureTransient); d < 15*time.Second || d > 30*time.Second {
		t.Errorf("capped transient delay %v outside [15s, 30s]", d)
	}
}

func TestValidate(t *testing.T) {
	if !Validate(make([]float32, 8), 8) {
		t.Error("matching dimension should validate")
	}
	if Validate(make([]float32, 7), 8) {
		t.Error("short vector should not validate")
	}
	if Validate(nil, 8) {
		t.Error("nil vector should not validate")
	}
	if Validate(nil, 0) {
		t.Error("zero dimension should not validate")
	}
}
