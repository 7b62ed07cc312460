package predict

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"kulitscan/internal/classifier"
)

// mockSource はテスト用の FrameSource
type mockSource struct {
	mu         sync.Mutex
	paused     bool
	pauses     int
	nextFrames int
	canvasErr  error
	nextErr    error
	// Canvas が呼ばれた時点で止まっていたか
	pausedAtCanvas []bool
}

func (m *mockSource) Canvas() (image.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pausedAtCanvas = append(m.pausedAtCanvas, m.paused)
	if m.canvasErr != nil {
		return nil, m.canvasErr
	}
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
}

func (m *mockSource) NextFrame(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextFrames++
	return m.nextErr
}

func (m *mockSource) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
	m.pauses++
}

func newStatic(t *testing.T, vectors ...[]float64) *classifier.StaticClassifier {
	t.Helper()
	c, err := classifier.NewStaticClassifier([]string{"Normal", "Acne"}, vectors...)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestPredictor_Frozen(t *testing.T) {
	c := newStatic(t, []float64{0.3, 0.7}, []float64{0.8, 0.2})
	source := &mockSource{}

	p := NewPredictor(c, Options{Samples: 10, Warmup: true})
	result, err := p.Run(context.Background(), source)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if c.Calls() != 11 {
		t.Errorf("Expected 11 inferences (1 warm-up + 10), got %d", c.Calls())
	}
	if source.pauses != 1 || source.nextFrames != 0 {
		t.Errorf("Expected 1 pause and no frame waits, got %d pauses, %d waits", source.pauses, source.nextFrames)
	}
	for i, paused := range source.pausedAtCanvas {
		if !paused {
			t.Errorf("Canvas read %d happened before pause", i)
		}
	}

	// 初回推論を除くと Normal は 0.8,0.3,0.8,... で平均 0.55
	if result.Class != "Normal" {
		t.Errorf("Expected Normal, got %s (%+v)", result.Class, result.Scores)
	}
	if result.ID == uuid.Nil || result.StartedAt.IsZero() {
		t.Errorf("Expected ID and StartedAt to be set: %+v", result)
	}
	if result.Samples != 10 {
		t.Errorf("Expected 10 samples, got %d", result.Samples)
	}
}

func TestPredictor_WithoutWarmup(t *testing.T) {
	c := newStatic(t)
	p := NewPredictor(c, Options{Samples: 3})

	if _, err := p.Run(context.Background(), &mockSource{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if c.Calls() != 3 {
		t.Errorf("Expected 3 inferences, got %d", c.Calls())
	}
}

func TestPredictor_Live(t *testing.T) {
	c := newStatic(t)
	source := &mockSource{nextErr: context.DeadlineExceeded}

	p := NewPredictor(c, Options{Samples: 4, Mode: ModeLive, FrameTimeout: time.Millisecond})
	if _, err := p.Run(context.Background(), source); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if source.nextFrames != 4 {
		t.Errorf("Expected 4 frame waits, got %d", source.nextFrames)
	}
	if source.pauses != 1 {
		t.Errorf("Expected pause after sampling, got %d", source.pauses)
	}
	for i, paused := range source.pausedAtCanvas {
		if paused {
			t.Errorf("Canvas read %d happened after pause", i)
		}
	}
}

func TestPredictor_Errors(t *testing.T) {
	canvasErr := errors.New("no frame")

	t.Run("canvas error", func(t *testing.T) {
		p := NewPredictor(newStatic(t), Options{Samples: 2, Warmup: true})
		if _, err := p.Run(context.Background(), &mockSource{canvasErr: canvasErr}); !errors.Is(err, canvasErr) {
			t.Errorf("Expected canvas error, got %v", err)
		}
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p := NewPredictor(newStatic(t), Options{Samples: 2})
		if _, err := p.Run(ctx, &mockSource{}); !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	})
}

func TestNewPredictor_Defaults(t *testing.T) {
	p := NewPredictor(newStatic(t), Options{})
	if p.Samples() != DefaultSamples {
		t.Errorf("Expected %d samples, got %d", DefaultSamples, p.Samples())
	}
	if p.opts.Mode != ModeFrozen {
		t.Errorf("Expected frozen mode, got %s", p.opts.Mode)
	}
}
