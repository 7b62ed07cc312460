package predict

import (
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"github.com/google/uuid"

	"kulitscan/internal/classifier"
)

// Mode はサンプリング方式
type Mode string

const (
	// ModeFrozen は最初にカメラを止め、同じキャンバスで全ての推論を行う
	ModeFrozen Mode = "frozen"
	// ModeLive は推論ごとに次のフレームを待ち、最後にカメラを止める
	ModeLive Mode = "live"
)

// FrameSource は推論対象のキャンバスを提供する
type FrameSource interface {
	Canvas() (image.Image, error)
	NextFrame(ctx context.Context) error
	Pause()
}

// Options は Predictor の設定
type Options struct {
	Samples      int
	Mode         Mode
	Warmup       bool
	FrameTimeout time.Duration
}

// Predictor は分類器を使ってバースト推論を行う
type Predictor struct {
	classifier classifier.Classifier
	opts       Options
	now        func() time.Time
}

// NewPredictor は新しいPredictorを作成する
func NewPredictor(c classifier.Classifier, opts Options) *Predictor {
	if opts.Samples <= 0 {
		opts.Samples = DefaultSamples
	}
	if opts.Mode == "" {
		opts.Mode = ModeFrozen
	}
	if opts.FrameTimeout <= 0 {
		opts.FrameTimeout = time.Second
	}

	return &Predictor{
		classifier: c,
		opts:       opts,
		now:        time.Now,
	}
}

// Samples は1回の判定で行う推論回数を返す
func (p *Predictor) Samples() int {
	return p.opts.Samples
}

// Run はキャンバスに対して推論を繰り返し、平均した結果を返す
func (p *Predictor) Run(ctx context.Context, source FrameSource) (*Result, error) {
	startedAt := p.now()

	if p.opts.Mode == ModeFrozen {
		source.Pause()
	}

	var order []string
	if p.opts.Warmup {
		// 初回の推論はクラスの順序を決めるためだけに使う
		warmup, err := p.infer(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("初回推論に失敗: %w", err)
		}
		order = make([]string, 0, len(warmup))
		for _, pred := range warmup {
			order = append(order, pred.ClassName)
		}
	}

	samples := make([][]classifier.Prediction, 0, p.opts.Samples)
	for i := 0; i < p.opts.Samples; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if p.opts.Mode == ModeLive {
			frameCtx, cancel := context.WithTimeout(ctx, p.opts.FrameTimeout)
			err := source.NextFrame(frameCtx)
			cancel()
			if err != nil && ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if err != nil {
				// 新しいフレームが来なければ現在のキャンバスで続ける
				log.Printf("次のフレームを待てませんでした (%d/%d): %v", i+1, p.opts.Samples, err)
			}
		}

		sample, err := p.infer(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("推論に失敗 (%d/%d): %w", i+1, p.opts.Samples, err)
		}
		samples = append(samples, sample)
	}

	if p.opts.Mode == ModeLive {
		source.Pause()
	}

	result, err := aggregate(order, samples)
	if err != nil {
		return nil, err
	}

	result.ID = uuid.New()
	result.StartedAt = startedAt
	result.Duration = p.now().Sub(startedAt)

	log.Printf("推論完了: %s (%.2f%%, %d回, %v)", result.Class, result.Percentage(), result.Samples, result.Duration)
	return &result, nil
}

func (p *Predictor) infer(ctx context.Context, source FrameSource) ([]classifier.Prediction, error) {
	img, err := source.Canvas()
	if err != nil {
		return nil, err
	}
	return p.classifier.Predict(ctx, img)
}
