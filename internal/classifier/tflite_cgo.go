//go:build tflite

package classifier

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/mattn/go-tflite"
)

// TFLiteClassifier はTensorFlow Liteでモデルをローカル実行する
type TFLiteClassifier struct {
	meta *Metadata
	size int

	mu          sync.Mutex
	model       *tflite.Model
	options     *tflite.InterpreterOptions
	interpreter *tflite.Interpreter
}

// NewTFLiteClassifier はモデルを読み込んでインタプリタを作成する
func NewTFLiteClassifier(meta *Metadata, cfg TFLiteConfig) (Classifier, error) {
	if meta == nil {
		return nil, fmt.Errorf("メタデータが指定されていません")
	}

	model := tflite.NewModelFromFile(cfg.ModelPath)
	if model == nil {
		return nil, fmt.Errorf("TensorFlow Liteモデルの読み込みに失敗: %s", cfg.ModelPath)
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	options := tflite.NewInterpreterOptions()
	options.SetNumThread(threads)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		options.Delete()
		model.Delete()
		return nil, fmt.Errorf("インタプリタの作成に失敗: %s", cfg.ModelPath)
	}

	c := &TFLiteClassifier{
		meta:        meta,
		size:        meta.ImageSize,
		model:       model,
		options:     options,
		interpreter: interpreter,
	}

	if status := interpreter.AllocateTensors(); status != tflite.OK {
		_ = c.Close()
		return nil, fmt.Errorf("テンソルの確保に失敗: %v", status)
	}

	// 入力は [1, height, width, 3]。画像サイズはモデルに合わせる
	input := interpreter.GetInputTensor(0)
	if input.NumDims() == 4 {
		c.size = input.Dim(1)
	}

	return c, nil
}

// Predict は画像をテンソルに変換して推論する
func (c *TFLiteClassifier) Predict(ctx context.Context, img image.Image) ([]Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.interpreter == nil {
		return nil, fmt.Errorf("インタプリタは既に閉じられています")
	}

	input := c.interpreter.GetInputTensor(0)
	switch input.Type() {
	case tflite.Float32:
		data, err := ToTensor(img, c.size, LayoutNHWC, c.meta.Normalization)
		if err != nil {
			return nil, fmt.Errorf("前処理に失敗: %w", err)
		}
		dst := input.Float32s()
		if len(dst) != len(data) {
			return nil, fmt.Errorf("入力サイズが一致しません: モデル %d, 画像 %d", len(dst), len(data))
		}
		copy(dst, data)

	case tflite.UInt8:
		data, err := ToTensor(img, c.size, LayoutNHWC, NormUnit)
		if err != nil {
			return nil, fmt.Errorf("前処理に失敗: %w", err)
		}
		dst := input.UInt8s()
		if len(dst) != len(data) {
			return nil, fmt.Errorf("入力サイズが一致しません: モデル %d, 画像 %d", len(dst), len(data))
		}
		copy(dst, toUint8(data))

	default:
		return nil, fmt.Errorf("未対応の入力型: %v", input.Type())
	}

	if status := c.interpreter.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("推論に失敗: %v", status)
	}

	output := c.interpreter.GetOutputTensor(0)
	var probs []float64
	switch output.Type() {
	case tflite.Float32:
		values := output.Float32s()
		if c.meta.Softmax {
			probs = Softmax(values)
		} else {
			probs = make([]float64, len(values))
			for i, v := range values {
				probs[i] = float64(v)
			}
		}

	case tflite.UInt8:
		q := output.QuantizationParams()
		probs = dequantize(output.UInt8s(), q.Scale, q.ZeroPoint)

	default:
		return nil, fmt.Errorf("未対応の出力型: %v", output.Type())
	}

	return predictionsOf(c.meta.Labels, probs), nil
}

// Classes はクラス名を返す
func (c *TFLiteClassifier) Classes() []string {
	return append([]string(nil), c.meta.Labels...)
}

// TotalClasses はクラス数を返す
func (c *TFLiteClassifier) TotalClasses() int {
	return len(c.meta.Labels)
}

// Close はインタプリタとモデルを破棄する
func (c *TFLiteClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.interpreter != nil {
		c.interpreter.Delete()
		c.interpreter = nil
	}
	if c.options != nil {
		c.options.Delete()
		c.options = nil
	}
	if c.model != nil {
		c.model.Delete()
		c.model = nil
	}
	return nil
}
