package classifier

import (
	"context"
	"fmt"
	"image"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXConfig はONNX Runtimeバックエンドの設定
type ONNXConfig struct {
	ModelPath   string
	LibraryPath string // onnxruntime 共有ライブラリ。空ならデフォルトの探索パス
}

// ONNXClassifier はONNX Runtimeでモデルをローカル実行する
type ONNXClassifier struct {
	meta *Metadata

	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// NewONNXClassifier はモデルを読み込んでセッションを作成する
func NewONNXClassifier(meta *Metadata, cfg ONNXConfig) (*ONNXClassifier, error) {
	if meta == nil {
		return nil, fmt.Errorf("メタデータが指定されていません")
	}

	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("ONNX Runtimeの初期化に失敗: %w", err)
		}
	}

	inputShape := ort.NewShape(inputShapeOf(meta)...)
	outputShape := ort.NewShape(outputShapeOf(meta)...)

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("入力テンソルの作成に失敗: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("出力テンソルの作成に失敗: %w", err)
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{meta.InputName}, []string{meta.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("ONNXセッションの作成に失敗 (%s): %w", cfg.ModelPath, err)
	}

	return &ONNXClassifier{
		meta:         meta,
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

func inputShapeOf(meta *Metadata) []int64 {
	if len(meta.InputShape) > 0 {
		return meta.InputShape
	}
	size := int64(meta.ImageSize)
	if meta.Layout == LayoutNCHW {
		return []int64{1, 3, size, size}
	}
	return []int64{1, size, size, 3}
}

func outputShapeOf(meta *Metadata) []int64 {
	if len(meta.OutputShape) > 0 {
		return meta.OutputShape
	}
	return []int64{1, int64(len(meta.Labels))}
}

// Predict は画像をテンソルに変換して推論する
func (c *ONNXClassifier) Predict(ctx context.Context, img image.Image) ([]Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	input, err := ToTensor(img, c.meta.ImageSize, c.meta.Layout, c.meta.Normalization)
	if err != nil {
		return nil, fmt.Errorf("前処理に失敗: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil, fmt.Errorf("セッションは既に閉じられています")
	}

	dst := c.inputTensor.GetData()
	if len(dst) != len(input) {
		return nil, fmt.Errorf("入力サイズが一致しません: モデル %d, 画像 %d", len(dst), len(input))
	}
	copy(dst, input)

	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("推論に失敗: %w", err)
	}

	output := c.outputTensor.GetData()
	var probs []float64
	if c.meta.Softmax {
		probs = Softmax(output)
	} else {
		probs = make([]float64, len(output))
		for i, v := range output {
			probs[i] = float64(v)
		}
	}

	return predictionsOf(c.meta.Labels, probs), nil
}

// Classes はクラス名を返す
func (c *ONNXClassifier) Classes() []string {
	return append([]string(nil), c.meta.Labels...)
}

// TotalClasses はクラス数を返す
func (c *ONNXClassifier) TotalClasses() int {
	return len(c.meta.Labels)
}

// Close はセッションとテンソルを破棄する
func (c *ONNXClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inputTensor != nil {
		c.inputTensor.Destroy()
		c.inputTensor = nil
	}
	if c.outputTensor != nil {
		c.outputTensor.Destroy()
		c.outputTensor = nil
	}
	if c.session != nil {
		if err := c.session.Destroy(); err != nil {
			c.session = nil
			return fmt.Errorf("セッションの破棄に失敗: %w", err)
		}
		c.session = nil
	}
	return ort.DestroyEnvironment()
}
