// Package classifier は画像分類モデルのバックエンドを提供する
//
// どのバックエンドも1枚の画像に対してクラスごとの確率を返す。
// クラスの順序はモデルのメタデータ（metadata.json の labels）に従う。
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrUnknownBackend は未対応のバックエンドが指定された場合のエラー
	ErrUnknownBackend = errors.New("サポートされていない分類バックエンド")
	// ErrBackendUnavailable はバックエンドがこのバイナリに組み込まれていない場合のエラー
	ErrBackendUnavailable = errors.New("このビルドでは使えない分類バックエンド")
)

// Prediction は1フレームに対する1クラスの確率
type Prediction struct {
	ClassName   string  `json:"className"`
	Probability float64 `json:"probability"`
}

// Classifier は画像分類器のインターフェース
type Classifier interface {
	// Predict は画像を分類してクラスごとの確率を返す
	Predict(ctx context.Context, img image.Image) ([]Prediction, error)

	// Classes はクラス名をモデルの出力順で返す
	Classes() []string

	// TotalClasses はクラス数を返す
	TotalClasses() int

	// Close はモデルのリソースを解放する
	Close() error
}

// Metadata はモデルのメタデータ
// Teachable Machine の metadata.json と fer-api 形式の両方を読める
type Metadata struct {
	ModelName string   `json:"modelName,omitempty"`
	Labels    []string `json:"labels"`
	ImageSize int      `json:"imageSize"`

	// fer-api 形式
	Classes       []string `json:"classes,omitempty"`
	ImageSizeFER  int      `json:"image_size,omitempty"`
	InputShape    []int64  `json:"input_shape,omitempty"`
	OutputShape   []int64  `json:"output_shape,omitempty"`
	InputName     string   `json:"input_name,omitempty"`
	OutputName    string   `json:"output_name,omitempty"`
	Layout        Layout   `json:"layout,omitempty"`
	Normalization Norm     `json:"normalization,omitempty"`
	Softmax       bool     `json:"softmax,omitempty"`
}

// normalize は別名のフィールドをまとめ、未指定の値にデフォルトを入れる
func (m *Metadata) normalize() error {
	if len(m.Labels) == 0 {
		m.Labels = m.Classes
	}
	if m.ImageSize == 0 {
		m.ImageSize = m.ImageSizeFER
	}
	if m.ImageSize == 0 {
		m.ImageSize = 224
	}
	if m.Layout == "" {
		m.Layout = LayoutNHWC
	}
	if m.Normalization == "" {
		m.Normalization = NormSigned
	}
	if m.InputName == "" {
		m.InputName = "input"
	}
	if m.OutputName == "" {
		m.OutputName = "output"
	}

	if len(m.Labels) == 0 {
		return fmt.Errorf("メタデータにクラスがありません")
	}
	return nil
}

// LoadMetadata はファイルパスまたはHTTP(S) URLからmetadata.jsonを読み込む
func LoadMetadata(ctx context.Context, client *http.Client, src string) (*Metadata, error) {
	var data []byte
	var err error

	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		data, err = fetch(ctx, client, src)
	} else {
		data, err = os.ReadFile(src)
	}
	if err != nil {
		return nil, fmt.Errorf("メタデータの読み込みに失敗 (%s): %w", src, err)
	}

	var meta Metadata
	if strings.HasSuffix(src, ".txt") {
		meta.Labels = parseLabels(string(data))
	} else if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("メタデータの解析に失敗 (%s): %w", src, err)
	}
	if err := meta.normalize(); err != nil {
		return nil, fmt.Errorf("無効なメタデータ (%s): %w", src, err)
	}

	return &meta, nil
}

// parseLabels は TensorFlow Lite 書き出しの labels.txt を読む
// 各行は "0 Normal" のように番号とクラス名
func parseLabels(text string) []string {
	var labels []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if idx, name, ok := strings.Cut(line, " "); ok {
			if _, err := strconv.Atoi(idx); err == nil {
				line = strings.TrimSpace(name)
			}
		}
		labels = append(labels, line)
	}
	return labels
}

func fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("予期しないステータスコード: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// orderByLabels は確率のマップをラベル順のスライスに並べる
// ラベルにないクラスは名前順で末尾に付け加える
func orderByLabels(labels []string, probs map[string]float64) []Prediction {
	predictions := make([]Prediction, 0, len(probs))
	seen := make(map[string]bool, len(labels))

	for _, label := range labels {
		seen[label] = true
		predictions = append(predictions, Prediction{ClassName: label, Probability: probs[label]})
	}

	var extra []string
	for name := range probs {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		predictions = append(predictions, Prediction{ClassName: name, Probability: probs[name]})
	}

	return predictions
}
