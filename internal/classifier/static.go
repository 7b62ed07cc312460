package classifier

import (
	"context"
	"fmt"
	"image"
	"sync"
)

// StaticClassifier はあらかじめ決めた確率を順番に返す
// カメラやモデルのない環境でのデモとテストに使う
type StaticClassifier struct {
	labels  []string
	vectors [][]float64

	mu    sync.Mutex
	calls int
}

// NewStaticClassifier は新しいStaticClassifierを作成する
// vectors が空の場合は全クラス同じ確率を返す
func NewStaticClassifier(labels []string, vectors ...[]float64) (*StaticClassifier, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("クラスが指定されていません")
	}
	for i, v := range vectors {
		if len(v) != len(labels) {
			return nil, fmt.Errorf("確率ベクトル %d の長さ %d がクラス数 %d と一致しません", i, len(v), len(labels))
		}
	}

	if len(vectors) == 0 {
		uniform := make([]float64, len(labels))
		for i := range uniform {
			uniform[i] = 1 / float64(len(labels))
		}
		vectors = [][]float64{uniform}
	}

	return &StaticClassifier{
		labels:  append([]string(nil), labels...),
		vectors: vectors,
	}, nil
}

// Predict は次の確率ベクトルを返す。最後まで来たら先頭に戻る
func (c *StaticClassifier) Predict(ctx context.Context, _ image.Image) ([]Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	vector := c.vectors[c.calls%len(c.vectors)]
	c.calls++
	c.mu.Unlock()

	predictions := make([]Prediction, len(c.labels))
	for i, label := range c.labels {
		predictions[i] = Prediction{ClassName: label, Probability: vector[i]}
	}
	return predictions, nil
}

// Calls はこれまでの Predict の呼び出し回数を返す
func (c *StaticClassifier) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Classes はクラス名を返す
func (c *StaticClassifier) Classes() []string {
	return append([]string(nil), c.labels...)
}

// TotalClasses はクラス数を返す
func (c *StaticClassifier) TotalClasses() int {
	return len(c.labels)
}

// Close は何もしない
func (c *StaticClassifier) Close() error {
	return nil
}
