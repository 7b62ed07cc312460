package classifier

import "math"

// TFLiteConfig はTensorFlow Liteバックエンドの設定
// Teachable Machine の「Tensorflow Lite」書き出し（浮動小数点版と量子化版）を読める
type TFLiteConfig struct {
	ModelPath string
	Threads   int
}

// toUint8 は [0, 1] に正規化した画素を量子化モデルの入力 [0, 255] に戻す
func toUint8(input []float32) []uint8 {
	out := make([]uint8, len(input))
	for i, v := range input {
		out[i] = uint8(math.Round(float64(min(max(v, 0), 1)) * 255))
	}
	return out
}

// dequantize は量子化された出力を確率に戻す
func dequantize(q []uint8, scale float64, zeroPoint int) []float64 {
	if scale == 0 {
		scale = 1.0 / 255
	}
	out := make([]float64, len(q))
	for i, v := range q {
		out[i] = float64(int(v)-zeroPoint) * scale
	}
	return out
}

// predictionsOf は出力をラベル順の Prediction に並べる
func predictionsOf(labels []string, probs []float64) []Prediction {
	predictions := make([]Prediction, 0, len(labels))
	for i, label := range labels {
		var p float64
		if i < len(probs) {
			p = probs[i]
		}
		predictions = append(predictions, Prediction{ClassName: label, Probability: p})
	}
	return predictions
}
