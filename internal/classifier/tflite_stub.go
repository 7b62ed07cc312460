//go:build !tflite

package classifier

import "fmt"

// NewTFLiteClassifier は tflite ビルドタグなしでは使えない
// libtensorflowlite_c を入れて -tags tflite でビルドする
func NewTFLiteClassifier(meta *Metadata, cfg TFLiteConfig) (Classifier, error) {
	return nil, fmt.Errorf("%w: tflite (-tags tflite でビルドしてください)", ErrBackendUnavailable)
}
