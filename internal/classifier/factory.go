package classifier

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"kulitscan/internal/config"
)

// DefaultStaticLabels は static バックエンドでメタデータを取得できない場合のクラス
var DefaultStaticLabels = []string{"Normal", "Acne", "Eczema"}

// New は設定に応じた分類器を作成する
func New(ctx context.Context, cfg *config.Config) (Classifier, error) {
	httpClient := &http.Client{Timeout: cfg.Model.Timeout}

	if cfg.Model.Backend == "static" {
		meta, err := LoadMetadata(ctx, httpClient, cfg.MetadataSource())
		if err != nil {
			log.Printf("メタデータを取得できないため既定のクラスを使用します: %v", err)
			return NewStaticClassifier(DefaultStaticLabels)
		}
		return NewStaticClassifier(meta.Labels)
	}

	// 推論先が無いまま起動すると判定のたびに失敗するので、ここで止める
	if cfg.Model.Backend == "remote" {
		if err := ValidateEndpoint(cfg.Model.Endpoint); err != nil {
			return nil, err
		}
	}

	meta, err := LoadMetadata(ctx, httpClient, cfg.MetadataSource())
	if err != nil {
		return nil, err
	}
	log.Printf("モデルのメタデータを読み込みました: %d クラス %v", len(meta.Labels), meta.Labels)

	switch cfg.Model.Backend {
	case "remote":
		return NewRemoteClassifier(meta, RemoteConfig{
			Endpoint: cfg.Model.Endpoint,
			Timeout:  cfg.Model.Timeout,
			Retry: RetryConfig{
				MaxRetries:   cfg.Model.MaxRetries,
				JitterFactor: defaultJitterFactor,
			},
		}, httpClient)

	case "onnx":
		return NewONNXClassifier(meta, ONNXConfig{
			ModelPath:   cfg.Model.Path,
			LibraryPath: cfg.Model.LibraryPath,
		})

	case "tflite":
		return NewTFLiteClassifier(meta, TFLiteConfig{
			ModelPath: cfg.Model.Path,
			Threads:   cfg.Model.Threads,
		})

	case "rekognition":
		client, err := NewRekognitionClient(ctx, cfg.Model.AWSRegion)
		if err != nil {
			return nil, err
		}
		return NewRekognitionClassifier(meta, client, cfg.Model.ProjectVersionARN)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Model.Backend)
	}
}
