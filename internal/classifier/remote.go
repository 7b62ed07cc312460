package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

// RemoteConfig はHTTP推論サーバーの設定
type RemoteConfig struct {
	Endpoint string // multipart の image フィールドで画像を受け取るURL
	Timeout  time.Duration
	Retry    RetryConfig
}

// remoteResponse は推論サーバーのレスポンス
type remoteResponse struct {
	Class       string             `json:"class"`
	Confidence  float64            `json:"confidence"`
	Predictions map[string]float64 `json:"predictions"`
}

var (
	// ErrNoEndpoint は remote バックエンドに推論エンドポイントが設定されていない場合のエラー
	ErrNoEndpoint = errors.New("推論エンドポイントが設定されていません (MODEL_ENDPOINT)")
	// ErrStaticModelHost は静的ファイルしか配信しないホストを推論先に指定した場合のエラー
	ErrStaticModelHost = errors.New("Teachable Machine の共有URLは推論を受け付けません。tflite バックエンドか推論サーバーを使ってください")
)

// staticModelHosts はモデルファイルを配信するだけで推論APIを持たないホスト
var staticModelHosts = map[string]bool{
	"teachablemachine.withgoogle.com": true,
	"storage.googleapis.com":          true,
}

// ValidateEndpoint は推論エンドポイントとして使えるURLかを確認する
func ValidateEndpoint(endpoint string) error {
	if endpoint == "" {
		return ErrNoEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("無効な推論エンドポイント: %s", endpoint)
	}
	if staticModelHosts[u.Hostname()] {
		return fmt.Errorf("%w: %s", ErrStaticModelHost, endpoint)
	}
	return nil
}

// RemoteClassifier はHTTP推論サーバーに画像を送って分類する
type RemoteClassifier struct {
	meta     *Metadata
	endpoint string
	client   *http.Client
	retry    RetryConfig
}

// NewRemoteClassifier は新しいRemoteClassifierを作成する
func NewRemoteClassifier(meta *Metadata, cfg RemoteConfig, client *http.Client) (*RemoteClassifier, error) {
	if meta == nil {
		return nil, fmt.Errorf("メタデータが指定されていません")
	}
	if err := ValidateEndpoint(cfg.Endpoint); err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &RemoteClassifier{
		meta:     meta,
		endpoint: cfg.Endpoint,
		client:   client,
		retry:    cfg.Retry,
	}, nil
}

// Predict は画像をJPEGにエンコードして推論サーバーに送る
func (c *RemoteClassifier) Predict(ctx context.Context, img image.Image) ([]Prediction, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("JPEGエンコードに失敗: %w", err)
	}
	payload := buf.Bytes()

	var result remoteResponse
	err := retry(ctx, c.retry, func() error {
		resp, err := c.post(ctx, payload)
		if err != nil {
			return err
		}
		result = *resp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("リモート推論に失敗: %w", err)
	}

	if len(result.Predictions) == 0 && result.Class != "" {
		result.Predictions = map[string]float64{result.Class: result.Confidence}
	}
	return orderByLabels(c.meta.Labels, result.Predictions), nil
}

func (c *RemoteClassifier) post(ctx context.Context, payload []byte) (*remoteResponse, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", "frame.jpg")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(payload); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
	}

	var result remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return &result, nil
}

// Classes はクラス名を返す
func (c *RemoteClassifier) Classes() []string {
	return append([]string(nil), c.meta.Labels...)
}

// TotalClasses はクラス数を返す
func (c *RemoteClassifier) TotalClasses() int {
	return len(c.meta.Labels)
}

// Close は何もしない
func (c *RemoteClassifier) Close() error {
	return nil
}
