package classifier

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

// CustomLabelsAPI は Rekognition クライアントのうち使用するメソッド
type CustomLabelsAPI interface {
	DetectCustomLabels(ctx context.Context, params *rekognition.DetectCustomLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectCustomLabelsOutput, error)
}

// RekognitionClassifier は Amazon Rekognition Custom Labels で分類する
type RekognitionClassifier struct {
	meta              *Metadata
	client            CustomLabelsAPI
	projectVersionARN string
}

// NewRekognitionClient はデフォルトのAWS認証情報からクライアントを作成する
func NewRekognitionClient(ctx context.Context, region string) (*rekognition.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("AWS SDK設定の読み込みに失敗: %w", err)
	}
	return rekognition.NewFromConfig(awsCfg), nil
}

// NewRekognitionClassifier は新しいRekognitionClassifierを作成する
func NewRekognitionClassifier(meta *Metadata, client CustomLabelsAPI, projectVersionARN string) (*RekognitionClassifier, error) {
	if meta == nil {
		return nil, fmt.Errorf("メタデータが指定されていません")
	}
	if client == nil {
		return nil, fmt.Errorf("Rekognitionクライアントが指定されていません")
	}
	if projectVersionARN == "" {
		return nil, fmt.Errorf("プロジェクトバージョンARNが指定されていません")
	}

	return &RekognitionClassifier{
		meta:              meta,
		client:            client,
		projectVersionARN: projectVersionARN,
	}, nil
}

// Predict は画像を DetectCustomLabels に送る
// 信頼度 (0〜100) は確率 (0〜1) に変換し、返されなかったクラスは0とする
func (c *RekognitionClassifier) Predict(ctx context.Context, img image.Image) ([]Prediction, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("JPEGエンコードに失敗: %w", err)
	}

	out, err := c.client.DetectCustomLabels(ctx, &rekognition.DetectCustomLabelsInput{
		Image:             &types.Image{Bytes: buf.Bytes()},
		ProjectVersionArn: aws.String(c.projectVersionARN),
		MinConfidence:     aws.Float32(0),
	})
	if err != nil {
		return nil, fmt.Errorf("Rekognition DetectCustomLabels に失敗: %w", err)
	}

	probs := make(map[string]float64, len(out.CustomLabels))
	for _, label := range out.CustomLabels {
		if label.Name == nil || label.Confidence == nil {
			continue
		}
		p := float64(*label.Confidence) / 100
		if p > probs[*label.Name] {
			probs[*label.Name] = p
		}
	}

	return orderByLabels(c.meta.Labels, probs), nil
}

// Classes はクラス名を返す
func (c *RekognitionClassifier) Classes() []string {
	return append([]string(nil), c.meta.Labels...)
}

// TotalClasses はクラス数を返す
func (c *RekognitionClassifier) TotalClasses() int {
	return len(c.meta.Labels)
}

// Close は何もしない
func (c *RekognitionClassifier) Close() error {
	return nil
}
