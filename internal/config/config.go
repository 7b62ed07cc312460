package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultModelURL はTeachable Machineのエクスポートパネルで発行されたモデルのURL
const DefaultModelURL = "https://teachablemachine.withgoogle.com/models/nxnJjW5l6/"

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Camera     CameraConfig     `yaml:"camera"`
	Model      ModelConfig      `yaml:"model"`
	Prediction PredictionConfig `yaml:"prediction"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host" validate:"required"` // リッスンするホスト
	Port int    `yaml:"port"`                     // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // 読み込みタイムアウト
	WriteTimeout time.Duration `yaml:"write_timeout"` // 書き込みタイムアウト
}

// CameraConfig はWebカメラの設定
type CameraConfig struct {
	// デバイスパス。空の場合は最初に検出されたカメラを使う。"static" で固定画像ソース
	Device      string `yaml:"device"`
	StaticImage string `yaml:"static_image"` // static ソースで配信するJPEGファイル

	FPS    int `yaml:"fps" validate:"min=1,max=60"`
	Width  int `yaml:"width" validate:"min=1,max=4096"`
	Height int `yaml:"height" validate:"min=1,max=4096"`

	Flip       bool   `yaml:"flip"`        // 左右反転するか
	FacingMode string `yaml:"facing_mode"` // "user" または "environment"
}

// ModelConfig は画像分類モデルの設定
type ModelConfig struct {
	Backend string `yaml:"backend" validate:"oneof=remote onnx tflite rekognition static"`

	// URL はモデルのベースURL。metadata.json はここから取得する
	// Teachable Machine の共有URLは静的ファイルしか配信しないので推論には使えない
	URL          string `yaml:"url"`
	Endpoint     string `yaml:"endpoint"`      // remote バックエンドの推論エンドポイント
	MetadataPath string `yaml:"metadata_path"` // ローカルのmetadata.json（URLより優先）

	// ONNX Runtime / TensorFlow Lite のモデルファイル
	Path        string `yaml:"path"`
	LibraryPath string `yaml:"library_path"`
	Threads     int    `yaml:"threads" validate:"min=0,max=64"` // TensorFlow Lite のスレッド数。0 なら既定値

	// AWS Rekognition Custom Labels
	ProjectVersionARN string `yaml:"project_version_arn"`
	AWSRegion         string `yaml:"aws_region"`

	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries" validate:"min=0,max=10"`
}

// PredictionConfig はバースト推論の設定
type PredictionConfig struct {
	Samples      int           `yaml:"samples" validate:"min=1,max=100"`
	Mode         string        `yaml:"mode" validate:"oneof=frozen live"`
	Warmup       bool          `yaml:"warmup"`
	FrameTimeout time.Duration `yaml:"frame_timeout"`
}

var validate = validator.New()

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // ストリーミング用にタイムアウト無効化
		},
		Camera: CameraConfig{
			FPS:        15,
			Width:      640,
			Height:     480,
			FacingMode: "environment",
		},
		Model: ModelConfig{
			Backend:    "remote",
			URL:        DefaultModelURL,
			Timeout:    15 * time.Second,
			MaxRetries: 3,
		},
		Prediction: PredictionConfig{
			Samples:      10,
			Mode:         "frozen",
			Warmup:       true,
			FrameTimeout: time.Second,
		},
	}
}

// Load は設定を読み込む
// デフォルト値 → .env → CONFIG_FILE のYAML → 環境変数 の順に上書きする
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf(".env の読み込みに失敗しました: %v", err)
	}

	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// LoadFile はYAMLファイルの内容で設定を上書きする
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("設定ファイルの解析に失敗 (%s): %w", path, err)
	}

	return nil
}

// applyEnv は環境変数で設定を上書きする
func (c *Config) applyEnv() {
	c.Server.Host = getEnvOrDefault("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsIntOrDefault("PORT", c.Server.Port)

	c.Camera.Device = getEnvOrDefault("CAMERA_DEVICE", c.Camera.Device)
	c.Camera.StaticImage = getEnvOrDefault("CAMERA_STATIC_IMAGE", c.Camera.StaticImage)
	c.Camera.FPS = getEnvAsIntOrDefault("CAMERA_FPS", c.Camera.FPS)
	c.Camera.Width = getEnvAsIntOrDefault("CAMERA_WIDTH", c.Camera.Width)
	c.Camera.Height = getEnvAsIntOrDefault("CAMERA_HEIGHT", c.Camera.Height)
	c.Camera.Flip = getEnvAsBoolOrDefault("CAMERA_FLIP", c.Camera.Flip)
	c.Camera.FacingMode = getEnvOrDefault("CAMERA_FACING_MODE", c.Camera.FacingMode)

	c.Model.Backend = getEnvOrDefault("MODEL_BACKEND", c.Model.Backend)
	c.Model.URL = getEnvOrDefault("MODEL_URL", c.Model.URL)
	c.Model.Endpoint = getEnvOrDefault("MODEL_ENDPOINT", c.Model.Endpoint)
	c.Model.MetadataPath = getEnvOrDefault("MODEL_METADATA", c.Model.MetadataPath)
	c.Model.Path = getEnvOrDefault("MODEL_PATH", c.Model.Path)
	c.Model.LibraryPath = getEnvOrDefault("ONNXRUNTIME_LIB", c.Model.LibraryPath)
	c.Model.Threads = getEnvAsIntOrDefault("MODEL_THREADS", c.Model.Threads)
	c.Model.ProjectVersionARN = getEnvOrDefault("REKOGNITION_PROJECT_VERSION_ARN", c.Model.ProjectVersionARN)
	c.Model.AWSRegion = getEnvOrDefault("AWS_REGION", c.Model.AWSRegion)
	c.Model.Timeout = getEnvAsDurationOrDefault("MODEL_TIMEOUT", c.Model.Timeout)
	c.Model.MaxRetries = getEnvAsIntOrDefault("MODEL_MAX_RETRIES", c.Model.MaxRetries)

	c.Prediction.Samples = getEnvAsIntOrDefault("PREDICTION_SAMPLES", c.Prediction.Samples)
	c.Prediction.Mode = getEnvOrDefault("PREDICTION_MODE", c.Prediction.Mode)
	c.Prediction.Warmup = getEnvAsBoolOrDefault("PREDICTION_WARMUP", c.Prediction.Warmup)
	c.Prediction.FrameTimeout = getEnvAsDurationOrDefault("PREDICTION_FRAME_TIMEOUT", c.Prediction.FrameTimeout)
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	// サーバー設定の検証
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}

	if err := validate.Struct(c); err != nil {
		return err
	}

	switch c.Model.Backend {
	case "onnx", "tflite":
		if c.Model.Path == "" {
			return fmt.Errorf("%s バックエンドにはモデルファイルのパスが必要です", c.Model.Backend)
		}
	case "rekognition":
		if c.Model.ProjectVersionARN == "" {
			return fmt.Errorf("rekognition バックエンドにはプロジェクトバージョンARNが必要です")
		}
	}

	if c.Model.MetadataPath == "" && c.Model.URL == "" {
		return fmt.Errorf("モデルのメタデータの取得元が設定されていません")
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// MetadataSource はmetadata.jsonの取得元（ファイルパスまたはURL）を返す
func (c *Config) MetadataSource() string {
	if c.Model.MetadataPath != "" {
		return c.Model.MetadataPath
	}
	return joinURL(c.Model.URL, "metadata.json")
}


func joinURL(base, name string) string {
	if base == "" {
		return ""
	}
	if base[len(base)-1] != '/' {
		base += "/"
	}
	return base + name
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsDurationOrDefault は環境変数を "1.5s" 形式の時間として取得する
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
