package camera

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// SourceConfig はソース作成設定
type SourceConfig struct {
	Device      string   // デバイスパス
	StaticImage string   // static ソースの画像ファイル
	Settings    Settings // 設定
}

// VideoSourceFactory はソース作成ファクトリー
type VideoSourceFactory interface {
	CreateSource(ctx context.Context, sourceType VideoSourceType, config SourceConfig) (VideoSource, error)
}

// SourceCreator はソース作成関数の型
type SourceCreator func(ctx context.Context, config SourceConfig) (VideoSource, error)

// DefaultVideoSourceFactory は標準実装
type DefaultVideoSourceFactory struct {
	creators map[VideoSourceType]SourceCreator
}

// NewVideoSourceFactory は新しいファクトリーを作成する
func NewVideoSourceFactory(discovery Discovery) *DefaultVideoSourceFactory {
	factory := &DefaultVideoSourceFactory{
		creators: make(map[VideoSourceType]SourceCreator),
	}

	factory.Register(SourceTypeUSBCamera, func(ctx context.Context, config SourceConfig) (VideoSource, error) {
		return newUSBCameraSourceFromConfig(ctx, discovery, config)
	})
	factory.Register(SourceTypeStatic, newStaticSourceFromConfig)

	return factory
}

// Register はソース作成関数を登録する
func (f *DefaultVideoSourceFactory) Register(sourceType VideoSourceType, creator SourceCreator) {
	f.creators[sourceType] = creator
}

// CreateSource はソースを作成する
func (f *DefaultVideoSourceFactory) CreateSource(ctx context.Context, sourceType VideoSourceType, config SourceConfig) (VideoSource, error) {
	creator, exists := f.creators[sourceType]
	if !exists {
		return nil, fmt.Errorf("サポートされていないソースタイプ: %s", sourceType)
	}

	return creator(ctx, config)
}

// newUSBCameraSourceFromConfig は設定からUSBCameraSourceを作成する
func newUSBCameraSourceFromConfig(ctx context.Context, discovery Discovery, config SourceConfig) (VideoSource, error) {
	if config.Device == "" {
		return nil, fmt.Errorf("USBカメラの作成にはデバイスパスが必要です")
	}

	name := fmt.Sprintf("USB Camera (%s)", config.Device)
	driver := "v4l2"
	if deviceInfo, err := discovery.GetDeviceInfo(ctx, config.Device); err == nil && deviceInfo != nil {
		name = deviceInfo.Name
		driver = deviceInfo.Driver
	}

	info := VideoSourceInfo{
		ID:          uuid.New().String(),
		Name:        name,
		Type:        SourceTypeUSBCamera,
		Driver:      driver,
		Description: fmt.Sprintf("USB Camera: %s", name),
		Device:      config.Device,
	}

	return NewUSBCameraSource(info, withDefaults(config.Settings)), nil
}

func newStaticSourceFromConfig(_ context.Context, config SourceConfig) (VideoSource, error) {
	info := VideoSourceInfo{
		ID:          uuid.New().String(),
		Name:        "Static Image",
		Type:        SourceTypeStatic,
		Driver:      "static",
		Description: "固定画像ソース",
		Device:      config.StaticImage,
	}

	return NewStaticSourceFromFile(info, withDefaults(config.Settings), config.StaticImage)
}

// withDefaults は未指定の設定にデフォルト値を入れる
func withDefaults(s Settings) Settings {
	if s.Width <= 0 {
		s.Width = 640
	}
	if s.Height <= 0 {
		s.Height = 480
	}
	if s.FPS <= 0 {
		s.FPS = 15
	}
	return s
}
