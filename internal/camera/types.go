package camera

import (
	"context"
	"errors"
)

// Status はカメラの動作状態を表す
type Status string

const (
	StatusInactive Status = "inactive" // カメラは停止中
	StatusActive   Status = "active"   // カメラは動作中
	StatusPaused   Status = "paused"   // キャンバスが固定されている
	StatusError    Status = "error"    // カメラでエラーが発生
)

var (
	// ErrNoDevice は利用可能なカメラデバイスが見つからない場合のエラー
	ErrNoDevice = errors.New("利用可能なカメラデバイスがありません")
	// ErrNoFrame はまだフレームを受信していない場合のエラー
	ErrNoFrame = errors.New("フレームがまだ取得されていません")
	// ErrNotSetup はSetup前に操作した場合のエラー
	ErrNotSetup = errors.New("Webカメラがセットアップされていません")
	// ErrPaused は一時停止中に次のフレームを待った場合のエラー
	ErrPaused = errors.New("Webカメラは一時停止中です")
)

// Settings はカメラの設定を表す
type Settings struct {
	FPS    int // フレームレート
	Width  int // 画像幅
	Height int // 画像高さ
}

// Discovery はカメラデバイスの検出機能を提供する
type Discovery interface {
	// ScanDevices はシステム内の利用可能なカメラデバイスをスキャンする
	ScanDevices(ctx context.Context) ([]string, error)

	// IsDeviceAvailable は指定されたデバイスが利用可能かチェックする
	IsDeviceAvailable(ctx context.Context, device string) bool

	// GetDeviceInfo はデバイスの詳細情報を取得する
	GetDeviceInfo(ctx context.Context, device string) (*DeviceInfo, error)
}

// DeviceInfo はカメラデバイスの詳細情報を表す
type DeviceInfo struct {
	Device      string       // デバイスパス
	Name        string       // デバイス名
	Driver      string       // ドライバー名
	Resolutions []Resolution // サポートされる解像度
	Formats     []string     // サポートされるフォーマット
}

// Resolution はカメラの解像度を表す
type Resolution struct {
	Width  int // 幅
	Height int // 高さ
}
