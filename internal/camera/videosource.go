package camera

import (
	"context"
	"sync"
)

// VideoSourceType はソースタイプを定義
type VideoSourceType string

const (
	// SourceTypeUSBCamera はUSBカメラソースを表す
	SourceTypeUSBCamera VideoSourceType = "usb_camera"
	// SourceTypeStatic は固定画像を繰り返し配信するソースを表す
	SourceTypeStatic VideoSourceType = "static"
)

// VideoSource は全ての動画源を統一するインターフェース
type VideoSource interface {
	// 基本操作
	Start(ctx context.Context) error
	Stop(ctx context.Context) error

	// ストリーミング
	GetFrameChannel() <-chan []byte
	GetErrorChannel() <-chan error

	// メタデータ
	GetInfo() VideoSourceInfo
	GetCurrentSettings() Settings

	// ステータス取得
	GetStatus() Status
}

// VideoSourceInfo はソース情報を表す
type VideoSourceInfo struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        VideoSourceType `json:"type"`
	Driver      string          `json:"driver"`
	Description string          `json:"description"`
	Device      string          `json:"device"` // デバイスパス（USBカメラ等）
}

// BaseVideoSource は共通実装を提供
type BaseVideoSource struct {
	info      VideoSourceInfo
	settings  Settings
	frameChan chan []byte
	errorChan chan error
	status    Status
	mu        sync.RWMutex
}

func newBaseVideoSource(info VideoSourceInfo, settings Settings) BaseVideoSource {
	return BaseVideoSource{
		info:      info,
		settings:  settings,
		frameChan: make(chan []byte, 10),
		errorChan: make(chan error, 5),
		status:    StatusInactive,
	}
}

// GetInfo は基本情報を返す
func (b *BaseVideoSource) GetInfo() VideoSourceInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.info
}

// GetCurrentSettings は現在の設定を返す
func (b *BaseVideoSource) GetCurrentSettings() Settings {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.settings
}

// GetStatus はステータスを返す
func (b *BaseVideoSource) GetStatus() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

// GetFrameChannel はフレームチャンネルを返す
func (b *BaseVideoSource) GetFrameChannel() <-chan []byte {
	return b.frameChan
}

// GetErrorChannel はエラーチャンネルを返す
func (b *BaseVideoSource) GetErrorChannel() <-chan error {
	return b.errorChan
}

// pushFrame はチャンネルがフルの場合に古いフレームを破棄してから送信する
func (b *BaseVideoSource) pushFrame(frame []byte, stopCh <-chan struct{}) bool {
	select {
	case b.frameChan <- frame:
		return true
	case <-stopCh:
		return false
	default:
	}

	select {
	case <-b.frameChan:
	default:
	}
	select {
	case b.frameChan <- frame:
		return true
	case <-stopCh:
		return false
	}
}

// pushError はチャンネルがフルの場合に古いエラーを破棄してから送信する
func (b *BaseVideoSource) pushError(err error, stopCh <-chan struct{}) bool {
	select {
	case b.errorChan <- err:
		return true
	case <-stopCh:
		return false
	default:
	}

	select {
	case <-b.errorChan:
	default:
	}
	select {
	case b.errorChan <- err:
		return true
	case <-stopCh:
		return false
	}
}
