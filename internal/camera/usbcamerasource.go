package camera

import (
	"context"
	"fmt"
	"sync"
)

// USBCameraSource はUSBカメラの VideoSource 実装
type USBCameraSource struct {
	BaseVideoSource

	capturer *V4L2Capturer

	// 制御用
	cancel context.CancelFunc
	stopCh chan struct{}
	wg     sync.WaitGroup

	// ストリーミング用の内部チャンネル
	internalFrameChan chan []byte
	internalErrorChan chan error
}

// NewUSBCameraSource は新しいUSBCameraSourceを作成する
func NewUSBCameraSource(info VideoSourceInfo, settings Settings) *USBCameraSource {
	return &USBCameraSource{
		BaseVideoSource:   newBaseVideoSource(info, settings),
		capturer:          NewV4L2Capturer(info.Device, settings.Width, settings.Height, settings.FPS),
		stopCh:            make(chan struct{}),
		internalFrameChan: make(chan []byte, 10),
		internalErrorChan: make(chan error, 5),
	}
}

// Start はカメラを開始する
func (s *USBCameraSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusActive {
		return nil // 既に開始済み
	}

	// デバイステストを実行
	if err := s.capturer.TestCapture(ctx); err != nil {
		s.status = StatusError
		return fmt.Errorf("カメラのテストキャプチャに失敗: %w", err)
	}

	// ストリームはStopまで生存させるため呼び出し元のキャンセルから切り離す
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.capturer.StartStream(streamCtx, s.internalFrameChan, s.internalErrorChan)

	// フレーム転送ゴルーチンを開始
	s.wg.Add(1)
	go s.forwardFrames(s.stopCh)

	s.status = StatusActive
	return nil
}

// Stop はカメラを停止する
func (s *USBCameraSource) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive {
		return nil // 既に停止済み
	}

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	close(s.stopCh)
	s.wg.Wait()

	// 再開可能にするため新しいstopChを作成
	s.stopCh = make(chan struct{})

	s.status = StatusInactive
	return nil
}

// forwardFrames はキャプチャからフレームを転送する
func (s *USBCameraSource) forwardFrames(stopCh <-chan struct{}) {
	defer s.wg.Done()

	for {
		select {
		case <-stopCh:
			return

		case frame := <-s.internalFrameChan:
			if !s.pushFrame(frame, stopCh) {
				return
			}

		case err := <-s.internalErrorChan:
			if !s.pushError(err, stopCh) {
				return
			}
		}
	}
}
