package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"sync"
	"time"
)

// StaticSource は同じJPEG画像を一定間隔で配信する VideoSource 実装
// カメラのない環境でのデモやテストで使う
type StaticSource struct {
	BaseVideoSource

	frame []byte

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewStaticSource は新しいStaticSourceを作成する
func NewStaticSource(info VideoSourceInfo, settings Settings, frame []byte) *StaticSource {
	return &StaticSource{
		BaseVideoSource: newBaseVideoSource(info, settings),
		frame:           frame,
		stopCh:          make(chan struct{}),
	}
}

// NewStaticSourceFromFile はJPEGファイルからStaticSourceを作成する
// path が空の場合はテストパターンを生成する
func NewStaticSourceFromFile(info VideoSourceInfo, settings Settings, path string) (*StaticSource, error) {
	var frame []byte
	if path == "" {
		var err error
		frame, err = TestPattern(settings.Width, settings.Height)
		if err != nil {
			return nil, err
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("静止画の読み込みに失敗: %w", err)
		}
		if _, err := jpeg.DecodeConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("静止画がJPEGではありません (%s): %w", path, err)
		}
		frame = data
	}

	return NewStaticSource(info, settings, frame), nil
}

// Start はフレームの配信を開始する
func (s *StaticSource) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusActive {
		return nil
	}

	fps := s.settings.FPS
	if fps <= 0 {
		fps = 15
	}

	s.wg.Add(1)
	go s.emit(time.Second/time.Duration(fps), s.stopCh)

	s.status = StatusActive
	return nil
}

// Stop はフレームの配信を停止する
func (s *StaticSource) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive {
		return nil
	}

	close(s.stopCh)
	s.wg.Wait()
	s.stopCh = make(chan struct{})

	s.status = StatusInactive
	return nil
}

func (s *StaticSource) emit(interval time.Duration, stopCh <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if !s.pushFrame(s.frame, stopCh) {
			return
		}

		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}
	}
}

// TestPattern は縦方向のグラデーション画像をJPEGで生成する
func TestPattern(width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("無効な画像サイズ: %dx%d", width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		v := uint8(255 * y / height)
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: v, G: 160, B: 255 - v, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("テストパターンのエンコードに失敗: %w", err)
	}
	return buf.Bytes(), nil
}
