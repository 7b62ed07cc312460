package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"log"
	"sync"
)

// DeviceStatic は固定画像ソースを選ぶためのデバイス名
const DeviceStatic = "static"

// WebcamOptions はWebカメラの設定
type WebcamOptions struct {
	Device      string // 空なら自動検出、"static" なら固定画像
	StaticImage string
	Settings    Settings
	Flip        bool   // キャンバスを左右反転するか
	FacingMode  string // "user" または "environment"
}

// Webcam は1台のカメラと、分類器が読み取るキャンバスを管理する
//
// 映像ソースから届いたフレームは Update でキャンバスに反映される。
// Pause 中はキャンバスが固定され、Play で再開する。
type Webcam struct {
	opts      WebcamOptions
	discovery Discovery
	factory   VideoSourceFactory

	mu      sync.RWMutex
	source  VideoSource
	frame   []byte      // 現在のキャンバス（JPEG）
	canvas  image.Image // frame のデコード結果のキャッシュ
	paused  bool
	frames  uint64
	updated chan struct{} // 次のUpdateでクローズされる
	subs    map[chan []byte]struct{}
}

// NewWebcam は新しいWebcamを作成する
func NewWebcam(opts WebcamOptions, discovery Discovery, factory VideoSourceFactory) *Webcam {
	return &Webcam{
		opts:      opts,
		discovery: discovery,
		factory:   factory,
		updated:   make(chan struct{}),
		subs:      make(map[chan []byte]struct{}),
	}
}

// Setup はデバイスを選んで映像ソースを開始する
func (w *Webcam) Setup(ctx context.Context) error {
	sourceType := SourceTypeUSBCamera
	device := w.opts.Device

	switch device {
	case DeviceStatic:
		sourceType = SourceTypeStatic
	case "":
		selected, err := w.selectDevice(ctx)
		if err != nil {
			return err
		}
		device = selected
	default:
		if !w.discovery.IsDeviceAvailable(ctx, device) {
			return fmt.Errorf("%w: %s", ErrNoDevice, device)
		}
	}

	source, err := w.factory.CreateSource(ctx, sourceType, SourceConfig{
		Device:      device,
		StaticImage: w.opts.StaticImage,
		Settings:    w.opts.Settings,
	})
	if err != nil {
		return fmt.Errorf("映像ソースの作成に失敗: %w", err)
	}

	if err := source.Start(ctx); err != nil {
		return fmt.Errorf("映像ソースの開始に失敗: %w", err)
	}

	w.mu.Lock()
	w.source = source
	w.paused = false
	w.mu.Unlock()

	info := source.GetInfo()
	log.Printf("Webカメラを開始しました: %s (%s, flip=%t)", info.Name, info.Device, w.opts.Flip)
	return nil
}

// selectDevice は検出されたカメラからfacingModeに応じて1台を選ぶ
// V4L2には向きの情報がないため、"environment" では最後に列挙された外付けカメラを優先する
func (w *Webcam) selectDevice(ctx context.Context) (string, error) {
	devices, err := w.discovery.ScanDevices(ctx)
	if err != nil {
		return "", fmt.Errorf("カメラの検出に失敗: %w", err)
	}
	if len(devices) == 0 {
		return "", ErrNoDevice
	}

	if w.opts.FacingMode == "environment" {
		return devices[len(devices)-1], nil
	}
	return devices[0], nil
}

// Run は映像ソースからフレームを受け取りキャンバスを更新し続ける
// ctx がキャンセルされるまで戻らない
func (w *Webcam) Run(ctx context.Context) error {
	w.mu.RLock()
	source := w.source
	w.mu.RUnlock()

	if source == nil {
		return ErrNotSetup
	}

	frames := source.GetFrameChannel()
	errs := source.GetErrorChannel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			w.Update(frame)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Printf("映像ソースでエラーが発生しました: %v", err)
		}
	}
}

// Update はフレームをキャンバスに反映する
// 一時停止中は何もせず false を返す
func (w *Webcam) Update(frame []byte) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.paused || len(frame) == 0 {
		return false
	}

	w.frame = frame
	w.canvas = nil
	w.frames++

	close(w.updated)
	w.updated = make(chan struct{})

	for ch := range w.subs {
		select {
		case ch <- frame:
		default:
			// 遅いクライアントのフレームは読み捨てる
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- frame:
			default:
			}
		}
	}

	return true
}

// Play はキャンバスの更新を再開する
func (w *Webcam) Play() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.paused = false
}

// Pause はキャンバスを現在のフレームで固定する
func (w *Webcam) Pause() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.paused = true
}

// Paused は一時停止中かを返す
func (w *Webcam) Paused() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.paused
}

// Status は現在の状態を返す
func (w *Webcam) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()

	switch {
	case w.source == nil:
		return StatusInactive
	case w.paused:
		return StatusPaused
	default:
		return w.source.GetStatus()
	}
}

// Info は映像ソースの情報を返す
func (w *Webcam) Info() (VideoSourceInfo, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.source == nil {
		return VideoSourceInfo{}, false
	}
	return w.source.GetInfo(), true
}

// Flip はキャンバスを左右反転しているかを返す
func (w *Webcam) Flip() bool {
	return w.opts.Flip
}

// FrameCount はこれまでにキャンバスへ反映したフレーム数を返す
func (w *Webcam) FrameCount() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.frames
}

// Canvas は現在のキャンバスを画像として返す
func (w *Webcam) Canvas() (image.Image, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.frame == nil {
		return nil, ErrNoFrame
	}
	if w.canvas != nil {
		return w.canvas, nil
	}

	img, err := jpeg.Decode(bytes.NewReader(w.frame))
	if err != nil {
		return nil, fmt.Errorf("JPEG画像のデコードに失敗: %w", err)
	}
	if w.opts.Flip {
		img = flipHorizontal(img)
	}

	w.canvas = img
	return img, nil
}

// CanvasJPEG は現在のキャンバスのJPEGデータのコピーを返す
func (w *Webcam) CanvasJPEG() ([]byte, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.frame == nil {
		return nil, ErrNoFrame
	}

	frame := make([]byte, len(w.frame))
	copy(frame, w.frame)
	return frame, nil
}

// NextFrame は次のフレームがキャンバスに反映されるまで待つ
func (w *Webcam) NextFrame(ctx context.Context) error {
	w.mu.RLock()
	if w.paused {
		w.mu.RUnlock()
		return ErrPaused
	}
	updated := w.updated
	w.mu.RUnlock()

	select {
	case <-updated:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe はキャンバスが更新されるたびにフレームを受け取るチャンネルを返す
// 現在のフレームがあれば最初に送られる。返された関数で購読を解除する
func (w *Webcam) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 1)

	w.mu.Lock()
	w.subs[ch] = struct{}{}
	if w.frame != nil {
		ch <- w.frame
	}
	w.mu.Unlock()

	return ch, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if _, ok := w.subs[ch]; ok {
			delete(w.subs, ch)
			close(ch)
		}
	}
}

// Close は映像ソースを停止し、全ての購読を終了する
func (w *Webcam) Close(ctx context.Context) error {
	w.mu.Lock()
	source := w.source
	w.source = nil
	for ch := range w.subs {
		delete(w.subs, ch)
		close(ch)
	}
	w.mu.Unlock()

	if source == nil {
		return nil
	}
	if err := source.Stop(ctx); err != nil {
		return fmt.Errorf("映像ソースの停止に失敗: %w", err)
	}
	return nil
}

// flipHorizontal は画像を左右反転したコピーを返す
func flipHorizontal(src image.Image) image.Image {
	b := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)

	out := image.NewRGBA(rgba.Bounds())
	w := b.Dx()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < w; x++ {
			out.SetRGBA(w-1-x, y, rgba.RGBAAt(x, y))
		}
	}
	return out
}
