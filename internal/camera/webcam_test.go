package camera

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
	"time"
)

func newTestWebcam(t *testing.T, opts WebcamOptions) *Webcam {
	t.Helper()
	discovery := NewMockDiscovery([]string{"/dev/video0", "/dev/video2"})
	return NewWebcam(opts, discovery, NewVideoSourceFactory(discovery))
}

func testFrame(t *testing.T) []byte {
	t.Helper()
	frame, err := TestPattern(16, 8)
	if err != nil {
		t.Fatalf("TestPattern failed: %v", err)
	}
	return frame
}

func TestWebcam_SetupStatic(t *testing.T) {
	ctx := context.Background()
	webcam := newTestWebcam(t, WebcamOptions{Device: DeviceStatic, Settings: Settings{FPS: 30, Width: 32, Height: 24}})

	if webcam.Status() != StatusInactive {
		t.Errorf("Expected inactive before setup, got %s", webcam.Status())
	}

	if err := webcam.Setup(ctx); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	defer func() { _ = webcam.Close(ctx) }()

	if webcam.Status() != StatusActive {
		t.Errorf("Expected active after setup, got %s", webcam.Status())
	}
	info, ok := webcam.Info()
	if !ok || info.Type != SourceTypeStatic || info.ID == "" {
		t.Errorf("Unexpected source info: %+v", info)
	}

	// リフレッシュループでキャンバスが埋まる
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- webcam.Run(runCtx) }()

	waitCtx, waitCancel := context.WithTimeout(ctx, 2*time.Second)
	defer waitCancel()
	if err := webcam.NextFrame(waitCtx); err != nil {
		t.Fatalf("NextFrame failed: %v", err)
	}

	img, err := webcam.Canvas()
	if err != nil {
		t.Fatalf("Canvas failed: %v", err)
	}
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 24 {
		t.Errorf("Unexpected canvas size: %v", img.Bounds())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestWebcam_SetupSelectsDevice(t *testing.T) {
	tests := []struct {
		facingMode string
		want       string
	}{
		{"user", "/dev/video0"},
		{"environment", "/dev/video2"},
		{"", "/dev/video0"},
	}

	for _, tt := range tests {
		t.Run(tt.facingMode, func(t *testing.T) {
			ctx := context.Background()
			discovery := NewMockDiscovery([]string{"/dev/video0", "/dev/video2"})
			factory := NewVideoSourceFactory(discovery)

			var got string
			factory.Register(SourceTypeUSBCamera, func(ctx context.Context, config SourceConfig) (VideoSource, error) {
				got = config.Device
				return newStaticSourceFromConfig(ctx, config)
			})

			webcam := NewWebcam(WebcamOptions{FacingMode: tt.facingMode}, discovery, factory)
			if err := webcam.Setup(ctx); err != nil {
				t.Fatalf("Setup failed: %v", err)
			}
			defer func() { _ = webcam.Close(ctx) }()

			if got != tt.want {
				t.Errorf("Selected %s, want %s", got, tt.want)
			}
		})
	}
}

func TestWebcam_SetupNoDevice(t *testing.T) {
	ctx := context.Background()
	discovery := NewMockDiscovery(nil)
	webcam := NewWebcam(WebcamOptions{}, discovery, NewVideoSourceFactory(discovery))

	if err := webcam.Setup(ctx); !errors.Is(err, ErrNoDevice) {
		t.Errorf("Expected ErrNoDevice, got %v", err)
	}

	webcam = NewWebcam(WebcamOptions{Device: "/dev/video9"}, discovery, NewVideoSourceFactory(discovery))
	if err := webcam.Setup(ctx); !errors.Is(err, ErrNoDevice) {
		t.Errorf("Expected ErrNoDevice for unknown device, got %v", err)
	}

	if err := webcam.Run(ctx); !errors.Is(err, ErrNotSetup) {
		t.Errorf("Expected ErrNotSetup, got %v", err)
	}
}

func TestWebcam_PauseFreezesCanvas(t *testing.T) {
	webcam := newTestWebcam(t, WebcamOptions{})

	if _, err := webcam.Canvas(); !errors.Is(err, ErrNoFrame) {
		t.Errorf("Expected ErrNoFrame, got %v", err)
	}

	first := testFrame(t)
	if !webcam.Update(first) {
		t.Fatal("Update should succeed while playing")
	}

	webcam.Pause()
	if !webcam.Paused() {
		t.Error("Expected webcam to be paused")
	}

	second, err := TestPattern(8, 8)
	if err != nil {
		t.Fatal(err)
	}
	if webcam.Update(second) {
		t.Error("Update should be ignored while paused")
	}

	got, err := webcam.CanvasJPEG()
	if err != nil {
		t.Fatalf("CanvasJPEG failed: %v", err)
	}
	if !bytes.Equal(got, first) {
		t.Error("Canvas changed while paused")
	}
	if webcam.FrameCount() != 1 {
		t.Errorf("Expected 1 frame, got %d", webcam.FrameCount())
	}

	if err := webcam.NextFrame(context.Background()); !errors.Is(err, ErrPaused) {
		t.Errorf("Expected ErrPaused, got %v", err)
	}

	webcam.Play()
	if !webcam.Update(second) {
		t.Error("Update should succeed after Play")
	}
	img, err := webcam.Canvas()
	if err != nil {
		t.Fatalf("Canvas failed: %v", err)
	}
	if img.Bounds().Dx() != 8 {
		t.Errorf("Expected the newer frame, got bounds %v", img.Bounds())
	}
}

func TestWebcam_NextFrame(t *testing.T) {
	webcam := newTestWebcam(t, WebcamOptions{})
	frame := testFrame(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- webcam.NextFrame(ctx) }()

	time.Sleep(20 * time.Millisecond)
	webcam.Update(frame)

	if err := <-done; err != nil {
		t.Errorf("NextFrame failed: %v", err)
	}

	short, shortCancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer shortCancel()
	if err := webcam.NextFrame(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestWebcam_Subscribe(t *testing.T) {
	webcam := newTestWebcam(t, WebcamOptions{})
	first := testFrame(t)
	webcam.Update(first)

	frames, unsubscribe := webcam.Subscribe()

	// 現在のフレームがすぐに届く
	select {
	case got := <-frames:
		if !bytes.Equal(got, first) {
			t.Error("Unexpected initial frame")
		}
	case <-time.After(time.Second):
		t.Fatal("Initial frame not delivered")
	}

	webcam.Update(first)
	select {
	case <-frames:
	case <-time.After(time.Second):
		t.Fatal("Updated frame not delivered")
	}

	unsubscribe()
	unsubscribe() // 2回呼んでも安全

	if _, ok := <-frames; ok {
		t.Error("Expected channel to be closed after unsubscribe")
	}
}

func TestWebcam_CloseEndsSubscriptions(t *testing.T) {
	webcam := newTestWebcam(t, WebcamOptions{})
	frames, unsubscribe := webcam.Subscribe()

	if err := webcam.Close(context.Background()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, ok := <-frames; ok {
		t.Error("Expected channel to be closed")
	}
	unsubscribe()
}

func TestWebcam_Flip(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			c := color.RGBA{R: 255, A: 255}
			if x >= 8 {
				c = color.RGBA{B: 255, A: 255}
			}
			src.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: 100}); err != nil {
		t.Fatal(err)
	}

	webcam := newTestWebcam(t, WebcamOptions{Flip: true})
	webcam.Update(buf.Bytes())

	img, err := webcam.Canvas()
	if err != nil {
		t.Fatalf("Canvas failed: %v", err)
	}

	r, _, b, _ := img.At(1, 4).RGBA()
	if b <= r {
		t.Errorf("Expected left edge to be blue after flip, got r=%d b=%d", r, b)
	}
	if !webcam.Flip() {
		t.Error("Expected Flip to report true")
	}
}
