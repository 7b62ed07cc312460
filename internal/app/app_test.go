package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"kulitscan/internal/camera"
	"kulitscan/internal/config"
	"kulitscan/internal/demo"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	metadata := filepath.Join(t.TempDir(), "metadata.json")
	if err := os.WriteFile(metadata, []byte(`{"labels":["Normal","Acne"],"imageSize":224}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Camera.Device = camera.DeviceStatic
	cfg.Camera.Width = 32
	cfg.Camera.Height = 32
	cfg.Model.Backend = "static"
	cfg.Model.MetadataPath = metadata
	cfg.Prediction.Samples = 2
	return cfg
}

func TestOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Camera.Flip = true
	cfg.Prediction.Mode = "live"

	opts := WebcamOptions(cfg)
	if !opts.Flip || opts.FacingMode != "environment" || opts.Settings.Width != 640 {
		t.Errorf("Unexpected webcam options: %+v", opts)
	}

	p := PredictOptions(cfg)
	if p.Samples != 10 || p.Mode != "live" || !p.Warmup {
		t.Errorf("Unexpected predict options: %+v", p)
	}
}

func TestApp_Run(t *testing.T) {
	gin.SetMode(gin.TestMode)

	a, err := New(testConfig(t), camera.NewMockDiscovery(nil))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for !a.Controller.Ready() || a.Webcam.FrameCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("App did not become ready")
		}
		time.Sleep(10 * time.Millisecond)
	}

	result, err := a.Controller.Predict(ctx)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if result.Samples != 2 || a.Controller.State().Mode != demo.ModeFrozen {
		t.Errorf("Unexpected result: %+v", result)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestApp_RunFailsWithoutCamera(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := testConfig(t)
	cfg.Camera.Device = ""

	a, err := New(cfg, camera.NewMockDiscovery(nil))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()

	select {
	case err := <-done:
		if err == nil {
			t.Error("Expected error when no camera is available")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}
