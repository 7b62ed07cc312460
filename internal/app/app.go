// Package app は設定からWebカメラ、分類器、HTTPサーバーを組み立てて起動する
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"kulitscan/internal/camera"
	"kulitscan/internal/classifier"
	"kulitscan/internal/config"
	"kulitscan/internal/demo"
	"kulitscan/internal/predict"
	"kulitscan/internal/server"
)

// App はアプリケーションを構成する部品
type App struct {
	Config     *config.Config
	Webcam     *camera.Webcam
	Controller *demo.Controller
	Server     *server.Server
}

// New は設定から App を組み立てる
// discovery が nil の場合は /dev/video* を検出する
func New(cfg *config.Config, discovery camera.Discovery) (*App, error) {
	if discovery == nil {
		discovery = camera.NewLinuxDiscovery()
	}

	webcam := camera.NewWebcam(WebcamOptions(cfg), discovery, camera.NewVideoSourceFactory(discovery))

	loader := func(ctx context.Context) (classifier.Classifier, error) {
		return classifier.New(ctx, cfg)
	}
	controller := demo.NewController(webcam, loader, PredictOptions(cfg))

	srv, err := server.New(cfg, controller, webcam)
	if err != nil {
		return nil, fmt.Errorf("サーバーの作成に失敗: %w", err)
	}

	return &App{
		Config:     cfg,
		Webcam:     webcam,
		Controller: controller,
		Server:     srv,
	}, nil
}

// WebcamOptions は設定からWebカメラのオプションを作る
func WebcamOptions(cfg *config.Config) camera.WebcamOptions {
	return camera.WebcamOptions{
		Device:      cfg.Camera.Device,
		StaticImage: cfg.Camera.StaticImage,
		Settings: camera.Settings{
			FPS:    cfg.Camera.FPS,
			Width:  cfg.Camera.Width,
			Height: cfg.Camera.Height,
		},
		Flip:       cfg.Camera.Flip,
		FacingMode: cfg.Camera.FacingMode,
	}
}

// PredictOptions は設定からバースト推論のオプションを作る
func PredictOptions(cfg *config.Config) predict.Options {
	return predict.Options{
		Samples:      cfg.Prediction.Samples,
		Mode:         predict.Mode(cfg.Prediction.Mode),
		Warmup:       cfg.Prediction.Warmup,
		FrameTimeout: cfg.Prediction.FrameTimeout,
	}
}

// Run はHTTPサーバーとWebカメラのリフレッシュループを起動し、どちらかが終わるまで待つ
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// シグナルでサーバーが止まったら他も止める
		defer cancel()
		return a.Server.Start(gctx)
	})

	g.Go(func() error {
		return a.Controller.Run(gctx)
	})

	err := g.Wait()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	if closeErr := a.Controller.Close(closeCtx); closeErr != nil {
		log.Printf("終了処理でエラーが発生しました: %v", closeErr)
	}

	return err
}
