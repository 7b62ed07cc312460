// Package main はKulitscanサーバーコマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"kulitscan/internal/app"
	"kulitscan/internal/config"
)

func main() {
	// コマンドラインオプション
	var (
		host    = flag.String("host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
		port    = flag.Int("port", 0, "サーバーのポート (デフォルト: 8080)")
		device  = flag.String("device", "", "カメラデバイス。static で固定画像 (デフォルト: 自動検出)")
		backend = flag.String("backend", "", "分類バックエンド remote / onnx / tflite / rekognition / static (デフォルト: remote)")
		samples = flag.Int("samples", 0, "1回の判定で平均する推論回数 (デフォルト: 10)")
		help    = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("Kulitscan")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// コマンドラインオプションで設定を上書き
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *device != "" {
		cfg.Camera.Device = *device
	}
	if *backend != "" {
		cfg.Model.Backend = *backend
	}
	if *samples != 0 {
		cfg.Prediction.Samples = *samples
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("設定の検証に失敗しました: %v", err)
	}

	a, err := app.New(cfg, nil)
	if err != nil {
		log.Fatalf("アプリケーションの作成に失敗しました: %v", err)
	}

	// サーバーを起動
	log.Printf("Kulitscan サーバーを起動します: %s", cfg.ServerAddress())
	if err := a.Run(context.Background()); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}
