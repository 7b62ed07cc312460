package main

import (
	"context"
	"log"

	"kulitscan/internal/app"
	"kulitscan/internal/config"
)

func main() {
	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	a, err := app.New(cfg, nil)
	if err != nil {
		log.Fatalf("アプリケーションの作成に失敗しました: %v", err)
	}

	// サーバーを起動
	if err := a.Run(context.Background()); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}
