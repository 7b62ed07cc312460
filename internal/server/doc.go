// Package server は、HTTPサーバーとWebSocket通信を管理します。
//
// このパッケージは、デモページの配信、JSON API、MJPEGストリーム、
// ページ状態のWebSocket配信を担当します。
//
// 責務:
//   - HTTPサーバーの起動とグレースフルシャットダウン
//   - 埋め込み静的ファイル（index.html / app.js）の配信
//   - 推論とカメラ再開のリクエスト処理
//   - MJPEGストリームとスナップショットの配信
//   - ページ状態の変化をWebSocketで通知
//
// 仕様:
//   - ルーティングは gin を使用
//   - WebSocketは coder/websocket を使用
//   - APIは openapi.yaml に記述し、oapi-codegen で internal/generated を生成する
//   - リクエストは kin-openapi の openapi3filter でドキュメントに照らして検証する
package server
