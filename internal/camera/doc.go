// Package camera Webカメラからのフレーム取得とキャンバス管理を担う
//
// # 責務
// - V4L2カメラデバイスの検出
// - ffmpeg経由でのMJPEGストリーミングとフレーム分割
// - 分類器が読み取るキャンバスの管理（再生・一時停止・左右反転）
// - MJPEG配信クライアントへのフレーム配布
//
// # 仕様
// - Discovery: /dev/video* のスキャンと v4l2-ctl による実名取得
// - V4L2Capturer: ffmpeg の image2pipe 出力を FrameSplitter で分割
// - VideoSource: USBカメラと固定画像（static）の2種類
// - Webcam: Setup / Play / Pause / Update / Canvas。Run がリフレッシュループ
//
// # 前提要件
//   - v4l-utils: カメラ名の取得に使用
//     Ubuntu/Debian: sudo apt install v4l-utils
//   - ffmpeg: 画像キャプチャとストリーミングに使用
//     Ubuntu/Debian: sudo apt install ffmpeg
//   - videoグループへの参加: デバイスアクセス権限
//     sudo usermod -a -G video $USER
package camera
