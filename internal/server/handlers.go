package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"

	"kulitscan/internal/camera"
	"kulitscan/internal/config"
	"kulitscan/internal/demo"
	"kulitscan/internal/generated"
	"kulitscan/internal/predict"
)

// Webcam はハンドラが使うWebカメラの操作
type Webcam interface {
	Status() camera.Status
	Info() (camera.VideoSourceInfo, bool)
	Paused() bool
	Flip() bool
	FrameCount() uint64
	CanvasJPEG() ([]byte, error)
	Subscribe() (<-chan []byte, func())
}

// KulitscanHandler は生成されたServerInterfaceを実装する
type KulitscanHandler struct {
	config     *config.Config
	controller *demo.Controller
	webcam     Webcam
}

var _ generated.ServerInterface = (*KulitscanHandler)(nil)

// GetIndex はデモページを返す
func (h *KulitscanHandler) GetIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", getIndexHTML())
}

// GetOpenAPI は埋め込みのOpenAPIドキュメントを返す
func (h *KulitscanHandler) GetOpenAPI(c *gin.Context) {
	c.Data(http.StatusOK, "application/yaml", openapiYAML)
}

// HealthCheck はヘルスチェックエンドポイントの実装
func (h *KulitscanHandler) HealthCheck(c *gin.Context) {
	response := generated.HealthResponse{
		Status:    generated.Healthy,
		Timestamp: time.Now(),
	}

	c.JSON(http.StatusOK, response)
}

// GetStatus はシステム状態取得エンドポイントの実装
func (h *KulitscanHandler) GetStatus(c *gin.Context) {
	status := generated.StatusResponseStatusLoading
	if h.controller.Ready() {
		status = generated.StatusResponseStatusRunning
	}

	cam := generated.CameraInfo{
		Status: convertCameraStatus(h.webcam.Status()),
		Paused: h.webcam.Paused(),
		Flip:   h.webcam.Flip(),
		Frames: int64(h.webcam.FrameCount()),
	}
	if info, ok := h.webcam.Info(); ok {
		cam.Source = &generated.VideoSourceInfo{
			Id:     info.ID,
			Name:   info.Name,
			Type:   string(info.Type),
			Device: info.Device,
		}
	}

	classes, _ := h.controller.Classes()

	response := generated.StatusResponse{
		Status: status,
		Server: generated.ServerInfo{
			Host: h.config.Server.Host,
			Port: h.config.Server.Port,
		},
		Camera: cam,
		Model: generated.ModelInfo{
			Backend: h.config.Model.Backend,
			Classes: len(classes),
		},
		Prediction: generated.PredictionInfo{
			Samples: h.controller.Samples(),
			Mode:    generated.PredictionMode(h.config.Prediction.Mode),
		},
		Timestamp: time.Now(),
	}

	c.JSON(http.StatusOK, response)
}

// GetClasses はクラス一覧取得エンドポイントの実装
func (h *KulitscanHandler) GetClasses(c *gin.Context) {
	classes, err := h.controller.Classes()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, generated.ClassesResponse{Classes: classes, Total: len(classes)})
}

// GetState は現在のページ状態を返す
func (h *KulitscanHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, convertState(h.controller.State()))
}

// Predict はバースト推論エンドポイントの実装
func (h *KulitscanHandler) Predict(c *gin.Context) {
	result, err := h.controller.Predict(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, generated.PredictResponse{
		Result:  convertResult(result),
		Message: result.Message(),
		State:   convertState(h.controller.State()),
	})
}

// OpenCamera はWebカメラ再開エンドポイントの実装
func (h *KulitscanHandler) OpenCamera(c *gin.Context) {
	if err := h.controller.OpenCamera(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, convertState(h.controller.State()))
}

// GetSnapshot は現在のキャンバスをJPEGで返す
func (h *KulitscanHandler) GetSnapshot(c *gin.Context) {
	frame, err := h.webcam.CanvasJPEG()
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "image/jpeg", frame)
}

// GetStream はMJPEGストリーミングエンドポイントの実装
func (h *KulitscanHandler) GetStream(c *gin.Context, params generated.GetStreamParams) {
	if h.webcam.Status() == camera.StatusInactive || h.webcam.Status() == camera.StatusError {
		c.JSON(http.StatusServiceUnavailable, generated.ErrorResponse{
			Error:     "camera_not_active",
			Message:   "カメラがアクティブではありません",
			Timestamp: time.Now(),
		})
		return
	}

	var interval time.Duration
	if params.Fps != nil && *params.Fps > 0 {
		interval = time.Second / time.Duration(*params.Fps)
	}
	h.streamMJPEG(c, interval)
}

// GetStateWebSocket は状態の変化をWebSocketで配信する
func (h *KulitscanHandler) GetStateWebSocket(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Printf("WebSocket接続の確立に失敗: %v", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	// クライアントからのメッセージは読まない。切断されると ctx が終わる
	ctx := conn.CloseRead(c.Request.Context())

	states, unsubscribe := h.controller.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-states:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, convertStateMessage(state))
			cancel()
			if err != nil {
				log.Printf("WebSocketへの送信に失敗: %v", err)
				return
			}
		}
	}
}

// respondError はエラーに応じたステータスコードでErrorResponseを返す
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"

	switch {
	case errors.Is(err, demo.ErrBusy):
		status, code = http.StatusConflict, "busy"
	case errors.Is(err, demo.ErrFrozen):
		status, code = http.StatusConflict, "frozen"
	case errors.Is(err, demo.ErrNotReady):
		status, code = http.StatusServiceUnavailable, "not_ready"
	case errors.Is(err, camera.ErrNoFrame), errors.Is(err, camera.ErrNotSetup):
		status, code = http.StatusServiceUnavailable, "no_frame"
	case errors.Is(err, context.Canceled):
		status, code = 499, "canceled"
	}

	c.JSON(status, generated.ErrorResponse{
		Error:     code,
		Message:   err.Error(),
		Timestamp: time.Now(),
	})
}

// handleBindError は生成コードのパラメータ解析とリクエスト検証のエラーを返す
func handleBindError(c *gin.Context, err error, statusCode int) {
	c.AbortWithStatusJSON(statusCode, generated.ErrorResponse{
		Error:     "invalid_request",
		Message:   err.Error(),
		Timestamp: time.Now(),
	})
}

// ヘルパー関数

// convertCameraStatus はカメラステータスを変換する
func convertCameraStatus(status camera.Status) generated.CameraInfoStatus {
	switch status {
	case camera.StatusActive:
		return generated.Active
	case camera.StatusPaused:
		return generated.Paused
	case camera.StatusError:
		return generated.Error
	default:
		return generated.Inactive
	}
}

// convertResult は推論結果をレスポンスのスキーマに変換する
func convertResult(r *predict.Result) generated.Result {
	scores := make([]generated.Score, 0, len(r.Scores))
	for _, s := range r.Scores {
		scores = append(scores, generated.Score{ClassName: s.ClassName, Probability: s.Probability})
	}
	return generated.Result{
		Id:          r.ID,
		Class:       r.Class,
		Probability: r.Probability,
		Scores:      scores,
		Samples:     r.Samples,
		StartedAt:   r.StartedAt,
		Duration:    int64(r.Duration),
	}
}

// convertState はページ状態をレスポンスのスキーマに変換する
func convertState(s demo.State) generated.State {
	state := generated.State{
		Mode:           generated.Mode(s.Mode),
		ShutterVisible: s.ShutterVisible,
		CameraVisible:  s.CameraVisible,
		Label:          string(s.Label),
	}
	if s.Result != nil {
		result := convertResult(s.Result)
		state.Result = &result
	}
	return state
}

func convertStateMessage(s demo.State) generated.StateMessage {
	state := convertState(s)
	return generated.StateMessage{
		Type:           generated.StateMessageTypeState,
		Mode:           state.Mode,
		ShutterVisible: state.ShutterVisible,
		CameraVisible:  state.CameraVisible,
		Label:          state.Label,
		Result:         state.Result,
	}
}

// streamMJPEG はMJPEGストリームを配信する
// interval が正なら、前のフレームから interval 経っていないフレームは送らない
func (h *KulitscanHandler) streamMJPEG(c *gin.Context, interval time.Duration) {
	// レスポンスヘッダーを設定
	c.Header("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")

	writer := c.Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	frames, unsubscribe := h.webcam.Subscribe()
	defer unsubscribe()

	// クライアント切断を検知するためのコンテキスト
	clientGone := c.Request.Context().Done()
	var lastSent time.Time

	for {
		select {
		case <-clientGone:
			return

		case frame, ok := <-frames:
			if !ok {
				return
			}
			if interval > 0 && time.Since(lastSent) < interval {
				continue
			}
			lastSent = time.Now()

			if _, err := writer.Write([]byte("--frame\r\nContent-Type: image/jpeg\r\n\r\n")); err != nil {
				return
			}
			if _, err := writer.Write(frame); err != nil {
				return
			}
			if _, err := writer.Write([]byte("\r\n")); err != nil {
				return
			}

			flusher.Flush()
		}
	}
}
