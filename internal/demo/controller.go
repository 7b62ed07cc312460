// Package demo はページの状態（シャッター／カメラボタン、結果ラベル）を管理する
package demo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"image"
	"log"
	"sync"

	"kulitscan/internal/classifier"
	"kulitscan/internal/predict"
)

var (
	// ErrBusy は推論中に次の推論が要求された場合のエラー
	ErrBusy = errors.New("推論を実行中です")
	// ErrNotReady は初期化前に操作された場合のエラー
	ErrNotReady = errors.New("初期化が完了していません")
	// ErrFrozen は結果表示中に推論が要求された場合のエラー。カメラを再開してから推論する
	ErrFrozen = errors.New("結果を表示中です。カメラを再開してください")
)

// Mode はページの状態
type Mode string

const (
	// ModeLoading はモデルとWebカメラを準備している状態
	ModeLoading Mode = "loading"
	// ModeLive はカメラ映像を表示し、シャッターボタンを出している状態
	ModeLive Mode = "live"
	// ModePredicting はバースト推論中の状態
	ModePredicting Mode = "predicting"
	// ModeFrozen は止めたキャンバスの上に結果を表示している状態
	ModeFrozen Mode = "frozen"
)

// State はページに表示する状態
type State struct {
	Mode           Mode            `json:"mode"`
	ShutterVisible bool            `json:"shutterVisible"`
	CameraVisible  bool            `json:"cameraVisible"`
	Label          template.HTML   `json:"label"`
	Result         *predict.Result `json:"result,omitempty"`
}

// Camera はコントローラが使うWebカメラの操作
type Camera interface {
	Setup(ctx context.Context) error
	Run(ctx context.Context) error
	Play()
	Pause()
	Canvas() (image.Image, error)
	NextFrame(ctx context.Context) error
	Close(ctx context.Context) error
}

// Loader は分類器を読み込む
type Loader func(ctx context.Context) (classifier.Classifier, error)

var labelTemplate = template.Must(template.New("label").Parse(
	`<h3 id="label-container" class="text-lg font-regular tracking-tight text-gray-900">` +
		`Kulitmu kemungkinan memiliki penyakit <span class="font-semibold">{{.Class}}</span> ` +
		`dengan persentase <span class="font-semibold">{{printf "%.2f" .Percentage}}%</span></h3>`))

// RenderLabel は結果ラベルのHTMLを生成する
func RenderLabel(r *predict.Result) (template.HTML, error) {
	var buf bytes.Buffer
	if err := labelTemplate.Execute(&buf, r); err != nil {
		return "", fmt.Errorf("ラベルの生成に失敗: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// Controller はWebカメラ、分類器、推論を結び付けてページの状態を管理する
type Controller struct {
	camera Camera
	load   Loader
	opts   predict.Options

	// predictMu は推論を1つに限定する
	predictMu sync.Mutex

	mu          sync.RWMutex
	state       State
	classifier  classifier.Classifier
	predictor   *predict.Predictor
	subscribers map[chan State]struct{}
}

// NewController は新しいControllerを作成する
func NewController(camera Camera, load Loader, opts predict.Options) *Controller {
	return &Controller{
		camera:      camera,
		load:        load,
		opts:        opts,
		state:       State{Mode: ModeLoading},
		subscribers: make(map[chan State]struct{}),
	}
}

// Init は分類器を読み込み、Webカメラを準備してライブ表示にする
func (c *Controller) Init(ctx context.Context) error {
	model, err := c.load(ctx)
	if err != nil {
		return fmt.Errorf("モデルの読み込みに失敗: %w", err)
	}
	log.Printf("モデルを読み込みました: %d クラス", model.TotalClasses())

	if err := c.camera.Setup(ctx); err != nil {
		_ = model.Close()
		return fmt.Errorf("Webカメラのセットアップに失敗: %w", err)
	}
	c.camera.Play()

	c.mu.Lock()
	c.classifier = model
	c.predictor = predict.NewPredictor(model, c.opts)
	c.mu.Unlock()

	c.setState(liveState())
	return nil
}

// Run は Init の後、コンテキストが終わるまでWebカメラのリフレッシュループを回す
func (c *Controller) Run(ctx context.Context) error {
	if err := c.Init(ctx); err != nil {
		return err
	}
	return c.camera.Run(ctx)
}

// Predict はバースト推論を行い、止めたキャンバスの上に結果ラベルを表示する
// Webカメラを止めるタイミングはサンプリング方式による。失敗した場合はライブ表示に戻す
func (c *Controller) Predict(ctx context.Context) (*predict.Result, error) {
	c.mu.RLock()
	predictor := c.predictor
	c.mu.RUnlock()
	if predictor == nil {
		return nil, ErrNotReady
	}

	if !c.predictMu.TryLock() {
		return nil, ErrBusy
	}
	defer c.predictMu.Unlock()

	// シャッターボタンはライブ表示の間しか出ていない
	if c.State().Mode == ModeFrozen {
		return nil, ErrFrozen
	}

	c.setState(State{Mode: ModePredicting})

	result, err := predictor.Run(ctx, c.camera)
	if err == nil {
		var label template.HTML
		if label, err = RenderLabel(result); err == nil {
			c.setState(State{
				Mode:          ModeFrozen,
				CameraVisible: true,
				Label:         label,
				Result:        result,
			})
			return result, nil
		}
	}

	log.Printf("推論に失敗したためライブ表示に戻します: %v", err)
	c.camera.Play()
	c.setState(liveState())
	return nil, err
}

// OpenCamera はWebカメラを再開してラベルを消す
func (c *Controller) OpenCamera(ctx context.Context) error {
	c.mu.RLock()
	ready := c.predictor != nil
	c.mu.RUnlock()
	if !ready {
		return ErrNotReady
	}

	if !c.predictMu.TryLock() {
		return ErrBusy
	}
	defer c.predictMu.Unlock()

	c.camera.Play()
	c.setState(liveState())
	return nil
}

func liveState() State {
	return State{Mode: ModeLive, ShutterVisible: true}
}

// State は現在の状態を返す
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Ready は初期化が完了しているかを返す
func (c *Controller) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.predictor != nil
}

// Classes はモデルのクラス名を返す
func (c *Controller) Classes() ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.classifier == nil {
		return nil, ErrNotReady
	}
	return c.classifier.Classes(), nil
}

// Samples は1回の判定で行う推論回数を返す
func (c *Controller) Samples() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.predictor == nil {
		if c.opts.Samples > 0 {
			return c.opts.Samples
		}
		return predict.DefaultSamples
	}
	return c.predictor.Samples()
}

// Subscribe は状態の変化を受け取るチャネルを返す
// 現在の状態がすぐに1件届く。受信が遅れた場合は古い状態を捨てる
func (c *Controller) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	c.mu.Lock()
	c.subscribers[ch] = struct{}{}
	ch <- c.state
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.subscribers[ch]; ok {
				delete(c.subscribers, ch)
				close(ch)
			}
		})
	}
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = s
	for ch := range c.subscribers {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	}
}

// Close はWebカメラと分類器を解放し、購読を終了する
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	for ch := range c.subscribers {
		delete(c.subscribers, ch)
		close(ch)
	}
	model := c.classifier
	c.classifier = nil
	c.predictor = nil
	c.mu.Unlock()

	var errs []error
	if err := c.camera.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if model != nil {
		if err := model.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
