package classifier

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"time"
)

const (
	defaultBaseDelay    = 200 * time.Millisecond
	defaultMaxDelay     = 5 * time.Second
	defaultJitterFactor = 0.2
)

// RetryConfig はリモート推論のリトライ設定
type RetryConfig struct {
	MaxRetries   int // 0 ならリトライしない
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterFactor float64
	IsRetryable  func(error) bool
}

// ErrBadResponse は推論サーバーのレスポンスを解析できない場合のエラー
var ErrBadResponse = errors.New("推論サーバーのレスポンスを解析できません")

// StatusError は推論サーバーが 200 以外を返した場合のエラー
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("推論サーバーがステータス %d を返しました", e.Code)
	}
	return fmt.Sprintf("推論サーバーがステータス %d を返しました: %s", e.Code, e.Body)
}

// IsRetryableHTTP は通信エラー、5xx、429 をリトライ対象とする
func IsRetryableHTTP(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrBadResponse) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= http.StatusInternalServerError || statusErr.Code == http.StatusTooManyRequests
	}
	return true
}

// retry は fn を指数バックオフで再実行する。全て失敗した場合は最後のエラーを返す
func retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	cfg = cfg.withDefaults()
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}

		if !cfg.IsRetryable(lastErr) || attempt == cfg.MaxRetries {
			return lastErr
		}

		delay := backoffDelay(cfg, attempt)
		log.Printf("推論リクエストを再試行します (%d/%d, %v後): %v", attempt+1, cfg.MaxRetries, delay, lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	delay := cfg.BaseDelay << min(attempt, 6)
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	jitter := float64(delay) * cfg.JitterFactor * (rand.Float64() - 0.5)
	return time.Duration(float64(delay) + jitter)
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = defaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = defaultMaxDelay
	}
	if c.JitterFactor < 0 {
		c.JitterFactor = defaultJitterFactor
	}
	if c.IsRetryable == nil {
		c.IsRetryable = IsRetryableHTTP
	}
	return c
}
