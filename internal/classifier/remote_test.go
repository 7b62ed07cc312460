package classifier

import (
	"context"
	"errors"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testMetadata(labels ...string) *Metadata {
	meta := &Metadata{Labels: labels}
	_ = meta.normalize()
	return meta
}

func fastRetry(n int) RetryConfig {
	return RetryConfig{MaxRetries: n, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRemoteClassifier_Predict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			http.Error(w, "No image file provided", http.StatusBadRequest)
			return
		}
		defer file.Close()
		if _, err := jpeg.Decode(file); err != nil {
			http.Error(w, "Invalid image format", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"class":"Acne","confidence":0.7,"predictions":{"Acne":0.7,"Normal":0.2,"Eczema":0.1}}`))
	}))
	defer server.Close()

	c, err := NewRemoteClassifier(testMetadata("Normal", "Acne", "Eczema"), RemoteConfig{Endpoint: server.URL}, server.Client())
	if err != nil {
		t.Fatalf("NewRemoteClassifier failed: %v", err)
	}

	predictions, err := c.Predict(context.Background(), solidImage(32, 32, color.White))
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	want := []Prediction{{"Normal", 0.2}, {"Acne", 0.7}, {"Eczema", 0.1}}
	if len(predictions) != len(want) {
		t.Fatalf("Expected %d predictions, got %v", len(want), predictions)
	}
	for i := range want {
		if predictions[i] != want[i] {
			t.Errorf("Prediction %d: expected %+v, got %+v", i, want[i], predictions[i])
		}
	}
}

func TestRemoteClassifier_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"predictions":{"Normal":1}}`))
	}))
	defer server.Close()

	c, err := NewRemoteClassifier(testMetadata("Normal"), RemoteConfig{Endpoint: server.URL, Retry: fastRetry(3)}, server.Client())
	if err != nil {
		t.Fatal(err)
	}

	predictions, err := c.Predict(context.Background(), solidImage(8, 8, color.Black))
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 3 calls, got %d", calls.Load())
	}
	if predictions[0].Probability != 1 {
		t.Errorf("Unexpected predictions: %v", predictions)
	}
}

func TestRemoteClassifier_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	c, err := NewRemoteClassifier(testMetadata("Normal"), RemoteConfig{Endpoint: server.URL, Retry: fastRetry(3)}, server.Client())
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Predict(context.Background(), solidImage(8, 8, color.Black))
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusBadRequest {
		t.Fatalf("Expected StatusError 400, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected 1 call, got %d", calls.Load())
	}
}

func TestRemoteClassifier_BadResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	c, err := NewRemoteClassifier(testMetadata("Normal"), RemoteConfig{Endpoint: server.URL, Retry: fastRetry(3)}, server.Client())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.Predict(context.Background(), solidImage(8, 8, color.Black)); !errors.Is(err, ErrBadResponse) {
		t.Errorf("Expected ErrBadResponse, got %v", err)
	}
}

func TestNewRemoteClassifier_Invalid(t *testing.T) {
	if _, err := NewRemoteClassifier(nil, RemoteConfig{Endpoint: "http://localhost"}, nil); err == nil {
		t.Error("Expected error for nil metadata")
	}
	if _, err := NewRemoteClassifier(testMetadata("a"), RemoteConfig{}, nil); err == nil {
		t.Error("Expected error for empty endpoint")
	}
}

func TestIsRetryableHTTP(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transport", errors.New("connection refused"), true},
		{"503", &StatusError{Code: http.StatusServiceUnavailable}, true},
		{"429", &StatusError{Code: http.StatusTooManyRequests}, true},
		{"400", &StatusError{Code: http.StatusBadRequest}, false},
		{"canceled", context.Canceled, false},
		{"bad response", ErrBadResponse, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryableHTTP(tt.err); got != tt.want {
				t.Errorf("IsRetryableHTTP(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxRetries: 10, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := retry(ctx, cfg, func() error {
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("retry() = %v, want context.Canceled", err)
	}
}

func TestBackoffDelay(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{5, 300 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := backoffDelay(cfg, tt.attempt); got != tt.want {
			t.Errorf("attempt %d delay = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestValidateEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		want     error
		wantErr  bool
	}{
		{"http://127.0.0.1:8090/predict/image", nil, false},
		{"https://infer.example.com/v1/classify", nil, false},
		{"", ErrNoEndpoint, true},
		{"https://teachablemachine.withgoogle.com/models/nxnJjW5l6/predict/image", ErrStaticModelHost, true},
		{"ftp://example.com/predict", nil, true},
		{"/predict/image", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			err := ValidateEndpoint(tt.endpoint)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateEndpoint(%q) = %v, wantErr %v", tt.endpoint, err, tt.wantErr)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}
