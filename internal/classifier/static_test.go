package classifier

import (
	"context"
	"testing"
)

func TestStaticClassifier_Cycles(t *testing.T) {
	c, err := NewStaticClassifier([]string{"a", "b"}, []float64{0.9, 0.1}, []float64{0.2, 0.8})
	if err != nil {
		t.Fatalf("NewStaticClassifier failed: %v", err)
	}

	want := []float64{0.9, 0.2, 0.9}
	for i, p := range want {
		predictions, err := c.Predict(context.Background(), nil)
		if err != nil {
			t.Fatalf("Predict failed: %v", err)
		}
		if predictions[0].ClassName != "a" || predictions[0].Probability != p {
			t.Errorf("Call %d: expected a=%v, got %+v", i, p, predictions[0])
		}
	}
	if c.Calls() != 3 {
		t.Errorf("Expected 3 calls, got %d", c.Calls())
	}
}

func TestStaticClassifier_Uniform(t *testing.T) {
	c, err := NewStaticClassifier([]string{"a", "b", "c", "d"})
	if err != nil {
		t.Fatal(err)
	}

	predictions, _ := c.Predict(context.Background(), nil)
	for _, p := range predictions {
		if p.Probability != 0.25 {
			t.Errorf("Expected 0.25, got %v", p.Probability)
		}
	}
}

func TestStaticClassifier_Invalid(t *testing.T) {
	if _, err := NewStaticClassifier(nil); err == nil {
		t.Error("Expected error for no labels")
	}
	if _, err := NewStaticClassifier([]string{"a", "b"}, []float64{1}); err == nil {
		t.Error("Expected error for mismatched vector")
	}

	c, _ := NewStaticClassifier([]string{"a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Predict(ctx, nil); err == nil {
		t.Error("Expected error for canceled context")
	}
}
