package classifier

import (
	"math"
	"testing"
)

func TestToUint8(t *testing.T) {
	got := toUint8([]float32{0, 0.5, 1, -0.2, 1.3})
	want := []uint8{0, 128, 255, 0, 255}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestDequantize(t *testing.T) {
	tests := []struct {
		name      string
		q         []uint8
		scale     float64
		zeroPoint int
		want      []float64
	}{
		{"teachable machine quantized", []uint8{0, 64, 192}, 1.0 / 256, 0, []float64{0, 0.25, 0.75}},
		{"zero point", []uint8{10, 138}, 0.5, 10, []float64{0, 64}},
		{"scale missing", []uint8{255}, 0, 0, []float64{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dequantize(tt.q, tt.scale, tt.zeroPoint)
			for i := range tt.want {
				if math.Abs(got[i]-tt.want[i]) > 1e-9 {
					t.Errorf("index %d: expected %f, got %f", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestPredictionsOf(t *testing.T) {
	got := predictionsOf([]string{"Normal", "Acne", "Eczema"}, []float64{0.2, 0.8})

	if len(got) != 3 {
		t.Fatalf("Expected 3 predictions, got %d", len(got))
	}
	if got[1].ClassName != "Acne" || got[1].Probability != 0.8 {
		t.Errorf("Unexpected prediction: %+v", got[1])
	}
	// 出力が足りないクラスは 0
	if got[2].Probability != 0 {
		t.Errorf("Expected 0 for missing output, got %f", got[2].Probability)
	}
}
