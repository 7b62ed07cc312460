package classifier

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func solidImage(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestCenterCrop(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	// 中央の20x20だけ赤くする
	for y := 0; y < 20; y++ {
		for x := 10; x < 30; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}

	cropped := CenterCrop(img)
	if cropped.Bounds().Dx() != 20 || cropped.Bounds().Dy() != 20 {
		t.Fatalf("Expected 20x20, got %v", cropped.Bounds())
	}

	for _, p := range []image.Point{{0, 0}, {19, 19}, {10, 5}} {
		r, g, b, _ := cropped.At(p.X, p.Y).RGBA()
		if r != 0xffff || g != 0 || b != 0 {
			t.Errorf("Pixel %v is not red: %d %d %d", p, r, g, b)
		}
	}
}

func TestToTensor(t *testing.T) {
	img := solidImage(8, 8, color.RGBA{R: 255, G: 0, B: 255, A: 255})

	tests := []struct {
		name   string
		layout Layout
		norm   Norm
		// 先頭の画素の R, G, B が入る位置
		idx  [3]int
		want [3]float32
	}{
		{"nhwc signed", LayoutNHWC, NormSigned, [3]int{0, 1, 2}, [3]float32{1, -1, 1}},
		{"nchw unit", LayoutNCHW, NormUnit, [3]int{0, 16, 32}, [3]float32{1, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := ToTensor(img, 4, tt.layout, tt.norm)
			if err != nil {
				t.Fatalf("ToTensor failed: %v", err)
			}
			if len(data) != 3*4*4 {
				t.Fatalf("Expected %d values, got %d", 3*4*4, len(data))
			}
			for c := 0; c < 3; c++ {
				if got := data[tt.idx[c]]; math.Abs(float64(got-tt.want[c])) > 0.01 {
					t.Errorf("Channel %d: expected %v, got %v", c, tt.want[c], got)
				}
			}
		})
	}
}

func TestToTensor_Invalid(t *testing.T) {
	if _, err := ToTensor(solidImage(4, 4, color.White), 0, LayoutNHWC, NormSigned); err == nil {
		t.Error("Expected error for zero size")
	}
	if _, err := ToTensor(image.NewRGBA(image.Rect(0, 0, 0, 0)), 4, LayoutNHWC, NormSigned); err == nil {
		t.Error("Expected error for empty image")
	}
}

func TestSoftmax(t *testing.T) {
	probs := Softmax([]float32{1, 2, 3})

	var sum float64
	for _, p := range probs {
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("Expected probabilities to sum to 1, got %v", sum)
	}
	if !(probs[2] > probs[1] && probs[1] > probs[0]) {
		t.Errorf("Expected increasing probabilities, got %v", probs)
	}

	// 大きな値でもオーバーフローしない
	large := Softmax([]float32{1000, 1000})
	if math.Abs(large[0]-0.5) > 1e-9 {
		t.Errorf("Expected 0.5, got %v", large[0])
	}

	if Softmax(nil) != nil {
		t.Error("Expected nil for empty input")
	}
}
