package classifier

import (
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/nfnt/resize"
)

// Layout は入力テンソルのチャネル配置
type Layout string

const (
	// LayoutNHWC は Teachable Machine (Keras) 形式
	LayoutNHWC Layout = "nhwc"
	// LayoutNCHW は PyTorch から書き出したONNX形式
	LayoutNCHW Layout = "nchw"
)

// Norm は画素値の正規化方法
type Norm string

const (
	// NormSigned は [-1, 1] に正規化する（Teachable Machine と同じ）
	NormSigned Norm = "signed"
	// NormUnit は [0, 1] に正規化する
	NormUnit Norm = "unit"
)

// CenterCrop は画像の中央から正方形を切り出す
func CenterCrop(img image.Image) image.Image {
	b := img.Bounds()
	size := min(b.Dx(), b.Dy())
	x0 := b.Min.X + (b.Dx()-size)/2
	y0 := b.Min.Y + (b.Dy()-size)/2

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(dst, dst.Bounds(), img, image.Point{X: x0, Y: y0}, draw.Src)
	return dst
}

// ToTensor は画像を正方形に切り出して size×size に縮小し、float32のテンソルに変換する
func ToTensor(img image.Image, size int, layout Layout, norm Norm) ([]float32, error) {
	if size <= 0 {
		return nil, fmt.Errorf("無効な画像サイズ: %d", size)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("空の画像です")
	}

	resized := resize.Resize(uint(size), uint(size), CenterCrop(img), resize.Lanczos3)
	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height

	data := make([]float32, 3*plane)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			rgb := [3]float32{scale(r, norm), scale(g, norm), scale(b, norm)}

			pixel := y*width + x
			for c := 0; c < 3; c++ {
				if layout == LayoutNCHW {
					data[c*plane+pixel] = rgb[c]
				} else {
					data[pixel*3+c] = rgb[c]
				}
			}
		}
	}

	return data, nil
}

func scale(v uint32, norm Norm) float32 {
	unit := float32(v) / 65535.0
	if norm == NormUnit {
		return unit
	}
	return unit*2 - 1
}

// Softmax はロジットを確率に変換する
func Softmax(logits []float32) []float64 {
	if len(logits) == 0 {
		return nil
	}

	maxVal := logits[0]
	for _, v := range logits[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	probs := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		probs[i] = math.Exp(float64(v - maxVal))
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
