package tensor

import (
	"fmt"
	"image"
	"math"

	"github.com/dinoBOLT/Gemini-Watermark-Remover/region"
)

const (
	// rangeSampleLimit 判定输出值域时采样的首通道元素上限
	rangeSampleLimit = 1000
	// normalizedMax 采样最大值不超过该阈值即视为 [0,1] 归一化输出
	// 2.0 能容忍模型噪声造成的轻微越界，同时可靠排除 [0,255] 值域
	normalizedMax = 2.0
)

// Tensor NCHW 排布的 float32 张量
// 图像张量形状为 [1,3,H,W]，掩码张量为 [1,1,H,W]，平面内按行主序排列
type Tensor struct {
	Data  []float32
	Shape [4]int64
}

// Height 张量的像素高度
func (t *Tensor) Height() int { return int(t.Shape[2]) }

// Width 张量的像素宽度
func (t *Tensor) Width() int { return int(t.Shape[3]) }

// Encode 把交错 RGBA 图像编码为模型输入的图像张量与掩码张量
// 图像张量按 R、G、B 三个连续平面存放，各值除以 255 映射到 [0,1]，忽略 alpha；
// 掩码张量在水印区域内为 1.0，区域外为 0.0
func Encode(img *image.NRGBA, maskRatio float64) (*Tensor, *Tensor) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	plane := w * h

	imageData := make([]float32, 3*plane)
	maskData := make([]float32, plane)
	mask := region.Compute(w, h, maskRatio)

	for y := 0; y < h; y++ {
		row := y * img.Stride
		for x := 0; x < w; x++ {
			i := row + x*4
			idx := y*w + x
			imageData[idx] = float32(img.Pix[i]) / 255.0
			imageData[plane+idx] = float32(img.Pix[i+1]) / 255.0
			imageData[2*plane+idx] = float32(img.Pix[i+2]) / 255.0
			if x >= mask.X && y >= mask.Y {
				maskData[idx] = 1.0
			}
		}
	}

	imageT := &Tensor{Data: imageData, Shape: [4]int64{1, 3, int64(h), int64(w)}}
	maskT := &Tensor{Data: maskData, Shape: [4]int64{1, 1, int64(h), int64(w)}}
	return imageT, maskT
}

// Decode 把模型输出张量还原为交错 RGBA 图像
// 自动探测值域：采样首通道前至多 1000 个值，最大绝对值 <= 2.0 按归一化处理（整体乘 255）；
// 逐通道四舍五入并夹取到 [0,255]，alpha 恒为 255
func Decode(t *Tensor) (*image.NRGBA, error) {
	h, w := t.Height(), t.Width()
	plane := w * h
	if len(t.Data) != 3*plane {
		return nil, fmt.Errorf("tensor length %d does not match shape 3x%dx%d", len(t.Data), h, w)
	}

	scale := 1.0
	if sampleMaxAbs(t.Data[:min(plane, rangeSampleLimit)]) <= normalizedMax {
		scale = 255.0
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := y * img.Stride
		for x := 0; x < w; x++ {
			idx := y*w + x
			o := row + x*4
			img.Pix[o] = clampByte(float64(t.Data[idx]) * scale)
			img.Pix[o+1] = clampByte(float64(t.Data[plane+idx]) * scale)
			img.Pix[o+2] = clampByte(float64(t.Data[2*plane+idx]) * scale)
			img.Pix[o+3] = 255
		}
	}
	return img, nil
}

func sampleMaxAbs(values []float32) float64 {
	maxAbs := 0.0
	for _, v := range values {
		if abs := math.Abs(float64(v)); abs > maxAbs {
			maxAbs = abs
		}
	}
	return maxAbs
}

func clampByte(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
