package tensor

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	t.Parallel()

	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 0, B: 0, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 0, G: 255, B: 0, A: 255})
	img.SetNRGBA(0, 1, color.NRGBA{R: 0, G: 0, B: 255, A: 128})
	img.SetNRGBA(1, 1, color.NRGBA{R: 51, G: 102, B: 153, A: 0})

	imageT, maskT := Encode(img, 0.5)

	assert.Equal(t, [4]int64{1, 3, 2, 2}, imageT.Shape)
	assert.Equal(t, [4]int64{1, 1, 2, 2}, maskT.Shape)

	// R、G、B 三个平面，行主序，各值 /255，alpha 不参与
	assert.InDeltaSlice(t, []float32{
		1, 0, 0, 0.2, // R 平面
		0, 1, 0, 0.4, // G 平面
		0, 0, 1, 0.6, // B 平面
	}, imageT.Data, 1e-6)

	// 2x2 图像 50% 区域只覆盖右下角一个像素
	assert.Equal(t, []float32{0, 0, 0, 1}, maskT.Data)
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 31),
				G: uint8(y * 29),
				B: uint8((x + y) * 17),
				A: 255,
			})
		}
	}

	imageT, _ := Encode(img, 0.3)
	got, err := Decode(imageT)
	require.NoError(t, err)

	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			want := img.NRGBAAt(x, y)
			have := got.NRGBAAt(x, y)
			assert.InDelta(t, want.R, have.R, 1)
			assert.InDelta(t, want.G, have.G, 1)
			assert.InDelta(t, want.B, have.B, 1)
			assert.EqualValues(t, 255, have.A)
		}
	}
}

func TestDecodeRangeDetection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		data  []float32
		wantR [2]uint8
	}{
		{
			name: "归一化输出乘以 255",
			data: []float32{
				0.5, 1.0,
				0, 0,
				0, 0,
			},
			wantR: [2]uint8{128, 255},
		},
		{
			name: "采样最大值恰为 2.0 仍按归一化处理",
			data: []float32{
				2.0, 0.5,
				0, 0,
				0, 0,
			},
			wantR: [2]uint8{255, 128}, // 2.0*255 夹取到 255
		},
		{
			name: "原始值域直接透传",
			data: []float32{
				2.5, 200,
				0, 0,
				0, 0,
			},
			wantR: [2]uint8{3, 200}, // round(2.5) = 3
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Decode(&Tensor{Data: tt.data, Shape: [4]int64{1, 3, 1, 2}})
			require.NoError(t, err)
			assert.Equal(t, tt.wantR[0], got.NRGBAAt(0, 0).R)
			assert.Equal(t, tt.wantR[1], got.NRGBAAt(1, 0).R)
			assert.EqualValues(t, 255, got.NRGBAAt(0, 0).A)
		})
	}
}

func TestDecodeBadLength(t *testing.T) {
	t.Parallel()

	_, err := Decode(&Tensor{Data: make([]float32, 5), Shape: [4]int64{1, 3, 2, 2}})
	assert.Error(t, err)
}
