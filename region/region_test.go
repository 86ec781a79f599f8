package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		width  int
		height int
		ratio  float64
		want   Region
	}{
		{
			name:  "正方形图像 30% 区域",
			width: 100, height: 100, ratio: 0.3,
			want: Region{X: 70, Y: 70, Width: 30, Height: 30},
		},
		{
			name:  "非整除尺寸向下取整",
			width: 101, height: 101, ratio: 0.3,
			want: Region{X: 71, Y: 71, Width: 30, Height: 30},
		},
		{
			name:  "比例为 1 时覆盖整图",
			width: 512, height: 512, ratio: 1,
			want: Region{X: 0, Y: 0, Width: 512, Height: 512},
		},
		{
			name:  "宽高不等",
			width: 640, height: 480, ratio: 0.25,
			want: Region{X: 480, Y: 360, Width: 160, Height: 120},
		},
		{
			name:  "省略比例时使用默认值",
			width: 400, height: 200, ratio: 0,
			want: Region{X: 300, Y: 150, Width: 100, Height: 50},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Compute(tt.width, tt.height, tt.ratio)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeAnchoring(t *testing.T) {
	t.Parallel()

	// 任意宽高与比例组合，区域必须贴住右下角
	for _, ratio := range []float64{0.1, 0.25, 0.3, 0.5, 0.77, 1} {
		for _, size := range [][2]int{{1, 1}, {7, 13}, {100, 100}, {512, 512}, {1920, 1080}} {
			r := Compute(size[0], size[1], ratio)
			assert.Equal(t, size[0], r.X+r.Width, "x+width 应等于图像宽度")
			assert.Equal(t, size[1], r.Y+r.Height, "y+height 应等于图像高度")
		}
	}
}
