package region

const (
	// DefaultMaskRatio 掩码区域占图像宽高的默认比例
	DefaultMaskRatio = 0.25
	// DefaultExtendedRatio 合成时回贴区域的默认比例，略大于掩码区域以消除接缝
	DefaultExtendedRatio = 0.30
)

// Region 图像内的矩形子区域，始终锚定在右下角
// 不变式：X+Width == 图像宽度，Y+Height == 图像高度
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Compute 按比例计算右下角锚定的子区域
// ratio <= 0 时使用 DefaultMaskRatio；退化输入（ratio > 1、零尺寸）由调用方保证不出现
func Compute(width, height int, ratio float64) Region {
	if ratio <= 0 {
		ratio = DefaultMaskRatio
	}
	rw := int(float64(width) * ratio)
	rh := int(float64(height) * ratio)
	return Region{
		X:      width - rw,
		Y:      height - rh,
		Width:  rw,
		Height: rh,
	}
}
