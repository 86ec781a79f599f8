package compose

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/dinoBOLT/Gemini-Watermark-Remover/region"
)

// CompositionError 原图与修复图无法合成（防御性错误，正常流程不应触发）
type CompositionError struct {
	Reason string
}

func (e *CompositionError) Error() string {
	return "compose image: " + e.Reason
}

// Compose 把修复图的扩展区域重采样回原图副本的扩展区域
// 结果与原图等尺寸；扩展区域之外的像素与原图逐字节一致
// 扩展区域比喂给模型的掩码区域略大，以避免掩码边界处出现可见接缝
func Compose(original, restored *image.NRGBA, extendedRatio float64) (*image.NRGBA, error) {
	if extendedRatio <= 0 {
		extendedRatio = region.DefaultExtendedRatio
	}

	ob := original.Bounds()
	rb := restored.Bounds()
	if ob.Dx() <= 0 || ob.Dy() <= 0 {
		return nil, &CompositionError{Reason: "original image is empty"}
	}
	if rb.Dx() <= 0 || rb.Dy() <= 0 {
		return nil, &CompositionError{Reason: "restored image is empty"}
	}

	out := image.NewNRGBA(image.Rect(0, 0, ob.Dx(), ob.Dy()))
	draw.Copy(out, image.Point{}, original, ob, draw.Src, nil)

	dst := region.Compute(ob.Dx(), ob.Dy(), extendedRatio)
	src := region.Compute(rb.Dx(), rb.Dy(), extendedRatio)
	if dst.Width <= 0 || dst.Height <= 0 || src.Width <= 0 || src.Height <= 0 {
		return nil, &CompositionError{Reason: "extended region is empty"}
	}

	dstRect := image.Rect(dst.X, dst.Y, dst.X+dst.Width, dst.Y+dst.Height)
	srcRect := image.Rect(src.X, src.Y, src.X+src.Width, src.Y+src.Height).Add(rb.Min)
	draw.CatmullRom.Scale(out, dstRect, restored, srcRect, draw.Src, nil)

	return out, nil
}
