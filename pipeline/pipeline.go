package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/nfnt/resize"

	"github.com/dinoBOLT/Gemini-Watermark-Remover/compose"
	"github.com/dinoBOLT/Gemini-Watermark-Remover/config"
	"github.com/dinoBOLT/Gemini-Watermark-Remover/engine"
	"github.com/dinoBOLT/Gemini-Watermark-Remover/progress"
	"github.com/dinoBOLT/Gemini-Watermark-Remover/tensor"
	"github.com/dinoBOLT/Gemini-Watermark-Remover/util"
)

// 各阶段的进度里程碑；模型下载在引擎检查与预处理之间，占用配置的子区间
const (
	percentFileRead    = 5
	percentEngineCheck = 10
	percentPreprocess  = 75
	percentInference   = 90
	percentPostprocess = 95
	percentComplete    = 100
)

// Pipeline 串联预处理、推理与合成的端到端水印修复流程
// 单次 Run 内各阶段顺序执行；任一阶段失败即中止，不重试，不产出部分结果
type Pipeline struct {
	cfg   *config.Config
	cache *engine.Cache
}

// New 创建修复流程
func New(cfg *config.Config, cache *engine.Cache) *Pipeline {
	return &Pipeline{cfg: cfg, cache: cache}
}

// Run 对整张图执行水印修复，返回与原图等尺寸的结果
func (p *Pipeline) Run(ctx context.Context, src image.Image, onProgress progress.Func) (*image.NRGBA, error) {
	defer util.Trace("restore image")()

	if onProgress == nil {
		onProgress = progress.Nop
	}
	emit := monotonic(onProgress)

	emit(progress.Event{Percent: percentFileRead, Message: "图像读取完成"})

	emit(progress.Event{Percent: percentEngineCheck, Message: "检查推理引擎"})
	if err := p.cache.Initialize(ctx, emit); err != nil {
		return nil, fmt.Errorf("initialize engine: %w", err)
	}

	original := util.ToNRGBA(src)
	size := p.cfg.ModelInputSize
	input := util.ToNRGBA(resize.Resize(uint(size), uint(size), original, resize.Lanczos3))

	imageT, maskT := tensor.Encode(input, p.cfg.MaskRatio)
	emit(progress.Event{Percent: percentPreprocess, Message: "预处理完成"})

	out, err := p.cache.RunInference(ctx, map[string]*tensor.Tensor{
		engine.InputImage: imageT,
		engine.InputMask:  maskT,
	})
	if err != nil {
		return nil, fmt.Errorf("run inference: %w", err)
	}
	emit(progress.Event{Percent: percentInference, Message: "推理完成"})

	restored, err := tensor.Decode(out)
	if err != nil {
		return nil, fmt.Errorf("decode output tensor: %w", err)
	}
	emit(progress.Event{Percent: percentPostprocess, Message: "后处理完成"})

	final, err := compose.Compose(original, restored, p.cfg.ExtendedRatio)
	if err != nil {
		return nil, fmt.Errorf("compose image: %w", err)
	}

	slog.Debug("restore finished",
		"width", final.Bounds().Dx(),
		"height", final.Bounds().Dy(),
		"inputSize", size)
	emit(progress.Event{Percent: percentComplete, Message: "修复完成"})
	return final, nil
}

// monotonic 保证一次流程内 percent 单调不减且不超过 100
func monotonic(fn progress.Func) progress.Func {
	last := 0
	return func(ev progress.Event) {
		if ev.Percent < last {
			ev.Percent = last
		}
		if ev.Percent > 100 {
			ev.Percent = 100
		}
		last = ev.Percent
		fn(ev)
	}
}
