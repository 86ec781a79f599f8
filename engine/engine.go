package engine

import (
	"context"

	"github.com/dinoBOLT/Gemini-Watermark-Remover/tensor"
)

// 模型输入张量的名称
const (
	InputImage = "image"
	InputMask  = "mask"
)

// Engine 推理引擎边界
// 接收命名输入张量，返回第一个（唯一的）输出张量，内部实现视为黑盒
type Engine interface {
	Run(ctx context.Context, inputs map[string]*tensor.Tensor) (*tensor.Tensor, error)
	Close() error
}

// BuildOptions 用模型字节构建引擎实例时的选项
type BuildOptions struct {
	ExecutionProvider string
	OptimizationLevel string
	ThreadCount       int
}

// Builder 用模型字节构建引擎实例
// 缓存通过它获取引擎，测试可以注入桩实现
type Builder func(modelData []byte, opts BuildOptions) (Engine, error)
