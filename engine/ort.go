package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/dinoBOLT/Gemini-Watermark-Remover/tensor"
)

// RuntimeConfig onnxruntime 进程级运行环境配置
type RuntimeConfig struct {
	// LibraryPath onnxruntime 动态库路径，留空则使用默认搜索路径
	LibraryPath string
}

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// onnxruntime 环境整个进程只初始化一次
func initRuntime(rt RuntimeConfig) error {
	ortInitOnce.Do(func() {
		if rt.LibraryPath != "" {
			ort.SetSharedLibraryPath(rt.LibraryPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// NewORTBuilder 返回基于 onnxruntime 的引擎构建器
func NewORTBuilder(rt RuntimeConfig) Builder {
	return func(modelData []byte, opts BuildOptions) (Engine, error) {
		if err := initRuntime(rt); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}

		so, err := ort.NewSessionOptions()
		if err != nil {
			return nil, fmt.Errorf("create session options: %w", err)
		}
		defer func() {
			_ = so.Destroy()
		}()

		if opts.ThreadCount > 0 {
			if err := so.SetIntraOpNumThreads(opts.ThreadCount); err != nil {
				return nil, fmt.Errorf("set thread count: %w", err)
			}
		}
		// TODO: onnxruntime_go 暴露图优化级别设置后应用 opts.OptimizationLevel，
		// 目前运行时默认启用全部图优化
		if strings.EqualFold(opts.ExecutionProvider, "cuda") {
			cudaOpts, err := ort.NewCUDAProviderOptions()
			if err != nil {
				return nil, fmt.Errorf("create cuda provider options: %w", err)
			}
			defer func() {
				_ = cudaOpts.Destroy()
			}()
			if err := so.AppendExecutionProviderCUDA(cudaOpts); err != nil {
				return nil, fmt.Errorf("append cuda provider: %w", err)
			}
		}

		session, err := ort.NewDynamicAdvancedSessionWithONNXData(
			modelData,
			[]string{InputImage, InputMask},
			[]string{"output"},
			so,
		)
		if err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		return &ortEngine{session: session}, nil
	}
}

type ortEngine struct {
	session *ort.DynamicAdvancedSession
}

func (e *ortEngine) Run(ctx context.Context, inputs map[string]*tensor.Tensor) (*tensor.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	imageT := inputs[InputImage]
	maskT := inputs[InputMask]
	if imageT == nil || maskT == nil {
		return nil, errors.New("missing input tensor")
	}

	imageIn, err := newORTTensor(imageT)
	if err != nil {
		return nil, fmt.Errorf("create image tensor: %w", err)
	}
	defer func() {
		_ = imageIn.Destroy()
	}()

	maskIn, err := newORTTensor(maskT)
	if err != nil {
		return nil, fmt.Errorf("create mask tensor: %w", err)
	}
	defer func() {
		_ = maskIn.Destroy()
	}()

	// 输出张量由 onnxruntime 自行分配
	outputs := []ort.Value{nil}
	if err := e.session.Run([]ort.Value{imageIn, maskIn}, outputs); err != nil {
		return nil, fmt.Errorf("run session: %w", err)
	}
	if len(outputs) == 0 || outputs[0] == nil {
		return nil, errors.New("no output from model")
	}

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, errors.New("unexpected output tensor type")
	}
	defer func() {
		_ = out.Destroy()
	}()

	shape := out.GetShape()
	if len(shape) != 4 {
		return nil, fmt.Errorf("unexpected output shape %v", shape)
	}

	// Destroy 会释放底层内存，必须拷贝
	src := out.GetData()
	data := make([]float32, len(src))
	copy(data, src)

	return &tensor.Tensor{
		Data:  data,
		Shape: [4]int64{shape[0], shape[1], shape[2], shape[3]},
	}, nil
}

func (e *ortEngine) Close() error {
	return e.session.Destroy()
}

func newORTTensor(t *tensor.Tensor) (*ort.Tensor[float32], error) {
	return ort.NewTensor(ort.NewShape(t.Shape[0], t.Shape[1], t.Shape[2], t.Shape[3]), t.Data)
}
