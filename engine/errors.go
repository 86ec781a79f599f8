package engine

import "fmt"

// FetchError 模型下载阶段的网络或 HTTP 失败
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch model %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// EngineLoadError 引擎构建失败，包装 FetchError 或后端错误
type EngineLoadError struct {
	Err error
}

func (e *EngineLoadError) Error() string {
	return fmt.Sprintf("load engine: %v", e.Err)
}

func (e *EngineLoadError) Unwrap() error { return e.Err }

// NotInitializedError 在成功 Initialize 之前请求推理
type NotInitializedError struct{}

func (e *NotInitializedError) Error() string {
	return "engine is not initialized"
}

// InferenceError 引擎执行失败
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("run inference: %v", e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }
