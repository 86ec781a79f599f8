package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dinoBOLT/Gemini-Watermark-Remover/progress"
	"github.com/dinoBOLT/Gemini-Watermark-Remover/tensor"
)

type state int

const (
	stateUninitialized state = iota
	stateInitializing
	stateReady
)

// CacheConfig 缓存的静态配置
type CacheConfig struct {
	ModelURL     string
	FetchTimeout time.Duration
	Build        Builder
	BuildOptions BuildOptions

	// 模型下载进度映射到整体进度刻度的区间
	ProgressFrom int
	ProgressTo   int
}

// Info 缓存状态快照
type Info struct {
	IsInitialized  bool
	HasModelBuffer bool
	ModelSize      int
}

type sinkEntry struct {
	fn progress.Func
}

// Cache 持有推理引擎实例与模型字节
// 初始化是单飞的：并发的 Initialize 只触发一次下载与一次引擎构建，
// 所有调用方共享同一结果与同一进度流
type Cache struct {
	cfg   CacheConfig
	fetch *fetcher
	group singleflight.Group

	mu        sync.Mutex
	st        state
	eng       Engine
	modelData []byte
	sinks     []*sinkEntry
}

// NewCache 创建未初始化的引擎缓存
func NewCache(cfg CacheConfig) *Cache {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 2 * time.Minute
	}
	if cfg.ProgressTo <= cfg.ProgressFrom {
		cfg.ProgressFrom, cfg.ProgressTo = 10, 60
	}
	return &Cache{
		cfg:   cfg,
		fetch: newFetcher(cfg.ModelURL, cfg.FetchTimeout),
	}
}

// Initialize 获取引擎，必要时下载模型并构建实例
// 已就绪时立即返回；已有初始化在途时挂到同一次尝试上，观察相同的结果与进度
func (c *Cache) Initialize(ctx context.Context, onProgress progress.Func) error {
	c.mu.Lock()
	if c.st == stateReady {
		c.mu.Unlock()
		return nil
	}
	entry := &sinkEntry{fn: onProgress}
	if onProgress != nil {
		c.sinks = append(c.sinks, entry)
	}
	c.mu.Unlock()
	defer c.removeSink(entry)

	_, err, _ := c.group.Do("initialize", func() (interface{}, error) {
		return nil, c.acquire(ctx)
	})
	return err
}

func (c *Cache) acquire(ctx context.Context) error {
	c.mu.Lock()
	if c.st == stateReady {
		c.mu.Unlock()
		return nil
	}
	c.st = stateInitializing
	data := c.modelData
	c.mu.Unlock()

	if data == nil {
		c.emit(c.cfg.ProgressFrom, "开始下载模型", 0)
		fetched, err := c.fetch.fetch(ctx, func(loaded, total int64) {
			pct := c.cfg.ProgressFrom
			if total > 0 {
				span := c.cfg.ProgressTo - c.cfg.ProgressFrom
				pct += int(float64(loaded) / float64(total) * float64(span))
			}
			c.emit(pct, "正在下载模型", loaded)
		})
		if err != nil {
			c.fail(err)
			return &EngineLoadError{Err: err}
		}
		data = fetched
		c.mu.Lock()
		c.modelData = data
		c.mu.Unlock()
		slog.Info("model fetched", "url", c.cfg.ModelURL, "size", len(data))
	} else {
		slog.Debug("model buffer reused", "size", len(data))
	}

	c.emit(c.cfg.ProgressTo, "正在构建推理引擎", 0)
	eng, err := c.cfg.Build(data, c.cfg.BuildOptions)
	if err != nil {
		c.fail(err)
		return &EngineLoadError{Err: err}
	}

	c.mu.Lock()
	c.eng = eng
	c.st = stateReady
	c.mu.Unlock()
	c.emit(c.cfg.ProgressTo, "推理引擎就绪", 0)
	return nil
}

// fail 初始化失败回到未初始化态
// 模型字节一并丢弃，下一次 Initialize 会重新下载
func (c *Cache) fail(err error) {
	c.mu.Lock()
	c.st = stateUninitialized
	c.eng = nil
	c.modelData = nil
	c.mu.Unlock()
	slog.Warn("engine initialization failed", "error", err)
}

// RunInference 委托引擎执行推理，取第一个（唯一的）输出张量
func (c *Cache) RunInference(ctx context.Context, inputs map[string]*tensor.Tensor) (*tensor.Tensor, error) {
	c.mu.Lock()
	eng := c.eng
	ready := c.st == stateReady
	c.mu.Unlock()

	if !ready || eng == nil {
		return nil, &NotInitializedError{}
	}
	out, err := eng.Run(ctx, inputs)
	if err != nil {
		return nil, &InferenceError{Err: err}
	}
	return out, nil
}

// Dispose 释放引擎实例，保留模型字节以加速再次初始化
func (c *Cache) Dispose() {
	c.mu.Lock()
	eng := c.eng
	c.eng = nil
	if c.st == stateReady {
		c.st = stateUninitialized
	}
	c.mu.Unlock()

	if eng != nil {
		if err := eng.Close(); err != nil {
			slog.Warn("close engine", "error", err)
		}
		slog.Debug("engine disposed, model buffer retained")
	}
}

// ClearCache 释放引擎并丢弃模型字节，下一次 Initialize 必须重新下载
func (c *Cache) ClearCache() {
	c.Dispose()
	c.mu.Lock()
	c.modelData = nil
	c.mu.Unlock()
}

// Info 返回当前状态快照
func (c *Cache) Info() Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Info{
		IsInitialized:  c.st == stateReady,
		HasModelBuffer: c.modelData != nil,
		ModelSize:      len(c.modelData),
	}
}

func (c *Cache) emit(percent int, message string, loaded int64) {
	c.mu.Lock()
	sinks := make([]*sinkEntry, len(c.sinks))
	copy(sinks, c.sinks)
	c.mu.Unlock()

	ev := progress.Event{Percent: percent, Message: message, BytesLoaded: loaded}
	for _, s := range sinks {
		s.fn(ev)
	}
}

func (c *Cache) removeSink(entry *sinkEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.sinks {
		if s == entry {
			c.sinks = append(c.sinks[:i], c.sinks[i+1:]...)
			break
		}
	}
}
