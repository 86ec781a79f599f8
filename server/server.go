package server

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/dinoBOLT/Gemini-Watermark-Remover/config"
	"github.com/dinoBOLT/Gemini-Watermark-Remover/engine"
	"github.com/dinoBOLT/Gemini-Watermark-Remover/pipeline"
)

// Server 对外的 HTTP 边界：上传校验、触发修复流程、暴露引擎缓存状态
type Server struct {
	cfg   *config.Config
	cache *engine.Cache
	pipe  *pipeline.Pipeline

	mu       sync.Mutex
	lastUsed time.Time
}

// New 创建 HTTP 服务
func New(cfg *config.Config, cache *engine.Cache, pipe *pipeline.Pipeline) *Server {
	return &Server{
		cfg:      cfg,
		cache:    cache,
		pipe:     pipe,
		lastUsed: time.Now(),
	}
}

// Router 组装路由
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	api.POST("/restore", s.handleRestore)
	api.GET("/engine", s.handleEngineInfo)
	api.DELETE("/engine/cache", s.handleClearCache)

	return r
}

// Run 启动服务，并以定时任务回收闲置引擎
func (s *Server) Run() error {
	c := cron.New()
	if _, err := c.AddFunc("@every 5m", s.sweepIdleEngine); err != nil {
		return err
	}
	c.Start()
	defer c.Stop()

	slog.Info("server listening", "addr", s.cfg.ServerAddr)
	return s.Router().Run(s.cfg.ServerAddr)
}

func (s *Server) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

// sweepIdleEngine 闲置超过阈值时释放引擎实例
// 模型字节保留在缓存里，下一次请求只需重建会话，无需重新下载
func (s *Server) sweepIdleEngine() {
	s.mu.Lock()
	idle := time.Since(s.lastUsed)
	s.mu.Unlock()

	if s.cache.Info().IsInitialized && idle > s.cfg.EngineIdleTimeout {
		slog.Info("disposing idle engine", "idle", idle)
		s.cache.Dispose()
	}
}
