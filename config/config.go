package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dinoBOLT/Gemini-Watermark-Remover/region"
)

const defaultModelURL = "https://huggingface.co/andraniksargsyan/migan/resolve/main/migan_pipeline_v2.onnx"

// Config 进程级静态配置，环境变量优先，缺省取内置默认值
type Config struct {
	// 模型与推理
	ModelURL          string
	ModelInputSize    int
	MaskRatio         float64
	ExtendedRatio     float64
	ExecutionProvider string
	OptimizationLevel string
	ThreadCount       int
	ORTLibraryPath    string

	// 模型下载
	FetchTimeout      time.Duration
	FetchProgressFrom int
	FetchProgressTo   int

	// HTTP 服务
	ServerAddr        string
	UploadMaxSize     int64
	AllowedMimeTypes  []string
	EngineIdleTimeout time.Duration
}

// Load 读取配置（.env 文件不存在时忽略）
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ModelURL:          getEnv("GWR_MODEL_URL", defaultModelURL),
		ModelInputSize:    getEnvInt("GWR_MODEL_INPUT_SIZE", 512),
		MaskRatio:         getEnvFloat("GWR_MASK_RATIO", region.DefaultMaskRatio),
		ExtendedRatio:     getEnvFloat("GWR_EXTENDED_RATIO", region.DefaultExtendedRatio),
		ExecutionProvider: getEnv("GWR_EXECUTION_PROVIDER", "cpu"),
		OptimizationLevel: getEnv("GWR_OPTIMIZATION_LEVEL", "all"),
		ThreadCount:       getEnvInt("GWR_THREAD_COUNT", 4),
		ORTLibraryPath:    os.Getenv("GWR_ORT_LIBRARY_PATH"),

		FetchTimeout:      getEnvDuration("GWR_FETCH_TIMEOUT", 2*time.Minute),
		FetchProgressFrom: getEnvInt("GWR_FETCH_PROGRESS_FROM", 10),
		FetchProgressTo:   getEnvInt("GWR_FETCH_PROGRESS_TO", 60),

		ServerAddr:        getEnv("GWR_SERVER_ADDR", ":8080"),
		UploadMaxSize:     int64(getEnvInt("GWR_UPLOAD_MAX_MB", 20)) * 1024 * 1024,
		AllowedMimeTypes:  strings.Split(getEnv("GWR_ALLOWED_MIME_TYPES", "image/png,image/jpeg,image/webp"), ","),
		EngineIdleTimeout: getEnvDuration("GWR_ENGINE_IDLE_TIMEOUT", 15*time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
