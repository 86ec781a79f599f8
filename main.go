package main

import (
	"context"
	"flag"
	"image"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/segmentio/ksuid"
	_ "golang.org/x/image/webp"

	"github.com/dinoBOLT/Gemini-Watermark-Remover/config"
	"github.com/dinoBOLT/Gemini-Watermark-Remover/engine"
	"github.com/dinoBOLT/Gemini-Watermark-Remover/pipeline"
	"github.com/dinoBOLT/Gemini-Watermark-Remover/progress"
	"github.com/dinoBOLT/Gemini-Watermark-Remover/server"
	"github.com/dinoBOLT/Gemini-Watermark-Remover/util"
)

func main() {
	inputPath := flag.String("input", "", "输入图片路径或 URL")
	outputDir := flag.String("output", "./output", "输出目录")
	serve := flag.Bool("serve", false, "以 HTTP 服务方式运行")
	flag.Parse()

	cfg := config.Load()
	cache := engine.NewCache(engine.CacheConfig{
		ModelURL:     cfg.ModelURL,
		FetchTimeout: cfg.FetchTimeout,
		Build:        engine.NewORTBuilder(engine.RuntimeConfig{LibraryPath: cfg.ORTLibraryPath}),
		BuildOptions: engine.BuildOptions{
			ExecutionProvider: cfg.ExecutionProvider,
			OptimizationLevel: cfg.OptimizationLevel,
			ThreadCount:       cfg.ThreadCount,
		},
		ProgressFrom: cfg.FetchProgressFrom,
		ProgressTo:   cfg.FetchProgressTo,
	})
	pipe := pipeline.New(cfg, cache)

	if *serve {
		srv := server.New(cfg, cache, pipe)
		if err := srv.Run(); err != nil {
			log.Fatal("Server exited:", err)
		}
		return
	}

	if *inputPath == "" {
		log.Fatal("missing -input")
	}
	_ = os.MkdirAll(*outputDir, os.ModePerm)

	var img image.Image
	var err error
	if strings.HasPrefix(*inputPath, "http://") || strings.HasPrefix(*inputPath, "https://") {
		img, err = util.DownloadImage(*inputPath)
	} else {
		img, err = util.OpenImage(*inputPath)
	}
	if err != nil {
		log.Fatal("Failed to load image:", err)
	}

	final, err := pipe.Run(context.Background(), img, func(ev progress.Event) {
		slog.Info("progress", "percent", ev.Percent, "message", ev.Message)
	})
	if err != nil {
		log.Fatal("Failed to restore image:", err)
	}
	defer cache.Dispose()

	outPath := filepath.Join(*outputDir, ksuid.New().String()+"_restored.png")
	if err := util.SavePNG(outPath, final); err != nil {
		log.Fatal("Failed to save image:", err)
	}

	log.Println("Done! Restored image:", outPath)
}
