package util

import (
	"log/slog"
	"time"
)

// Trace 记录一段操作的耗时，defer util.Trace("xxx")() 使用
func Trace(name string) func() {
	start := time.Now()
	return func() {
		slog.Info("trace", "name", name, "elapsed", time.Since(start))
	}
}
