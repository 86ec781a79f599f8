package server

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"net/http"

	_ "image/jpeg"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/ksuid"
	_ "golang.org/x/image/webp"

	"github.com/dinoBOLT/Gemini-Watermark-Remover/progress"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// handleRestore 处理图片上传并返回修复后的 PNG
func (s *Server) handleRestore(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Message: "请上传图片文件",
			Error:   err.Error(),
		})
		return
	}

	// 验证文件大小
	if file.Size > s.cfg.UploadMaxSize {
		c.JSON(http.StatusBadRequest, errorResponse{
			Message: fmt.Sprintf("文件大小超过限制 (%d MB)", s.cfg.UploadMaxSize/(1024*1024)),
		})
		return
	}

	// 验证文件类型
	contentType := file.Header.Get("Content-Type")
	if !s.isAllowedType(contentType) {
		c.JSON(http.StatusBadRequest, errorResponse{
			Message: "不支持的文件类型，仅支持 PNG/JPEG/WebP",
		})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{
			Message: "读取上传文件失败",
			Error:   err.Error(),
		})
		return
	}
	defer func() {
		_ = f.Close()
	}()

	img, _, err := image.Decode(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Message: "图片解码失败",
			Error:   err.Error(),
		})
		return
	}

	taskID := ksuid.New().String()
	slog.Info("restore request",
		"task", taskID,
		"filename", file.Filename,
		"size", file.Size,
		"contentType", contentType)

	s.touch()
	out, err := s.pipe.Run(c.Request.Context(), img, func(ev progress.Event) {
		slog.Debug("restore progress",
			"task", taskID,
			"percent", ev.Percent,
			"message", ev.Message)
	})
	if err != nil {
		slog.Error("restore failed", "task", taskID, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{
			Message: "图片修复失败",
			Error:   err.Error(),
		})
		return
	}
	s.touch()

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{
			Message: "结果编码失败",
			Error:   err.Error(),
		})
		return
	}

	c.Header("X-Task-ID", taskID)
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// handleEngineInfo 暴露引擎缓存状态
func (s *Server) handleEngineInfo(c *gin.Context) {
	info := s.cache.Info()
	c.JSON(http.StatusOK, gin.H{
		"isInitialized":  info.IsInitialized,
		"hasModelBuffer": info.HasModelBuffer,
		"modelSize":      info.ModelSize,
	})
}

// handleClearCache 释放引擎并丢弃模型字节
func (s *Server) handleClearCache(c *gin.Context) {
	s.cache.ClearCache()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) isAllowedType(contentType string) bool {
	for _, t := range s.cfg.AllowedMimeTypes {
		if t == contentType {
			return true
		}
	}
	return false
}
