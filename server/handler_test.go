package server

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinoBOLT/Gemini-Watermark-Remover/config"
	"github.com/dinoBOLT/Gemini-Watermark-Remover/engine"
	"github.com/dinoBOLT/Gemini-Watermark-Remover/pipeline"
	"github.com/dinoBOLT/Gemini-Watermark-Remover/tensor"
)

type passthroughEngine struct{}

func (passthroughEngine) Run(_ context.Context, inputs map[string]*tensor.Tensor) (*tensor.Tensor, error) {
	return inputs[engine.InputImage], nil
}

func (passthroughEngine) Close() error { return nil }

func newTestServer(t *testing.T) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	modelSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 1024))
	}))
	t.Cleanup(modelSrv.Close)

	cfg := &config.Config{
		ModelURL:          modelSrv.URL,
		ModelInputSize:    16,
		MaskRatio:         0.25,
		ExtendedRatio:     0.3,
		UploadMaxSize:     1 * 1024 * 1024,
		AllowedMimeTypes:  []string{"image/png", "image/jpeg"},
		FetchProgressFrom: 10,
		FetchProgressTo:   60,
	}
	cache := engine.NewCache(engine.CacheConfig{
		ModelURL:     cfg.ModelURL,
		ProgressFrom: cfg.FetchProgressFrom,
		ProgressTo:   cfg.FetchProgressTo,
		Build: func([]byte, engine.BuildOptions) (engine.Engine, error) {
			return passthroughEngine{}, nil
		},
	})
	srv := New(cfg, cache, pipeline.New(cfg, cache))
	return srv, srv.Router()
}

// multipartImage 构造带指定 Content-Type 的图片上传请求体
func multipartImage(t *testing.T, contentType string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="image"; filename="upload.png"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return body, w.FormDataContentType()
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestHandleRestoreMissingFile(t *testing.T) {
	_, router := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/restore", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRestoreRejectsMimeType(t *testing.T) {
	_, router := newTestServer(t)

	body, contentType := multipartImage(t, "text/plain", []byte("not an image"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/restore", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "不支持的文件类型")
}

func TestHandleRestoreRejectsOversize(t *testing.T) {
	srv, router := newTestServer(t)
	srv.cfg.UploadMaxSize = 16

	body, contentType := multipartImage(t, "image/png", encodePNG(t, 8, 8))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/restore", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "文件大小超过限制")
}

func TestHandleRestoreSuccess(t *testing.T) {
	_, router := newTestServer(t)

	body, contentType := multipartImage(t, "image/png", encodePNG(t, 8, 8))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/restore", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Task-ID"))

	out, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 8, out.Bounds().Dx())
	assert.Equal(t, 8, out.Bounds().Dy())
}

func TestHandleEngineInfoAndClearCache(t *testing.T) {
	srv, router := newTestServer(t)
	require.NoError(t, srv.cache.Initialize(context.Background(), nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/engine", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"isInitialized":true`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/engine/cache", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	info := srv.cache.Info()
	assert.False(t, info.IsInitialized)
	assert.False(t, info.HasModelBuffer)
}
