package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const fetchChunkSize = 32 * 1024

// fetcher 分块下载模型字节并逐块汇报进度
type fetcher struct {
	url    string
	client *http.Client
}

func newFetcher(url string, timeout time.Duration) *fetcher {
	return &fetcher{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// fetch 把模型完整读入内存
// onChunk 以 (已接收字节, 总字节) 回调；Content-Length 未知时 total 为 -1
func (f *fetcher) fetch(ctx context.Context, onChunk func(loaded, total int64)) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, &FetchError{URL: f.url, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: f.url, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: f.url, Err: fmt.Errorf("status code %d", resp.StatusCode)}
	}

	total := resp.ContentLength
	var data []byte
	if total > 0 {
		data = make([]byte, 0, total)
	}

	chunk := make([]byte, fetchChunkSize)
	for {
		n, err := resp.Body.Read(chunk)
		if n > 0 {
			data = append(data, chunk[:n]...)
			if onChunk != nil {
				onChunk(int64(len(data)), total)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &FetchError{URL: f.url, Err: err}
		}
	}
	return data, nil
}
