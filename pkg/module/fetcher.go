package module

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rtuszik/flux-gallery/pkg/config"
	"github.com/rtuszik/flux-gallery/pkg/utils"
)

// Asset is one fetched output. Path is set when the fetcher writes to the
// output directory, otherwise Body holds the bytes for direct delivery.
type Asset struct {
	Path string
	Body []byte
	Size int64
}

// Fetcher downloads output urls. With an output directory configured it
// streams to a uniquely named file, otherwise it buffers in memory.
// One asset failing never touches its siblings.
type Fetcher struct {
	httpClient *http.Client
	outputDir  string
}

func NewFetcher(cfg *config.Config) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.HttpTimeout) * time.Second,
		},
		outputDir: cfg.ImageOutputDir,
	}
}

// Fetch retrieve one asset. taskId and index feed the collision-safe
// filename: <unix-ts>_<taskId>_<index>.<ext>
func (f *Fetcher) Fetch(ctx context.Context, url, taskId string, index int) (*Asset, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, &DownloadError{Url: url, Err: err}
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &DownloadError{Url: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &DownloadError{Url: url, StatusCode: resp.StatusCode}
	}

	if f.outputDir == "" {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &DownloadError{Url: url, Err: err}
		}
		return &Asset{Body: body, Size: int64(len(body))}, nil
	}

	if err := utils.EnsureDir(f.outputDir); err != nil {
		return nil, &DownloadError{Url: url, Err: err}
	}
	name := fmt.Sprintf("%d_%s_%d%s", utils.TimestampS(), taskId, index, extFromUrl(url))
	dst := filepath.Join(f.outputDir, name)
	fd, err := os.Create(dst)
	if err != nil {
		return nil, &DownloadError{Url: url, Err: err}
	}
	written, err := io.Copy(fd, resp.Body)
	closeErr := fd.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		// leave no partial file behind
		os.Remove(dst)
		return nil, &DownloadError{Url: url, Err: err}
	}
	return &Asset{Path: dst, Size: written}, nil
}

func extFromUrl(url string) string {
	base := path.Base(url)
	if i := strings.IndexAny(base, "?#"); i != -1 {
		base = base[:i]
	}
	if ext := path.Ext(base); ext != "" && len(ext) <= 6 {
		return ext
	}
	return ".png"
}
