package assembly

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// downloadAll fetches every url into scratch, bounded to maxConcurrent
// simultaneous transfers (spec.md §4.6 step 2: "parallel, bounded to 5"),
// generalizing the teacher's unbounded sync.WaitGroup fan-out
// (util/FFmpeg.go DownloadAllVideos) into a semaphore-gated errgroup so a
// long clip list can't exhaust file descriptors or provider rate limits.
func downloadAll(ctx context.Context, scratch string, urls []string, maxConcurrent int64) ([]string, error) {
	paths := make([]string, len(urls))
	sem := semaphore.NewWeighted(maxConcurrent)
	g, ctx := errgroup.WithContext(ctx)

	for i, url := range urls {
		i, url := i, url
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		g.Go(func() error {
			defer sem.Release(1)
			path := filepath.Join(scratch, "clip_"+strconv.Itoa(i)+extForURL(url))
			if err := downloadFile(ctx, url, path); err != nil {
				return fmt.Errorf("download clip %d: %w", i, err)
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func downloadFile(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: status %d", url, resp.StatusCode)
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, resp.Body)
	return err
}

func extForURL(url string) string {
	clean := url
	if idx := strings.IndexAny(clean, "?#"); idx >= 0 {
		clean = clean[:idx]
	}
	ext := filepath.Ext(clean)
	if ext == "" {
		return ".mp4"
	}
	return ext
}
