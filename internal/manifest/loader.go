package manifest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/phototrip/phototrip/pkg/core"
)

// Loader fetches a manifest from a local path or an http(s) URL.
type Loader struct {
	httpClient *http.Client
}

// NewLoader creates a Loader. A zero timeout uses 30 seconds.
func NewLoader(timeout time.Duration) *Loader {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Loader{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Load reads and decodes the manifest at source. Every failure wraps ErrLoad.
func (l *Loader) Load(ctx context.Context, source string) ([]core.PhotoDescriptor, error) {
	rc, err := l.open(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	defer rc.Close()

	descs, err := Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	return descs, nil
}

func (l *Loader) open(ctx context.Context, source string) (io.ReadCloser, error) {
	if source == "" {
		return nil, fmt.Errorf("no manifest source configured")
	}
	if !isURL(source) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open manifest: %w", err)
		}
		return f, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("manifest request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("manifest request returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
