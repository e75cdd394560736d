package camera

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// maxFrameSize caps a single snapshot at 20 MB.
	maxFrameSize = 20 * 1024 * 1024

	defaultFetchTimeout = 10 * time.Second
)

// FrameSource produces camera frames as encoded image bytes.
type FrameSource interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// HTTPFrameSource fetches JPEG snapshots from a camera's still-image URL.
type HTTPFrameSource struct {
	url    string
	client *http.Client
}

// NewHTTPFrameSource creates a frame source polling the given snapshot URL.
func NewHTTPFrameSource(url string) *HTTPFrameSource {
	return &HTTPFrameSource{
		url: url,
		client: &http.Client{
			Timeout: defaultFetchTimeout,
		},
	}
}

// Fetch downloads a single frame.
func (s *HTTPFrameSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating frame request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching frame: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("camera returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameSize))
	if err != nil {
		return nil, fmt.Errorf("reading frame: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("camera returned an empty frame")
	}

	return data, nil
}
