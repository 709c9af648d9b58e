package deck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// MaxPDFSize caps the downloaded deck at 20 MB; the Gemini inline
// request limit is in that neighborhood and larger files are almost
// always video-heavy exports.
const MaxPDFSize = 20 << 20

var fetchClient = &http.Client{Timeout: 60 * time.Second}

// Fetch downloads the pitch deck from the startup's pitch_deck_url.
func Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("pitch deck URL is not an http(s) URL: %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := fetchClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download pitch deck: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pitch deck download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxPDFSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read pitch deck: %w", err)
	}
	if len(data) > MaxPDFSize {
		return nil, fmt.Errorf("pitch deck exceeds %d MB", MaxPDFSize>>20)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("pitch deck is empty")
	}
	return data, nil
}
