package analyzecli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/tapdiag/internal/adapters/http/api"
	"github.com/okian/tapdiag/internal/domain/analytics"
)

const maxResponseBytes = 4 << 20

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Analyze posts req to the server's /analyze endpoint.
func (c *HTTPClient) Analyze(ctx context.Context, req api.AnalyzeRequest) (analytics.Report, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return analytics.Report{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return analytics.Report{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return analytics.Report{}, fmt.Errorf("%w: %w", ErrRemote, err)
	}
	raw, err := readResponseBody(resp)
	if err != nil {
		return analytics.Report{}, fmt.Errorf("%w: reading response: %w", ErrRemote, err)
	}

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &e) == nil && e.Message != "" {
			return analytics.Report{}, fmt.Errorf("%w: %d %s: %s", ErrRemote, resp.StatusCode, e.Code, e.Message)
		}
		return analytics.Report{}, fmt.Errorf("%w: status %d", ErrRemote, resp.StatusCode)
	}

	var report analytics.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return analytics.Report{}, fmt.Errorf("%w: decoding report: %w", ErrRemote, err)
	}
	return report, nil
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
}
