package facematch

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient calls a self-hosted face comparison microservice. It exists as
// an alternative to Rekognition for deployments that keep face data on-prem.
type HTTPClient struct {
	BaseURL   string
	Threshold float64
	HTTP      *http.Client
	Skip      bool
}

// NewHTTPClient creates a client. Skip short-circuits every call with a
// canned match, for local development without the service running.
func NewHTTPClient(baseURL string, threshold float64, skip bool) *HTTPClient {
	return &HTTPClient{
		BaseURL:   baseURL,
		Threshold: threshold,
		Skip:      skip,
		HTTP: &http.Client{
			Timeout: 30 * time.Second, // face comparison can take a while
		},
	}
}

// Compare posts both images to the service's /compare endpoint.
func (c *HTTPClient) Compare(ctx context.Context, source, target []byte) (Comparison, error) {
	if c.Skip {
		return Comparison{Match: true, Similarity: 95}, nil
	}

	body, _ := json.Marshal(map[string]interface{}{
		"source_base64": base64.StdEncoding.EncodeToString(source),
		"target_base64": base64.StdEncoding.EncodeToString(target),
		"threshold":     c.Threshold,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/compare", bytes.NewReader(body))
	if err != nil {
		return Comparison{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Comparison{}, fmt.Errorf("face service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return Comparison{}, fmt.Errorf("face service error %s: %s", resp.Status, string(bodyBytes))
	}

	var out struct {
		Match      bool    `json:"match"`
		Similarity float64 `json:"similarity"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Comparison{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return Comparison{Match: out.Match, Similarity: out.Similarity}, nil
}

// Health checks if the face service is available.
func (c *HTTPClient) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("face service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("face service unhealthy: %s", resp.Status)
	}
	return nil
}

// Name identifies this matcher in attendance records.
func (c *HTTPClient) Name() string { return "face-service" }
