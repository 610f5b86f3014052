package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Completer produces a model completion for a prompt. Implementations
// must be safe for concurrent use.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	// ModelID identifies the model behind the completion, recorded
	// alongside each stored analysis.
	ModelID() string
}

// ErrGatewayUnavailable indicates the model gateway is unreachable.
var ErrGatewayUnavailable = errors.New("model gateway unavailable")

const (
	defaultGatewayTimeout = 90 * time.Second
	completionMaxTokens   = 1024
	completionTemperature = 0.2
)

// GatewayClient talks to a model gateway over HTTP. The gateway owns
// provider selection and credentials; this client only speaks a plain
// prompt-in, text-out contract.
type GatewayClient struct {
	baseURL string
	modelID string
	client  *http.Client
}

type completeRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type completeResponse struct {
	Text string `json:"text"`
}

// NewGatewayClient creates a gateway client for the service at baseURL.
// A non-positive timeout falls back to the default.
func NewGatewayClient(baseURL, modelID string, timeout time.Duration) *GatewayClient {
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	return &GatewayClient{
		baseURL: baseURL,
		modelID: modelID,
		client:  &http.Client{Timeout: timeout},
	}
}

// ModelID returns the configured model identifier.
func (c *GatewayClient) ModelID() string { return c.modelID }

// Complete sends POST /v1/complete and returns the completion text.
func (c *GatewayClient) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(completeRequest{
		Model:       c.modelID,
		Prompt:      prompt,
		MaxTokens:   completionMaxTokens,
		Temperature: completionTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/complete", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model gateway returned %d", resp.StatusCode)
	}

	var result completeResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&result); decodeErr != nil {
		return "", fmt.Errorf("decode response: %w", decodeErr)
	}
	return result.Text, nil
}
