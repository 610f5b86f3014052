package pdftext

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// OCRClient recognizes text in a PDF whose content streams carry no
// usable text (scanned images). Implementations must be safe for
// concurrent use.
type OCRClient interface {
	// Recognize returns the recognized text for the given PDF bytes.
	Recognize(ctx context.Context, content []byte) (string, error)
}

// ErrOCRUnavailable indicates the OCR service is unreachable.
var ErrOCRUnavailable = errors.New("ocr service unavailable")

const defaultOCRTimeout = 120 * time.Second

// HTTPOCRClient talks to an OCR sidecar over HTTP. The service contract
// is POST /ocr with a base64-encoded PDF, returning the recognized text.
type HTTPOCRClient struct {
	baseURL string
	client  *http.Client
}

type ocrRequest struct {
	PDFBase64 string `json:"pdf_base64"`
}

type ocrResponse struct {
	Text string `json:"text"`
}

// NewHTTPOCRClient creates an OCR client for the service at baseURL.
// A non-positive timeout falls back to the default.
func NewHTTPOCRClient(baseURL string, timeout time.Duration) *HTTPOCRClient {
	if timeout <= 0 {
		timeout = defaultOCRTimeout
	}
	return &HTTPOCRClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Recognize sends the PDF to the OCR service and returns its text.
func (c *HTTPOCRClient) Recognize(ctx context.Context, content []byte) (string, error) {
	body, err := json.Marshal(ocrRequest{
		PDFBase64: base64.StdEncoding.EncodeToString(content),
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ocr", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrOCRUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ocr service returned %d", resp.StatusCode)
	}

	var result ocrResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&result); decodeErr != nil {
		return "", fmt.Errorf("decode response: %w", decodeErr)
	}
	return result.Text, nil
}
