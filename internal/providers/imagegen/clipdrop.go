package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const clipDropDefaultTimeout = 60 * time.Second

// Generator renders an image for a text prompt and returns the raw bytes.
type Generator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// ClipDropOptions configures a ClipDrop client.
type ClipDropOptions struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// ClipDrop calls the ClipDrop text-to-image endpoint. The API takes a
// multipart form with a single prompt field and answers with binary PNG
// data, or a JSON error document on failure.
type ClipDrop struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClipDrop constructs a ClipDrop client.
func NewClipDrop(opts ClipDropOptions) (*ClipDrop, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("clipdrop api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://clipdrop-api.co"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: clipDropDefaultTimeout}
	}
	return &ClipDrop{apiKey: strings.TrimSpace(opts.APIKey), baseURL: baseURL, client: client}, nil
}

// Generate implements Generator.
func (c *ClipDrop) Generate(ctx context.Context, prompt string) ([]byte, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, errors.New("prompt is required")
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("prompt", prompt); err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/text-to-image/v1", &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("text-to-image request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read image response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("text-to-image: %s", errorMessage(data, resp.StatusCode))
	}
	if len(data) == 0 {
		return nil, errors.New("text-to-image returned an empty image")
	}
	return data, nil
}

// errorMessage extracts the provider's error string when the failure body is
// the documented JSON shape, falling back to the status code.
func errorMessage(data []byte, status int) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return fmt.Sprintf("status %d", status)
}

var _ Generator = (*ClipDrop)(nil)
