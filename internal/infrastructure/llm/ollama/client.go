package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/footwear-qc/internal/infrastructure/resilience"
)

// Client talks to an Ollama server. Vision and text prompts may target
// different models.
type Client struct {
	baseURL     string
	visionModel string
	textModel   string
	httpClient  *http.Client
	executor    *resilience.Executor
}

func New(baseURL, visionModel, textModel string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		visionModel: visionModel,
		textModel:   textModel,
		httpClient:  &http.Client{Timeout: 180 * time.Second},
		executor:    executor,
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Images  []string       `json:"images,omitempty"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// generateJSON asks model for a JSON answer, optionally grounded on images.
func (c *Client) generateJSON(ctx context.Context, operation, model, prompt string, images ...[]byte) (string, error) {
	req := generateRequest{
		Model:   model,
		Prompt:  prompt,
		Stream:  false,
		Format:  "json",
		Options: map[string]any{"temperature": 0},
	}
	for _, image := range images {
		req.Images = append(req.Images, base64.StdEncoding.EncodeToString(image))
	}

	resp, err := resilience.Do(ctx, c.executor, "ollama_"+operation, func(ctx context.Context) (generateResponse, error) {
		var out generateResponse
		err := c.generate(ctx, operation, req, &out)
		return out, err
	}, classifyOllamaError)
	if err != nil {
		return "", resilience.WrapTemporary("ollama "+operation, err, classifyOllamaError)
	}
	return strings.TrimSpace(resp.Response), nil
}

// generate performs one non-streaming /api/generate round trip.
func (c *Client) generate(ctx context.Context, operation string, payload generateRequest, out *generateResponse) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(msg),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
