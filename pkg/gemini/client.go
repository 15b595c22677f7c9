package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/calrock27/genflow/pkg/models"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Client is the remote-service boundary. Nodes depend on this interface
// so tests can substitute fakes.
type Client interface {
	// GenerateContent performs a single blocking generation call.
	GenerateContent(ctx context.Context, model string, req *GenerateContentRequest) (*GenerateContentResponse, error)

	// StreamGenerateContent performs a streaming generation call,
	// invoking fn once per received fragment. A non-nil error from fn
	// aborts consumption of the remainder of the stream.
	StreamGenerateContent(ctx context.Context, model string, req *GenerateContentRequest, fn func(*GenerateContentResponse) error) error
}

// ClientConfig configures an HTTPClient.
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// HTTPClient talks to the generative-language REST endpoints.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates a client. The API key must be non-empty; that is
// enforced by callers before any request is attempted.
func NewHTTPClient(cfg ClientConfig) *HTTPClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 120 * time.Second}
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &HTTPClient{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}
}

// GenerateContent implements Client.
func (c *HTTPClient) GenerateContent(ctx context.Context, model string, req *GenerateContentRequest) (*GenerateContentResponse, error) {
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, model)

	resp, err := c.post(ctx, url, req)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.WrapFlowError(models.ErrKindTransport, "read_response", err,
			"failed to read response from %s", model)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apiError(resp.StatusCode, body)
	}

	var out GenerateContentResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, models.WrapFlowError(models.ErrKindTransport, "decode_response", err,
			"failed to decode response from %s", model)
	}

	return &out, nil
}

// StreamGenerateContent implements Client using the SSE streaming endpoint.
func (c *HTTPClient) StreamGenerateContent(ctx context.Context, model string, req *GenerateContentRequest, fn func(*GenerateContentResponse) error) error {
	url := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", c.baseURL, model)

	resp, err := c.post(ctx, url, req)
	if err != nil {
		return err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)

		return apiError(resp.StatusCode, body)
	}

	return consumeSSE(resp.Body, fn)
}

func (c *HTTPClient) post(ctx context.Context, url string, req *GenerateContentRequest) (*http.Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, models.WrapFlowError(models.ErrKindTransport, "encode_request", err,
			"failed to encode request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, models.WrapFlowError(models.ErrKindTransport, "build_request", err,
			"failed to build request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	c.logger.Debug("calling generative API", "url", url, "bytes", len(payload))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, models.WrapFlowError(models.ErrKindTransport, "request_failed", err,
			"request to generative API failed")
	}

	return resp, nil
}

// apiErrorBody is the error envelope the service returns on non-2xx.
type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func apiError(statusCode int, body []byte) *models.FlowError {
	var envelope apiErrorBody
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return models.NewFlowError(models.ErrKindTransport, strconv.Itoa(statusCode),
			"generative API error (%s): %s", envelope.Error.Status, envelope.Error.Message)
	}

	return models.NewFlowError(models.ErrKindTransport, strconv.Itoa(statusCode),
		"generative API returned HTTP %d", statusCode)
}
