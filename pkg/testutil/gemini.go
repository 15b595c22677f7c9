package testutil

import (
	"context"
	"sync"

	"github.com/calrock27/genflow/pkg/gemini"
)

// RecordedCall captures one model invocation made through FakeClient.
type RecordedCall struct {
	Model   string
	Request *gemini.GenerateContentRequest
}

// FakeClient is a gemini.Client double returning canned responses.
type FakeClient struct {
	mu    sync.Mutex
	calls []RecordedCall

	// Response and Err are returned by GenerateContent. Fragments are
	// delivered in order by StreamGenerateContent.
	Response  *gemini.GenerateContentResponse
	Err       error
	Fragments []*gemini.GenerateContentResponse
}

func (c *FakeClient) GenerateContent(ctx context.Context, model string, req *gemini.GenerateContentRequest) (*gemini.GenerateContentResponse, error) {
	c.record(model, req)

	if c.Err != nil {
		return nil, c.Err
	}

	return c.Response, nil
}

func (c *FakeClient) StreamGenerateContent(ctx context.Context, model string, req *gemini.GenerateContentRequest, fn func(*gemini.GenerateContentResponse) error) error {
	c.record(model, req)

	if c.Err != nil {
		return c.Err
	}

	for _, fragment := range c.Fragments {
		if err := fn(fragment); err != nil {
			return err
		}
	}

	return nil
}

// Calls returns every recorded invocation.
func (c *FakeClient) Calls() []RecordedCall {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]RecordedCall, len(c.calls))
	copy(out, c.calls)

	return out
}

func (c *FakeClient) record(model string, req *gemini.GenerateContentRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, RecordedCall{Model: model, Request: req})
}
