package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calrock27/genflow/pkg/models"
)

func TestGenerateContent(t *testing.T) {
	var gotPath, gotKey string

	var gotReq GenerateContentRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_ = json.NewEncoder(w).Encode(GenerateContentResponse{
			Candidates: []Candidate{{
				Content:      &Content{Parts: []Part{{Text: "hello"}}},
				FinishReason: FinishReasonStop,
			}},
			ModelVersion: "gemini-2.5-flash",
		})
	}))
	defer server.Close()

	client := NewHTTPClient(ClientConfig{APIKey: "test-key", BaseURL: server.URL})

	resp, err := client.GenerateContent(context.Background(), "gemini-2.5-flash", &GenerateContentRequest{
		Contents: []Content{{Role: "user", Parts: []Part{{Text: "hi"}}}},
	})
	require.NoError(t, err)

	assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)
	require.Len(t, gotReq.Contents, 1)
	assert.Equal(t, "hi", gotReq.Contents[0].Parts[0].Text)
	require.Len(t, resp.Candidates, 1)
	assert.Equal(t, "hello", resp.Candidates[0].Content.Parts[0].Text)
}

func TestGenerateContentAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	client := NewHTTPClient(ClientConfig{APIKey: "test-key", BaseURL: server.URL})

	_, err := client.GenerateContent(context.Background(), "gemini-2.5-flash", &GenerateContentRequest{})
	require.Error(t, err)

	var fe *models.FlowError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, models.ErrKindTransport, fe.Kind)
	assert.Equal(t, "429", fe.Code)
	assert.Contains(t, fe.Message, "quota exceeded")
}

func TestStreamGenerateContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sse", r.URL.Query().Get("alt"))
		w.Header().Set("Content-Type", "text/event-stream")

		_, _ = w.Write([]byte(
			"data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"Once\"}]}}]}\n\n" +
				"data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\" upon\"}]},\"finishReason\":\"STOP\"}]}\n\n" +
				"data: [DONE]\n\n"))
	}))
	defer server.Close()

	client := NewHTTPClient(ClientConfig{APIKey: "test-key", BaseURL: server.URL})

	var texts []string

	err := client.StreamGenerateContent(context.Background(), "gemini-2.5-flash", &GenerateContentRequest{},
		func(fragment *GenerateContentResponse) error {
			texts = append(texts, fragment.Candidates[0].Content.Parts[0].Text)

			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"Once", " upon"}, texts)
}

func TestStreamGenerateContentCallbackAbort(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(
			"data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"a\"}]}}]}\n\n" +
				"data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"b\"}]}}]}\n\n"))
	}))
	defer server.Close()

	client := NewHTTPClient(ClientConfig{APIKey: "test-key", BaseURL: server.URL})

	calls := 0
	abort := models.NewFlowError(models.ErrKindBlocked, "safety", "blocked mid-stream")

	err := client.StreamGenerateContent(context.Background(), "gemini-2.5-flash", &GenerateContentRequest{},
		func(fragment *GenerateContentResponse) error {
			calls++

			return abort
		})
	require.ErrorIs(t, err, abort)
	assert.Equal(t, 1, calls)
}
