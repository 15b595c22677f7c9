package textgen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calrock27/genflow/pkg/gemini"
	"github.com/calrock27/genflow/pkg/models"
	"github.com/calrock27/genflow/pkg/protocol"
	"github.com/calrock27/genflow/pkg/session"
	"github.com/calrock27/genflow/pkg/testutil"
)

func newTestNode(t *testing.T, config map[string]any, client *testutil.FakeClient, sessions session.Store) *Node {
	t.Helper()

	if sessions == nil {
		sessions = session.NewMemoryStore()
	}

	base := map[string]any{
		"credentials": "main",
		"model":       "gemini-2.5-flash",
	}
	for k, v := range config {
		base[k] = v
	}

	node, err := New("text-1", base, sessions)
	require.NoError(t, err)

	node.newClient = func(apiKey string) gemini.Client {
		assert.Equal(t, "sk-test", apiKey)

		return client
	}

	return node
}

func textReply(text string) *gemini.GenerateContentResponse {
	return &gemini.GenerateContentResponse{
		Candidates: []gemini.Candidate{{
			Content:      &gemini.Content{Parts: []gemini.Part{{Text: text}}},
			FinishReason: gemini.FinishReasonStop,
		}},
	}
}

func TestSingleTurnPromptDefaultsToPayload(t *testing.T) {
	client := &testutil.FakeClient{Response: textReply("a tabby with a crayon")}
	node := newTestNode(t, nil, client, nil)
	rt := testutil.NewCaptureRuntime(map[string]string{"main": "sk-test"})

	err := node.OnMessage(context.Background(), models.Message{"payload": "draw a cat"}, rt)
	require.NoError(t, err)

	calls := client.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "gemini-2.5-flash", calls[0].Model)
	require.Len(t, calls[0].Request.Contents, 1)
	assert.Equal(t, "draw a cat", calls[0].Request.Contents[0].Parts[0].Text)

	success := rt.OnPort(protocol.PortSuccess)
	require.Len(t, success, 1)
	assert.Equal(t, "a tabby with a crayon", success[0]["payload"])
	assert.Empty(t, rt.OnPort(protocol.PortError))
}

func TestTemplatePromptAndSystemInstruction(t *testing.T) {
	client := &testutil.FakeClient{Response: textReply("ok")}
	node := newTestNode(t, map[string]any{
		"prompt": "summarize: {{.article}}",
		"system": "You are terse.",
	}, client, nil)
	rt := testutil.NewCaptureRuntime(map[string]string{"main": "sk-test"})

	err := node.OnMessage(context.Background(), models.Message{"article": "long text"}, rt)
	require.NoError(t, err)

	calls := client.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "summarize: long text", calls[0].Request.Contents[0].Parts[0].Text)
	require.NotNil(t, calls[0].Request.SystemInstruction)
	assert.Equal(t, "You are terse.", calls[0].Request.SystemInstruction.Parts[0].Text)
}

func TestGroundingAddsSearchTool(t *testing.T) {
	client := &testutil.FakeClient{Response: textReply("ok")}
	node := newTestNode(t, map[string]any{"grounding": true}, client, nil)
	rt := testutil.NewCaptureRuntime(map[string]string{"main": "sk-test"})

	require.NoError(t, node.OnMessage(context.Background(), models.Message{"payload": "news?"}, rt))

	calls := client.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Request.Tools, 1)
	assert.NotNil(t, calls[0].Request.Tools[0].GoogleSearch)
}

func TestChatAccumulatesHistory(t *testing.T) {
	client := &testutil.FakeClient{Response: textReply("hi, I am a model")}
	sessions := session.NewMemoryStore()
	node := newTestNode(t, map[string]any{"mode": "chat"}, client, sessions)
	rt := testutil.NewCaptureRuntime(map[string]string{"main": "sk-test"})

	msg := models.Message{"payload": "hello", "topic": "session-1"}
	require.NoError(t, node.OnMessage(context.Background(), msg, rt))

	history, err := sessions.History("session-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.RoleUser, history[0].Role)
	assert.Equal(t, models.RoleModel, history[1].Role)

	// Second exchange sends the full accumulated history.
	msg = models.Message{"payload": "tell me more", "topic": "session-1"}
	require.NoError(t, node.OnMessage(context.Background(), msg, rt))

	history, err = sessions.History("session-1")
	require.NoError(t, err)
	assert.Len(t, history, 4)

	calls := client.Calls()
	require.Len(t, calls, 2)
	require.Len(t, calls[1].Request.Contents, 3)
	assert.Equal(t, "hello", calls[1].Request.Contents[0].Parts[0].Text)
	assert.Equal(t, "hi, I am a model", calls[1].Request.Contents[1].Parts[0].Text)
	assert.Equal(t, "tell me more", calls[1].Request.Contents[2].Parts[0].Text)
}

func TestChatWithoutTopicUsesDefaultKey(t *testing.T) {
	client := &testutil.FakeClient{Response: textReply("reply")}
	sessions := session.NewMemoryStore()
	node := newTestNode(t, map[string]any{"mode": "chat"}, client, sessions)
	rt := testutil.NewCaptureRuntime(map[string]string{"main": "sk-test"})

	require.NoError(t, node.OnMessage(context.Background(), models.Message{"payload": "hi"}, rt))

	history, err := sessions.History(session.DefaultKey)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestChatResetSessionFlag(t *testing.T) {
	client := &testutil.FakeClient{Response: textReply("reply")}
	sessions := session.NewMemoryStore()
	node := newTestNode(t, map[string]any{"mode": "chat"}, client, sessions)
	rt := testutil.NewCaptureRuntime(map[string]string{"main": "sk-test"})

	require.NoError(t, node.OnMessage(context.Background(),
		models.Message{"payload": "first", "topic": "s"}, rt))
	require.NoError(t, node.OnMessage(context.Background(),
		models.Message{"payload": "fresh start", "topic": "s", "resetSession": true}, rt))

	history, err := sessions.History("s")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "fresh start", history[0].Parts[0].Text)
}

func TestChatFailedExchangeLeavesUserTurnOnly(t *testing.T) {
	client := &testutil.FakeClient{Response: &gemini.GenerateContentResponse{}}
	sessions := session.NewMemoryStore()
	node := newTestNode(t, map[string]any{"mode": "chat"}, client, sessions)
	rt := testutil.NewCaptureRuntime(map[string]string{"main": "sk-test"})

	require.NoError(t, node.OnMessage(context.Background(),
		models.Message{"payload": "hi", "topic": "s"}, rt))

	require.Empty(t, rt.OnPort(protocol.PortSuccess))
	require.Len(t, rt.OnPort(protocol.PortError), 1)

	history, err := sessions.History("s")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestZeroCandidatesRoutesToErrorPortOnly(t *testing.T) {
	client := &testutil.FakeClient{Response: &gemini.GenerateContentResponse{}}
	node := newTestNode(t, nil, client, nil)
	rt := testutil.NewCaptureRuntime(map[string]string{"main": "sk-test"})

	require.NoError(t, node.OnMessage(context.Background(), models.Message{"payload": "hi"}, rt))

	assert.Empty(t, rt.OnPort(protocol.PortSuccess))

	errored := rt.OnPort(protocol.PortError)
	require.Len(t, errored, 1)

	envelope, ok := errored[0][models.FieldError].(models.ErrorEnvelope)
	require.True(t, ok)
	assert.Equal(t, models.ErrKindBlocked, envelope.Kind)
	assert.Equal(t, "no_candidates", envelope.Code)
}

func TestMissingCredentialFailsWithoutRemoteCall(t *testing.T) {
	client := &testutil.FakeClient{Response: textReply("never")}
	node := newTestNode(t, nil, client, nil)
	rt := testutil.NewCaptureRuntime(nil)

	require.NoError(t, node.OnMessage(context.Background(), models.Message{"payload": "hi"}, rt))

	assert.Empty(t, client.Calls())
	require.Len(t, rt.OnPort(protocol.PortError), 1)
}

func TestEmptyPromptFailsWithoutRemoteCall(t *testing.T) {
	client := &testutil.FakeClient{Response: textReply("never")}
	node := newTestNode(t, nil, client, nil)
	rt := testutil.NewCaptureRuntime(map[string]string{"main": "sk-test"})

	require.NoError(t, node.OnMessage(context.Background(), models.Message{"payload": "   "}, rt))

	assert.Empty(t, client.Calls())

	errored := rt.OnPort(protocol.PortError)
	require.Len(t, errored, 1)

	envelope := errored[0][models.FieldError].(models.ErrorEnvelope)
	assert.Equal(t, models.ErrKindConfiguration, envelope.Kind)
}

func TestStreamEmitsPartialsThenAggregate(t *testing.T) {
	client := &testutil.FakeClient{Fragments: []*gemini.GenerateContentResponse{
		textReplyFragment("Once"),
		textReplyFragment(" upon a time"),
	}}
	node := newTestNode(t, map[string]any{"mode": "stream"}, client, nil)
	rt := testutil.NewCaptureRuntime(map[string]string{"main": "sk-test"})

	require.NoError(t, node.OnMessage(context.Background(), models.Message{"payload": "story"}, rt))

	success := rt.OnPort(protocol.PortSuccess)
	require.Len(t, success, 3)

	assert.Equal(t, "Once", success[0]["payload"])
	assert.Equal(t, true, success[0]["partial"])
	assert.Equal(t, " upon a time", success[1]["payload"])
	assert.Equal(t, true, success[1]["partial"])

	assert.Equal(t, "Once upon a time", success[2]["payload"])
	assert.NotContains(t, success[2], "partial")
}

func TestStreamBlockedMidway(t *testing.T) {
	blocked := textReplyFragment("start")
	blocked.Candidates[0].FinishReason = "SAFETY"
	blocked.Candidates[0].Content = nil

	client := &testutil.FakeClient{Fragments: []*gemini.GenerateContentResponse{
		textReplyFragment("Once"),
		blocked,
	}}
	node := newTestNode(t, map[string]any{"mode": "stream"}, client, nil)
	rt := testutil.NewCaptureRuntime(map[string]string{"main": "sk-test"})

	require.NoError(t, node.OnMessage(context.Background(), models.Message{"payload": "story"}, rt))

	// The partial already emitted stays; the final result goes to the
	// error port.
	success := rt.OnPort(protocol.PortSuccess)
	require.Len(t, success, 1)
	assert.Equal(t, true, success[0]["partial"])

	errored := rt.OnPort(protocol.PortError)
	require.Len(t, errored, 1)

	envelope := errored[0][models.FieldError].(models.ErrorEnvelope)
	assert.Equal(t, models.ErrKindBlocked, envelope.Kind)
}

func TestRejectsUnsupportedMode(t *testing.T) {
	_, err := New("x", map[string]any{
		"credentials": "main",
		"model":       "gemini-2.5-flash",
		"mode":        "batch",
	}, session.NewMemoryStore())
	require.Error(t, err)
}

func textReplyFragment(text string) *gemini.GenerateContentResponse {
	return &gemini.GenerateContentResponse{
		Candidates: []gemini.Candidate{{
			Content: &gemini.Content{Parts: []gemini.Part{{Text: text}}},
		}},
	}
}
