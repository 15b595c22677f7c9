// Package textgen provides the text-generation node, with single-turn,
// multi-turn chat, and streaming modes.
package textgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/calrock27/genflow/pkg/gemini"
	"github.com/calrock27/genflow/pkg/models"
	"github.com/calrock27/genflow/pkg/normalize"
	"github.com/calrock27/genflow/pkg/output"
	"github.com/calrock27/genflow/pkg/protocol"
	"github.com/calrock27/genflow/pkg/request"
	"github.com/calrock27/genflow/pkg/resolve"
	"github.com/calrock27/genflow/pkg/session"
)

// Generation modes.
const (
	ModeSingle = "single"
	ModeChat   = "chat"
	ModeStream = "stream"
)

// Config defines the text-generation node configuration.
type Config struct {
	Credentials string
	Model       models.Slot
	Prompt      models.Slot
	System      models.Slot
	Mode        string
	Grounding   bool
	Params      request.ParamSlots
	Safety      []gemini.SafetySetting
	Output      string
	Metadata    bool
}

// Node implements the text-generation capability.
type Node struct {
	id        string
	config    Config
	router    *output.Router
	sessions  session.Store
	newClient func(apiKey string) gemini.Client
}

// New creates a text-generation node from raw configuration.
func New(id string, config map[string]any, sessions session.Store) (*Node, error) {
	cfg := Config{Mode: ModeSingle, Output: models.FieldPayload}

	if creds, ok := config["credentials"].(string); ok {
		cfg.Credentials = creds
	}

	var err error

	if cfg.Model, err = models.SlotFromConfig(config, "model"); err != nil {
		return nil, err
	}

	if cfg.Prompt, err = models.SlotFromConfig(config, "prompt"); err != nil {
		return nil, err
	}

	if cfg.Prompt.IsZero() {
		cfg.Prompt = models.Slot{Source: models.SourceMessage, Value: models.FieldPayload}
	}

	if cfg.System, err = models.SlotFromConfig(config, "system"); err != nil {
		return nil, err
	}

	if mode, ok := config["mode"].(string); ok && mode != "" {
		cfg.Mode = mode
	}

	switch cfg.Mode {
	case ModeSingle, ModeChat, ModeStream:
	default:
		return nil, fmt.Errorf("unsupported mode %q", cfg.Mode)
	}

	if grounding, ok := config["grounding"].(bool); ok {
		cfg.Grounding = grounding
	}

	if cfg.Params, err = request.ParamSlotsFromConfig(config); err != nil {
		return nil, err
	}

	cfg.Safety = request.SafetySettings(config)

	if out, ok := config["output"].(string); ok && out != "" {
		cfg.Output = out
	}

	if metadata, ok := config["metadata"].(bool); ok {
		cfg.Metadata = metadata
	}

	return &Node{
		id:       id,
		config:   cfg,
		router:   output.NewRouter(cfg.Output, cfg.Metadata),
		sessions: sessions,
		newClient: func(apiKey string) gemini.Client {
			return gemini.NewHTTPClient(gemini.ClientConfig{APIKey: apiKey})
		},
	}, nil
}

// ID returns the node ID.
func (n *Node) ID() string {
	return n.id
}

// Type returns the node type.
func (n *Node) Type() string {
	return "gemini-text"
}

// OnMessage processes one inbound message.
func (n *Node) OnMessage(ctx context.Context, msg models.Message, rt protocol.Runtime) error {
	apiKey, err := request.APIKey(rt.Credentials(), n.config.Credentials)
	if err != nil {
		n.router.Failure(rt, msg, err)

		return nil
	}

	rc := resolve.Context{Message: msg, Flow: rt.FlowScope(), Global: rt.GlobalScope()}

	model, err := request.Model(n.config.Model, rc)
	if err != nil {
		n.router.Failure(rt, msg, err)

		return nil
	}

	req, sessionKey, err := n.buildRequest(msg, rc)
	if err != nil {
		n.router.Failure(rt, msg, err)

		return nil
	}

	client := n.newClient(apiKey)
	n.router.Progress(rt, "generating")

	if n.config.Mode == ModeStream {
		n.stream(ctx, client, model, req, msg, rt)

		return nil
	}

	resp, err := client.GenerateContent(ctx, model, req)
	if err != nil {
		n.router.Failure(rt, msg, err)

		return nil
	}

	outcome, err := normalize.Response(resp, normalize.CapabilityText)
	if err != nil {
		n.router.Failure(rt, msg, err)

		return nil
	}

	if n.config.Mode == ModeChat {
		if err := n.sessions.Append(sessionKey, models.ChatTurn{
			Role:  models.RoleModel,
			Parts: []models.ContentPart{models.TextPart(outcome.Text)},
		}); err != nil {
			rt.Logger().Warn("failed to record model turn", "session", sessionKey, "error", err)
		}
	}

	n.router.Success(rt, msg, outcome.Text, outcome)

	return nil
}

// buildRequest assembles the outbound request. In chat mode the new user
// turn is appended to the session history first and the request carries
// the entire accumulated history, not just the new turn.
func (n *Node) buildRequest(msg models.Message, rc resolve.Context) (*gemini.GenerateContentRequest, string, error) {
	prompt, err := resolve.String(n.config.Prompt, rc, models.FieldPayload)
	if err != nil {
		return nil, "", err
	}

	if strings.TrimSpace(prompt) == "" {
		return nil, "", models.NewFlowError(models.ErrKindConfiguration, "missing_prompt",
			"prompt is empty after resolution")
	}

	req := &gemini.GenerateContentRequest{}

	if cfg, err := request.GenerationConfig(n.config.Params, rc); err != nil {
		return nil, "", err
	} else if cfg != nil {
		req.GenerationConfig = cfg
	}

	req.SafetySettings = n.config.Safety

	if n.config.Grounding {
		req.Tools = []gemini.Tool{{GoogleSearch: &gemini.GoogleSearch{}}}
	}

	system, err := resolve.String(n.config.System, rc, "")
	if err != nil {
		return nil, "", err
	}

	if system != "" {
		req.SystemInstruction = &gemini.Content{Parts: []gemini.Part{{Text: system}}}
	}

	userTurn := models.ChatTurn{
		Role:  models.RoleUser,
		Parts: []models.ContentPart{models.TextPart(prompt)},
	}

	if n.config.Mode != ModeChat {
		req.Contents = gemini.ContentsFromTurns([]models.ChatTurn{userTurn})

		return req, "", nil
	}

	key := msg.Topic(session.DefaultKey)

	if reset, ok := msg["resetSession"].(bool); ok && reset {
		if err := n.sessions.Reset(key); err != nil {
			return nil, "", fmt.Errorf("failed to reset session %q: %w", key, err)
		}
	}

	if err := n.sessions.Append(key, userTurn); err != nil {
		return nil, "", fmt.Errorf("failed to record user turn: %w", err)
	}

	history, err := n.sessions.History(key)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load session %q: %w", key, err)
	}

	req.Contents = gemini.ContentsFromTurns(history)

	return req, key, nil
}

// stream consumes the fragment sequence, forwarding each text fragment
// as a partial message before emitting the final aggregate. Partials
// already emitted when a failure aborts the stream are not retracted.
func (n *Node) stream(ctx context.Context, client gemini.Client, model string, req *gemini.GenerateContentRequest, msg models.Message, rt protocol.Runtime) {
	var (
		full     strings.Builder
		usage    *models.Usage
		ratings  []models.SafetyRating
		version  string
		fragErr  error
	)

	err := client.StreamGenerateContent(ctx, model, req, func(fragment *gemini.GenerateContentResponse) error {
		if fragment.ModelVersion != "" {
			version = fragment.ModelVersion
		}

		if fragment.UsageMetadata != nil {
			usage = &models.Usage{
				PromptTokens:     fragment.UsageMetadata.PromptTokenCount,
				CompletionTokens: fragment.UsageMetadata.CandidatesTokenCount,
				TotalTokens:      fragment.UsageMetadata.TotalTokenCount,
			}
		}

		if len(fragment.Candidates) == 0 {
			fragErr = models.NewFlowError(models.ErrKindBlocked, "no_candidates",
				"stream fragment contained no candidates")

			return fragErr
		}

		candidate := fragment.Candidates[0]
		if len(candidate.SafetyRatings) > 0 {
			ratings = ratings[:0]
			for _, r := range candidate.SafetyRatings {
				ratings = append(ratings, models.SafetyRating{
					Category:    r.Category,
					Probability: r.Probability,
				})
			}
		}

		if candidate.FinishReason != "" && candidate.FinishReason != gemini.FinishReasonStop {
			fragErr = models.NewFlowError(models.ErrKindBlocked,
				strings.ToLower(candidate.FinishReason),
				"generation stopped: %s", candidate.FinishReason)

			return fragErr
		}

		if candidate.Content == nil {
			return nil
		}

		for _, part := range candidate.Content.Parts {
			if part.Text == "" {
				continue
			}

			full.WriteString(part.Text)
			n.router.Partial(rt, msg, part.Text)
		}

		return nil
	})
	if err != nil {
		if fragErr != nil && !errors.Is(err, fragErr) {
			err = fragErr
		}

		n.router.Failure(rt, msg, err)

		return
	}

	if full.Len() == 0 {
		n.router.Failure(rt, msg, models.NewFlowError(models.ErrKindEmptyResult, "empty_result",
			"stream yielded no text"))

		return
	}

	n.router.Success(rt, msg, full.String(), &models.Outcome{
		Text:          full.String(),
		Usage:         usage,
		SafetyRatings: ratings,
		ModelVersion:  version,
	})
}
