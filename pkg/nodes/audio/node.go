// Package audio provides the audio-understanding node: audio media in,
// text analysis out.
package audio

import (
	"context"
	"strings"

	"github.com/calrock27/genflow/pkg/gemini"
	"github.com/calrock27/genflow/pkg/media"
	"github.com/calrock27/genflow/pkg/models"
	"github.com/calrock27/genflow/pkg/normalize"
	"github.com/calrock27/genflow/pkg/output"
	"github.com/calrock27/genflow/pkg/protocol"
	"github.com/calrock27/genflow/pkg/request"
	"github.com/calrock27/genflow/pkg/resolve"
)

const (
	defaultAudioMime = "audio/mpeg"
	defaultPrompt    = "Describe this audio."
)

// Config defines the audio-understanding node configuration.
type Config struct {
	Credentials string
	Model       models.Slot
	Audio       models.Slot
	Prompt      models.Slot
	Params      request.ParamSlots
	Output      string
	Metadata    bool
}

// Node implements the audio-understanding capability.
type Node struct {
	id        string
	config    Config
	router    *output.Router
	mediaOpts media.Options
	newClient func(apiKey string) gemini.Client
}

// New creates an audio-understanding node from raw configuration.
func New(id string, config map[string]any) (*Node, error) {
	cfg := Config{Output: models.FieldPayload}

	if creds, ok := config["credentials"].(string); ok {
		cfg.Credentials = creds
	}

	var err error

	if cfg.Model, err = models.SlotFromConfig(config, "model"); err != nil {
		return nil, err
	}

	if cfg.Audio, err = models.SlotFromConfig(config, "audio"); err != nil {
		return nil, err
	}

	if cfg.Audio.IsZero() {
		cfg.Audio = models.Slot{Source: models.SourceMessage, Value: models.FieldPayload}
	}

	if cfg.Prompt, err = models.SlotFromConfig(config, "prompt"); err != nil {
		return nil, err
	}

	if cfg.Params, err = request.ParamSlotsFromConfig(config); err != nil {
		return nil, err
	}

	if out, ok := config["output"].(string); ok && out != "" {
		cfg.Output = out
	}

	if metadata, ok := config["metadata"].(bool); ok {
		cfg.Metadata = metadata
	}

	return &Node{
		id:        id,
		config:    cfg,
		router:    output.NewRouter(cfg.Output, cfg.Metadata),
		mediaOpts: media.Options{DefaultMime: defaultAudioMime},
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
	return "gemini-audio"
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

	req, err := n.buildRequest(ctx, rc)
	if err != nil {
		n.router.Failure(rt, msg, err)

		return nil
	}

	n.router.Progress(rt, "analyzing audio")

	resp, err := n.newClient(apiKey).GenerateContent(ctx, model, req)
	if err != nil {
		n.router.Failure(rt, msg, err)

		return nil
	}

	outcome, err := normalize.Response(resp, normalize.CapabilityAudio)
	if err != nil {
		n.router.Failure(rt, msg, err)

		return nil
	}

	n.router.Success(rt, msg, outcome.Text, outcome)

	return nil
}

// buildRequest acquires the audio media and assembles the part sequence
// with the audio first and the instruction text last.
func (n *Node) buildRequest(ctx context.Context, rc resolve.Context) (*gemini.GenerateContentRequest, error) {
	audioValue, err := resolve.Value(n.config.Audio, rc)
	if err != nil {
		return nil, err
	}

	if audioValue == nil {
		audioValue = rc.Message[models.FieldPayload]
	}

	if audioValue == nil {
		return nil, models.NewFlowError(models.ErrKindConfiguration, "missing_audio",
			"audio input resolved to nothing")
	}

	audioPart, err := media.Acquire(ctx, audioValue, n.mediaOpts)
	if err != nil {
		return nil, err
	}

	prompt, err := resolve.String(n.config.Prompt, rc, "")
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(prompt) == "" {
		prompt = defaultPrompt
	}

	req := &gemini.GenerateContentRequest{
		Contents: []gemini.Content{{
			Role:  models.RoleUser,
			Parts: gemini.PartsFrom([]models.ContentPart{audioPart, models.TextPart(prompt)}),
		}},
	}

	if cfg, err := request.GenerationConfig(n.config.Params, rc); err != nil {
		return nil, err
	} else if cfg != nil {
		req.GenerationConfig = cfg
	}

	return req, nil
}
