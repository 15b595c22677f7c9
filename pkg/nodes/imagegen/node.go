// Package imagegen provides the image-generation node, covering both
// prompt-only generation and edit operations over supplied input images.
package imagegen

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

const defaultImageMime = "image/png"

// aspectRatios is the closed set the remote service accepts.
var aspectRatios = map[string]bool{
	"1:1":  true,
	"3:4":  true,
	"4:3":  true,
	"9:16": true,
	"16:9": true,
}

const (
	minImageCount = 1
	maxImageCount = 8
)

// Config defines the image-generation node configuration.
type Config struct {
	Credentials string
	Model       models.Slot
	Prompt      models.Slot
	Images      []models.Slot
	Count       models.Slot
	AspectRatio models.Slot
	Output      string
	Metadata    bool
}

// Node implements the image-generation capability.
type Node struct {
	id        string
	config    Config
	router    *output.Router
	mediaOpts media.Options
	newClient func(apiKey string) gemini.Client
}

// New creates an image-generation node from raw configuration.
func New(id string, config map[string]any) (*Node, error) {
	cfg := Config{Output: models.FieldPayload}

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

	if cfg.Images, err = imageSlots(config); err != nil {
		return nil, err
	}

	if cfg.Count, err = models.SlotFromConfig(config, "count"); err != nil {
		return nil, err
	}

	if cfg.AspectRatio, err = models.SlotFromConfig(config, "aspectRatio"); err != nil {
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
		mediaOpts: media.Options{DefaultMime: defaultImageMime},
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
	return "gemini-image"
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

	n.router.Progress(rt, "generating image")

	resp, err := n.newClient(apiKey).GenerateContent(ctx, model, req)
	if err != nil {
		n.router.Failure(rt, msg, err)

		return nil
	}

	outcome, err := normalize.Response(resp, normalize.CapabilityImage)
	if err != nil {
		n.router.Failure(rt, msg, err)

		return nil
	}

	var payload any
	if len(outcome.Media) == 1 {
		payload = outcome.Media[0]
	} else {
		payload = outcome.Media
	}

	n.router.Success(rt, msg, payload, outcome)

	return nil
}

// buildRequest validates the image parameters and assembles the ordered
// part sequence: input images first, the prompt text last. Validation
// failures happen before any network call.
func (n *Node) buildRequest(ctx context.Context, rc resolve.Context) (*gemini.GenerateContentRequest, error) {
	prompt, err := resolve.String(n.config.Prompt, rc, models.FieldPayload)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(prompt) == "" {
		return nil, models.NewFlowError(models.ErrKindConfiguration, "missing_prompt",
			"prompt is empty after resolution")
	}

	genConfig := &gemini.GenerationConfig{
		ResponseModalities: []string{gemini.ModalityText, gemini.ModalityImage},
	}

	if count, ok, err := resolve.Int(n.config.Count, rc); err != nil {
		return nil, models.WrapFlowError(models.ErrKindValidation, "bad_count", err,
			"image count must be an integer")
	} else if ok {
		if count < minImageCount || count > maxImageCount {
			return nil, models.NewFlowError(models.ErrKindValidation, "bad_count",
				"image count must be between %d and %d, got %d", minImageCount, maxImageCount, count)
		}

		genConfig.CandidateCount = &count
	}

	ratio, err := resolve.String(n.config.AspectRatio, rc, "")
	if err != nil {
		return nil, err
	}

	if ratio != "" {
		if !aspectRatios[ratio] {
			return nil, models.NewFlowError(models.ErrKindValidation, "bad_aspect_ratio",
				"unsupported aspect ratio %q", ratio)
		}

		genConfig.ImageConfig = &gemini.ImageConfig{AspectRatio: ratio}
	}

	parts, err := n.inputParts(ctx, rc)
	if err != nil {
		return nil, err
	}

	parts = append(parts, models.TextPart(prompt))

	return &gemini.GenerateContentRequest{
		Contents: []gemini.Content{{
			Role:  models.RoleUser,
			Parts: gemini.PartsFrom(parts),
		}},
		GenerationConfig: genConfig,
	}, nil
}

// inputParts resolves and acquires the declared input images, keeping
// declared order regardless of fetch completion order.
func (n *Node) inputParts(ctx context.Context, rc resolve.Context) ([]models.ContentPart, error) {
	if len(n.config.Images) == 0 {
		return nil, nil
	}

	values := make([]any, 0, len(n.config.Images))

	for _, slot := range n.config.Images {
		v, err := resolve.Value(slot, rc)
		if err != nil {
			return nil, err
		}

		if v == nil {
			return nil, models.NewFlowError(models.ErrKindMedia, "missing_image",
				"image input %s resolved to nothing", resolve.Describe(slot))
		}

		values = append(values, v)
	}

	return media.AcquireAll(ctx, values, n.mediaOpts)
}

func imageSlots(config map[string]any) ([]models.Slot, error) {
	raw, ok := config["images"].([]any)
	if !ok {
		// A single image may be configured under the singular key.
		single, err := models.SlotFromConfig(config, "image")
		if err != nil {
			return nil, err
		}

		if single.IsZero() {
			return nil, nil
		}

		return []models.Slot{single}, nil
	}

	slots := make([]models.Slot, 0, len(raw))

	for _, entry := range raw {
		slot, err := models.SlotFromConfig(map[string]any{"image": entry}, "image")
		if err != nil {
			return nil, err
		}

		if slot.IsZero() {
			continue
		}

		slots = append(slots, slot)
	}

	return slots, nil
}
