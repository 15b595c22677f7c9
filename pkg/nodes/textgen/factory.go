package textgen

import (
	"context"

	"github.com/calrock27/genflow/pkg/protocol"
	"github.com/calrock27/genflow/pkg/session"
)

// Factory creates text-generation node instances.
type Factory struct {
	sessions session.Store
}

// NewFactory creates the factory. The session store is shared by every
// node instance the factory creates.
func NewFactory(sessions session.Store) protocol.NodeFactory {
	return &Factory{sessions: sessions}
}

// Create creates a new text-generation node instance.
func (f *Factory) Create(ctx context.Context, id string, config map[string]any) (protocol.Node, error) {
	return New(id, config, f.sessions)
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return "gemini-text"
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "Gemini Text"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Generates text from a prompt, with chat and streaming modes"
}

// Schema returns the JSON schema for node configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"credentials": map[string]any{
				"type":        "string",
				"description": "Credential identifier resolved by the host",
			},
			"model": protocol.SlotSchema("Model identifier, e.g. gemini-2.5-flash"),
			"prompt": protocol.SlotSchema(
				"Prompt text. Defaults to msg.payload when unset"),
			"system": protocol.SlotSchema("Optional system instruction"),
			"mode": map[string]any{
				"type":        "string",
				"description": "Generation mode",
				"default":     ModeSingle,
				"enum":        []string{ModeSingle, ModeChat, ModeStream},
			},
			"grounding": map[string]any{
				"type":        "boolean",
				"description": "Augment answers with live web search",
				"default":     false,
			},
			"temperature":     protocol.SlotSchema("Sampling temperature (0-2)"),
			"topP":            protocol.SlotSchema("Nucleus sampling probability (0-1)"),
			"topK":            protocol.SlotSchema("Top-k sampling cutoff"),
			"maxOutputTokens": protocol.SlotSchema("Output token cap"),
			"safety": map[string]any{
				"type":        "object",
				"description": "Harm category to blocking threshold overrides",
			},
			"output": map[string]any{
				"type":        "string",
				"description": "Dotted message field to write the result to",
				"default":     "payload",
			},
			"metadata": map[string]any{
				"type":        "boolean",
				"description": "Merge model/usage metadata into the outgoing message",
				"default":     false,
			},
		},
		"required": []string{"credentials", "model"},
	}
}
