package audio

import (
	"context"

	"github.com/calrock27/genflow/pkg/protocol"
)

// Factory creates audio-understanding node instances.
type Factory struct{}

// NewFactory creates the factory.
func NewFactory() protocol.NodeFactory {
	return &Factory{}
}

// Create creates a new audio-understanding node instance.
func (f *Factory) Create(ctx context.Context, id string, config map[string]any) (protocol.Node, error) {
	return New(id, config)
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return "gemini-audio"
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "Gemini Audio"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Analyzes audio input and answers a textual instruction about it"
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
			"audio": protocol.SlotSchema(
				"Audio as path, URL, data URL, base64, or bytes. Defaults to msg.payload"),
			"prompt":          protocol.SlotSchema("Instruction about the audio"),
			"temperature":     protocol.SlotSchema("Sampling temperature (0-2)"),
			"topP":            protocol.SlotSchema("Nucleus sampling probability (0-1)"),
			"topK":            protocol.SlotSchema("Top-k sampling cutoff"),
			"maxOutputTokens": protocol.SlotSchema("Output token cap"),
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
