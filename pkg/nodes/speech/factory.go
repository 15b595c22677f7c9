package speech

import (
	"context"

	"github.com/calrock27/genflow/pkg/protocol"
)

// Factory creates speech-generation node instances.
type Factory struct{}

// NewFactory creates the factory.
func NewFactory() protocol.NodeFactory {
	return &Factory{}
}

// Create creates a new speech-generation node instance.
func (f *Factory) Create(ctx context.Context, id string, config map[string]any) (protocol.Node, error) {
	return New(id, config)
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return "gemini-speech"
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "Gemini Speech"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Synthesizes speech audio from text with one or more voices"
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
			"model": protocol.SlotSchema("Model identifier, e.g. gemini-2.5-flash-preview-tts"),
			"text":  protocol.SlotSchema("Text to speak. Defaults to msg.payload"),
			"voice": protocol.SlotSchema("Prebuilt voice name for single-voice synthesis"),
			"speakers": map[string]any{
				"type":        "object",
				"description": "Speaker name to prebuilt voice map for multi-speaker synthesis",
				"additionalProperties": map[string]any{
					"type": "string",
				},
			},
			"output": map[string]any{
				"type":        "string",
				"description": "Dotted message field to write the audio to",
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
