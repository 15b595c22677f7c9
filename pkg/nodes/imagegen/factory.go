package imagegen

import (
	"context"

	"github.com/calrock27/genflow/pkg/protocol"
)

// Factory creates image-generation node instances.
type Factory struct{}

// NewFactory creates the factory.
func NewFactory() protocol.NodeFactory {
	return &Factory{}
}

// Create creates a new image-generation node instance.
func (f *Factory) Create(ctx context.Context, id string, config map[string]any) (protocol.Node, error) {
	return New(id, config)
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return "gemini-image"
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "Gemini Image"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Generates or edits images from a prompt and optional input images"
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
			"model":  protocol.SlotSchema("Model identifier, e.g. gemini-2.5-flash-image"),
			"prompt": protocol.SlotSchema("Prompt text. Defaults to msg.payload when unset"),
			"image":  protocol.SlotSchema("Single input image for edit operations"),
			"images": map[string]any{
				"type":        "array",
				"description": "Input images for edit operations, in declared order",
				"items":       protocol.SlotSchema("Image as path, URL, data URL, base64, or bytes"),
			},
			"count":       protocol.SlotSchema("Number of images to generate (1-8)"),
			"aspectRatio": protocol.SlotSchema("One of 1:1, 3:4, 4:3, 9:16, 16:9"),
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
