package protocol

// SlotSchema describes a configurable field that accepts either a plain
// template string or a {source, value} object, for use inside a node
// factory's Schema().
func SlotSchema(description string) map[string]any {
	return map[string]any{
		"description": description,
		"oneOf": []map[string]any{
			{"type": "string"},
			{
				"type": "object",
				"properties": map[string]any{
					"source": map[string]any{
						"type": "string",
						"enum": []string{"template", "msg", "flow", "global"},
					},
					"value": map[string]any{"type": "string"},
				},
				"required": []string{"source", "value"},
			},
		},
	}
}
