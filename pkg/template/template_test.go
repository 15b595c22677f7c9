package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calrock27/genflow/pkg/models"
)

func TestRenderMessage(t *testing.T) {
	msg := models.Message{
		"payload": "draw a cat",
		"topic":   "art",
		"user":    map[string]any{"name": "ada"},
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "literal text passes through",
			input:    "a plain prompt",
			expected: "a plain prompt",
		},
		{
			name:     "top level field",
			input:    "please {{.payload}}",
			expected: "please draw a cat",
		},
		{
			name:     "msg prefixed field",
			input:    "topic is {{.msg.topic}}",
			expected: "topic is art",
		},
		{
			name:     "nested field",
			input:    "hello {{.user.name}}",
			expected: "hello ada",
		},
		{
			name:     "missing field renders empty",
			input:    "x{{.missing}}y",
			expected: "xy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := RenderMessage(tt.input, msg)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestRenderMessageEnv(t *testing.T) {
	t.Setenv("GENFLOW_TEST_REGION", "eu-west")

	out, err := RenderMessage("region={{.env.GENFLOW_TEST_REGION}}", models.Message{})
	require.NoError(t, err)
	assert.Equal(t, "region=eu-west", out)
}

func TestRenderParseFailure(t *testing.T) {
	_, err := RenderMessage("{{.unclosed", models.Message{})
	require.Error(t, err)

	var fe *models.FlowError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, models.ErrKindTemplate, fe.Kind)
	assert.Equal(t, "template_parse", fe.Code)
}
