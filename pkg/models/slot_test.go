package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		config   map[string]any
		expected Slot
	}{
		{
			name:     "missing key yields zero slot",
			config:   map[string]any{},
			expected: Slot{},
		},
		{
			name:     "plain string becomes template slot",
			config:   map[string]any{"prompt": "hello {{.name}}"},
			expected: Slot{Source: SourceTemplate, Value: "hello {{.name}}"},
		},
		{
			name:     "object with message source",
			config:   map[string]any{"prompt": map[string]any{"source": "msg", "value": "question"}},
			expected: Slot{Source: SourceMessage, Value: "question"},
		},
		{
			name:     "object with flow source",
			config:   map[string]any{"prompt": map[string]any{"source": "flow", "value": "persona"}},
			expected: Slot{Source: SourceFlow, Value: "persona"},
		},
		{
			name:     "object with global source",
			config:   map[string]any{"prompt": map[string]any{"source": "global", "value": "persona"}},
			expected: Slot{Source: SourceGlobal, Value: "persona"},
		},
		{
			name:     "object without source defaults to template",
			config:   map[string]any{"prompt": map[string]any{"value": "static text"}},
			expected: Slot{Source: SourceTemplate, Value: "static text"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot, err := SlotFromConfig(tt.config, "prompt")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, slot)
		})
	}
}

func TestSlotFromConfigRejectsUnknownSource(t *testing.T) {
	_, err := SlotFromConfig(map[string]any{
		"prompt": map[string]any{"source": "cookie", "value": "x"},
	}, "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown value source")
}

func TestSlotFromConfigRejectsNonStringValue(t *testing.T) {
	_, err := SlotFromConfig(map[string]any{"prompt": 42}, "prompt")
	require.Error(t, err)
}

func TestAsFlowErrorCoercesUnknownErrors(t *testing.T) {
	fe := AsFlowError(assert.AnError)
	assert.Equal(t, ErrKindTransport, fe.Kind)

	original := NewFlowError(ErrKindValidation, "bad_count", "count out of range")
	assert.Same(t, original, AsFlowError(original))
}
