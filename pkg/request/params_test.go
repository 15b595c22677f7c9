package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calrock27/genflow/pkg/models"
	"github.com/calrock27/genflow/pkg/resolve"
	"github.com/calrock27/genflow/pkg/testutil"
)

func TestGenerationConfigOmittedWhenEmpty(t *testing.T) {
	slots, err := ParamSlotsFromConfig(map[string]any{})
	require.NoError(t, err)

	cfg, err := GenerationConfig(slots, resolve.Context{Message: models.Message{}})
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestGenerationConfigResolvesSlots(t *testing.T) {
	slots, err := ParamSlotsFromConfig(map[string]any{
		"temperature":     "0.7",
		"maxOutputTokens": map[string]any{"source": "msg", "value": "cap"},
	})
	require.NoError(t, err)

	rc := resolve.Context{Message: models.Message{"cap": float64(512)}}

	cfg, err := GenerationConfig(slots, rc)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.7, *cfg.Temperature, 0.0001)
	require.NotNil(t, cfg.MaxOutputTokens)
	assert.Equal(t, 512, *cfg.MaxOutputTokens)
	assert.Nil(t, cfg.TopP)
	assert.Nil(t, cfg.TopK)
}

func TestGenerationConfigRejectsNonNumeric(t *testing.T) {
	slots, err := ParamSlotsFromConfig(map[string]any{"temperature": "warm"})
	require.NoError(t, err)

	_, err = GenerationConfig(slots, resolve.Context{Message: models.Message{}})
	require.Error(t, err)

	var fe *models.FlowError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, models.ErrKindValidation, fe.Kind)
}

func TestSafetySettingsFiltersDefaults(t *testing.T) {
	settings := SafetySettings(map[string]any{
		"safety": map[string]any{
			"HARM_CATEGORY_HARASSMENT":  "BLOCK_LOW_AND_ABOVE",
			"HARM_CATEGORY_HATE_SPEECH": "HARM_BLOCK_THRESHOLD_UNSPECIFIED",
			"HARM_CATEGORY_DANGEROUS":   "",
		},
	})

	require.Len(t, settings, 1)
	assert.Equal(t, "HARM_CATEGORY_HARASSMENT", settings[0].Category)
	assert.Equal(t, "BLOCK_LOW_AND_ABOVE", settings[0].Threshold)
}

func TestSafetySettingsAbsent(t *testing.T) {
	assert.Nil(t, SafetySettings(map[string]any{}))
	assert.Nil(t, SafetySettings(map[string]any{"safety": map[string]any{}}))
}

func TestAPIKeyResolution(t *testing.T) {
	rt := testutil.NewCaptureRuntime(map[string]string{"main": "sk-123"})

	key, err := APIKey(rt.Credentials(), "main")
	require.NoError(t, err)
	assert.Equal(t, "sk-123", key)
}

func TestAPIKeyMissingConfiguration(t *testing.T) {
	rt := testutil.NewCaptureRuntime(map[string]string{"main": "sk-123"})

	tests := []struct {
		name         string
		credentialID string
	}{
		{"no credential configured", ""},
		{"unknown credential", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := APIKey(rt.Credentials(), tt.credentialID)
			require.Error(t, err)

			var fe *models.FlowError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, models.ErrKindConfiguration, fe.Kind)
		})
	}
}

func TestModelRequired(t *testing.T) {
	rc := resolve.Context{Message: models.Message{}}

	_, err := Model(models.Slot{}, rc)
	require.Error(t, err)

	model, err := Model(models.Slot{Source: models.SourceTemplate, Value: "gemini-2.5-flash"}, rc)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", model)
}
