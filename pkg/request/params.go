// Package request holds the field-resolution policy shared by every
// capability's request assembly.
package request

import (
	"github.com/calrock27/genflow/pkg/gemini"
	"github.com/calrock27/genflow/pkg/models"
	"github.com/calrock27/genflow/pkg/protocol"
	"github.com/calrock27/genflow/pkg/resolve"
)

// ParamSlots are the generation-parameter slots a node may configure.
// Each one is optional; out-of-range values pass through to the remote
// API uncorrected unless a capability validates them explicitly.
type ParamSlots struct {
	Temperature     models.Slot
	TopP            models.Slot
	TopK            models.Slot
	MaxOutputTokens models.Slot
}

// ParamSlotsFromConfig parses the four standard parameter slots.
func ParamSlotsFromConfig(config map[string]any) (ParamSlots, error) {
	var (
		slots ParamSlots
		err   error
	)

	if slots.Temperature, err = models.SlotFromConfig(config, "temperature"); err != nil {
		return slots, err
	}

	if slots.TopP, err = models.SlotFromConfig(config, "topP"); err != nil {
		return slots, err
	}

	if slots.TopK, err = models.SlotFromConfig(config, "topK"); err != nil {
		return slots, err
	}

	slots.MaxOutputTokens, err = models.SlotFromConfig(config, "maxOutputTokens")

	return slots, err
}

// GenerationConfig resolves the parameter slots into a wire config.
// Returns nil when no parameter resolved, so empty configs are omitted
// from the serialized request entirely.
func GenerationConfig(slots ParamSlots, rc resolve.Context) (*gemini.GenerationConfig, error) {
	cfg := &gemini.GenerationConfig{}

	if v, ok, err := resolve.Float(slots.Temperature, rc); err != nil {
		return nil, err
	} else if ok {
		cfg.Temperature = &v
	}

	if v, ok, err := resolve.Float(slots.TopP, rc); err != nil {
		return nil, err
	} else if ok {
		cfg.TopP = &v
	}

	if v, ok, err := resolve.Int(slots.TopK, rc); err != nil {
		return nil, err
	} else if ok {
		cfg.TopK = &v
	}

	if v, ok, err := resolve.Int(slots.MaxOutputTokens, rc); err != nil {
		return nil, err
	} else if ok {
		cfg.MaxOutputTokens = &v
	}

	if cfg.IsZero() {
		return nil, nil
	}

	return cfg, nil
}

// SafetySettings converts a category→threshold config map into wire
// settings, keeping only entries that override the service default.
func SafetySettings(config map[string]any) []gemini.SafetySetting {
	raw, ok := config["safety"].(map[string]any)
	if !ok || len(raw) == 0 {
		return nil
	}

	var out []gemini.SafetySetting

	for category, v := range raw {
		threshold, ok := v.(string)
		if !ok || threshold == "" || threshold == "HARM_BLOCK_THRESHOLD_UNSPECIFIED" {
			continue
		}

		out = append(out, gemini.SafetySetting{Category: category, Threshold: threshold})
	}

	if len(out) == 0 {
		return nil
	}

	return out
}

// APIKey resolves the node's configured credential. A missing or empty
// key is a configuration error; no network call may be attempted after it.
func APIKey(creds protocol.Credentials, credentialID string) (string, error) {
	if credentialID == "" {
		return "", models.NewFlowError(models.ErrKindConfiguration, "missing_credentials",
			"no credentials configured")
	}

	key, err := creds.APIKey(credentialID)
	if err != nil {
		return "", models.WrapFlowError(models.ErrKindConfiguration, "missing_credentials", err,
			"failed to resolve credential %q", credentialID)
	}

	if key == "" {
		return "", models.NewFlowError(models.ErrKindConfiguration, "missing_credentials",
			"credential %q resolved to an empty API key", credentialID)
	}

	return key, nil
}

// Model resolves the model slot; a missing model is a configuration error.
func Model(slot models.Slot, rc resolve.Context) (string, error) {
	model, err := resolve.String(slot, rc, "")
	if err != nil {
		return "", err
	}

	if model == "" {
		return "", models.NewFlowError(models.ErrKindConfiguration, "missing_model",
			"no model configured")
	}

	return model, nil
}
