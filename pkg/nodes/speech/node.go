// Package speech provides the speech-generation node: text in, playable
// audio out, with single-voice and multi-speaker modes.
package speech

import (
	"context"
	"sort"
	"strings"

	"github.com/calrock27/genflow/pkg/gemini"
	"github.com/calrock27/genflow/pkg/models"
	"github.com/calrock27/genflow/pkg/normalize"
	"github.com/calrock27/genflow/pkg/output"
	"github.com/calrock27/genflow/pkg/protocol"
	"github.com/calrock27/genflow/pkg/request"
	"github.com/calrock27/genflow/pkg/resolve"
)

const defaultVoice = "Kore"

// Config defines the speech-generation node configuration.
type Config struct {
	Credentials string
	Model       models.Slot
	Text        models.Slot
	Voice       models.Slot
	Speakers    map[string]string
	Output      string
	Metadata    bool
}

// Node implements the speech-generation capability.
type Node struct {
	id        string
	config    Config
	router    *output.Router
	newClient func(apiKey string) gemini.Client
}

// New creates a speech-generation node from raw configuration.
func New(id string, config map[string]any) (*Node, error) {
	cfg := Config{Output: models.FieldPayload}

	if creds, ok := config["credentials"].(string); ok {
		cfg.Credentials = creds
	}

	var err error

	if cfg.Model, err = models.SlotFromConfig(config, "model"); err != nil {
		return nil, err
	}

	if cfg.Text, err = models.SlotFromConfig(config, "text"); err != nil {
		return nil, err
	}

	if cfg.Text.IsZero() {
		cfg.Text = models.Slot{Source: models.SourceMessage, Value: models.FieldPayload}
	}

	if cfg.Voice, err = models.SlotFromConfig(config, "voice"); err != nil {
		return nil, err
	}

	if speakers, ok := config["speakers"].(map[string]any); ok {
		cfg.Speakers = make(map[string]string, len(speakers))

		for speaker, v := range speakers {
			voice, ok := v.(string)
			if !ok || voice == "" {
				return nil, models.NewFlowError(models.ErrKindConfiguration, "bad_speaker",
					"speaker %q needs a voice name", speaker)
			}

			cfg.Speakers[speaker] = voice
		}
	}

	if out, ok := config["output"].(string); ok && out != "" {
		cfg.Output = out
	}

	if metadata, ok := config["metadata"].(bool); ok {
		cfg.Metadata = metadata
	}

	return &Node{
		id:     id,
		config: cfg,
		router: output.NewRouter(cfg.Output, cfg.Metadata),
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
	return "gemini-speech"
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

	req, err := n.buildRequest(rc)
	if err != nil {
		n.router.Failure(rt, msg, err)

		return nil
	}

	n.router.Progress(rt, "synthesizing speech")

	resp, err := n.newClient(apiKey).GenerateContent(ctx, model, req)
	if err != nil {
		n.router.Failure(rt, msg, err)

		return nil
	}

	outcome, err := normalize.Response(resp, normalize.CapabilitySpeech)
	if err != nil {
		n.router.Failure(rt, msg, err)

		return nil
	}

	n.router.Success(rt, msg, outcome.Media[0], outcome)

	return nil
}

// buildRequest assembles a speech request: audio response modality plus
// either a single voice or the configured speaker-to-voice map.
func (n *Node) buildRequest(rc resolve.Context) (*gemini.GenerateContentRequest, error) {
	text, err := resolve.String(n.config.Text, rc, models.FieldPayload)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return nil, models.NewFlowError(models.ErrKindConfiguration, "missing_text",
			"text is empty after resolution")
	}

	speechConfig := &gemini.SpeechConfig{}

	if len(n.config.Speakers) > 0 {
		speakers := make([]string, 0, len(n.config.Speakers))
		for speaker := range n.config.Speakers {
			speakers = append(speakers, speaker)
		}

		sort.Strings(speakers)

		voiceConfigs := make([]gemini.SpeakerVoiceConfig, 0, len(speakers))
		for _, speaker := range speakers {
			voiceConfigs = append(voiceConfigs, gemini.SpeakerVoiceConfig{
				Speaker: speaker,
				VoiceConfig: gemini.VoiceConfig{
					PrebuiltVoiceConfig: &gemini.PrebuiltVoiceConfig{
						VoiceName: n.config.Speakers[speaker],
					},
				},
			})
		}

		speechConfig.MultiSpeakerVoiceConfig = &gemini.MultiSpeakerVoiceConfig{
			SpeakerVoiceConfigs: voiceConfigs,
		}
	} else {
		voice, err := resolve.String(n.config.Voice, rc, "")
		if err != nil {
			return nil, err
		}

		if voice == "" {
			voice = defaultVoice
		}

		speechConfig.VoiceConfig = &gemini.VoiceConfig{
			PrebuiltVoiceConfig: &gemini.PrebuiltVoiceConfig{VoiceName: voice},
		}
	}

	return &gemini.GenerateContentRequest{
		Contents: []gemini.Content{{
			Role:  models.RoleUser,
			Parts: []gemini.Part{{Text: text}},
		}},
		GenerationConfig: &gemini.GenerationConfig{
			ResponseModalities: []string{gemini.ModalityAudio},
			SpeechConfig:       speechConfig,
		},
	}, nil
}
