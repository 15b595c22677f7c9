// Package gemini speaks the generative-language REST protocol.
package gemini

import (
	"encoding/base64"

	"github.com/calrock27/genflow/pkg/models"
)

// Finish reason sentinel for a normally completed candidate. Anything
// else present on the first candidate signals a blocked response.
const FinishReasonStop = "STOP"

// Response modalities.
const (
	ModalityText  = "TEXT"
	ModalityImage = "IMAGE"
	ModalityAudio = "AUDIO"
)

// Blob is inline media: base64-encoded bytes plus their MIME type.
type Blob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Part is one unit of content inside a Content block.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// Content is an ordered part sequence with an optional role.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// ImageConfig selects image-generation options.
type ImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

// PrebuiltVoiceConfig names a stock voice.
type PrebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

// VoiceConfig wraps a voice selection.
type VoiceConfig struct {
	PrebuiltVoiceConfig *PrebuiltVoiceConfig `json:"prebuiltVoiceConfig,omitempty"`
}

// SpeakerVoiceConfig maps one transcript speaker to a voice.
type SpeakerVoiceConfig struct {
	Speaker     string      `json:"speaker"`
	VoiceConfig VoiceConfig `json:"voiceConfig"`
}

// MultiSpeakerVoiceConfig configures multi-speaker speech generation.
type MultiSpeakerVoiceConfig struct {
	SpeakerVoiceConfigs []SpeakerVoiceConfig `json:"speakerVoiceConfigs"`
}

// SpeechConfig selects speech-generation voices.
type SpeechConfig struct {
	VoiceConfig             *VoiceConfig             `json:"voiceConfig,omitempty"`
	MultiSpeakerVoiceConfig *MultiSpeakerVoiceConfig `json:"multiSpeakerVoiceConfig,omitempty"`
}

// GenerationConfig carries optional generation parameters. Empty configs
// must be omitted from the request entirely.
type GenerationConfig struct {
	Temperature        *float64      `json:"temperature,omitempty"`
	TopP               *float64      `json:"topP,omitempty"`
	TopK               *int          `json:"topK,omitempty"`
	MaxOutputTokens    *int          `json:"maxOutputTokens,omitempty"`
	CandidateCount     *int          `json:"candidateCount,omitempty"`
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	ImageConfig        *ImageConfig  `json:"imageConfig,omitempty"`
	SpeechConfig       *SpeechConfig `json:"speechConfig,omitempty"`
}

// IsZero reports whether no parameter is set.
func (g *GenerationConfig) IsZero() bool {
	return g == nil || (g.Temperature == nil && g.TopP == nil && g.TopK == nil &&
		g.MaxOutputTokens == nil && g.CandidateCount == nil &&
		len(g.ResponseModalities) == 0 && g.ImageConfig == nil && g.SpeechConfig == nil)
}

// SafetySetting overrides the blocking threshold for one harm category.
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// GoogleSearch enables search grounding when attached as a tool.
type GoogleSearch struct{}

// Tool is an optional capability block attached to a request.
type Tool struct {
	GoogleSearch *GoogleSearch `json:"googleSearch,omitempty"`
}

// GenerateContentRequest is the outbound request document.
type GenerateContentRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
	SafetySettings    []SafetySetting   `json:"safetySettings,omitempty"`
	Tools             []Tool            `json:"tools,omitempty"`
}

// SafetyRating is one category/probability pair on a candidate.
type SafetyRating struct {
	Category    string `json:"category"`
	Probability string `json:"probability"`
}

// Candidate is one generated alternative.
type Candidate struct {
	Content       *Content       `json:"content,omitempty"`
	FinishReason  string         `json:"finishReason,omitempty"`
	SafetyRatings []SafetyRating `json:"safetyRatings,omitempty"`
}

// UsageMetadata reports token accounting.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// GenerateContentResponse is the inbound response document. Streaming
// responses are a sequence of documents with this same shape.
type GenerateContentResponse struct {
	Candidates    []Candidate    `json:"candidates"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
	ModelVersion  string         `json:"modelVersion,omitempty"`
}

// PartsFrom converts domain content parts to wire parts, base64-encoding
// inline media. Declared order is preserved.
func PartsFrom(parts []models.ContentPart) []Part {
	out := make([]Part, 0, len(parts))

	for _, p := range parts {
		switch p.Kind {
		case models.PartKindText:
			out = append(out, Part{Text: p.Text})
		case models.PartKindMedia:
			out = append(out, Part{InlineData: &Blob{
				MimeType: p.MimeType,
				Data:     base64.StdEncoding.EncodeToString(p.Data),
			}})
		}
	}

	return out
}

// ContentsFromTurns converts accumulated chat history to wire contents.
func ContentsFromTurns(turns []models.ChatTurn) []Content {
	out := make([]Content, 0, len(turns))
	for _, turn := range turns {
		out = append(out, Content{Role: turn.Role, Parts: PartsFrom(turn.Parts)})
	}

	return out
}
