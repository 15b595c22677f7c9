// Package normalize turns raw generative API responses into node outcomes.
package normalize

import (
	"encoding/base64"
	"strings"

	"github.com/calrock27/genflow/pkg/gemini"
	"github.com/calrock27/genflow/pkg/models"
)

// Capability selects the payload-extraction rule.
type Capability string

const (
	CapabilityText   Capability = "text"
	CapabilityImage  Capability = "image"
	CapabilityAudio  Capability = "audio"
	CapabilitySpeech Capability = "speech"
)

// Response inspects the response, detects block conditions, and extracts
// the primary payload for the given capability.
func Response(resp *gemini.GenerateContentResponse, capability Capability) (*models.Outcome, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, models.NewFlowError(models.ErrKindBlocked, "no_candidates",
			"response contained no candidates")
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason != "" && candidate.FinishReason != gemini.FinishReasonStop {
		return nil, blockedError(candidate)
	}

	outcome := &models.Outcome{
		SafetyRatings: safetyRatings(candidate.SafetyRatings),
		ModelVersion:  resp.ModelVersion,
	}

	if resp.UsageMetadata != nil {
		outcome.Usage = &models.Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		}
	}

	if candidate.Content != nil {
		if err := extract(outcome, candidate.Content.Parts, capability); err != nil {
			return nil, err
		}
	}

	if outcome.Text == "" && len(outcome.Media) == 0 {
		return nil, models.NewFlowError(models.ErrKindEmptyResult, "empty_result",
			"response contained no usable payload")
	}

	return outcome, nil
}

func extract(outcome *models.Outcome, parts []gemini.Part, capability Capability) error {
	switch capability {
	case CapabilityText, CapabilityAudio:
		// First text part wins.
		for _, part := range parts {
			if part.Text != "" {
				outcome.Text = part.Text

				break
			}
		}
	case CapabilityImage:
		// All inline blobs, in response order, plus any accompanying text.
		for _, part := range parts {
			if part.Text != "" && outcome.Text == "" {
				outcome.Text = part.Text
			}

			if part.InlineData == nil {
				continue
			}

			data, err := decodeBlob(part.InlineData)
			if err != nil {
				return err
			}

			outcome.Media = append(outcome.Media, data)

			if outcome.MimeType == "" {
				outcome.MimeType = part.InlineData.MimeType
			}
		}
	case CapabilitySpeech:
		// First audio-typed inline part; raw PCM is repackaged as WAV.
		for _, part := range parts {
			if part.InlineData == nil || !strings.HasPrefix(part.InlineData.MimeType, "audio/") {
				continue
			}

			data, err := decodeBlob(part.InlineData)
			if err != nil {
				return err
			}

			mime := part.InlineData.MimeType
			if IsLinearPCM(mime) {
				data = PCMToWAV(data, SampleRate(mime))
				mime = "audio/wav"
			}

			outcome.Media = append(outcome.Media, data)
			outcome.MimeType = mime

			break
		}
	}

	return nil
}

func decodeBlob(blob *gemini.Blob) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(blob.Data)
	if err != nil {
		return nil, models.WrapFlowError(models.ErrKindEmptyResult, "bad_inline_data", err,
			"failed to decode inline %s payload", blob.MimeType)
	}

	return data, nil
}

func blockedError(candidate gemini.Candidate) *models.FlowError {
	detail := "generation stopped: " + candidate.FinishReason

	if len(candidate.SafetyRatings) > 0 {
		flagged := make([]string, 0, len(candidate.SafetyRatings))
		for _, rating := range candidate.SafetyRatings {
			flagged = append(flagged, rating.Category+"="+rating.Probability)
		}

		detail += " (" + strings.Join(flagged, ", ") + ")"
	}

	return models.NewFlowError(models.ErrKindBlocked, strings.ToLower(candidate.FinishReason), "%s", detail)
}

func safetyRatings(ratings []gemini.SafetyRating) []models.SafetyRating {
	if len(ratings) == 0 {
		return nil
	}

	out := make([]models.SafetyRating, 0, len(ratings))
	for _, r := range ratings {
		out = append(out, models.SafetyRating{Category: r.Category, Probability: r.Probability})
	}

	return out
}
