package normalize

import (
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calrock27/genflow/pkg/gemini"
	"github.com/calrock27/genflow/pkg/models"
)

func textResponse(text string) *gemini.GenerateContentResponse {
	return &gemini.GenerateContentResponse{
		Candidates: []gemini.Candidate{{
			Content:      &gemini.Content{Parts: []gemini.Part{{Text: text}}},
			FinishReason: gemini.FinishReasonStop,
		}},
	}
}

func TestResponseText(t *testing.T) {
	resp := textResponse("a story")
	resp.ModelVersion = "gemini-2.5-flash"
	resp.UsageMetadata = &gemini.UsageMetadata{
		PromptTokenCount:     12,
		CandidatesTokenCount: 100,
		TotalTokenCount:      112,
	}

	outcome, err := Response(resp, CapabilityText)
	require.NoError(t, err)

	assert.Equal(t, "a story", outcome.Text)
	assert.Equal(t, "gemini-2.5-flash", outcome.ModelVersion)
	require.NotNil(t, outcome.Usage)
	assert.Equal(t, 12, outcome.Usage.PromptTokens)
	assert.Equal(t, 100, outcome.Usage.CompletionTokens)
	assert.Equal(t, 112, outcome.Usage.TotalTokens)
}

func TestResponseZeroCandidatesIsBlocked(t *testing.T) {
	for _, resp := range []*gemini.GenerateContentResponse{nil, {}} {
		_, err := Response(resp, CapabilityText)
		require.Error(t, err)

		var fe *models.FlowError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, models.ErrKindBlocked, fe.Kind)
		assert.Equal(t, "no_candidates", fe.Code)
	}
}

func TestResponseNonStopFinishReasonIsBlocked(t *testing.T) {
	resp := &gemini.GenerateContentResponse{
		Candidates: []gemini.Candidate{{
			FinishReason: "SAFETY",
			SafetyRatings: []gemini.SafetyRating{
				{Category: "HARM_CATEGORY_HARASSMENT", Probability: "HIGH"},
			},
		}},
	}

	_, err := Response(resp, CapabilityText)
	require.Error(t, err)

	var fe *models.FlowError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, models.ErrKindBlocked, fe.Kind)
	assert.Equal(t, "safety", fe.Code)
	assert.Contains(t, fe.Message, "HARM_CATEGORY_HARASSMENT=HIGH")
}

func TestResponseEmptyResult(t *testing.T) {
	resp := &gemini.GenerateContentResponse{
		Candidates: []gemini.Candidate{{
			Content:      &gemini.Content{},
			FinishReason: gemini.FinishReasonStop,
		}},
	}

	_, err := Response(resp, CapabilityText)
	require.Error(t, err)

	var fe *models.FlowError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, models.ErrKindEmptyResult, fe.Kind)
}

func TestResponseImageCollectsAllBlobs(t *testing.T) {
	resp := &gemini.GenerateContentResponse{
		Candidates: []gemini.Candidate{{
			Content: &gemini.Content{Parts: []gemini.Part{
				{Text: "here are your images"},
				{InlineData: &gemini.Blob{
					MimeType: "image/png",
					Data:     base64.StdEncoding.EncodeToString([]byte("first")),
				}},
				{InlineData: &gemini.Blob{
					MimeType: "image/png",
					Data:     base64.StdEncoding.EncodeToString([]byte("second")),
				}},
			}},
			FinishReason: gemini.FinishReasonStop,
		}},
	}

	outcome, err := Response(resp, CapabilityImage)
	require.NoError(t, err)

	assert.Equal(t, "here are your images", outcome.Text)
	assert.Equal(t, "image/png", outcome.MimeType)
	require.Len(t, outcome.Media, 2)
	assert.Equal(t, []byte("first"), outcome.Media[0])
	assert.Equal(t, []byte("second"), outcome.Media[1])
}

func TestResponseSpeechRepackagesPCM(t *testing.T) {
	pcm := make([]byte, 3200)
	for i := range pcm {
		pcm[i] = byte(i % 251)
	}

	resp := &gemini.GenerateContentResponse{
		Candidates: []gemini.Candidate{{
			Content: &gemini.Content{Parts: []gemini.Part{
				{InlineData: &gemini.Blob{
					MimeType: "audio/L16;rate=16000",
					Data:     base64.StdEncoding.EncodeToString(pcm),
				}},
			}},
			FinishReason: gemini.FinishReasonStop,
		}},
	}

	outcome, err := Response(resp, CapabilitySpeech)
	require.NoError(t, err)

	assert.Equal(t, "audio/wav", outcome.MimeType)
	require.Len(t, outcome.Media, 1)

	wav := outcome.Media[0]
	require.Len(t, wav, 44+len(pcm))

	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(wav[24:28]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[22:24]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(wav[34:36]))
	assert.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(wav[40:44]))
	assert.Equal(t, pcm, wav[44:])
}

func TestResponseSpeechPassesThroughContainerAudio(t *testing.T) {
	data := []byte("already an mp3")

	resp := &gemini.GenerateContentResponse{
		Candidates: []gemini.Candidate{{
			Content: &gemini.Content{Parts: []gemini.Part{
				{InlineData: &gemini.Blob{
					MimeType: "audio/mpeg",
					Data:     base64.StdEncoding.EncodeToString(data),
				}},
			}},
			FinishReason: gemini.FinishReasonStop,
		}},
	}

	outcome, err := Response(resp, CapabilitySpeech)
	require.NoError(t, err)

	assert.Equal(t, "audio/mpeg", outcome.MimeType)
	assert.Equal(t, data, outcome.Media[0])
}

func TestIsLinearPCM(t *testing.T) {
	assert.True(t, IsLinearPCM("audio/L16;rate=24000"))
	assert.True(t, IsLinearPCM("audio/l16"))
	assert.False(t, IsLinearPCM("audio/wav"))
	assert.False(t, IsLinearPCM("audio/mpeg"))
}

func TestSampleRate(t *testing.T) {
	assert.Equal(t, 16000, SampleRate("audio/L16;rate=16000"))
	assert.Equal(t, 24000, SampleRate("audio/L16"))
	assert.Equal(t, 24000, SampleRate("audio/L16;rate=banana"))
	assert.Equal(t, 24000, SampleRate("audio/L16;codec=pcm;rate=24000"))
}
