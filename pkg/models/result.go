package models

import "time"

// Usage reports token accounting returned by the remote service.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// SafetyRating is one category/probability pair attached to a candidate.
type SafetyRating struct {
	Category    string `json:"category"`
	Probability string `json:"probability"`
}

// Outcome is the normalized result of a successful remote exchange. At
// most one of Text and Media carries the primary payload, depending on
// the capability that produced it.
type Outcome struct {
	Text          string
	Media         [][]byte
	MimeType      string
	Usage         *Usage
	SafetyRatings []SafetyRating
	ModelVersion  string
}

// ErrorEnvelope is the structured error object written into the message
// emitted on the error port.
type ErrorEnvelope struct {
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	Kind      ErrorKind `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}
