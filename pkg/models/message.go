// Package models defines the core domain models for generative-AI flow nodes.
package models

// Message is the unit of data passed between nodes. Fields are free-form;
// by convention the primary payload lives under "payload" and the
// correlation key under "topic".
type Message map[string]any

// Well-known message fields.
const (
	FieldPayload   = "payload"
	FieldTopic     = "topic"
	FieldError     = "error"
	FieldMessageID = "_msgid"
)

// Clone returns a shallow copy of the message. Nested values are shared
// with the original.
func (m Message) Clone() Message {
	out := make(Message, len(m))
	for k, v := range m {
		out[k] = v
	}

	return out
}

// String returns the named field as a string. The second return reports
// whether the field exists and is a string.
func (m Message) String(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}

	s, ok := v.(string)

	return s, ok
}

// Topic returns the message topic, or fallback when absent or empty.
func (m Message) Topic(fallback string) string {
	if s, ok := m.String(FieldTopic); ok && s != "" {
		return s
	}

	return fallback
}
