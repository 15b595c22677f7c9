package models

// PartKind discriminates the content part union.
type PartKind string

const (
	PartKindText  PartKind = "text"
	PartKindMedia PartKind = "media"
)

// ContentPart is one atomic unit of request or history content: either a
// text fragment or an inline media blob. Part order is significant:
// media parts must precede the trailing text part for edit and
// understanding operations.
type ContentPart struct {
	Kind     PartKind `json:"kind"`
	Text     string   `json:"text,omitempty"`
	Data     []byte   `json:"data,omitempty"`
	MimeType string   `json:"mime_type,omitempty"`
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Kind: PartKindText, Text: text}
}

// MediaPart builds an inline media content part.
func MediaPart(data []byte, mimeType string) ContentPart {
	return ContentPart{Kind: PartKindMedia, Data: data, MimeType: mimeType}
}

// Turn roles for chat history.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ChatTurn is one exchange entry in a chat session's history.
type ChatTurn struct {
	Role  string        `json:"role"`
	Parts []ContentPart `json:"parts"`
}
