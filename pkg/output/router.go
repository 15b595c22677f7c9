// Package output routes normalized results onto a node's output ports.
package output

import (
	"strings"
	"time"

	"github.com/calrock27/genflow/pkg/models"
	"github.com/calrock27/genflow/pkg/protocol"
)

// okStatusClearDelay is how long a success status stays visible before
// reverting to idle. Display-only; no effect on data flow.
const okStatusClearDelay = 5 * time.Second

// Router applies the dual-output convention shared by every node:
// results on the success port with the payload at a configurable field
// path, failures on the error port with a structured error envelope.
// Every invocation emits on exactly one of the two ports.
type Router struct {
	field    string
	metadata bool
	now      func() time.Time
	after    func(time.Duration, func()) // swapped out in tests
}

// NewRouter creates a router writing results to the given dotted field
// path ("payload" when empty). When metadata is true, model and usage
// details are merged into successful messages.
func NewRouter(field string, metadata bool) *Router {
	if field == "" {
		field = models.FieldPayload
	}

	return &Router{
		field:    field,
		metadata: metadata,
		now:      time.Now,
		after: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
	}
}

// Success emits the final result on the success port and schedules the
// advisory status to clear.
func (r *Router) Success(rt protocol.Runtime, inbound models.Message, payload any, outcome *models.Outcome) {
	msg := inbound.Clone()
	SetPath(msg, r.field, payload)

	// Binary payloads are unusable without their MIME type, so it is
	// carried regardless of the metadata flag.
	if outcome != nil && outcome.MimeType != "" {
		msg["mimeType"] = outcome.MimeType
	}

	if r.metadata && outcome != nil {
		r.mergeMetadata(msg, outcome)
	}

	rt.Emit(protocol.PortSuccess, msg)
	rt.SetStatus(models.Status{State: models.StatusOK, Text: "done"})
	r.after(okStatusClearDelay, func() {
		rt.SetStatus(models.Status{State: models.StatusIdle})
	})
}

// Partial emits one streaming fragment on the success port. Fragments
// carry partial=true; the final aggregate goes through Success.
func (r *Router) Partial(rt protocol.Runtime, inbound models.Message, payload any) {
	msg := inbound.Clone()
	SetPath(msg, r.field, payload)
	msg["partial"] = true

	rt.Emit(protocol.PortSuccess, msg)
}

// Failure emits a structured error on the error port and reports it to
// the host log. The invocation completes either way; failures never
// abort the hosting flow.
func (r *Router) Failure(rt protocol.Runtime, inbound models.Message, err error) {
	fe := models.AsFlowError(err)

	msg := inbound.Clone()
	msg[models.FieldError] = models.ErrorEnvelope{
		Message:   fe.Message,
		Code:      fe.Code,
		Kind:      fe.Kind,
		Timestamp: r.now(),
	}

	rt.Logger().Error("node invocation failed",
		"kind", string(fe.Kind), "code", fe.Code, "error", fe.Message)
	rt.Emit(protocol.PortError, msg)
	rt.SetStatus(models.Status{State: models.StatusError, Text: fe.Message})
}

// Progress updates the advisory status at the start of a remote call.
func (r *Router) Progress(rt protocol.Runtime, text string) {
	rt.SetStatus(models.Status{State: models.StatusProgress, Text: text})
}

func (r *Router) mergeMetadata(msg models.Message, outcome *models.Outcome) {
	if outcome.ModelVersion != "" {
		msg["model"] = outcome.ModelVersion
	}

	if outcome.Usage != nil {
		msg["usage"] = map[string]any{
			"promptTokens":     outcome.Usage.PromptTokens,
			"completionTokens": outcome.Usage.CompletionTokens,
			"totalTokens":      outcome.Usage.TotalTokens,
		}
	}

	if len(outcome.SafetyRatings) > 0 {
		msg["safetyRatings"] = outcome.SafetyRatings
	}

	if n := len(outcome.Media); n > 1 {
		msg["mediaCount"] = n
	}
}

// SetPath writes value at a dotted path inside the message, creating
// intermediate maps as needed. Existing non-map intermediates are
// replaced.
func SetPath(msg models.Message, path string, value any) {
	keys := strings.Split(path, ".")

	current := map[string]any(msg)
	for _, key := range keys[:len(keys)-1] {
		next, ok := current[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[key] = next
		}

		current = next
	}

	current[keys[len(keys)-1]] = value
}
