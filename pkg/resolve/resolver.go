// Package resolve gathers configured field values from their runtime sources.
package resolve

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/calrock27/genflow/pkg/models"
	"github.com/calrock27/genflow/pkg/protocol"
	"github.com/calrock27/genflow/pkg/template"
)

// Context carries the three scopes a slot may read from. One Context is
// built per inbound message. Resolution is read-only: it never mutates
// the message or either scope.
type Context struct {
	Message models.Message
	Flow    protocol.Scope
	Global  protocol.Scope
}

// Value resolves a slot against the context. Absent resolution returns
// (nil, nil) rather than an error; callers apply their own fallback
// chains and decide whether the field is mandatory.
func Value(slot models.Slot, rc Context) (any, error) {
	switch slot.Source {
	case models.SourceTemplate:
		rendered, err := template.RenderMessage(slot.Value, rc.Message)
		if err != nil {
			return nil, err
		}

		return rendered, nil
	case models.SourceMessage:
		v, ok := rc.Message[slot.Value]
		if !ok {
			return nil, nil
		}

		return v, nil
	case models.SourceFlow:
		return scopeValue(rc.Flow, slot.Value), nil
	case models.SourceGlobal:
		return scopeValue(rc.Global, slot.Value), nil
	case "":
		return nil, nil
	default:
		return nil, models.NewFlowError(models.ErrKindConfiguration, "bad_source",
			"unknown value source %q", slot.Source)
	}
}

// String resolves a slot to a string. When the slot names a message
// property that is absent, fallbackField is consulted instead (typically
// the message's primary payload field). Non-string scalar values are
// stringified; absence yields "".
func String(slot models.Slot, rc Context, fallbackField string) (string, error) {
	v, err := Value(slot, rc)
	if err != nil {
		return "", err
	}

	if isAbsent(v) && slot.Source == models.SourceMessage && fallbackField != "" && slot.Value != fallbackField {
		v = rc.Message[fallbackField]
	}

	return Stringify(v), nil
}

// Float resolves a slot to a float64. Absence yields (0, false, nil).
func Float(slot models.Slot, rc Context) (float64, bool, error) {
	v, err := Value(slot, rc)
	if err != nil {
		return 0, false, err
	}

	if isAbsent(v) {
		return 0, false, nil
	}

	f, err := toFloat(v)
	if err != nil {
		return 0, false, models.WrapFlowError(models.ErrKindValidation, "bad_number", err,
			"%s is not a number", Describe(slot))
	}

	return f, true, nil
}

// Int resolves a slot to an int, rejecting fractional values. Absence
// yields (0, false, nil).
func Int(slot models.Slot, rc Context) (int, bool, error) {
	f, ok, err := Float(slot, rc)
	if err != nil || !ok {
		return 0, ok, err
	}

	if f != float64(int(f)) {
		return 0, false, models.NewFlowError(models.ErrKindValidation, "bad_integer",
			"%s must be an integer, got %v", Describe(slot), f)
	}

	return int(f), true, nil
}

// Describe renders a slot for error messages, e.g. `msg.prompt`.
func Describe(slot models.Slot) string {
	if slot.Source == models.SourceTemplate {
		return fmt.Sprintf("template %q", slot.Value)
	}

	return fmt.Sprintf("%s.%s", slot.Source, slot.Value)
}

// Stringify converts a resolved value to its string form. Nil becomes "".
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func scopeValue(scope protocol.Scope, key string) any {
	if scope == nil {
		return nil
	}

	v, ok := scope.Get(key)
	if !ok {
		return nil
	}

	return v
}

func isAbsent(v any) bool {
	if v == nil {
		return true
	}

	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}

	return false
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", v)
	}
}
