package models

import "fmt"

// ValueSource identifies where a configured field takes its runtime value from.
type ValueSource string

const (
	// SourceTemplate treats the slot value as a literal string, rendered
	// through the template engine against the inbound message.
	SourceTemplate ValueSource = "template"
	// SourceMessage reads the named property from the inbound message.
	SourceMessage ValueSource = "msg"
	// SourceFlow reads the named variable from the flow scope.
	SourceFlow ValueSource = "flow"
	// SourceGlobal reads the named variable from the global scope.
	SourceGlobal ValueSource = "global"
)

// Slot describes one configurable node field: where its value comes from
// and the key (template text or property/variable name) to use there.
// Slots are fixed at flow-design time and never change for the lifetime
// of a node instance.
type Slot struct {
	Source ValueSource `json:"source"`
	Value  string      `json:"value"`
}

// IsZero reports whether the slot is unconfigured.
func (s Slot) IsZero() bool {
	return s.Source == "" && s.Value == ""
}

// SlotFromConfig parses a slot out of a node configuration map. Accepts
// either a plain string (template source) or a {"source","value"} object.
// A missing key yields the zero slot with no error.
func SlotFromConfig(config map[string]any, key string) (Slot, error) {
	raw, ok := config[key]
	if !ok || raw == nil {
		return Slot{}, nil
	}

	switch v := raw.(type) {
	case string:
		return Slot{Source: SourceTemplate, Value: v}, nil
	case map[string]any:
		slot := Slot{Source: SourceTemplate}

		if src, ok := v["source"].(string); ok && src != "" {
			slot.Source = ValueSource(src)
		}

		if val, ok := v["value"].(string); ok {
			slot.Value = val
		}

		switch slot.Source {
		case SourceTemplate, SourceMessage, SourceFlow, SourceGlobal:
		default:
			return Slot{}, fmt.Errorf("field %q: unknown value source %q", key, slot.Source)
		}

		return slot, nil
	default:
		return Slot{}, fmt.Errorf("field %q: expected string or object, got %T", key, raw)
	}
}
