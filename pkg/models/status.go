package models

// StatusState is the advisory display state of a node. It has no effect
// on data flow.
type StatusState string

const (
	StatusIdle     StatusState = "idle"
	StatusProgress StatusState = "progress"
	StatusOK       StatusState = "ok"
	StatusError    StatusState = "error"
)

// Status is a point-in-time display annotation for a node.
type Status struct {
	State StatusState `json:"state"`
	Text  string      `json:"text"`
}
