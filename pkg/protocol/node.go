// Package protocol defines the contracts between nodes and the hosting flow runtime.
package protocol

import (
	"context"
	"log/slog"

	"github.com/calrock27/genflow/pkg/models"
)

// Output port names shared by every node. Successful results are emitted
// on the success port, structured failures on the error port; an
// invocation never emits on both.
const (
	PortSuccess = "success"
	PortError   = "error"
)

// Node is a message-transform plugin instance. OnMessage is called once
// per inbound message and must always complete: failures are emitted on
// the error port through the runtime rather than returned. The returned
// error is reserved for host-level faults (a broken emit channel), not
// for per-message processing failures.
type Node interface {
	// ID returns the node instance ID.
	ID() string

	// Type returns the node type identifier.
	Type() string

	// OnMessage processes one inbound message, emitting zero or more
	// messages through the runtime.
	OnMessage(ctx context.Context, msg models.Message, rt Runtime) error
}

// NodeFactory creates node instances and provides metadata about the node type.
type NodeFactory interface {
	// Create creates a new node instance with the given configuration.
	Create(ctx context.Context, id string, config map[string]any) (Node, error)

	// ID returns the unique identifier for this node type.
	ID() string

	// Name returns the human-readable name for this node type.
	Name() string

	// Description returns a description of what this node does.
	Description() string

	// Schema returns the JSON schema for configuring this node type.
	Schema() map[string]any
}

// Scope is a string-keyed variable store supplied by the host. Flow scope
// is shared by nodes of one flow; global scope by the whole process.
type Scope interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// Credentials resolves API credentials by the identifier configured on a node.
type Credentials interface {
	APIKey(id string) (string, error)
}

// Runtime is the per-invocation surface the host hands to a node.
type Runtime interface {
	// Emit publishes a message on the named output port.
	Emit(port string, msg models.Message)

	// FlowScope returns the flow-level variable store.
	FlowScope() Scope

	// GlobalScope returns the process-level variable store.
	GlobalScope() Scope

	// Credentials returns the credential resolver.
	Credentials() Credentials

	// SetStatus updates the node's advisory display status.
	SetStatus(status models.Status)

	// Logger returns the invocation logger.
	Logger() *slog.Logger
}
