package host

import (
	"encoding/json"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/calrock27/genflow/pkg/models"
	"github.com/calrock27/genflow/pkg/protocol"
)

// MetadataNodeID and MetadataPort annotate bus messages with their origin.
const (
	MetadataNodeID = "node_id"
	MetadataPort   = "port"
)

// nodeRuntime is the per-invocation protocol.Runtime handed to a node.
// Emitted messages are published on the bus topic for the node's port.
type nodeRuntime struct {
	nodeID      string
	publisher   message.Publisher
	flowScope   protocol.Scope
	globalScope protocol.Scope
	credentials protocol.Credentials
	setStatus   func(nodeID string, status models.Status)
	logger      *slog.Logger
}

func (rt *nodeRuntime) Emit(port string, msg models.Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		rt.logger.Error("Failed to serialize emitted message", "port", port, "error", err)

		return
	}

	busMsg := message.NewMessage(watermill.NewUUID(), payload)
	busMsg.Metadata.Set(MetadataNodeID, rt.nodeID)
	busMsg.Metadata.Set(MetadataPort, port)

	if err := rt.publisher.Publish(portTopic(rt.nodeID, port), busMsg); err != nil {
		rt.logger.Error("Failed to publish emitted message", "port", port, "error", err)
	}
}

func (rt *nodeRuntime) FlowScope() protocol.Scope {
	return rt.flowScope
}

func (rt *nodeRuntime) GlobalScope() protocol.Scope {
	return rt.globalScope
}

func (rt *nodeRuntime) Credentials() protocol.Credentials {
	return rt.credentials
}

func (rt *nodeRuntime) SetStatus(status models.Status) {
	rt.setStatus(rt.nodeID, status)
}

func (rt *nodeRuntime) Logger() *slog.Logger {
	return rt.logger
}

func portTopic(nodeID, port string) string {
	return "genflow.node." + nodeID + "." + port
}
