package host

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"github.com/calrock27/genflow/pkg/config"
	"github.com/calrock27/genflow/pkg/log"
	"github.com/calrock27/genflow/pkg/models"
	"github.com/calrock27/genflow/pkg/protocol"
	"github.com/calrock27/genflow/pkg/registry"
)

// Host executes one flow definition. Each node subscribes to the bus
// topics of the ports wired to it; inbound messages are dispatched to
// OnMessage one goroutine per delivery.
type Host struct {
	flow        *config.FlowFile
	nodes       map[string]protocol.Node
	pubSub      *gochannel.GoChannel
	flowScope   *MemoryScope
	globalScope *MemoryScope
	credentials protocol.Credentials
	logger      *slog.Logger

	statusMu sync.RWMutex
	statuses map[string]models.Status

	wg sync.WaitGroup
}

// New builds a host for the flow: every node is instantiated through the
// registry before any message moves.
func New(ctx context.Context, flow *config.FlowFile, reg *registry.Registry, logger *slog.Logger) (*Host, error) {
	h := &Host{
		flow:        flow,
		nodes:       make(map[string]protocol.Node, len(flow.Nodes)),
		flowScope:   NewMemoryScope(),
		globalScope: NewMemoryScope(),
		credentials: NewEnvCredentials(flow.Credentials.Env),
		logger:      logger.With("flow", flow.Name),
		statuses:    make(map[string]models.Status),
	}

	h.pubSub = gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: 1000,
			Persistent:          false,
		},
		watermill.NewSlogLogger(logger),
	)

	for _, nodeConfig := range flow.Nodes {
		node, err := reg.CreateNode(ctx, nodeConfig.Type, nodeConfig.ID, nodeConfig.Configuration)
		if err != nil {
			return nil, err
		}

		h.nodes[nodeConfig.ID] = node
	}

	return h, nil
}

// SetCredentials replaces the credential resolver. Call before Run.
func (h *Host) SetCredentials(credentials protocol.Credentials) {
	h.credentials = credentials
}

// Run subscribes every connection's target node to its source topic and
// starts dispatching. It returns once subscriptions are live; message
// processing continues until ctx is cancelled.
func (h *Host) Run(ctx context.Context) error {
	for _, conn := range h.flow.Connections {
		fromNode, port := conn.FromParts()
		target := h.nodes[conn.To]

		messages, err := h.pubSub.Subscribe(ctx, portTopic(fromNode, port))
		if err != nil {
			return err
		}

		h.wg.Add(1)

		go h.dispatch(ctx, target, messages)
	}

	return nil
}

// Inject delivers a message directly to a node, bypassing the bus. It is
// the entry point for feeding a flow from outside.
func (h *Host) Inject(ctx context.Context, nodeID string, msg models.Message) error {
	node, ok := h.nodes[nodeID]
	if !ok {
		return models.NewFlowError(models.ErrKindConfiguration, "unknown_node",
			"flow %s has no node %q", h.flow.Name, nodeID)
	}

	if _, ok := msg[models.FieldMessageID]; !ok {
		msg[models.FieldMessageID] = uuid.NewString()
	}

	return node.OnMessage(ctx, msg, h.runtimeFor(node))
}

// Status returns the last advisory status a node reported.
func (h *Host) Status(nodeID string) models.Status {
	h.statusMu.RLock()
	defer h.statusMu.RUnlock()

	return h.statuses[nodeID]
}

// Close stops the bus and waits for in-flight dispatch loops.
func (h *Host) Close() error {
	err := h.pubSub.Close()
	h.wg.Wait()

	return err
}

func (h *Host) dispatch(ctx context.Context, node protocol.Node, messages <-chan *message.Message) {
	defer h.wg.Done()

	for busMsg := range messages {
		var msg models.Message
		if err := json.Unmarshal(busMsg.Payload, &msg); err != nil {
			h.logger.Error("Dropping undecodable message",
				"node_id", node.ID(), "message_id", busMsg.UUID, "error", err)
			busMsg.Ack()

			continue
		}

		if err := node.OnMessage(ctx, msg, h.runtimeFor(node)); err != nil {
			h.logger.Error("Node processing fault",
				"node_id", node.ID(), "message_id", busMsg.UUID, "error", err)
		}

		busMsg.Ack()
	}
}

func (h *Host) runtimeFor(node protocol.Node) protocol.Runtime {
	return &nodeRuntime{
		nodeID:      node.ID(),
		publisher:   h.pubSub,
		flowScope:   h.flowScope,
		globalScope: h.globalScope,
		credentials: h.credentials,
		setStatus:   h.recordStatus,
		logger:      log.WithNode(node.Type(), node.ID()),
	}
}

func (h *Host) recordStatus(nodeID string, status models.Status) {
	h.statusMu.Lock()
	h.statuses[nodeID] = status
	h.statusMu.Unlock()

	h.logger.Debug("Node status", "node_id", nodeID,
		"state", string(status.State), "text", status.Text)
}
