// Package registry holds the node factory registry for the worker.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/calrock27/genflow/pkg/models"
	"github.com/calrock27/genflow/pkg/nodes/audio"
	"github.com/calrock27/genflow/pkg/nodes/imagegen"
	"github.com/calrock27/genflow/pkg/nodes/speech"
	"github.com/calrock27/genflow/pkg/nodes/textgen"
	"github.com/calrock27/genflow/pkg/protocol"
	"github.com/calrock27/genflow/pkg/session"
)

type Registry struct {
	logger        *slog.Logger
	nodeFactories map[string]protocol.NodeFactory
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:        log,
		nodeFactories: make(map[string]protocol.NodeFactory),
	}
}

func (r *Registry) RegisterNode(nodeFactory protocol.NodeFactory) {
	r.nodeFactories[nodeFactory.ID()] = nodeFactory
}

// RegisterDefaultNodes registers the built-in generation nodes. The session
// store backs chat history for conversational text nodes.
func (r *Registry) RegisterDefaultNodes(sessions session.Store) {
	r.RegisterNode(textgen.NewFactory(sessions))
	r.RegisterNode(imagegen.NewFactory())
	r.RegisterNode(audio.NewFactory())
	r.RegisterNode(speech.NewFactory())
}

// CreateNode validates config against the factory schema and instantiates
// the node.
func (r *Registry) CreateNode(ctx context.Context, nodeType, id string, config map[string]any) (protocol.Node, error) {
	factory, ok := r.nodeFactories[nodeType]
	if !ok {
		return nil, models.NewFlowError(models.ErrKindConfiguration, "unknown_node_type",
			"node type %q not registered", nodeType)
	}

	if err := validateJSONSchema(factory.Schema(), config); err != nil {
		return nil, models.WrapFlowError(models.ErrKindConfiguration, "bad_node_config", err,
			"node %s (%s) config rejected", id, nodeType)
	}

	return factory.Create(ctx, id, config)
}

func (r *Registry) GetAvailableNodes() []protocol.NodeFactory {
	factories := make([]protocol.NodeFactory, 0, len(r.nodeFactories))
	for _, factory := range r.nodeFactories {
		factories = append(factories, factory)
	}

	return factories
}

func validateJSONSchema(schema map[string]any, config map[string]any) error {
	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		var errs []string
		for _, resultError := range result.Errors() {
			errs = append(errs, resultError.String())
		}

		return fmt.Errorf("JSON schema validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}
