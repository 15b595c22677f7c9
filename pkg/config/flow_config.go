// Package config provides configuration loading for flow definitions.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/calrock27/genflow/pkg/protocol"
)

// FlowFile represents the structure of a flow definition YAML file.
type FlowFile struct {
	Name        string           `yaml:"name"        validate:"required,min=3"`
	Description string           `yaml:"description"`
	Nodes       []NodeConfig     `yaml:"nodes"       validate:"required,min=1,dive"`
	Connections []Connection     `yaml:"connections" validate:"dive"`
	Credentials CredentialConfig `yaml:"credentials"`
}

// NodeConfig describes one node instance in a flow.
type NodeConfig struct {
	ID            string         `yaml:"id"            validate:"required"`
	Type          string         `yaml:"type"          validate:"required"`
	Configuration map[string]any `yaml:"configuration"`
}

// Connection wires a node output port to another node. From uses the
// "node:port" form; a bare node name means the success port.
type Connection struct {
	From string `yaml:"from" validate:"required"`
	To   string `yaml:"to"   validate:"required"`
}

// CredentialConfig maps credential identifiers to environment variable
// names holding the API key.
type CredentialConfig struct {
	Env map[string]string `yaml:"env"`
}

// FromParts splits the From field into node ID and port name.
func (c Connection) FromParts() (node, port string) {
	node, port, found := strings.Cut(c.From, ":")
	if !found {
		return c.From, protocol.PortSuccess
	}

	return node, port
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadFlow loads and validates a flow definition from a YAML file.
func LoadFlow(filepath string) (*FlowFile, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow file %s: %w", filepath, err)
	}

	var flow FlowFile
	if err := yaml.Unmarshal(data, &flow); err != nil {
		return nil, fmt.Errorf("failed to parse YAML flow: %w", err)
	}

	if err := validate.Struct(&flow); err != nil {
		return nil, fmt.Errorf("invalid flow definition: %w", err)
	}

	if err := ValidateFlow(&flow); err != nil {
		return nil, err
	}

	return &flow, nil
}

// ValidateFlow checks cross references: unique node IDs and connections
// that name existing nodes and known ports.
func ValidateFlow(flow *FlowFile) error {
	ids := make(map[string]bool, len(flow.Nodes))

	for _, node := range flow.Nodes {
		if ids[node.ID] {
			return fmt.Errorf("duplicate node id %q", node.ID)
		}

		ids[node.ID] = true
	}

	for _, conn := range flow.Connections {
		fromNode, port := conn.FromParts()

		if !ids[fromNode] {
			return fmt.Errorf("connection from unknown node %q", fromNode)
		}

		if port != protocol.PortSuccess && port != protocol.PortError {
			return fmt.Errorf("connection from %q uses unknown port %q", fromNode, port)
		}

		if !ids[conn.To] {
			return fmt.Errorf("connection to unknown node %q", conn.To)
		}
	}

	return nil
}
