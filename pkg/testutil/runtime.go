// Package testutil provides test doubles and builders for node testing.
package testutil

import (
	"log/slog"
	"sync"

	"github.com/calrock27/genflow/pkg/models"
	"github.com/calrock27/genflow/pkg/protocol"
)

// Emission records one message emitted by a node under test.
type Emission struct {
	Port    string
	Message models.Message
}

// CaptureRuntime is a protocol.Runtime that records emissions and
// statuses instead of publishing them.
type CaptureRuntime struct {
	mu        sync.Mutex
	emissions []Emission
	statuses  []models.Status

	Flow   *MapScope
	Global *MapScope
	Creds  protocol.Credentials
}

// NewCaptureRuntime builds a runtime with empty scopes and the given
// credential map.
func NewCaptureRuntime(creds map[string]string) *CaptureRuntime {
	return &CaptureRuntime{
		Flow:   NewMapScope(),
		Global: NewMapScope(),
		Creds:  staticCredentials(creds),
	}
}

func (rt *CaptureRuntime) Emit(port string, msg models.Message) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.emissions = append(rt.emissions, Emission{Port: port, Message: msg})
}

func (rt *CaptureRuntime) FlowScope() protocol.Scope {
	return rt.Flow
}

func (rt *CaptureRuntime) GlobalScope() protocol.Scope {
	return rt.Global
}

func (rt *CaptureRuntime) Credentials() protocol.Credentials {
	return rt.Creds
}

func (rt *CaptureRuntime) SetStatus(status models.Status) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.statuses = append(rt.statuses, status)
}

func (rt *CaptureRuntime) Logger() *slog.Logger {
	return slog.Default()
}

// Emissions returns a copy of all recorded emissions.
func (rt *CaptureRuntime) Emissions() []Emission {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	out := make([]Emission, len(rt.emissions))
	copy(out, rt.emissions)

	return out
}

// OnPort returns the messages emitted on one port, in order.
func (rt *CaptureRuntime) OnPort(port string) []models.Message {
	var msgs []models.Message

	for _, emission := range rt.Emissions() {
		if emission.Port == port {
			msgs = append(msgs, emission.Message)
		}
	}

	return msgs
}

// Statuses returns a copy of all recorded status updates.
func (rt *CaptureRuntime) Statuses() []models.Status {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	out := make([]models.Status, len(rt.statuses))
	copy(out, rt.statuses)

	return out
}

// MapScope is a plain map-backed protocol.Scope for tests.
type MapScope struct {
	values map[string]any
}

func NewMapScope() *MapScope {
	return &MapScope{values: make(map[string]any)}
}

func (s *MapScope) Get(key string) (any, bool) {
	value, ok := s.values[key]

	return value, ok
}

func (s *MapScope) Set(key string, value any) {
	s.values[key] = value
}

type staticCredentials map[string]string

func (c staticCredentials) APIKey(id string) (string, error) {
	key, ok := c[id]
	if !ok {
		return "", models.NewFlowError(models.ErrKindConfiguration, "missing_credential",
			"no API key for credential %q", id)
	}

	return key, nil
}
