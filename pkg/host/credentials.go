package host

import (
	"os"

	"github.com/calrock27/genflow/pkg/models"
)

// EnvCredentials resolves credential identifiers to API keys held in
// environment variables, per the flow file's credentials.env map.
type EnvCredentials struct {
	env map[string]string
}

func NewEnvCredentials(env map[string]string) *EnvCredentials {
	if env == nil {
		env = make(map[string]string)
	}

	return &EnvCredentials{env: env}
}

func (c *EnvCredentials) APIKey(id string) (string, error) {
	envVar, ok := c.env[id]
	if !ok {
		return "", models.NewFlowError(models.ErrKindConfiguration, "unknown_credential",
			"credential %q is not declared in the flow file", id)
	}

	key := os.Getenv(envVar)
	if key == "" {
		return "", models.NewFlowError(models.ErrKindConfiguration, "missing_credential",
			"environment variable %s for credential %q is empty", envVar, id)
	}

	return key, nil
}

// StaticCredentials resolves credential identifiers from a fixed map.
type StaticCredentials map[string]string

func (c StaticCredentials) APIKey(id string) (string, error) {
	key, ok := c[id]
	if !ok || key == "" {
		return "", models.NewFlowError(models.ErrKindConfiguration, "missing_credential",
			"no API key for credential %q", id)
	}

	return key, nil
}
