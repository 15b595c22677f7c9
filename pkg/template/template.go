// Package template renders configuration templates against inbound messages.
package template

import (
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/calrock27/genflow/pkg/models"
)

// RenderMessage renders input against a context built from the inbound
// message. Message fields are addressable both at the top level
// ({{.payload}}) and under the msg key ({{.msg.payload}}); environment
// variables are exposed under {{.env}}.
func RenderMessage(input string, msg models.Message) (string, error) {
	data := make(map[string]any, len(msg)+2)
	for k, v := range msg {
		data[k] = v
	}

	data["msg"] = map[string]any(msg)
	data["env"] = envVars()

	return Render(input, data)
}

// Render executes a template string against arbitrary data. Malformed
// syntax or execution failures surface as template-kind flow errors.
func Render(templateStr string, data any) (string, error) {
	tmpl, err := template.
		New("field").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
		}).
		Option("missingkey=zero").
		Parse(templateStr)
	if err != nil {
		return "", models.WrapFlowError(models.ErrKindTemplate, "template_parse", err,
			"failed to parse template %q", templateStr)
	}

	var buf strings.Builder

	if err := tmpl.Execute(&buf, data); err != nil {
		return "", models.WrapFlowError(models.ErrKindTemplate, "template_execute", err,
			"failed to execute template %q", templateStr)
	}

	// text/template renders missing map keys as "<no value>"; treat those
	// as empty so fallback chains can apply.
	return strings.ReplaceAll(buf.String(), "<no value>", ""), nil
}

func envVars() map[string]any {
	envMap := make(map[string]any)

	for _, env := range os.Environ() {
		if k, v, ok := strings.Cut(env, "="); ok {
			envMap[k] = v
		}
	}

	return envMap
}
