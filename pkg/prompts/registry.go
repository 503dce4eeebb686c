// Package prompts holds named prompt templates and renders them with
// placeholder substitution. Templates use {{name}} placeholders.
package prompts

import (
	"strings"

	"github.com/step2-technology/ga-llm-search/pkg/errors"
)

// Registry is a centralized collection of prompt templates for one domain.
type Registry struct {
	templates map[string]string
}

// NewRegistry creates a registry over the given template map.
func NewRegistry(templates map[string]string) *Registry {
	copied := make(map[string]string, len(templates))
	for name, tmpl := range templates {
		copied[name] = tmpl
	}
	return &Registry{templates: copied}
}

// Get returns the raw template. An unknown name is a setup mistake, not a
// transient failure, so the error is meant to terminate the run.
func (r *Registry) Get(name string) (string, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return "", errors.WithFields(
			errors.New(errors.InvalidInput, "prompt template not found"),
			errors.Fields{"name": name})
	}
	return tmpl, nil
}

// MustGet is Get for templates known at compile time.
func (r *Registry) MustGet(name string) string {
	tmpl, err := r.Get(name)
	if err != nil {
		panic(err)
	}
	return tmpl
}

// Render substitutes {{key}} placeholders with the given values.
func (r *Registry) Render(name string, vars map[string]string) (string, error) {
	tmpl, err := r.Get(name)
	if err != nil {
		return "", err
	}
	return Substitute(tmpl, vars), nil
}

// Substitute replaces {{key}} placeholders in a raw template.
func Substitute(tmpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for key, value := range vars {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
