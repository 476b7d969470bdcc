// Package template holds the lazily rendered names and file contents of a template tree.
package template

import (
	"errors"
	"fmt"

	"github.com/aymerick/raymond"
)

// Variables maps placeholder names to the values substituted at render time.
type Variables map[string]any

// ErrRender marks every RenderError.
var ErrRender = errors.New("render error")

// RenderError reports a source that could not be compiled or evaluated.
type RenderError struct {
	Source string
	Err    error
}

func (renderError *RenderError) Error() string {
	return fmt.Sprintf("rendering template %q: %v", renderError.Source, renderError.Err)
}

func (renderError *RenderError) Unwrap() error {
	return renderError.Err
}

// Is reports ErrRender as the category of every RenderError.
func (renderError *RenderError) Is(target error) bool {
	return target == ErrRender
}

// Engine compiles template sources. Implementations must be safe for concurrent use.
type Engine interface {
	Compile(source string) (Compiled, error)
}

// Compiled is a compiled template source. Render must be pure and deterministic.
type Compiled interface {
	Render(variables Variables) (string, error)
}

// Handlebars is the default Engine. Beyond handlebars syntax errors it
// rejects top-level placeholders whose root variable is missing.
type Handlebars struct{}

// DefaultEngine is used by strings and contents created without an explicit engine.
var DefaultEngine Engine = Handlebars{}

// Compile parses source and records its top-level placeholders.
func (Handlebars) Compile(source string) (Compiled, error) {
	parsed, parseError := raymond.Parse(source)
	if parseError != nil {
		return nil, &RenderError{Source: source, Err: parseError}
	}
	placeholders, scanError := topLevelPlaceholders(source)
	if scanError != nil {
		return nil, &RenderError{Source: source, Err: scanError}
	}
	return &handlebarsTemplate{source: source, parsed: parsed, placeholders: placeholders}, nil
}

type handlebarsTemplate struct {
	source       string
	parsed       *raymond.Template
	placeholders []string
}

func (compiled *handlebarsTemplate) Render(variables Variables) (string, error) {
	for _, placeholder := range compiled.placeholders {
		if _, present := variables[placeholder]; !present {
			return "", &RenderError{Source: compiled.source, Err: fmt.Errorf("unresolved placeholder %q", placeholder)}
		}
	}
	context := map[string]any(variables)
	if context == nil {
		context = map[string]any{}
	}
	rendered, execError := compiled.parsed.Exec(context)
	if execError != nil {
		return "", &RenderError{Source: compiled.source, Err: execError}
	}
	return rendered, nil
}
