package template_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temirov/mold/internal/template"
)

func TestStringRendering(t *testing.T) {
	testCases := []struct {
		name      string
		source    string
		variables template.Variables
		expected  string
	}{
		{name: "empty", source: "", variables: template.Variables{}, expected: ""},
		{name: "no templating", source: "hello, world", variables: template.Variables{}, expected: "hello, world"},
		{name: "with variables", source: "{{ x }}, {{ y }}", variables: template.Variables{"x": "hello", "y": "world"}, expected: "hello, world"},
		{name: "nested path", source: "{{ project.name }}.go", variables: template.Variables{"project": map[string]any{"name": "mold"}}, expected: "mold.go"},
		{name: "block contents are not strict", source: "{{#if enabled}}{{ missing }}{{/if}}ok", variables: template.Variables{"enabled": false}, expected: "ok"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			rendered, err := template.NewString(testCase.source).Render(testCase.variables)
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, rendered)
		})
	}
}

func TestRawContentIgnoresVariables(t *testing.T) {
	content := template.NewRawContent("{{ x }}")
	rendered, err := content.Render(template.Variables{"x": "1"})
	require.NoError(t, err)
	assert.Equal(t, "{{ x }}", rendered)
	assert.Equal(t, template.Raw, content.Kind())

	empty, err := template.NewRawContent("").Render(nil)
	require.NoError(t, err)
	assert.Equal(t, "", empty)
}

func TestTemplatedContent(t *testing.T) {
	content := template.NewTemplatedContent("{{ x }}, {{ y }}")
	assert.Equal(t, template.Templated, content.Kind())
	assert.Equal(t, "{{ x }}, {{ y }}", content.Source())

	rendered, err := content.Render(template.Variables{"x": "1", "y": "2"})
	require.NoError(t, err)
	assert.Equal(t, "1, 2", rendered)

	empty, err := template.NewTemplatedContent("").Render(nil)
	require.NoError(t, err)
	assert.Equal(t, "", empty)
}

func TestPlaceholderForms(t *testing.T) {
	testCases := []struct {
		name      string
		source    string
		variables template.Variables
		expected  string
	}{
		{name: "this prefix", source: "{{this.name}}", variables: template.Variables{"name": "demo"}, expected: "demo"},
		{name: "nested this prefix", source: "{{ this.owner.name }}", variables: template.Variables{"owner": map[string]any{"name": "ada"}}, expected: "ada"},
		{name: "inverse shorthand", source: "{{#if a}}x{{^}}y{{/if}} {{b}}", variables: template.Variables{"a": false, "b": "z"}, expected: "y z"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			rendered, err := template.NewTemplatedContent(testCase.source).Render(testCase.variables)
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, rendered)
		})
	}
}

func TestRenderErrors(t *testing.T) {
	testCases := []struct {
		name      string
		source    string
		variables template.Variables
	}{
		{name: "unresolved placeholder", source: "{{ x }}", variables: template.Variables{}},
		{name: "unterminated placeholder", source: "{{ x", variables: template.Variables{"x": "1"}},
		{name: "unclosed block", source: "{{#if x}}open", variables: template.Variables{"x": true}},
		{name: "missing after inverse shorthand", source: "{{#if a}}x{{^}}y{{/if}} {{missing}}", variables: template.Variables{"a": true}},
		{name: "missing behind this", source: "{{ this.name }}", variables: template.Variables{}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			rendered, err := template.NewString(testCase.source).Render(testCase.variables)
			require.Error(t, err)
			assert.Empty(t, rendered)
			assert.ErrorIs(t, err, template.ErrRender)

			var renderError *template.RenderError
			require.True(t, errors.As(err, &renderError))
			assert.Equal(t, testCase.source, renderError.Source)
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, template.NewString("{{ name }}").Validate())
	assert.NoError(t, template.NewRawString("{{ broken").Validate())
	assert.ErrorIs(t, template.NewString("{{ broken").Validate(), template.ErrRender)
	assert.NoError(t, template.NewRawContent("{{ broken").Validate())
	assert.ErrorIs(t, template.NewTemplatedContent("{{#if}}").Validate(), template.ErrRender)
}

type countingEngine struct {
	mutex       sync.Mutex
	compilation int
}

func (engine *countingEngine) Compile(source string) (template.Compiled, error) {
	engine.mutex.Lock()
	engine.compilation++
	engine.mutex.Unlock()
	return template.Handlebars{}.Compile(source)
}

func TestCompiledFormIsCached(t *testing.T) {
	engine := &countingEngine{}
	value := template.NewStringWithEngine("{{ x }}", engine)

	var waitGroup sync.WaitGroup
	for index := 0; index < 16; index++ {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			rendered, err := value.Render(template.Variables{"x": "v"})
			assert.NoError(t, err)
			assert.Equal(t, "v", rendered)
		}()
	}
	waitGroup.Wait()
	assert.Equal(t, 1, engine.compilation)
}

func TestEquality(t *testing.T) {
	assert.True(t, template.NewString("a").Equal(template.NewString("a")))
	assert.False(t, template.NewString("a").Equal(template.NewRawString("a")))
	assert.True(t, template.NewRawContent("x").Equal(template.NewRawContent("x")))
	assert.False(t, template.NewRawContent("x").Equal(template.NewTemplatedContent("x")))
}

func TestParseContentKind(t *testing.T) {
	kind, err := template.ParseContentKind("templated")
	require.NoError(t, err)
	assert.Equal(t, template.Templated, kind)

	_, err = template.ParseContentKind("compressed")
	assert.Error(t, err)
}

func TestSourcesWithoutPlaceholdersRenderUnchanged(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("templated and raw content render their source", prop.ForAll(
		func(source string) bool {
			templated, templatedError := template.NewTemplatedContent(source).Render(template.Variables{"x": "1"})
			raw, rawError := template.NewRawContent(source).Render(template.Variables{"x": "1"})
			return templatedError == nil && rawError == nil && templated == source && raw == source
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
