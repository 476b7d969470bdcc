package template

import "fmt"

// ContentKind tags a file body as raw or templated.
type ContentKind string

const (
	// Raw content is written out unchanged.
	Raw ContentKind = "raw"
	// Templated content is rendered against the template variables.
	Templated ContentKind = "templated"
)

// ParseContentKind converts a stored tag back to a ContentKind.
func ParseContentKind(tag string) (ContentKind, error) {
	switch ContentKind(tag) {
	case Raw, Templated:
		return ContentKind(tag), nil
	default:
		return "", fmt.Errorf("unknown content kind %q", tag)
	}
}

// Content is the body of a template file.
type Content struct {
	kind ContentKind
	text *String
}

// NewRawContent returns content rendered verbatim.
func NewRawContent(text string) *Content {
	return &Content{kind: Raw, text: NewRawString(text)}
}

// NewTemplatedContent returns content whose source is rendered with DefaultEngine.
func NewTemplatedContent(source string) *Content {
	return NewTemplatedContentWithEngine(source, DefaultEngine)
}

// NewTemplatedContentWithEngine returns content whose source is rendered with engine.
func NewTemplatedContentWithEngine(source string, engine Engine) *Content {
	return &Content{kind: Templated, text: NewStringWithEngine(source, engine)}
}

// Kind returns the content tag.
func (content *Content) Kind() ContentKind {
	return content.kind
}

// Source returns the stored text.
func (content *Content) Source() string {
	return content.text.Source()
}

// Render returns the file body for variables.
func (content *Content) Render(variables Variables) (string, error) {
	return content.text.Render(variables)
}

// Validate compiles templated content without rendering it.
func (content *Content) Validate() error {
	return content.text.Validate()
}

// Equal compares kind and source.
func (content *Content) Equal(other *Content) bool {
	if content == nil || other == nil {
		return content == other
	}
	return content.kind == other.kind && content.text.Equal(other.text)
}

// Directory is the value of a template directory node. Template directories
// carry nothing beyond their entries.
type Directory struct{}
