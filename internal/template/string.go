package template

import "sync"

// String is a deferred-render value used for entry names. A templated String
// compiles its source on first use and caches the compiled form.
type String struct {
	source    string
	templated bool
	engine    Engine

	compileOnce sync.Once
	compiled    Compiled
	compileErr  error
}

// NewString returns a templated string rendered with DefaultEngine.
func NewString(source string) *String {
	return NewStringWithEngine(source, DefaultEngine)
}

// NewStringWithEngine returns a templated string rendered with engine.
func NewStringWithEngine(source string, engine Engine) *String {
	if engine == nil {
		engine = DefaultEngine
	}
	return &String{source: source, templated: true, engine: engine}
}

// NewRawString returns a string that renders to value unchanged.
func NewRawString(value string) *String {
	return &String{source: value}
}

// Source returns the unrendered text.
func (value *String) Source() string {
	return value.source
}

// IsTemplated reports whether Render substitutes variables.
func (value *String) IsTemplated() bool {
	return value.templated
}

// Validate compiles a templated source without rendering it.
func (value *String) Validate() error {
	if !value.templated || value.source == "" {
		return nil
	}
	_, err := value.compile()
	return err
}

// Render substitutes variables into the source. Raw strings ignore variables.
func (value *String) Render(variables Variables) (string, error) {
	if !value.templated || value.source == "" {
		return value.source, nil
	}
	compiled, err := value.compile()
	if err != nil {
		return "", err
	}
	return compiled.Render(variables)
}

func (value *String) compile() (Compiled, error) {
	value.compileOnce.Do(func() {
		value.compiled, value.compileErr = value.engine.Compile(value.source)
	})
	return value.compiled, value.compileErr
}

// Equal compares kind and source.
func (value *String) Equal(other *String) bool {
	if value == nil || other == nil {
		return value == other
	}
	return value.templated == other.templated && value.source == other.source
}
