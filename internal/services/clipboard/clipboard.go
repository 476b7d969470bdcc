// Package clipboard copies command output to the system clipboard.
package clipboard

import (
	"github.com/atotto/clipboard"
)

// Copier copies text to a clipboard.
type Copier interface {
	Copy(text string) error
}

// Service is the Copier backed by the operating system clipboard.
type Service struct{}

// NewService returns the system clipboard service.
func NewService() *Service {
	return &Service{}
}

// Copy replaces the clipboard content with text. It fails when no clipboard
// utility is available, as on headless Linux without xclip or xsel.
func (service *Service) Copy(text string) error {
	return clipboard.WriteAll(text)
}

// Available reports whether the system clipboard can be used.
func (service *Service) Available() bool {
	return !clipboard.Unsupported
}

var _ Copier = (*Service)(nil)
