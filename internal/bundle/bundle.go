// Package bundle snapshots a loaded template into a single JSON document and restores it.
package bundle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/mold/internal/loader"
	"github.com/temirov/mold/internal/template"
	"github.com/temirov/mold/internal/types"
	"github.com/temirov/mold/internal/utils"
)

// FileName is the only file inside a bundle directory.
const FileName = "template.json"

const (
	directoryPermissions = 0o755
	filePermissions      = 0o644

	errorEncodeFormat        = "encoding bundle: %w"
	errorCreateFormat        = "creating bundle directory %s: %w"
	errorWriteFormat         = "writing bundle %s: %w"
	errorReadFormat          = "reading bundle %s: %w"
	errorDecodeFormat        = "decoding bundle %s: %w"
	errorVersionFormat       = "%w: %s has version %d, expected %d"
	errorNotADirectoryFormat = "bundle destination %s is not a directory"
)

// ErrUnsupportedVersion is returned for documents written by an incompatible version.
var ErrUnsupportedVersion = errors.New("unsupported bundle version")

// Bundle writes loaded to destination/template.json, creating destination if needed.
// The document is fully encoded before anything is written.
func Bundle(fileSystem afero.Fs, loaded types.Template, destination string) error {
	root, encodeError := encodeEntry(loaded)
	if encodeError != nil {
		return fmt.Errorf(errorEncodeFormat, encodeError)
	}
	encoded, marshalError := json.MarshalIndent(document{Version: documentVersion, Root: root}, "", "  ")
	if marshalError != nil {
		return fmt.Errorf(errorEncodeFormat, marshalError)
	}

	if info, statError := fileSystem.Stat(destination); statError == nil && !info.IsDir() {
		return fmt.Errorf(errorNotADirectoryFormat, destination)
	}
	if mkdirError := fileSystem.MkdirAll(destination, directoryPermissions); mkdirError != nil {
		return fmt.Errorf(errorCreateFormat, destination, mkdirError)
	}
	bundlePath := filepath.Join(destination, FileName)
	if writeError := afero.WriteFile(fileSystem, bundlePath, append(encoded, '\n'), filePermissions); writeError != nil {
		return fmt.Errorf(errorWriteFormat, bundlePath, writeError)
	}
	return nil
}

// Unbundle reads directory/template.json and rebuilds the template with the default engine.
func Unbundle(fileSystem afero.Fs, directory string) (types.Template, error) {
	restored, _, err := unbundle(fileSystem, directory, template.DefaultEngine)
	return restored, err
}

// unbundle also returns the size of the document it read.
func unbundle(fileSystem afero.Fs, directory string, engine template.Engine) (types.Template, int64, error) {
	bundlePath := filepath.Join(directory, FileName)
	data, readError := afero.ReadFile(fileSystem, bundlePath)
	if readError != nil {
		return types.Template{}, 0, fmt.Errorf(errorReadFormat, bundlePath, readError)
	}
	var decoded document
	if unmarshalError := json.Unmarshal(data, &decoded); unmarshalError != nil {
		return types.Template{}, 0, fmt.Errorf(errorDecodeFormat, bundlePath, unmarshalError)
	}
	if decoded.Version != documentVersion {
		return types.Template{}, 0, fmt.Errorf(errorVersionFormat, ErrUnsupportedVersion, bundlePath, decoded.Version, documentVersion)
	}
	restored, decodeError := (&decoder{engine: engine}).decodeEntry(decoded.Root)
	if decodeError != nil {
		return types.Template{}, 0, fmt.Errorf(errorDecodeFormat, bundlePath, decodeError)
	}
	return restored, int64(len(data)), nil
}

// Option customizes a Loader.
type Option func(*Loader)

// WithFileSystem reads the bundle from fileSystem instead of the operating system.
func WithFileSystem(fileSystem afero.Fs) Option {
	return func(bundleLoader *Loader) {
		bundleLoader.fileSystem = fileSystem
	}
}

// WithLogger reports progress to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(bundleLoader *Loader) {
		bundleLoader.logger = logger
	}
}

// WithEngine renders restored names and templated bodies with engine.
func WithEngine(engine template.Engine) Option {
	return func(bundleLoader *Loader) {
		bundleLoader.engine = engine
	}
}

// Loader restores a template from a bundle directory. It is single-use like every loader.
type Loader struct {
	directory  string
	fileSystem afero.Fs
	logger     *zap.Logger
	engine     template.Engine
	guard      loader.Guard
}

var _ loader.Loader = (*Loader)(nil)

// NewLoader returns a loader for the bundle stored in directory.
func NewLoader(directory string, options ...Option) *Loader {
	bundleLoader := &Loader{
		directory:  directory,
		fileSystem: afero.NewOsFs(),
		logger:     zap.NewNop(),
		engine:     template.DefaultEngine,
	}
	for _, applyOption := range options {
		applyOption(bundleLoader)
	}
	return bundleLoader
}

// Load reads the bundle.
func (bundleLoader *Loader) Load(ctx context.Context) (types.Template, error) {
	if guardError := bundleLoader.guard.Begin(); guardError != nil {
		return types.Template{}, guardError
	}
	if contextError := ctx.Err(); contextError != nil {
		return types.Template{}, contextError
	}
	restored, size, unbundleError := unbundle(bundleLoader.fileSystem, bundleLoader.directory, bundleLoader.engine)
	if unbundleError != nil {
		return types.Template{}, unbundleError
	}
	bundleLoader.logger.Info("bundle loaded",
		zap.String("bundle", bundleLoader.directory),
		zap.String("size", utils.FormatFileSize(size)),
	)
	return restored, nil
}
