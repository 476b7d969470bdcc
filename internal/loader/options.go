package loader

import (
	"fmt"

	"github.com/temirov/mold/internal/limits"
	"github.com/temirov/mold/internal/utils"
)

const (
	// DefaultTemplatedExtension marks files whose bodies are template sources.
	DefaultTemplatedExtension = ".handlebars"
	// DefaultMaxCount bounds the number of files and directories in a template.
	DefaultMaxCount int64 = 1000
	// DefaultMaxBytes bounds the bytes of names and bodies in a template.
	DefaultMaxBytes int64 = 128 * 1024 * 1024
	// DefaultConcurrency bounds the filesystem operations in flight at once.
	DefaultConcurrency = 64

	errorEmptySourcePath      = "source path must be set"
	errorEmptyExtension       = "templated extension must be set"
	errorNonPositiveOption    = "%s must be positive, not %d"
	errorNonPositiveWorkers   = "concurrency must be positive, not %d"
	maxContentLengthOptionKey = "max file content length"
)

// Options configures a ParsingLoader. Nil ceilings impose no constraint.
type Options struct {
	SourcePath         string
	TemplatedExtension string
	// Include keeps only matching files when non-empty. Directories are always descended.
	Include []string
	// Exclude skips matching files and directories before any accounting.
	Exclude          []string
	MaxContentLength *int64
	MaxCount         *int64
	MaxBytes         *int64
}

// DefaultOptions returns the options used when a template configures nothing.
func DefaultOptions() Options {
	return Options{
		TemplatedExtension: DefaultTemplatedExtension,
		MaxCount:           limits.Ceiling(DefaultMaxCount),
		MaxBytes:           limits.Ceiling(DefaultMaxBytes),
	}
}

// DefaultOptionsFor returns DefaultOptions loading from sourcePath.
func DefaultOptionsFor(sourcePath string) Options {
	options := DefaultOptions()
	options.SourcePath = sourcePath
	return options
}

// Validate reports options a load could not run with.
func (options Options) Validate() error {
	if options.SourcePath == "" {
		return fmt.Errorf("%w: %s", limits.ErrInvalidArgument, errorEmptySourcePath)
	}
	if options.TemplatedExtension == "" {
		return fmt.Errorf("%w: %s", limits.ErrInvalidArgument, errorEmptyExtension)
	}
	if options.MaxContentLength != nil && *options.MaxContentLength <= 0 {
		return fmt.Errorf("%w: "+errorNonPositiveOption, limits.ErrInvalidArgument, maxContentLengthOptionKey, *options.MaxContentLength)
	}
	_, trackerError := limits.NewTracker(options.limitOptions())
	return trackerError
}

func (options Options) limitOptions() limits.Options {
	return limits.Options{MaxCount: options.MaxCount, MaxBytes: options.MaxBytes}
}

func (options Options) normalized() Options {
	options.Include = utils.DeduplicatePatterns(options.Include)
	options.Exclude = utils.DeduplicatePatterns(options.Exclude)
	return options
}
