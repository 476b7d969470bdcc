package limits

import (
	"errors"
	"fmt"

	"github.com/temirov/mold/internal/utils"
)

const (
	fileCountMessageFormat     = "maximum file count limit exceeded: %d %s"
	memoryUsageMessageFormat   = "maximum memory usage limit exceeded: %d %s (%s MB)"
	contentLengthMessageFormat = "max file content length limit exceeded for file: '%s' (max length: %d, actual length: %d)"

	invalidCeilingMessageFormat = "limit for %s must be positive, not %d"
	invalidAmountMessageFormat  = "count for %s must be positive, not %d"
)

var (
	// ErrInvalidArgument marks a non-positive ceiling or tracked amount.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrLimitExceeded marks every ExceededError.
	ErrLimitExceeded = errors.New("limit exceeded")
)

// ExceededError reports a resource whose configured ceiling was crossed.
type ExceededError struct {
	Kind Kind
	// Max is the configured ceiling.
	Max int64
	// Actual and Path are only set for ContentLength.
	Actual int64
	Path   string
}

// NewContentLengthError reports a file whose size exceeds the per-file ceiling.
func NewContentLengthError(path string, maxLength int64, actualLength int64) *ExceededError {
	return &ExceededError{Kind: ContentLength, Max: maxLength, Actual: actualLength, Path: path}
}

func (exceededError *ExceededError) Error() string {
	switch exceededError.Kind {
	case FileCount:
		return fmt.Sprintf(fileCountMessageFormat, exceededError.Max, utils.Pluralize(exceededError.Max, "file and/or directory", "files and/or directories"))
	case MemoryUsage:
		return fmt.Sprintf(memoryUsageMessageFormat, exceededError.Max, utils.Pluralize(exceededError.Max, "byte", "bytes"), utils.FormatMegabytes(exceededError.Max))
	case ContentLength:
		return fmt.Sprintf(contentLengthMessageFormat, utils.EscapeString(exceededError.Path), exceededError.Max, exceededError.Actual)
	default:
		return fmt.Sprintf("%s limit exceeded: %d", exceededError.Kind, exceededError.Max)
	}
}

// Is reports ErrLimitExceeded as the category of every ExceededError.
func (exceededError *ExceededError) Is(target error) bool {
	return target == ErrLimitExceeded
}

func invalidCeilingError(kind Kind, ceiling int64) error {
	return fmt.Errorf("%w: "+invalidCeilingMessageFormat, ErrInvalidArgument, kind, ceiling)
}

func invalidAmountError(kind Kind, amount int64) error {
	return fmt.Errorf("%w: "+invalidAmountMessageFormat, ErrInvalidArgument, kind, amount)
}
