package loader

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/temirov/mold/internal/utils"
)

const (
	errorSymbolicLinkFormat    = "symbolic links are not allowed: '%s'"
	errorUnsupportedTypeFormat = "unsupported file type: '%s' (not file, directory, or symbolic link)"

	errorInspectPathFormat   = "inspecting %s: %w"
	errorReadDirectoryFormat = "reading directory %s: %w"
	errorReadFileFormat      = "reading file %s: %w"
	errorAbsolutePathFormat  = "getting absolute path for %s: %w"
)

var (
	// ErrUnsupportedEntryType marks every UnsupportedEntryError.
	ErrUnsupportedEntryType = errors.New("unsupported entry type")
	// ErrAlreadyConsumed is returned by a second Load on a single-use loader.
	ErrAlreadyConsumed = errors.New("loader has already loaded - loaders are single-use")
)

// UnsupportedEntryError reports a symbolic link or an entry that is neither a regular file nor a directory.
type UnsupportedEntryError struct {
	Path string
	Mode fs.FileMode
}

func (unsupportedError *UnsupportedEntryError) Error() string {
	if unsupportedError.Mode&fs.ModeSymlink != 0 {
		return fmt.Sprintf(errorSymbolicLinkFormat, utils.EscapeString(unsupportedError.Path))
	}
	return fmt.Sprintf(errorUnsupportedTypeFormat, utils.EscapeString(unsupportedError.Path))
}

// Is reports ErrUnsupportedEntryType as the category of every UnsupportedEntryError.
func (unsupportedError *UnsupportedEntryError) Is(target error) bool {
	return target == ErrUnsupportedEntryType
}
