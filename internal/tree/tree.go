// Package tree defines a generic two-variant file tree and its pre-order visitor.
//
// A tree is made of directories and files. Directories own a list of named
// entries; each entry owns exactly one child node. The three type parameters
// are the entry name type N, the file value type F and the directory value
// type D.
package tree

// Node is either a *File or a *Directory.
type Node[N, F, D any] interface {
	isNode()
}

// File is a leaf node.
type File[N, F, D any] struct {
	Value F
}

// Directory is an inner node. Entry order carries no meaning.
type Directory[N, F, D any] struct {
	Value   D
	Entries []Entry[N, F, D]
}

// Entry pairs a name with the child it owns.
type Entry[N, F, D any] struct {
	Name N
	Node Node[N, F, D]
}

func (*File[N, F, D]) isNode()      {}
func (*Directory[N, F, D]) isNode() {}

// NewFile returns a file node holding value.
func NewFile[N, F, D any](value F) *File[N, F, D] {
	return &File[N, F, D]{Value: value}
}

// NewDirectory returns a directory node holding value and entries.
func NewDirectory[N, F, D any](value D, entries ...Entry[N, F, D]) *Directory[N, F, D] {
	return &Directory[N, F, D]{Value: value, Entries: entries}
}

// Count returns the number of file and directory nodes reachable from node, node included.
func Count[N, F, D any](node Node[N, F, D]) (files int, directories int) {
	switch typed := node.(type) {
	case *File[N, F, D]:
		return 1, 0
	case *Directory[N, F, D]:
		directories = 1
		for _, entry := range typed.Entries {
			childFiles, childDirectories := Count[N, F, D](entry.Node)
			files += childFiles
			directories += childDirectories
		}
	}
	return files, directories
}
