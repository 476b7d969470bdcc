package tree

import (
	"fmt"
	"path"
)

// Result tells Walk how to continue after a visit.
type Result int

const (
	// Continue proceeds with the children of a directory.
	Continue Result = iota
	// SkipChildren finishes the current directory without descending into it.
	SkipChildren
	// Stop aborts the whole traversal.
	Stop
)

func (result Result) String() string {
	switch result {
	case Continue:
		return "Continue"
	case SkipChildren:
		return "SkipChildren"
	case Stop:
		return "Stop"
	default:
		return fmt.Sprintf("Result(%d)", int(result))
	}
}

// Visitor receives every node of a tree in pre-order.
type Visitor[N, F, D any] interface {
	VisitDirectory(nodePath string, directory *Directory[N, F, D]) (Result, error)
	VisitFile(nodePath string, file *File[N, F, D]) (Result, error)
}

// Namer resolves an entry name to the path segment used by Walk.
type Namer[N any] func(name N) (string, error)

// VisitorFuncs adapts plain functions to Visitor. A nil callback continues.
type VisitorFuncs[N, F, D any] struct {
	Directory func(nodePath string, directory *Directory[N, F, D]) (Result, error)
	File      func(nodePath string, file *File[N, F, D]) (Result, error)
}

// VisitDirectory calls funcs.Directory.
func (funcs VisitorFuncs[N, F, D]) VisitDirectory(nodePath string, directory *Directory[N, F, D]) (Result, error) {
	if funcs.Directory == nil {
		return Continue, nil
	}
	return funcs.Directory(nodePath, directory)
}

// VisitFile calls funcs.File.
func (funcs VisitorFuncs[N, F, D]) VisitFile(nodePath string, file *File[N, F, D]) (Result, error) {
	if funcs.File == nil {
		return Continue, nil
	}
	return funcs.File(nodePath, file)
}

// Walk visits node and its descendants in pre-order. The root is visited with
// the empty path; every child path joins its parent path with the name
// returned by namer. Walk returns Stop when a callback stopped the traversal
// and Continue otherwise. A callback or namer error aborts the traversal.
func Walk[N, F, D any](node Node[N, F, D], visitor Visitor[N, F, D], namer Namer[N]) (Result, error) {
	return walk(node, "", visitor, namer)
}

func walk[N, F, D any](node Node[N, F, D], nodePath string, visitor Visitor[N, F, D], namer Namer[N]) (Result, error) {
	switch typed := node.(type) {
	case *File[N, F, D]:
		return visitor.VisitFile(nodePath, typed)
	case *Directory[N, F, D]:
		result, err := visitor.VisitDirectory(nodePath, typed)
		if err != nil || result == Stop {
			return result, err
		}
		if result == SkipChildren {
			return Continue, nil
		}
		for _, entry := range typed.Entries {
			name, nameError := namer(entry.Name)
			if nameError != nil {
				return Stop, fmt.Errorf("resolving entry name under %q: %w", nodePath, nameError)
			}
			childResult, childError := walk(entry.Node, joinPath(nodePath, name), visitor, namer)
			if childError != nil || childResult == Stop {
				return childResult, childError
			}
		}
		return Continue, nil
	default:
		return Stop, fmt.Errorf("unknown node type %T", node)
	}
}

func joinPath(parent string, name string) string {
	if parent == "" {
		return name
	}
	return path.Join(parent, name)
}
