// Package types defines the template tree shared by the loader, the bundler and the CLI.
package types

import (
	"github.com/temirov/mold/internal/template"
	"github.com/temirov/mold/internal/tree"
)

type (
	// Node is a template file or directory.
	Node = tree.Node[*template.String, *template.Content, template.Directory]
	// File is a template file holding its body.
	File = tree.File[*template.String, *template.Content, template.Directory]
	// Directory is a template directory holding its named entries.
	Directory = tree.Directory[*template.String, *template.Content, template.Directory]
	// Entry is a templated name paired with the node it owns.
	Entry = tree.Entry[*template.String, *template.Content, template.Directory]
	// Visitor receives template nodes in pre-order.
	Visitor = tree.Visitor[*template.String, *template.Content, template.Directory]
	// VisitorFuncs adapts functions to Visitor.
	VisitorFuncs = tree.VisitorFuncs[*template.String, *template.Content, template.Directory]
)

// Template is a loaded template: the root directory's name and the root node.
type Template = Entry

// NewFile returns a file node holding content.
func NewFile(content *template.Content) *File {
	return tree.NewFile[*template.String, *template.Content, template.Directory](content)
}

// NewDirectory returns a directory node holding entries.
func NewDirectory(entries ...Entry) *Directory {
	return tree.NewDirectory(template.Directory{}, entries...)
}

// Count returns the number of files and directories in the template, root included.
func Count(root Node) (files int, directories int) {
	return tree.Count[*template.String, *template.Content, template.Directory](root)
}

// Walk visits the template in pre-order, joining paths with names rendered against variables.
func Walk(root Node, visitor Visitor, variables template.Variables) (tree.Result, error) {
	return tree.Walk(root, visitor, func(name *template.String) (string, error) {
		return name.Render(variables)
	})
}

// Equal reports whether two templates have the same names, kinds and sources regardless of entry order.
func Equal(left Template, right Template) bool {
	if !left.Name.Equal(right.Name) {
		return false
	}
	return tree.Equal(left.Node, right.Node, nameKey, contentEqual, directoryEqual)
}

// FindCollisions returns the slash-separated source paths of directories
// holding more than one entry with the same name source.
func FindCollisions(root Node) []string {
	var collisions []string
	visitor := VisitorFuncs{
		Directory: func(nodePath string, directory *Directory) (tree.Result, error) {
			seen := make(map[string]struct{}, len(directory.Entries))
			for _, entry := range directory.Entries {
				key := nameKey(entry.Name)
				if _, duplicate := seen[key]; duplicate {
					collisions = append(collisions, joinSourcePath(nodePath, entry.Name.Source()))
					continue
				}
				seen[key] = struct{}{}
			}
			return tree.Continue, nil
		},
	}
	_, _ = tree.Walk(root, visitor, func(name *template.String) (string, error) {
		return name.Source(), nil
	})
	return collisions
}

func joinSourcePath(parent string, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

func nameKey(name *template.String) string {
	if name == nil {
		return ""
	}
	if name.IsTemplated() {
		return "t:" + name.Source()
	}
	return "r:" + name.Source()
}

func contentEqual(left *template.Content, right *template.Content) bool {
	return left.Equal(right)
}

func directoryEqual(template.Directory, template.Directory) bool {
	return true
}
