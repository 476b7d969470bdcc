// Package output renders a loaded template as a listing, a drawn tree or an encoded document.
package output

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/temirov/mold/internal/template"
	"github.com/temirov/mold/internal/types"
	"github.com/temirov/mold/internal/utils"
)

const (
	// FormatList prints one path per line.
	FormatList = "list"
	// FormatTree draws the template with box-drawing connectors.
	FormatTree = "tree"
	// FormatJSON marshals the nested nodes to JSON.
	FormatJSON = "json"
	// FormatXML marshals the nested nodes to XML.
	FormatXML = "xml"
	// FormatYAML marshals the nested nodes to YAML.
	FormatYAML = "yaml"

	// NodeTypeFile marks a file node.
	NodeTypeFile = "file"
	// NodeTypeDirectory marks a directory node.
	NodeTypeDirectory = "directory"

	indentPrefix = ""
	indentSpacer = "  "
	xmlHeader    = xml.Header

	pathSeparator          = "/"
	summaryLineFormat      = "Summary: %d %s, %d %s, %s"
	errorUnsupportedFormat = "unsupported output format %q (expected one of %s)"
	errorResolveNameFormat = "resolving name %q under %q: %w"
)

// Namer resolves the display name of an entry.
type Namer func(name *template.String) (string, error)

// SourceNamer displays names unrendered.
func SourceNamer(name *template.String) (string, error) {
	return name.Source(), nil
}

// RenderingNamer displays names rendered against variables.
func RenderingNamer(variables template.Variables) Namer {
	return func(name *template.String) (string, error) {
		return name.Render(variables)
	}
}

// Node is a template entry with its name resolved for display.
type Node struct {
	XMLName   xml.Name `json:"-" xml:"node" yaml:"-"`
	Name      string   `json:"name" xml:"name,attr" yaml:"name"`
	Path      string   `json:"path" xml:"path,attr" yaml:"path"`
	Type      string   `json:"type" xml:"type,attr" yaml:"type"`
	Content   string   `json:"content,omitempty" xml:"content,attr,omitempty" yaml:"content,omitempty"`
	SizeBytes int64    `json:"sizeBytes,omitempty" xml:"sizeBytes,attr,omitempty" yaml:"sizeBytes,omitempty"`
	Children  []*Node  `json:"children,omitempty" xml:"node" yaml:"children,omitempty"`
}

// Summary counts the nodes of a tree, the root directory included.
type Summary struct {
	Files       int   `json:"files"`
	Directories int   `json:"directories"`
	Bytes       int64 `json:"bytes"`
}

// SupportedFormats lists the formats Write accepts.
func SupportedFormats() []string {
	return []string{FormatList, FormatTree, FormatJSON, FormatXML, FormatYAML}
}

// IsSupportedFormat reports whether Write accepts format.
func IsSupportedFormat(format string) bool {
	for _, supported := range SupportedFormats() {
		if format == supported {
			return true
		}
	}
	return false
}

// Build resolves every name of loaded with namer. Children are sorted by
// name, directories before files when names tie.
func Build(loaded types.Template, namer Namer) (*Node, error) {
	rootName, nameError := namer(loaded.Name)
	if nameError != nil {
		return nil, fmt.Errorf(errorResolveNameFormat, loaded.Name.Source(), "", nameError)
	}
	return buildNode(rootName, "", loaded.Node, namer)
}

func buildNode(name string, nodePath string, node types.Node, namer Namer) (*Node, error) {
	switch typed := node.(type) {
	case *types.File:
		return &Node{
			Name:      name,
			Path:      nodePath,
			Type:      NodeTypeFile,
			Content:   string(typed.Value.Kind()),
			SizeBytes: int64(len(typed.Value.Source())),
		}, nil
	case *types.Directory:
		directoryNode := &Node{Name: name, Path: nodePath, Type: NodeTypeDirectory}
		for _, entry := range typed.Entries {
			childName, nameError := namer(entry.Name)
			if nameError != nil {
				return nil, fmt.Errorf(errorResolveNameFormat, entry.Name.Source(), nodePath, nameError)
			}
			child, childError := buildNode(childName, joinPath(nodePath, childName), entry.Node, namer)
			if childError != nil {
				return nil, childError
			}
			directoryNode.Children = append(directoryNode.Children, child)
		}
		sort.SliceStable(directoryNode.Children, func(left, right int) bool {
			leftChild, rightChild := directoryNode.Children[left], directoryNode.Children[right]
			if leftChild.Name != rightChild.Name {
				return leftChild.Name < rightChild.Name
			}
			return leftChild.Type == NodeTypeDirectory && rightChild.Type != NodeTypeDirectory
		})
		return directoryNode, nil
	default:
		return nil, fmt.Errorf("unknown node type %T", node)
	}
}

func joinPath(parent string, name string) string {
	if parent == "" {
		return name
	}
	return parent + pathSeparator + name
}

// Summarize counts files, directories and body bytes below node.
func Summarize(node *Node) Summary {
	if node == nil {
		return Summary{}
	}
	if node.Type == NodeTypeFile {
		return Summary{Files: 1, Bytes: node.SizeBytes}
	}
	summary := Summary{Directories: 1}
	for _, child := range node.Children {
		childSummary := Summarize(child)
		summary.Files += childSummary.Files
		summary.Directories += childSummary.Directories
		summary.Bytes += childSummary.Bytes
	}
	return summary
}

// FormatSummaryLine formats a Summary into the raw summary line.
func FormatSummaryLine(summary Summary) string {
	return fmt.Sprintf(summaryLineFormat,
		summary.Files, utils.Pluralize(int64(summary.Files), "file", "files"),
		summary.Directories, utils.Pluralize(int64(summary.Directories), "directory", "directories"),
		utils.FormatFileSize(summary.Bytes),
	)
}

// Write renders root to writer in format.
func Write(writer io.Writer, format string, root *Node) error {
	switch format {
	case FormatList:
		return WriteList(writer, root)
	case FormatTree:
		return WriteTree(writer, root)
	case FormatJSON:
		rendered, err := RenderJSON(root)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(writer, rendered)
		return err
	case FormatXML:
		rendered, err := RenderXML(root)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(writer, rendered)
		return err
	case FormatYAML:
		rendered, err := RenderYAML(root)
		if err != nil {
			return err
		}
		_, err = io.WriteString(writer, rendered)
		return err
	default:
		return fmt.Errorf(errorUnsupportedFormat, format, strings.Join(SupportedFormats(), ", "))
	}
}

// RenderJSON marshals root to indented JSON.
func RenderJSON(root *Node) (string, error) {
	encoded, jsonEncodeError := json.MarshalIndent(root, indentPrefix, indentSpacer)
	return string(encoded), jsonEncodeError
}

// RenderXML marshals root to indented XML with the standard header.
func RenderXML(root *Node) (string, error) {
	encoded, xmlMarshalError := xml.MarshalIndent(root, indentPrefix, indentSpacer)
	if xmlMarshalError != nil {
		return "", xmlMarshalError
	}
	return xmlHeader + string(encoded), nil
}

// RenderYAML marshals root to YAML.
func RenderYAML(root *Node) (string, error) {
	encoded, yamlMarshalError := yaml.Marshal(root)
	return string(encoded), yamlMarshalError
}
