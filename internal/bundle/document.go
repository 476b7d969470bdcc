package bundle

import (
	"encoding/base64"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/temirov/mold/internal/template"
	"github.com/temirov/mold/internal/types"
)

const (
	documentVersion = 1

	nodeKindFile      = "file"
	nodeKindDirectory = "directory"

	nameKindTemplated = "templated"
	nameKindRaw       = "raw"

	// sourceEncodingBase64 marks a source that is not valid UTF-8. Plain
	// sources carry no encoding field.
	sourceEncodingBase64 = "base64"
)

type document struct {
	Version int           `json:"version"`
	Root    entryDocument `json:"root"`
}

type entryDocument struct {
	Name nameDocument `json:"name"`
	Node nodeDocument `json:"node"`
}

type nameDocument struct {
	Kind     string `json:"kind"`
	Source   string `json:"source"`
	Encoding string `json:"encoding,omitempty"`
}

type contentDocument struct {
	Kind     string `json:"kind"`
	Source   string `json:"source"`
	Encoding string `json:"encoding,omitempty"`
}

// encodeSource keeps UTF-8 sources readable and base64-encodes the rest,
// which JSON strings cannot carry byte for byte.
func encodeSource(source string) (string, string) {
	if utf8.ValidString(source) {
		return source, ""
	}
	return base64.StdEncoding.EncodeToString([]byte(source)), sourceEncodingBase64
}

func decodeSource(source string, encoding string) (string, error) {
	switch encoding {
	case "":
		return source, nil
	case sourceEncodingBase64:
		decoded, decodeError := base64.StdEncoding.DecodeString(source)
		if decodeError != nil {
			return "", fmt.Errorf("decoding base64 source: %w", decodeError)
		}
		return string(decoded), nil
	default:
		return "", fmt.Errorf("unknown source encoding %q", encoding)
	}
}

type nodeDocument struct {
	Kind    string           `json:"kind"`
	Content *contentDocument `json:"content,omitempty"`
	Entries []entryDocument  `json:"entries,omitempty"`
}

func encodeEntry(entry types.Entry) (entryDocument, error) {
	if entry.Name == nil {
		return entryDocument{}, fmt.Errorf("entry without a name")
	}
	encodedNode, encodeError := encodeNode(entry.Node)
	if encodeError != nil {
		return entryDocument{}, fmt.Errorf("encoding %q: %w", entry.Name.Source(), encodeError)
	}
	return entryDocument{Name: encodeName(entry.Name), Node: encodedNode}, nil
}

func encodeName(name *template.String) nameDocument {
	kind := nameKindRaw
	if name.IsTemplated() {
		kind = nameKindTemplated
	}
	source, encoding := encodeSource(name.Source())
	return nameDocument{Kind: kind, Source: source, Encoding: encoding}
}

func encodeNode(node types.Node) (nodeDocument, error) {
	switch typed := node.(type) {
	case *types.File:
		source, encoding := encodeSource(typed.Value.Source())
		return nodeDocument{
			Kind:    nodeKindFile,
			Content: &contentDocument{Kind: string(typed.Value.Kind()), Source: source, Encoding: encoding},
		}, nil
	case *types.Directory:
		entries := make([]entryDocument, 0, len(typed.Entries))
		for _, entry := range typed.Entries {
			encodedEntry, encodeError := encodeEntry(entry)
			if encodeError != nil {
				return nodeDocument{}, encodeError
			}
			entries = append(entries, encodedEntry)
		}
		sort.SliceStable(entries, func(left, right int) bool {
			if entries[left].Name.Source != entries[right].Name.Source {
				return entries[left].Name.Source < entries[right].Name.Source
			}
			return entries[left].Name.Kind < entries[right].Name.Kind
		})
		return nodeDocument{Kind: nodeKindDirectory, Entries: entries}, nil
	default:
		return nodeDocument{}, fmt.Errorf("unknown node type %T", node)
	}
}

func (decoder *decoder) decodeEntry(encoded entryDocument) (types.Entry, error) {
	name, nameError := decoder.decodeName(encoded.Name)
	if nameError != nil {
		return types.Entry{}, nameError
	}
	node, nodeError := decoder.decodeNode(encoded.Node)
	if nodeError != nil {
		return types.Entry{}, fmt.Errorf("decoding %q: %w", encoded.Name.Source, nodeError)
	}
	return types.Entry{Name: name, Node: node}, nil
}

func (decoder *decoder) decodeName(encoded nameDocument) (*template.String, error) {
	source, sourceError := decodeSource(encoded.Source, encoded.Encoding)
	if sourceError != nil {
		return nil, sourceError
	}
	switch encoded.Kind {
	case nameKindTemplated:
		return template.NewStringWithEngine(source, decoder.engine), nil
	case nameKindRaw:
		return template.NewRawString(source), nil
	default:
		return nil, fmt.Errorf("unknown name kind %q", encoded.Kind)
	}
}

func (decoder *decoder) decodeNode(encoded nodeDocument) (types.Node, error) {
	switch encoded.Kind {
	case nodeKindFile:
		if encoded.Content == nil {
			return nil, fmt.Errorf("file without content")
		}
		contentKind, kindError := template.ParseContentKind(encoded.Content.Kind)
		if kindError != nil {
			return nil, kindError
		}
		source, sourceError := decodeSource(encoded.Content.Source, encoded.Content.Encoding)
		if sourceError != nil {
			return nil, sourceError
		}
		if contentKind == template.Templated {
			return types.NewFile(template.NewTemplatedContentWithEngine(source, decoder.engine)), nil
		}
		return types.NewFile(template.NewRawContent(source)), nil
	case nodeKindDirectory:
		entries := make([]types.Entry, 0, len(encoded.Entries))
		for _, encodedEntry := range encoded.Entries {
			entry, decodeError := decoder.decodeEntry(encodedEntry)
			if decodeError != nil {
				return nil, decodeError
			}
			entries = append(entries, entry)
		}
		return types.NewDirectory(entries...), nil
	default:
		return nil, fmt.Errorf("unknown node kind %q", encoded.Kind)
	}
}

type decoder struct {
	engine template.Engine
}
