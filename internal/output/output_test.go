package output_test

import (
	"bytes"
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/temirov/mold/internal/output"
	"github.com/temirov/mold/internal/template"
	"github.com/temirov/mold/internal/types"
)

func sampleTemplate() types.Template {
	return types.Template{
		Name: template.NewString("{{ project }}"),
		Node: types.NewDirectory(
			types.Entry{Name: template.NewString("src"), Node: types.NewDirectory(
				types.Entry{Name: template.NewString("{{ project }}.go"), Node: types.NewFile(template.NewTemplatedContent("package {{ project }}"))},
			)},
			types.Entry{Name: template.NewString("LICENSE"), Node: types.NewFile(template.NewRawContent("MIT"))},
		),
	}
}

func TestBuildSortsAndResolvesNames(t *testing.T) {
	root, err := output.Build(sampleTemplate(), output.RenderingNamer(template.Variables{"project": "demo"}))
	require.NoError(t, err)

	assert.Equal(t, "demo", root.Name)
	assert.Equal(t, "", root.Path)
	require.Len(t, root.Children, 2)
	assert.Equal(t, "LICENSE", root.Children[0].Name)
	assert.Equal(t, output.NodeTypeFile, root.Children[0].Type)
	assert.Equal(t, string(template.Raw), root.Children[0].Content)
	assert.Equal(t, int64(3), root.Children[0].SizeBytes)
	assert.Equal(t, "src/demo.go", root.Children[1].Children[0].Path)

	assert.Equal(t, output.Summary{Files: 2, Directories: 2, Bytes: 24}, output.Summarize(root))
}

func TestBuildReportsUnrenderableNames(t *testing.T) {
	_, err := output.Build(sampleTemplate(), output.RenderingNamer(nil))
	assert.ErrorIs(t, err, template.ErrRender)

	root, err := output.Build(sampleTemplate(), output.SourceNamer)
	require.NoError(t, err)
	assert.Equal(t, "src/{{ project }}.go", root.Children[1].Children[0].Path)
}

func TestWriteFormats(t *testing.T) {
	root, err := output.Build(sampleTemplate(), output.RenderingNamer(template.Variables{"project": "demo"}))
	require.NoError(t, err)

	testCases := []struct {
		format   string
		expected string
	}{
		{
			format:   output.FormatList,
			expected: "LICENSE\nsrc/\nsrc/demo.go\nSummary: 2 files, 2 directories, 24b\n",
		},
		{
			format:   output.FormatTree,
			expected: "demo/\n├── LICENSE\n└── src/\n    └── demo.go\nSummary: 2 files, 2 directories, 24b\n",
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.format, func(t *testing.T) {
			var buffer bytes.Buffer
			require.NoError(t, output.Write(&buffer, testCase.format, root))
			assert.Equal(t, testCase.expected, buffer.String())
		})
	}

	t.Run(output.FormatJSON, func(t *testing.T) {
		var buffer bytes.Buffer
		require.NoError(t, output.Write(&buffer, output.FormatJSON, root))
		assert.Contains(t, buffer.String(), `"path": "src/demo.go"`)
		assert.Contains(t, buffer.String(), `"content": "templated"`)
	})

	t.Run(output.FormatXML, func(t *testing.T) {
		var buffer bytes.Buffer
		require.NoError(t, output.Write(&buffer, output.FormatXML, root))
		assert.True(t, strings.HasPrefix(buffer.String(), xml.Header))
		var decoded output.Node
		require.NoError(t, xml.Unmarshal([]byte(strings.TrimPrefix(buffer.String(), xml.Header)), &decoded))
		assert.Equal(t, "demo", decoded.Name)
		require.Len(t, decoded.Children, 2)
		assert.Equal(t, "src/demo.go", decoded.Children[1].Children[0].Path)
	})

	t.Run(output.FormatYAML, func(t *testing.T) {
		var buffer bytes.Buffer
		require.NoError(t, output.Write(&buffer, output.FormatYAML, root))
		assert.NotContains(t, buffer.String(), "xmlname")
		var decoded output.Node
		require.NoError(t, yaml.Unmarshal(buffer.Bytes(), &decoded))
		assert.Equal(t, "demo", decoded.Name)
		require.Len(t, decoded.Children, 2)
		assert.Equal(t, "raw", decoded.Children[0].Content)
		assert.Equal(t, "src/demo.go", decoded.Children[1].Children[0].Path)
	})

	assert.Error(t, output.Write(&bytes.Buffer{}, "csv", root))
	assert.False(t, output.IsSupportedFormat("csv"))
	assert.True(t, output.IsSupportedFormat(output.FormatYAML))
}
