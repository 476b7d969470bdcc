package loader_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temirov/mold/internal/limits"
	"github.com/temirov/mold/internal/loader"
	"github.com/temirov/mold/internal/template"
	"github.com/temirov/mold/internal/tree"
	"github.com/temirov/mold/internal/types"
)

const templateRoot = "/template"

func writeFiles(t *testing.T, fileSystem afero.Fs, files map[string]string) {
	t.Helper()
	for relativePath, content := range files {
		fullPath := filepath.Join(templateRoot, relativePath)
		require.NoError(t, fileSystem.MkdirAll(filepath.Dir(fullPath), 0o755))
		require.NoError(t, afero.WriteFile(fileSystem, fullPath, []byte(content), 0o644))
	}
}

func unlimitedOptions() loader.Options {
	options := loader.DefaultOptions()
	options.SourcePath = templateRoot
	options.MaxCount = nil
	options.MaxBytes = nil
	return options
}

func loadMemory(t *testing.T, files map[string]string, options loader.Options) (types.Template, error) {
	t.Helper()
	fileSystem := afero.NewMemMapFs()
	require.NoError(t, fileSystem.MkdirAll(templateRoot, 0o755))
	writeFiles(t, fileSystem, files)
	parsingLoader, err := loader.NewParsingLoader(options, loader.WithFileSystem(fileSystem))
	require.NoError(t, err)
	return parsingLoader.Load(context.Background())
}

type renderedFile struct {
	path    string
	content string
}

func renderFiles(t *testing.T, loaded types.Template, variables template.Variables) []renderedFile {
	t.Helper()
	var files []renderedFile
	visitor := types.VisitorFuncs{
		File: func(nodePath string, file *types.File) (tree.Result, error) {
			rendered, err := file.Value.Render(variables)
			if err != nil {
				return tree.Stop, err
			}
			files = append(files, renderedFile{path: nodePath, content: rendered})
			return tree.Continue, nil
		},
	}
	_, err := types.Walk(loaded.Node, visitor, variables)
	require.NoError(t, err)
	sort.Slice(files, func(left, right int) bool { return files[left].path < files[right].path })
	return files
}

func TestLoadRawAndTemplatedFiles(t *testing.T) {
	loaded, err := loadMemory(t, map[string]string{
		"raw_file.txt":                   "hello, world",
		"handlebars_file.txt.handlebars": "{{ x }}, {{ y }}",
	}, loader.DefaultOptionsFor(templateRoot))
	require.NoError(t, err)

	assert.Equal(t, "template", loaded.Name.Source())
	files := renderFiles(t, loaded, template.Variables{"x": "1", "y": "2"})
	assert.Equal(t, []renderedFile{
		{path: "handlebars_file.txt", content: "1, 2"},
		{path: "raw_file.txt", content: "hello, world"},
	}, files)

	directory, isDirectory := loaded.Node.(*types.Directory)
	require.True(t, isDirectory)
	for _, entry := range directory.Entries {
		file := entry.Node.(*types.File)
		switch entry.Name.Source() {
		case "raw_file.txt":
			assert.Equal(t, template.Raw, file.Value.Kind())
		case "handlebars_file.txt":
			assert.Equal(t, template.Templated, file.Value.Kind())
			assert.Equal(t, "{{ x }}, {{ y }}", file.Value.Source())
		default:
			t.Fatalf("unexpected entry %s", entry.Name.Source())
		}
	}
}

func TestLoadCountsEveryFile(t *testing.T) {
	for _, fileCount := range []int{0, 1, 7, 40} {
		t.Run(fmt.Sprintf("%d files", fileCount), func(t *testing.T) {
			files := make(map[string]string, fileCount)
			for index := 0; index < fileCount; index++ {
				files[filepath.Join(fmt.Sprintf("dir%d", index%3), fmt.Sprintf("sub%d", index%2), fmt.Sprintf("file%d.txt", index))] = "x"
			}
			loaded, err := loadMemory(t, files, unlimitedOptions())
			require.NoError(t, err)
			loadedFiles, _ := types.Count(loaded.Node)
			assert.Equal(t, fileCount, loadedFiles)
		})
	}
}

func TestLoadRendersTemplatedNames(t *testing.T) {
	loaded, err := loadMemory(t, map[string]string{
		"{{ package }}/{{ package }}.go.handlebars": "package {{ package }}",
		"{{ package }}/README.md":                   "# {{ package }}",
	}, unlimitedOptions())
	require.NoError(t, err)

	files := renderFiles(t, loaded, template.Variables{"package": "widgets"})
	assert.Equal(t, []renderedFile{
		{path: "widgets/README.md", content: "# {{ package }}"},
		{path: "widgets/widgets.go", content: "package widgets"},
	}, files)
}

func TestLoadEmptyFilesAndDirectories(t *testing.T) {
	fileSystem := afero.NewMemMapFs()
	require.NoError(t, fileSystem.MkdirAll(filepath.Join(templateRoot, "empty"), 0o755))
	require.NoError(t, afero.WriteFile(fileSystem, filepath.Join(templateRoot, "blank.txt"), nil, 0o644))

	parsingLoader, err := loader.NewParsingLoader(loader.DefaultOptionsFor(templateRoot), loader.WithFileSystem(fileSystem))
	require.NoError(t, err)
	loaded, err := parsingLoader.Load(context.Background())
	require.NoError(t, err)

	files, directories := types.Count(loaded.Node)
	assert.Equal(t, 1, files)
	assert.Equal(t, 2, directories)
}

func TestLoadEnforcesFileCount(t *testing.T) {
	options := unlimitedOptions()
	options.MaxCount = limits.Ceiling(3)
	_, err := loadMemory(t, map[string]string{"a": "1", "b": "2", "c": "3"}, options)
	require.Error(t, err)
	assert.EqualError(t, err, "maximum file count limit exceeded: 3 files and/or directories")
	assert.ErrorIs(t, err, limits.ErrLimitExceeded)
}

func TestLoadCountIncludesRootDirectory(t *testing.T) {
	options := unlimitedOptions()
	options.MaxCount = limits.Ceiling(4)
	_, err := loadMemory(t, map[string]string{"a": "1", "b": "2", "c": "3"}, options)
	require.NoError(t, err)
}

func TestLoadEnforcesMemoryUsage(t *testing.T) {
	options := unlimitedOptions()
	// "template" + "a.txt" + 10 bytes of content is 23 bytes.
	options.MaxBytes = limits.Ceiling(23)
	_, err := loadMemory(t, map[string]string{"a.txt": "0123456789"}, options)
	require.NoError(t, err)

	options.MaxBytes = limits.Ceiling(22)
	_, err = loadMemory(t, map[string]string{"a.txt": "0123456789"}, options)
	assert.EqualError(t, err, "maximum memory usage limit exceeded: 22 bytes (0.000 MB)")
}

func TestLoadTracksFileNameBeforeBody(t *testing.T) {
	options := unlimitedOptions()
	// "template" + "a.txt" is 13 bytes, over the memory ceiling before the body is considered.
	options.MaxBytes = limits.Ceiling(12)
	options.MaxContentLength = limits.Ceiling(4)
	options.MaxCount = limits.Ceiling(1)
	_, err := loadMemory(t, map[string]string{"a.txt": "0123456789"}, options)
	require.Error(t, err)

	var exceededError *limits.ExceededError
	require.True(t, errors.As(err, &exceededError))
	assert.Equal(t, limits.MemoryUsage, exceededError.Kind)

	options.MaxBytes = nil
	_, err = loadMemory(t, map[string]string{"a.txt": "0123456789"}, options)
	require.True(t, errors.As(err, &exceededError))
	assert.Equal(t, limits.ContentLength, exceededError.Kind)
}

func TestLoadEnforcesContentLength(t *testing.T) {
	options := unlimitedOptions()
	options.MaxContentLength = limits.Ceiling(4)
	_, err := loadMemory(t, map[string]string{"it's\tbig.txt": "12345"}, options)
	require.Error(t, err)

	var exceededError *limits.ExceededError
	require.True(t, errors.As(err, &exceededError))
	assert.Equal(t, limits.ContentLength, exceededError.Kind)
	assert.Equal(t, int64(5), exceededError.Actual)
	assert.EqualError(t, err, `max file content length limit exceeded for file: '/template/it\'s\tbig.txt' (max length: 4, actual length: 5)`)

	_, err = loadMemory(t, map[string]string{"small.txt": "1234"}, options)
	assert.NoError(t, err)
}

func TestLoadIncludeAndExclude(t *testing.T) {
	options := unlimitedOptions()
	options.Exclude = []string{"node_modules/", "*.log"}
	options.Include = []string{"*.go", "*.handlebars", "docs/*.md"}
	loaded, err := loadMemory(t, map[string]string{
		"main.go":                        "package main",
		"main.go.handlebars":             "package {{ name }}",
		"debug.log":                      "noise",
		"notes.txt":                      "not included",
		"docs/guide.md":                  "guide",
		"docs/nested/deep.md":            "not matched by docs/*.md",
		"node_modules/pkg/index.go":      "excluded directory",
		"src/handler.go":                 "package src",
		"src/handler_test.go.handlebars": "package {{ name }}",
	}, options)
	require.NoError(t, err)

	files := renderFiles(t, loaded, template.Variables{"name": "demo"})
	var paths []string
	for _, file := range files {
		paths = append(paths, file.path)
	}
	assert.ElementsMatch(t, []string{"main.go", "main.go", "docs/guide.md", "src/handler.go", "src/handler_test.go"}, paths)
	assert.Equal(t, []string{"main.go"}, types.FindCollisions(loaded.Node))
}

func TestLoadIsSingleUse(t *testing.T) {
	fileSystem := afero.NewMemMapFs()
	require.NoError(t, fileSystem.MkdirAll(templateRoot, 0o755))
	parsingLoader, err := loader.NewParsingLoader(loader.DefaultOptionsFor(templateRoot), loader.WithFileSystem(fileSystem))
	require.NoError(t, err)
	assert.Equal(t, loader.NotStarted, parsingLoader.State())

	_, err = parsingLoader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, loader.Completed, parsingLoader.State())

	_, err = parsingLoader.Load(context.Background())
	assert.ErrorIs(t, err, loader.ErrAlreadyConsumed)
}

func TestLoadRejectsSymbolicLinks(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "target.txt"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "nested"), 0o755))
	if linkError := os.Symlink(filepath.Join(root, "target.txt"), filepath.Join(root, "nested", "link.txt")); linkError != nil {
		t.Skipf("symbolic links unavailable: %v", linkError)
	}

	parsingLoader, err := loader.NewParsingLoader(loader.DefaultOptionsFor(root))
	require.NoError(t, err)
	_, err = parsingLoader.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, loader.ErrUnsupportedEntryType)
	assert.Contains(t, err.Error(), "symbolic links are not allowed")
}

func TestLoadFromOperatingSystem(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "b", "c.txt.handlebars"), []byte("{{ v }}"), 0o644))

	parsingLoader, err := loader.NewParsingLoader(loader.DefaultOptionsFor(root))
	require.NoError(t, err)
	loaded, err := parsingLoader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(root), loaded.Name.Source())
	assert.Equal(t, []renderedFile{{path: "a/b/c.txt", content: "ok"}}, renderFiles(t, loaded, template.Variables{"v": "ok"}))
}

func TestLoadMissingSource(t *testing.T) {
	parsingLoader, err := loader.NewParsingLoader(loader.DefaultOptionsFor(templateRoot), loader.WithFileSystem(afero.NewMemMapFs()))
	require.NoError(t, err)
	_, err = parsingLoader.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inspecting /template")
}

func TestLoadHonorsCancellation(t *testing.T) {
	fileSystem := afero.NewMemMapFs()
	require.NoError(t, fileSystem.MkdirAll(templateRoot, 0o755))
	writeFiles(t, fileSystem, map[string]string{"a.txt": "a"})
	parsingLoader, err := loader.NewParsingLoader(loader.DefaultOptionsFor(templateRoot), loader.WithFileSystem(fileSystem))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = parsingLoader.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewParsingLoaderValidatesOptions(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*loader.Options)
		options []loader.Option
	}{
		{name: "empty source", mutate: func(options *loader.Options) { options.SourcePath = "" }},
		{name: "empty extension", mutate: func(options *loader.Options) { options.TemplatedExtension = "" }},
		{name: "zero content length", mutate: func(options *loader.Options) { options.MaxContentLength = limits.Ceiling(0) }},
		{name: "negative count", mutate: func(options *loader.Options) { options.MaxCount = limits.Ceiling(-1) }},
		{name: "zero bytes", mutate: func(options *loader.Options) { options.MaxBytes = limits.Ceiling(0) }},
		{name: "zero concurrency", mutate: func(*loader.Options) {}, options: []loader.Option{loader.WithConcurrency(0)}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			options := loader.DefaultOptionsFor(templateRoot)
			testCase.mutate(&options)
			parsingLoader, err := loader.NewParsingLoader(options, testCase.options...)
			assert.Nil(t, parsingLoader)
			assert.ErrorIs(t, err, limits.ErrInvalidArgument)
		})
	}
}
