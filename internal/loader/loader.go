// Package loader walks a template directory and builds its in-memory tree.
package loader

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/temirov/mold/internal/limits"
	"github.com/temirov/mold/internal/template"
	"github.com/temirov/mold/internal/types"
	"github.com/temirov/mold/internal/utils"
)

// Loader produces a template. Loaders are single-use.
type Loader interface {
	Load(ctx context.Context) (types.Template, error)
}

// Option customizes a ParsingLoader.
type Option func(*ParsingLoader)

// WithFileSystem reads the template from fileSystem instead of the operating system.
func WithFileSystem(fileSystem afero.Fs) Option {
	return func(parsingLoader *ParsingLoader) {
		parsingLoader.fileSystem = fileSystem
	}
}

// WithLogger reports progress to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(parsingLoader *ParsingLoader) {
		parsingLoader.logger = logger
	}
}

// WithEngine renders names and templated bodies with engine.
func WithEngine(engine template.Engine) Option {
	return func(parsingLoader *ParsingLoader) {
		parsingLoader.engine = engine
	}
}

// WithConcurrency bounds the filesystem operations in flight at once.
func WithConcurrency(concurrency int) Option {
	return func(parsingLoader *ParsingLoader) {
		parsingLoader.concurrency = concurrency
	}
}

// ParsingLoader loads a template from a directory on disk.
type ParsingLoader struct {
	options     Options
	fileSystem  afero.Fs
	logger      *zap.Logger
	engine      template.Engine
	concurrency int
	guard       Guard
}

// NewParsingLoader validates options and returns a loader for options.SourcePath.
func NewParsingLoader(options Options, loaderOptions ...Option) (*ParsingLoader, error) {
	if validationError := options.Validate(); validationError != nil {
		return nil, validationError
	}
	parsingLoader := &ParsingLoader{
		options:     options.normalized(),
		fileSystem:  afero.NewOsFs(),
		logger:      zap.NewNop(),
		engine:      template.DefaultEngine,
		concurrency: DefaultConcurrency,
	}
	for _, applyOption := range loaderOptions {
		applyOption(parsingLoader)
	}
	if parsingLoader.concurrency <= 0 {
		return nil, fmt.Errorf("%w: "+errorNonPositiveWorkers, limits.ErrInvalidArgument, parsingLoader.concurrency)
	}
	return parsingLoader, nil
}

// State reports whether Load has been called.
func (parsingLoader *ParsingLoader) State() State {
	return parsingLoader.guard.State()
}

// Load walks the source path and returns the template rooted there. Children
// are loaded concurrently; the first failure cancels the remaining work and is
// the only error returned. No partial template is ever returned.
func (parsingLoader *ParsingLoader) Load(ctx context.Context) (types.Template, error) {
	if guardError := parsingLoader.guard.Begin(); guardError != nil {
		return types.Template{}, guardError
	}
	tracker, trackerError := limits.NewTracker(parsingLoader.options.limitOptions())
	if trackerError != nil {
		return types.Template{}, trackerError
	}
	rootPath := parsingLoader.options.SourcePath
	if _, isOperatingSystem := parsingLoader.fileSystem.(*afero.OsFs); isOperatingSystem {
		absoluteRootPath, absolutePathError := filepath.Abs(rootPath)
		if absolutePathError != nil {
			return types.Template{}, fmt.Errorf(errorAbsolutePathFormat, rootPath, absolutePathError)
		}
		rootPath = absoluteRootPath
	}

	run := &loadRun{
		options:    parsingLoader.options,
		fileSystem: parsingLoader.fileSystem,
		logger:     parsingLoader.logger,
		engine:     parsingLoader.engine,
		tracker:    tracker,
		slots:      semaphore.NewWeighted(int64(parsingLoader.concurrency)),
		rootPath:   rootPath,
	}
	loaded, _, loadError := run.loadEntry(ctx, rootPath, true)
	if loadError != nil {
		parsingLoader.logger.Debug("template load failed", zap.String("source", rootPath), zap.Error(loadError))
		return types.Template{}, loadError
	}
	files, directories := types.Count(loaded.Node)
	parsingLoader.logger.Info("template loaded",
		zap.String("source", rootPath),
		zap.Int("files", files),
		zap.Int("directories", directories),
	)
	return loaded, nil
}

// loadRun is the state shared by every branch of one Load call. Only the
// tracker is mutated across branches.
type loadRun struct {
	options    Options
	fileSystem afero.Fs
	logger     *zap.Logger
	engine     template.Engine
	tracker    *limits.Tracker
	slots      *semaphore.Weighted
	rootPath   string
}

// loadEntry loads the file or directory at entryPath. The boolean result is
// false when include/exclude rules drop the entry.
func (run *loadRun) loadEntry(ctx context.Context, entryPath string, isRoot bool) (types.Entry, bool, error) {
	relativePath := utils.RelativeSlashPath(entryPath, run.rootPath)
	if !isRoot && utils.MatchesAnyPattern(relativePath, run.options.Exclude) {
		run.logger.Debug("excluded", zap.String("path", relativePath))
		return types.Entry{}, false, nil
	}

	info, statError := run.lstat(ctx, entryPath)
	if statError != nil {
		return types.Entry{}, false, statError
	}

	mode := info.Mode()
	switch {
	case mode&fs.ModeSymlink != 0:
		return types.Entry{}, false, &UnsupportedEntryError{Path: entryPath, Mode: mode}
	case mode.IsDir():
		entry, directoryError := run.loadDirectory(ctx, entryPath)
		return entry, directoryError == nil, directoryError
	case mode.IsRegular():
		if !isRoot && len(run.options.Include) > 0 && !utils.MatchesAnyPattern(relativePath, run.options.Include) {
			run.logger.Debug("not included", zap.String("path", relativePath))
			return types.Entry{}, false, nil
		}
		entry, fileError := run.loadFile(ctx, entryPath, info)
		return entry, fileError == nil, fileError
	default:
		return types.Entry{}, false, &UnsupportedEntryError{Path: entryPath, Mode: mode}
	}
}

func (run *loadRun) loadDirectory(ctx context.Context, directoryPath string) (types.Entry, error) {
	if trackError := run.tracker.TrackCount(1); trackError != nil {
		return types.Entry{}, trackError
	}
	name, nameError := run.loadName(filepath.Base(directoryPath))
	if nameError != nil {
		return types.Entry{}, nameError
	}

	childInfos, readError := run.readDirectory(ctx, directoryPath)
	if readError != nil {
		return types.Entry{}, readError
	}

	var entriesMutex sync.Mutex
	entries := make([]types.Entry, 0, len(childInfos))
	group, groupContext := errgroup.WithContext(ctx)
	for _, childInfo := range childInfos {
		childPath := filepath.Join(directoryPath, childInfo.Name())
		group.Go(func() error {
			child, included, childError := run.loadEntry(groupContext, childPath, false)
			if childError != nil || !included {
				return childError
			}
			entriesMutex.Lock()
			entries = append(entries, child)
			entriesMutex.Unlock()
			return nil
		})
	}
	if waitError := group.Wait(); waitError != nil {
		return types.Entry{}, waitError
	}

	run.logger.Debug("directory loaded", zap.String("path", directoryPath), zap.Int("entries", len(entries)))
	return types.Entry{Name: name, Node: types.NewDirectory(entries...)}, nil
}

func (run *loadRun) loadFile(ctx context.Context, filePath string, info os.FileInfo) (types.Entry, error) {
	// Name bytes are tracked before any check on the body.
	baseName := filepath.Base(filePath)
	logicalName, isTemplated := strings.CutSuffix(baseName, run.options.TemplatedExtension)
	name, nameError := run.loadName(logicalName)
	if nameError != nil {
		return types.Entry{}, nameError
	}

	size := info.Size()
	maxContentLength := run.options.MaxContentLength
	if maxContentLength != nil && size > *maxContentLength {
		return types.Entry{}, limits.NewContentLengthError(filePath, *maxContentLength, size)
	}
	if trackError := run.tracker.TrackCount(1); trackError != nil {
		return types.Entry{}, trackError
	}
	if size > 0 {
		if trackError := run.tracker.TrackBytes(size); trackError != nil {
			return types.Entry{}, trackError
		}
	}

	text, readError := run.readFile(ctx, filePath)
	if readError != nil {
		return types.Entry{}, readError
	}

	var content *template.Content
	if isTemplated {
		content = template.NewTemplatedContentWithEngine(text, run.engine)
	} else {
		content = template.NewRawContent(text)
	}
	run.logger.Debug("file loaded",
		zap.String("path", filePath),
		zap.String("kind", string(content.Kind())),
		zap.String("size", utils.FormatFileSize(size)),
	)
	return types.Entry{Name: name, Node: types.NewFile(content)}, nil
}

// loadName tracks the bytes of a node name and wraps it as a templated string.
func (run *loadRun) loadName(baseName string) (*template.String, error) {
	if nameLength := int64(len(baseName)); nameLength > 0 {
		if trackError := run.tracker.TrackBytes(nameLength); trackError != nil {
			return nil, trackError
		}
	}
	return template.NewStringWithEngine(baseName, run.engine), nil
}

// acquire takes an I/O slot. A cancelled load never starts new I/O.
func (run *loadRun) acquire(ctx context.Context) error {
	if contextError := ctx.Err(); contextError != nil {
		return contextError
	}
	return run.slots.Acquire(ctx, 1)
}

func (run *loadRun) lstat(ctx context.Context, entryPath string) (os.FileInfo, error) {
	if acquireError := run.acquire(ctx); acquireError != nil {
		return nil, acquireError
	}
	defer run.slots.Release(1)

	var info os.FileInfo
	var statError error
	if lstater, supportsLstat := run.fileSystem.(afero.Lstater); supportsLstat {
		info, _, statError = lstater.LstatIfPossible(entryPath)
	} else {
		info, statError = run.fileSystem.Stat(entryPath)
	}
	if statError != nil {
		return nil, fmt.Errorf(errorInspectPathFormat, entryPath, statError)
	}
	return info, nil
}

func (run *loadRun) readDirectory(ctx context.Context, directoryPath string) ([]os.FileInfo, error) {
	if acquireError := run.acquire(ctx); acquireError != nil {
		return nil, acquireError
	}
	defer run.slots.Release(1)

	childInfos, readError := afero.ReadDir(run.fileSystem, directoryPath)
	if readError != nil {
		return nil, fmt.Errorf(errorReadDirectoryFormat, directoryPath, readError)
	}
	return childInfos, nil
}

func (run *loadRun) readFile(ctx context.Context, filePath string) (string, error) {
	if acquireError := run.acquire(ctx); acquireError != nil {
		return "", acquireError
	}
	defer run.slots.Release(1)

	data, readError := afero.ReadFile(run.fileSystem, filePath)
	if readError != nil {
		return "", fmt.Errorf(errorReadFileFormat, filePath, readError)
	}
	return string(data), nil
}
