// Package cli provides the command line interface.
package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/mold/internal/bundle"
	"github.com/temirov/mold/internal/config"
	"github.com/temirov/mold/internal/loader"
	"github.com/temirov/mold/internal/output"
	"github.com/temirov/mold/internal/services/clipboard"
	"github.com/temirov/mold/internal/template"
	"github.com/temirov/mold/internal/tree"
	"github.com/temirov/mold/internal/types"
	"github.com/temirov/mold/internal/utils"
	"github.com/temirov/mold/internal/watcher"
)

const (
	versionFlagName      = "version"
	configFlagName       = "config"
	verboseFlagName      = "verbose"
	versionTemplate      = "mold version: %s\n"
	defaultPath          = "."
	rootUse              = "mold"
	rootShortDescription = "mold command line interface"
	rootLongDescription  = `mold loads template directories into render-ready trees.
Files ending in the templated extension (.handlebars by default) have handlebars bodies; every name may contain placeholders.
Use tree to list a template, bundle to snapshot it into a single template.json, and init to write a mold.yaml.`
	versionFlagDescription = "display application version"
	configFlagDescription  = "path to a mold.yaml file"
	verboseFlagDescription = "log every loaded entry"

	treeUse              = "tree [template-dir]"
	treeAlias            = "t"
	treeShortDescription = "list the paths a template renders to (" + treeAlias + ")"
	treeLongDescription  = `Load a template and print the path of every file and directory it contains.
Names are rendered with the variables given through --var unless --sources is set.`
	treeUsageExample = `  # List a template with its placeholders filled in
  mold tree ./template --var project=demo

  # List a bundle and copy the listing to the clipboard
  mold tree ./bundles/demo --bundle --sources --copy`

	bundleUse              = "bundle [template-dir] <destination>"
	bundleAlias            = "b"
	bundleShortDescription = "snapshot a template into a bundle directory (" + bundleAlias + ")"
	bundleLongDescription  = `Load a template and write it to <destination>/template.json.
The template directory defaults to the source configured in mold.yaml.`
	bundleUsageExample = `  # Bundle a template, ignoring editor backups
  mold bundle ./template ./bundles/demo -e '*.bak'

  # Keep the bundle current while editing the template
  mold bundle ./template ./bundles/demo --watch`

	initUse              = "init"
	initShortDescription = "write a default mold.yaml"
	initLongDescription  = `Write the default configuration to ./mold.yaml, or to ~/.mold/mold.yaml with --global.`

	variableFlagName           = "var"
	variableFlagDescription    = "template variable as key=value (repeatable)"
	bundleFlagName             = "bundle"
	bundleFlagDescription      = "read the template from a bundle directory"
	checkFlagName              = "check"
	checkFlagDescription       = "compile every name and templated body before listing"
	sourcesFlagName            = "sources"
	sourcesFlagDescription     = "print names unrendered"
	copyFlagName               = "copy"
	formatFlagName             = "format"
	formatFlagDescription      = "output format: list, tree, json, xml or yaml"
	copyFlagDescription        = "copy the listing to the system clipboard"
	includeFlagName            = "include"
	includeFlagShorthand       = "i"
	includeFlagDescription     = "keep only files matching the pattern (repeatable)"
	excludeFlagName            = "exclude"
	excludeFlagShorthand       = "e"
	excludeFlagDescription     = "skip files and directories matching the pattern (repeatable)"
	extensionFlagName          = "extension"
	extensionFlagDescription   = "suffix marking templated file bodies"
	maxFileCountFlagName       = "max-file-count"
	maxFileCountDescription    = "maximum files and directories, 0 for no limit"
	maxMemoryUsageFlagName     = "max-memory-usage"
	maxMemoryUsageDescription  = "maximum bytes of names and bodies, 0 for no limit"
	maxContentLengthFlagName   = "max-file-content-length"
	maxLengthDescription       = "maximum bytes of a single file, 0 for no limit"
	globalFlagName             = "global"
	globalFlagDescription      = "write the configuration under the home directory"
	forceFlagName              = "force"
	forceFlagDescription       = "overwrite an existing configuration"
	watchFlagName              = "watch"
	watchFlagDescription       = "rewrite the bundle whenever the template changes"

	directorySuffix             = "/"
	invalidFormatMessage        = "invalid format value '%s' (expected one of %s)"
	workingDirectoryErrorFormat = "unable to determine working directory: %w"
	errorCheckFormat            = "template entry %q does not compile: %w"
	errorListFormat             = "listing template: %w"
	errorBundleFormat           = "bundling %s: %w"
	clipboardCopyErrorFormat    = "copy to clipboard: %w"
	clipboardServiceMissing     = "clipboard service is not configured"
	clipboardUnavailable        = "system clipboard is not available"
	configurationWrittenFormat  = "configuration written to %s\n"
	bundleWrittenFormat         = "bundle written to %s\n"
	collisionWarningMessage     = "template directory holds entries with the same name"
	watchingMessage             = "watching template for changes"
)

// Dependencies are the collaborators commands run against.
type Dependencies struct {
	Logger    *zap.Logger
	Clipboard clipboard.Copier
	// WorkingDirectory resolves relative paths; empty means the process working directory.
	WorkingDirectory string
	// SkipGlobalConfiguration ignores ~/.mold/mold.yaml.
	SkipGlobalConfiguration bool
}

// Execute runs the mold application with the process arguments.
func Execute(ctx context.Context, dependencies Dependencies) error {
	rootCommand := NewRootCommand(dependencies)
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, os.Args[1:]))
	return rootCommand.ExecuteContext(ctx)
}

// application holds the state shared by the commands of one invocation.
type application struct {
	dependencies      Dependencies
	configurationPath string
	verbose           bool
	logger            *zap.Logger
}

// NewRootCommand builds the root Cobra command.
func NewRootCommand(dependencies Dependencies) *cobra.Command {
	if dependencies.Logger == nil {
		dependencies.Logger = zap.NewNop()
	}
	app := &application{dependencies: dependencies, logger: dependencies.Logger}
	var showVersion bool

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		SilenceUsage: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			if showVersion {
				_, err := fmt.Fprintf(command.OutOrStdout(), versionTemplate, utils.GetApplicationVersion())
				return err
			}
			return command.Help()
		},
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			if !app.verbose {
				return nil
			}
			verboseLogger, loggerError := utils.NewVerboseLogger()
			if loggerError != nil {
				return fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerError)
			}
			app.logger = verboseLogger
			return nil
		},
	}
	rootCommand.Flags().BoolVar(&showVersion, versionFlagName, false, versionFlagDescription)
	rootCommand.PersistentFlags().StringVar(&app.configurationPath, configFlagName, "", configFlagDescription)
	registerBooleanFlag(rootCommand.PersistentFlags(), &app.verbose, verboseFlagName, false, verboseFlagDescription)
	rootCommand.AddCommand(
		app.createTreeCommand(),
		app.createBundleCommand(),
		app.createInitCommand(),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

func (app *application) workingDirectory() (string, error) {
	if app.dependencies.WorkingDirectory != "" {
		return app.dependencies.WorkingDirectory, nil
	}
	workingDirectory, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf(workingDirectoryErrorFormat, err)
	}
	return workingDirectory, nil
}

func (app *application) resolvePath(path string) (string, error) {
	if path == "" || filepath.IsAbs(path) {
		return path, nil
	}
	workingDirectory, err := app.workingDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(workingDirectory, path), nil
}

// loaderFlags override the configured loader options when set on the command line.
type loaderFlags struct {
	include          []string
	exclude          []string
	extension        string
	maxFileCount     int64
	maxMemoryUsage   int64
	maxContentLength int64
}

func addLoaderFlags(command *cobra.Command, flags *loaderFlags) {
	command.Flags().StringArrayVarP(&flags.include, includeFlagName, includeFlagShorthand, nil, includeFlagDescription)
	command.Flags().StringArrayVarP(&flags.exclude, excludeFlagName, excludeFlagShorthand, nil, excludeFlagDescription)
	command.Flags().StringVar(&flags.extension, extensionFlagName, loader.DefaultTemplatedExtension, extensionFlagDescription)
	command.Flags().Int64Var(&flags.maxFileCount, maxFileCountFlagName, loader.DefaultMaxCount, maxFileCountDescription)
	command.Flags().Int64Var(&flags.maxMemoryUsage, maxMemoryUsageFlagName, loader.DefaultMaxBytes, maxMemoryUsageDescription)
	command.Flags().Int64Var(&flags.maxContentLength, maxContentLengthFlagName, 0, maxLengthDescription)
}

func (flags *loaderFlags) apply(command *cobra.Command, options *loader.Options) {
	changed := command.Flags().Changed
	if changed(includeFlagName) {
		options.Include = append(options.Include, flags.include...)
	}
	if changed(excludeFlagName) {
		options.Exclude = append(options.Exclude, flags.exclude...)
	}
	if changed(extensionFlagName) {
		options.TemplatedExtension = flags.extension
	}
	if changed(maxFileCountFlagName) {
		options.MaxCount = ceilingFromFlag(flags.maxFileCount)
	}
	if changed(maxMemoryUsageFlagName) {
		options.MaxBytes = ceilingFromFlag(flags.maxMemoryUsage)
	}
	if changed(maxContentLengthFlagName) {
		options.MaxContentLength = ceilingFromFlag(flags.maxContentLength)
	}
}

func ceilingFromFlag(value int64) *int64 {
	if value == 0 {
		return nil
	}
	return &value
}

// loaderOptions merges mold.yaml with the command line flags. An empty
// sourcePath falls back to the configured source and then to the working directory.
func (app *application) loaderOptions(command *cobra.Command, sourcePath string, flags *loaderFlags) (loader.Options, error) {
	workingDirectory, workingDirectoryError := app.workingDirectory()
	if workingDirectoryError != nil {
		return loader.Options{}, workingDirectoryError
	}
	configuration, configurationError := config.Load(config.LoadOptions{
		WorkingDirectory: workingDirectory,
		ExplicitFilePath: app.configurationPath,
		SkipGlobal:       app.dependencies.SkipGlobalConfiguration,
	})
	if configurationError != nil {
		return loader.Options{}, configurationError
	}
	resolvedSource, resolveError := app.resolvePath(sourcePath)
	if resolveError != nil {
		return loader.Options{}, resolveError
	}
	options := configuration.ToLoaderOptions(resolvedSource, workingDirectory)
	if options.SourcePath == "" {
		options.SourcePath = workingDirectory
	}
	flags.apply(command, &options)
	return options, nil
}

func (app *application) newParsingLoader(command *cobra.Command, sourcePath string, flags *loaderFlags) (*loader.ParsingLoader, error) {
	options, optionsError := app.loaderOptions(command, sourcePath, flags)
	if optionsError != nil {
		return nil, optionsError
	}
	return loader.NewParsingLoader(options, loader.WithLogger(app.logger))
}

// createTreeCommand returns the tree subcommand.
func (app *application) createTreeCommand() *cobra.Command {
	var flags loaderFlags
	var variables template.Variables
	var fromBundle bool
	var checkEntries bool
	var printSources bool
	var copyToClipboard bool
	outputFormat := output.FormatList

	treeCommand := &cobra.Command{
		Use:     treeUse,
		Aliases: []string{treeAlias},
		Short:   treeShortDescription,
		Long:    treeLongDescription,
		Example: treeUsageExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			outputFormat = strings.ToLower(strings.TrimSpace(outputFormat))
			if !output.IsSupportedFormat(outputFormat) {
				return fmt.Errorf(invalidFormatMessage, outputFormat, strings.Join(output.SupportedFormats(), ", "))
			}
			var sourcePath string
			if len(arguments) > 0 {
				sourcePath = arguments[0]
			}
			var templateLoader loader.Loader
			if fromBundle {
				if sourcePath == "" {
					sourcePath = defaultPath
				}
				bundleDirectory, resolveError := app.resolvePath(sourcePath)
				if resolveError != nil {
					return resolveError
				}
				templateLoader = bundle.NewLoader(bundleDirectory, bundle.WithLogger(app.logger))
			} else {
				parsingLoader, loaderError := app.newParsingLoader(command, sourcePath, &flags)
				if loaderError != nil {
					return loaderError
				}
				templateLoader = parsingLoader
			}

			loaded, loadError := templateLoader.Load(command.Context())
			if loadError != nil {
				return loadError
			}
			if checkEntries {
				if checkError := checkTemplate(loaded); checkError != nil {
					return checkError
				}
			}
			for _, collision := range types.FindCollisions(loaded.Node) {
				app.logger.Warn(collisionWarningMessage, zap.String("path", collision))
			}
			namer := output.RenderingNamer(variables)
			if printSources {
				namer = output.SourceNamer
			}
			root, buildError := output.Build(loaded, namer)
			if buildError != nil {
				return fmt.Errorf(errorListFormat, buildError)
			}
			return app.writeOutput(command.OutOrStdout(), copyToClipboard, func(writer io.Writer) error {
				return output.Write(writer, outputFormat, root)
			})
		},
	}

	addLoaderFlags(treeCommand, &flags)
	registerVariablesFlag(treeCommand.Flags(), &variables, variableFlagName, variableFlagDescription)
	registerBooleanFlag(treeCommand.Flags(), &fromBundle, bundleFlagName, false, bundleFlagDescription)
	registerBooleanFlag(treeCommand.Flags(), &checkEntries, checkFlagName, false, checkFlagDescription)
	registerBooleanFlag(treeCommand.Flags(), &printSources, sourcesFlagName, false, sourcesFlagDescription)
	registerBooleanFlag(treeCommand.Flags(), &copyToClipboard, copyFlagName, false, copyFlagDescription)
	treeCommand.Flags().StringVar(&outputFormat, formatFlagName, output.FormatList, formatFlagDescription)
	return treeCommand
}

// createBundleCommand returns the bundle subcommand.
func (app *application) createBundleCommand() *cobra.Command {
	var flags loaderFlags
	var watch bool

	bundleCommand := &cobra.Command{
		Use:     bundleUse,
		Aliases: []string{bundleAlias},
		Short:   bundleShortDescription,
		Long:    bundleLongDescription,
		Example: bundleUsageExample,
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(command *cobra.Command, arguments []string) error {
			var sourcePath string
			destination := arguments[len(arguments)-1]
			if len(arguments) == 2 {
				sourcePath = arguments[0]
			}
			options, optionsError := app.loaderOptions(command, sourcePath, &flags)
			if optionsError != nil {
				return optionsError
			}
			resolvedDestination, resolveError := app.resolvePath(destination)
			if resolveError != nil {
				return resolveError
			}
			if bundleError := app.writeBundle(command, options, resolvedDestination); bundleError != nil {
				return bundleError
			}
			if !watch {
				return nil
			}
			app.logger.Info(watchingMessage, zap.String("source", options.SourcePath))
			return watcher.Watch(command.Context(), watcher.Options{
				Root:   options.SourcePath,
				Ignore: watchIgnore(options, resolvedDestination),
				Logger: app.logger,
			}, func(context.Context) error {
				return app.writeBundle(command, options, resolvedDestination)
			})
		},
	}
	addLoaderFlags(bundleCommand, &flags)
	registerBooleanFlag(bundleCommand.Flags(), &watch, watchFlagName, false, watchFlagDescription)
	return bundleCommand
}

// writeBundle loads the template afresh and snapshots it to destination.
func (app *application) writeBundle(command *cobra.Command, options loader.Options, destination string) error {
	parsingLoader, loaderError := loader.NewParsingLoader(options, loader.WithLogger(app.logger))
	if loaderError != nil {
		return loaderError
	}
	loaded, loadError := parsingLoader.Load(command.Context())
	if loadError != nil {
		return loadError
	}
	if bundleError := bundle.Bundle(afero.NewOsFs(), loaded, destination); bundleError != nil {
		return fmt.Errorf(errorBundleFormat, destination, bundleError)
	}
	app.logger.Info("bundle written", zap.String("destination", destination))
	_, err := fmt.Fprintf(command.OutOrStdout(), bundleWrittenFormat, destination)
	return err
}

// watchIgnore skips the bundle destination and excluded paths.
func watchIgnore(options loader.Options, destination string) func(string) bool {
	return func(path string) bool {
		if path == destination || strings.HasPrefix(path, destination+string(filepath.Separator)) {
			return true
		}
		relativePath := utils.RelativeSlashPath(path, options.SourcePath)
		return utils.MatchesAnyPattern(relativePath, options.Exclude)
	}
}

// createInitCommand returns the init subcommand.
func (app *application) createInitCommand() *cobra.Command {
	var global bool
	var force bool

	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Long:  initLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			workingDirectory, workingDirectoryError := app.workingDirectory()
			if workingDirectoryError != nil {
				return workingDirectoryError
			}
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			path, initError := config.InitializeConfiguration(config.InitOptions{
				Target:           target,
				Force:            force,
				WorkingDirectory: workingDirectory,
			})
			if initError != nil {
				return initError
			}
			_, err := fmt.Fprintf(command.OutOrStdout(), configurationWrittenFormat, path)
			return err
		},
	}
	registerBooleanFlag(initCommand.Flags(), &global, globalFlagName, false, globalFlagDescription)
	registerBooleanFlag(initCommand.Flags(), &force, forceFlagName, false, forceFlagDescription)
	return initCommand
}

// writeOutput sends produce's output to writer and, when requested, to the clipboard.
func (app *application) writeOutput(writer io.Writer, copyToClipboard bool, produce func(io.Writer) error) error {
	var clipboardBuffer *bytes.Buffer
	if copyToClipboard {
		if app.dependencies.Clipboard == nil {
			return errors.New(clipboardServiceMissing)
		}
		if availability, reportsAvailability := app.dependencies.Clipboard.(interface{ Available() bool }); reportsAvailability && !availability.Available() {
			return errors.New(clipboardUnavailable)
		}
		clipboardBuffer = &bytes.Buffer{}
		writer = io.MultiWriter(writer, clipboardBuffer)
	}
	if produceError := produce(writer); produceError != nil {
		return produceError
	}
	if clipboardBuffer != nil {
		if copyError := app.dependencies.Clipboard.Copy(clipboardBuffer.String()); copyError != nil {
			return fmt.Errorf(clipboardCopyErrorFormat, copyError)
		}
	}
	return nil
}

// checkTemplate compiles every templated name and body.
func checkTemplate(loaded types.Template) error {
	if nameError := loaded.Name.Validate(); nameError != nil {
		return fmt.Errorf(errorCheckFormat, loaded.Name.Source(), nameError)
	}
	visitor := types.VisitorFuncs{
		Directory: func(nodePath string, directory *types.Directory) (tree.Result, error) {
			for _, entry := range directory.Entries {
				if nameError := entry.Name.Validate(); nameError != nil {
					return tree.Stop, fmt.Errorf(errorCheckFormat, joinListingPath(nodePath, entry.Name.Source()), nameError)
				}
			}
			return tree.Continue, nil
		},
		File: func(nodePath string, file *types.File) (tree.Result, error) {
			if contentError := file.Value.Validate(); contentError != nil {
				return tree.Stop, fmt.Errorf(errorCheckFormat, nodePath, contentError)
			}
			return tree.Continue, nil
		},
	}
	_, walkError := tree.Walk(loaded.Node, visitor, output.SourceNamer)
	return walkError
}

func joinListingPath(parent string, name string) string {
	if parent == "" {
		return name
	}
	return parent + directorySuffix + name
}
