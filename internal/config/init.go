package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/temirov/mold/internal/loader"
	"github.com/temirov/mold/internal/utils"
)

// InitTarget selects the mold.yaml that init writes.
type InitTarget string

const (
	// InitTargetLocal writes ./mold.yaml.
	InitTargetLocal InitTarget = "local"
	// InitTargetGlobal writes ~/.mold/mold.yaml.
	InitTargetGlobal InitTarget = "global"

	defaultSourceDirectory = "template"

	defaultConfigurationFormat = `template:
  source: %s
  templated_extension: %s
  include: []
  exclude:
    - %s
  # Ceilings in files, directories and bytes. Zero disables a ceiling.
  max_file_count: %d
  max_memory_usage: %d
`

	configurationDirectoryPermissions = 0o755
	temporaryConfigurationPattern     = "mold-*.yaml"

	errorUnsupportedTargetFormat = "unsupported init target %q"
	errorHomeDirectoryFormat     = "resolve home directory for configuration: %w"
	errorCreateDirectoryFormat   = "create configuration directory %s: %w"
	errorExistsFormat            = "configuration file already exists at %s"
	errorInspectFormat           = "inspect configuration path %s: %w"
	errorWriteFormat             = "write configuration to %s: %w"
	errorValidateFormat          = "default configuration is not loadable: %w"
)

// InitOptions controls InitializeConfiguration.
type InitOptions struct {
	Target InitTarget
	// Force replaces an existing file.
	Force            bool
	WorkingDirectory string
}

// DefaultConfiguration returns the mold.yaml body init writes. Its values
// mirror loader.DefaultOptions.
func DefaultConfiguration() string {
	return fmt.Sprintf(defaultConfigurationFormat,
		defaultSourceDirectory,
		loader.DefaultTemplatedExtension,
		utils.GitDirectoryName,
		loader.DefaultMaxCount,
		loader.DefaultMaxBytes,
	)
}

// InitializeConfiguration writes DefaultConfiguration to the target and
// returns its path. The file is staged next to the destination and loaded
// back before it replaces anything.
func InitializeConfiguration(options InitOptions) (string, error) {
	destinationPath, resolveError := initDestination(options)
	if resolveError != nil {
		return "", resolveError
	}

	_, statError := os.Stat(destinationPath)
	switch {
	case statError == nil && !options.Force:
		return "", fmt.Errorf(errorExistsFormat, destinationPath)
	case statError != nil && !errors.Is(statError, os.ErrNotExist):
		return "", fmt.Errorf(errorInspectFormat, destinationPath, statError)
	}

	stagedPath, stageError := stageConfiguration(filepath.Dir(destinationPath))
	if stageError != nil {
		return "", fmt.Errorf(errorWriteFormat, destinationPath, stageError)
	}
	defer os.Remove(stagedPath)

	staged, loadError := loadConfigurationFromPath(stagedPath)
	if loadError != nil {
		return "", fmt.Errorf(errorValidateFormat, loadError)
	}
	if validateError := staged.ToLoaderOptions("", filepath.Dir(destinationPath)).Validate(); validateError != nil {
		return "", fmt.Errorf(errorValidateFormat, validateError)
	}

	if renameError := os.Rename(stagedPath, destinationPath); renameError != nil {
		return "", fmt.Errorf(errorWriteFormat, destinationPath, renameError)
	}
	return destinationPath, nil
}

func initDestination(options InitOptions) (string, error) {
	switch options.Target {
	case InitTargetLocal, "":
		workingDirectory := options.WorkingDirectory
		if workingDirectory == "" {
			current, err := os.Getwd()
			if err != nil {
				return "", fmt.Errorf(errorWorkingDirectoryFormat, err)
			}
			workingDirectory = current
		}
		return filepath.Join(workingDirectory, utils.ConfigFileName), nil
	case InitTargetGlobal:
		homeDirectory, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf(errorHomeDirectoryFormat, err)
		}
		configurationDirectory := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName)
		if err := os.MkdirAll(configurationDirectory, configurationDirectoryPermissions); err != nil {
			return "", fmt.Errorf(errorCreateDirectoryFormat, configurationDirectory, err)
		}
		return filepath.Join(configurationDirectory, utils.ConfigFileName), nil
	default:
		return "", fmt.Errorf(errorUnsupportedTargetFormat, options.Target)
	}
}

// stageConfiguration writes the default body to a temporary file in directory.
func stageConfiguration(directory string) (string, error) {
	staged, createError := os.CreateTemp(directory, temporaryConfigurationPattern)
	if createError != nil {
		return "", createError
	}
	_, writeError := staged.WriteString(DefaultConfiguration())
	closeError := staged.Close()
	if writeError == nil {
		writeError = closeError
	}
	if writeError != nil {
		os.Remove(staged.Name())
		return "", writeError
	}
	return staged.Name(), nil
}
