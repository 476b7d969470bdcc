// Package config reads mold.yaml files and turns them into loader options.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/temirov/mold/internal/limits"
	"github.com/temirov/mold/internal/loader"
	"github.com/temirov/mold/internal/utils"
)

const (
	errorWorkingDirectoryFormat = "determine working directory: %w"
	errorResolvePathFormat      = "resolve configuration path %s: %w"
	errorStatFormat             = "stat configuration %s: %w"
	errorDirectoryFormat        = "configuration path %s is a directory"
	errorReadFormat             = "read configuration from %s: %w"
	errorDecodeFormat           = "decode configuration from %s: %w"
)

// LoadOptions controls how configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
	// SkipGlobal ignores the configuration under the user's home directory.
	SkipGlobal bool
}

// Configuration is the content of a mold.yaml file.
type Configuration struct {
	Template TemplateConfiguration `mapstructure:"template"`
}

// TemplateConfiguration mirrors loader.Options. A ceiling of zero disables
// that limit; an absent ceiling keeps the default.
type TemplateConfiguration struct {
	Source               string   `mapstructure:"source"`
	TemplatedExtension   string   `mapstructure:"templated_extension"`
	Include              []string `mapstructure:"include"`
	Exclude              []string `mapstructure:"exclude"`
	MaxFileContentLength *int64   `mapstructure:"max_file_content_length"`
	MaxFileCount         *int64   `mapstructure:"max_file_count"`
	MaxMemoryUsage       *int64   `mapstructure:"max_memory_usage"`
}

// Load reads the global configuration and then the local one, letting the
// local file override the global file key by key. Missing files are not errors.
func Load(options LoadOptions) (Configuration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return Configuration{}, fmt.Errorf(errorWorkingDirectoryFormat, err)
		}
		workingDirectory = currentDirectory
	}

	var merged Configuration

	if !options.SkipGlobal {
		if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
			globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName)
			globalConfig, loadErr := loadConfigurationFromPath(globalPath)
			if loadErr != nil {
				return Configuration{}, loadErr
			}
			merged = merged.Merge(globalConfig)
		}
	}

	localPath, resolveErr := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if resolveErr != nil {
		return Configuration{}, resolveErr
	}
	localConfig, loadErr := loadConfigurationFromPath(localPath)
	if loadErr != nil {
		return Configuration{}, loadErr
	}
	merged = merged.Merge(localConfig)

	merged.Template.Include = utils.DeduplicatePatterns(merged.Template.Include)
	merged.Template.Exclude = utils.DeduplicatePatterns(merged.Template.Exclude)
	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) (string, error) {
	if explicitPath == "" {
		return filepath.Join(workingDirectory, utils.ConfigFileName), nil
	}
	if filepath.IsAbs(explicitPath) {
		return explicitPath, nil
	}
	absolute, err := filepath.Abs(filepath.Join(workingDirectory, explicitPath))
	if err != nil {
		return "", fmt.Errorf(errorResolvePathFormat, explicitPath, err)
	}
	return absolute, nil
}

func loadConfigurationFromPath(path string) (Configuration, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return Configuration{}, nil
		}
		return Configuration{}, fmt.Errorf(errorStatFormat, path, statErr)
	}
	if info.IsDir() {
		return Configuration{}, fmt.Errorf(errorDirectoryFormat, path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	if readErr := reader.ReadInConfig(); readErr != nil {
		return Configuration{}, fmt.Errorf(errorReadFormat, path, readErr)
	}
	var config Configuration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return Configuration{}, fmt.Errorf(errorDecodeFormat, path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config Configuration) Merge(override Configuration) Configuration {
	result := config
	result.Template = result.Template.merge(override.Template)
	return result
}

func (config TemplateConfiguration) merge(override TemplateConfiguration) TemplateConfiguration {
	result := config
	if override.Source != "" {
		result.Source = override.Source
	}
	if override.TemplatedExtension != "" {
		result.TemplatedExtension = override.TemplatedExtension
	}
	if len(override.Include) > 0 {
		result.Include = append([]string{}, utils.DeduplicatePatterns(override.Include)...)
	}
	if len(override.Exclude) > 0 {
		result.Exclude = append([]string{}, utils.DeduplicatePatterns(override.Exclude)...)
	}
	if override.MaxFileContentLength != nil {
		result.MaxFileContentLength = cloneInt64(override.MaxFileContentLength)
	}
	if override.MaxFileCount != nil {
		result.MaxFileCount = cloneInt64(override.MaxFileCount)
	}
	if override.MaxMemoryUsage != nil {
		result.MaxMemoryUsage = cloneInt64(override.MaxMemoryUsage)
	}
	return result
}

// ToLoaderOptions builds loader options for sourcePath, falling back to the
// configured source resolved against baseDirectory when sourcePath is empty.
// The result still needs loader.Options.Validate.
func (config Configuration) ToLoaderOptions(sourcePath string, baseDirectory string) loader.Options {
	options := loader.DefaultOptions()
	templateConfig := config.Template

	options.SourcePath = sourcePath
	if options.SourcePath == "" {
		options.SourcePath = templateConfig.Source
		if options.SourcePath != "" && !filepath.IsAbs(options.SourcePath) {
			options.SourcePath = filepath.Join(baseDirectory, options.SourcePath)
		}
	}
	if templateConfig.TemplatedExtension != "" {
		options.TemplatedExtension = templateConfig.TemplatedExtension
	}
	options.Include = append([]string{}, templateConfig.Include...)
	options.Exclude = append([]string{}, templateConfig.Exclude...)
	options.MaxContentLength = ceilingOverride(options.MaxContentLength, templateConfig.MaxFileContentLength)
	options.MaxCount = ceilingOverride(options.MaxCount, templateConfig.MaxFileCount)
	options.MaxBytes = ceilingOverride(options.MaxBytes, templateConfig.MaxMemoryUsage)
	return options
}

func ceilingOverride(fallback *int64, configured *int64) *int64 {
	switch {
	case configured == nil:
		return fallback
	case *configured == 0:
		return nil
	default:
		return limits.Ceiling(*configured)
	}
}

func cloneInt64(value *int64) *int64 {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
