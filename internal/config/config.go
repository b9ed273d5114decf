package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/distpack/internal/logger"
)

// Config holds the packaging settings that rarely change between runs.
type Config struct {
	// IgnoreFile is the gitignore-syntax exclude list, relative to the repository root.
	IgnoreFile string `yaml:"ignore_file"`
	// ManifestPatterns are doublestar globs selecting dependency manifests in the tree.
	ManifestPatterns []string `yaml:"manifest_patterns"`
	// PythonVersion is the default interpreter version wheels are fetched for.
	PythonVersion string `yaml:"python_version"`
	// Platform is the default platform tag wheels are fetched for.
	Platform string `yaml:"platform"`
	// GitBinary is the git executable name or path.
	GitBinary string `yaml:"git_binary"`
	// PipCommand is the argv prefix that invokes pip.
	PipCommand []string `yaml:"pip_command"`
	// CommandTimeout bounds every external call.
	CommandTimeout time.Duration `yaml:"command_timeout"`
	// FetchConcurrency is the number of modules fetched in parallel.
	FetchConcurrency int `yaml:"fetch_concurrency"`
	// OutputPrefix prefixes generated archive names.
	OutputPrefix string `yaml:"output_prefix"`
	// LogLevel is the zap level name.
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is looked up in the repository root when no path is given.
	DefaultConfigFilename = "distpack.yaml"

	// DefaultIgnoreFile is the default exclude-pattern document.
	DefaultIgnoreFile = ".distignore"

	// DefaultManifestPattern matches every file whose name ends with requirements.txt,
	// such as requirements.txt or dev-requirements.txt, at any depth including the root.
	DefaultManifestPattern = "**/*requirements.txt"

	// DefaultPythonVersion is the default interpreter version for wheel downloads.
	DefaultPythonVersion = "3.10"

	// DefaultPlatform is the default platform tag for wheel downloads.
	DefaultPlatform = "manylinux2014_x86_64"

	// DefaultGitBinary is the default git executable.
	DefaultGitBinary = "git"

	// DefaultCommandTimeout bounds a single git or pip invocation.
	DefaultCommandTimeout = 5 * time.Minute

	// DefaultFetchConcurrency keeps module fetches sequential.
	DefaultFetchConcurrency = 1

	// DefaultOutputPrefix prefixes generated archive names.
	DefaultOutputPrefix = "dist"

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the permission of a saved configuration file.
	DefaultFilePermissions = 0o644
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errEmptyPipCommand is returned when pip_command is an explicit empty list.
	errEmptyPipCommand = errors.New("pip command must not be empty")
	// errBadConcurrency is returned for a negative fetch concurrency.
	errBadConcurrency = errors.New("fetch concurrency must be positive")
	// errBadTimeout is returned for a negative command timeout.
	errBadTimeout = errors.New("command timeout must be positive")
)

// DefaultPipCommand returns the default pip invocation prefix.
func DefaultPipCommand() []string {
	return []string{"python3", "-m", "pip"}
}

// Default returns a validated configuration with every default applied.
func Default() *Config {
	cfg := new(Config)

	//nolint:errcheck // Defaults always validate.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates it.
// When path is empty, DefaultConfigFilename inside dir is used and a missing file yields defaults.
func Load(dir, path string) (*Config, error) {
	optional := path == ""
	if optional {
		path = filepath.Join(dir, DefaultConfigFilename)
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and checks the provided settings.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.IgnoreFile == "" {
		settings.IgnoreFile = DefaultIgnoreFile
	}

	if len(settings.ManifestPatterns) == 0 {
		settings.ManifestPatterns = []string{DefaultManifestPattern}
	}

	for _, pattern := range settings.ManifestPatterns {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid manifest pattern %q: %w", pattern, doublestar.ErrBadPattern)
		}
	}

	if settings.PythonVersion == "" {
		settings.PythonVersion = DefaultPythonVersion
	}

	if settings.Platform == "" {
		settings.Platform = DefaultPlatform
	}

	if settings.GitBinary == "" {
		settings.GitBinary = DefaultGitBinary
	}

	switch {
	case settings.PipCommand == nil:
		settings.PipCommand = DefaultPipCommand()
	case len(settings.PipCommand) == 0 || settings.PipCommand[0] == "":
		return errEmptyPipCommand
	}

	if settings.CommandTimeout < 0 {
		return errBadTimeout
	}

	if settings.CommandTimeout == 0 {
		settings.CommandTimeout = DefaultCommandTimeout
	}

	if settings.FetchConcurrency < 0 {
		return errBadConcurrency
	}

	if settings.FetchConcurrency == 0 {
		settings.FetchConcurrency = DefaultFetchConcurrency
	}

	if settings.OutputPrefix == "" {
		settings.OutputPrefix = DefaultOutputPrefix
	}

	if settings.LogLevel == "" {
		settings.LogLevel = DefaultLogLevel
	}

	if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
		return fmt.Errorf("invalid log level %q", settings.LogLevel)
	}

	return nil
}
