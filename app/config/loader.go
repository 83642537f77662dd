package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and validation of source configurations
type Loader struct {
	sourcesDir string
}

// NewLoader creates a new configuration loader
func NewLoader(sourcesDir string) *Loader {
	return &Loader{sourcesDir: sourcesDir}
}

// LoadAll loads all YAML configuration files from the sources directory,
// keyed by source name. A missing directory yields an empty map.
func (l *Loader) LoadAll() (map[string]*Source, error) {
	sources := make(map[string]*Source)

	if _, err := os.Stat(l.sourcesDir); os.IsNotExist(err) {
		return sources, nil
	}

	files, err := filepath.Glob(filepath.Join(l.sourcesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YAML files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(l.sourcesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}
	files = append(files, ymlFiles...)

	for _, file := range files {
		source, err := l.loadFile(file)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}

		if err := l.validate(source); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", file, err)
		}

		if _, exists := sources[source.Name]; exists {
			return nil, fmt.Errorf("duplicate source name %q from %s", source.Name, file)
		}

		sources[source.Name] = source
		slog.Debug("Loaded source configuration", "source", source.Name, "file", file)
	}

	return sources, nil
}

// loadFile loads a single YAML configuration file
func (l *Loader) loadFile(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var source Source
	if err := yaml.Unmarshal(data, &source); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Base(path)
	source.Name = strings.TrimSuffix(base, filepath.Ext(base))

	l.setDefaults(&source)

	return &source, nil
}

// setDefaults applies default values to configuration
func (l *Loader) setDefaults(source *Source) {
	if source.Type == "" {
		source.Type = SourceTypeHTML
	}
	if source.Settings.RefreshInterval == 0 {
		source.Settings.RefreshInterval = 3600 // seconds
	}
	if source.Settings.Timeout == 0 {
		source.Settings.Timeout = 30 // seconds
	}
}

// validate validates the configuration
func (l *Loader) validate(source *Source) error {
	if len(source.URLs) == 0 {
		return fmt.Errorf("at least one URL is required")
	}

	switch source.Type {
	case SourceTypeHTML:
		if err := source.Selectors.Validate(); err != nil {
			return fmt.Errorf("invalid selectors: %w", err)
		}
	case SourceTypeRSS:
		// Feed items carry their own structure; selectors are unused.
	default:
		return fmt.Errorf("invalid source type: %q", source.Type)
	}

	if source.Settings.RefreshInterval < 0 {
		return fmt.Errorf("refresh interval must be non-negative")
	}
	if source.Settings.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}

	return nil
}
