// Package config handles configuration loading and validation for Kaizen.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ConfigErrorType represents the type of configuration error.
type ConfigErrorType string

const (
	FileNotFound      ConfigErrorType = "FILE_NOT_FOUND"
	InvalidFormat     ConfigErrorType = "INVALID_FORMAT"
	ValidationError   ConfigErrorType = "VALIDATION_ERROR"
	UnsupportedFormat ConfigErrorType = "UNSUPPORTED_FORMAT"
)

// ConfigError represents an error that occurred during configuration loading.
type ConfigError struct {
	Type    ConfigErrorType
	Path    string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	switch e.Type {
	case FileNotFound:
		return fmt.Sprintf("configuration file not found: %s", e.Path)
	case InvalidFormat:
		return fmt.Sprintf("invalid configuration file %s: %s", e.Path, e.Message)
	case ValidationError:
		return fmt.Sprintf("configuration validation error: %s", e.Message)
	case UnsupportedFormat:
		return fmt.Sprintf("unsupported configuration format: %s", e.Path)
	default:
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Category maps a set of lowercase file extensions to a folder label.
type Category struct {
	Name       string   `json:"name" toml:"name" yaml:"name"`
	Extensions []string `json:"extensions" toml:"extensions" yaml:"extensions"`
}

// Focus holds the interval timer settings.
type Focus struct {
	WorkMinutes  int      `json:"work_minutes" toml:"work_minutes" yaml:"work_minutes"`
	BreakMinutes int      `json:"break_minutes" toml:"break_minutes" yaml:"break_minutes"`
	URLs         []string `json:"urls" toml:"urls" yaml:"urls"`
	Tool         string   `json:"tool" toml:"tool" yaml:"tool"`
}

// Arrival holds the per-file processing settings.
type Arrival struct {
	SettleMs        int  `json:"settle_ms" toml:"settle_ms" yaml:"settle_ms"`
	RetryCount      int  `json:"retry_count" toml:"retry_count" yaml:"retry_count"`
	RetryBackoffMs  int  `json:"retry_backoff_ms" toml:"retry_backoff_ms" yaml:"retry_backoff_ms"`
	Workers         int  `json:"workers" toml:"workers" yaml:"workers"`
	QueueSize       int  `json:"queue_size" toml:"queue_size" yaml:"queue_size"`
	StableSizeCheck bool `json:"stable_size_check" toml:"stable_size_check" yaml:"stable_size_check"`
}

// Notify holds notification batching settings.
type Notify struct {
	BatchWindowMs int `json:"batch_window_ms" toml:"batch_window_ms" yaml:"batch_window_ms"`
}

// Log holds logger settings.
type Log struct {
	Level string `json:"level" toml:"level" yaml:"level"`
	File  string `json:"file" toml:"file" yaml:"file"`
}

// Configuration holds all settings for Kaizen.
// A loaded Configuration is treated as immutable; reloads produce a new value.
type Configuration struct {
	WatchPaths     []string   `json:"watch_paths" toml:"watch_paths" yaml:"watch_paths"`
	OutputDir      string     `json:"output_dir" toml:"output_dir" yaml:"output_dir"`
	DataDir        string     `json:"data_dir" toml:"data_dir" yaml:"data_dir"`
	Categories     []Category `json:"categories" toml:"categories" yaml:"categories"`
	IgnorePatterns []string   `json:"ignore_patterns" toml:"ignore_patterns" yaml:"ignore_patterns"`
	Focus          Focus      `json:"focus" toml:"focus" yaml:"focus"`
	Arrival        Arrival    `json:"arrival" toml:"arrival" yaml:"arrival"`
	Notify         Notify     `json:"notify" toml:"notify" yaml:"notify"`
	Log            Log        `json:"log" toml:"log" yaml:"log"`
}

// Validate checks that the configuration is usable.
func (c *Configuration) Validate() error {
	if strings.TrimSpace(c.OutputDir) == "" {
		return validationErr("output_dir cannot be empty")
	}
	if c.Focus.WorkMinutes < 1 {
		return validationErr("focus.work_minutes must be at least 1")
	}
	if c.Focus.BreakMinutes < 1 {
		return validationErr("focus.break_minutes must be at least 1")
	}
	if c.Arrival.RetryCount < 0 {
		return validationErr("arrival.retry_count cannot be negative")
	}
	if c.Arrival.Workers < 1 {
		return validationErr("arrival.workers must be at least 1")
	}
	if c.Arrival.QueueSize < 1 {
		return validationErr("arrival.queue_size must be at least 1")
	}
	if c.Arrival.SettleMs < 0 || c.Arrival.RetryBackoffMs < 0 || c.Notify.BatchWindowMs < 0 {
		return validationErr("durations cannot be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return validationErr(fmt.Sprintf("log.level %q must be debug, info, warn or error", c.Log.Level))
	}

	seen := make(map[string]bool, len(c.Categories))
	for i, cat := range c.Categories {
		name := strings.TrimSpace(cat.Name)
		if name == "" {
			return validationErr(fmt.Sprintf("categories[%d].name cannot be empty", i))
		}
		if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
			return validationErr(fmt.Sprintf("categories[%d].name %q is not a valid folder name", i, name))
		}
		key := strings.ToLower(name)
		if seen[key] {
			return validationErr(fmt.Sprintf("duplicate category %q", name))
		}
		seen[key] = true
		for j, ext := range cat.Extensions {
			if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
				return validationErr(fmt.Sprintf("categories[%d].extensions[%d] %q must start with '.'", i, j, ext))
			}
		}
	}
	return nil
}

// OverlappingExtensions reports extensions that appear in more than one
// category. The first category in order wins for those.
func (c *Configuration) OverlappingExtensions() []string {
	owner := make(map[string]string)
	var dupes []string
	for _, cat := range c.Categories {
		for _, ext := range cat.Extensions {
			if _, ok := owner[ext]; ok {
				dupes = append(dupes, ext)
				continue
			}
			owner[ext] = cat.Name
		}
	}
	return dupes
}

// normalize lowercases extensions, expands "~" and drops empty watch paths.
func (c *Configuration) normalize() {
	paths := make([]string, 0, len(c.WatchPaths))
	for _, p := range c.WatchPaths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		paths = append(paths, expandHome(p))
	}
	c.WatchPaths = paths
	c.OutputDir = expandHome(strings.TrimSpace(c.OutputDir))
	c.DataDir = expandHome(strings.TrimSpace(c.DataDir))
	c.Log.File = expandHome(strings.TrimSpace(c.Log.File))

	for i := range c.Categories {
		c.Categories[i].Name = strings.TrimSpace(c.Categories[i].Name)
		exts := make([]string, 0, len(c.Categories[i].Extensions))
		for _, ext := range c.Categories[i].Extensions {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			exts = append(exts, ext)
		}
		c.Categories[i].Extensions = exts
	}
}

// Clone returns a deep copy so callers can derive a new snapshot without
// touching the shared one.
func (c *Configuration) Clone() *Configuration {
	out := *c
	out.WatchPaths = append([]string(nil), c.WatchPaths...)
	out.IgnorePatterns = append([]string(nil), c.IgnorePatterns...)
	out.Focus.URLs = append([]string(nil), c.Focus.URLs...)
	out.Categories = make([]Category, len(c.Categories))
	for i, cat := range c.Categories {
		out.Categories[i] = Category{
			Name:       cat.Name,
			Extensions: append([]string(nil), cat.Extensions...),
		}
	}
	return &out
}

// Load reads and parses a configuration file from the given path. The format
// is chosen by extension: .toml, .yaml/.yml or .json. Unset fields take their
// default values.
func Load(filePath string) (*Configuration, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ConfigError{Type: FileNotFound, Path: filePath, Err: err}
		}
		return nil, &ConfigError{Type: FileNotFound, Path: filePath, Message: err.Error(), Err: err}
	}

	// Array tables append to an existing slice in TOML, so categories are
	// decoded into an empty slice and only defaulted when absent.
	cfg := Default()
	defaultCategories := cfg.Categories
	cfg.Categories = nil
	if err := decode(filePath, data, cfg); err != nil {
		return nil, err
	}
	if cfg.Categories == nil {
		cfg.Categories = defaultCategories
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads config if it exists, or returns the defaults if the
// file doesn't exist.
func LoadOrDefault(filePath string) (*Configuration, error) {
	cfg, err := Load(filePath)
	if err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) && cfgErr.Type == FileNotFound && errors.Is(cfgErr.Err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// Save serializes and writes a configuration to the given path, creating the
// parent directory if needed.
func Save(cfg *Configuration, filePath string) error {
	data, err := encode(filePath, cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return &ConfigError{Type: ValidationError, Path: filePath, Message: err.Error(), Err: err}
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return &ConfigError{
			Type:    ValidationError,
			Path:    filePath,
			Message: fmt.Sprintf("failed to write configuration file: %s", err.Error()),
			Err:     err,
		}
	}
	return nil
}

func decode(filePath string, data []byte, cfg *Configuration) error {
	var err error
	switch formatOf(filePath) {
	case "toml":
		err = toml.Unmarshal(data, cfg)
	case "yaml":
		err = yaml.Unmarshal(data, cfg)
	case "json":
		err = json.Unmarshal(data, cfg)
	default:
		return &ConfigError{Type: UnsupportedFormat, Path: filePath}
	}
	if err != nil {
		return &ConfigError{Type: InvalidFormat, Path: filePath, Message: err.Error(), Err: err}
	}
	return nil
}

func encode(filePath string, cfg *Configuration) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch formatOf(filePath) {
	case "toml":
		data, err = toml.Marshal(cfg)
	case "yaml":
		data, err = yaml.Marshal(cfg)
	case "json":
		data, err = json.MarshalIndent(cfg, "", "  ")
	default:
		return nil, &ConfigError{Type: UnsupportedFormat, Path: filePath}
	}
	if err != nil {
		return nil, &ConfigError{Type: InvalidFormat, Path: filePath, Message: err.Error(), Err: err}
	}
	return data, nil
}

func formatOf(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".toml":
		return "toml"
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	default:
		return ""
	}
}

func validationErr(msg string) error {
	return &ConfigError{Type: ValidationError, Message: msg}
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p
}
