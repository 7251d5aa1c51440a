package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/atomstore/internal/errors"
	"github.com/vango-dev/atomstore/internal/logging"
	"github.com/vango-dev/atomstore/pkg/reactive"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "atomstore.yaml"

	// JSONConfigFileName is the JSON spelling, used when no YAML file exists.
	JSONConfigFileName = "atomstore.json"

	// DefaultMaxDepth bounds propagation for stores built from a config.
	DefaultMaxDepth = 256

	// DefaultInspectorAddr is the default listen address of `atomstore serve`.
	DefaultInspectorAddr = "localhost:7070"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "atomstore"
)

// Config represents the complete atomstore.yaml configuration.
type Config struct {
	// Store contains the options every store is created with.
	Store StoreConfig `yaml:"store" json:"store"`

	// Log contains logger configuration.
	Log LogConfig `yaml:"log" json:"log"`

	// Inspector contains HTTP inspector configuration.
	Inspector InspectorConfig `yaml:"inspector" json:"inspector"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// StoreConfig mirrors the reactive.Option set.
type StoreConfig struct {
	// EdgePolicy is "additive" (default) or "replace".
	EdgePolicy string `yaml:"edgePolicy,omitempty" json:"edgePolicy,omitempty"`

	// MaxDepth bounds propagation depth. Zero means unbounded.
	MaxDepth int `yaml:"maxDepth" json:"maxDepth"`

	// SkipUnchanged stops propagation below unchanged values.
	SkipUnchanged bool `yaml:"skipUnchanged,omitempty" json:"skipUnchanged,omitempty"`

	// NormalizeIDs maps identifiers to Unicode NFC.
	NormalizeIDs bool `yaml:"normalizeIDs,omitempty" json:"normalizeIDs,omitempty"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level,omitempty" json:"level,omitempty"`

	// Format is text or json.
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
}

// InspectorConfig contains inspector server settings.
type InspectorConfig struct {
	// Addr is the address the inspector listens on.
	Addr string `yaml:"addr,omitempty" json:"addr,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled installs the metrics observer and serves /metrics.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Namespace prefixes every metric name.
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Store: StoreConfig{
			EdgePolicy: reactive.EdgesAdditive.String(),
			MaxDepth:   DefaultMaxDepth,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Inspector: InspectorConfig{
			Addr: DefaultInspectorAddr,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for atomstore.yaml, then atomstore.json.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); err != nil {
		if alt := filepath.Join(dir, JSONConfigFileName); fileExists(alt) {
			path = alt
		}
	}
	return LoadFile(path)
}

// LoadOrDefault is Load, except that a directory without a config file
// yields the defaults.
func LoadOrDefault(dir string) (*Config, error) {
	if !Exists(dir) {
		return New(), nil
	}
	return Load(dir)
}

// LoadFile reads configuration from the specified file path. Files ending
// in .json are parsed as JSON, anything else as YAML.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E140").
				WithDetail("No configuration found at " + path).
				WithSuggestion("Create " + ConfigFileName + " or drop the --config flag to use defaults")
		}
		return nil, errors.New("E140").Wrap(err)
	}

	cfg := New()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New("E140").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error())
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path, as JSON when the
// path ends in .json and as YAML otherwise.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return errors.New("E140").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E140").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Store.EdgePolicy == "" {
		c.Store.EdgePolicy = reactive.EdgesAdditive.String()
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Inspector.Addr == "" {
		c.Inspector.Addr = DefaultInspectorAddr
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := reactive.ParseEdgePolicy(c.Store.EdgePolicy); err != nil {
		return errors.New("E141").
			WithDetail(err.Error()).
			WithSuggestion("Set store.edgePolicy to additive or replace")
	}
	if c.Store.MaxDepth < 0 {
		return errors.New("E141").
			WithDetail("store.maxDepth must be zero (unbounded) or positive")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return errors.New("E141").
			WithDetail(err.Error()).
			WithSuggestion("Set log.level to debug, info, warn or error")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return errors.New("E141").
			WithDetail("log.format must be text or json, got " + c.Log.Format)
	}
	return nil
}

// StoreOptions translates the store section into reactive options. The
// logger is passed through WithLogger when non-nil.
func (c *Config) StoreOptions(logger *slog.Logger) []reactive.Option {
	policy, _ := reactive.ParseEdgePolicy(c.Store.EdgePolicy)
	opts := []reactive.Option{
		reactive.WithEdgePolicy(policy),
		reactive.WithMaxDepth(c.Store.MaxDepth),
	}
	if c.Store.SkipUnchanged {
		opts = append(opts, reactive.WithSkipUnchanged())
	}
	if c.Store.NormalizeIDs {
		opts = append(opts, reactive.WithNormalizedIDs())
	}
	if logger != nil {
		opts = append(opts, reactive.WithLogger(logger))
	}
	return opts
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	return fileExists(filepath.Join(dir, ConfigFileName)) ||
		fileExists(filepath.Join(dir, JSONConfigFileName))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
