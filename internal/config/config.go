// Package config loads the mydays configuration file.
//
// The file is YAML. It is validated against an embedded CUE schema before
// it is decoded, so typos and malformed values are reported with their
// path instead of being silently ignored. A few settings can be overridden
// from the environment.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSrc string

// Environment overrides.
const (
	EnvUser   = "MYDAYS_USER"
	EnvDB     = "MYDAYS_DB"
	EnvRemote = "MYDAYS_REMOTE"
)

// Duration is a time.Duration written as a Go duration string ("15s").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the mydays configuration.
type Config struct {
	// UserID selects the remote document.
	UserID string `yaml:"user_id"`

	// Database is the SQLite file holding local state.
	Database string `yaml:"database"`

	Remote       Remote   `yaml:"remote"`
	Sync         Sync     `yaml:"sync"`
	CleanupDelay Duration `yaml:"cleanup_delay"`

	// Sound enables audio output on completion.
	Sound bool `yaml:"sound"`

	// Listen is the address `mydays serve` binds.
	Listen string `yaml:"listen"`
}

// Remote configures the remote document store. An empty URL disables
// sync.
type Remote struct {
	URL     string   `yaml:"url"`
	Timeout Duration `yaml:"timeout"`
}

// Sync tunes the sync engine.
type Sync struct {
	Debounce     Duration `yaml:"debounce"`
	PollInterval Duration `yaml:"poll_interval"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		UserID:   "local",
		Database: filepath.Join(dataDir(), "mydays", "mydays.db"),
		Remote: Remote{
			Timeout: Duration(10 * time.Second),
		},
		Sync: Sync{
			Debounce:     Duration(1500 * time.Millisecond),
			PollInterval: Duration(15 * time.Second),
		},
		CleanupDelay: Duration(3 * time.Second),
		Sound:        true,
		Listen:       "127.0.0.1:8787",
	}
}

// DefaultPath is $XDG_CONFIG_HOME/mydays/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "mydays", "config.yaml")
}

func dataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share")
	}
	return "."
}

// ValidationError reports a configuration file that does not match the
// schema.
type ValidationError struct {
	Path    string
	Details string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Path, e.Details)
}

// Load reads the configuration at path, or at DefaultPath when path is
// empty. A missing default file yields the defaults; a missing explicit
// file is an error. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && !explicit:
		data = nil
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if len(bytes.TrimSpace(data)) > 0 {
		if err := validate(path, data); err != nil {
			return nil, err
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	if v := getenv(EnvUser); v != "" {
		cfg.UserID = v
	}
	if v := getenv(EnvDB); v != "" {
		cfg.Database = v
	}
	if v := getenv(EnvRemote); v != "" {
		cfg.Remote.URL = v
	}

	if err := cfg.check(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// validate checks data against the #Config definition.
func validate(path string, data []byte) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue")).
		LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	file, err := cueyaml.Extract(path, data)
	if err != nil {
		return &ValidationError{Path: path, Details: cueerrors.Details(err, nil)}
	}
	value := ctx.BuildFile(file)
	if err := value.Err(); err != nil {
		return &ValidationError{Path: path, Details: cueerrors.Details(err, nil)}
	}

	if err := schema.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Path: path, Details: cueerrors.Details(err, nil)}
	}
	return nil
}

// check enforces what the schema cannot express.
func (c *Config) check() error {
	if c.UserID == "" {
		return errors.New("user_id is empty")
	}
	if c.Sync.Debounce <= 0 {
		return errors.New("sync.debounce must be positive")
	}
	if c.Sync.PollInterval <= 0 {
		return errors.New("sync.poll_interval must be positive")
	}
	if c.Remote.Timeout <= 0 {
		return errors.New("remote.timeout must be positive")
	}
	if c.CleanupDelay < 0 {
		return errors.New("cleanup_delay must not be negative")
	}
	return nil
}
