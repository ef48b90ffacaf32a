// Package config loads arbor settings from .arbor/config.yaml and turns
// them into widget options.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/arbor/pkg/gesture"
	"github.com/vanderheijden86/arbor/pkg/model"
	"github.com/vanderheijden86/arbor/pkg/tree"
	"github.com/vanderheijden86/arbor/pkg/view"
	"github.com/vanderheijden86/arbor/pkg/widget"
)

const (
	// DirName is the per-project settings directory.
	DirName = ".arbor"
	// FileName is the config file inside DirName.
	FileName = "config.yaml"
)

// Config is the on-disk configuration.
type Config struct {
	RootElement  string           `yaml:"root_element"`
	Data         string           `yaml:"data,omitempty"` // Default data file, relative to the project root
	DefaultState string           `yaml:"default_state,omitempty"`
	DepthLabels  []string         `yaml:"depth_labels,omitempty"`
	ClassNames   view.ClassNames  `yaml:"class_names,omitempty"`
	StateLabels  view.StateLabels `yaml:"state_labels,omitempty"`
	Drag         DragConfig       `yaml:"drag"`
	ClickDelay   Duration         `yaml:"click_delay,omitempty"`
	IDs          IDConfig         `yaml:"ids"`

	// Dir is the project root the config was loaded from (not serialized).
	Dir string `yaml:"-"`
}

// DragConfig configures drag-and-drop.
type DragConfig struct {
	Enabled   bool           `yaml:"enabled"`
	Helper    bool           `yaml:"helper"`
	HelperPos *gesture.Point `yaml:"helper_pos,omitempty"`
	Threshold int            `yaml:"threshold,omitempty"`
}

// IDConfig selects how node ids are generated.
type IDConfig struct {
	Style  string `yaml:"style"` // "sequential" or "uuid"
	Prefix string `yaml:"prefix,omitempty"`
}

// Duration is a time.Duration written as a Go duration string ("400ms").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		RootElement:  "tree",
		DefaultState: string(model.StateClosed),
		ClassNames:   view.DefaultClassNames(),
		StateLabels:  view.DefaultStateLabels(),
		ClickDelay:   Duration(gesture.DefaultClickDelay),
		Drag:         DragConfig{Enabled: true, Helper: true, Threshold: gesture.DefaultDragThreshold},
		IDs:          IDConfig{Style: "sequential"},
	}
}

// Load reads a config file on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.Dir = filepath.Dir(path)
	if filepath.Base(cfg.Dir) == DirName {
		cfg.Dir = filepath.Dir(cfg.Dir)
	}
	return cfg, cfg.Validate()
}

// LoadOrDefault loads the config at path, or the one discovered from the
// working directory when path is empty. No config at all yields Default.
func LoadOrDefault(path string) (Config, error) {
	if path != "" {
		return Load(path)
	}
	if found, ok := DetectConfig(); ok {
		return Load(found)
	}
	return Default(), nil
}

// Validate checks values that yaml decoding cannot.
func (c Config) Validate() error {
	if c.DefaultState != "" {
		if _, err := model.ParseNodeState(c.DefaultState); err != nil {
			return fmt.Errorf("default_state: %w", err)
		}
	}
	if _, err := tree.GeneratorByName(c.IDs.Style, c.IDs.Prefix); err != nil {
		return fmt.Errorf("ids: %w", err)
	}
	if c.ClickDelay < 0 {
		return fmt.Errorf("click_delay must not be negative")
	}
	return nil
}

// DataPath resolves the configured data file against the project root.
func (c Config) DataPath() string {
	if c.Data == "" || filepath.IsAbs(c.Data) {
		return c.Data
	}
	return filepath.Join(c.Dir, c.Data)
}

// WidgetOptions converts the config into widget options.
func (c Config) WidgetOptions() (widget.Options, error) {
	if err := c.Validate(); err != nil {
		return widget.Options{}, err
	}
	gen, _ := tree.GeneratorByName(c.IDs.Style, c.IDs.Prefix)
	opts := widget.Options{
		RootElement:   c.RootElement,
		ClassNames:    c.ClassNames,
		StateLabels:   c.StateLabels,
		DepthLabels:   c.DepthLabels,
		UseDrag:       c.Drag.Enabled,
		UseHelper:     c.Drag.Helper,
		HelperPos:     c.Drag.HelperPos,
		DragThreshold: c.Drag.Threshold,
		ClickDelay:    time.Duration(c.ClickDelay),
		IDGenerator:   gen,
	}
	if c.DefaultState != "" {
		st, _ := model.ParseNodeState(c.DefaultState)
		opts.DefaultState = st
	}
	return opts, nil
}

// Write saves the config as YAML, creating the directory if needed.
func Write(path string, c Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
