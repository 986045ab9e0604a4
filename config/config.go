// Package config handles torque.toml runtime configuration.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/BurntSushi/toml"

	"github.com/GarageGames/Torque3D-sub044/console"
)

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "torque.toml"

//go:embed schema.cue
var schemaSource string

// ErrInvalid is wrapped by every schema violation reported by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Config represents a torque.toml file.
type Config struct {
	Project Project       `toml:"project" json:"project"`
	Source  Source        `toml:"source" json:"source"`
	Runtime RuntimeConfig `toml:"runtime" json:"runtime"`
	Log     LogConfig     `toml:"log" json:"log"`
	Prefs   PrefsConfig   `toml:"prefs" json:"prefs"`
	DSO     DSOConfig     `toml:"dso" json:"dso"`

	// Dir is the directory containing the torque.toml file (set at load time).
	Dir string `toml:"-" json:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name" json:"name"`
	Version string `toml:"version" json:"version"`
}

// Source configures script locations.
type Source struct {
	Dirs  []string `toml:"dirs" json:"dirs"`
	Entry string   `toml:"entry" json:"entry"`
}

// RuntimeConfig tunes the console runtime.
type RuntimeConfig struct {
	MaxCallDepth   int `toml:"max-call-depth" json:"max-call-depth"`
	InitialBuckets int `toml:"initial-buckets" json:"initial-buckets"`
	CacheArena     int `toml:"cache-arena" json:"cache-arena"`
}

// LogConfig selects commonlog verbosity and an optional log file.
type LogConfig struct {
	Verbosity int    `toml:"verbosity" json:"verbosity"`
	File      string `toml:"file" json:"file"`
}

// PrefsConfig locates the preference database and the variables saved in it.
type PrefsConfig struct {
	DB      string `toml:"db" json:"db"`
	Pattern string `toml:"pattern" json:"pattern"`
}

// DSOConfig configures compiled script output.
type DSOConfig struct {
	Output        string `toml:"output" json:"output"`
	IncludeSource bool   `toml:"include-source" json:"include-source"`
}

// Default returns the configuration used when no torque.toml exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if len(c.Source.Dirs) == 0 {
		c.Source.Dirs = []string{"scripts"}
	}
	if c.Source.Entry == "" {
		c.Source.Entry = "main.cs"
	}
	if c.Runtime.MaxCallDepth == 0 {
		c.Runtime.MaxCallDepth = console.DefaultMaxCallDepth
	}
	if c.Runtime.InitialBuckets == 0 {
		c.Runtime.InitialBuckets = console.DefaultBuckets
	}
	if c.Runtime.CacheArena == 0 {
		c.Runtime.CacheArena = 4096
	}
	if c.Prefs.DB == "" {
		c.Prefs.DB = filepath.Join(".torque", "prefs.db")
	}
	if c.Prefs.Pattern == "" {
		c.Prefs.Pattern = "$pref::*"
	}
	if c.DSO.Output == "" {
		c.DSO.Output = filepath.Join(".torque", "dso")
	}
}

// Load parses a torque.toml file from the given directory, fills in
// defaults and validates the result.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return c, nil
}

// Parse decodes torque.toml content without touching the filesystem.
func Parse(data []byte) (*Config, error) {
	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown key %s", ErrInvalid, undecoded[0])
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// FindAndLoad walks up from startDir to find a torque.toml file,
// then loads and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// Validate checks the configuration against the embedded CUE schema.
func (c *Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename(FileName+".cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	val := ctx.Encode(c)
	if err := val.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := def.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// SourceDirPaths returns absolute paths for the configured script directories.
func (c *Config) SourceDirPaths() []string {
	var paths []string
	for _, d := range c.Source.Dirs {
		paths = append(paths, c.resolve(d))
	}
	return paths
}

// EntryPath returns the entry script, resolved against the first script directory.
func (c *Config) EntryPath() string {
	if filepath.IsAbs(c.Source.Entry) {
		return c.Source.Entry
	}
	return filepath.Join(c.SourceDirPaths()[0], c.Source.Entry)
}

// PrefsPath returns the preference database location.
func (c *Config) PrefsPath() string { return c.resolve(c.Prefs.DB) }

// DSODir returns the directory compiled scripts are written to.
func (c *Config) DSODir() string { return c.resolve(c.DSO.Output) }

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// RuntimeOptions converts the runtime section to console options.
func (c *Config) RuntimeOptions() console.Options {
	return console.Options{
		InitialBuckets: c.Runtime.InitialBuckets,
		MaxCallDepth:   c.Runtime.MaxCallDepth,
		CacheArenaSize: c.Runtime.CacheArena,
	}
}
