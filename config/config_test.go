package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/GarageGames/Torque3D-sub044/console"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[project]
name = "demo"
version = "0.1.0"

[source]
dirs = ["game", "common"]
entry = "init.cs"

[runtime]
max-call-depth = 64

[prefs]
pattern = "$Pref::Video::*"
`)

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Project.Name != "demo" {
		t.Errorf("Project.Name = %q, want demo", c.Project.Name)
	}
	if c.Runtime.MaxCallDepth != 64 {
		t.Errorf("MaxCallDepth = %d, want 64", c.Runtime.MaxCallDepth)
	}
	if c.Runtime.InitialBuckets != console.DefaultBuckets {
		t.Errorf("InitialBuckets = %d, want default %d", c.Runtime.InitialBuckets, console.DefaultBuckets)
	}
	paths := c.SourceDirPaths()
	if len(paths) != 2 || paths[1] != filepath.Join(c.Dir, "common") {
		t.Errorf("SourceDirPaths() = %v", paths)
	}
	if got, want := c.EntryPath(), filepath.Join(c.Dir, "game", "init.cs"); got != want {
		t.Errorf("EntryPath() = %q, want %q", got, want)
	}
	if got, want := c.PrefsPath(), filepath.Join(c.Dir, ".torque", "prefs.db"); got != want {
		t.Errorf("PrefsPath() = %q, want %q", got, want)
	}
	opts := c.RuntimeOptions()
	if opts.MaxCallDepth != 64 || opts.CacheArenaSize != 4096 {
		t.Errorf("RuntimeOptions() = %+v", opts)
	}
}

func TestDefaults(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if c.Source.Dirs[0] != "scripts" || c.Source.Entry != "main.cs" {
		t.Errorf("Source = %+v", c.Source)
	}
	if c.Prefs.Pattern != "$pref::*" {
		t.Errorf("Prefs.Pattern = %q", c.Prefs.Pattern)
	}
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative depth", "[runtime]\nmax-call-depth = -5\n"},
		{"verbosity range", "[log]\nverbosity = 9\n"},
		{"pattern without sigil", "[prefs]\npattern = \"pref::*\"\n"},
		{"small arena", "[runtime]\ncache-arena = 2\n"},
		{"unknown key", "[runtime]\nstack = 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Parse() error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestParseError(t *testing.T) {
	_, err := Parse([]byte("[project\nname = 1"))
	if err == nil || errors.Is(err, ErrInvalid) {
		t.Errorf("Parse() error = %v, want a syntax error", err)
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "[project]\nname = \"walk\"\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	c, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad: %v", err)
	}
	if c == nil || c.Project.Name != "walk" {
		t.Fatalf("FindAndLoad() = %+v, want project walk", c)
	}
	abs, _ := filepath.Abs(root)
	if c.Dir != abs {
		t.Errorf("Dir = %q, want %q", c.Dir, abs)
	}
}
