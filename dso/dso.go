// Package dso stores compiled script units as CBOR ".dso" files.
package dso

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/GarageGames/Torque3D-sub044/compiler"
)

var log = commonlog.GetLogger("torque.dso")

const (
	// Magic opens every compiled file.
	Magic = "TDSO"
	// Version is bumped whenever the instruction set or layout changes.
	Version uint32 = 1
	// Ext is appended to a script path to name its compiled form.
	Ext = ".dso"
)

var (
	ErrBadMagic = errors.New("dso: not a compiled script")
	ErrVersion  = errors.New("dso: unsupported version")
)

// LineBreak mirrors compiler.LineBreak with stable wire keys.
type LineBreak struct {
	Line uint32 `cbor:"1,keyasint"`
	IP   uint32 `cbor:"2,keyasint"`
}

// File is the on-disk form of one compiled unit.
type File struct {
	Magic      string      `cbor:"1,keyasint"`
	Version    uint32      `cbor:"2,keyasint"`
	BuildID    uuid.UUID   `cbor:"3,keyasint"`
	SourceHash [32]byte    `cbor:"4,keyasint"`
	Name       string      `cbor:"5,keyasint"`
	Code       []uint32    `cbor:"6,keyasint"`
	Strings    []string    `cbor:"7,keyasint,omitempty"`
	Floats     []float64   `cbor:"8,keyasint,omitempty"`
	LineBreaks []LineBreak `cbor:"9,keyasint,omitempty"`
	Source     string      `cbor:"10,keyasint,omitempty"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("dso: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// HashSource returns the digest recorded for a script's text.
func HashSource(source string) [32]byte {
	return sha256.Sum256([]byte(source))
}

// New wraps a compiled unit for writing. The source text is embedded only
// when includeSource is set; its hash is always recorded.
func New(unit *compiler.Unit, source string, includeSource bool) *File {
	f := &File{
		Magic:      Magic,
		Version:    Version,
		BuildID:    uuid.New(),
		SourceHash: HashSource(source),
		Name:       unit.Name,
		Code:       unit.Code,
		Strings:    unit.Strings,
		Floats:     unit.Floats,
	}
	for _, lb := range unit.LineBreaks {
		f.LineBreaks = append(f.LineBreaks, LineBreak{Line: lb.Line, IP: lb.IP})
	}
	if includeSource {
		f.Source = source
	}
	return f
}

// Unit rebuilds the compiled unit. Compile warnings are not persisted.
func (f *File) Unit() *compiler.Unit {
	u := &compiler.Unit{
		Name:    f.Name,
		Code:    f.Code,
		Strings: f.Strings,
		Floats:  f.Floats,
	}
	for _, lb := range f.LineBreaks {
		u.LineBreaks = append(u.LineBreaks, compiler.LineBreak{Line: lb.Line, IP: lb.IP})
	}
	return u
}

// Matches reports whether the file was compiled from source.
func (f *File) Matches(source string) bool {
	return f.SourceHash == HashSource(source)
}

// Marshal serializes a File to CBOR bytes.
func Marshal(f *File) ([]byte, error) {
	return cborEncMode.Marshal(f)
}

// Unmarshal deserializes a File and checks its header.
func Unmarshal(data []byte) (*File, error) {
	var f File
	if err := cbor.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("dso: unmarshal: %w", err)
	}
	if f.Magic != Magic {
		return nil, ErrBadMagic
	}
	if f.Version != Version {
		return nil, fmt.Errorf("%w %d (want %d)", ErrVersion, f.Version, Version)
	}
	if _, err := compiler.Decode(f.Code); err != nil {
		return nil, fmt.Errorf("dso: corrupt code stream: %w", err)
	}
	return &f, nil
}

// WriteFile writes f to path, creating parent directories.
func WriteFile(path string, f *File) error {
	data, err := Marshal(f)
	if err != nil {
		return fmt.Errorf("dso: marshal %s: %w", f.Name, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	log.Debugf("wrote %s (%d words, build %s)", path, len(f.Code), f.BuildID)
	return nil
}

// ReadFile loads a compiled file from path.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// PathFor names the compiled file for script under outDir. Relative
// script paths keep their directory structure; absolute ones are
// flattened to their base name.
func PathFor(outDir, script string) string {
	rel := script
	if filepath.IsAbs(rel) {
		rel = filepath.Base(rel)
	}
	rel = strings.TrimPrefix(filepath.Clean(rel), ".."+string(filepath.Separator))
	return filepath.Join(outDir, rel+Ext)
}

// CompileFile compiles the script at path and writes its compiled form
// to out. Compile warnings are returned alongside the written file.
func CompileFile(path, out string, includeSource bool) (*File, []string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	unit, err := compiler.Compile(string(src), path)
	if err != nil {
		return nil, nil, err
	}
	f := New(unit, string(src), includeSource)
	if err := WriteFile(out, f); err != nil {
		return nil, unit.Warnings, err
	}
	return f, unit.Warnings, nil
}

// LoadOrCompile returns the unit for the script at path, reusing the
// compiled file at out when it was built from the current source and
// rewriting it otherwise.
func LoadOrCompile(path, out string, includeSource bool) (*compiler.Unit, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if f, err := ReadFile(out); err == nil && f.Matches(string(src)) {
		log.Debugf("using cached %s", out)
		return f.Unit(), nil
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warningf("ignoring %s: %s", out, err)
	}
	unit, err := compiler.Compile(string(src), path)
	if err != nil {
		return nil, err
	}
	if err := WriteFile(out, New(unit, string(src), includeSource)); err != nil {
		log.Warningf("cannot cache %s: %s", out, err)
	}
	return unit, nil
}
