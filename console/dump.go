package console

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Documentation dumps
// ---------------------------------------------------------------------------

// EntryDoc describes one callable for documentation output.
type EntryDoc struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"`
	Group   string `yaml:"group,omitempty"`
	Usage   string `yaml:"usage,omitempty"`
	MinArgs int    `yaml:"minArgs,omitempty"`
	MaxArgs int    `yaml:"maxArgs,omitempty"`
	File    string `yaml:"file,omitempty"`
	Line    uint32 `yaml:"line,omitempty"`
}

// NamespaceDoc describes one namespace and its own entries.
type NamespaceDoc struct {
	Name    string     `yaml:"name"`
	Package string     `yaml:"package,omitempty"`
	Parent  string     `yaml:"parent,omitempty"`
	Class   bool       `yaml:"class,omitempty"`
	Entries []EntryDoc `yaml:"entries,omitempty"`
}

// Docs snapshots every namespace, sorted by package then name. Entries
// keep declaration order and carry the group marker that precedes them.
func (rt *Runtime) Docs() []NamespaceDoc {
	var out []NamespaceDoc
	for _, ns := range rt.namespaces {
		doc := NamespaceDoc{
			Name:    ns.Name.String(),
			Package: ns.Package.String(),
			Class:   ns.Name != nil && rt.IsClass(ns.Name.String()),
		}
		if ns.parent != nil {
			doc.Parent = ns.parent.Name.String()
		}
		entries := ns.Entries()
		group := ""
		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			if e.Kind == GroupMarker {
				group = e.Name.String()
				continue
			}
			d := EntryDoc{
				Name:    e.Name.String(),
				Kind:    e.Kind.String(),
				Group:   group,
				Usage:   e.Usage,
				MinArgs: e.MinArgs,
				MaxArgs: e.MaxArgs,
				Line:    e.Line,
			}
			if e.Code != nil {
				d.File = e.Code.Name
			}
			doc.Entries = append(doc.Entries, d)
		}
		out = append(out, doc)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Package != out[j].Package {
			return out[i].Package < out[j].Package
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

func writeEntries(w io.Writer, indent string, entries []EntryDoc) error {
	group := ""
	for _, e := range entries {
		if e.Group != group && e.Group != "" {
			if _, err := fmt.Fprintf(w, "%s/* %s */\n", indent, e.Group); err != nil {
				return err
			}
		}
		group = e.Group
		line := fmt.Sprintf("%s%s [%s]", indent, e.Name, e.Kind)
		if e.Usage != "" {
			line += " - " + e.Usage
		}
		if e.File != "" {
			line += fmt.Sprintf(" (%s:%d)", e.File, e.Line)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// DumpClasses writes every class namespace with its methods.
func (rt *Runtime) DumpClasses(w io.Writer) error {
	for _, doc := range rt.Docs() {
		if !doc.Class || doc.Package != "" {
			continue
		}
		header := "class " + doc.Name
		if doc.Parent != "" {
			header += " : " + doc.Parent
		}
		if _, err := fmt.Fprintln(w, header+" {"); err != nil {
			return fmt.Errorf("dump classes: %w", err)
		}
		if err := writeEntries(w, "   ", doc.Entries); err != nil {
			return fmt.Errorf("dump classes: %w", err)
		}
		if _, err := fmt.Fprintln(w, "};"); err != nil {
			return fmt.Errorf("dump classes: %w", err)
		}
	}
	return nil
}

// DumpFunctions writes every non-class namespace with its functions,
// package overlays included.
func (rt *Runtime) DumpFunctions(w io.Writer) error {
	for _, doc := range rt.Docs() {
		if doc.Class || len(doc.Entries) == 0 {
			continue
		}
		name := doc.Name
		if name == "" {
			name = "<global>"
		}
		if doc.Package != "" {
			name = "[" + doc.Package + "]" + name
		}
		if _, err := fmt.Fprintf(w, "namespace %s {\n", name); err != nil {
			return fmt.Errorf("dump functions: %w", err)
		}
		if err := writeEntries(w, "   ", doc.Entries); err != nil {
			return fmt.Errorf("dump functions: %w", err)
		}
		if _, err := fmt.Fprintln(w, "};"); err != nil {
			return fmt.Errorf("dump functions: %w", err)
		}
	}
	return nil
}

// DumpYAML writes the namespace documentation as a YAML sequence.
func (rt *Runtime) DumpYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rt.Docs()); err != nil {
		return fmt.Errorf("dump yaml: %w", err)
	}
	return enc.Close()
}
