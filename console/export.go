package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/GarageGames/Torque3D-sub044/compiler"
)

// ---------------------------------------------------------------------------
// Variable export: "name = value;" script text
// ---------------------------------------------------------------------------

// FormatExport renders one variable as a console assignment statement.
// Numbers are written bare, strings quoted with escapes expanded.
func FormatExport(v *Variable) string {
	var val string
	switch v.value.kind {
	case KindInt:
		val = strconv.FormatInt(v.value.i, 10)
	case KindFloat:
		val = compiler.FormatFloat(v.value.f)
	default:
		val = `"` + ExpandEscape(v.value.s) + `"`
	}
	return v.name.text + " = " + val + ";"
}

// ExportVariables writes every variable matching pattern to w, one
// statement per line, sorted case-insensitively by name.
func (d *Dictionary) ExportVariables(pattern string, w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, v := range d.Match(pattern) {
		if _, err := bw.WriteString(FormatExport(v) + "\n"); err != nil {
			return fmt.Errorf("export variables: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("export variables: %w", err)
	}
	return nil
}

// ExportToFile writes the matching variables to path, appending when asked.
func (d *Dictionary) ExportToFile(pattern, path string, appendMode bool) error {
	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("export variables: %w", err)
	}
	if err := d.ExportVariables(pattern, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ExpandEscape turns control characters, quotes and backslashes into the
// escape sequences the script lexer reads back.
func ExpandEscape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		default:
			if c < 0x20 {
				fmt.Fprintf(&b, `\x%02x`, c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	return b.String()
}
