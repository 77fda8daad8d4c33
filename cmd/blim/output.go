package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// palette holds the colors used for command output. Colors are off unless the
// output is a terminal.
type palette struct {
	header *color.Color
	name   *color.Color
	value  *color.Color
	dim    *color.Color
}

func newPalette(w io.Writer) *palette {
	enabled := isTerminal(w)
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	return &palette{
		header: mk(color.Bold),
		name:   mk(color.FgCyan),
		value:  mk(color.FgGreen),
		dim:    mk(color.Faint),
	}
}

// formatHex renders b as space separated upper-case hex bytes.
func formatHex(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", c)
	}
	return sb.String()
}

// parseHex accepts "0102", "01 02", "01:02" and "0x0102".
func parseHex(s string) ([]byte, error) {
	clean := strings.NewReplacer(" ", "", ":", "", "-", "").Replace(strings.TrimSpace(s))
	clean = strings.TrimPrefix(strings.TrimPrefix(clean, "0x"), "0X")
	if clean == "" {
		return nil, fmt.Errorf("empty payload")
	}
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload %q: %w", s, err)
	}
	return b, nil
}

// formatValue renders a value as hex or, when printable, as text.
func formatValue(b []byte, asHex bool) string {
	if asHex || !isPrintable(b) {
		return formatHex(b)
	}
	return string(b)
}

func isPrintable(b []byte) bool {
	for _, c := range b {
		if (c < 0x20 || c > 0x7e) && c != '\n' && c != '\r' && c != '\t' {
			return false
		}
	}
	return len(b) > 0
}
