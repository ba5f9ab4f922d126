// Package util provides shared utility functions used across the codebase.
package util

import (
	"github.com/charmbracelet/x/ansi"
)

// TruncatePath shortens p to maxWidth terminal cells by dropping its
// beginning, so the file name stays visible. ANSI sequences and wide
// characters are measured correctly.
func TruncatePath(p string, maxWidth int) string {
	if maxWidth <= 3 {
		return "..."
	}
	width := ansi.StringWidth(p)
	if width <= maxWidth {
		return p
	}
	return ansi.TruncateLeft(p, width-maxWidth+3, "...")
}
