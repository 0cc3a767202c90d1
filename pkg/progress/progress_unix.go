//go:build !windows

package progress

import "os"

// EnableVirtualTerminal reports whether f is a terminal. Unix terminals
// handle ANSI escapes without setup.
func EnableVirtualTerminal(f *os.File) bool {
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
