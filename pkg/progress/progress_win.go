//go:build windows

package progress

import (
	"os"

	"golang.org/x/sys/windows"
)

func init() {
	EnableVirtualTerminal(os.Stdout)
	EnableVirtualTerminal(os.Stderr)
}

// EnableVirtualTerminal switches the console behind f to ANSI escape
// processing. It reports false when f is not a console.
func EnableVirtualTerminal(f *os.File) bool {
	handle := windows.Handle(f.Fd())

	var mode uint32
	if err := windows.GetConsoleMode(handle, &mode); err != nil {
		return false
	}
	if mode&windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING != 0 {
		return true
	}
	return windows.SetConsoleMode(handle, mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING) == nil
}
