//go:build linux

package proctitle

import (
	"errors"
	"os"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// the kernel truncates comm names past 15 bytes
const procNameMax = 15

// Set renames the process in ps/top output via PR_SET_NAME and rewrites
// Args[0] so panic traces carry the same name.
func Set(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New("empty process title")
	}

	if len(os.Args) > 0 {
		os.Args[0] = title
	}

	name := make([]byte, procNameMax+1)
	copy(name, title)

	return unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(&name[0])), 0, 0, 0)
}
