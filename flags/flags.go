package flags

import (
	"bytes"
	"fmt"
	"strings"
	"syscall"
)

const (
	O_RDONLY     int = syscall.O_RDONLY
	O_WRONLY     int = syscall.O_WRONLY
	O_RDWR       int = syscall.O_RDWR
	O_CREATE     int = syscall.O_CREAT
	O_RDWRCREATE int = O_RDWR | O_CREATE
)

type FlagsReader interface {
	Flags() int
}

func IsReadAllowed(flags int) bool {
	mode := flags & syscall.O_ACCMODE
	return mode == O_RDONLY || mode == O_RDWR
}

func IsWriteAllowed(flags int) bool {
	mode := flags & syscall.O_ACCMODE
	return mode == O_WRONLY || mode == O_RDWR
}

func FlagsToString(flags int) string {
	var b bytes.Buffer
	if IsReadAllowed(flags) {
		b.WriteString("R")
	}
	if IsWriteAllowed(flags) {
		b.WriteString("W")
	}
	if flags&O_CREATE != 0 {
		b.WriteString("C")
	}
	return b.String()
}

// Parse converts the config file notation ("ro", "rw") into flags.
func Parse(s string) (int, error) {
	switch strings.ToLower(s) {
	case "", "rw", "readwrite":
		return O_RDWRCREATE, nil
	case "ro", "readonly":
		return O_RDONLY, nil
	default:
		return 0, fmt.Errorf("Unknown access mode %q. Expected \"ro\" or \"rw\"", s)
	}
}
