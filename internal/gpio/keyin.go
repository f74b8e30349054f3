// Package gpio reads the digital inputs the monitor depends on. The only
// line in use is the key-in signal wired to the ignition sense.
package gpio

import (
	"bytes"
	"os"

	"codeberg.org/mutker/obdmon/internal/errors"
)

const ErrReadLine = errors.ErrorCode("gpio_read_failed")

// Signal is a digital level input.
type Signal interface {
	High() (bool, error)
}

// Line reads a sysfs GPIO value file. The line must be exported and
// configured as an input (with a pull-down, for an ignition sense wire)
// before the daemon starts.
type Line struct {
	path string
}

func NewLine(path string) *Line {
	return &Line{path: path}
}

func (l *Line) High() (bool, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return false, errors.Wrap(ErrReadLine, err)
	}

	value := bytes.TrimSpace(raw)

	return len(value) > 0 && value[0] == '1', nil
}

// Static is a fixed-level signal for tests and bench setups without the
// ignition wire connected.
type Static bool

func (s Static) High() (bool, error) {
	return bool(s), nil
}
