package gpio_test

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/obdmon/internal/gpio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineReadsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "value")
	line := gpio.NewLine(path)

	require.NoError(t, os.WriteFile(path, []byte("1\n"), 0o600))
	high, err := line.High()
	require.NoError(t, err)
	assert.True(t, high)

	require.NoError(t, os.WriteFile(path, []byte("0\n"), 0o600))
	high, err = line.High()
	require.NoError(t, err)
	assert.False(t, high)
}

func TestLineMissingFile(t *testing.T) {
	line := gpio.NewLine(filepath.Join(t.TempDir(), "missing"))

	_, err := line.High()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gpio_read_failed")
}

func TestStatic(t *testing.T) {
	high, err := gpio.Static(true).High()
	require.NoError(t, err)
	assert.True(t, high)

	high, err = gpio.Static(false).High()
	require.NoError(t, err)
	assert.False(t, high)
}
