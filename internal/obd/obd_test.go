package obd_test

import (
	"testing"

	"codeberg.org/mutker/obdmon/internal/canbus"
	"codeberg.org/mutker/obdmon/internal/obd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestPayloads(t *testing.T) {
	rpm := obd.Request(obd.RPM)
	assert.Equal(t, [8]byte{0x02, 0x01, 0x0C, 0xCC, 0xCC, 0xCC, 0xCC, 0xCC}, rpm)

	speed := obd.Request(obd.Speed)
	assert.Equal(t, [8]byte{0x02, 0x01, 0x0D, 0x55, 0x55, 0x55, 0x55, 0x55}, speed)
}

func TestDecodeRPMReply(t *testing.T) {
	// 0x1AF8 quarter-revolutions = 6904/4 = 1726 RPM
	frame := canbus.Frame{
		ID:     obd.ReplyID,
		Length: 8,
		Data:   [8]byte{0x04, 0x41, 0x0C, 0x1A, 0xF8, 0, 0, 0},
	}

	q, value, ok := obd.DecodeReply(frame)
	require.True(t, ok)
	assert.Equal(t, obd.RPM, q)
	assert.Equal(t, 1726, value)
}

func TestDecodeSpeedReply(t *testing.T) {
	frame := canbus.Frame{
		ID:     obd.ReplyID,
		Length: 8,
		Data:   [8]byte{0x03, 0x41, 0x0D, 60, 0, 0, 0, 0},
	}

	q, value, ok := obd.DecodeReply(frame)
	require.True(t, ok)
	assert.Equal(t, obd.Speed, q)
	assert.Equal(t, 60, value)
}

func TestDecodeRejectsNonMatchingFrames(t *testing.T) {
	tests := []struct {
		name  string
		frame canbus.Frame
	}{
		{
			name: "wrong reply id",
			frame: canbus.Frame{
				ID:   0x7E9,
				Data: [8]byte{0x04, 0x41, 0x0C, 0x1A, 0xF8, 0, 0, 0},
			},
		},
		{
			name: "extended frame",
			frame: canbus.Frame{
				ID:       obd.ReplyID,
				Extended: true,
				Data:     [8]byte{0x04, 0x41, 0x0C, 0x1A, 0xF8, 0, 0, 0},
			},
		},
		{
			name: "wrong service response",
			frame: canbus.Frame{
				ID:   obd.ReplyID,
				Data: [8]byte{0x04, 0x42, 0x0C, 0x1A, 0xF8, 0, 0, 0},
			},
		},
		{
			name: "unknown pid",
			frame: canbus.Frame{
				ID:   obd.ReplyID,
				Data: [8]byte{0x04, 0x41, 0x05, 0x1A, 0xF8, 0, 0, 0},
			},
		},
		{
			name: "length code mismatched to pid",
			frame: canbus.Frame{
				ID:   obd.ReplyID,
				Data: [8]byte{0x03, 0x41, 0x0C, 0x1A, 0xF8, 0, 0, 0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, ok := obd.DecodeReply(tt.frame)
			assert.False(t, ok)
		})
	}
}
