package probe

import (
	"testing"

	"github.com/stretchr/testify/require"

	"buspirate/protocol"
)

func TestPinsConfigure(t *testing.T) {
	p, mock := newBinaryProbe(t)
	mock.Queue([]byte{0x50})

	pins, err := p.PinsConfigure(PinAUX)
	require.NoError(t, err)
	require.Equal(t, PinAUX, pins)
	require.Equal(t, []byte{0x50}, mock.Written())
}

func TestPinsConfigureErrors(t *testing.T) {
	t.Run("level reply", func(t *testing.T) {
		p, mock := newBinaryProbe(t)
		mock.Queue([]byte{0x90})

		_, err := p.PinsConfigure(PinAUX)
		require.ErrorIs(t, err, protocol.ErrProtocol)
	})

	t.Run("power is not a direction", func(t *testing.T) {
		p, mock := newBinaryProbe(t)

		_, err := p.PinsConfigure(PinPower)
		require.ErrorIs(t, err, protocol.ErrInvalidArgument)
		require.Empty(t, mock.Written())
	})
}

func TestPinsSet(t *testing.T) {
	p, mock := newBinaryProbe(t)
	mock.Queue([]byte{0xE3})

	pins, err := p.PinsSet(PinCS|PinMOSI, true, true)
	require.NoError(t, err)
	require.Equal(t, []byte{0xE9}, mock.Written())
	// MOSI driven high reads back low, MISO configured as input reads high
	require.Equal(t, PinPower|PinPullup|PinMISO|PinCS, pins)
}

func TestPinsSetErrors(t *testing.T) {
	t.Run("power bit not echoed", func(t *testing.T) {
		p, mock := newBinaryProbe(t)
		mock.Queue([]byte{0xA9})

		_, err := p.PinsSet(PinCS|PinMOSI, true, true)
		require.ErrorIs(t, err, protocol.ErrProtocol)
	})

	t.Run("levels outside the pin mask", func(t *testing.T) {
		p, _ := newBinaryProbe(t)

		_, err := p.PinsSet(PinPullup, false, false)
		require.ErrorIs(t, err, protocol.ErrInvalidArgument)
	})

	t.Run("timeout", func(t *testing.T) {
		p, _ := newBinaryProbe(t)

		_, err := p.PinsSet(0, false, false)
		require.ErrorIs(t, err, protocol.ErrTimeout)
	})
}

func TestReadVoltage(t *testing.T) {
	testCases := []struct {
		name  string
		reply []byte
		want  int
	}{
		{name: "zero", reply: []byte{0x00, 0x00}, want: 0},
		{name: "256 counts", reply: []byte{0x01, 0x00}, want: 1690},
		{name: "full scale", reply: []byte{0x03, 0xFF}, want: 6752},
		{name: "low byte", reply: []byte{0x00, 0x05}, want: 33},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, mock := newBinaryProbe(t)
			mock.Queue(tc.reply)

			mv, err := p.ReadVoltage()
			require.NoError(t, err)
			require.Equal(t, tc.want, mv)
			require.Equal(t, []byte{0x14}, mock.Written())
		})
	}
}

func TestPinsString(t *testing.T) {
	require.Equal(t, "none", Pins(0).String())
	require.Equal(t, "AUX|CS", (PinAUX | PinCS).String())
	require.Equal(t, "POWER|PULLUP", (PinPower | PinPullup).String())
}
