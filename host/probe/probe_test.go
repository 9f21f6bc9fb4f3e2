package probe

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"buspirate/host/serial"
	"buspirate/protocol"
)

const resetOutput = "RESET\r\n\r\nBus Pirate v3.b\r\nFirmware v6.1 Bootloader v4.4\r\nDEVID:0x0447 REVID:0x3046 (24FJ64GA002 B8)\r\nhttp://dangerousprototypes.com\r\nHiZ>"

// resetReplies answers the three writes of a successful Reset
func resetReplies() [][]byte {
	return [][]byte{
		[]byte("BBIO1"),
		[]byte("\r\nHiZ>"),
		[]byte(resetOutput),
	}
}

// resetWrites is what a Reset that reached binary mode first try sends
var resetWrites = []byte{0x00, 0x0F, '#', '\n'}

func testConfig() *Config {
	cfg := DefaultConfig("mock")
	cfg.SettleDelay = 0
	cfg.ShortSettle = 0
	cfg.Retries = 2
	return cfg
}

// newTestProbe returns a probe reset into the user terminal, with the
// reset traffic cleared from the mock
func newTestProbe(t *testing.T) (*Probe, *serial.MockPort) {
	t.Helper()
	mock := serial.NewMockPort(resetReplies()...)
	p, err := New(mock, testConfig())
	require.NoError(t, err)
	mock.ResetWritten()
	return p, mock
}

func newBinaryProbe(t *testing.T) (*Probe, *serial.MockPort) {
	t.Helper()
	p, mock := newTestProbe(t)
	mock.Queue([]byte("BBIO1"))
	v, err := p.EnterBinary()
	require.NoError(t, err)
	require.Equal(t, byte(1), v)
	mock.ResetWritten()
	return p, mock
}

func TestNewResetsToText(t *testing.T) {
	mock := serial.NewMockPort(resetReplies()...)
	p, err := New(mock, testConfig())
	require.NoError(t, err)

	require.Equal(t, ModeText, p.Mode())
	require.Equal(t, resetWrites, mock.Written())
	require.Zero(t, mock.Pending())

	fw, ok := p.FirmwareVersion()
	require.True(t, ok)
	require.Equal(t, protocol.Version{Major: 6, Minor: 1}, fw)

	bl, ok := p.BootloaderVersion()
	require.True(t, ok)
	require.Equal(t, protocol.Version{Major: 4, Minor: 4}, bl)
}

func TestNewWithoutBootloader(t *testing.T) {
	mock := serial.NewMockPort([]byte("BBIO1"), nil, []byte("RESET\r\nFirmware v5.10 (r559)\r\n"))
	p, err := New(mock, testConfig())
	require.NoError(t, err)

	fw, ok := p.FirmwareVersion()
	require.True(t, ok)
	require.Equal(t, "v5.10", fw.String())

	_, ok = p.BootloaderVersion()
	require.False(t, ok)
}

func TestResetRetriesBinaryEntry(t *testing.T) {
	mock := serial.NewMockPort(nil, nil, []byte("BBIO1"), nil, []byte(resetOutput))
	mock.Chunk = 2

	p, err := New(mock, testConfig())
	require.NoError(t, err)
	require.Equal(t, ModeText, p.Mode())
	require.Equal(t, append([]byte{0x00, 0x00}, resetWrites...), mock.Written())
}

func TestResetDropsStaleInput(t *testing.T) {
	mock := serial.NewMockPort(resetReplies()...)
	mock.Inject([]byte("garbage from an interrupted command"))

	p, err := New(mock, testConfig())
	require.NoError(t, err)
	require.Equal(t, ModeText, p.Mode())
}

func TestNewNoResponse(t *testing.T) {
	mock := serial.NewMockPort()

	p, err := New(mock, testConfig())
	require.ErrorIs(t, err, protocol.ErrNoResponse)
	require.Nil(t, p)
	require.Equal(t, bytes.Repeat([]byte{0x00}, 20), mock.Written())
	require.False(t, mock.Closed())
}

func TestResetNoResponseKeepsState(t *testing.T) {
	p, mock := newBinaryProbe(t)

	err := p.Reset()
	require.ErrorIs(t, err, protocol.ErrNoResponse)
	require.Equal(t, ModeBinary, p.Mode())
	require.Len(t, mock.Written(), 20)

	_, ok := p.FirmwareVersion()
	require.True(t, ok)
}

func TestResetFailureAfterBinaryEntry(t *testing.T) {
	testCases := []struct {
		name   string
		output string
		err    error
	}{
		{
			name:   "no banner",
			output: "RESET\r\nBus Pirate v3.b\r\n",
			err:    protocol.ErrNoVersionBanner,
		},
		{
			name:   "malformed firmware version",
			output: "RESET\r\nFirmware 6.1\r\n",
			err:    protocol.ErrVersionParse,
		},
		{
			name:   "malformed bootloader version",
			output: "Firmware v6.1 Bootloader 4.4\r\n",
			err:    protocol.ErrVersionParse,
		},
		{
			name:   "banner beyond line limit",
			output: "1\n2\n3\n4\n5\n6\n7\n8\n9\n10\nFirmware v6.1\r\n",
			err:    protocol.ErrNoVersionBanner,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, mock := newTestProbe(t)
			mock.Queue([]byte("BBIO1"), nil, []byte(tc.output))

			err := p.Reset()
			require.ErrorIs(t, err, tc.err)
			require.Equal(t, ModeUnknown, p.Mode())

			_, ok := p.FirmwareVersion()
			require.False(t, ok)
			_, ok = p.BootloaderVersion()
			require.False(t, ok)
		})
	}
}

func TestResetBadBinaryReplyDesyncs(t *testing.T) {
	testCases := []struct {
		name  string
		reply string
		err   error
	}{
		{name: "wrong magic", reply: "BXIO1", err: protocol.ErrProtocol},
		{name: "version 2", reply: "BBIO2", err: protocol.ErrUnsupportedVersion},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, mock := newTestProbe(t)
			require.Equal(t, ModeText, p.Mode())
			mock.Queue([]byte(tc.reply))

			err := p.Reset()
			require.ErrorIs(t, err, tc.err)
			require.Equal(t, ModeUnknown, p.Mode())

			_, ok := p.FirmwareVersion()
			require.False(t, ok)
			_, ok = p.BootloaderVersion()
			require.False(t, ok)
		})
	}
}

func TestEnterBinaryBadReply(t *testing.T) {
	testCases := []struct {
		name  string
		reply string
		err   error
	}{
		{name: "wrong magic", reply: "BXIO1", err: protocol.ErrProtocol},
		{name: "non digit version", reply: "BBIOx", err: protocol.ErrProtocol},
		{name: "version 2", reply: "BBIO2", err: protocol.ErrUnsupportedVersion},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, mock := newTestProbe(t)
			mock.Queue([]byte(tc.reply))

			_, err := p.EnterBinary()
			require.ErrorIs(t, err, tc.err)
			require.Equal(t, ModeText, p.Mode())
			// no retry after a wrong answer
			require.Equal(t, []byte{0x00}, mock.Written())
		})
	}

	t.Run("version error details", func(t *testing.T) {
		p, mock := newTestProbe(t)
		mock.Queue([]byte("BBIO2"))

		_, err := p.EnterBinary()
		var verr *protocol.UnsupportedVersionError
		require.True(t, errors.As(err, &verr))
		require.Equal(t, 2, verr.Got)
		require.Equal(t, 1, verr.Want)
	})
}

func TestEnterI2C(t *testing.T) {
	p, mock := newBinaryProbe(t)
	mock.Queue([]byte("I2C2"))

	v, err := p.EnterI2C()
	require.NoError(t, err)
	require.Equal(t, byte(2), v)
	require.Equal(t, ModeI2C, p.Mode())
	require.Equal(t, []byte{0x02}, mock.Written())
}

func TestEnterI2CWrongMagic(t *testing.T) {
	for _, reply := range []string{"SPI1", "I2Cx", "I2C0"} {
		t.Run(reply, func(t *testing.T) {
			p, mock := newBinaryProbe(t)
			mock.Queue([]byte(reply))

			_, err := p.EnterI2C()
			require.ErrorIs(t, err, protocol.ErrProtocol)
			require.Equal(t, ModeBinary, p.Mode())

			var merr *protocol.MismatchError
			require.True(t, errors.As(err, &merr))
			require.Equal(t, []byte(reply), merr.Got)
		})
	}
}

func TestEnterOtherSubmodes(t *testing.T) {
	p, mock := newBinaryProbe(t)
	mock.Queue([]byte("SPI1"))
	_, err := p.EnterSPI()
	require.NoError(t, err)
	require.Equal(t, ModeSPI, p.Mode())

	mock.Queue([]byte("BBIO1"))
	_, err = p.BinaryReset()
	require.NoError(t, err)
	require.Equal(t, ModeBinary, p.Mode())

	mock.Queue([]byte("RAW1"))
	_, err = p.EnterRawWire()
	require.NoError(t, err)
	require.Equal(t, ModeRawWire, p.Mode())

	require.Equal(t, []byte{0x01, 0x00, 0x05}, mock.Written())
}

func TestStatePreconditions(t *testing.T) {
	p, mock := newTestProbe(t)

	_, err := p.EnterI2C()
	require.ErrorIs(t, err, protocol.ErrState)

	var serr *StateError
	require.True(t, errors.As(err, &serr))
	require.Equal(t, ModeBinary, serr.Want)
	require.Equal(t, ModeText, serr.Have)

	_, err = p.BinaryReset()
	require.ErrorIs(t, err, protocol.ErrState)
	_, err = p.PinsConfigure(PinAUX)
	require.ErrorIs(t, err, protocol.ErrState)
	_, err = p.PinsSet(0, false, false)
	require.ErrorIs(t, err, protocol.ErrState)
	_, err = p.ReadVoltage()
	require.ErrorIs(t, err, protocol.ErrState)
	require.ErrorIs(t, p.I2C().Start(), protocol.ErrState)

	require.Empty(t, mock.Written())
}

func TestClosedProbe(t *testing.T) {
	p, mock := newTestProbe(t)
	require.NoError(t, p.Close())
	require.True(t, mock.Closed())
	require.NoError(t, p.Close())

	require.ErrorIs(t, p.Reset(), protocol.ErrClosed)
	_, err := p.EnterBinary()
	require.ErrorIs(t, err, protocol.ErrClosed)
	_, err = p.PinsSet(0, false, false)
	require.ErrorIs(t, err, protocol.ErrClosed)
	require.ErrorIs(t, p.I2C().Stop(), protocol.ErrClosed)
	require.Equal(t, ModeUnknown, p.Mode())
}

func TestWriteFailures(t *testing.T) {
	t.Run("transport error", func(t *testing.T) {
		p, mock := newBinaryProbe(t)
		mock.WriteErr = errors.New("unplugged")

		_, err := p.ReadVoltage()
		require.ErrorIs(t, err, protocol.ErrIO)
	})

	t.Run("short write", func(t *testing.T) {
		p, mock := newBinaryProbe(t)
		mock.ShortWrite = true

		_, err := p.ReadVoltage()
		require.ErrorIs(t, err, protocol.ErrIO)
	})

	t.Run("read error", func(t *testing.T) {
		p, mock := newBinaryProbe(t)
		mock.ReadErr = errors.New("device gone")

		_, err := p.ReadVoltage()
		require.ErrorIs(t, err, protocol.ErrIO)
	})
}

func TestOpenNilConfig(t *testing.T) {
	_, err := Open(nil)
	require.Error(t, err)
	_, err = New(serial.NewMockPort(), nil)
	require.Error(t, err)
}
