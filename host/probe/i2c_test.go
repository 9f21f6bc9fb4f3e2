package probe

import (
	"testing"

	"github.com/stretchr/testify/require"

	"buspirate/host/serial"
	"buspirate/protocol"
)

func newI2CProbe(t *testing.T) (*Probe, *serial.MockPort) {
	t.Helper()
	p, mock := newBinaryProbe(t)
	mock.Queue([]byte("I2C1"))
	_, err := p.EnterI2C()
	require.NoError(t, err)
	mock.ResetWritten()
	return p, mock
}

func TestI2CWrite(t *testing.T) {
	testCases := []struct {
		name  string
		reply []byte
		want  Ack
		err   error
	}{
		{name: "ack", reply: []byte{0x01, 0x00}, want: ACK},
		{name: "nack", reply: []byte{0x01, 0x01}, want: NACK},
		{name: "command refused", reply: []byte{0x00, 0x00}, err: protocol.ErrProtocol},
		{name: "bad ack bit", reply: []byte{0x01, 0x02}, err: protocol.ErrProtocol},
		{name: "no answer", err: protocol.ErrTimeout},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, mock := newI2CProbe(t)
			mock.Queue(tc.reply)

			ack, err := p.I2C().Write(0xA0)
			require.Equal(t, []byte{0x10, 0xA0}, mock.Written())
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, ack)
		})
	}
}

func TestI2CCommands(t *testing.T) {
	testCases := []struct {
		name string
		cmd  byte
		call func(*I2C) error
	}{
		{name: "start", cmd: 0x02, call: (*I2C).Start},
		{name: "stop", cmd: 0x03, call: (*I2C).Stop},
		{name: "ack", cmd: 0x06, call: (*I2C).Ack},
		{name: "nack", cmd: 0x07, call: (*I2C).Nack},
		{name: "peripheral", cmd: 0x4C, call: func(c *I2C) error {
			return c.SetPeripheral(PeriphPower | PeriphPullups)
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, mock := newI2CProbe(t)
			mock.Queue([]byte{0x01}, []byte{0x00})

			require.NoError(t, tc.call(p.I2C()))
			require.ErrorIs(t, tc.call(p.I2C()), protocol.ErrProtocol)
			require.Equal(t, []byte{tc.cmd, tc.cmd}, mock.Written())
		})
	}
}

func TestI2CReadByte(t *testing.T) {
	p, mock := newI2CProbe(t)
	mock.Queue([]byte{0x5A})

	v, err := p.I2C().ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(0x5A), v)
	require.Equal(t, []byte{0x04}, mock.Written())
}

func TestI2CVersion(t *testing.T) {
	p, mock := newI2CProbe(t)
	mock.Queue([]byte("I2C1"), []byte("I2C9"))

	v, err := p.I2C().Version()
	require.NoError(t, err)
	require.Equal(t, byte(1), v)

	_, err = p.I2C().Version()
	require.ErrorIs(t, err, protocol.ErrProtocol)
}

func TestI2CSetSpeed(t *testing.T) {
	p, mock := newI2CProbe(t)
	// the echoed byte is not checked
	mock.Queue([]byte{0x00})

	require.NoError(t, p.I2C().SetSpeed(Speed400kHz))
	require.Equal(t, []byte{0x63}, mock.Written())

	require.ErrorIs(t, p.I2C().SetSpeed(Speed(4)), protocol.ErrInvalidArgument)
	require.ErrorIs(t, p.I2C().SetPeripheral(Peripheral(0x10)), protocol.ErrInvalidArgument)
	require.Equal(t, []byte{0x63}, mock.Written())
}

func TestI2CRequiresI2CMode(t *testing.T) {
	p, mock := newBinaryProbe(t)

	_, err := p.I2C().Write(0x00)
	require.ErrorIs(t, err, protocol.ErrState)
	_, err = p.I2C().ReadByte()
	require.ErrorIs(t, err, protocol.ErrState)
	require.Empty(t, mock.Written())
}

func TestAckString(t *testing.T) {
	require.Equal(t, "ACK", ACK.String())
	require.Equal(t, "NACK", NACK.String())
	require.Equal(t, "100kHz", Speed100kHz.String())
}
