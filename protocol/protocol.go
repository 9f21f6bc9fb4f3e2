// Package protocol implements the Bus Pirate binary and console wire protocol
// primitives shared by the host driver: opcodes, the receive ring buffer,
// version banners and the error taxonomy.
package protocol

// Binary I/O (bitbang) mode commands
const (
	CmdBinaryReset  = 0x00 // Enter/reset raw binary mode, answers "BBIOx"
	CmdModeSPI      = 0x01 // Answers "SPIx"
	CmdModeI2C      = 0x02 // Answers "I2Cx"
	CmdModeUART     = 0x03 // Answers "ARTx"
	CmdMode1Wire    = 0x04 // Answers "1Wx"
	CmdModeRawWire  = 0x05 // Answers "RAWx"
	CmdExitToText   = 0x0F // Return to the user terminal
	CmdShortTest    = 0x10
	CmdLongTest     = 0x11
	CmdPWMSetup     = 0x12
	CmdPWMClear     = 0x13
	CmdVoltageProbe = 0x14 // Answers 2 bytes, big endian ADC value
	CmdPinsSetup    = 0x40 // Direction: 1=input, 0=output. Answers 010xxxxx
	CmdPinsSet      = 0x80 // Levels: 1=high, 0=low. Answers 1xxxxxxx
)

// Pin bits used by CmdPinsSetup and CmdPinsSet
const (
	PinCS     = 0x01
	PinMISO   = 0x02
	PinCLK    = 0x04
	PinMOSI   = 0x08
	PinAUX    = 0x10
	PinPullup = 0x20 // CmdPinsSet only
	PinPower  = 0x40 // CmdPinsSet only

	PinDirectionMask = 0x1F
	PinLevelMask     = 0x7F
)

// I2C sub-mode commands
const (
	I2CCmdVersion   = 0x01
	I2CCmdStart     = 0x02
	I2CCmdStop      = 0x03
	I2CCmdReadByte  = 0x04
	I2CCmdAck       = 0x06
	I2CCmdNack      = 0x07
	I2CCmdBulkWrite = 0x10 // Low nibble is byte count - 1
	I2CCmdSetPeriph = 0x40 // Low nibble: power, pullups, AUX, CS
	I2CCmdSetSpeed  = 0x60 // Low 2 bits: speed level
)

// I2C peripheral configuration bits
const (
	I2CPeriphCS      = 0x01
	I2CPeriphAUX     = 0x02
	I2CPeriphPullups = 0x04
	I2CPeriphPower   = 0x08
	I2CPeriphMask    = 0x0F
)

// I2C speed levels
const (
	I2CSpeed5kHz   = 0x00
	I2CSpeed50kHz  = 0x01
	I2CSpeed100kHz = 0x02
	I2CSpeed400kHz = 0x03
)

// Response values
const (
	RespOK      = 0x01 // Generic command acknowledgement
	RespI2CAck  = 0x00 // Peripheral pulled SDA low
	RespI2CNack = 0x01
)

// Protocol constants
const (
	// BinaryVersion is the only binary I/O protocol version understood
	BinaryVersion = 1

	BinaryMagic    = "BBIO"
	I2CMagic       = "I2C"
	SPIMagic       = "SPI"
	RawWireMagic   = "RAW"
	ConsoleReset   = "#\n"
	FirmwareToken  = "Firmware"
	BootloaderTok  = "Bootloader"
	MaxLineChars   = 80
	MaxBannerLines = 10

	// BufferSize is the default receive ring capacity
	BufferSize = 1024
)
