// Package firmware loads target firmware images for the bootloader.
//
// Images come either flat, ready to send, or as Intel HEX files produced by
// the target toolchain. A HEX file is flattened into the bootloader layout:
//
//	0xC200 .. 0xFB80   application code, padded with 0xFF
//	0xFF80 ..          interrupt vector table
//
// Basic usage:
//
//	image, err := firmware.Load("sketch.hex")
//	if err != nil {
//	    log.Fatal(err)
//	}
package firmware
