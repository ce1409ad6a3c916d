// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains helpers shared by the bus tools, such as the
// checksum appended to frames.
package common

// CRC8 returns the Dallas/Maxim CRC-8 of b (polynomial x^8+x^5+x^4+1,
// initial value 0). It is computed least significant bit first, the order
// in which the bytes travel on the wire.
func CRC8(b []byte) byte {
	var crc byte
	for _, v := range b {
		crc ^= v
		for range 8 {
			if crc&0x01 == 0 {
				crc >>= 1
			} else {
				crc = crc>>1 ^ 0x8c
			}
		}
	}
	return crc
}

// AppendCRC returns b followed by its CRC8.
func AppendCRC(b []byte) []byte {
	return append(b, CRC8(b))
}

// CheckCRC reports whether the last byte of b is the CRC8 of the bytes
// before it.
func CheckCRC(b []byte) bool {
	return len(b) > 1 && CRC8(b) == 0
}
