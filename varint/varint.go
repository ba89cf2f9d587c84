// Copyright 2024 The cable Authors
// This file is part of the cable library.
//
// The cable library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The cable library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the cable library. If not, see <http://www.gnu.org/licenses/>.

// Package varint implements the LEB128-style variable-length unsigned
// integer encoding used as the length prefix of every cable wire field.
package varint

import (
	"errors"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrInvalidVarint is returned when decoding fails because the input is
// truncated or the encoded value overflows 64 bits.
var ErrInvalidVarint = errors.New("varint: invalid or truncated input")

// Length returns the number of bytes needed to encode v.
func Length(v uint64) int {
	return protowire.SizeVarint(v)
}

// Encode appends the varint encoding of v to buf and returns the extended
// slice.
func Encode(v uint64, buf []byte) []byte {
	return protowire.AppendVarint(buf, v)
}

// Decode reads a varint from the front of buf, returning the value and the
// number of bytes consumed. It fails with ErrInvalidVarint on truncated
// input or overflow beyond 64 bits.
func Decode(buf []byte) (value uint64, n int, err error) {
	value, n = protowire.ConsumeVarint(buf)
	if n < 0 {
		return 0, 0, ErrInvalidVarint
	}
	return value, n, nil
}
