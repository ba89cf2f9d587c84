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

package message

import (
	"errors"
	"fmt"
)

// Sentinel codec errors. Use errors.Is against these, not string matching.
var (
	ErrMessageEmpty           = errors.New("message: empty input")
	ErrShortBuffer            = errors.New("message: buffer shorter than declared length")
	ErrHashTruncated          = errors.New("message: fewer than 32 bytes remaining for hash")
	ErrInvalidChannelEncoding = errors.New("message: channel name is not valid utf-8")
	ErrWriteUnrecognizedType  = errors.New("message: cannot encode an unrecognized message type")
)

// ErrDstTooSmall is returned by encoders that write into a caller-supplied
// buffer when that buffer is too small to hold the encoded message.
type ErrDstTooSmall struct {
	Required int
	Provided int
}

func (e *ErrDstTooSmall) Error() string {
	return fmt.Sprintf("message: destination buffer too small: need %d bytes, have %d", e.Required, e.Provided)
}
