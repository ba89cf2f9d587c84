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

// Package framing turns a byte stream into a sequence of cable messages.
// Every cable frame is self-describing -- its first field is its own
// length -- so the framing layer only needs to read that length prefix and
// then read exactly that many more bytes; it never interprets the body.
package framing

import (
	"bufio"
	"io"

	"github.com/ahdinosaur/cable-go/message"
	"github.com/ahdinosaur/cable-go/varint"
)

// MsgReadWriter is the minimal interface the session manager needs from a
// framed connection: read one decoded message at a time, write one encoded
// message at a time. Any transport that can produce/consume whole cable
// frames satisfies it.
type MsgReadWriter interface {
	ReadMsg() (message.Message, error)
	WriteMsg(message.Message) error
}

// Conn adapts a raw byte stream into a MsgReadWriter.
type Conn struct {
	r *bufio.Reader
	w io.Writer
}

// NewConn wraps rw as a framed cable connection.
func NewConn(rw io.ReadWriter) *Conn {
	return &Conn{r: bufio.NewReader(rw), w: rw}
}

// ReadMsg blocks until one full frame has arrived and decodes it.
func (c *Conn) ReadMsg() (message.Message, error) {
	msgLen, err := readVarint(c.r)
	if err != nil {
		return message.Message{}, err
	}

	frame := make([]byte, varint.Length(msgLen)+int(msgLen))
	n := varint.Encode(msgLen, frame[:0])
	if _, err := io.ReadFull(c.r, frame[len(n):]); err != nil {
		return message.Message{}, err
	}

	msg, _, err := message.Decode(frame)
	return msg, err
}

// WriteMsg encodes msg and writes the resulting frame in a single call.
func (c *Conn) WriteMsg(msg message.Message) error {
	buf, err := message.Encode(msg)
	if err != nil {
		return err
	}
	_, err = c.w.Write(buf)
	return err
}

// readVarint reads one varint from r byte-by-byte, since the encoded
// length is not known up front.
func readVarint(r *bufio.Reader) (uint64, error) {
	var buf []byte
	for i := 0; i < 10; i++ { // a uint64 varint is at most 10 bytes
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		buf = append(buf, b)
		if b < 0x80 {
			v, _, err := varint.Decode(buf)
			return v, err
		}
	}
	return 0, varint.ErrInvalidVarint
}
