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
	"fmt"
	"unicode/utf8"

	"github.com/ahdinosaur/cable-go/varint"
)

// Encode serialises msg as a single length-prefixed frame.
func Encode(msg Message) ([]byte, error) {
	if _, ok := msg.Body.(Unrecognized); ok {
		return nil, ErrWriteUnrecognizedType
	}

	body, err := encodeBody(msg.Body)
	if err != nil {
		return nil, err
	}

	inner := varint.Encode(msg.Body.MsgType(), nil)
	inner = append(inner, msg.Header.CircuitId[:]...)
	inner = append(inner, msg.Header.ReqId[:]...)
	inner = append(inner, body...)

	out := varint.Encode(uint64(len(inner)), nil)
	out = append(out, inner...)
	return out, nil
}

// CountBytes returns the total number of bytes Encode(msg) would produce:
// length(msg_len) + msg_len.
func CountBytes(msg Message) (int, error) {
	buf, err := Encode(msg)
	if err != nil {
		return 0, err
	}
	return len(buf), nil
}

// Decode reads exactly one frame from the front of buf, returning the
// decoded message and the number of bytes consumed.
func Decode(buf []byte) (Message, int, error) {
	if len(buf) == 0 {
		return Message{}, 0, ErrMessageEmpty
	}

	msgLen, n, err := varint.Decode(buf)
	if err != nil {
		return Message{}, 0, err
	}
	rest := buf[n:]
	if uint64(len(rest)) < msgLen {
		return Message{}, 0, ErrShortBuffer
	}
	frame := rest[:msgLen]
	total := n + int(msgLen)

	msgType, m, err := varint.Decode(frame)
	if err != nil {
		return Message{}, 0, err
	}
	frame = frame[m:]

	var hdr Header
	if len(frame) < 8 {
		return Message{}, 0, ErrShortBuffer
	}
	copy(hdr.CircuitId[:], frame[0:4])
	copy(hdr.ReqId[:], frame[4:8])
	frame = frame[8:]

	body, err := decodeBody(msgType, frame)
	if err != nil {
		return Message{}, 0, err
	}

	return Message{Header: hdr, Body: body}, total, nil
}

func clampTTL(ttl uint64) uint64 {
	if ttl > MaxTTL {
		return MaxTTL
	}
	return ttl
}

func encodeBody(body Body) ([]byte, error) {
	switch b := body.(type) {
	case HashResponse:
		return encodeHashes(b.Hashes), nil

	case PostResponse:
		var out []byte
		for _, post := range b.Posts {
			out = varint.Encode(uint64(len(post)), out)
			out = append(out, post...)
		}
		out = varint.Encode(0, out) // terminator
		return out, nil

	case PostRequest:
		out := varint.Encode(b.TTL, nil)
		out = append(out, encodeHashes(b.Hashes)...)
		return out, nil

	case CancelRequest:
		out := varint.Encode(b.TTL, nil)
		out = append(out, b.CancelID[:]...)
		return out, nil

	case ChannelTimeRangeRequest:
		out := varint.Encode(b.TTL, nil)
		chanBytes, err := encodeChannel(b.Channel)
		if err != nil {
			return nil, err
		}
		out = append(out, chanBytes...)
		out = varint.Encode(b.TimeStart, out)
		out = varint.Encode(b.TimeEnd, out)
		out = varint.Encode(b.Limit, out)
		return out, nil

	case ChannelStateRequest:
		out := varint.Encode(b.TTL, nil)
		chanBytes, err := encodeChannel(b.Channel)
		if err != nil {
			return nil, err
		}
		out = append(out, chanBytes...)
		out = varint.Encode(b.Future, out)
		return out, nil

	case ChannelListRequest:
		out := varint.Encode(b.TTL, nil)
		out = varint.Encode(b.Skip, out)
		out = varint.Encode(b.Limit, out)
		return out, nil

	case ChannelListResponse:
		var out []byte
		for _, ch := range b.Channels {
			chanBytes, err := encodeChannel(ch)
			if err != nil {
				return nil, err
			}
			out = append(out, chanBytes...)
		}
		out = varint.Encode(0, out) // terminator
		return out, nil

	default:
		return nil, fmt.Errorf("message: unsupported body type %T", body)
	}
}

func decodeBody(msgType uint64, buf []byte) (Body, error) {
	switch msgType {
	case TypeHashResponse:
		hashes, _, err := decodeHashes(buf)
		if err != nil {
			return nil, err
		}
		return HashResponse{Hashes: hashes}, nil

	case TypePostResponse:
		var posts [][]byte
		for {
			n, m, err := varint.Decode(buf)
			if err != nil {
				return nil, err
			}
			buf = buf[m:]
			if n == 0 {
				break
			}
			if uint64(len(buf)) < n {
				return nil, ErrShortBuffer
			}
			post := make([]byte, n)
			copy(post, buf[:n])
			posts = append(posts, post)
			buf = buf[n:]
		}
		return PostResponse{Posts: posts}, nil

	case TypePostRequest:
		ttl, m, err := varint.Decode(buf)
		if err != nil {
			return nil, err
		}
		hashes, _, err := decodeHashes(buf[m:])
		if err != nil {
			return nil, err
		}
		return PostRequest{TTL: clampTTL(ttl), Hashes: hashes}, nil

	case TypeCancelRequest:
		ttl, m, err := varint.Decode(buf)
		if err != nil {
			return nil, err
		}
		buf = buf[m:]
		if len(buf) < 4 {
			return nil, ErrShortBuffer
		}
		var cancelID ReqId
		copy(cancelID[:], buf[:4])
		return CancelRequest{TTL: clampTTL(ttl), CancelID: cancelID}, nil

	case TypeChannelTimeRange:
		ttl, m, err := varint.Decode(buf)
		if err != nil {
			return nil, err
		}
		buf = buf[m:]
		channel, buf, err := decodeChannel(buf)
		if err != nil {
			return nil, err
		}
		timeStart, m, err := varint.Decode(buf)
		if err != nil {
			return nil, err
		}
		buf = buf[m:]
		timeEnd, m, err := varint.Decode(buf)
		if err != nil {
			return nil, err
		}
		buf = buf[m:]
		limit, _, err := varint.Decode(buf)
		if err != nil {
			return nil, err
		}
		return ChannelTimeRangeRequest{
			TTL:       clampTTL(ttl),
			Channel:   channel,
			TimeStart: timeStart,
			TimeEnd:   timeEnd,
			Limit:     limit,
		}, nil

	case TypeChannelState:
		ttl, m, err := varint.Decode(buf)
		if err != nil {
			return nil, err
		}
		buf = buf[m:]
		channel, buf, err := decodeChannel(buf)
		if err != nil {
			return nil, err
		}
		future, _, err := varint.Decode(buf)
		if err != nil {
			return nil, err
		}
		return ChannelStateRequest{TTL: clampTTL(ttl), Channel: channel, Future: future}, nil

	case TypeChannelListRequest:
		ttl, m, err := varint.Decode(buf)
		if err != nil {
			return nil, err
		}
		buf = buf[m:]
		skip, m, err := varint.Decode(buf)
		if err != nil {
			return nil, err
		}
		buf = buf[m:]
		limit, _, err := varint.Decode(buf)
		if err != nil {
			return nil, err
		}
		return ChannelListRequest{TTL: clampTTL(ttl), Skip: skip, Limit: limit}, nil

	case TypeChannelListResponse:
		var channels []string
		for {
			n, m, err := varint.Decode(buf)
			if err != nil {
				return nil, err
			}
			buf = buf[m:]
			if n == 0 {
				break
			}
			if uint64(len(buf)) < n {
				return nil, ErrShortBuffer
			}
			if !utf8.Valid(buf[:n]) {
				return nil, ErrInvalidChannelEncoding
			}
			channels = append(channels, string(buf[:n]))
			buf = buf[n:]
		}
		return ChannelListResponse{Channels: channels}, nil

	default:
		return Unrecognized{Type: msgType}, nil
	}
}

func encodeHashes(hashes []Hash) []byte {
	out := varint.Encode(uint64(len(hashes)), nil)
	for _, h := range hashes {
		out = append(out, h[:]...)
	}
	return out
}

func decodeHashes(buf []byte) ([]Hash, []byte, error) {
	n, m, err := varint.Decode(buf)
	if err != nil {
		return nil, nil, err
	}
	buf = buf[m:]
	var hashes []Hash
	for i := uint64(0); i < n; i++ {
		if len(buf) < 32 {
			return nil, nil, ErrHashTruncated
		}
		var h Hash
		copy(h[:], buf[:32])
		hashes = append(hashes, h)
		buf = buf[32:]
	}
	return hashes, buf, nil
}

func encodeChannel(channel string) ([]byte, error) {
	if !utf8.ValidString(channel) {
		return nil, ErrInvalidChannelEncoding
	}
	out := varint.Encode(uint64(len(channel)), nil)
	out = append(out, channel...)
	return out, nil
}

func decodeChannel(buf []byte) (string, []byte, error) {
	n, m, err := varint.Decode(buf)
	if err != nil {
		return "", nil, err
	}
	buf = buf[m:]
	if uint64(len(buf)) < n {
		return "", nil, ErrShortBuffer
	}
	if !utf8.Valid(buf[:n]) {
		return "", nil, ErrInvalidChannelEncoding
	}
	channel := string(buf[:n])
	return channel, buf[n:], nil
}

// EncodeInto writes the frame for msg into dst, returning the number of
// bytes written. It fails with ErrDstTooSmall if dst cannot hold the frame.
func EncodeInto(msg Message, dst []byte) (int, error) {
	buf, err := Encode(msg)
	if err != nil {
		return 0, err
	}
	if len(dst) < len(buf) {
		return 0, &ErrDstTooSmall{Required: len(buf), Provided: len(dst)}
	}
	return copy(dst, buf), nil
}
