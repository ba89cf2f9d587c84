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

// Package message implements the cable wire codec: a length-prefixed,
// varint-based binary encoding for the eight request/response messages
// peers exchange, plus passthrough of any message type this package does
// not recognise.
package message

const (
	// MaxTTL is the largest TTL value the protocol assigns meaning to;
	// larger values observed on the wire are clamped down to it.
	MaxTTL = 16
)

// Hash identifies a post by its content hash.
type Hash [32]byte

// ReqId is an opaque, wire-comparable request identifier.
type ReqId [4]byte

// CircuitId is a reserved routing identifier. The all-zero value means "no
// circuit" and is the only value in current use.
type CircuitId [4]byte

// Message-type discriminators, as laid out in spec §4.2.
const (
	TypeHashResponse        uint64 = 0
	TypePostResponse        uint64 = 1
	TypePostRequest         uint64 = 2
	TypeCancelRequest       uint64 = 3
	TypeChannelTimeRange    uint64 = 4
	TypeChannelState        uint64 = 5
	TypeChannelListRequest  uint64 = 6
	TypeChannelListResponse uint64 = 7
)

// Header carries the fields common to every message.
type Header struct {
	CircuitId CircuitId
	ReqId     ReqId
}

// Body is implemented by every recognised message body, plus Unrecognized.
type Body interface {
	// MsgType returns this body's wire-format type discriminator.
	MsgType() uint64
}

// Request is implemented by the five request bodies; they all carry a TTL.
type Request interface {
	Body
	GetTTL() uint64
	WithTTL(ttl uint64) Body
}

// Message pairs a header with a typed body.
type Message struct {
	Header Header
	Body   Body
}

// PostRequest (type 2): ask for posts by hash.
type PostRequest struct {
	TTL    uint64
	Hashes []Hash
}

func (PostRequest) MsgType() uint64        { return TypePostRequest }
func (r PostRequest) GetTTL() uint64       { return r.TTL }
func (r PostRequest) WithTTL(ttl uint64) Body {
	r.TTL = ttl
	return r
}

// CancelRequest (type 3): cancel a previously issued request.
type CancelRequest struct {
	TTL      uint64
	CancelID ReqId
}

func (CancelRequest) MsgType() uint64     { return TypeCancelRequest }
func (r CancelRequest) GetTTL() uint64    { return r.TTL }
func (r CancelRequest) WithTTL(ttl uint64) Body {
	r.TTL = ttl
	return r
}

// ChannelTimeRangeRequest (type 4): channel history, optionally open-ended
// (TimeEnd == 0) as a live subscription.
type ChannelTimeRangeRequest struct {
	TTL       uint64
	Channel   string
	TimeStart uint64
	TimeEnd   uint64
	Limit     uint64
}

func (ChannelTimeRangeRequest) MsgType() uint64 { return TypeChannelTimeRange }
func (r ChannelTimeRangeRequest) GetTTL() uint64 { return r.TTL }
func (r ChannelTimeRangeRequest) WithTTL(ttl uint64) Body {
	r.TTL = ttl
	return r
}

// ChannelStateRequest (type 5): request channel membership/topic state.
type ChannelStateRequest struct {
	TTL     uint64
	Channel string
	Future  uint64
}

func (ChannelStateRequest) MsgType() uint64     { return TypeChannelState }
func (r ChannelStateRequest) GetTTL() uint64    { return r.TTL }
func (r ChannelStateRequest) WithTTL(ttl uint64) Body {
	r.TTL = ttl
	return r
}

// ChannelListRequest (type 6): list known channels.
type ChannelListRequest struct {
	TTL   uint64
	Skip  uint64
	Limit uint64
}

func (ChannelListRequest) MsgType() uint64  { return TypeChannelListRequest }
func (r ChannelListRequest) GetTTL() uint64 { return r.TTL }
func (r ChannelListRequest) WithTTL(ttl uint64) Body {
	r.TTL = ttl
	return r
}

// HashResponse (type 0): a vector of post hashes. An empty vector signals
// termination of the referenced request.
type HashResponse struct {
	Hashes []Hash
}

func (HashResponse) MsgType() uint64 { return TypeHashResponse }

// PostResponse (type 1): a sequence of encoded post byte-strings.
type PostResponse struct {
	Posts [][]byte
}

func (PostResponse) MsgType() uint64 { return TypePostResponse }

// ChannelListResponse (type 7): a sequence of channel names.
type ChannelListResponse struct {
	Channels []string
}

func (ChannelListResponse) MsgType() uint64 { return TypeChannelListResponse }

// Unrecognized preserves the type code of any message whose msg_type falls
// outside {0..7}. It must never be passed to Encode.
type Unrecognized struct {
	Type uint64
}

func (u Unrecognized) MsgType() uint64 { return u.Type }
