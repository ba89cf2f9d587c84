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

// Package cablemetrics collects per-message-type traffic counters for a
// cable session, the way the teacher's p2p subprotocols meter their own
// wire traffic, and exposes them both via go-ethereum/metrics and as
// Prometheus collectors for external scraping.
package cablemetrics

import (
	"github.com/ethereum/go-ethereum/metrics"

	"github.com/ahdinosaur/cable-go/framing"
	"github.com/ahdinosaur/cable-go/message"
)

var (
	hashInPacketsMeter    = metrics.NewRegisteredMeter("cable/hash/in/packets", nil)
	hashOutPacketsMeter   = metrics.NewRegisteredMeter("cable/hash/out/packets", nil)
	postReqInPacketsMeter = metrics.NewRegisteredMeter("cable/postreq/in/packets", nil)
	postReqOutPacketsMeter = metrics.NewRegisteredMeter("cable/postreq/out/packets", nil)
	postRespInPacketsMeter  = metrics.NewRegisteredMeter("cable/postresp/in/packets", nil)
	postRespOutPacketsMeter = metrics.NewRegisteredMeter("cable/postresp/out/packets", nil)
	cancelInPacketsMeter    = metrics.NewRegisteredMeter("cable/cancel/in/packets", nil)
	cancelOutPacketsMeter   = metrics.NewRegisteredMeter("cable/cancel/out/packets", nil)
	chanTimeInPacketsMeter  = metrics.NewRegisteredMeter("cable/chantimerange/in/packets", nil)
	chanTimeOutPacketsMeter = metrics.NewRegisteredMeter("cable/chantimerange/out/packets", nil)
	chanStateInPacketsMeter  = metrics.NewRegisteredMeter("cable/chanstate/in/packets", nil)
	chanStateOutPacketsMeter = metrics.NewRegisteredMeter("cable/chanstate/out/packets", nil)
	chanListInPacketsMeter   = metrics.NewRegisteredMeter("cable/chanlist/in/packets", nil)
	chanListOutPacketsMeter  = metrics.NewRegisteredMeter("cable/chanlist/out/packets", nil)
	miscInPacketsMeter       = metrics.NewRegisteredMeter("cable/misc/in/packets", nil)
	miscOutPacketsMeter      = metrics.NewRegisteredMeter("cable/misc/out/packets", nil)
)

func metersFor(msgType uint64) (in, out metrics.Meter) {
	switch msgType {
	case message.TypeHashResponse:
		return hashInPacketsMeter, hashOutPacketsMeter
	case message.TypePostRequest:
		return postReqInPacketsMeter, postReqOutPacketsMeter
	case message.TypePostResponse:
		return postRespInPacketsMeter, postRespOutPacketsMeter
	case message.TypeCancelRequest:
		return cancelInPacketsMeter, cancelOutPacketsMeter
	case message.TypeChannelTimeRange:
		return chanTimeInPacketsMeter, chanTimeOutPacketsMeter
	case message.TypeChannelState:
		return chanStateInPacketsMeter, chanStateOutPacketsMeter
	case message.TypeChannelListRequest:
		return chanListInPacketsMeter, chanListOutPacketsMeter
	case message.TypeChannelListResponse:
		return chanListInPacketsMeter, chanListOutPacketsMeter
	default:
		return miscInPacketsMeter, miscOutPacketsMeter
	}
}

// meteredMsgReadWriter wraps a framing.MsgReadWriter, marking the
// per-message-type meters above on every read and write.
type meteredMsgReadWriter struct {
	framing.MsgReadWriter
}

// NewMeteredMsgReadWriter wraps rw with metering support. If the metrics
// system is disabled, rw is returned unchanged.
func NewMeteredMsgReadWriter(rw framing.MsgReadWriter) framing.MsgReadWriter {
	if !metrics.Enabled {
		return rw
	}
	return &meteredMsgReadWriter{MsgReadWriter: rw}
}

func (rw *meteredMsgReadWriter) ReadMsg() (message.Message, error) {
	msg, err := rw.MsgReadWriter.ReadMsg()
	if err != nil {
		return msg, err
	}
	in, _ := metersFor(msg.Body.MsgType())
	in.Mark(1)
	return msg, nil
}

func (rw *meteredMsgReadWriter) WriteMsg(msg message.Message) error {
	_, out := metersFor(msg.Body.MsgType())
	out.Mark(1)
	return rw.MsgReadWriter.WriteMsg(msg)
}
