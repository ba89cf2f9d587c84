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

package session

import (
	"context"

	"github.com/ahdinosaur/cable-go/message"
	"github.com/ahdinosaur/cable-go/store"
)

// RequestChannelTimeRange originates a ChannelTimeRange request: it assigns
// a fresh req_id, records the request in outbound_requests with
// OriginLocal so it gets replayed to every peer that connects afterward,
// broadcasts it to every peer already connected, and returns the request's
// req_id alongside the local live view the Store already keeps for opts.
func (m *Manager) RequestChannelTimeRange(ctx context.Context, opts store.ChannelOptions) (message.ReqId, store.PostIterator, error) {
	reqID := m.nextReqId()
	req := message.ChannelTimeRangeRequest{
		TTL:       message.MaxTTL,
		Channel:   opts.Channel,
		TimeStart: opts.TimeStart,
		TimeEnd:   opts.TimeEnd,
		Limit:     opts.Limit,
	}
	m.outbound.put(reqID, outboundRequest{Origin: OriginLocal, Body: req})
	m.broadcast(message.Message{Header: message.Header{ReqId: reqID}, Body: req})

	it, err := m.store.GetPostsLive(ctx, opts)
	if err != nil {
		return reqID, nil, err
	}
	return reqID, it, nil
}

// CancelChannelTimeRange cancels every locally-originated ChannelTimeRange
// request still outstanding for channel: each gets a Cancel broadcast to
// every peer and is dropped from outbound_requests, mirroring
// RequestChannelTimeRange's broadcast-and-record shape in reverse.
func (m *Manager) CancelChannelTimeRange(channel string) {
	for id, r := range m.outbound.snapshot() {
		if r.Origin != OriginLocal {
			continue
		}
		req, ok := r.Body.(message.ChannelTimeRangeRequest)
		if !ok || req.Channel != channel {
			continue
		}

		cancelID := m.nextReqId()
		cancel := message.CancelRequest{TTL: message.MaxTTL, CancelID: id}
		m.outbound.put(cancelID, outboundRequest{Origin: OriginLocal, Body: cancel})
		m.broadcast(message.Message{Header: message.Header{ReqId: cancelID}, Body: cancel})

		m.outbound.delete(id)
	}
}

// Links returns the most recent hashes posted to channel, for use as a new
// post's Links field.
func (m *Manager) Links(ctx context.Context, channel string) ([]message.Hash, error) {
	return m.store.GetLatestHashes(ctx, channel)
}

// broadcast sends msg to every currently-connected peer.
func (m *Manager) broadcast(msg message.Message) {
	m.peers.each(func(_ PeerId, p *Peer) {
		p.send(msg)
	})
}
