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
	"fmt"
	"time"

	"github.com/ahdinosaur/cable-go/cablemetrics"
	"github.com/ahdinosaur/cable-go/message"
	"github.com/ahdinosaur/cable-go/post"
	"github.com/ahdinosaur/cable-go/store"
)

// maxResultLimit bounds every response list the dispatcher produces,
// regardless of what the requester asked for.
const maxResultLimit = 4096

// dispatch is the tagged switch described for the request dispatcher:
// loop-suppress on req_id, forward per the TTL rule, then handle the
// specific body variant. Dispatcher errors are logged and never tear down
// the peer's I/O loop.
func (m *Manager) dispatch(p *Peer, msg message.Message) {
	defer func(start time.Time) { cablemetrics.DispatchTimer.UpdateSince(start) }(time.Now())

	reqID := msg.Header.ReqId

	if m.handled.seen(reqID) {
		cablemetrics.DuplicateDropMeter.Mark(1)
		return
	}

	if req, ok := msg.Body.(message.Request); ok {
		m.maybeForward(p.id, msg.Header, req)
	}

	var err error
	switch body := msg.Body.(type) {
	case message.PostRequest:
		err = m.handlePostRequest(p, msg.Header, body)
	case message.CancelRequest:
		m.handleCancelRequest(msg.Header, body)
	case message.ChannelTimeRangeRequest:
		err = m.handleChannelTimeRangeRequest(p, msg.Header, body)
	case message.ChannelStateRequest:
		// No Store index exists yet to answer this request; left as a
		// deliberate no-op so other traffic keeps flowing.
	case message.ChannelListRequest:
		err = m.handleChannelListRequest(p, msg.Header, body)
	case message.HashResponse:
		err = m.handleHashResponse(p, msg.Header, body)
	case message.PostResponse:
		err = m.handlePostResponse(p, body)
	case message.ChannelListResponse:
		err = m.handleChannelListResponse(body)
	case message.Unrecognized:
		m.log.Debug("dropping unrecognized message", "type", body.Type)
	default:
		m.log.Warn("dropping message of unhandled body type", "type", fmt.Sprintf("%T", msg.Body))
	}

	if err != nil {
		m.log.Error("dispatch failed", "peer", p.id, "err", err)
	}

	m.handled.mark(reqID)
}

// maybeForward records req in outbound_requests under its incoming req_id
// with origin Remote once its TTL is decremented, per the forwarding rule.
// Actual transmission happens later, in each other peer's replay pass.
func (m *Manager) maybeForward(from PeerId, hdr message.Header, req message.Request) {
	if _, isCancel := req.(message.CancelRequest); isCancel {
		// TTL is ignored for cancels: always record so downstream peers
		// who saw the original request also see the cancellation.
		m.outbound.put(hdr.ReqId, outboundRequest{
			Origin: OriginRemote, FromPeer: from, Body: req, CircuitId: hdr.CircuitId,
		})
		cablemetrics.ForwardedMeter.Mark(1)
		return
	}

	if req.GetTTL() == 0 {
		cablemetrics.TTLExhaustedMeter.Mark(1)
		return
	}
	forwarded := req.WithTTL(req.GetTTL() - 1).(message.Request)
	m.outbound.put(hdr.ReqId, outboundRequest{
		Origin: OriginRemote, FromPeer: from, Body: forwarded, CircuitId: hdr.CircuitId,
	})
	cablemetrics.ForwardedMeter.Mark(1)
}

func (m *Manager) handlePostRequest(p *Peer, hdr message.Header, req message.PostRequest) error {
	ctx := context.Background()
	payloads, err := m.store.GetPostPayloads(ctx, req.Hashes)
	if err != nil {
		return err
	}
	p.send(message.Message{
		Header: hdr,
		Body:   message.PostResponse{Posts: payloads},
	})
	return nil
}

// handleCancelRequest removes the referenced request from outbound_requests
// regardless of its origin. The Cancel itself was already unconditionally
// recorded by maybeForward.
func (m *Manager) handleCancelRequest(hdr message.Header, req message.CancelRequest) {
	m.outbound.delete(req.CancelID)
}

func (m *Manager) handleChannelTimeRangeRequest(p *Peer, hdr message.Header, req message.ChannelTimeRangeRequest) error {
	ctx := context.Background()
	opts := store.ChannelOptions{
		Channel:   req.Channel,
		TimeStart: req.TimeStart,
		TimeEnd:   req.TimeEnd,
		Limit:     clampLimit(req.Limit),
	}

	hashes, err := m.drainHashes(ctx, opts)
	if err != nil {
		return err
	}

	p.send(message.Message{
		Header: hdr,
		Body:   message.HashResponse{Hashes: hashes},
	})

	if req.TimeEnd == 0 {
		m.live.add(p.id, liveRequest{ReqId: hdr.ReqId, Opts: opts})
	}
	return nil
}

func (m *Manager) drainHashes(ctx context.Context, opts store.ChannelOptions) ([]message.Hash, error) {
	if opts.Limit == 0 {
		return nil, nil
	}
	it, err := m.store.GetPostHashes(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var hashes []message.Hash
	for it.Next() {
		hashes = append(hashes, it.Hash())
		if uint64(len(hashes)) >= opts.Limit {
			break
		}
	}
	return hashes, it.Err()
}

func (m *Manager) handleChannelListRequest(p *Peer, hdr message.Header, req message.ChannelListRequest) error {
	ctx := context.Background()
	channels, err := m.store.GetChannels(ctx)
	if err != nil {
		return err
	}

	skip := req.Skip
	if skip > uint64(len(channels)) {
		skip = uint64(len(channels))
	}
	channels = channels[skip:]

	limit := clampLimit(req.Limit)
	if uint64(len(channels)) > limit {
		channels = channels[:limit]
	}

	p.send(message.Message{
		Header: hdr,
		Body:   message.ChannelListResponse{Channels: channels},
	})
	return nil
}

// handleHashResponse discovers which referenced posts are absent locally
// and requests them; an empty hash vector terminates the underlying
// request, so the req_id it answers is dropped from outbound_requests.
func (m *Manager) handleHashResponse(p *Peer, hdr message.Header, resp message.HashResponse) error {
	if len(resp.Hashes) == 0 {
		m.outbound.delete(hdr.ReqId)
		return nil
	}

	ctx := context.Background()
	wanted, err := m.store.Want(ctx, resp.Hashes)
	if err != nil {
		return err
	}
	if len(wanted) == 0 {
		return nil
	}

	for _, h := range wanted {
		m.requestedPosts.add(h)
	}
	cablemetrics.WantedPostsMeter.Mark(int64(len(wanted)))

	reqID := m.nextReqId()
	p.send(message.Message{
		Header: message.Header{ReqId: reqID},
		Body:   message.PostRequest{TTL: 1, Hashes: wanted},
	})
	return nil
}

// handlePostResponse verifies, decodes, hashes and stores each post the
// peer sent, dropping anything not found in requested_posts or that fails
// verification.
func (m *Manager) handlePostResponse(p *Peer, resp message.PostResponse) error {
	ctx := context.Background()
	for _, encoded := range resp.Posts {
		n, decoded, err := post.FromBytes(encoded)
		if err != nil {
			m.log.Debug("dropping post, decode failed", "peer", p.id, "err", err)
			cablemetrics.PostRejectedMeter.Mark(1)
			continue
		}
		if n != len(encoded) {
			m.log.Debug("dropping post, byte count mismatch", "peer", p.id)
			cablemetrics.PostRejectedMeter.Mark(1)
			continue
		}
		if !decoded.Verify() {
			m.log.Debug("dropping post, signature verification failed", "peer", p.id)
			cablemetrics.PostRejectedMeter.Mark(1)
			continue
		}

		hash := decoded.Hash()
		if !m.requestedPosts.has(hash) {
			cablemetrics.PostRejectedMeter.Mark(1)
			continue
		}
		m.requestedPosts.remove(hash)

		if err := m.store.InsertPost(ctx, store.Post{
			Hash:      hash,
			Channel:   decoded.Channel,
			Timestamp: decoded.Timestamp,
			Encoded:   encoded,
		}); err != nil {
			return err
		}
		cablemetrics.PostAcceptedMeter.Mark(1)
	}
	return nil
}

func (m *Manager) handleChannelListResponse(resp message.ChannelListResponse) error {
	if len(resp.Channels) == 0 {
		return nil
	}
	return m.store.InsertChannels(context.Background(), resp.Channels)
}

func clampLimit(limit uint64) uint64 {
	if limit > maxResultLimit {
		return maxResultLimit
	}
	return limit
}
