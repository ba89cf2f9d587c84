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

	"github.com/ethereum/go-ethereum/event"

	"github.com/ahdinosaur/cable-go/message"
	"github.com/ahdinosaur/cable-go/post"
	"github.com/ahdinosaur/cable-go/store"
)

// PostEvent is published after a locally-originated post has been
// persisted to the Store.
type PostEvent struct {
	Hash    message.Hash
	Channel string
}

// SubscribePostEvents registers ch to receive every PostEvent this node
// publishes locally.
func (m *Manager) SubscribePostEvents(ch chan<- PostEvent) event.Subscription {
	return m.postFeed.Subscribe(ch)
}

// PublishPost signs p, inserts it into the Store, notifies local
// subscribers and then serves every matching live subscription. All
// post_* entrypoints funnel through this single path.
func (m *Manager) PublishPost(ctx context.Context, p post.Post) (message.Hash, error) {
	pub, sec, err := m.store.GetOrCreateKeypair(ctx)
	if err != nil {
		return message.Hash{}, err
	}
	signed, err := p.Sign(pub, sec)
	if err != nil {
		return message.Hash{}, err
	}

	hash := signed.Hash()
	if err := m.store.InsertPost(ctx, store.Post{
		Hash:      hash,
		Channel:   signed.Channel,
		Timestamp: signed.Timestamp,
		Encoded:   signed.Bytes(),
	}); err != nil {
		return message.Hash{}, err
	}

	m.postFeed.Send(PostEvent{Hash: hash, Channel: signed.Channel})
	m.sendPostHashes(ctx, signed.Channel)
	return hash, nil
}

// sendPostHashes is the live-subscription broadcaster: for every peer with
// an open ChannelTimeRange subscription intersecting channel, re-query the
// Store and send a Hash response under that subscription's req_id. This
// preserves "subscribers see new hashes in the order the local peer
// inserts them", modulo the Store's own ordering.
func (m *Manager) sendPostHashes(ctx context.Context, channel string) {
	for peerID, reqs := range m.live.snapshot() {
		p, ok := m.peers.get(peerID)
		if !ok {
			continue
		}
		for _, lr := range reqs {
			if lr.Opts.Channel != channel {
				continue
			}
			hashes, err := m.drainHashes(ctx, lr.Opts)
			if err != nil {
				m.log.Error("live subscription query failed", "peer", peerID, "err", err)
				continue
			}
			p.send(message.Message{
				Header: message.Header{ReqId: lr.ReqId},
				Body:   message.HashResponse{Hashes: hashes},
			})
		}
	}
}
