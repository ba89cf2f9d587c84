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

// Package session implements the per-instance cable protocol engine: the
// shared tables a node keeps across all its peer connections, the request
// dispatcher, the live-subscription broadcaster, and the peer I/O loop
// that ties them together.
package session

import (
	"crypto/rand"
	"encoding/binary"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ahdinosaur/cable-go/cablelog"
	"github.com/ahdinosaur/cable-go/message"
	"github.com/ahdinosaur/cable-go/store"
)

// outboundQueueCapacity is the bound on each peer's outbound message queue.
const outboundQueueCapacity = 100

// defaultHandledCacheSize bounds handled_requests when callers don't
// configure their own size.
const defaultHandledCacheSize = 65536

// Manager holds every table a cable node shares across its peer
// connections: the peer set, outbound/forwarded/handled request tables,
// live subscriptions and the want-set of posts requested but not yet
// received. One Manager serves an entire node; Peers come and go inside
// it.
type Manager struct {
	store store.Store
	log   log.Logger

	peers          *peersTable
	outbound       *outboundRequestsTable
	forwarded      *forwardedRequestsTable
	handled        *handledRequestsTable
	live           *liveRequestsTable
	requestedPosts *requestedPostsTable

	lastPeerId uint64
	lastReqId  uint64

	postFeed event.Feed
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithHandledCacheSize overrides the bound on handled_requests.
func WithHandledCacheSize(size int) Option {
	return func(m *Manager) {
		m.handled = newHandledRequestsTable(size)
	}
}

// WithLogger overrides the manager's logger, which otherwise defaults to
// the root logger named "session".
func WithLogger(logger log.Logger) Option {
	return func(m *Manager) {
		m.log = logger
	}
}

// NewManager constructs a Manager backed by s, ready to serve peers.
func NewManager(s store.Store, opts ...Option) *Manager {
	m := &Manager{
		store:          s,
		log:            cablelog.New("session"),
		peers:          newPeersTable(),
		outbound:       newOutboundRequestsTable(),
		forwarded:      newForwardedRequestsTable(),
		handled:        newHandledRequestsTable(defaultHandledCacheSize),
		live:           newLiveRequestsTable(),
		requestedPosts: newRequestedPostsTable(),
		lastReqId:      seedReqId(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// seedReqId draws a random 32-bit starting point for the local req_id
// counter, so restarting a node doesn't replay IDs a peer may still
// recognise from a previous session. If crypto/rand fails, the low 32 bits
// of the current time in nanoseconds are used instead.
func seedReqId() uint64 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uint64(uint32(time.Now().UnixNano()))
	}
	return uint64(binary.BigEndian.Uint32(b[:]))
}

func (m *Manager) nextPeerId() PeerId {
	return PeerId(atomic.AddUint64(&m.lastPeerId, 1))
}

// nextReqId returns the next req_id in this node's local counter sequence,
// big-endian encoded into the 4-byte wire representation.
func (m *Manager) nextReqId() message.ReqId {
	v := atomic.AddUint64(&m.lastReqId, 1)
	var id message.ReqId
	binary.BigEndian.PutUint32(id[:], uint32(v))
	return id
}
