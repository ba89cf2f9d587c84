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
	"sync"

	lru "github.com/hashicorp/golang-lru"
	set "gopkg.in/fatih/set.v0"

	"github.com/ahdinosaur/cable-go/message"
	"github.com/ahdinosaur/cable-go/store"
)

// PeerId is a monotonically-increasing machine-local peer identifier.
type PeerId uint64

// Origin records whether a tracked request originated on this node or was
// forwarded in from a remote peer.
type Origin int

const (
	OriginLocal Origin = iota
	OriginRemote
)

// outboundRequest is an entry in the manager's outbound_requests table: a
// request this node has either originated or agreed to forward.
type outboundRequest struct {
	Origin    Origin
	FromPeer  PeerId // only meaningful when Origin == OriginRemote
	Body      message.Request
	CircuitId message.CircuitId
}

// liveRequest is an entry in live_requests: a still-open ChannelTimeRange
// subscription (time_end == 0) a peer asked us to keep serving.
type liveRequest struct {
	ReqId message.ReqId
	Opts  store.ChannelOptions
}

// peersTable tracks the set of currently-connected peers, guarded by its
// own lock so registration/removal never blocks message dispatch.
type peersTable struct {
	mu    sync.RWMutex
	peers map[PeerId]*Peer
}

func newPeersTable() *peersTable {
	return &peersTable{peers: make(map[PeerId]*Peer)}
}

func (t *peersTable) register(id PeerId, p *Peer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peers[id] = p
}

func (t *peersTable) remove(id PeerId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.peers, id)
}

func (t *peersTable) get(id PeerId) (*Peer, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.peers[id]
	return p, ok
}

func (t *peersTable) each(fn func(PeerId, *Peer)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for id, p := range t.peers {
		fn(id, p)
	}
}

// outboundRequestsTable is the shared table of requests this node is
// prepared to forward or has itself originated. A ReqId enters on
// origination/forwarding and leaves on cancellation or TTL exhaustion.
type outboundRequestsTable struct {
	mu    sync.RWMutex
	byReq map[message.ReqId]outboundRequest
}

func newOutboundRequestsTable() *outboundRequestsTable {
	return &outboundRequestsTable{byReq: make(map[message.ReqId]outboundRequest)}
}

func (t *outboundRequestsTable) put(id message.ReqId, r outboundRequest) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byReq[id] = r
}

func (t *outboundRequestsTable) get(id message.ReqId) (outboundRequest, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.byReq[id]
	return r, ok
}

func (t *outboundRequestsTable) delete(id message.ReqId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byReq, id)
}

// snapshot returns a copy of the table safe to range over without holding
// the lock across further table mutations (e.g. issuing Cancels while
// iterating local-origin entries).
func (t *outboundRequestsTable) snapshot() map[message.ReqId]outboundRequest {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[message.ReqId]outboundRequest, len(t.byReq))
	for id, r := range t.byReq {
		out[id] = r
	}
	return out
}

// forwardedRequestsTable records, per cancelled-eligible ReqId, the set of
// peers we forwarded that request to -- so an incoming Cancel is only
// re-forwarded to peers that actually saw the original request.
type forwardedRequestsTable struct {
	mu   sync.Mutex
	sets map[message.ReqId]*set.Set
}

func newForwardedRequestsTable() *forwardedRequestsTable {
	return &forwardedRequestsTable{sets: make(map[message.ReqId]*set.Set)}
}

func (t *forwardedRequestsTable) add(id message.ReqId, peer PeerId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sets[id]
	if !ok {
		s = set.New()
		t.sets[id] = s
	}
	s.Add(peer)
}

func (t *forwardedRequestsTable) has(id message.ReqId, peer PeerId) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sets[id]
	if !ok {
		return false
	}
	return s.Has(peer)
}

// remove deletes peer from id's forwarded set, dropping the set entirely
// once it is empty.
func (t *forwardedRequestsTable) remove(id message.ReqId, peer PeerId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sets[id]
	if !ok {
		return
	}
	s.Remove(peer)
	if s.Size() == 0 {
		delete(t.sets, id)
	}
}

// handledRequestsTable deduplicates inbound requests so a flood-with-
// responses network never re-processes the same ReqId twice. Bounded by an
// LRU so long-lived nodes don't grow this table without limit.
type handledRequestsTable struct {
	cache *lru.Cache
}

func newHandledRequestsTable(size int) *handledRequestsTable {
	cache, err := lru.New(size)
	if err != nil {
		// size <= 0 is a programmer error, not a runtime condition.
		panic(err)
	}
	return &handledRequestsTable{cache: cache}
}

func (t *handledRequestsTable) seen(id message.ReqId) bool {
	return t.cache.Contains(id)
}

func (t *handledRequestsTable) mark(id message.ReqId) {
	t.cache.Add(id, struct{}{})
}

// liveRequestsTable tracks open ChannelTimeRange subscriptions per peer.
type liveRequestsTable struct {
	mu  sync.RWMutex
	byP map[PeerId][]liveRequest
}

func newLiveRequestsTable() *liveRequestsTable {
	return &liveRequestsTable{byP: make(map[PeerId][]liveRequest)}
}

func (t *liveRequestsTable) add(peer PeerId, lr liveRequest) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byP[peer] = append(t.byP[peer], lr)
}

func (t *liveRequestsTable) removePeer(peer PeerId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byP, peer)
}

// snapshot returns a copy of the table safe to range over without holding
// the lock during Store I/O or peer writes.
func (t *liveRequestsTable) snapshot() map[PeerId][]liveRequest {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[PeerId][]liveRequest, len(t.byP))
	for p, reqs := range t.byP {
		out[p] = append([]liveRequest{}, reqs...)
	}
	return out
}

// requestedPostsTable is the set of post hashes this node has an
// outstanding Post request for.
type requestedPostsTable struct {
	mu   sync.Mutex
	want *set.Set
}

func newRequestedPostsTable() *requestedPostsTable {
	return &requestedPostsTable{want: set.New()}
}

func (t *requestedPostsTable) add(h message.Hash) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.want.Add(h)
}

func (t *requestedPostsTable) has(h message.Hash) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.want.Has(h)
}

func (t *requestedPostsTable) remove(h message.Hash) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.want.Remove(h)
}
