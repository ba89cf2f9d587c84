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

	"github.com/ethereum/go-ethereum/log"

	"github.com/ahdinosaur/cable-go/cablemetrics"
	"github.com/ahdinosaur/cable-go/framing"
	"github.com/ahdinosaur/cable-go/message"
)

// Peer wraps one framed connection with the bounded outbound queue the
// writer goroutine drains. It is created when a stream opens and torn down
// when it closes; nothing about a Peer survives reconnection.
type Peer struct {
	id PeerId
	rw framing.MsgReadWriter
	// out is drained by the single writer goroutine serving this peer;
	// a full queue means the peer isn't reading fast enough, so sends
	// to it are dropped rather than letting one slow peer stall every
	// other table update.
	out chan message.Message

	log log.Logger
}

func newPeer(id PeerId, rw framing.MsgReadWriter, logger log.Logger) *Peer {
	return &Peer{
		id:  id,
		rw:  rw,
		out: make(chan message.Message, outboundQueueCapacity),
		log: logger.New("peer", id),
	}
}

// send enqueues msg for delivery to this peer, dropping it if the queue is
// already full.
func (p *Peer) send(msg message.Message) {
	select {
	case p.out <- msg:
	default:
		p.log.Warn("dropping outbound message, queue full", "msgType", msg.Body.MsgType())
	}
}

// RunPeer drives one peer's lifecycle: registers it, replays outstanding
// requests, then concurrently reads inbound frames and writes queued
// outbound ones until reading errs. A failed write stops only the writer;
// the peer stays registered until the read side ends. It returns once the
// peer is fully torn down.
func (m *Manager) RunPeer(rw framing.MsgReadWriter) error {
	id := m.nextPeerId()
	p := newPeer(id, cablemetrics.NewMeteredMsgReadWriter(rw), m.log)
	m.peers.register(id, p)
	p.log.Debug("peer connected")

	defer func() {
		m.peers.remove(id)
		m.live.removePeer(id)
		p.log.Debug("peer disconnected")
	}()

	m.replayOutboundRequests(p)

	writeDone := make(chan error, 1)
	go func() {
		writeDone <- m.writeLoop(p)
	}()

	readErr := m.readLoop(p)
	<-writeDone
	return readErr
}

// writeLoop drains p.out until the channel is closed or a write fails.
func (m *Manager) writeLoop(p *Peer) error {
	for msg := range p.out {
		if err := p.rw.WriteMsg(msg); err != nil {
			p.log.Debug("peer write failed", "err", err)
			return err
		}
	}
	return nil
}

// readLoop blocks reading frames from p until the stream errs, handing each
// decoded message to the dispatcher in its own goroutine so one slow lookup
// (a Store query, a peer with a full outbound queue) never stalls the next
// frame's arrival. wg tracks in-flight dispatches so p.out isn't closed out
// from under one still calling p.send.
func (m *Manager) readLoop(p *Peer) error {
	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		close(p.out)
	}()
	for {
		msg, err := p.rw.ReadMsg()
		if err != nil {
			return err
		}
		wg.Add(1)
		go func(msg message.Message) {
			defer wg.Done()
			m.dispatch(p, msg)
		}(msg)
	}
}

// replayOutboundRequests re-sends every request this node still considers
// outstanding to a newly-connected peer, honoring TTL exhaustion and the
// cancel-forwarding gate described by the forwarded_requests table.
func (m *Manager) replayOutboundRequests(p *Peer) {
	m.outbound.mu.RLock()
	type replay struct {
		id  message.ReqId
		req outboundRequest
	}
	var toReplay []replay
	var toExpire []message.ReqId
	for id, req := range m.outbound.byReq {
		if req.Body.GetTTL() == 0 {
			toExpire = append(toExpire, id)
			continue
		}
		toReplay = append(toReplay, replay{id, req})
	}
	m.outbound.mu.RUnlock()

	for _, id := range toExpire {
		m.outbound.delete(id)
	}

	for _, r := range toReplay {
		if cancel, isCancel := r.req.Body.(message.CancelRequest); isCancel && r.req.Origin == OriginRemote {
			if !m.forwarded.has(cancel.CancelID, p.id) {
				continue
			}
			p.send(message.Message{
				Header: message.Header{CircuitId: r.req.CircuitId, ReqId: r.id},
				Body:   r.req.Body,
			})
			m.forwarded.remove(cancel.CancelID, p.id)
			continue
		}

		p.send(message.Message{
			Header: message.Header{CircuitId: r.req.CircuitId, ReqId: r.id},
			Body:   r.req.Body,
		})
		if r.req.Origin == OriginRemote {
			m.forwarded.add(r.id, p.id)
		}
	}
}
