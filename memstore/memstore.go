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

// Package memstore is an in-memory reference implementation of store.Store,
// suitable for tests and single-process deployments. It keeps one
// RWMutex-guarded map per concern, following the same lock-per-table shape
// the session manager itself uses for its tables.
package memstore

import (
	"context"
	"crypto/ed25519"
	"sort"
	"sync"

	"github.com/ahdinosaur/cable-go/message"
	"github.com/ahdinosaur/cable-go/store"
)

// Store is an in-memory, concurrency-safe store.Store.
type Store struct {
	keyLock sync.Mutex
	public  ed25519.PublicKey
	secret  ed25519.PrivateKey

	mu       sync.RWMutex
	posts    map[message.Hash]store.Post
	byChan   map[string][]message.Hash // insertion order per channel
	channels map[string]struct{}

	liveMu sync.Mutex
	live   []*liveWatcher
}

type liveWatcher struct {
	opts store.ChannelOptions
	ch   chan store.Post
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		posts:    make(map[message.Hash]store.Post),
		byChan:   make(map[string][]message.Hash),
		channels: make(map[string]struct{}),
	}
}

// GetOrCreateKeypair lazily generates and caches an ed25519 identity.
func (s *Store) GetOrCreateKeypair(ctx context.Context) ([]byte, []byte, error) {
	s.keyLock.Lock()
	defer s.keyLock.Unlock()
	if s.public == nil {
		pub, sec, err := ed25519.GenerateKey(nil)
		if err != nil {
			return nil, nil, err
		}
		s.public, s.secret = pub, sec
	}
	return append([]byte{}, s.public...), append([]byte{}, s.secret...), nil
}

// InsertPost records post, indexing it under its channel and notifying any
// live watchers whose options intersect the post's channel.
func (s *Store) InsertPost(ctx context.Context, post store.Post) error {
	s.mu.Lock()
	if _, ok := s.posts[post.Hash]; ok {
		s.mu.Unlock()
		return nil
	}
	s.posts[post.Hash] = post
	s.byChan[post.Channel] = append(s.byChan[post.Channel], post.Hash)
	s.channels[post.Channel] = struct{}{}
	s.mu.Unlock()

	s.notifyLive(post)
	return nil
}

func (s *Store) notifyLive(post store.Post) {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	for _, w := range s.live {
		if w.opts.Channel != "" && w.opts.Channel != post.Channel {
			continue
		}
		select {
		case w.ch <- post:
		default:
		}
	}
}

// GetPostPayloads returns the encoded bytes for every hash present locally.
func (s *Store) GetPostPayloads(ctx context.Context, hashes []message.Hash) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out [][]byte
	for _, h := range hashes {
		if p, ok := s.posts[h]; ok {
			out = append(out, p.Encoded)
		}
	}
	return out, nil
}

// Want returns the hashes not already held locally.
func (s *Store) Want(ctx context.Context, hashes []message.Hash) ([]message.Hash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []message.Hash
	for _, h := range hashes {
		if _, ok := s.posts[h]; !ok {
			out = append(out, h)
		}
	}
	return out, nil
}

// GetChannels lists every channel with at least one post.
func (s *Store) GetChannels(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.channels))
	for c := range s.channels {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

// InsertChannels records channels learned from a peer, independent of any
// posts actually being held for them.
func (s *Store) InsertChannels(ctx context.Context, channels []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range channels {
		s.channels[c] = struct{}{}
	}
	return nil
}

// GetLatestHashes returns every hash inserted for channel, in insertion
// order.
func (s *Store) GetLatestHashes(ctx context.Context, channel string) ([]message.Hash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hashes := s.byChan[channel]
	if len(hashes) == 0 {
		return nil, nil
	}
	out := make([]message.Hash, len(hashes))
	copy(out, hashes)
	return out, nil
}

// GetPostHashes returns a snapshot iterator over opts.Channel's hashes in
// [TimeStart, TimeEnd) (TimeEnd == 0 means "no upper bound"), capped at
// opts.Limit.
func (s *Store) GetPostHashes(ctx context.Context, opts store.ChannelOptions) (store.PostHashIterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []message.Hash
	for _, h := range s.byChan[opts.Channel] {
		p := s.posts[h]
		if p.Timestamp < opts.TimeStart {
			continue
		}
		if opts.TimeEnd != 0 && p.Timestamp >= opts.TimeEnd {
			continue
		}
		out = append(out, h)
		if opts.Limit != 0 && uint64(len(out)) >= opts.Limit {
			break
		}
	}
	return &hashIter{hashes: out, idx: -1}, nil
}

// GetPostsLive streams posts for opts.Channel as they are inserted,
// starting from the moment of the call (no backlog replay).
func (s *Store) GetPostsLive(ctx context.Context, opts store.ChannelOptions) (store.PostIterator, error) {
	w := &liveWatcher{opts: opts, ch: make(chan store.Post, 64)}
	s.liveMu.Lock()
	s.live = append(s.live, w)
	s.liveMu.Unlock()
	return &postIter{ctx: ctx, ch: w.ch}, nil
}

type hashIter struct {
	hashes []message.Hash
	idx    int
}

func (it *hashIter) Next() bool {
	it.idx++
	return it.idx < len(it.hashes)
}
func (it *hashIter) Hash() message.Hash { return it.hashes[it.idx] }
func (it *hashIter) Err() error         { return nil }
func (it *hashIter) Close() error       { return nil }

type postIter struct {
	ctx context.Context
	ch  chan store.Post
	cur store.Post
	err error
}

func (it *postIter) Next() bool {
	select {
	case p, ok := <-it.ch:
		if !ok {
			return false
		}
		it.cur = p
		return true
	case <-it.ctx.Done():
		it.err = it.ctx.Err()
		return false
	}
}
func (it *postIter) Post() store.Post { return it.cur }
func (it *postIter) Err() error       { return it.err }
func (it *postIter) Close() error     { close(it.ch); return nil }
