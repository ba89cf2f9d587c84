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

// Package store defines the content-store contract the session manager
// consumes. Keypair management, post insertion/retrieval, hash lookup and
// channel listing live behind this interface; this package never
// implements persistence itself (see memstore for a reference
// implementation).
package store

import (
	"context"

	"github.com/ahdinosaur/cable-go/message"
)

// ChannelOptions describes a bounded, optionally open-ended slice of a
// channel's post-hash history. TimeEnd == 0 requests a live subscription.
type ChannelOptions struct {
	Channel   string
	TimeStart uint64
	TimeEnd   uint64
	Limit     uint64
}

// Post is the minimal shape the session manager needs from a decoded post:
// enough to file it under a channel and broadcast its hash to subscribers.
type Post struct {
	Hash      message.Hash
	Channel   string
	Timestamp uint64
	Encoded   []byte
}

// Store is the external content store the dispatcher queries and mutates.
// Implementations must be safe for concurrent use; the session manager
// never serialises calls to it itself.
type Store interface {
	// GetOrCreateKeypair returns this node's long-lived signing identity.
	GetOrCreateKeypair(ctx context.Context) (public, secret []byte, err error)

	// InsertPost stores a post that has already been verified by the
	// caller.
	InsertPost(ctx context.Context, post Post) error

	// GetPostPayloads returns the encoded bytes of every hash present
	// locally; missing hashes are simply omitted from the result.
	GetPostPayloads(ctx context.Context, hashes []message.Hash) ([][]byte, error)

	// GetPostHashes streams hashes satisfying opts, in Store-defined
	// order, stopping once the caller has consumed opts.Limit of them
	// or the underlying sequence is exhausted.
	GetPostHashes(ctx context.Context, opts ChannelOptions) (PostHashIterator, error)

	// Want returns the subset of hashes not already held locally.
	Want(ctx context.Context, hashes []message.Hash) ([]message.Hash, error)

	// GetChannels lists every channel known to the store.
	GetChannels(ctx context.Context) ([]string, error)

	// InsertChannels records channels learned from a peer's
	// ChannelListResponse.
	InsertChannels(ctx context.Context, channels []string) error

	// GetLatestHashes returns the most recent hashes posted to channel,
	// used to compute a new post's `links` field. A nil slice with a
	// nil error means the channel has no posts yet.
	GetLatestHashes(ctx context.Context, channel string) ([]message.Hash, error)

	// GetPostsLive streams posts satisfying opts, for the local node's
	// own live view (e.g. a CLI tailing a channel).
	GetPostsLive(ctx context.Context, opts ChannelOptions) (PostIterator, error)
}

// PostHashIterator lazily yields post hashes. Next returns false once the
// sequence is exhausted or an error occurred; callers must check Err after
// the final false.
type PostHashIterator interface {
	Next() bool
	Hash() message.Hash
	Err() error
	Close() error
}

// PostIterator lazily yields posts.
type PostIterator interface {
	Next() bool
	Post() Post
	Err() error
	Close() error
}
