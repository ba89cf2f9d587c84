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

// Package post is a minimal reference implementation of the external post
// codec the session manager consumes: construction, signing, verification
// and hashing of channel posts. Post content semantics and cryptographic
// identity management are explicitly out of scope for the session manager
// itself; this package exists only so the dispatcher's Post-response
// pipeline has a concrete contract to call.
package post

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"github.com/ahdinosaur/cable-go/message"
)

// Type discriminates the kind of post, matching the wire order the
// original cable post format uses.
type Type uint64

const (
	TypeText Type = iota
	TypeDelete
	TypeInfo
	TypeTopic
	TypeJoin
	TypeLeave
)

var ErrNotSigned = errors.New("post: not signed")

// Post is a decoded, possibly-unsigned channel post. Links record the
// previous latest hashes of the channel at the time of posting, forming a
// causal history; an empty Links means "first post to this channel" (or a
// channel-less post, for Info/Join/Leave types targeting the null
// channel).
type Post struct {
	PublicKey []byte
	Links     []message.Hash
	Channel   string
	Timestamp uint64
	Type      Type

	Text  string   // TypeText
	Topic string   // TypeTopic
	Info  []string // TypeInfo, flattened key/value pairs

	signature []byte
	encoded   []byte // the exact bytes Sign/FromBytes produced, for Hash/Bytes
}

func newPost(typ Type, channel string, links []message.Hash, timestamp uint64) Post {
	return Post{Links: links, Channel: channel, Timestamp: timestamp, Type: typ}
}

// Text constructs an unsigned text post.
func Text(channel string, links []message.Hash, timestamp uint64, text string) Post {
	p := newPost(TypeText, channel, links, timestamp)
	p.Text = text
	return p
}

// Delete constructs an unsigned request to delete the posts named by hashes.
func Delete(links []message.Hash, timestamp uint64, hashes []message.Hash) Post {
	p := newPost(TypeDelete, "", links, timestamp)
	p.Links = append(append([]message.Hash{}, links...), hashes...)
	return p
}

// Info constructs an unsigned key/value info post (e.g. nickname changes).
func Info(links []message.Hash, timestamp uint64, kv []string) Post {
	p := newPost(TypeInfo, "", links, timestamp)
	p.Info = kv
	return p
}

// Topic constructs an unsigned channel-topic post.
func Topic(channel string, links []message.Hash, timestamp uint64, topic string) Post {
	p := newPost(TypeTopic, channel, links, timestamp)
	p.Topic = topic
	return p
}

// Join constructs an unsigned channel-membership join post.
func Join(channel string, links []message.Hash, timestamp uint64) Post {
	return newPost(TypeJoin, channel, links, timestamp)
}

// Leave constructs an unsigned channel-membership leave post.
func Leave(channel string, links []message.Hash, timestamp uint64) Post {
	return newPost(TypeLeave, channel, links, timestamp)
}

// IsSigned reports whether Sign has produced a signature for this post.
func (p Post) IsSigned() bool {
	return len(p.signature) == ed25519.SignatureSize
}

// Sign signs the post with secretKey and fixes its encoded wire form; a
// post must be signed before it can be hashed or serialised.
func (p Post) Sign(publicKey ed25519.PublicKey, secretKey ed25519.PrivateKey) (Post, error) {
	p.PublicKey = append([]byte{}, publicKey...)
	body := p.signableBody()
	p.signature = ed25519.Sign(secretKey, body)
	p.encoded = append(append([]byte{}, p.signature...), body...)
	return p, nil
}

// Verify reports whether the post's signature is valid for its claimed
// public key and body.
func (p Post) Verify() bool {
	if !p.IsSigned() || len(p.PublicKey) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(p.PublicKey, p.signableBody(), p.signature)
}

// Bytes returns the exact encoded form produced by Sign or FromBytes.
func (p Post) Bytes() []byte {
	return append([]byte{}, p.encoded...)
}

// Hash returns the post's content hash: sha256 over its full encoded form
// (signature included), matching cable's "hash the wire bytes" convention.
func (p Post) Hash() message.Hash {
	return sha256.Sum256(p.encoded)
}

// FromBytes decodes a post previously produced by Sign, returning the
// number of bytes consumed.
func FromBytes(buf []byte) (int, Post, error) {
	if len(buf) < ed25519.SignatureSize+ed25519.PublicKeySize+1+8+1 {
		return 0, Post{}, errShort
	}
	var p Post
	p.signature = append([]byte{}, buf[:ed25519.SignatureSize]...)
	rest := buf[ed25519.SignatureSize:]
	bodyStart := len(rest)

	p.PublicKey = append([]byte{}, rest[:ed25519.PublicKeySize]...)
	rest = rest[ed25519.PublicKeySize:]

	p.Type = Type(rest[0])
	rest = rest[1:]

	p.Timestamp = binary.BigEndian.Uint64(rest[:8])
	rest = rest[8:]

	n := int(rest[0])
	rest = rest[1:]
	if len(rest) < n {
		return 0, Post{}, errShort
	}
	p.Channel = string(rest[:n])
	rest = rest[n:]

	switch p.Type {
	case TypeText:
		m := int(rest[0])
		rest = rest[1:]
		if len(rest) < m {
			return 0, Post{}, errShort
		}
		p.Text = string(rest[:m])
		rest = rest[m:]
	case TypeTopic:
		m := int(rest[0])
		rest = rest[1:]
		if len(rest) < m {
			return 0, Post{}, errShort
		}
		p.Topic = string(rest[:m])
		rest = rest[m:]
	}

	consumedBody := bodyStart - len(rest)
	total := ed25519.SignatureSize + consumedBody
	p.encoded = append([]byte{}, buf[:total]...)
	return total, p, nil
}

var errShort = errors.New("post: truncated input")

// signableBody is the portion of a post covered by its signature: the
// public key, type, timestamp, channel, and the text or topic. Links and
// Info are neither signed nor encoded.
func (p Post) signableBody() []byte {
	var out []byte
	out = append(out, p.PublicKey...)
	out = append(out, byte(p.Type))
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], p.Timestamp)
	out = append(out, ts[:]...)
	out = append(out, byte(len(p.Channel)))
	out = append(out, p.Channel...)
	switch p.Type {
	case TypeText:
		out = append(out, byte(len(p.Text)))
		out = append(out, p.Text...)
	case TypeTopic:
		out = append(out, byte(len(p.Topic)))
		out = append(out, p.Topic...)
	}
	return out
}
