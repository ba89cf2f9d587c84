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

// Contains the metrics collected by the request dispatcher: duplicate
// suppression, forwarding, and the hash-to-post fetch pipeline.

package cablemetrics

import (
	"github.com/ethereum/go-ethereum/metrics"
)

var (
	// DuplicateDropMeter counts requests dropped because their req_id was
	// already present in handled_requests.
	DuplicateDropMeter = metrics.NewRegisteredMeter("cable/requests/duplicate", nil)

	// ForwardedMeter counts requests recorded in outbound_requests with
	// origin Remote, awaiting replay to other peers.
	ForwardedMeter = metrics.NewRegisteredMeter("cable/requests/forwarded", nil)

	// TTLExhaustedMeter counts inbound requests that arrived with TTL zero
	// and so were not recorded in outbound_requests for forwarding.
	TTLExhaustedMeter = metrics.NewRegisteredMeter("cable/requests/ttl_exhausted", nil)

	// WantedPostsMeter counts hashes added to requested_posts after a Hash
	// response named posts this node didn't already hold.
	WantedPostsMeter = metrics.NewRegisteredMeter("cable/posts/wanted", nil)

	// PostAcceptedMeter counts posts that passed verification and were
	// inserted into the Store.
	PostAcceptedMeter = metrics.NewRegisteredMeter("cable/posts/accepted", nil)

	// PostRejectedMeter counts posts dropped for failing verification,
	// byte-count mismatch, or absence from requested_posts.
	PostRejectedMeter = metrics.NewRegisteredMeter("cable/posts/rejected", nil)

	// DispatchTimer measures wall-clock time spent inside the dispatcher
	// per inbound message.
	DispatchTimer = metrics.NewRegisteredTimer("cable/dispatch/duration", nil)
)
