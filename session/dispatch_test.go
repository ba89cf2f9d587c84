package session

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/ahdinosaur/cable-go/memstore"
	"github.com/ahdinosaur/cable-go/message"
)

func newTestManager(t *testing.T) (*Manager, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	m := NewManager(store, WithLogger(log.New()))
	return m, store
}

func newTestPeer(t *testing.T, m *Manager, id PeerId) *Peer {
	t.Helper()
	p := newPeer(id, nil, m.log)
	m.peers.register(id, p)
	return p
}

func TestLoopSuppressionDropsRepeatedReqID(t *testing.T) {
	m, _ := newTestManager(t)
	p := newTestPeer(t, m, 1)

	msg := message.Message{
		Header: message.Header{ReqId: message.ReqId{9, 9, 9, 9}},
		Body:   message.ChannelListRequest{TTL: 1, Limit: 10},
	}

	m.dispatch(p, msg)
	m.dispatch(p, msg)

	require.Len(t, p.out, 1)
}

func TestTTLZeroIsNotForwarded(t *testing.T) {
	m, _ := newTestManager(t)
	p := newTestPeer(t, m, 1)

	reqID := message.ReqId{1, 2, 3, 4}
	m.dispatch(p, message.Message{
		Header: message.Header{ReqId: reqID},
		Body:   message.PostRequest{TTL: 0, Hashes: nil},
	})

	_, ok := m.outbound.get(reqID)
	require.False(t, ok)
}

func TestForwardingRecordsDecrementedTTL(t *testing.T) {
	m, _ := newTestManager(t)
	p := newTestPeer(t, m, 1)

	reqID := message.ReqId{5, 5, 5, 5}
	m.dispatch(p, message.Message{
		Header: message.Header{ReqId: reqID},
		Body:   message.ChannelListRequest{TTL: 3, Limit: 10},
	})

	entry, ok := m.outbound.get(reqID)
	require.True(t, ok)
	require.Equal(t, OriginRemote, entry.Origin)
	require.Equal(t, uint64(2), entry.Body.GetTTL())
}

func TestCancelRemovesReferencedRequest(t *testing.T) {
	m, _ := newTestManager(t)
	p := newTestPeer(t, m, 1)

	cancelID := message.ReqId{1, 1, 1, 1}
	m.outbound.put(cancelID, outboundRequest{
		Origin: OriginLocal,
		Body:   message.ChannelListRequest{TTL: 5, Limit: 1},
	})

	m.dispatch(p, message.Message{
		Header: message.Header{ReqId: message.ReqId{2, 2, 2, 2}},
		Body:   message.CancelRequest{TTL: 1, CancelID: cancelID},
	})

	_, ok := m.outbound.get(cancelID)
	require.False(t, ok)
}

func TestChannelListRequestClampsLimit(t *testing.T) {
	m, store := newTestManager(t)
	p := newTestPeer(t, m, 1)
	require.NoError(t, store.InsertChannels(context.Background(), []string{"a", "b", "c"}))

	m.dispatch(p, message.Message{
		Header: message.Header{ReqId: message.ReqId{1}},
		Body:   message.ChannelListRequest{TTL: 1, Skip: 0, Limit: 999999},
	})

	require.Len(t, p.out, 1)
	resp := (<-p.out).Body.(message.ChannelListResponse)
	require.Equal(t, []string{"a", "b", "c"}, resp.Channels)
}

func TestHashResponseTriggersPostRequest(t *testing.T) {
	m, _ := newTestManager(t)
	p := newTestPeer(t, m, 1)

	var h message.Hash
	h[0] = 0xaa

	m.dispatch(p, message.Message{
		Header: message.Header{ReqId: message.ReqId{1}},
		Body:   message.HashResponse{Hashes: []message.Hash{h}},
	})

	require.True(t, m.requestedPosts.has(h))
	require.Len(t, p.out, 1)
	req := (<-p.out).Body.(message.PostRequest)
	require.Equal(t, uint64(1), req.TTL)
	require.Equal(t, []message.Hash{h}, req.Hashes)
}

func TestEmptyHashResponseIsTermination(t *testing.T) {
	m, _ := newTestManager(t)
	p := newTestPeer(t, m, 1)

	reqID := message.ReqId{1}
	m.outbound.put(reqID, outboundRequest{
		Origin: OriginLocal,
		Body:   message.ChannelTimeRangeRequest{TTL: 1, Channel: "default", Limit: 10},
	})

	m.dispatch(p, message.Message{
		Header: message.Header{ReqId: reqID},
		Body:   message.HashResponse{Hashes: nil},
	})

	require.Empty(t, p.out)
	_, ok := m.outbound.get(reqID)
	require.False(t, ok, "empty HashResponse should delete the referenced req_id from outbound_requests")
}

func TestChannelTimeRangeRegistersLiveSubscription(t *testing.T) {
	m, _ := newTestManager(t)
	p := newTestPeer(t, m, 1)

	m.dispatch(p, message.Message{
		Header: message.Header{ReqId: message.ReqId{1}},
		Body:   message.ChannelTimeRangeRequest{TTL: 1, Channel: "default", TimeStart: 0, TimeEnd: 0, Limit: 20},
	})

	reqs := m.live.snapshot()[1]
	require.Len(t, reqs, 1)
	require.Equal(t, "default", reqs[0].Opts.Channel)
}

func TestChannelStateRequestIsNoOp(t *testing.T) {
	m, _ := newTestManager(t)
	p := newTestPeer(t, m, 1)

	m.dispatch(p, message.Message{
		Header: message.Header{ReqId: message.ReqId{1}},
		Body:   message.ChannelStateRequest{TTL: 1, Channel: "default"},
	})

	require.Empty(t, p.out)
}

func TestUnrecognizedIsIgnored(t *testing.T) {
	m, _ := newTestManager(t)
	p := newTestPeer(t, m, 1)

	m.dispatch(p, message.Message{
		Header: message.Header{ReqId: message.ReqId{1}},
		Body:   message.Unrecognized{Type: 42},
	})

	require.Empty(t, p.out)
}
