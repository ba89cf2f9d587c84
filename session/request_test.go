package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ahdinosaur/cable-go/message"
	"github.com/ahdinosaur/cable-go/post"
	"github.com/ahdinosaur/cable-go/store"
)

func TestRequestChannelTimeRangeBroadcastsAndRecordsLocalOrigin(t *testing.T) {
	m, _ := newTestManager(t)
	p1 := newTestPeer(t, m, 1)
	p2 := newTestPeer(t, m, 2)

	reqID, it, err := m.RequestChannelTimeRange(context.Background(), store.ChannelOptions{
		Channel: "default", Limit: 10,
	})
	require.NoError(t, err)
	require.NotNil(t, it)
	defer it.Close()

	entry, ok := m.outbound.get(reqID)
	require.True(t, ok)
	require.Equal(t, OriginLocal, entry.Origin)
	require.IsType(t, message.ChannelTimeRangeRequest{}, entry.Body)

	require.Len(t, p1.out, 1)
	require.Len(t, p2.out, 1)
	sent := (<-p1.out)
	require.Equal(t, reqID, sent.Header.ReqId)
	req := sent.Body.(message.ChannelTimeRangeRequest)
	require.Equal(t, "default", req.Channel)
}

func TestCancelChannelTimeRangeBroadcastsCancelAndDropsEntry(t *testing.T) {
	m, _ := newTestManager(t)
	p := newTestPeer(t, m, 1)

	reqID, it, err := m.RequestChannelTimeRange(context.Background(), store.ChannelOptions{
		Channel: "default", Limit: 10,
	})
	require.NoError(t, err)
	it.Close()
	<-p.out // drain the original request broadcast

	m.CancelChannelTimeRange("default")

	_, ok := m.outbound.get(reqID)
	require.False(t, ok)

	require.Len(t, p.out, 1)
	sent := (<-p.out).Body.(message.CancelRequest)
	require.Equal(t, reqID, sent.CancelID)
}

func TestCancelChannelTimeRangeIgnoresOtherChannelsAndRemoteOrigin(t *testing.T) {
	m, _ := newTestManager(t)
	p := newTestPeer(t, m, 1)

	localOther := message.ReqId{1, 1, 1, 1}
	m.outbound.put(localOther, outboundRequest{
		Origin: OriginLocal,
		Body:   message.ChannelTimeRangeRequest{TTL: 1, Channel: "other", Limit: 10},
	})
	remoteDefault := message.ReqId{2, 2, 2, 2}
	m.outbound.put(remoteDefault, outboundRequest{
		Origin: OriginRemote,
		Body:   message.ChannelTimeRangeRequest{TTL: 1, Channel: "default", Limit: 10},
	})

	m.CancelChannelTimeRange("default")

	_, ok := m.outbound.get(localOther)
	require.True(t, ok)
	_, ok = m.outbound.get(remoteDefault)
	require.True(t, ok)
	require.Empty(t, p.out)
}

func TestLinksWrapsStoreLatestHashes(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	hash, err := m.PublishPost(ctx, post.Text("default", nil, 1, "first"))
	require.NoError(t, err)

	links, err := m.Links(ctx, "default")
	require.NoError(t, err)
	require.Equal(t, []message.Hash{hash}, links)
}
