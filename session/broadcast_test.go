package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ahdinosaur/cable-go/message"
	"github.com/ahdinosaur/cable-go/post"
)

func TestPublishPostNotifiesMatchingLiveSubscription(t *testing.T) {
	m, _ := newTestManager(t)
	p := newTestPeer(t, m, 1)
	ctx := context.Background()

	m.dispatch(p, message.Message{
		Header: message.Header{ReqId: message.ReqId{1}},
		Body:   message.ChannelTimeRangeRequest{TTL: 1, Channel: "default", TimeEnd: 0, Limit: 10},
	})
	require.Len(t, p.out, 1)
	<-p.out // drain the initial (empty) hash response

	hash, err := m.PublishPost(ctx, post.Text("default", nil, 1, "hello"))
	require.NoError(t, err)

	require.Len(t, p.out, 1)
	resp := (<-p.out).Body.(message.HashResponse)
	require.Equal(t, []message.Hash{hash}, resp.Hashes)
}

func TestPublishPostIgnoresNonMatchingChannelSubscription(t *testing.T) {
	m, _ := newTestManager(t)
	p := newTestPeer(t, m, 1)
	ctx := context.Background()

	m.dispatch(p, message.Message{
		Header: message.Header{ReqId: message.ReqId{1}},
		Body:   message.ChannelTimeRangeRequest{TTL: 1, Channel: "other", TimeEnd: 0, Limit: 10},
	})
	<-p.out // drain the initial (empty) hash response

	_, err := m.PublishPost(ctx, post.Text("default", nil, 1, "hello"))
	require.NoError(t, err)

	require.Empty(t, p.out)
}

func TestPublishPostEmitsPostEvent(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	events := make(chan PostEvent, 1)
	sub := m.SubscribePostEvents(events)
	defer sub.Unsubscribe()

	hash, err := m.PublishPost(ctx, post.Text("default", nil, 1, "hi"))
	require.NoError(t, err)

	ev := <-events
	require.Equal(t, hash, ev.Hash)
	require.Equal(t, "default", ev.Channel)
}
