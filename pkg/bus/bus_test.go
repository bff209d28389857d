package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubscribeReceivesPublishedValue(t *testing.T) {
	b := New[int](10)
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	b.Publish(42)

	select {
	case v := <-sub:
		require.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published value")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New[int](10)
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	b.Unsubscribe(sub)
	require.Equal(t, 0, b.SubscriberCount())

	_, ok := <-sub
	require.False(t, ok, "channel should be closed after Unsubscribe")
}

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	b := New[string](10)
	b.Start()
	defer b.Stop()

	sub1 := b.Subscribe()
	sub2 := b.Subscribe()
	b.Publish("hello")

	for _, sub := range []Subscriber[string]{sub1, sub2} {
		select {
		case v := <-sub:
			require.Equal(t, "hello", v)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for broadcast")
		}
	}
}

func TestPublishStampsTimestamp(t *testing.T) {
	NodeBus.Start()
	defer NodeBus.Stop()

	sub := NodeBus.Subscribe()
	defer NodeBus.Unsubscribe(sub)

	Publish(Event{Kind: KindLeaderChanged})

	select {
	case e := <-sub:
		require.Equal(t, KindLeaderChanged, e.Kind)
		require.False(t, e.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}
