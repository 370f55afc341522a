package eventbus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishDeliversInOrderToTypedAndGlobalSubscribers(t *testing.T) {
	b := New()
	var typed []string
	var global []string

	unsubTyped := b.Subscribe(ToolExecutionStart, func(ev Event) {
		typed = append(typed, ev.Data.(string))
	})
	defer unsubTyped()

	unsubGlobal := b.SubscribeAll(func(ev Event) {
		global = append(global, ev.Data.(string))
	})
	defer unsubGlobal()

	b.Publish(Event{Type: ToolExecutionStart, Data: "a"})
	b.Publish(Event{Type: ToolExecutionEnd, Data: "b"})

	require.Equal(t, []string{"a"}, typed)
	require.Equal(t, []string{"a", "b"}, global)
}

func TestSubscriberPanicIsIsolated(t *testing.T) {
	b := New()
	var ran bool

	b.Subscribe(Error, func(Event) { panic("boom") })
	b.Subscribe(Error, func(Event) { ran = true })

	require.NotPanics(t, func() {
		b.Publish(Event{Type: Error})
	})
	require.True(t, ran)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	var count int
	unsub := b.Subscribe(MessageStart, func(Event) { count++ })

	b.Publish(Event{Type: MessageStart})
	unsub()
	b.Publish(Event{Type: MessageStart})

	require.Equal(t, 1, count)
}

func TestCloseStopsAllDelivery(t *testing.T) {
	b := New()
	var count int
	b.SubscribeAll(func(Event) { count++ })
	require.NoError(t, b.Close())
	b.Publish(Event{Type: MessageStart})
	require.Equal(t, 0, count)
}
