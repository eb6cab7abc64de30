package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pushN(o *outbox, from, to int) {
	for i := from; i < to; i++ {
		o.push(bufferedMsg{topic: TopicEvents, payload: []byte{byte(i)}})
	}
}

func payloadBytes(msgs []bufferedMsg) []byte {
	out := make([]byte, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.payload[0])
	}
	return out
}

func TestOutboxEmptyDrain(t *testing.T) {
	msgs, dropped := newOutbox(10).drain()
	assert.Nil(t, msgs)
	assert.Zero(t, dropped)
}

func TestOutboxDrainsInOrder(t *testing.T) {
	o := newOutbox(10)
	pushN(o, 0, 5)

	msgs, dropped := o.drain()
	assert.Equal(t, []byte{0, 1, 2, 3, 4}, payloadBytes(msgs))
	assert.Zero(t, dropped)

	msgs, _ = o.drain()
	assert.Nil(t, msgs, "second drain should be empty")
}

func TestOutboxOverflowKeepsNewest(t *testing.T) {
	o := newOutbox(5)
	pushN(o, 0, 8)

	assert.Equal(t, 5, o.len())
	msgs, dropped := o.drain()
	assert.Equal(t, []byte{3, 4, 5, 6, 7}, payloadBytes(msgs))
	assert.Equal(t, 3, dropped)

	_, dropped = o.drain()
	assert.Zero(t, dropped, "drain resets the drop count")
}

func TestOutboxKeepsRetainedLifecycleMessages(t *testing.T) {
	o := newOutbox(3)
	o.push(bufferedMsg{topic: TopicSystem, payload: []byte{100}, qos: 1, retained: true})
	pushN(o, 0, 5)

	msgs, dropped := o.drain()
	assert.Equal(t, []byte{100, 3, 4}, payloadBytes(msgs))
	assert.Equal(t, 3, dropped)
}

func TestOutboxEvictsRetainedWhenNothingElseLeft(t *testing.T) {
	o := newOutbox(2)
	for i := 0; i < 3; i++ {
		o.push(bufferedMsg{topic: TopicSystem, payload: []byte{byte(i)}, retained: true})
	}

	msgs, dropped := o.drain()
	assert.Equal(t, []byte{1, 2}, payloadBytes(msgs))
	assert.Equal(t, 1, dropped)
}

func TestOutboxMultipleCycles(t *testing.T) {
	o := newOutbox(5)

	pushN(o, 0, 3)
	msgs, _ := o.drain()
	require.Len(t, msgs, 3)

	pushN(o, 10, 14)
	msgs, _ = o.drain()
	assert.Equal(t, []byte{10, 11, 12, 13}, payloadBytes(msgs))
	assert.Equal(t, 0, o.len())
}

func TestOutboxPreservesFields(t *testing.T) {
	o := newOutbox(2)
	want := bufferedMsg{
		topic:    TopicSystem,
		payload:  []byte(`{"system":{"event":"HEARTBEAT"}}`),
		qos:      1,
		retained: true,
	}
	o.push(want)

	msgs, _ := o.drain()
	require.Len(t, msgs, 1)
	assert.Equal(t, want, msgs[0])
}

func TestOutboxMinimumCapacity(t *testing.T) {
	o := newOutbox(0)
	pushN(o, 0, 2)

	msgs, dropped := o.drain()
	assert.Equal(t, []byte{1}, payloadBytes(msgs))
	assert.Equal(t, 1, dropped)
}
