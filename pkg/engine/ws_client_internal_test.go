package engine

import (
	"strings"
	"testing"

	"gotest.tools/assert"
)

func collectInto(labels *[]string, label string) Listener {
	return func(string, []byte) {
		*labels = append(*labels, label)
	}
}

func TestWSClient_DispatchOrder(t *testing.T) {
	c := NewWSClient(WSClientConfig{URL: "ws://unused"})

	var got []string
	c.Subscribe(CategoryTick, collectInto(&got, "first"))
	unsub := c.Subscribe(CategoryTick, collectInto(&got, "second"))
	c.Subscribe(CategoryTick, collectInto(&got, "third"))
	c.Subscribe(CategoryAll, collectInto(&got, "wildcard"))

	c.dispatch([]byte(`{"symbol":"R_100","quote":1.5}`))
	assert.Equal(t, strings.Join(got, ","), "first,second,third,wildcard", "registration order, wildcard last")

	got = nil
	unsub()
	unsub() // second call is a no-op
	c.dispatch([]byte(`{"symbol":"R_100","quote":1.6}`))
	assert.Equal(t, strings.Join(got, ","), "first,third,wildcard")
}

func TestWSClient_DispatchUnknownCategory(t *testing.T) {
	c := NewWSClient(WSClientConfig{URL: "ws://unused"})

	var categories []string
	c.Subscribe(CategoryAll, func(category string, _ []byte) {
		categories = append(categories, category)
	})
	var ticks int
	c.Subscribe(CategoryTick, func(string, []byte) { ticks++ })

	c.dispatch([]byte(`{"something":"else"}`))
	assert.Equal(t, strings.Join(categories, ","), CategoryUnknown)
	assert.Equal(t, ticks, 0)
}

func TestWSClient_DispatchMalformedFrame(t *testing.T) {
	c := NewWSClient(WSClientConfig{URL: "ws://unused"})

	var frames int
	c.Subscribe(CategoryAll, func(string, []byte) { frames++ })

	c.dispatch([]byte(`{"symbol":`))
	assert.Equal(t, frames, 0, "unparseable frames are dropped before fan-out")
}
