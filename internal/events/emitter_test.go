package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFireWithoutSubscribers(t *testing.T) {
	var e Emitter[bool]
	assert.NotPanics(t, func() { e.Fire(true) })
	assert.Equal(t, 0, e.Len())
}

func TestSubscribersReceiveInOrder(t *testing.T) {
	var e Emitter[string]
	var got []string
	e.Subscribe(func(v string) { got = append(got, "a:"+v) })
	e.Subscribe(func(v string) { got = append(got, "b:"+v) })

	e.Fire("x")

	assert.Equal(t, []string{"a:x", "b:x"}, got)
}

func TestLateSubscriberMissesPastEvents(t *testing.T) {
	var e Emitter[int]
	e.Fire(1)

	var got []int
	e.Subscribe(func(v int) { got = append(got, v) })
	e.Fire(2)

	assert.Equal(t, []int{2}, got)
}

func TestUnsubscribe(t *testing.T) {
	var e Emitter[int]
	calls := 0
	unsubscribe := e.Subscribe(func(int) { calls++ })

	e.Fire(1)
	unsubscribe()
	unsubscribe()
	e.Fire(2)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, e.Len())
}

func TestSubscriberMayUnsubscribeDuringFire(t *testing.T) {
	var e Emitter[int]
	calls := 0
	var unsubscribe func()
	unsubscribe = e.Subscribe(func(int) {
		calls++
		unsubscribe()
	})

	e.Fire(1)
	e.Fire(2)

	assert.Equal(t, 1, calls)
}
