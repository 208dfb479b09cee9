package session_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/slotflow/pkg/session"
)

func TestBroker_PublishSubscribe(t *testing.T) {
	b := session.NewBroker[string]()

	ch1, cancel1 := b.Subscribe("s1")
	defer cancel1()
	ch2, cancel2 := b.Subscribe("s1")
	defer cancel2()
	other, cancelOther := b.Subscribe("s2")
	defer cancelOther()

	assert.Equal(t, 2, b.Subscribers("s1"))
	assert.Equal(t, 2, b.Publish("s1", "hello"))
	assert.Equal(t, "hello", <-ch1)
	assert.Equal(t, "hello", <-ch2)
	assert.Empty(t, other, "topics are isolated")
	assert.Equal(t, 0, b.Publish("nobody", "lost"))
}

func TestBroker_CancelClosesChannel(t *testing.T) {
	b := session.NewBroker[int]()
	ch, cancel := b.Subscribe("s1")

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, b.Subscribers("s1"))
	assert.Equal(t, 0, b.Publish("s1", 1))
}

func TestBroker_SlowSubscriberDropsMessages(t *testing.T) {
	b := session.NewBroker[int]()
	ch, cancel := b.Subscribe("s1")
	defer cancel()

	delivered := 0
	for i := 0; i < 50; i++ {
		delivered += b.Publish("s1", i)
	}
	assert.Equal(t, 10, delivered)
	assert.Len(t, ch, 10)
	assert.Equal(t, 0, <-ch, "oldest messages are kept")
}

func TestBroker_ConcurrentUse(t *testing.T) {
	b := session.NewBroker[int]()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ch, cancel := b.Subscribe("s1")
			b.Publish("s1", i)
			cancel()
			for range ch {
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, b.Subscribers("s1"))
}
