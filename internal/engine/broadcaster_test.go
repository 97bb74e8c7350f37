package engine

import (
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rohmanhakim/docs-crawler/internal/page"
	"github.com/stretchr/testify/assert"
)

func newTestPageForBroadcast(t *testing.T, path string) *page.Page {
	t.Helper()
	u, err := url.Parse("https://example.com/" + path)
	assert.NoError(t, err)
	return page.New(*u, *u, 200, map[string]string{}, []byte("x"), time.Now(), 0)
}

func TestBroadcaster_PublishNeverBlocksOnFullSubscriber(t *testing.T) {
	b := NewBroadcaster()
	ch, release := b.Subscribe(1)
	defer release()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish(newTestPageForBroadcast(t, "a"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber buffer")
	}

	assert.Greater(t, b.Lagged(), int64(0))
	assert.NotNil(t, <-ch)
}

func TestBroadcaster_FansOutToEverySubscriber(t *testing.T) {
	b := NewBroadcaster()
	chA, releaseA := b.Subscribe(4)
	chB, releaseB := b.Subscribe(4)
	defer releaseA()
	defer releaseB()

	p := newTestPageForBroadcast(t, "fanout")
	b.Publish(p)

	assert.Same(t, p, <-chA)
	assert.Same(t, p, <-chB)
}

func TestBroadcaster_SubscribeGuardWaitsForRelease(t *testing.T) {
	b := NewBroadcaster()
	_, release := b.Subscribe(1)

	waited := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		b.SubscribeGuard().Wait()
		close(waited)
	}()

	select {
	case <-waited:
		t.Fatal("guard returned before subscriber released")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	wg.Wait()

	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("guard never returned after release")
	}
}
