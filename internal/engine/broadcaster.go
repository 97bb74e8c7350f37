package engine

import (
	"sync"
	"sync/atomic"

	"github.com/rohmanhakim/docs-crawler/internal/page"
)

// Broadcaster fans every completed Page out to every active subscriber.
// It generalizes the teacher's single-consumer Producer/Consumer queue to
// a non-blocking, multi-subscriber fan-out: a crawl worker publishing
// a Page must never stall because one subscriber reads slowly. A
// subscriber that falls behind has its oldest unread entry dropped; the
// total dropped across all subscribers is exposed via Lagged.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[int]chan *page.Page
	nextID      int
	lagged      atomic.Int64
	guard       sync.WaitGroup
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[int]chan *page.Page)}
}

// Guard is a reference-counted handle on live Broadcaster subscribers.
// The Draining -> Stopped transition waits on it to reach zero so every
// subscriber has a chance to drain its buffered Pages before the engine
// closes the channel out from under it.
type Guard struct {
	wg *sync.WaitGroup
}

func (g Guard) Wait() {
	if g.wg != nil {
		g.wg.Wait()
	}
}

// SubscribeGuard returns the handle tracking currently-registered
// subscribers.
func (b *Broadcaster) SubscribeGuard() Guard {
	return Guard{wg: &b.guard}
}

// Subscribe registers a new output channel of the given buffer capacity.
// The returned release func must be called exactly once when the
// subscriber is done reading.
func (b *Broadcaster) Subscribe(capacity int) (<-chan *page.Page, func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan *page.Page, capacity)
	b.subscribers[id] = ch
	b.mu.Unlock()

	b.guard.Add(1)
	var once sync.Once
	release := func() {
		once.Do(func() {
			b.mu.Lock()
			if sub, ok := b.subscribers[id]; ok {
				delete(b.subscribers, id)
				close(sub)
			}
			b.mu.Unlock()
			b.guard.Done()
		})
	}
	return ch, release
}

// Publish fans p out to every subscriber without blocking. A subscriber
// whose buffer is full has its oldest unread Page dropped to make room.
func (b *Broadcaster) Publish(p *page.Page) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- p:
			continue
		default:
		}
		select {
		case <-ch:
			b.lagged.Add(1)
		default:
		}
		select {
		case ch <- p:
		default:
		}
	}
}

// Lagged returns the total number of Pages dropped across all subscribers
// for falling behind.
func (b *Broadcaster) Lagged() int64 {
	return b.lagged.Load()
}

// CloseAll force-closes any subscriber channel still registered. Safe to
// call after SubscribeGuard().Wait() returns, where it is a no-op; exists
// as a defensive backstop against a subscriber that never released.
func (b *Broadcaster) CloseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
}
