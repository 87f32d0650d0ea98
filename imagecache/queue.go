package imagecache

import (
	"sync"

	"github.com/ShoshinNikita/camoview/camoview"
)

type Item struct {
	Key camoview.ResourceKey
	URL string
}

// Queue is a FIFO queue of images to load. It never contains two items with the same key.
type Queue struct {
	mu    sync.Mutex
	items []Item
	keys  map[camoview.ResourceKey]struct{}
}

func NewQueue() *Queue {
	return &Queue{
		keys: make(map[camoview.ResourceKey]struct{}),
	}
}

// Push adds an item to the end of the queue. It returns false if an item with the same
// key is already queued.
func (q *Queue) Push(item Item) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.keys[item.Key]; ok {
		return false
	}
	q.keys[item.Key] = struct{}{}
	q.items = append(q.items, item)
	return true
}

// Drain removes and returns all queued items.
func (q *Queue) Drain() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	clear(q.keys)
	return items
}

func (q *Queue) Contains(key camoview.ResourceKey) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	_, ok := q.keys[key]
	return ok
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

func (q *Queue) Clear() {
	q.Drain()
}
