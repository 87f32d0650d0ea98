package imagecache

import (
	"maps"
	"slices"
	"sync"

	"github.com/ShoshinNikita/camoview/camoview"
)

// ResultTable contains loaded images ready to be rendered. Only the goroutine that
// calls [Dispatcher.Tick] inserts new values.
type ResultTable[H any] struct {
	mu     sync.RWMutex
	values map[camoview.ResourceKey]H
}

func NewResultTable[H any]() *ResultTable[H] {
	return &ResultTable[H]{
		values: make(map[camoview.ResourceKey]H),
	}
}

func (t *ResultTable[H]) Get(key camoview.ResourceKey) (H, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	v, ok := t.values[key]
	return v, ok
}

func (t *ResultTable[H]) Has(key camoview.ResourceKey) bool {
	_, ok := t.Get(key)
	return ok
}

func (t *ResultTable[H]) Insert(key camoview.ResourceKey, v H) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.values[key] = v
}

func (t *ResultTable[H]) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	clear(t.values)
}

func (t *ResultTable[H]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.values)
}

// Keys returns sorted keys.
func (t *ResultTable[H]) Keys() []camoview.ResourceKey {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return slices.Sorted(maps.Keys(t.values))
}
