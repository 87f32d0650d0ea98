package imagecache

import (
	"sync"
)

// Gate allows only one loading round at a time.
type Gate struct {
	mu  sync.Mutex
	set bool
}

// TryAcquire sets the gate. It returns false if the gate is already set.
func (g *Gate) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.set {
		return false
	}
	g.set = true
	return true
}

func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.set = false
}

func (g *Gate) IsSet() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.set
}
