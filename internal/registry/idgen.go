// internal/registry/idgen.go
package registry

import (
	"container/heap"
	"sync"
)

type idHeap []int

func (h idHeap) Len() int           { return len(h) }
func (h idHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *idHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// IDGen hands out ids in 1..max. Released ids are reused smallest first
// before the serial counter advances.
type IDGen struct {
	mu     sync.Mutex
	serial int
	max    int
	free   idHeap
	inUse  map[int]struct{}
}

func NewIDGen(max int) *IDGen {
	return &IDGen{max: max, inUse: make(map[int]struct{})}
}

// Next returns a fresh id, or ok=false once every id is taken.
func (g *IDGen) Next() (id int, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.free.Len() > 0 {
		id = heap.Pop(&g.free).(int)
	} else {
		if g.serial >= g.max {
			return 0, false
		}
		g.serial++
		id = g.serial
	}
	g.inUse[id] = struct{}{}
	return id, true
}

// Release returns id to the pool. Releasing an id that is not in use is ignored.
func (g *IDGen) Release(id int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.inUse[id]; !ok {
		return
	}
	delete(g.inUse, id)
	heap.Push(&g.free, id)
}

// InUse reports how many ids are currently allocated.
func (g *IDGen) InUse() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inUse)
}
