package geocode

import "sync"

// Coord is a cache key for one lookup.
type Coord struct {
	Lat, Lon float64
}

type lruNode struct {
	key   Coord
	value Place
	prev  *lruNode
	next  *lruNode
}

// LRU is a bounded least-recently-used cache of Places.
// It is safe for concurrent use.
type LRU struct {
	mu       sync.Mutex
	capacity int
	items    map[Coord]*lruNode
	head     *lruNode // sentinel, most recent after it
	tail     *lruNode // sentinel, least recent before it
	hits     int64
	misses   int64
}

// NewLRU creates a cache holding at most capacity entries.
func NewLRU(capacity int) *LRU {
	if capacity <= 0 {
		capacity = 1
	}
	head := &lruNode{}
	tail := &lruNode{}
	head.next = tail
	tail.prev = head
	return &LRU{
		capacity: capacity,
		items:    make(map[Coord]*lruNode, capacity),
		head:     head,
		tail:     tail,
	}
}

// Get returns the cached Place and marks it most recently used.
func (c *LRU) Get(key Coord) (Place, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.items[key]
	if !ok {
		c.misses++
		return Place{}, false
	}
	c.hits++
	c.moveToFront(n)
	return n.value, true
}

// Add inserts or updates key, evicting the least recently used entry when full.
func (c *LRU) Add(key Coord, value Place) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.items[key]; ok {
		n.value = value
		c.moveToFront(n)
		return
	}
	if len(c.items) >= c.capacity {
		oldest := c.tail.prev
		c.unlink(oldest)
		delete(c.items, oldest.key)
	}
	n := &lruNode{key: key, value: value}
	c.items[key] = n
	c.pushFront(n)
}

// Len returns the number of cached entries.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns the hit and miss counts since creation.
func (c *LRU) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *LRU) moveToFront(n *lruNode) {
	c.unlink(n)
	c.pushFront(n)
}

func (c *LRU) pushFront(n *lruNode) {
	n.prev = c.head
	n.next = c.head.next
	c.head.next.prev = n
	c.head.next = n
}

func (c *LRU) unlink(n *lruNode) {
	n.prev.next = n.next
	n.next.prev = n.prev
}
