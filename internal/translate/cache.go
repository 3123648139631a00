// Package translate rewrites opaque Slack identifiers in event payloads into
// human-readable display names.
package translate

import "sync"

// Namespace selects which identifier table a lookup goes against.
type Namespace string

const (
	NamespaceUser    Namespace = "user"
	NamespaceChannel Namespace = "channel"
)

// Cache maps identifiers to display names, partitioned by namespace. Entries
// are write-once for the session: Remember never replaces an existing name.
type Cache struct {
	mu    sync.RWMutex
	names map[Namespace]map[string]string
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{names: map[Namespace]map[string]string{
		NamespaceUser:    {},
		NamespaceChannel: {},
	}}
}

// Seed bulk-loads a namespace from bootstrap metadata. Existing entries win
// over seeded ones.
func (c *Cache) Seed(ns Namespace, snapshot map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	table := c.table(ns)
	for id, name := range snapshot {
		if _, ok := table[id]; !ok {
			table[id] = name
		}
	}
}

// Lookup returns the display name for id, or ok=false on a miss. A miss is a
// resolvable gap, not an error; the cache itself never performs I/O.
func (c *Cache) Lookup(ns Namespace, id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.table(ns)[id]
	return name, ok
}

// Remember records a resolved name. The first write for an id sticks; names
// are immutable for the session's lifetime.
func (c *Cache) Remember(ns Namespace, id, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	table := c.table(ns)
	if _, ok := table[id]; ok {
		return
	}
	table[id] = name
}

// Len reports the number of entries in a namespace.
func (c *Cache) Len(ns Namespace) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.table(ns))
}

func (c *Cache) table(ns Namespace) map[string]string {
	table, ok := c.names[ns]
	if !ok {
		table = map[string]string{}
		c.names[ns] = table
	}
	return table
}
