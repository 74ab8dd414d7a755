// Package acl interns access-control lists and hands out stable 64-bit
// handles with reference counts, per spec.md §4.1.
//
// The ACL value type itself — Perms/Scheme/ID — is carried over verbatim
// from the teacher's zookeeper.ACL (gozk.go), including the AuthACL/
// WorldACL convenience constructors; only the cgo-backed client plumbing
// around it is discarded.
package acl

import "sync"

// Permission bits, identical in spirit to the teacher's PERM_* constants.
const (
	PermRead = 1 << iota
	PermWrite
	PermCreate
	PermDelete
	PermAdmin
	PermAll = 0x1f
)

// ACL is one access-control entry: the permission bitmask, the auth scheme
// ("world", "auth", "digest", ...), and the scheme-dependent identity.
type ACL struct {
	Perms  uint32
	Scheme string
	ID     string
}

// List is an ordered ACL list. Order is significant for interning — two
// lists with the same entries in a different order are distinct handles.
type List []ACL

func (l List) equal(other List) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if l[i] != other[i] {
			return false
		}
	}
	return true
}

// AuthACL returns a single-entry ACL granting perms to any authenticated
// identity.
func AuthACL(perms uint32) List {
	return List{{Perms: perms, Scheme: "auth", ID: ""}}
}

// WorldACL returns a single-entry ACL granting perms to anyone.
func WorldACL(perms uint32) List {
	return List{{Perms: perms, Scheme: "world", ID: "anyone"}}
}

// ReadOnlyWorldACL is the fixed ACL spec.md §3 says /zookeeper/config is
// initialized with.
func ReadOnlyWorldACL() List {
	return WorldACL(PermRead)
}

type entry struct {
	list List
	refs int64
}

// Handle is an opaque 64-bit reference into a Cache.
type Handle int64

// Cache interns ACL lists and assigns stable handles with reference
// counts, per spec.md §4.1.
type Cache struct {
	mu      sync.RWMutex
	entries map[Handle]*entry
	next    Handle
}

// NewCache constructs an empty ACL cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[Handle]*entry)}
}

// Convert interns list, returning its handle. An exact (order-significant)
// match bumps the existing entry's refcount; otherwise a fresh handle is
// allocated with refcount 1.
func (c *Cache) Convert(list List) Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	for h, e := range c.entries {
		if e.list.equal(list) {
			e.refs++
			return h
		}
	}
	cp := make(List, len(list))
	copy(cp, list)
	c.next++
	h := c.next
	c.entries[h] = &entry{list: cp, refs: 1}
	return h
}

// Lookup fetches the interned list for h. An unknown handle is a
// programming error per spec.md §4.1 and panics.
func (c *Cache) Lookup(h Handle) List {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[h]
	if !ok {
		panic("acl: unknown handle")
	}
	cp := make(List, len(e.list))
	copy(cp, e.list)
	return cp
}

// AddUsage increments h's refcount, used when re-attaching a handle read
// from a snapshot.
func (c *Cache) AddUsage(h Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[h]; ok {
		e.refs++
	}
}

// RemoveUsage decrements h's refcount. Entries at refcount 0 are retained
// until PurgeUnused sweeps them.
func (c *Cache) RemoveUsage(h Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[h]; ok {
		e.refs--
	}
}

// RefCount reports h's current reference count, for testing invariant P3.
func (c *Cache) RefCount(h Handle) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[h]; ok {
		return e.refs
	}
	return 0
}

// PurgeUnused drops every entry at refcount <= 0 in one sweep, per
// spec.md §4.1 ("called once at end of restore").
func (c *Cache) PurgeUnused() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for h, e := range c.entries {
		if e.refs <= 0 {
			delete(c.entries, h)
		}
	}
}

// Snapshot is a (handle, list) pair as written by Serialize/read by
// Deserialize, handle values need not be stable across a round trip as
// long as the mapping is internally consistent (spec.md §4.1).
type Snapshot struct {
	Handle Handle
	List   List
}

// Serialize returns every interned (handle, list) pair, in handle order.
func (c *Cache) Serialize() []Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Snapshot, 0, len(c.entries))
	for h, e := range c.entries {
		cp := make(List, len(e.list))
		copy(cp, e.list)
		out = append(out, Snapshot{Handle: h, List: cp})
	}
	sortSnapshots(out)
	return out
}

func sortSnapshots(s []Snapshot) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1].Handle > s[j].Handle; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Deserialize replaces the cache's contents with entries, preserving the
// handle values exactly as given. Every refcount starts at 0 and is then
// bumped by DataTree's restore walk via AddUsage, per spec.md §4.6.
func (c *Cache) Deserialize(entries []Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Handle]*entry, len(entries))
	var max Handle
	for _, s := range entries {
		cp := make(List, len(s.List))
		copy(cp, s.List)
		c.entries[s.Handle] = &entry{list: cp, refs: 0}
		if s.Handle > max {
			max = s.Handle
		}
	}
	c.next = max
}
