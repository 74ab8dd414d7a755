package ztree

import (
	"github.com/latticeio/zkstore/acl"
	"github.com/latticeio/zkstore/watch"
	"github.com/latticeio/zkstore/zkerrors"
)

// GetData implements spec.md §4.7: returns a defensive copy of data and a
// copy of stat; if watcher is non-nil, registers a one-shot data watch.
func (t *DataTree) GetData(path string, watcher watch.Watcher) ([]byte, Stat, error) {
	path = normalize(path)
	node, ok := t.getNode(path)
	if !ok {
		return nil, Stat{}, zkerrors.New(zkerrors.NoNode, "getData", path)
	}

	node.mu.RLock()
	data := node.dataCopy()
	stat := node.stat
	node.mu.RUnlock()

	if watcher != nil {
		t.dataWatches.AddWatch(path, watcher)
	}
	return data, stat, nil
}

// GetChildren implements spec.md §4.7: returns a defensive copy of the
// child name set (order unspecified) and a copy of stat; if watcher is
// non-nil, registers a one-shot child watch.
func (t *DataTree) GetChildren(path string, watcher watch.Watcher) ([]string, Stat, error) {
	path = normalize(path)
	node, ok := t.getNode(path)
	if !ok {
		return nil, Stat{}, zkerrors.New(zkerrors.NoNode, "getChildren", path)
	}

	node.mu.RLock()
	names := node.childNames()
	stat := node.stat
	node.mu.RUnlock()

	if watcher != nil {
		t.childWatches.AddWatch(path, watcher)
	}
	return names, stat, nil
}

// StatNode implements spec.md §4.7's exists/statNode: returns stat, or
// NoNode — and in the NoNode case still registers watcher (if non-nil) so
// it fires on a future NodeCreated.
func (t *DataTree) StatNode(path string, watcher watch.Watcher) (Stat, error) {
	path = normalize(path)
	node, ok := t.getNode(path)
	if !ok {
		if watcher != nil {
			t.dataWatches.AddWatch(path, watcher)
		}
		return Stat{}, zkerrors.New(zkerrors.NoNode, "exists", path)
	}

	node.mu.RLock()
	stat := node.stat
	node.mu.RUnlock()

	if watcher != nil {
		t.dataWatches.AddWatch(path, watcher)
	}
	return stat, nil
}

// GetACL implements spec.md §4.7.
func (t *DataTree) GetACL(path string) (acl.List, Stat, error) {
	path = normalize(path)
	node, ok := t.getNode(path)
	if !ok {
		return nil, Stat{}, zkerrors.New(zkerrors.NoNode, "getACL", path)
	}

	node.mu.RLock()
	h := node.aclHandle
	stat := node.stat
	node.mu.RUnlock()

	return t.aclCache.Lookup(h), stat, nil
}

// GetEphemerals returns a defensive copy of the set of paths owned by
// session (spec.md §4.7).
func (t *DataTree) GetEphemerals(session int64) []string {
	t.ephemeralsMu.RLock()
	defer t.ephemeralsMu.RUnlock()
	set, ok := t.ephemerals[session]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	return out
}

// GetAllEphemerals returns a defensive copy of the entire session ->
// owned-paths index (spec.md §4.7's getEphemerals() with no argument).
func (t *DataTree) GetAllEphemerals() map[int64][]string {
	t.ephemeralsMu.RLock()
	defer t.ephemeralsMu.RUnlock()
	out := make(map[int64][]string, len(t.ephemerals))
	for session, set := range t.ephemerals {
		paths := make([]string, 0, len(set))
		for p := range set {
			paths = append(paths, p)
		}
		out[session] = paths
	}
	return out
}

// Containers returns a defensive copy of the container-path set.
func (t *DataTree) Containers() []string {
	t.containersMu.RLock()
	defer t.containersMu.RUnlock()
	out := make([]string, 0, len(t.containers))
	for p := range t.containers {
		out = append(out, p)
	}
	return out
}

// TTLPaths returns a defensive copy of the ttl-path set.
func (t *DataTree) TTLPaths() []string {
	t.ttlsMu.RLock()
	defer t.ttlsMu.RUnlock()
	out := make([]string, 0, len(t.ttls))
	for p := range t.ttls {
		out = append(out, p)
	}
	return out
}

// Exists is a convenience boolean wrapper around StatNode with no watch
// registration.
func (t *DataTree) Exists(path string) bool {
	_, err := t.StatNode(path, nil)
	return err == nil
}
