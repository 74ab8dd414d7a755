// Package watch implements WatchManager, the one-shot path-keyed observer
// registry of spec.md §4.3.
//
// It is the direct descendant of the teacher's watch bridge in gozk.go:
// where the teacher registered an integer watchId in a global map and let
// a background goroutine translate C callbacks (wait_for_watch/sendEvent)
// into channel sends, this version drops the cgo bridge entirely and
// dispatches straight to a Watcher interface on the triggering goroutine,
// since there is no longer a C thread to cross.
package watch

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/latticeio/zkstore/internal/zlog"
)

// EventType mirrors the teacher's EVENT_* constants, renamed to the
// spec.md §6 vocabulary.
type EventType int

const (
	NodeCreated EventType = iota + 1
	NodeDeleted
	NodeDataChanged
	NodeChildrenChanged
)

func (t EventType) String() string {
	switch t {
	case NodeCreated:
		return "NodeCreated"
	case NodeDeleted:
		return "NodeDeleted"
	case NodeDataChanged:
		return "NodeDataChanged"
	case NodeChildrenChanged:
		return "NodeChildrenChanged"
	default:
		return "Unknown"
	}
}

// SessionState mirrors the teacher's STATE_CONNECTED and friends; the core
// only ever fires SyncConnected (spec.md §6), the rest exist for callers
// that want a single Event type across session and watch channels, same
// as the teacher's Event did.
type SessionState int

const SyncConnected SessionState = 3

// Event is delivered to a Watcher exactly once.
type Event struct {
	Type  EventType
	State SessionState
	Path  string
}

// Watcher receives watch events. Process must be brief: it runs
// synchronously on the goroutine that triggered the event (spec.md §5,
// "Watch callbacks run synchronously on the triggering thread"). A
// panicking Watcher is caught, logged, and does not prevent the remaining
// watchers on the same path from being notified (spec.md §4.3).
type Watcher interface {
	Process(Event)
}

// WatcherFunc adapts a plain function to the Watcher interface. Each call
// returns a distinct Watcher, usable as a key in a Manager's watcher sets.
func WatcherFunc(f func(Event)) Watcher { return &funcWatcher{f: f} }

type funcWatcher struct{ f func(Event) }

func (w *funcWatcher) Process(e Event) { w.f(e) }

// Manager maps path -> set of one-shot watchers.
type Manager struct {
	mu       sync.Mutex
	watchers map[string]map[Watcher]struct{}

	// reportCache memoizes the last ReportPaths computation;
	// purely a diagnostic speed-up (spec.md §4.3 "Introspection"), never
	// consulted by AddWatch/TriggerWatch/RemoveWatcher.
	reportCache *lru.Cache[string, []string]
}

// NewManager constructs an empty Manager. reportCacheSize bounds the
// introspection memoization cache; 0 disables it.
func NewManager(reportCacheSize int) *Manager {
	m := &Manager{watchers: make(map[string]map[Watcher]struct{})}
	if reportCacheSize > 0 {
		c, err := lru.New[string, []string](reportCacheSize)
		if err != nil {
			// Only returns an error for a non-positive size, already guarded above.
			panic(err)
		}
		m.reportCache = c
	}
	return m
}

// AddWatch registers watcher on path. Idempotent per (path, watcher).
func (m *Manager) AddWatch(path string, watcher Watcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.watchers[path]
	if !ok {
		set = make(map[Watcher]struct{})
		m.watchers[path] = set
	}
	set[watcher] = struct{}{}
	m.invalidate(path)
}

// TriggerWatch atomically removes every watcher registered on path and
// invokes each exactly once with eventType. It returns the set fired, so
// a caller (deleteNode) can pass it as suppress to a sibling manager's
// TriggerWatch on the same path, avoiding a double fire.
func (m *Manager) TriggerWatch(path string, eventType EventType) map[Watcher]struct{} {
	return m.triggerWatch(path, eventType, nil)
}

// TriggerWatchExcept is TriggerWatch with a suppress set: watchers present
// in suppress are left untouched (still registered, not notified).
func (m *Manager) TriggerWatchExcept(path string, eventType EventType, suppress map[Watcher]struct{}) map[Watcher]struct{} {
	return m.triggerWatch(path, eventType, suppress)
}

func (m *Manager) triggerWatch(path string, eventType EventType, suppress map[Watcher]struct{}) map[Watcher]struct{} {
	m.mu.Lock()
	set, ok := m.watchers[path]
	if !ok || len(set) == 0 {
		m.mu.Unlock()
		return nil
	}
	fired := make(map[Watcher]struct{}, len(set))
	remaining := make(map[Watcher]struct{})
	for w := range set {
		if _, skip := suppress[w]; skip {
			remaining[w] = struct{}{}
			continue
		}
		fired[w] = struct{}{}
	}
	if len(remaining) == 0 {
		delete(m.watchers, path)
	} else {
		m.watchers[path] = remaining
	}
	m.invalidate(path)
	m.mu.Unlock()

	event := Event{Type: eventType, State: SyncConnected, Path: path}
	for w := range fired {
		invoke(w, event)
	}
	return fired
}

func invoke(w Watcher, e Event) {
	defer func() {
		if r := recover(); r != nil {
			zlog.WithFields(map[string]interface{}{
				"path": e.Path,
				"type": e.Type.String(),
			}).Errorf("watch: watcher panicked: %v", r)
		}
	}()
	w.Process(e)
}

// ContainsWatcher reports whether watcher is registered on path.
func (m *Manager) ContainsWatcher(path string, watcher Watcher) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.watchers[path]
	if !ok {
		return false
	}
	_, ok = set[watcher]
	return ok
}

// RemoveWatcher removes watcher from every path it is registered on
// (used when a client connection disappears, spec.md §9 "removeCnxn").
func (m *Manager) RemoveWatcher(watcher Watcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for path, set := range m.watchers {
		if _, ok := set[watcher]; ok {
			delete(set, watcher)
			if len(set) == 0 {
				delete(m.watchers, path)
			}
			m.invalidate(path)
		}
	}
}

// RemoveWatcherFromPath removes watcher from just path.
func (m *Manager) RemoveWatcherFromPath(path string, watcher Watcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.watchers[path]
	if !ok {
		return
	}
	delete(set, watcher)
	if len(set) == 0 {
		delete(m.watchers, path)
	}
	m.invalidate(path)
}

// Count returns the total number of registered (path, watcher) pairs.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, set := range m.watchers {
		total += len(set)
	}
	return total
}

// ReportPaths returns the set of paths with at least one registered
// watcher, consulting (and populating) the introspection cache.
func (m *Manager) ReportPaths() []string {
	const cacheKey = "*paths*"
	if m.reportCache != nil {
		if v, ok := m.reportCache.Get(cacheKey); ok {
			return v
		}
	}
	m.mu.Lock()
	paths := make([]string, 0, len(m.watchers))
	for p := range m.watchers {
		paths = append(paths, p)
	}
	m.mu.Unlock()
	if m.reportCache != nil {
		m.reportCache.Add(cacheKey, paths)
	}
	return paths
}

// invalidate drops any cached report touching path. Must be called with
// m.mu held.
func (m *Manager) invalidate(path string) {
	if m.reportCache == nil {
		return
	}
	m.reportCache.Remove("*paths*")
	m.reportCache.Remove(path)
}
