// Package ztree implements DataTree (spec.md component C5), the aggregate
// hash index + hierarchical tree + ephemeral/container/ttl indexes that
// the transaction processor drives and the snapshot codec walks.
package ztree

import (
	"sync"
	"sync/atomic"

	"github.com/latticeio/zkstore/acl"
	"github.com/latticeio/zkstore/internal/zlog"
	"github.com/latticeio/zkstore/quota"
	"github.com/latticeio/zkstore/watch"
)

// DataTree is the aggregate described in spec.md §2 (C5): the hash index
// path -> NodeRecord, the tree rooted at "/", the ephemeral-owner ->
// owned-paths index, the container and ttl path sets, and links to the
// ACL cache, quota trie, and the two watch managers.
type DataTree struct {
	opts options

	// nodesMu guards the structure of the nodes index (insertion and
	// removal of entries). Per spec.md §5, lookups are conceptually
	// lock-free and insertion/removal comes from the single writer;
	// an RWMutex is the straightforward concurrency-safe stand-in.
	nodesMu sync.RWMutex
	nodes   map[string]*NodeRecord

	aclCache *acl.Cache
	pTrie    *quota.PathTrie

	dataWatches  *watch.Manager
	childWatches *watch.Manager

	ephemeralsMu sync.RWMutex
	ephemerals   map[int64]map[string]struct{}

	containersMu sync.RWMutex
	containers   map[string]struct{}

	ttlsMu sync.RWMutex
	ttls   map[string]struct{}

	lastProcessedZxid int64 // accessed via sync/atomic
}

// New constructs a DataTree seeded with "/", "/zookeeper",
// "/zookeeper/quota", and "/zookeeper/config" (initialized with a
// read-only ACL, per spec.md §3).
func New(opts ...Option) *DataTree {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}

	t := &DataTree{
		opts:         o,
		nodes:        make(map[string]*NodeRecord),
		aclCache:     acl.NewCache(),
		pTrie:        quota.New(),
		dataWatches:  watch.NewManager(o.watchReportCache),
		childWatches: watch.NewManager(o.watchReportCache),
		ephemerals:   make(map[int64]map[string]struct{}),
		containers:   make(map[string]struct{}),
		ttls:         make(map[string]struct{}),
	}

	worldAll := t.aclCache.Convert(acl.WorldACL(acl.PermAll))
	root := newNodeRecord(nil, worldAll, Stat{})
	t.nodes[RootPath] = root

	t.bootstrap(ZookeeperPath, "zookeeper", worldAll)
	t.bootstrap(QuotaPath, "quota", worldAll)

	configHandle := t.aclCache.Convert(o.configACL)
	t.bootstrapWithACL(ConfigPath, "config", configHandle)

	return t
}

// bootstrap inserts a persistent, empty management node as a child of its
// already-inserted parent, used only for the fixed reserved subtrees
// created at construction time (zxid 0, outside the transaction log).
func (t *DataTree) bootstrap(path, name string, h acl.Handle) {
	t.bootstrapWithACL(path, name, h)
}

func (t *DataTree) bootstrapWithACL(path, name string, h acl.Handle) {
	parentPath, _ := splitParent(path)
	parent := t.nodes[parentPath]
	parent.children[name] = struct{}{}
	parent.stat.Cversion++
	t.nodes[path] = newNodeRecord(nil, h, Stat{})
}

// ACLCache exposes the tree's ACL cache for the snapshot codec.
func (t *DataTree) ACLCache() *acl.Cache { return t.aclCache }

// PathTrie exposes the quota trie, e.g. to check which paths carry a
// quota; SetupQuota rebuilds it internally on restore.
func (t *DataTree) PathTrie() *quota.PathTrie { return t.pTrie }

// DataWatches exposes the data-watch manager, e.g. for RemoveWatcher on
// session teardown.
func (t *DataTree) DataWatches() *watch.Manager { return t.dataWatches }

// ChildWatches exposes the child-watch manager.
func (t *DataTree) ChildWatches() *watch.Manager { return t.childWatches }

// LastProcessedZxid returns the last zxid whose effects are guaranteed
// fully visible in the tree (spec.md invariant 4/P6).
func (t *DataTree) LastProcessedZxid() int64 {
	return atomic.LoadInt64(&t.lastProcessedZxid)
}

// ObserveProcessedZxid is the public entry point a TransactionProcessor
// calls once a transaction's mutation effects are fully visible in the
// tree, advancing lastProcessedZxid to max(current, zxid) (spec.md
// invariant 4/P6).
func (t *DataTree) ObserveProcessedZxid(zxid int64) {
	t.advanceLastProcessedZxid(zxid)
}

// advanceLastProcessedZxid bumps lastProcessedZxid to max(current, zxid).
// Must be called only after the corresponding mutation's effects are
// already visible in the tree (spec.md invariant 4).
func (t *DataTree) advanceLastProcessedZxid(zxid int64) {
	for {
		cur := atomic.LoadInt64(&t.lastProcessedZxid)
		if zxid <= cur {
			return
		}
		if atomic.CompareAndSwapInt64(&t.lastProcessedZxid, cur, zxid) {
			return
		}
	}
}

func (t *DataTree) getNode(path string) (*NodeRecord, bool) {
	t.nodesMu.RLock()
	defer t.nodesMu.RUnlock()
	n, ok := t.nodes[path]
	return n, ok
}
