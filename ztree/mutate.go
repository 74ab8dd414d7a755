package ztree

import (
	"github.com/sirupsen/logrus"

	"github.com/latticeio/zkstore/acl"
	"github.com/latticeio/zkstore/ephemeral"
	"github.com/latticeio/zkstore/internal/zlog"
	"github.com/latticeio/zkstore/watch"
	"github.com/latticeio/zkstore/zkerrors"
)

// CreateNode implements spec.md §4.4.1. parentCVersion of -1 means "derive
// from parent.stat.Cversion + 1"; any other value is used as-is (the
// authoritative value supplied by the leader for replicated ordering).
func (t *DataTree) CreateNode(path string, data []byte, list acl.List, ephemeralOwner int64, parentCVersion int32, zxid, when int64) (Stat, error) {
	path = normalize(path)
	parentPath, childName := splitParent(path)

	parent, ok := t.getNode(parentPath)
	if !ok {
		return Stat{}, zkerrors.New(zkerrors.NoNode, "createNode", parentPath)
	}

	parent.mu.Lock()
	if _, exists := parent.children[childName]; exists {
		parent.mu.Unlock()
		return Stat{}, zkerrors.New(zkerrors.NodeExists, "createNode", path)
	}

	newCversion := parentCVersion
	if newCversion == -1 {
		newCversion = parent.stat.Cversion + 1
	}
	parent.stat.Cversion = newCversion
	parent.stat.Pzxid = zxid
	parent.children[childName] = struct{}{}
	parent.mu.Unlock()

	handle := t.aclCache.Convert(list)
	stat := Stat{
		Czxid:          zxid,
		Mzxid:          zxid,
		Ctime:          when,
		Mtime:          when,
		Pzxid:          zxid,
		EphemeralOwner: ephemeralOwner,
	}
	child := newNodeRecord(cloneBytes(data), handle, stat)

	t.nodesMu.Lock()
	t.nodes[path] = child
	t.nodesMu.Unlock()

	t.indexEphemeralType(path, ephemeralOwner)
	t.maybeTrackQuotaLeaf(parentPath, childName, path)
	t.applyQuotaDelta(path, +1, int64(len(data)))

	zlog.WithFields(logrus.Fields{"op": "createNode", "path": path, "zxid": zxid}).Debug("znode created")

	t.dataWatches.TriggerWatch(path, watch.NodeCreated)
	t.childWatches.TriggerWatch(parentWatchPath(parentPath), watch.NodeChildrenChanged)

	return stat, nil
}

// parentWatchPath maps the root alias "" to "/" for watch dispatch,
// per spec.md §4.4.1 step 9 ("using \"/\" if parent is empty").
func parentWatchPath(parentPath string) string {
	if parentPath == "" {
		return RootPath
	}
	return parentPath
}

func (t *DataTree) indexEphemeralType(path string, owner int64) {
	switch ephemeral.TypeOf(owner) {
	case ephemeral.Container:
		t.containersMu.Lock()
		t.containers[path] = struct{}{}
		t.containersMu.Unlock()
	case ephemeral.TTL:
		t.ttlsMu.Lock()
		t.ttls[path] = struct{}{}
		t.ttlsMu.Unlock()
	case ephemeral.Normal:
		t.ephemeralsMu.Lock()
		set, ok := t.ephemerals[owner]
		if !ok {
			set = make(map[string]struct{})
			t.ephemerals[owner] = set
		}
		set[path] = struct{}{}
		t.ephemeralsMu.Unlock()
	}
}

func (t *DataTree) deindexEphemeralType(path string, owner int64) {
	switch ephemeral.TypeOf(owner) {
	case ephemeral.Container:
		t.containersMu.Lock()
		delete(t.containers, path)
		t.containersMu.Unlock()
	case ephemeral.TTL:
		t.ttlsMu.Lock()
		delete(t.ttls, path)
		t.ttlsMu.Unlock()
	case ephemeral.Normal:
		t.ephemeralsMu.Lock()
		if set, ok := t.ephemerals[owner]; ok {
			delete(set, path)
			if len(set) == 0 {
				delete(t.ephemerals, owner)
			}
		}
		t.ephemeralsMu.Unlock()
	}
}

// maybeTrackQuotaLeaf implements spec.md §4.4.1 step 7: a newly created
// zookeeper_limits leaf registers its quota-subject path in the trie; a
// newly created zookeeper_stats leaf gets its counts recomputed from the
// live subtree.
func (t *DataTree) maybeTrackQuotaLeaf(parentOfLeaf, leafName, leafPath string) {
	if !isUnderQuotaPath(parentOfLeaf) {
		return
	}
	subject := quotaSubjectOf(parentOfLeaf)
	switch leafName {
	case limitsLeaf:
		t.pTrie.AddPath(subject)
	case statsLeaf:
		t.updateQuotaForPath(subject)
	}
}

func isUnderQuotaPath(p string) bool {
	return p == QuotaPath || hasPathPrefix(p, QuotaPath+"/")
}

func hasPathPrefix(p, prefix string) bool {
	return len(p) >= len(prefix) && p[:len(prefix)] == prefix
}

// applyQuotaDelta implements spec.md §4.4.1 step 8 / §4.4.2 step 5: if
// path falls under a quota-subject prefix, adjust that prefix's counters.
func (t *DataTree) applyQuotaDelta(path string, countDelta, bytesDelta int64) {
	if !t.opts.quotasEnabled {
		return
	}
	prefix := t.pTrie.FindMaxPrefix(path)
	if prefix == "" || prefix == RootPath {
		return
	}
	if countDelta != 0 {
		t.updateCount(prefix, countDelta)
	}
	if bytesDelta != 0 {
		t.updateBytes(prefix, bytesDelta)
	}
}

// DeleteNode implements spec.md §4.4.2.
func (t *DataTree) DeleteNode(path string, zxid int64) error {
	path = normalize(path)
	if path == RootPath {
		return zkerrors.New(zkerrors.BadArguments, "deleteNode", path)
	}

	node, ok := t.getNode(path)
	if !ok {
		return zkerrors.New(zkerrors.NoNode, "deleteNode", path)
	}

	node.mu.RLock()
	owner := node.stat.EphemeralOwner
	dataLen := int64(len(node.data))
	h := node.aclHandle
	node.mu.RUnlock()

	parentPath, childName := splitParent(path)
	parent, ok := t.getNode(parentPath)
	if !ok {
		return zkerrors.New(zkerrors.NoNode, "deleteNode", parentPath)
	}

	t.nodesMu.Lock()
	delete(t.nodes, path)
	t.nodesMu.Unlock()

	t.aclCache.RemoveUsage(h)

	parent.mu.Lock()
	delete(parent.children, childName)
	parent.stat.Pzxid = zxid // cversion deliberately NOT bumped, per spec.md §4.4.2/§9.
	parent.mu.Unlock()

	t.deindexEphemeralType(path, owner)

	if isUnderQuotaPath(parentPath) && childName == limitsLeaf {
		t.pTrie.DeletePath(quotaSubjectOf(parentPath))
	}

	t.applyQuotaDelta(path, -1, -dataLen)

	zlog.WithFields(logrus.Fields{"op": "deleteNode", "path": path, "zxid": zxid}).Debug("znode deleted")

	dataFired := t.dataWatches.TriggerWatch(path, watch.NodeDeleted)
	t.childWatches.TriggerWatchExcept(path, watch.NodeDeleted, dataFired)
	t.childWatches.TriggerWatch(parentWatchPath(parentPath), watch.NodeChildrenChanged)

	return nil
}

// SetData implements spec.md §4.4.3.
func (t *DataTree) SetData(path string, data []byte, version int32, zxid, when int64) (Stat, error) {
	path = normalize(path)
	node, ok := t.getNode(path)
	if !ok {
		return Stat{}, zkerrors.New(zkerrors.NoNode, "setData", path)
	}

	node.mu.Lock()
	lastLen := int64(len(node.data))
	node.data = cloneBytes(data)
	node.stat.Mtime = when
	node.stat.Mzxid = zxid
	node.stat.Version = version
	stat := node.stat
	node.mu.Unlock()

	t.applyQuotaDelta(path, 0, int64(len(data))-lastLen)

	zlog.WithFields(logrus.Fields{"op": "setData", "path": path, "zxid": zxid}).Debug("znode data replaced")

	t.dataWatches.TriggerWatch(path, watch.NodeDataChanged)

	return stat, nil
}

// SetACL implements spec.md §4.4.4. Deliberately fires no watch — the
// asymmetry with SetData is intentional per spec.md §9.
func (t *DataTree) SetACL(path string, list acl.List, version int32) (Stat, error) {
	path = normalize(path)
	node, ok := t.getNode(path)
	if !ok {
		return Stat{}, zkerrors.New(zkerrors.NoNode, "setACL", path)
	}

	node.mu.Lock()
	old := node.aclHandle
	node.aclHandle = t.aclCache.Convert(list)
	node.stat.Aversion = version
	stat := node.stat
	node.mu.Unlock()

	t.aclCache.RemoveUsage(old)

	return stat, nil
}

// KillSession implements spec.md §4.4.6: every path owned by session is
// deleted (full DeleteNode path, including watch firing); NoNode errors
// are swallowed since a concurrent delete of the same path is acceptable.
func (t *DataTree) KillSession(session, zxid int64) {
	t.ephemeralsMu.Lock()
	set, ok := t.ephemerals[session]
	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	delete(t.ephemerals, session)
	t.ephemeralsMu.Unlock()

	if !ok {
		return
	}

	for _, p := range paths {
		if err := t.DeleteNode(p, zxid); err != nil && !zkerrors.Is(err, zkerrors.NoNode) {
			zlog.WithFields(logrus.Fields{"op": "killSession", "path": p, "session": session}).
				Warnf("unexpected error deleting ephemeral: %v", err)
		}
	}
}

// SetCversionPzxid implements spec.md §4.5's restore-time repair
// (setCversionPzxid): advances parent's cversion (and pzxid) if
// newCversion > parent.stat.Cversion. newCversion == -1 means
// parent.stat.Cversion + 1.
func (t *DataTree) SetCversionPzxid(parentPath string, newCversion int32, zxid int64) error {
	parentPath = normalize(parentPath)
	parent, ok := t.getNode(parentPath)
	if !ok {
		return zkerrors.New(zkerrors.NoNode, "setCversionPzxid", parentPath)
	}

	parent.mu.Lock()
	defer parent.mu.Unlock()
	if newCversion == -1 {
		newCversion = parent.stat.Cversion + 1
	}
	if newCversion > parent.stat.Cversion {
		parent.stat.Cversion = newCversion
		parent.stat.Pzxid = zxid
	}
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp
}
