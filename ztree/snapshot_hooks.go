package ztree

import (
	"github.com/latticeio/zkstore/acl"
	"github.com/latticeio/zkstore/quota"
	"github.com/latticeio/zkstore/zkerrors"
)

// NodeSnapshot is the per-znode record the snapshot codec (spec.md §4.6,
// C7) streams out and reloads: data bytes, ACL handle, and persistent
// stat. Children are not part of the record — they are re-derived from
// the depth-first stream order on restore.
type NodeSnapshot struct {
	Data      []byte
	ACLHandle acl.Handle
	Stat      Stat
}

// rootSerializedPath is the literal path used for the root's own record
// in the snapshot stream. It is distinct from RootPath ("/") so that "/"
// can serve, unambiguously, as the codec's end-of-stream sentinel (spec.md
// §4.6: "loop reading path; stop when path == \"/\"").
const rootSerializedPath = ""

// WalkNodes invokes fn for every znode in the tree, depth-first starting
// at the root (emitted under rootSerializedPath, i.e. ""), for the
// snapshot writer (spec.md §4.6 "Write"). It stops and returns the first
// error fn returns.
func (t *DataTree) WalkNodes(fn func(path string, snap NodeSnapshot) error) error {
	root, ok := t.getNode(RootPath)
	if !ok {
		return zkerrors.New(zkerrors.RuntimeInconsistency, "walkNodes", RootPath)
	}
	return t.walkNode(rootSerializedPath, root, fn)
}

func (t *DataTree) walkNode(path string, n *NodeRecord, fn func(string, NodeSnapshot) error) error {
	n.mu.RLock()
	snap := NodeSnapshot{Data: n.dataCopy(), ACLHandle: n.aclHandle, Stat: n.stat}
	children := n.childNames()
	n.mu.RUnlock()

	if err := fn(path, snap); err != nil {
		return err
	}

	for _, c := range children {
		childPath := joinChild(normalizedForWalk(path), c)
		child, ok := t.getNode(childPath)
		if !ok {
			return zkerrors.New(zkerrors.RuntimeInconsistency, "walkNodes", childPath)
		}
		if err := t.walkNode(childPath, child, fn); err != nil {
			return err
		}
	}
	return nil
}

// normalizedForWalk maps the root's serialized "" path back to "/" for
// joinChild purposes.
func normalizedForWalk(path string) string {
	if path == rootSerializedPath {
		return RootPath
	}
	return path
}

// BeginRestore clears the tree's nodes index and quota trie in
// preparation for a sequence of RestoreNode calls, per spec.md §4.6
// ("Read"): "Clear nodes and pTrie." The ACL cache is reset separately by
// the snapshot codec via t.ACLCache().Deserialize(...).
func (t *DataTree) BeginRestore() {
	t.nodesMu.Lock()
	t.nodes = make(map[string]*NodeRecord)
	t.nodesMu.Unlock()

	t.ephemeralsMu.Lock()
	t.ephemerals = make(map[int64]map[string]struct{})
	t.ephemeralsMu.Unlock()

	t.containersMu.Lock()
	t.containers = make(map[string]struct{})
	t.containersMu.Unlock()

	t.ttlsMu.Lock()
	t.ttls = make(map[string]struct{})
	t.ttlsMu.Unlock()

	t.pTrie = quota.New()
}

// RestoreNode inserts one record read from the snapshot stream. path ==
// rootSerializedPath ("") denotes the root itself (no parent attach
// step); every other path's parent must already have been restored,
// consistent with the stream's depth-first emission order.
func (t *DataTree) RestoreNode(path string, snap NodeSnapshot) error {
	node := newNodeRecord(snap.Data, snap.ACLHandle, snap.Stat)

	t.nodesMu.Lock()
	t.nodes[path] = node
	t.nodesMu.Unlock()

	t.aclCache.AddUsage(snap.ACLHandle)

	if path != rootSerializedPath {
		parentPath, childName := splitParent(path)
		lookupParent := parentPath
		if parentPath == RootPath {
			lookupParent = rootSerializedPath
		}
		parent, ok := t.getNode(lookupParent)
		if !ok {
			return zkerrors.New(zkerrors.RuntimeInconsistency, "restoreNode", parentPath)
		}
		parent.mu.Lock()
		parent.children[childName] = struct{}{}
		parent.mu.Unlock()
	}

	t.indexEphemeralType(normalizedForWalk(path), snap.Stat.EphemeralOwner)
	return nil
}

// FinishRestore inserts the "/" alias for the root record (stored under
// "" during the restore loop), rebuilds the quota trie and stats nodes
// via SetupQuota, and purges any ACL cache entries that ended up unused
// (spec.md §4.6).
func (t *DataTree) FinishRestore() error {
	t.nodesMu.Lock()
	root, ok := t.nodes[rootSerializedPath]
	if ok {
		t.nodes[RootPath] = root
	}
	t.nodesMu.Unlock()
	if !ok {
		return zkerrors.New(zkerrors.RuntimeInconsistency, "finishRestore", RootPath)
	}

	t.SetupQuota()
	t.aclCache.PurgeUnused()
	return nil
}

// SetupQuota implements spec.md §4.6's setupQuota(): traverse
// /zookeeper/quota, rebuild pTrie entries for every zookeeper_limits leaf,
// and recompute the corresponding stats nodes.
func (t *DataTree) SetupQuota() {
	quotaRoot, ok := t.getNode(QuotaPath)
	if !ok {
		return
	}
	quotaRoot.mu.RLock()
	subjects := quotaRoot.childNames()
	quotaRoot.mu.RUnlock()

	for _, subjectSegment := range subjects {
		t.setupQuotaSubject(joinChild(QuotaPath, subjectSegment))
	}
}

// setupQuotaSubject recurses under a /zookeeper/quota subtree; any node
// (at any depth) bearing a zookeeper_limits child marks its own path
// (relative to /zookeeper/quota) as quota-subject.
func (t *DataTree) setupQuotaSubject(path string) {
	node, ok := t.getNode(path)
	if !ok {
		return
	}
	node.mu.RLock()
	children := node.childNames()
	node.mu.RUnlock()

	hasLimits := false
	for _, c := range children {
		if c == limitsLeaf {
			hasLimits = true
		}
	}
	if hasLimits {
		subject := quotaSubjectOf(path)
		t.pTrie.AddPath(subject)
		t.updateQuotaForPath(subject)
	}
	for _, c := range children {
		if c == limitsLeaf || c == statsLeaf {
			continue
		}
		t.setupQuotaSubject(joinChild(path, c))
	}
}
