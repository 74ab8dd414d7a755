package ztree

import (
	"sync"

	"github.com/latticeio/zkstore/acl"
)

// NodeRecord is the value type of spec.md C1: opaque data bytes, an ACL
// handle, the persistent Stat, and the set of child name segments (not
// full paths). Per spec.md §5, a NodeRecord is its own lock granule: a
// mutation that spans parent and child takes the parent's lock across the
// entire visible state change, and the child does not need independent
// synchronization during that window because nothing else can observe it
// mid-change.
type NodeRecord struct {
	mu sync.RWMutex

	data      []byte
	aclHandle acl.Handle
	stat      Stat
	children  map[string]struct{}
}

func newNodeRecord(data []byte, h acl.Handle, stat Stat) *NodeRecord {
	return &NodeRecord{
		data:      data,
		aclHandle: h,
		stat:      stat,
		children:  make(map[string]struct{}),
	}
}

// dataCopy returns a defensive copy of the node's data bytes. Caller must
// hold at least a read lock.
func (n *NodeRecord) dataCopy() []byte {
	if n.data == nil {
		return nil
	}
	cp := make([]byte, len(n.data))
	copy(cp, n.data)
	return cp
}

// childNames returns a defensive copy of the child name set. Caller must
// hold at least a read lock.
func (n *NodeRecord) childNames() []string {
	out := make([]string, 0, len(n.children))
	for c := range n.children {
		out = append(out, c)
	}
	return out
}
