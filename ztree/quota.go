package ztree

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/latticeio/zkstore/internal/zlog"
)

// formatStats renders the fixed-format "count=N,bytes=M" blob spec.md §3
// and §6 use for both zookeeper_limits and zookeeper_stats.
func formatStats(count, bytes int64) []byte {
	return []byte(fmt.Sprintf("count=%d,bytes=%d", count, bytes))
}

// parseStats parses a "count=N,bytes=M" blob. Missing fields default to
// -1 (no limit / unknown), matching ZooKeeper's convention that a
// negative limit field means unlimited.
func parseStats(data []byte) (count, bytes int64, err error) {
	count, bytes = -1, -1
	for _, field := range strings.Split(string(data), ",") {
		kv := strings.SplitN(field, "=", 2)
		if len(kv) != 2 {
			continue
		}
		v, perr := strconv.ParseInt(kv[1], 10, 64)
		if perr != nil {
			return 0, 0, perr
		}
		switch kv[0] {
		case "count":
			count = v
		case "bytes":
			bytes = v
		}
	}
	return count, bytes, nil
}

func (t *DataTree) statsPath(subject string) string  { return QuotaPath + subject + "/" + statsLeaf }
func (t *DataTree) limitsPath(subject string) string { return QuotaPath + subject + "/" + limitsLeaf }

// updateCount implements spec.md §4.4.5: adjust the stats node's count
// field by delta, logging (not rejecting) a quota-exceeded warning.
func (t *DataTree) updateCount(subject string, delta int64) {
	if !t.opts.quotasEnabled {
		return
	}
	t.adjustStat(subject, delta, 0)
}

// updateBytes implements spec.md §4.4.5: adjust the stats node's bytes
// field by delta, logging (not rejecting) a quota-exceeded warning.
func (t *DataTree) updateBytes(subject string, delta int64) {
	if !t.opts.quotasEnabled {
		return
	}
	t.adjustStat(subject, 0, delta)
}

func (t *DataTree) adjustStat(subject string, countDelta, bytesDelta int64) {
	statsNode, ok := t.getNode(t.statsPath(subject))
	if !ok {
		// Non-fatal: a quota-subject path can exist (registered in pTrie)
		// without a stats sibling yet having been created.
		return
	}

	statsNode.mu.Lock()
	count, bytes, err := parseStats(statsNode.data)
	if err != nil {
		statsNode.mu.Unlock()
		zlog.WithFields(logrus.Fields{"op": "updateQuota", "path": subject}).
			Warnf("malformed zookeeper_stats blob: %v", err)
		return
	}
	count += countDelta
	bytes += bytesDelta
	statsNode.data = formatStats(count, bytes)
	statsNode.mu.Unlock()

	t.warnIfOverLimit(subject, count, bytes)
}

// warnIfOverLimit implements spec.md §4.4.5's "the transaction is not
// rejected" rule: a positive limit field exceeded by the updated stat
// only logs.
func (t *DataTree) warnIfOverLimit(subject string, count, bytes int64) {
	limitsNode, ok := t.getNode(t.limitsPath(subject))
	if !ok {
		return
	}
	limitsNode.mu.RLock()
	limitCount, limitBytes, err := parseStats(limitsNode.data)
	limitsNode.mu.RUnlock()
	if err != nil {
		return
	}
	fields := logrus.Fields{"op": "quota", "path": subject, "count": count, "bytes": bytes}
	if limitCount > 0 && count > limitCount {
		zlog.WithFields(fields).Warnf("quota count exceeded: %d > %d", count, limitCount)
	}
	if limitBytes > 0 && bytes > limitBytes {
		zlog.WithFields(fields).Warnf("quota bytes exceeded: %d > %d", bytes, limitBytes)
	}
}

// updateQuotaForPath implements spec.md §4.4.5: recompute absolute counts
// for subject by recursive traversal, writing the result into its
// zookeeper_stats node. Called when a stats node is first created, or on
// restore (via SetupQuota).
func (t *DataTree) updateQuotaForPath(subject string) {
	statsNode, ok := t.getNode(t.statsPath(subject))
	if !ok {
		return
	}

	var count, bytes int64
	t.walkSubtree(subject, func(path string, n *NodeRecord) {
		n.mu.RLock()
		bytes += int64(len(n.data))
		n.mu.RUnlock()
		count++
	})

	statsNode.mu.Lock()
	statsNode.data = formatStats(count, bytes)
	statsNode.mu.Unlock()
}

// walkSubtree invokes fn for every node at or under subject (subject's own
// node included), depth-first, using the live children index.
func (t *DataTree) walkSubtree(subject string, fn func(path string, n *NodeRecord)) {
	root, ok := t.getNode(subject)
	if !ok {
		return
	}
	fn(subject, root)

	root.mu.RLock()
	children := root.childNames()
	root.mu.RUnlock()

	for _, c := range children {
		t.walkSubtree(joinChild(subject, c), fn)
	}
}
