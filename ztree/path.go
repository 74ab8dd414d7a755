package ztree

import "strings"

// Reserved paths, bit-exact per spec.md §6.
const (
	RootPath      = "/"
	ZookeeperPath = "/zookeeper"
	QuotaPath     = "/zookeeper/quota"
	ConfigPath    = "/zookeeper/config"

	limitsLeaf = "zookeeper_limits"
	statsLeaf  = "zookeeper_stats"
)

// normalize collapses the root aliases "" and "/" to the single canonical
// key "/" used internally in the nodes index (spec.md §3: "The root is
// both \"\" and \"/\" ... the index contains both aliases resolving to
// the same node").
func normalize(path string) string {
	if path == "" {
		return RootPath
	}
	return path
}

// splitParent splits path into its parent path and its final name
// segment. For a root-level child ("/a"), parent is "/".
func splitParent(path string) (parent, child string) {
	idx := strings.LastIndexByte(path, '/')
	parent = path[:idx]
	child = path[idx+1:]
	if parent == "" {
		parent = RootPath
	}
	return parent, child
}

// joinChild builds the full path of a child segment under parent.
func joinChild(parent, child string) string {
	if parent == RootPath {
		return RootPath + child
	}
	return parent + "/" + child
}

// quotaSubjectOf returns the quota-subject path P given the parent of a
// zookeeper_limits or zookeeper_stats leaf, i.e. /zookeeper/quota/P with
// the "/zookeeper/quota" prefix stripped ("/" when nothing remains).
func quotaSubjectOf(parentOfLeaf string) string {
	subject := strings.TrimPrefix(parentOfLeaf, QuotaPath)
	if subject == "" {
		return RootPath
	}
	return subject
}
