package ztree

import "github.com/latticeio/zkstore/acl"

// options configure a new DataTree, replacing the teacher's
// CreateServer(port, runDir, zkDir) construction-time parameters with the
// idiomatic functional-options form.
type options struct {
	quotasEnabled    bool
	watchReportCache int
	configACL        acl.List
}

// Option configures New.
type Option func(*options)

func defaultOptions() options {
	return options{
		quotasEnabled:    true,
		watchReportCache: 128,
		configACL:        acl.ReadOnlyWorldACL(),
	}
}

// WithQuotasEnabled toggles the /zookeeper/quota accounting path
// (enabled by default). Disabling it skips the updateCount/updateBytes
// bookkeeping on create, delete and setData. A zookeeper_stats node is
// still recomputed from its subtree when it is created and on restore.
func WithQuotasEnabled(enabled bool) Option {
	return func(o *options) { o.quotasEnabled = enabled }
}

// WithWatchReportCacheSize bounds the watch managers' introspection
// memoization cache (spec.md §4.3 "Introspection"). 0 disables the cache.
func WithWatchReportCacheSize(n int) Option {
	return func(o *options) { o.watchReportCache = n }
}

// WithConfigACL overrides the ACL /zookeeper/config is initialized with
// (spec.md §3 defaults this to a read-only ACL).
func WithConfigACL(list acl.List) Option {
	return func(o *options) { o.configACL = list }
}
