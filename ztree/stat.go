package ztree

// Stat is the persistent per-znode metadata record of spec.md §3, handed
// out to callers as a defensive value copy — callers can never mutate a
// live node's metadata through a returned Stat.
//
// Field names follow the teacher's zookeeper.Stat accessors (Czxid,
// Mzxid, CTime, MTime, Version, CVersion, AVersion, EphemeralOwner,
// Pzxid) almost verbatim; spec.md §3/§GLOSSARY uses the same vocabulary.
type Stat struct {
	Czxid          int64
	Mzxid          int64
	Ctime          int64
	Mtime          int64
	Version        int32
	Cversion       int32
	Aversion       int32
	EphemeralOwner int64
	Pzxid          int64
}
