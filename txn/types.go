// Package txn implements TransactionProcessor (spec.md component C6): it
// interprets a (TxnHeader, TxnBody) pair, dispatches into DataTree,
// handles multi-transaction semantics, and advances lastProcessedZxid.
package txn

import (
	"github.com/latticeio/zkstore/acl"
	"github.com/latticeio/zkstore/zkerrors"
	"github.com/latticeio/zkstore/ztree"
)

// OpCode is the closed set of transaction body variants, implemented as a
// tagged union per spec.md §9 ("Dynamic dispatch... implement as a tagged
// union/sum type, not via inheritance").
type OpCode int32

const (
	OpCreate OpCode = iota + 1
	OpCreate2
	OpCreateTTL
	OpCreateContainer
	OpDelete
	OpDeleteContainer
	OpSetData
	OpReconfig
	OpSetACL
	OpCloseSession
	OpError
	OpCheck
	OpMulti
)

// TxnHeader carries the fields fixed by the record schema (spec.md §6).
type TxnHeader struct {
	ClientID int64
	Cxid     int32
	Zxid     int64
	Time     int64
	Type     OpCode
}

// CreateTxn is the body of OpCreate/OpCreate2/OpCreateContainer/
// OpCreateTTL, distinguished by the header's OpCode.
type CreateTxn struct {
	Path           string
	Data           []byte
	ACL            acl.List
	Ephemeral      bool
	ParentCVersion int32
	// TTLMillis is only meaningful when header.Type == OpCreateTTL.
	TTLMillis int64
}

// DeleteTxn is the body of OpDelete/OpDeleteContainer.
type DeleteTxn struct {
	Path string
}

// SetDataTxn is the body of OpSetData. OpReconfig reuses this body with
// Path forced to ztree.ConfigPath (spec.md §4.5: "reconfig uses the
// dynamic-config node path").
type SetDataTxn struct {
	Path    string
	Data    []byte
	Version int32
}

// SetACLTxn is the body of OpSetACL.
type SetACLTxn struct {
	Path    string
	ACL     acl.List
	Version int32
}

// ErrorTxn is the body of OpError: a pre-computed failure the processor
// simply surfaces, or a sub-record marker inside a multi (spec.md §4.5).
type ErrorTxn struct {
	Err zkerrors.Code
}

// CheckTxn is the body of OpCheck: a no-op on the tree that just returns
// its path (spec.md §4.5).
type CheckTxn struct {
	Path    string
	Version int32
}

// MultiOp is one sub-record of an OpMulti transaction. It retains its
// original type/body so the processor can recurse into it exactly as if
// it were a top-level transaction (spec.md §4.5's "run through the
// processor recursively").
type MultiOp struct {
	Type OpCode
	Body interface{}
}

// MultiTxn is the body of OpMulti: an ordered list of sub-records applied
// atomically (all-or-error).
type MultiTxn struct {
	Ops []MultiOp
}

// Result is the per-transaction ProcessTxnResult of spec.md §6. Per
// spec.md, equals/hashCode are defined solely on (ClientID, Cxid); Key
// gives callers that comparable identity directly.
type Result struct {
	ClientID     int64
	Cxid         int32
	Zxid         int64
	Err          zkerrors.Code
	Type         OpCode
	Path         string
	Stat         *ztree.Stat
	MultiResults []Result
}

// Key is the completion-tracking identity of a Result: spec.md says
// equals/hashCode are defined solely on (clientId, cxid).
type Key struct {
	ClientID int64
	Cxid     int32
}

// Key returns r's completion-tracking key.
func (r Result) Key() Key {
	return Key{ClientID: r.ClientID, Cxid: r.Cxid}
}
