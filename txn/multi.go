package txn

import (
	"context"

	"github.com/latticeio/zkstore/zkerrors"
)

// processMulti implements spec.md §4.5's multi semantics: a pre-scan looks
// for an error sub-record. If one is found, the whole multi is a failure —
// every non-error sub-record is rewritten to an error sub-record before
// being (not) applied, with OK for everything preceding the original error
// marker in iteration order and RUNTIME_INCONSISTENCY for everything after
// it. If no error sub-record is found, every sub-record runs through the
// processor recursively, unmodified, and the top-level rc.err is the first
// non-zero sub-result error.
func (p *Processor) processMulti(ctx context.Context, header TxnHeader, body MultiTxn, rc *Result) {
	if errIdx, found := firstErrorIndex(body.Ops); found {
		rc.MultiResults = p.rewriteAroundError(header, body.Ops, errIdx)
		rc.Err = body.Ops[errIdx].Body.(ErrorTxn).Err
		return
	}

	results := make([]Result, len(body.Ops))
	firstErr := zkerrors.OK
	for i, op := range body.Ops {
		sub := p.ProcessTxn(ctx, subHeader(header, op.Type), op.Body)
		results[i] = sub
		if firstErr == zkerrors.OK && sub.Err != zkerrors.OK {
			firstErr = sub.Err
		}
	}
	rc.MultiResults = results
	rc.Err = firstErr
}

func firstErrorIndex(ops []MultiOp) (int, bool) {
	for i, op := range ops {
		if op.Type == OpError {
			return i, true
		}
	}
	return -1, false
}

// rewriteAroundError builds the rewritten result vector for a multi whose
// pre-scan found an error sub-record at errIdx: sub-records before it
// become OK, the marker itself keeps its original code, and sub-records
// after it become RUNTIME_INCONSISTENCY. None of the sub-records are
// actually applied to the tree — the tree is left unchanged (spec.md
// scenario S3).
func (p *Processor) rewriteAroundError(header TxnHeader, ops []MultiOp, errIdx int) []Result {
	results := make([]Result, len(ops))
	for i, op := range ops {
		results[i] = Result{
			ClientID: header.ClientID,
			Cxid:     header.Cxid,
			Zxid:     header.Zxid,
			Type:     op.Type,
			Path:     pathOf(op.Body),
		}
		switch {
		case i < errIdx:
			results[i].Err = zkerrors.OK
		case i == errIdx:
			results[i].Err = op.Body.(ErrorTxn).Err
		default:
			results[i].Err = zkerrors.RuntimeInconsistency
		}
	}
	return results
}

func subHeader(header TxnHeader, opType OpCode) TxnHeader {
	h := header
	h.Type = opType
	return h
}

// pathOf extracts the path field from a sub-record body for reporting in a
// rewritten result, without running the body through the processor.
func pathOf(body interface{}) string {
	switch b := body.(type) {
	case CreateTxn:
		return b.Path
	case DeleteTxn:
		return b.Path
	case SetDataTxn:
		return b.Path
	case SetACLTxn:
		return b.Path
	case CheckTxn:
		return b.Path
	default:
		return ""
	}
}
