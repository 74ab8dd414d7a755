package ztree

import "github.com/latticeio/zkstore/zkerrors"

// ChangeFunc computes a new value from the current one, for use with
// CompareAndSet. It is called possibly more than once if a concurrent
// writer raced the change.
type ChangeFunc func(oldValue []byte, oldStat Stat, existed bool) (newValue []byte, err error)

// CompareAndSet is the lock-free retry helper descended from the
// teacher's RetryChange: it reads path, runs fn to compute the candidate
// value, then writes it back, retrying if a concurrent writer raced the
// change. It is not one of spec.md's required primitives — ordinary
// mutation goes through a TransactionProcessor, which trusts the version
// its caller already validated (spec.md §4.4.3) — but is kept as a direct
// caller convenience for tests and the CLI harness, the same role
// RetryChange played for gozk callers that didn't want to hand-roll the
// retry loop themselves. Because DataTree itself never rejects a version
// mismatch, the race check below is this helper's own responsibility, not
// the tree's.
func (t *DataTree) CompareAndSet(path string, fn ChangeFunc, nextZxid func() int64, when int64) error {
	for {
		data, stat, err := t.GetData(path, nil)
		existed := err == nil
		if err != nil && !zkerrors.Is(err, zkerrors.NoNode) {
			return err
		}

		newValue, err := fn(data, stat, existed)
		if err != nil {
			return err
		}

		if !existed {
			_, err := t.CreateNode(path, newValue, nil, 0, -1, nextZxid(), when)
			if err == nil {
				return nil
			}
			if zkerrors.Is(err, zkerrors.NodeExists) {
				continue
			}
			return err
		}

		// Re-check the version right before writing to narrow the race
		// window; a concurrent writer between this check and SetData would
		// still be silently overwritten, since DataTree trusts its inputs.
		_, curStat, err := t.GetData(path, nil)
		if err != nil {
			if zkerrors.Is(err, zkerrors.NoNode) {
				continue
			}
			return err
		}
		if curStat.Version != stat.Version {
			continue
		}

		if _, err := t.SetData(path, newValue, stat.Version+1, nextZxid(), when); err != nil {
			return err
		}
		return nil
	}
}
