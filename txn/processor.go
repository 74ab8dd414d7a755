package txn

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/latticeio/zkstore/ephemeral"
	"github.com/latticeio/zkstore/internal/zlog"
	"github.com/latticeio/zkstore/sessionhook"
	"github.com/latticeio/zkstore/zkerrors"
	"github.com/latticeio/zkstore/ztree"
)

// LocalSessionChecker reports whether a client id belongs to a local
// (node-only, non-replicated) session. A Processor with no checker
// configured treats every session as already-global, so the upgrade hook
// never fires.
type LocalSessionChecker interface {
	IsLocal(clientID int64) bool
}

// Processor implements TransactionProcessor (spec.md §4.5, C6).
type Processor struct {
	Tree *ztree.DataTree

	// Upgrader and LocalSessions together realize the external control
	// hook of spec.md §6. A nil Upgrader means local-session upgrade is
	// disabled: any ephemeral create attributed to a local session fails
	// with EphemeralOnLocalSession.
	Upgrader      sessionhook.Upgrader
	LocalSessions LocalSessionChecker

	// SessionTimeoutMillis is passed through to Upgrader.CheckUpgradeSession
	// when an upgrade is attempted.
	SessionTimeoutMillis int64
}

// ProcessTxn dispatches header/body per spec.md §4.5's OpCode table and
// returns the resulting Result, never an error: every failure mode is
// represented in Result.Err, matching spec.md §7's propagation rule.
func (p *Processor) ProcessTxn(ctx context.Context, header TxnHeader, body interface{}) Result {
	rc := Result{ClientID: header.ClientID, Cxid: header.Cxid, Zxid: header.Zxid, Type: header.Type}

	switch header.Type {
	case OpCreate, OpCreate2, OpCreateTTL, OpCreateContainer:
		p.processCreate(ctx, header, body.(CreateTxn), &rc)
	case OpDelete, OpDeleteContainer:
		p.processDelete(header, body.(DeleteTxn), &rc)
	case OpSetData:
		p.processSetData(header, body.(SetDataTxn), &rc)
	case OpReconfig:
		b := body.(SetDataTxn)
		b.Path = ztree.ConfigPath
		p.processSetData(header, b, &rc)
	case OpSetACL:
		p.processSetACL(header, body.(SetACLTxn), &rc)
	case OpCloseSession:
		p.Tree.KillSession(header.ClientID, header.Zxid)
		rc.Err = zkerrors.OK
	case OpError:
		rc.Err = body.(ErrorTxn).Err
	case OpCheck:
		b := body.(CheckTxn)
		rc.Path = b.Path
		rc.Err = zkerrors.OK
	case OpMulti:
		p.processMulti(ctx, header, body.(MultiTxn), &rc)
	default:
		rc.Err = zkerrors.Unimplemented
	}

	// lastProcessedZxid is written only after the tree mutation above is
	// fully applied, per spec.md invariant 4 and §4.5's post-processing
	// rule: "a concurrent snapshot reader must not observe a
	// lastProcessedZxid ahead of the tree state."
	p.advanceZxid(header.Zxid)

	return rc
}

func (p *Processor) advanceZxid(zxid int64) {
	// DataTree owns the monotonic counter; this just routes through the
	// public operation that runs after every dispatch above, whatever its
	// Result.Err, including no-ops (check, error); it never moves the
	// counter backward, which is what P6 relies on.
	p.Tree.ObserveProcessedZxid(zxid)
}

func (p *Processor) processCreate(ctx context.Context, header TxnHeader, b CreateTxn, rc *Result) {
	owner, err := p.resolveEphemeralOwner(ctx, header, b)
	if err != nil {
		rc.Err = zkerrors.CodeOf(err)
		rc.Path = b.Path
		return
	}

	stat, err := p.Tree.CreateNode(b.Path, b.Data, b.ACL, owner, b.ParentCVersion, header.Zxid, header.Time)
	rc.Path = b.Path
	if err != nil {
		rc.Err = zkerrors.CodeOf(err)
		if zkerrors.Is(err, zkerrors.NodeExists) {
			p.repairRestoreRace(b.Path, b.ParentCVersion, header.Zxid)
		}
		return
	}
	rc.Err = zkerrors.OK
	rc.Stat = &stat
}

// resolveEphemeralOwner computes the ephemeralOwner tag a create
// transaction's header.Type implies, per spec.md §4.5's dispatch table,
// running the local-session upgrade hook (spec.md §6) first when needed.
func (p *Processor) resolveEphemeralOwner(ctx context.Context, header TxnHeader, b CreateTxn) (int64, error) {
	switch header.Type {
	case OpCreateTTL:
		return ephemeral.PackTTL(b.TTLMillis), nil
	case OpCreateContainer:
		return ephemeral.ContainerEphemeralOwner, nil
	default:
		if !b.Ephemeral {
			return 0, nil
		}
		return p.ownerForEphemeralCreate(ctx, header, b.Path)
	}
}

func (p *Processor) ownerForEphemeralCreate(ctx context.Context, header TxnHeader, path string) (int64, error) {
	if p.LocalSessions == nil || !p.LocalSessions.IsLocal(header.ClientID) {
		return header.ClientID, nil
	}
	if p.Upgrader == nil {
		return 0, zkerrors.New(zkerrors.EphemeralOnLocalSession, "createNode", path)
	}
	global, err := p.Upgrader.CheckUpgradeSession(ctx, sessionhook.UpgradeRequest{
		LocalSessionID: header.ClientID,
		Path:           path,
		TimeoutMillis:  p.SessionTimeoutMillis,
	})
	if err != nil {
		return 0, zkerrors.Wrap(err, zkerrors.EphemeralOnLocalSession, "createNode", path)
	}
	return global, nil
}

// repairRestoreRace implements spec.md §4.5's restore-time repair: a
// create that failed with NodeExists during replay (possible because a
// lazily-taken snapshot can capture a parent before its children) still
// needs its parent's cversion/pzxid advanced to what the log transaction
// would have produced.
func (p *Processor) repairRestoreRace(path string, parentCVersion int32, zxid int64) {
	parentPath, _ := splitParentForRepair(path)
	if err := p.Tree.SetCversionPzxid(parentPath, parentCVersion, zxid); err != nil {
		zlog.WithFields(logrus.Fields{"op": "repairRestoreRace", "path": path}).
			Warnf("failed to repair parent cversion: %v", err)
	}
}

// splitParentForRepair mirrors ztree's internal splitParent just enough to
// locate a create transaction's parent path for the restore-time repair
// above; ztree keeps its own splitParent unexported since every other
// caller of it already holds a *DataTree receiver.
func splitParentForRepair(path string) (parent, child string) {
	idx := strings.LastIndexByte(path, '/')
	parent = path[:idx]
	child = path[idx+1:]
	if parent == "" {
		parent = ztree.RootPath
	}
	return parent, child
}

func (p *Processor) processDelete(header TxnHeader, b DeleteTxn, rc *Result) {
	rc.Path = b.Path
	err := p.Tree.DeleteNode(b.Path, header.Zxid)
	rc.Err = zkerrors.CodeOf(err)
}

func (p *Processor) processSetData(header TxnHeader, b SetDataTxn, rc *Result) {
	rc.Path = b.Path
	stat, err := p.Tree.SetData(b.Path, b.Data, b.Version, header.Zxid, header.Time)
	if err != nil {
		rc.Err = zkerrors.CodeOf(err)
		return
	}
	rc.Err = zkerrors.OK
	rc.Stat = &stat
}

func (p *Processor) processSetACL(_ TxnHeader, b SetACLTxn, rc *Result) {
	rc.Path = b.Path
	stat, err := p.Tree.SetACL(b.Path, b.ACL, b.Version)
	if err != nil {
		rc.Err = zkerrors.CodeOf(err)
		return
	}
	rc.Err = zkerrors.OK
	rc.Stat = &stat
}
