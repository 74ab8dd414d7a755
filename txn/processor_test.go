package txn_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticeio/zkstore/acl"
	"github.com/latticeio/zkstore/ephemeral"
	"github.com/latticeio/zkstore/sessionhook"
	"github.com/latticeio/zkstore/txn"
	"github.com/latticeio/zkstore/zkerrors"
	"github.com/latticeio/zkstore/ztree"
)

func newProcessor() (*txn.Processor, *ztree.DataTree) {
	tree := ztree.New()
	return &txn.Processor{Tree: tree}, tree
}

func TestProcessCreateAndGet(t *testing.T) {
	p, tree := newProcessor()
	rc := p.ProcessTxn(context.Background(), txn.TxnHeader{ClientID: 1, Cxid: 1, Zxid: 1, Time: 1000, Type: txn.OpCreate},
		txn.CreateTxn{Path: "/a", Data: []byte("x"), ACL: acl.WorldACL(acl.PermAll), ParentCVersion: -1})

	require.Equal(t, zkerrors.OK, rc.Err)
	require.Equal(t, "/a", rc.Path)
	require.NotNil(t, rc.Stat)
	require.EqualValues(t, 1, tree.LastProcessedZxid())
}

func TestProcessCreateEphemeralIndexesSession(t *testing.T) {
	p, tree := newProcessor()
	rc := p.ProcessTxn(context.Background(), txn.TxnHeader{ClientID: 7, Cxid: 1, Zxid: 1, Time: 1000, Type: txn.OpCreate},
		txn.CreateTxn{Path: "/e", Ephemeral: true, ParentCVersion: -1})
	require.Equal(t, zkerrors.OK, rc.Err)
	require.Equal(t, int64(7), rc.Stat.EphemeralOwner)
	require.ElementsMatch(t, []string{"/e"}, tree.GetEphemerals(7))
}

func TestProcessCreateTTLEncodesOwner(t *testing.T) {
	p, _ := newProcessor()
	rc := p.ProcessTxn(context.Background(), txn.TxnHeader{ClientID: 1, Cxid: 1, Zxid: 1, Time: 1000, Type: txn.OpCreateTTL},
		txn.CreateTxn{Path: "/ttl", TTLMillis: 5000, ParentCVersion: -1})
	require.Equal(t, zkerrors.OK, rc.Err)
	require.Equal(t, ephemeral.TTL, ephemeral.TypeOf(rc.Stat.EphemeralOwner))
	require.EqualValues(t, 5000, ephemeral.UnpackTTL(rc.Stat.EphemeralOwner))
}

func TestProcessCreateContainerEncodesOwner(t *testing.T) {
	p, tree := newProcessor()
	rc := p.ProcessTxn(context.Background(), txn.TxnHeader{ClientID: 1, Cxid: 1, Zxid: 1, Time: 1000, Type: txn.OpCreateContainer},
		txn.CreateTxn{Path: "/c", ParentCVersion: -1})
	require.Equal(t, zkerrors.OK, rc.Err)
	require.Contains(t, tree.Containers(), "/c")
}

func TestProcessCreateEphemeralFromLocalSessionWithoutUpgraderFails(t *testing.T) {
	tree := ztree.New()
	p := &txn.Processor{Tree: tree, LocalSessions: allLocal{}}
	rc := p.ProcessTxn(context.Background(), txn.TxnHeader{ClientID: 1, Cxid: 1, Zxid: 1, Time: 1000, Type: txn.OpCreate},
		txn.CreateTxn{Path: "/e", Ephemeral: true, ParentCVersion: -1})
	require.Equal(t, zkerrors.EphemeralOnLocalSession, rc.Err)
	require.False(t, tree.Exists("/e"))
}

type allLocal struct{}

func (allLocal) IsLocal(int64) bool { return true }

type fakeUpgrader struct{ globalID int64 }

func (f fakeUpgrader) CheckUpgradeSession(_ context.Context, _ sessionhook.UpgradeRequest) (int64, error) {
	return f.globalID, nil
}

func TestProcessCreateEphemeralUpgradesLocalSession(t *testing.T) {
	tree := ztree.New()
	p := &txn.Processor{Tree: tree, LocalSessions: allLocal{}, Upgrader: fakeUpgrader{globalID: 99}}
	rc := p.ProcessTxn(context.Background(), txn.TxnHeader{ClientID: 1, Cxid: 1, Zxid: 1, Time: 1000, Type: txn.OpCreate},
		txn.CreateTxn{Path: "/e", Ephemeral: true, ParentCVersion: -1})
	require.Equal(t, zkerrors.OK, rc.Err)
	require.EqualValues(t, 99, rc.Stat.EphemeralOwner)
	require.ElementsMatch(t, []string{"/e"}, tree.GetEphemerals(99))
}

func TestProcessDelete(t *testing.T) {
	p, tree := newProcessor()
	p.ProcessTxn(context.Background(), txn.TxnHeader{ClientID: 1, Cxid: 1, Zxid: 1, Time: 1000, Type: txn.OpCreate},
		txn.CreateTxn{Path: "/a", ParentCVersion: -1})

	rc := p.ProcessTxn(context.Background(), txn.TxnHeader{ClientID: 1, Cxid: 2, Zxid: 2, Time: 1001, Type: txn.OpDelete},
		txn.DeleteTxn{Path: "/a"})
	require.Equal(t, zkerrors.OK, rc.Err)
	require.False(t, tree.Exists("/a"))
}

func TestProcessSetDataAndReconfig(t *testing.T) {
	p, tree := newProcessor()
	rc := p.ProcessTxn(context.Background(), txn.TxnHeader{ClientID: 1, Cxid: 1, Zxid: 1, Time: 1000, Type: txn.OpReconfig},
		txn.SetDataTxn{Data: []byte("members"), Version: 0})
	require.Equal(t, zkerrors.OK, rc.Err)
	require.Equal(t, ztree.ConfigPath, rc.Path)

	data, _, err := tree.GetData(ztree.ConfigPath, nil)
	require.NoError(t, err)
	require.Equal(t, []byte("members"), data)
}

func TestProcessCloseSessionKillsEphemerals(t *testing.T) {
	p, tree := newProcessor()
	p.ProcessTxn(context.Background(), txn.TxnHeader{ClientID: 5, Cxid: 1, Zxid: 1, Time: 1000, Type: txn.OpCreate},
		txn.CreateTxn{Path: "/e", Ephemeral: true, ParentCVersion: -1})

	rc := p.ProcessTxn(context.Background(), txn.TxnHeader{ClientID: 5, Cxid: 2, Zxid: 2, Time: 1001, Type: txn.OpCloseSession}, nil)
	require.Equal(t, zkerrors.OK, rc.Err)
	require.False(t, tree.Exists("/e"))
}

func TestProcessErrorPopulatesResult(t *testing.T) {
	p, _ := newProcessor()
	rc := p.ProcessTxn(context.Background(), txn.TxnHeader{ClientID: 1, Cxid: 1, Zxid: 1, Type: txn.OpError},
		txn.ErrorTxn{Err: zkerrors.BadVersion})
	require.Equal(t, zkerrors.BadVersion, rc.Err)
}

func TestProcessCheckIsNoop(t *testing.T) {
	p, tree := newProcessor()
	rc := p.ProcessTxn(context.Background(), txn.TxnHeader{ClientID: 1, Cxid: 1, Zxid: 1, Type: txn.OpCheck},
		txn.CheckTxn{Path: "/a"})
	require.Equal(t, zkerrors.OK, rc.Err)
	require.Equal(t, "/a", rc.Path)
	require.False(t, tree.Exists("/a"))
}

func TestProcessMultiAppliesAllOnSuccess(t *testing.T) {
	p, tree := newProcessor()
	rc := p.ProcessTxn(context.Background(), txn.TxnHeader{ClientID: 1, Cxid: 1, Zxid: 1, Time: 1000, Type: txn.OpMulti},
		txn.MultiTxn{Ops: []txn.MultiOp{
			{Type: txn.OpCreate, Body: txn.CreateTxn{Path: "/x", ParentCVersion: -1}},
			{Type: txn.OpCreate, Body: txn.CreateTxn{Path: "/y", ParentCVersion: -1}},
		}})
	require.Equal(t, zkerrors.OK, rc.Err)
	require.True(t, tree.Exists("/x"))
	require.True(t, tree.Exists("/y"))
	require.Len(t, rc.MultiResults, 2)
}

// TestProcessMultiMidStreamError mirrors spec.md scenario S3: body is
// [create /x, error, create /y]. The pre-scan detects the error marker, so
// both creates are rewritten to error sub-results — OK before the marker,
// RUNTIME_INCONSISTENCY after — and the tree is left unchanged.
func TestProcessMultiMidStreamError(t *testing.T) {
	p, tree := newProcessor()
	rc := p.ProcessTxn(context.Background(), txn.TxnHeader{ClientID: 1, Cxid: 1, Zxid: 1, Time: 1000, Type: txn.OpMulti},
		txn.MultiTxn{Ops: []txn.MultiOp{
			{Type: txn.OpCreate, Body: txn.CreateTxn{Path: "/x", ParentCVersion: -1}},
			{Type: txn.OpError, Body: txn.ErrorTxn{Err: zkerrors.BadVersion}},
			{Type: txn.OpCreate, Body: txn.CreateTxn{Path: "/y", ParentCVersion: -1}},
		}})

	require.Equal(t, zkerrors.BadVersion, rc.Err)
	require.Len(t, rc.MultiResults, 3)
	require.Equal(t, zkerrors.OK, rc.MultiResults[0].Err)
	require.Equal(t, zkerrors.BadVersion, rc.MultiResults[1].Err)
	require.Equal(t, zkerrors.RuntimeInconsistency, rc.MultiResults[2].Err)

	require.False(t, tree.Exists("/x"))
	require.False(t, tree.Exists("/y"))
}

func TestResultKeyIdentity(t *testing.T) {
	r := txn.Result{ClientID: 1, Cxid: 2}
	require.Equal(t, txn.Key{ClientID: 1, Cxid: 2}, r.Key())
}
