// Package sessionhook defines the external control hook of spec.md §6:
// when a transaction from a local (node-only) session would create an
// ephemeral znode, it must be rewritten into a createSession transaction
// owned by a globally-replicated session before the core will accept it.
//
// The core never implements session tracking itself — it only calls
// through this interface, which a surrounding server wires in (or leaves
// nil to disable local-session upgrade entirely).
package sessionhook

import "context"

// UpgradeRequest describes the local-session ephemeral create that
// triggered the upgrade check.
type UpgradeRequest struct {
	// LocalSessionID is the local (non-replicated) session attempting the
	// ephemeral create.
	LocalSessionID int64
	// Path is the znode path the session is trying to create.
	Path string
	// TimeoutMillis is the session timeout to carry into the rewritten
	// createSession transaction.
	TimeoutMillis int64
}

// Upgrader is implemented by the surrounding session tracker. A nil
// Upgrader means local-session upgrade is disabled in configuration,
// per spec.md §6: such requests must fail with
// zkerrors.EphemeralOnLocalSession.
type Upgrader interface {
	// CheckUpgradeSession upgrades req.LocalSessionID to a
	// globally-replicated session and returns its id, or an error if the
	// upgrade cannot proceed.
	CheckUpgradeSession(ctx context.Context, req UpgradeRequest) (globalSessionID int64, err error)
}

// Disabled is an Upgrader that always rejects upgrade attempts, used as an
// explicit stand-in for a nil Upgrader when callers want a non-nil zero
// value.
type Disabled struct{}

func (Disabled) CheckUpgradeSession(context.Context, UpgradeRequest) (int64, error) {
	return 0, errLocalSessionUpgradeDisabled
}

var errLocalSessionUpgradeDisabled = upgradeDisabledError{}

type upgradeDisabledError struct{}

func (upgradeDisabledError) Error() string {
	return "sessionhook: local session upgrade disabled"
}
