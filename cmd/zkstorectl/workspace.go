package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// workspaceMeta is the small descriptor createWorkspace writes and
// attachWorkspace checks for, in the same spirit as the teacher's
// installdir.txt: a run directory is not usable until it is stamped as
// one of ours.
type workspaceMeta struct {
	CreatedAt time.Time `json:"createdAt"`
}

// workspace is the CLI harness's run directory: a place to keep a
// snapshot file and a transaction log alongside one another, descended
// from the teacher's Server (CreateServer/AttachServer) directory
// provisioning, but holding files for an in-process replay harness
// instead of a spawned server's config/log4j/install-dir files.
type workspace struct {
	dir string
}

// createWorkspace provisions dir as a fresh workspace. It is an error if
// dir already exists, mirroring the teacher's CreateServer.
func createWorkspace(dir string) (*workspace, error) {
	if err := os.Mkdir(dir, 0o777); err != nil {
		return nil, errors.Wrap(err, "create workspace")
	}
	w := &workspace{dir: dir}
	meta := workspaceMeta{CreatedAt: time.Now()}
	buf, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal workspace metadata")
	}
	if err := os.WriteFile(w.path("workspace.json"), buf, 0o666); err != nil {
		return nil, errors.Wrap(err, "write workspace metadata")
	}
	return w, nil
}

// attachWorkspace opens an existing workspace directory, failing if it
// was never provisioned by createWorkspace.
func attachWorkspace(dir string) (*workspace, error) {
	w := &workspace{dir: dir}
	if _, err := os.Stat(w.path("workspace.json")); err != nil {
		return nil, errors.Wrap(err, "attach workspace")
	}
	return w, nil
}

func (w *workspace) path(name string) string {
	return filepath.Join(w.dir, name)
}

func (w *workspace) snapshotPath() string { return w.path("snapshot.gob") }
