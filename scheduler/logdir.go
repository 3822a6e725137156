package scheduler

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// LogDirectory is the shared destination for per-job stdout/stderr. It is
// derived once from the work directory (or the current directory if none is
// configured) and reused by every submission in a run. The core creates it
// on demand but never deletes it; cleanup belongs to the surrounding
// pipeline.
type LogDirectory struct {
	fs   afero.Fs
	path string
}

// NewLogDirectory returns the LogDirectory for the given work directory. An
// empty workDir resolves to "." so the directory sits under the current
// directory, matching the spec's fallback when no work directory is
// configured.
func NewLogDirectory(fs afero.Fs, workDir string) *LogDirectory {
	if workDir == "" {
		workDir = "."
	}
	return &LogDirectory{fs: fs, path: filepath.Join(workDir, "dump")}
}

// Path returns the absolute-or-relative log directory path, matching
// whatever form workDir was given in.
func (d *LogDirectory) Path() string {
	return d.path
}

// Ensure creates the log directory if it doesn't already exist.
func (d *LogDirectory) Ensure() error {
	if err := d.fs.MkdirAll(d.path, 0755); err != nil {
		return fmt.Errorf("creating log directory %s: %w", d.path, err)
	}
	return nil
}

// JobLogPath builds the conventional stdout/stderr path for a cluster job:
// <log-dir>/<name>_<id>.<ext>. name is expected to already carry the job
// prefix (Manager.jobName prepends it before any adapter sees the name), so
// callers must not prepend it again here.
func (d *LogDirectory) JobLogPath(name, id, ext string) string {
	return filepath.Join(d.path, fmt.Sprintf("%s_%s.%s", name, id, ext))
}

// PIDLogPath builds the conventional stdout/stderr path for a PID-stamped
// submission (parallel/local): <log-dir>/<name>_<pid>.<ext>. As with
// JobLogPath, name already carries the job prefix.
func (d *LogDirectory) PIDLogPath(name string, pid int, ext string) string {
	return filepath.Join(d.path, fmt.Sprintf("%s_%d.%s", name, pid, ext))
}

// Fs exposes the underlying filesystem so adapters can open the log files
// they just named.
func (d *LogDirectory) Fs() afero.Fs {
	return d.fs
}
