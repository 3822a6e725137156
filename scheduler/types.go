// Package scheduler defines the backend-agnostic contract that SLURM, SGE,
// LSF, parallel, and local adapters implement, plus the submission façade
// (Manager) that the pipeline driver calls instead of talking to any one
// workload manager directly.
package scheduler

import (
	"context"
	"fmt"

	"github.com/ashs-pipeline/qsched/config"
)

// Backend names the five supported workload managers.
type Backend string

// The set of backend identities the registry knows how to probe and build.
const (
	Slurm    Backend = "slurm"
	SGE      Backend = "sge"
	LSF      Backend = "lsf"
	Parallel Backend = "parallel"
	Local    Backend = "local"
)

// NotifyPolicy is the notification event filter a ResourceRequest carries.
type NotifyPolicy string

// The notification policies recognized by the resource compiler.
const (
	NotifyNone  NotifyPolicy = "none"
	NotifyAll   NotifyPolicy = "all"
	NotifyFail  NotifyPolicy = "fail"
	NotifyEnd   NotifyPolicy = "end"
	NotifyBegin NotifyPolicy = "begin"
)

// ResourceRequest is the generic, backend-independent description of a
// submission's resource needs. It is ephemeral: built from a Config plus a
// stage index immediately before a submission and discarded afterward.
type ResourceRequest struct {
	Stage        int
	Memory       string // size with unit suffix, e.g. "8G" or "512M"
	Cores        int
	Walltime     string // "H:M:S" or backend-native
	Queue        string
	Email        string
	NotifyPolicy NotifyPolicy
	ExtraOpts    string
}

// ResourceRequestForStage builds the ResourceRequest for a submission tagged
// with the given stage index, applying the config's per-stage overrides.
func ResourceRequestForStage(conf config.Config, backend Backend, stage int) ResourceRequest {
	memory, cores, walltime := conf.Resolve(stage)
	return ResourceRequest{
		Stage:        stage,
		Memory:       memory,
		Cores:        cores,
		Walltime:     walltime,
		Queue:        conf.DefaultQueue,
		Email:        conf.NotifyEmail,
		NotifyPolicy: NotifyPolicy(orDefault(conf.NotifyEvents, string(NotifyNone))),
		ExtraOpts:    conf.ExtraOpts[string(backend)],
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// JobHandle is an opaque identifier returned by a submission. Its ID is only
// meaningful to the Backend that produced it; passing a handle from one
// backend's JobSet into another backend's Wait is a programming error, not a
// silent no-op, which is why every adapter stamps its own Backend on the
// handles it returns and Manager.Wait rejects handles of any other Backend.
type JobHandle struct {
	Backend Backend
	ID      string
}

// LocalSentinel is the handle value returned by submissions on backends
// where submission already completed synchronously (currently "local").
var LocalSentinel = JobHandle{Backend: Local, ID: "0"}

func (h JobHandle) String() string {
	return fmt.Sprintf("%s:%s", h.Backend, h.ID)
}

// JobSet is an ordered sequence of JobHandles, as returned by array
// submissions. Order matches the iteration order of the parameter list
// (outer-major for 2-D arrays).
type JobSet []JobHandle

// HomogeneousBackend returns the single Backend every handle in the set
// belongs to, or an error if the set is empty or mixes backends - mixing
// backends can only happen if a caller hand-assembled a JobSet, since every
// submission call only ever returns handles from its own Adapter.
func (s JobSet) HomogeneousBackend() (Backend, error) {
	if len(s) == 0 {
		return "", fmt.Errorf("empty job set")
	}
	b := s[0].Backend
	for _, h := range s[1:] {
		if h.Backend != b {
			return "", fmt.Errorf("job set mixes backends %s and %s", b, h.Backend)
		}
	}
	return b, nil
}

// SubmitSpec describes a single-job submission: the script to run, its
// positional arguments, and the compiled resource request.
type SubmitSpec struct {
	Name      string
	Script    string
	Args      []string
	Resources ResourceRequest
}

// Array1DSpec describes a 1-D parameter sweep: one job per value, with the
// value appended as the last positional argument after Args.
type Array1DSpec struct {
	Name      string
	Values    []string
	Script    string
	Args      []string
	Resources ResourceRequest
}

// Array2DSpec describes a 2-D Cartesian-product sweep, iterated outer-major:
// all Inner values for Outer[0], then all Inner values for Outer[1], etc.
type Array2DSpec struct {
	Name      string
	Outer     []string
	Inner     []string
	Script    string
	Args      []string
	Resources ResourceRequest
}

// Adapter is the capability set every backend implementation provides. A
// tagged sum over {slurm, sge, lsf, parallel, local} via per-variant method
// tables, rather than open-world plugin loading - the dynamic sourcing of
// per-backend scripts in the shell original was an implementation accident
// of that language, not a requirement worth preserving.
type Adapter interface {
	Name() Backend

	// Detect reports whether this backend's prerequisites are available in
	// the current environment. A non-nil error names the missing
	// prerequisite.
	Detect() error

	// CompileArgs translates a ResourceRequest into this backend's
	// submission-command flags. Per-stage values shadow defaults; empty
	// fields are omitted. ExtraOpts is split into shell-word arguments and
	// appended verbatim; the local adapter compiles no flags at all.
	CompileArgs(r ResourceRequest) []string

	Submit(ctx context.Context, dir *LogDirectory, spec SubmitSpec) (JobHandle, error)
	SubmitSync(ctx context.Context, dir *LogDirectory, spec SubmitSpec) error
	SubmitArray1D(ctx context.Context, dir *LogDirectory, spec Array1DSpec) (JobSet, error)
	SubmitArray2D(ctx context.Context, dir *LogDirectory, spec Array2DSpec) (JobSet, error)

	// Wait blocks until every handle in set is terminal. It never returns
	// early and never propagates a per-job failure as its own error; a
	// terminal-but-unsuccessful job is logged and still counts as terminal.
	Wait(ctx context.Context, set JobSet) error

	// Slots reports the cores available to the current execution context.
	Slots() int

	// InManagedJob reports whether the current process is itself executing
	// inside a job this backend allocated.
	InManagedJob() bool
}
