package scheduler

import (
	"context"
	"fmt"

	"github.com/ashs-pipeline/qsched/config"
	"github.com/ashs-pipeline/qsched/logger"
	"github.com/spf13/afero"
)

// Manager is the public submission façade: the only thing the surrounding
// pipeline talks to. It carries the one Adapter selected for this process,
// the shared LogDirectory, and the Config used to resolve per-stage
// resources, so callers never construct a ResourceRequest or touch a
// backend package directly.
type Manager struct {
	adapter Adapter
	conf    config.Config
	logDir  *LogDirectory
	log     logger.Logger
}

// NewManager constructs the submission façade around an already-selected
// Adapter (see the registry package for selection).
func NewManager(adapter Adapter, conf config.Config, fs afero.Fs) *Manager {
	return &Manager{
		adapter: adapter,
		conf:    conf,
		logDir:  NewLogDirectory(fs, conf.WorkDir),
		log:     logger.New("scheduler", "backend", string(adapter.Name())),
	}
}

// Backend returns the identity of the active adapter.
func (m *Manager) Backend() Backend {
	return m.adapter.Name()
}

// LogDir returns the shared log directory for this run.
func (m *Manager) LogDir() *LogDirectory {
	return m.logDir
}

func (m *Manager) resources(stage int) ResourceRequest {
	return ResourceRequestForStage(m.conf, m.adapter.Name(), stage)
}

func (m *Manager) jobName(name string) string {
	if m.conf.JobPrefix == "" {
		return name
	}
	return m.conf.JobPrefix + "_" + name
}

// Submit submits a single asynchronous job and returns immediately with a
// JobHandle. It never blocks beyond the underlying submission call.
func (m *Manager) Submit(ctx context.Context, stage int, name, script string, args ...string) (JobHandle, error) {
	if err := m.logDir.Ensure(); err != nil {
		return JobHandle{}, err
	}
	spec := SubmitSpec{
		Name:      m.jobName(name),
		Script:    script,
		Args:      args,
		Resources: m.resources(stage),
	}
	return m.adapter.Submit(ctx, m.logDir, spec)
}

// SubmitSync submits a single job and blocks until it terminates.
func (m *Manager) SubmitSync(ctx context.Context, stage int, name, script string, args ...string) error {
	if err := m.logDir.Ensure(); err != nil {
		return err
	}
	spec := SubmitSpec{
		Name:      m.jobName(name),
		Script:    script,
		Args:      args,
		Resources: m.resources(stage),
	}
	return m.adapter.SubmitSync(ctx, m.logDir, spec)
}

// SubmitArraySingle submits one job per value in values, with the value
// appended as the last positional argument after fixedArgs. The returned
// JobSet preserves parameter order.
func (m *Manager) SubmitArraySingle(ctx context.Context, stage int, name string, values []string, script string, fixedArgs ...string) (JobSet, error) {
	if err := m.logDir.Ensure(); err != nil {
		return nil, err
	}
	spec := Array1DSpec{
		Name:      m.jobName(name),
		Values:    values,
		Script:    script,
		Args:      fixedArgs,
		Resources: m.resources(stage),
	}
	return m.adapter.SubmitArray1D(ctx, m.logDir, spec)
}

// SubmitArrayDouble submits the Cartesian product of outer x inner,
// outer-major: all inner values for outer[0], then outer[1], etc.
func (m *Manager) SubmitArrayDouble(ctx context.Context, stage int, name string, outer, inner []string, script string, fixedArgs ...string) (JobSet, error) {
	if err := m.logDir.Ensure(); err != nil {
		return nil, err
	}
	spec := Array2DSpec{
		Name:      m.jobName(name),
		Outer:     outer,
		Inner:     inner,
		Script:    script,
		Args:      fixedArgs,
		Resources: m.resources(stage),
	}
	return m.adapter.SubmitArray2D(ctx, m.logDir, spec)
}

// Wait blocks until every handle in set has reached a terminal state. It
// does not propagate per-job failure; callers inspect job disposition via
// logs or backend-specific commands. A handle that belongs to a backend
// other than the active one is rejected with an error before any waiting.
func (m *Manager) Wait(ctx context.Context, set JobSet) error {
	if len(set) == 0 {
		return nil
	}
	for _, h := range set {
		if h.Backend != m.adapter.Name() {
			return fmt.Errorf("job handle %s does not belong to the active %s backend", h, m.adapter.Name())
		}
	}
	return m.adapter.Wait(ctx, set)
}

// Slots reports the cores available to the current execution context.
func (m *Manager) Slots() int {
	return m.adapter.Slots()
}

// InManagedJob reports whether this process is itself running inside a job
// the active backend allocated.
func (m *Manager) InManagedJob() bool {
	return m.adapter.InManagedJob()
}
