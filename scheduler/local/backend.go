// Package local implements the scheduler.Adapter contract for fully
// sequential, synchronous in-process execution: the universal fallback
// that makes a run never fail for want of a scheduler.
package local

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/ashs-pipeline/qsched/scheduler"
)

// Backend implements scheduler.Adapter by running scripts inline with
// os/exec, one at a time.
type Backend struct {
	jobPrefix string
}

// New returns a local Backend instance.
func New(jobPrefix string) *Backend {
	return &Backend{jobPrefix: jobPrefix}
}

// Name returns scheduler.Local.
func (b *Backend) Name() scheduler.Backend { return scheduler.Local }

// Detect always succeeds: local execution has no external prerequisite.
func (b *Backend) Detect() error { return nil }

// CompileArgs returns nothing: the local backend has no flags to compile,
// since every resource dimension is meaningless to inline execution on
// the calling host.
func (b *Backend) CompileArgs(r scheduler.ResourceRequest) []string { return nil }

func (b *Backend) run(ctx context.Context, dir *scheduler.LogDirectory, name, script string, args []string) error {
	cmd := exec.CommandContext(ctx, "bash", append([]string{script}, args...)...)
	if dir != nil {
		if err := dir.Ensure(); err != nil {
			return err
		}
		outPath := dir.PIDLogPath(name, os.Getpid(), "out")
		f, err := dir.Fs().Create(outPath)
		if err != nil {
			return fmt.Errorf("creating log file %s: %w", outPath, err)
		}
		defer f.Close()
		cmd.Stdout, cmd.Stderr = f, f
	} else {
		cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
	}
	if err := cmd.Run(); err != nil {
		return &scheduler.SubmissionError{Backend: scheduler.Local, Command: "bash " + script, Underlying: err}
	}
	return nil
}

// Submit runs script to completion before returning; local execution has
// no asynchronous mode, so the returned handle is always the sentinel.
func (b *Backend) Submit(ctx context.Context, dir *scheduler.LogDirectory, spec scheduler.SubmitSpec) (scheduler.JobHandle, error) {
	if err := b.run(ctx, dir, spec.Name, spec.Script, spec.Args); err != nil {
		return scheduler.JobHandle{}, err
	}
	return scheduler.LocalSentinel, nil
}

// SubmitSync is identical to Submit: both block until the script exits.
func (b *Backend) SubmitSync(ctx context.Context, dir *scheduler.LogDirectory, spec scheduler.SubmitSpec) error {
	return b.run(ctx, dir, spec.Name, spec.Script, spec.Args)
}

// SubmitArray1D runs one invocation per value, strictly in parameter
// order, since local execution has no concurrency to reorder it.
func (b *Backend) SubmitArray1D(ctx context.Context, dir *scheduler.LogDirectory, spec scheduler.Array1DSpec) (scheduler.JobSet, error) {
	for _, v := range spec.Values {
		args := append(append([]string{}, spec.Args...), v)
		if err := b.run(ctx, dir, spec.Name+"_"+v, spec.Script, args); err != nil {
			return nil, err
		}
	}
	return scheduler.JobSet{scheduler.LocalSentinel}, nil
}

// SubmitArray2D runs the Cartesian product of outer x inner, outer-major,
// strictly sequentially.
func (b *Backend) SubmitArray2D(ctx context.Context, dir *scheduler.LogDirectory, spec scheduler.Array2DSpec) (scheduler.JobSet, error) {
	for _, o := range spec.Outer {
		for _, i := range spec.Inner {
			args := append(append([]string{}, spec.Args...), o, i)
			if err := b.run(ctx, dir, spec.Name+"_"+o+"_"+i, spec.Script, args); err != nil {
				return nil, err
			}
		}
	}
	return scheduler.JobSet{scheduler.LocalSentinel}, nil
}

// Wait is a no-op: by the time a JobHandle exists, the local backend has
// already run it to completion.
func (b *Backend) Wait(ctx context.Context, set scheduler.JobSet) error {
	return nil
}

// Slots reports the detected host core count, even though local execution
// never uses more than one of them; callers that branch their own
// fan-out on slots() still need a meaningful answer.
func (b *Backend) Slots() int {
	return hostCores()
}

// InManagedJob is always false: local execution is never "inside" a
// scheduler-managed allocation.
func (b *Backend) InManagedJob() bool {
	return false
}
