// Package sge implements the scheduler.Adapter contract for SGE/OGS,
// submitting via qsub and observing completion through a synchronous
// dependent sentinel job.
package sge

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/ashs-pipeline/qsched/logger"
	"github.com/ashs-pipeline/qsched/scheduler"
	shellwords "github.com/kballard/go-shellquote"
	"github.com/rs/xid"
)

var log = logger.New("scheduler", "backend", "sge")

// Backend implements scheduler.Adapter for SGE/OGS.
type Backend struct {
	jobPrefix string
}

// New returns an SGE Backend instance.
func New(jobPrefix string) *Backend {
	return &Backend{jobPrefix: jobPrefix}
}

// Name returns scheduler.SGE.
func (b *Backend) Name() scheduler.Backend { return scheduler.SGE }

// Detect requires SGE_ROOT to be set and qsub to be resolvable on PATH.
func (b *Backend) Detect() error {
	if os.Getenv(scheduler.EnvSGERoot) == "" {
		return &scheduler.DetectionError{Backend: scheduler.SGE, Prereq: scheduler.EnvSGERoot + " environment variable"}
	}
	if _, err := exec.LookPath("qsub"); err != nil {
		return &scheduler.DetectionError{Backend: scheduler.SGE, Prereq: "qsub", Underlying: err}
	}
	return nil
}

// CompileArgs implements the SGE column of the resource-compiler table.
func (b *Backend) CompileArgs(r scheduler.ResourceRequest) []string {
	var args []string
	if r.Memory != "" {
		args = append(args, "-l", "h_vmem="+r.Memory)
	}
	if r.Cores > 0 {
		args = append(args, "-pe", "smp", strconv.Itoa(r.Cores))
	}
	if r.Walltime != "" {
		args = append(args, "-l", "h_rt="+r.Walltime)
	}
	if r.Queue != "" {
		args = append(args, "-q", r.Queue)
	}
	switch r.NotifyPolicy {
	case scheduler.NotifyAll:
		if r.Email != "" {
			args = append(args, "-M", r.Email, "-m", "beas")
		}
	case scheduler.NotifyFail:
		args = append(args, "-m", "a")
	case scheduler.NotifyEnd:
		args = append(args, "-m", "e")
	case scheduler.NotifyBegin:
		args = append(args, "-m", "b")
	}
	if r.ExtraOpts != "" {
		if extra, err := shellwords.Split(r.ExtraOpts); err == nil {
			args = append(args, extra...)
		}
	}
	return args
}

func (b *Backend) qsubArgs(name string, r scheduler.ResourceRequest, script string, scriptArgs []string) []string {
	args := []string{"-N", name, "-cwd", "-V"}
	args = append(args, b.CompileArgs(r)...)
	args = append(args, script)
	args = append(args, scriptArgs...)
	return args
}

var submittedRe = regexp.MustCompile(`Your job (\d+) `)

func extractID(out string) string {
	m := submittedRe.FindStringSubmatch(out)
	if m == nil {
		return ""
	}
	return m[1]
}

func (b *Backend) runQsub(ctx context.Context, args []string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "qsub", args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &scheduler.SubmissionError{
			Backend: scheduler.SGE, Command: "qsub " + strings.Join(args, " "),
			Stdout: stdout.String(), Stderr: stderr.String(), Underlying: err,
		}
	}
	id := extractID(stdout.String())
	if id == "" {
		return "", &scheduler.SubmissionError{
			Backend: scheduler.SGE, Command: "qsub " + strings.Join(args, " "),
			Stdout: stdout.String(), Stderr: stderr.String(),
			Underlying: fmt.Errorf("could not extract job id from qsub output"),
		}
	}
	return id, nil
}

// Submit submits a single asynchronous job.
func (b *Backend) Submit(ctx context.Context, dir *scheduler.LogDirectory, spec scheduler.SubmitSpec) (scheduler.JobHandle, error) {
	id, err := b.runQsub(ctx, b.qsubArgs(spec.Name, spec.Resources, spec.Script, spec.Args))
	if err != nil {
		return scheduler.JobHandle{}, err
	}
	return scheduler.JobHandle{Backend: scheduler.SGE, ID: id}, nil
}

// SubmitSync submits a job and uses qsub -sync y on a wrapper invocation so
// it blocks until the job itself terminates.
func (b *Backend) SubmitSync(ctx context.Context, dir *scheduler.LogDirectory, spec scheduler.SubmitSpec) error {
	args := append([]string{"-sync", "y"}, b.qsubArgs(spec.Name, spec.Resources, spec.Script, spec.Args)...)
	_, err := b.runQsub(ctx, args)
	return err
}

// SubmitArray1D emits one qsub invocation per value, in parameter order.
func (b *Backend) SubmitArray1D(ctx context.Context, dir *scheduler.LogDirectory, spec scheduler.Array1DSpec) (scheduler.JobSet, error) {
	set := make(scheduler.JobSet, 0, len(spec.Values))
	for _, v := range spec.Values {
		name := spec.Name + "_" + v
		args := append(append([]string{}, spec.Args...), v)
		h, err := b.Submit(ctx, dir, scheduler.SubmitSpec{Name: name, Script: spec.Script, Args: args, Resources: spec.Resources})
		if err != nil {
			return set, err
		}
		set = append(set, h)
	}
	return set, nil
}

// SubmitArray2D emits one qsub invocation per (outer, inner) pair,
// outer-major.
func (b *Backend) SubmitArray2D(ctx context.Context, dir *scheduler.LogDirectory, spec scheduler.Array2DSpec) (scheduler.JobSet, error) {
	set := make(scheduler.JobSet, 0, len(spec.Outer)*len(spec.Inner))
	for _, o := range spec.Outer {
		for _, i := range spec.Inner {
			name := spec.Name + "_" + o + "_" + i
			args := append(append([]string{}, spec.Args...), o, i)
			h, err := b.Submit(ctx, dir, scheduler.SubmitSpec{Name: name, Script: spec.Script, Args: args, Resources: spec.Resources})
			if err != nil {
				return set, err
			}
			set = append(set, h)
		}
	}
	return set, nil
}

// Slots reports NSLOTS from the SGE environment, falling back to the host
// core count outside a job allocation.
func (b *Backend) Slots() int {
	if v := os.Getenv(scheduler.EnvSGENSlots); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return hostCores()
}

// InManagedJob reports whether JOB_ID is set.
func (b *Backend) InManagedJob() bool {
	return os.Getenv(scheduler.EnvSGEJobID) != ""
}

// sentinelName builds a unique name for the dependent sentinel job used by
// Wait, so concurrent waits on the same backend never collide.
func sentinelName(prefix string) string {
	return prefix + "_wait_" + xid.New().String()
}
