// Package slurm implements the scheduler.Adapter contract for SLURM,
// submitting via sbatch and observing completion through sacct/squeue.
package slurm

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ashs-pipeline/qsched/logger"
	"github.com/ashs-pipeline/qsched/scheduler"
	"github.com/hashicorp/go-multierror"
	shellwords "github.com/kballard/go-shellquote"
)

var log = logger.New("scheduler", "backend", "slurm")

// Backend implements scheduler.Adapter for SLURM.
type Backend struct {
	jobPrefix string
}

// New returns a SLURM Backend instance.
func New(jobPrefix string) *Backend {
	return &Backend{jobPrefix: jobPrefix}
}

// Name returns scheduler.Slurm.
func (b *Backend) Name() scheduler.Backend { return scheduler.Slurm }

// Detect requires sbatch, squeue, and sacct all to be resolvable on PATH.
func (b *Backend) Detect() error {
	var missing *multierror.Error
	for _, bin := range []string{"sbatch", "squeue", "sacct"} {
		if _, err := exec.LookPath(bin); err != nil {
			missing = multierror.Append(missing, fmt.Errorf("%s not found on PATH", bin))
		}
	}
	return missing.ErrorOrNil()
}

// CompileArgs implements the SLURM column of the resource-compiler table.
func (b *Backend) CompileArgs(r scheduler.ResourceRequest) []string {
	var args []string
	if r.Memory != "" {
		args = append(args, "--mem="+r.Memory)
	}
	if r.Cores > 0 {
		args = append(args, fmt.Sprintf("--cpus-per-task=%d", r.Cores))
	}
	if r.Walltime != "" {
		args = append(args, "--time="+r.Walltime)
	}
	if r.Queue != "" {
		args = append(args, "--partition="+r.Queue)
	}
	switch r.NotifyPolicy {
	case scheduler.NotifyAll:
		if r.Email != "" {
			args = append(args, "--mail-user="+r.Email, "--mail-type=ALL")
		}
	case scheduler.NotifyFail:
		args = append(args, "--mail-type=FAIL")
	case scheduler.NotifyEnd:
		args = append(args, "--mail-type=END")
	case scheduler.NotifyBegin:
		args = append(args, "--mail-type=BEGIN")
	}
	if r.ExtraOpts != "" {
		if extra, err := shellwords.Split(r.ExtraOpts); err == nil {
			args = append(args, extra...)
		}
	}
	return args
}

// sbatchArgs assembles the full sbatch command line for one submission.
func (b *Backend) sbatchArgs(dir *scheduler.LogDirectory, name string, r scheduler.ResourceRequest, script string, scriptArgs []string, sync bool) []string {
	args := []string{"--parsable"}
	args = append(args, b.CompileArgs(r)...)
	args = append(args, "-J", name)
	args = append(args, "-o", dir.JobLogPath(name, "%j", "out"))
	args = append(args, "-D", ".")
	args = append(args, "--export=ALL")
	if sync {
		args = append(args, "--wait")
	}
	args = append(args, script)
	args = append(args, scriptArgs...)
	return args
}

func (b *Backend) runSbatch(ctx context.Context, args []string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "sbatch", args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &scheduler.SubmissionError{
			Backend: scheduler.Slurm, Command: "sbatch " + strings.Join(args, " "),
			Stdout: stdout.String(), Stderr: stderr.String(), Underlying: err,
		}
	}
	id := extractID(stdout.String())
	if id == "" {
		return "", &scheduler.SubmissionError{
			Backend: scheduler.Slurm, Command: "sbatch " + strings.Join(args, " "),
			Stdout: stdout.String(), Stderr: stderr.String(),
			Underlying: fmt.Errorf("could not extract job id from sbatch output"),
		}
	}
	return id, nil
}

// extractID takes the first line of --parsable output and, if the cluster
// is part of a federation, drops the ";<clustername>" suffix SLURM appends
// to it.
func extractID(out string) string {
	line := strings.SplitN(out, "\n", 2)[0]
	line = strings.TrimSpace(line)
	line = strings.SplitN(line, ";", 2)[0]
	return line
}

// Submit submits a single asynchronous job.
func (b *Backend) Submit(ctx context.Context, dir *scheduler.LogDirectory, spec scheduler.SubmitSpec) (scheduler.JobHandle, error) {
	args := b.sbatchArgs(dir, spec.Name, spec.Resources, spec.Script, spec.Args, false)
	id, err := b.runSbatch(ctx, args)
	if err != nil {
		return scheduler.JobHandle{}, err
	}
	return scheduler.JobHandle{Backend: scheduler.Slurm, ID: id}, nil
}

// SubmitSync submits with --wait and blocks until sbatch itself returns.
func (b *Backend) SubmitSync(ctx context.Context, dir *scheduler.LogDirectory, spec scheduler.SubmitSpec) error {
	args := b.sbatchArgs(dir, spec.Name, spec.Resources, spec.Script, spec.Args, true)
	_, err := b.runSbatch(ctx, args)
	return err
}

// SubmitArray1D emits one sbatch invocation per value, collecting
// identifiers in parameter order.
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

// SubmitArray2D emits one sbatch invocation per (outer, inner) pair in
// outer-major order.
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

// Slots reports cores from SLURM's own environment, falling back to the
// detected host core count outside a job allocation.
func (b *Backend) Slots() int {
	if v := envInt(scheduler.EnvSlurmCPUsOnNode); v > 0 {
		return v
	}
	if v := envInt(scheduler.EnvSlurmNTasks); v > 0 {
		return v
	}
	return hostCores()
}

// InManagedJob reports whether SLURM_JOB_ID is set.
func (b *Backend) InManagedJob() bool {
	return lookupEnv(scheduler.EnvSlurmJobID) != ""
}

func envInt(name string) int {
	v := lookupEnv(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
