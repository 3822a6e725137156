// Package lsf implements the scheduler.Adapter contract for IBM/Platform
// LSF, submitting via bsub and observing completion through a dependent
// sentinel job.
package lsf

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

var log = logger.New("scheduler", "backend", "lsf")

// Backend implements scheduler.Adapter for LSF.
type Backend struct {
	jobPrefix string
}

// New returns an LSF Backend instance.
func New(jobPrefix string) *Backend {
	return &Backend{jobPrefix: jobPrefix}
}

// Name returns scheduler.LSF.
func (b *Backend) Name() scheduler.Backend { return scheduler.LSF }

// Detect requires LSF_BINDIR to be set and bsub to be resolvable on PATH.
func (b *Backend) Detect() error {
	if os.Getenv(scheduler.EnvLSFBinDir) == "" {
		return &scheduler.DetectionError{Backend: scheduler.LSF, Prereq: scheduler.EnvLSFBinDir + " environment variable"}
	}
	if _, err := exec.LookPath("bsub"); err != nil {
		return &scheduler.DetectionError{Backend: scheduler.LSF, Prereq: "bsub", Underlying: err}
	}
	return nil
}

// memRusage converts a memory string into the LSF rusage[mem=] value: a
// trailing G multiplies by 1000, a trailing M or a bare integer passes
// through unchanged. This preserves the ×1000 (not ×1024) convention of
// the pipeline this adapter replaces; see the design notes for why that
// convention survives even though real LSF installs are usually
// configured in KB or MB rather than decimal-G units.
func memRusage(mem string) string {
	mem = strings.TrimSpace(mem)
	if mem == "" {
		return ""
	}
	if strings.HasSuffix(mem, "G") || strings.HasSuffix(mem, "g") {
		n, err := strconv.Atoi(mem[:len(mem)-1])
		if err != nil {
			return mem
		}
		return strconv.Itoa(n * 1000)
	}
	if strings.HasSuffix(mem, "M") || strings.HasSuffix(mem, "m") {
		return mem[:len(mem)-1]
	}
	return mem
}

// walltimeHM takes the first two colon-separated components of an H:M:S
// walltime, matching bsub -W's H:M form.
func walltimeHM(walltime string) string {
	parts := strings.Split(walltime, ":")
	if len(parts) >= 2 {
		return parts[0] + ":" + parts[1]
	}
	return walltime
}

// CompileArgs implements the LSF column of the resource-compiler table.
func (b *Backend) CompileArgs(r scheduler.ResourceRequest) []string {
	var args []string
	if r.Memory != "" {
		args = append(args, "-R", fmt.Sprintf("rusage[mem=%s]", memRusage(r.Memory)))
	}
	if r.Cores > 0 {
		args = append(args, "-n", strconv.Itoa(r.Cores))
	}
	if r.Walltime != "" {
		args = append(args, "-W", walltimeHM(r.Walltime))
	}
	if r.Queue != "" {
		args = append(args, "-q", r.Queue)
	}
	switch r.NotifyPolicy {
	case scheduler.NotifyAll:
		if r.Email != "" {
			args = append(args, "-u", r.Email, "-N")
		}
	case scheduler.NotifyFail, scheduler.NotifyEnd:
		args = append(args, "-N")
	}
	if r.ExtraOpts != "" {
		if extra, err := shellwords.Split(r.ExtraOpts); err == nil {
			args = append(args, extra...)
		}
	}
	return args
}

func (b *Backend) bsubArgs(name string, r scheduler.ResourceRequest, script string, scriptArgs []string) []string {
	args := []string{"-J", name}
	args = append(args, b.CompileArgs(r)...)
	args = append(args, script)
	args = append(args, scriptArgs...)
	return args
}

var bsubRe = regexp.MustCompile(`<(\d+)>`)

func extractID(out string) string {
	m := bsubRe.FindStringSubmatch(out)
	if m == nil {
		return ""
	}
	return m[1]
}

func (b *Backend) runBsub(ctx context.Context, args []string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "bsub", args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &scheduler.SubmissionError{
			Backend: scheduler.LSF, Command: "bsub " + strings.Join(args, " "),
			Stdout: stdout.String(), Stderr: stderr.String(), Underlying: err,
		}
	}
	id := extractID(stdout.String())
	if id == "" {
		return "", &scheduler.SubmissionError{
			Backend: scheduler.LSF, Command: "bsub " + strings.Join(args, " "),
			Stdout: stdout.String(), Stderr: stderr.String(),
			Underlying: fmt.Errorf("could not extract job id from bsub output"),
		}
	}
	return id, nil
}

// Submit submits a single asynchronous job.
func (b *Backend) Submit(ctx context.Context, dir *scheduler.LogDirectory, spec scheduler.SubmitSpec) (scheduler.JobHandle, error) {
	id, err := b.runBsub(ctx, b.bsubArgs(spec.Name, spec.Resources, spec.Script, spec.Args))
	if err != nil {
		return scheduler.JobHandle{}, err
	}
	return scheduler.JobHandle{Backend: scheduler.LSF, ID: id}, nil
}

// SubmitSync submits with -K, which makes bsub itself block until the job
// terminates.
func (b *Backend) SubmitSync(ctx context.Context, dir *scheduler.LogDirectory, spec scheduler.SubmitSpec) error {
	args := append([]string{"-K"}, b.bsubArgs(spec.Name, spec.Resources, spec.Script, spec.Args)...)
	_, err := b.runBsub(ctx, args)
	return err
}

// SubmitArray1D emits one bsub invocation per value, in parameter order.
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

// SubmitArray2D emits one bsub invocation per (outer, inner) pair,
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

// Slots reports LSB_MAX_NUM_PROCESSORS from the LSF environment, falling
// back to the host core count outside a job allocation.
func (b *Backend) Slots() int {
	if v := os.Getenv(scheduler.EnvLSFMaxProcessors); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return hostCores()
}

// InManagedJob reports whether LSB_JOBID is set.
func (b *Backend) InManagedJob() bool {
	return os.Getenv(scheduler.EnvLSFJobID) != ""
}

func sentinelName(prefix string) string {
	return prefix + "_wait_" + xid.New().String()
}
