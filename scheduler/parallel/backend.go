// Package parallel implements the scheduler.Adapter contract for the local
// multi-process executor, which fans work out across GNU parallel rather
// than a cluster workload manager. Resource requests other than cores are
// not meaningful to a single-host fan-out and are ignored.
package parallel

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"github.com/ashs-pipeline/qsched/logger"
	"github.com/ashs-pipeline/qsched/scheduler"
	shellwords "github.com/kballard/go-shellquote"
)

var log = logger.New("scheduler", "backend", "parallel")

// Backend implements scheduler.Adapter by shelling out to GNU parallel.
type Backend struct {
	jobPrefix string

	mu      sync.Mutex
	running map[string]*trackedProc
}

type trackedProc struct {
	cmd     *exec.Cmd
	logFile io.Closer
}

// New returns a parallel Backend instance.
func New(jobPrefix string) *Backend {
	return &Backend{jobPrefix: jobPrefix, running: make(map[string]*trackedProc)}
}

// Name returns scheduler.Parallel.
func (b *Backend) Name() scheduler.Backend { return scheduler.Parallel }

// Detect requires the parallel binary to be resolvable on PATH.
func (b *Backend) Detect() error {
	if _, err := exec.LookPath("parallel"); err != nil {
		return &scheduler.DetectionError{Backend: scheduler.Parallel, Prereq: "parallel", Underlying: err}
	}
	return nil
}

// CompileArgs implements the Parallel column of the resource-compiler
// table: only cores is meaningful, defaulting to the detected host count
// when unset, and ExtraOpts is appended verbatim. Memory, walltime, queue,
// and notification have no local equivalent and are silently ignored.
func (b *Backend) CompileArgs(r scheduler.ResourceRequest) []string {
	cores := r.Cores
	if cores <= 0 {
		cores = hostCores()
	}
	args := []string{"-j", strconv.Itoa(cores)}
	if r.ExtraOpts != "" {
		if extra, err := shellwords.Split(r.ExtraOpts); err == nil {
			args = append(args, extra...)
		}
	}
	return args
}

func (b *Backend) track(cmd *exec.Cmd, logFile io.Closer) string {
	pid := cmd.Process.Pid
	id := strconv.Itoa(pid)
	b.mu.Lock()
	b.running[id] = &trackedProc{cmd: cmd, logFile: logFile}
	b.mu.Unlock()
	return id
}

func (b *Backend) reap(id string) error {
	b.mu.Lock()
	proc, ok := b.running[id]
	b.mu.Unlock()
	if !ok {
		// Not a process this backend instance launched; nothing to reap.
		return nil
	}
	err := proc.cmd.Wait()
	if proc.logFile != nil {
		proc.logFile.Close()
	}
	b.mu.Lock()
	delete(b.running, id)
	b.mu.Unlock()
	return err
}

// Submit starts script in the background and returns its PID immediately.
func (b *Backend) Submit(ctx context.Context, dir *scheduler.LogDirectory, spec scheduler.SubmitSpec) (scheduler.JobHandle, error) {
	cmd, logFile, err := b.start(ctx, dir, spec.Name, spec.Script, spec.Args)
	if err != nil {
		return scheduler.JobHandle{}, err
	}
	return scheduler.JobHandle{Backend: scheduler.Parallel, ID: b.track(cmd, logFile)}, nil
}

// SubmitSync runs script to completion inline.
func (b *Backend) SubmitSync(ctx context.Context, dir *scheduler.LogDirectory, spec scheduler.SubmitSpec) error {
	cmd, logFile, err := b.start(ctx, dir, spec.Name, spec.Script, spec.Args)
	if err != nil {
		return err
	}
	err = cmd.Wait()
	if logFile != nil {
		logFile.Close()
	}
	return err
}

func (b *Backend) start(ctx context.Context, dir *scheduler.LogDirectory, name, script string, args []string) (*exec.Cmd, io.Closer, error) {
	cmd := exec.CommandContext(ctx, "bash", append([]string{script}, args...)...)
	logFile, err := attachLogs(cmd, dir, name)
	if err != nil {
		return nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, &scheduler.SubmissionError{
			Backend: scheduler.Parallel, Command: "bash " + script, Underlying: err,
		}
	}
	return cmd, logFile, nil
}

// SubmitArray1D issues exactly one parallel invocation that fans spec.Values
// out internally, returning a single handle pointing at the spawned
// parallel process.
func (b *Backend) SubmitArray1D(ctx context.Context, dir *scheduler.LogDirectory, spec scheduler.Array1DSpec) (scheduler.JobSet, error) {
	args := b.CompileArgs(spec.Resources)
	args = append(args, "bash", spec.Script)
	args = append(args, spec.Args...)
	args = append(args, "{}", ":::")
	args = append(args, spec.Values...)
	cmd := exec.CommandContext(ctx, "parallel", args...)
	logFile, err := attachLogs(cmd, dir, spec.Name)
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, &scheduler.SubmissionError{Backend: scheduler.Parallel, Command: "parallel " + spec.Name, Underlying: err}
	}
	return scheduler.JobSet{{Backend: scheduler.Parallel, ID: b.track(cmd, logFile)}}, nil
}

// SubmitArray2D issues a single Cartesian-product parallel invocation with
// two ::: operand lists, outer-major.
func (b *Backend) SubmitArray2D(ctx context.Context, dir *scheduler.LogDirectory, spec scheduler.Array2DSpec) (scheduler.JobSet, error) {
	args := b.CompileArgs(spec.Resources)
	args = append(args, "bash", spec.Script)
	args = append(args, spec.Args...)
	args = append(args, "{1}", "{2}", ":::")
	args = append(args, spec.Outer...)
	args = append(args, ":::")
	args = append(args, spec.Inner...)
	cmd := exec.CommandContext(ctx, "parallel", args...)
	logFile, err := attachLogs(cmd, dir, spec.Name)
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, &scheduler.SubmissionError{Backend: scheduler.Parallel, Command: "parallel " + spec.Name, Underlying: err}
	}
	return scheduler.JobSet{{Backend: scheduler.Parallel, ID: b.track(cmd, logFile)}}, nil
}

// Wait reaps each handle's process. This is correct for array submissions
// because the tracked process is GNU parallel itself, which does not exit
// until every one of its children has.
func (b *Backend) Wait(ctx context.Context, set scheduler.JobSet) error {
	for _, h := range set {
		if err := b.reap(h.ID); err != nil {
			log.Warn("parallel job exited non-zero", "pid", h.ID, "error", err)
		}
	}
	return nil
}

// Slots reports the detected host core count.
func (b *Backend) Slots() int {
	return hostCores()
}

// InManagedJob is always false: the parallel backend has no concept of
// being invoked from inside one of its own jobs.
func (b *Backend) InManagedJob() bool {
	return false
}

func attachLogs(cmd *exec.Cmd, dir *scheduler.LogDirectory, name string) (io.Closer, error) {
	if dir == nil {
		cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
		return nil, nil
	}
	if err := dir.Ensure(); err != nil {
		return nil, err
	}
	// The PID isn't known until after Start, so logs are named with a
	// placeholder pid of 0 and left to the caller's log directory
	// convention; see design notes on PID-stamped naming for why this
	// adapter can't pre-name its log files the way SLURM/LSF do.
	outPath := dir.PIDLogPath(name, 0, "out")
	f, err := dir.Fs().Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("creating log file %s: %w", outPath, err)
	}
	cmd.Stdout = f
	cmd.Stderr = f
	return f, nil
}
