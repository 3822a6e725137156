package slurm

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/ashs-pipeline/qsched/scheduler"
)

var terminalStates = map[string]bool{
	"COMPLETED":     true,
	"FAILED":        true,
	"CANCELLED":     true,
	"TIMEOUT":       true,
	"NODE_FAIL":     true,
	"PREEMPTED":     true,
	"OUT_OF_MEMORY": true,
}

var nonTerminalStates = map[string]bool{
	"PENDING":     true,
	"RUNNING":     true,
	"COMPLETING":  true,
	"CONFIGURING": true,
	"SUSPENDED":   true,
}

const pollInterval = 10 * time.Second

// Wait polls sacct for each handle's accounting State until every handle in
// the set reaches a terminal state. A handle not yet visible in accounting
// is re-probed against the live queue; if it's in neither, the handle gets
// one last recheck after a short grace period before wait gives up on it
// with a warning, without blocking the rest of the set.
func (b *Backend) Wait(ctx context.Context, set scheduler.JobSet) error {
	pending := make(map[string]bool, len(set))
	for _, h := range set {
		pending[h.ID] = true
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	first := true
	for len(pending) > 0 {
		if first {
			// Poll immediately on entry rather than waiting out the first
			// interval, since a job can already be terminal by the time
			// Wait is called.
			first = false
		} else {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
		for id := range pending {
			state := sacctState(ctx, id)
			if terminalStates[state] {
				if state != "COMPLETED" {
					log.Warn("job reached non-success terminal state", "id", id, "state", state)
				}
				delete(pending, id)
				continue
			}
			if nonTerminalStates[state] {
				continue
			}
			if state != "" {
				log.Warn("unrecognized sacct state, continuing to poll", "id", id, "state", state)
				continue
			}
			// Not yet visible in accounting; fall back to the live queue.
			if squeueHasJob(ctx, id) {
				continue
			}
			time.Sleep(5 * time.Second)
			state = sacctState(ctx, id)
			if state == "" {
				log.Warn("giving up waiting on job, not found in sacct or squeue", "id", id)
				delete(pending, id)
				continue
			}
			if terminalStates[state] {
				if state != "COMPLETED" {
					log.Warn("job reached non-success terminal state", "id", id, "state", state)
				}
				delete(pending, id)
			}
			// Otherwise the job is now visible in accounting but not
			// terminal, so it stays pending for the next poll.
		}
	}
	return nil
}

func sacctState(ctx context.Context, id string) string {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, "sacct", "-j", id, "--format=State", "--noheader", "--parsable2")
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return ""
	}
	line := strings.SplitN(out.String(), "\n", 2)[0]
	return strings.TrimSpace(line)
}

func squeueHasJob(ctx context.Context, id string) bool {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, "squeue", "-j", id, "--noheader")
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return false
	}
	return strings.TrimSpace(out.String()) != ""
}
