package sge

import (
	"context"
	"os/exec"
	"strings"

	"github.com/ashs-pipeline/qsched/scheduler"
)

// Wait blocks on a dependent sentinel job: a no-op synchronous submission
// held on every handle in the set via -hold_jid. SGE only releases the
// hold once all held-on jobs have left the queue, so the sentinel's own
// -sync y completion implies the whole set is terminal.
//
// The sentinel's stderr is discarded. If -hold_jid is given an id that has
// already left the queue by the time qsub parses it, some SGE/OGS versions
// reject the submission outright rather than treating it as already
// satisfied; redirecting stderr to /dev/null preserves the original
// pipeline's behavior of not surfacing that failure, at the cost of
// silently treating a rejected sentinel as "done" (see sentinel-swallows
// errors in design notes).
func (b *Backend) Wait(ctx context.Context, set scheduler.JobSet) error {
	ids := make([]string, len(set))
	for i, h := range set {
		ids[i] = h.ID
	}
	name := sentinelName(b.jobPrefix)
	args := []string{
		"-sync", "y", "-N", name,
		"-hold_jid", strings.Join(ids, ","),
		"-b", "y", "/bin/true",
	}
	cmd := exec.CommandContext(ctx, "qsub", args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Run(); err != nil {
		log.Debug("sentinel job submission failed, held-on handles treated as terminal anyway", "name", name, "error", err)
	}
	return nil
}
