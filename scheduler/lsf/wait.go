package lsf

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ashs-pipeline/qsched/scheduler"
)

// Wait blocks on a dependent sentinel job: a no-op bsub -K submission whose
// -w condition names every handle in the set via ended(<id>). LSF only
// dispatches the sentinel once all ended() conditions are satisfied, so -K
// returning implies the whole set is terminal.
//
// As with the SGE adapter, the sentinel's stderr is discarded so a handle
// that already left the queue before the sentinel is submitted doesn't
// surface a rejected-submission error; see the design notes for why this
// is preserved rather than fixed.
func (b *Backend) Wait(ctx context.Context, set scheduler.JobSet) error {
	conds := make([]string, len(set))
	for i, h := range set {
		conds[i] = fmt.Sprintf("ended(%s)", h.ID)
	}
	name := sentinelName(b.jobPrefix)
	args := []string{
		"-K", "-J", name,
		"-w", strings.Join(conds, " && "),
		"/bin/true",
	}
	cmd := exec.CommandContext(ctx, "bsub", args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Run(); err != nil {
		log.Debug("sentinel job submission failed, ended()-conditioned handles treated as terminal anyway", "name", name, "error", err)
	}
	return nil
}
