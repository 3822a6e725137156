// Package cmd contains the scheduler CLI's commands.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ashs-pipeline/qsched/cmd/submit"
	"github.com/ashs-pipeline/qsched/cmd/wait"
)

// RootCmd is the entry point for the scheduler command-line surface.
var RootCmd = &cobra.Command{
	Use:           "qsched",
	Short:         "Submit and track jobs across SLURM, SGE, LSF, parallel, and local backends",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	RootCmd.AddCommand(submit.Cmd)
	RootCmd.AddCommand(wait.Cmd)
}
