// Package wait implements the "wait" CLI subcommand: block until a set of
// previously submitted job handles has reached a terminal state.
package wait

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ashs-pipeline/qsched/config"
	"github.com/ashs-pipeline/qsched/scheduler"
	"github.com/ashs-pipeline/qsched/scheduler/registry"
)

var (
	configPath string
	workDir    string
)

// Cmd is the "wait" subcommand. Each positional argument is a handle in
// "<backend>:<id>" form, as printed by "submit". Parallel handles are only
// tracked by the process that launched them, so for those this command
// returns at once without waiting on the process.
var Cmd = &cobra.Command{
	Use:   "wait [flags] handle...",
	Short: "Wait for one or more job handles to reach a terminal state",
	Args:  cobra.MinimumNArgs(1),
	RunE:  run,
}

func init() {
	Cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to scheduler.conf, tried before the rest of the search path")
	Cmd.Flags().StringVarP(&workDir, "workdir", "w", "", "Working directory for this run")
}

func parseHandle(s string) (scheduler.JobHandle, error) {
	backend, id, ok := strings.Cut(s, ":")
	if !ok {
		return scheduler.JobHandle{}, fmt.Errorf("malformed job handle %q, want <backend>:<id>", s)
	}
	return scheduler.JobHandle{Backend: scheduler.Backend(backend), ID: id}, nil
}

func run(cmd *cobra.Command, args []string) error {
	set := make(scheduler.JobSet, 0, len(args))
	for _, a := range args {
		h, err := parseHandle(a)
		if err != nil {
			return err
		}
		set = append(set, h)
	}

	backend, err := set.HomogeneousBackend()
	if err != nil {
		return err
	}

	home, _ := os.UserHomeDir()
	conf, err := config.Load(config.LoadOptions{
		OverridePath:    configPath,
		WorkDir:         workDir,
		HomeDir:         home,
		ExplicitBackend: string(backend),
	})
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	adapter, err := registry.New(backend, conf)
	if err != nil {
		return err
	}
	if err := adapter.Detect(); err != nil {
		return err
	}

	mgr := scheduler.NewManager(adapter, conf, afero.NewOsFs())
	return mgr.Wait(context.Background(), set)
}
