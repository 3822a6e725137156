// Package submit implements the "submit" CLI subcommand: load config,
// detect a backend, and submit a single job, printing its handle.
package submit

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ashs-pipeline/qsched/config"
	cmdutil "github.com/ashs-pipeline/qsched/cmd/util"
	"github.com/ashs-pipeline/qsched/logger"
	"github.com/ashs-pipeline/qsched/scheduler"
	"github.com/ashs-pipeline/qsched/scheduler/registry"
)

var (
	configPath       string
	workDir          string
	stage            int
	sync             bool
	selector         string
	overrideMemory   string
	overrideCores    int
	overrideWalltime string
)

// Cmd is the "submit" subcommand.
var Cmd = &cobra.Command{
	Use:   "submit [flags] name script [args...]",
	Short: "Submit one job through the detected scheduler backend",
	Args:  cobra.MinimumNArgs(2),
	RunE:  run,
}

func init() {
	Cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to scheduler.conf, tried before the rest of the search path")
	Cmd.Flags().StringVarP(&workDir, "workdir", "w", "", "Working directory for this run")
	Cmd.Flags().IntVar(&stage, "stage", 0, "Pipeline stage index, for per-stage resource overrides")
	Cmd.Flags().BoolVar(&sync, "sync", false, "Block until the job terminates instead of returning its handle")
	Cmd.Flags().StringVar(&overrideMemory, "mem", "", "Ad-hoc memory override for this submission, shadowing any config value for this stage")
	Cmd.Flags().IntVar(&overrideCores, "cores", 0, "Ad-hoc cores override for this submission")
	Cmd.Flags().StringVar(&overrideWalltime, "walltime", "", "Ad-hoc walltime override for this submission")
	Cmd.Flags().AddFlagSet(cmdutil.BackendSelectorFlags(&selector))
	Cmd.Flags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return cmdutil.NormalizeFlags(f, name)
	})
}

func run(cmd *cobra.Command, args []string) error {
	name, script, scriptArgs := args[0], args[1], args[2:]

	home, _ := os.UserHomeDir()
	explicit := cmdutil.ResolveSelector(cmd.Flags())
	conf, err := config.Load(config.LoadOptions{
		OverridePath:    configPath,
		WorkDir:         workDir,
		HomeDir:         home,
		ExplicitBackend: explicit,
	})
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if overrideMemory != "" || overrideCores != 0 || overrideWalltime != "" {
		if err := cmdutil.MergeStageOverride(&conf, stage, config.StageOverride{
			Memory:   overrideMemory,
			Cores:    overrideCores,
			Walltime: overrideWalltime,
		}); err != nil {
			return fmt.Errorf("merging stage override: %w", err)
		}
	}

	adapter, err := registry.Detect(conf)
	if err != nil {
		return err
	}

	mgr := scheduler.NewManager(adapter, conf, afero.NewOsFs())
	log := logger.New("scheduler", "command", "submit")

	ctx := context.Background()
	if sync {
		if err := mgr.SubmitSync(ctx, stage, name, script, scriptArgs...); err != nil {
			return err
		}
		log.Info("job completed", "name", name)
		return nil
	}

	handle, err := mgr.Submit(ctx, stage, name, script, scriptArgs...)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), handle.String())
	return nil
}
