// Package util holds flag-set and config-merge helpers shared by the
// scheduler CLI's subcommands, grounded in the same pflag/mergo pattern
// used by every flag-driven command in the surrounding driver.
package util

import (
	"strings"

	"github.com/imdario/mergo"
	"github.com/spf13/pflag"

	"github.com/ashs-pipeline/qsched/config"
)

// BackendSelectorFlags returns the single-letter backend-forcing flags
// from the command-line surface: -S (slurm), -Q (sge), -l (lsf), -P
// (parallel). Setting more than one is allowed by pflag; ResolveSelector
// then picks the first one set in the order slurm, sge, lsf, parallel.
func BackendSelectorFlags(selected *string) *pflag.FlagSet {
	f := pflag.NewFlagSet("", pflag.ContinueOnError)

	f.BoolP("slurm", "S", false, "Force the slurm backend")
	f.BoolP("sge", "Q", false, "Force the sge backend")
	f.BoolP("lsf", "l", false, "Force the lsf backend")
	f.BoolP("parallel", "P", false, "Force the parallel backend")

	*selected = ""
	return f
}

// ResolveSelector inspects the parsed selector flags and returns the
// backend they force, or "" if none were set, so the caller can populate
// config.LoadOptions.ExplicitBackend without this package depending on
// cobra's Command type.
func ResolveSelector(f *pflag.FlagSet) string {
	for _, pair := range []struct{ flag, backend string }{
		{"slurm", "slurm"}, {"sge", "sge"}, {"lsf", "lsf"}, {"parallel", "parallel"},
	} {
		if v, err := f.GetBool(pair.flag); err == nil && v {
			return pair.backend
		}
	}
	return ""
}

// NormalizeFlags allows flags to be case- and separator-insensitive.
func NormalizeFlags(f *pflag.FlagSet, name string) pflag.NormalizedName {
	lookup := map[string]string{"help": "help", normalize(name): name}
	f.VisitAll(func(flag *pflag.Flag) {
		lookup[normalize(flag.Name)] = flag.Name
	})
	return pflag.NormalizedName(lookup[normalize(name)])
}

func normalize(name string) string {
	name = strings.ReplaceAll(name, "-", ".")
	name = strings.ReplaceAll(name, "_", ".")
	return strings.ToLower(name)
}

// MergeStageOverride merges a CLI-supplied override into the loaded config's
// per-stage table, with the CLI value winning on every non-zero field.
func MergeStageOverride(conf *config.Config, stage int, override config.StageOverride) error {
	existing := conf.StageOverrides[stage]
	if err := mergo.MergeWithOverwrite(&existing, override); err != nil {
		return err
	}
	if conf.StageOverrides == nil {
		conf.StageOverrides = map[int]config.StageOverride{}
	}
	conf.StageOverrides[stage] = existing
	return nil
}
