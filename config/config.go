// Package config loads the scheduler's configuration document: the backend
// selector, resource defaults, per-stage overrides, and per-backend extra
// options that the rest of the module compiles into submission commands.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/magiconair/properties"
)

// DefaultConfigName is the filename searched for at each location in the
// config search path.
const DefaultConfigName = "scheduler.conf"

// DefaultJobPrefix is used to namespace job names when none is configured.
const DefaultJobPrefix = "ashs"

// Auto means the backend registry should probe in priority order rather
// than use an explicitly named backend.
const Auto = "auto"

// DefaultPriority is the backend probing order used when Backend is Auto.
var DefaultPriority = []string{"slurm", "sge", "lsf", "parallel", "local"}

// StageOverride holds resource values that shadow the config defaults for
// one pipeline stage.
type StageOverride struct {
	Memory   string
	Cores    int
	Walltime string
}

// Config is the immutable scheduler configuration for a pipeline run. It is
// constructed once via Load and passed by value to every public operation.
type Config struct {
	// Backend is "auto" or the name of an explicit adapter to use.
	Backend string
	// Priority is the probing order used when Backend is Auto.
	Priority []string

	DefaultMemory string
	DefaultCores  int
	DefaultTime   string
	DefaultQueue  string

	// StageOverrides is keyed by stage index.
	StageOverrides map[int]StageOverride

	// ExtraOpts is keyed by backend name; the value is appended verbatim to
	// that backend's compiled flag list.
	ExtraOpts map[string]string

	JobPrefix    string
	NotifyEmail  string
	NotifyEvents string

	WorkDir string
}

// Default returns a Config populated entirely from defaults, used when no
// config file is found anywhere in the search path.
func Default() Config {
	return Config{
		Backend:        Auto,
		Priority:       append([]string{}, DefaultPriority...),
		StageOverrides: map[int]StageOverride{},
		ExtraOpts:      map[string]string{},
		JobPrefix:      DefaultJobPrefix,
		NotifyEvents:   "none",
	}
}

// LoadOptions controls where Load searches for a configuration document and
// which caller-supplied values take precedence.
type LoadOptions struct {
	// OverridePath, if non-empty, is tried first; if no file exists there,
	// the rest of the search path is consulted as usual.
	OverridePath string
	WorkDir      string
	HomeDir      string
	InstallRoot  string
	// ConfigName overrides DefaultConfigName, mainly for tests.
	ConfigName string
	// ExplicitBackend, if non-empty, came from the caller (e.g. a CLI flag)
	// and takes precedence over both the config file and the legacy
	// environment bridge.
	ExplicitBackend string
}

// searchPath returns the ordered list of candidate config file paths,
// first-hit-wins, with no merging across sources.
func searchPath(opts LoadOptions) []string {
	name := opts.ConfigName
	if name == "" {
		name = DefaultConfigName
	}

	var candidates []string
	if opts.OverridePath != "" {
		candidates = append(candidates, opts.OverridePath)
	}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, name))
	}
	if opts.WorkDir != "" {
		candidates = append(candidates, filepath.Join(opts.WorkDir, name))
	}
	if opts.HomeDir != "" {
		candidates = append(candidates, filepath.Join(opts.HomeDir, "."+name))
	}
	if opts.InstallRoot != "" {
		candidates = append(candidates, filepath.Join(opts.InstallRoot, name))
	}
	return candidates
}

// Load resolves a Config from the first existing file in the search path
// described by opts, falling back to Default() if none exists. The legacy
// USE_SLURM/USE_QSUB/USE_LSF/USE_PARALLEL environment booleans, if any are
// set, force the backend selector, overriding the config file's
// backend_selector but never an explicit caller-supplied backend.
func Load(opts LoadOptions) (Config, error) {
	conf := Default()

	for _, p := range searchPath(opts) {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		parsed, err := parseFile(p)
		if err != nil {
			return Config{}, fmt.Errorf("loading config %s: %w", p, err)
		}
		conf = parsed
		break
	}

	conf.WorkDir = opts.WorkDir

	if legacy := legacyBackend(); legacy != "" {
		conf.Backend = legacy
	}
	if opts.ExplicitBackend != "" {
		conf.Backend = opts.ExplicitBackend
	}

	return conf, nil
}

// legacyBackend inspects the legacy boolean environment variables and
// returns the backend they select, or "" if none are set. USE_SLURM is
// checked first, matching the precedence of the original shell driver.
func legacyBackend() string {
	for _, v := range []struct {
		env     string
		backend string
	}{
		{"USE_SLURM", "slurm"},
		{"USE_QSUB", "sge"},
		{"USE_LSF", "lsf"},
		{"USE_PARALLEL", "parallel"},
	} {
		if isTruthy(os.Getenv(v.env)) {
			return v.backend
		}
	}
	return ""
}

func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

// parseFile parses a key=value config document. Blank lines and lines whose
// first non-whitespace character is '#' are ignored. Values may be quoted.
// Unknown keys are ignored with no error. Recognized keys are exactly those
// documented for Config.
func parseFile(path string) (Config, error) {
	conf := Default()

	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return Config{}, err
	}

	for _, key := range p.Keys() {
		raw, _ := p.Get(key)
		val := unquote(raw)

		switch {
		case key == "backend_selector":
			conf.Backend = val
		case key == "priority":
			conf.Priority = splitList(val)
		case key == "default_memory":
			conf.DefaultMemory = val
		case key == "default_cores":
			n, err := strconv.Atoi(val)
			if err != nil {
				return Config{}, fmt.Errorf("default_cores: invalid integer %q", val)
			}
			conf.DefaultCores = n
		case key == "default_time":
			conf.DefaultTime = val
		case key == "default_queue":
			conf.DefaultQueue = val
		case key == "job_prefix":
			conf.JobPrefix = val
		case key == "notify_email":
			conf.NotifyEmail = val
		case key == "notify_events":
			conf.NotifyEvents = val
		case strings.HasPrefix(key, "stage_") && strings.HasSuffix(key, "_memory"):
			n, err := stageIndex(key, "stage_", "_memory")
			if err != nil {
				return Config{}, err
			}
			o := conf.StageOverrides[n]
			o.Memory = val
			conf.StageOverrides[n] = o
		case strings.HasPrefix(key, "stage_") && strings.HasSuffix(key, "_cores"):
			n, err := stageIndex(key, "stage_", "_cores")
			if err != nil {
				return Config{}, err
			}
			cores, err := strconv.Atoi(val)
			if err != nil {
				return Config{}, fmt.Errorf("%s: invalid integer %q", key, val)
			}
			o := conf.StageOverrides[n]
			o.Cores = cores
			conf.StageOverrides[n] = o
		case strings.HasPrefix(key, "stage_") && strings.HasSuffix(key, "_time"):
			n, err := stageIndex(key, "stage_", "_time")
			if err != nil {
				return Config{}, err
			}
			o := conf.StageOverrides[n]
			o.Walltime = val
			conf.StageOverrides[n] = o
		case strings.HasPrefix(key, "extra_opts_"):
			backend := strings.TrimPrefix(key, "extra_opts_")
			conf.ExtraOpts[backend] = val
		}
	}

	return conf, nil
}

// stageIndex extracts and validates the non-negative integer N out of a
// stage_<N>_<field> key, reporting a config error naming the offending key
// if N isn't a valid non-negative integer.
func stageIndex(key, prefix, suffix string) (int, error) {
	mid := strings.TrimSuffix(strings.TrimPrefix(key, prefix), suffix)
	n, err := strconv.Atoi(mid)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("malformed stage key %q: expected stage_<N>%s with N >= 0", key, suffix)
	}
	return n, nil
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Resolve returns the effective memory/cores/walltime for a stage, with the
// per-stage override shadowing the config default when present and
// non-empty.
func (c Config) Resolve(stage int) (memory string, cores int, walltime string) {
	memory, cores, walltime = c.DefaultMemory, c.DefaultCores, c.DefaultTime
	if o, ok := c.StageOverrides[stage]; ok {
		if o.Memory != "" {
			memory = o.Memory
		}
		if o.Cores != 0 {
			cores = o.Cores
		}
		if o.Walltime != "" {
			walltime = o.Walltime
		}
	}
	return
}
