// Package registry wires every backend adapter together and implements
// detection: turning a configuration's backend selector and priority list
// into the single scheduler.Adapter a run will use.
package registry

import (
	"fmt"

	"github.com/ashs-pipeline/qsched/config"
	"github.com/ashs-pipeline/qsched/logger"
	"github.com/ashs-pipeline/qsched/scheduler"
	"github.com/ashs-pipeline/qsched/scheduler/lsf"
	"github.com/ashs-pipeline/qsched/scheduler/local"
	"github.com/ashs-pipeline/qsched/scheduler/parallel"
	"github.com/ashs-pipeline/qsched/scheduler/sge"
	"github.com/ashs-pipeline/qsched/scheduler/slurm"
)

var log = logger.New("scheduler", "component", "registry")

// Factory constructs an Adapter for one backend given the loaded config,
// so each adapter can pick up its job prefix without the registry
// reaching into adapter internals.
type Factory func(conf config.Config) scheduler.Adapter

var factories = map[scheduler.Backend]Factory{
	scheduler.Slurm:    func(c config.Config) scheduler.Adapter { return slurm.New(c.JobPrefix) },
	scheduler.SGE:      func(c config.Config) scheduler.Adapter { return sge.New(c.JobPrefix) },
	scheduler.LSF:      func(c config.Config) scheduler.Adapter { return lsf.New(c.JobPrefix) },
	scheduler.Parallel: func(c config.Config) scheduler.Adapter { return parallel.New(c.JobPrefix) },
	scheduler.Local:    func(c config.Config) scheduler.Adapter { return local.New(c.JobPrefix) },
}

// New constructs the Adapter for a specific backend without running its
// availability probe. Mainly useful for tests that want a concrete
// adapter instance without going through Detect.
func New(name scheduler.Backend, conf config.Config) (scheduler.Adapter, error) {
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q", name)
	}
	return f(conf), nil
}

// Detect selects the adapter a run will use. If conf.Backend is not
// config.Auto, only that backend's probe runs, and its failure is fatal.
// Otherwise conf.Priority is walked in order and the first adapter whose
// probe succeeds is returned; local's unconditional probe guarantees this
// never comes back empty so long as local is in the priority list.
func Detect(conf config.Config) (scheduler.Adapter, error) {
	if conf.Backend != config.Auto {
		adapter, err := New(scheduler.Backend(conf.Backend), conf)
		if err != nil {
			return nil, err
		}
		if err := adapter.Detect(); err != nil {
			return nil, fmt.Errorf("explicit backend %q unavailable: %w", conf.Backend, err)
		}
		log.Info("selected explicit backend", "backend", conf.Backend)
		return adapter, nil
	}

	priority := conf.Priority
	if len(priority) == 0 {
		priority = config.DefaultPriority
	}
	var last error
	for _, name := range priority {
		adapter, err := New(scheduler.Backend(name), conf)
		if err != nil {
			last = err
			continue
		}
		if err := adapter.Detect(); err != nil {
			log.Debug("backend unavailable, trying next", "backend", name, "error", err.Error())
			last = err
			continue
		}
		log.Info("auto-selected backend", "backend", name)
		return adapter, nil
	}
	return nil, fmt.Errorf("no backend in priority list %v available: %w", priority, last)
}
