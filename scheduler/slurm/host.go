package slurm

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/cpu"
)

func lookupEnv(name string) string {
	return os.Getenv(name)
}

// hostCores reports logical core count via gopsutil, falling back to
// runtime.NumCPU when the host's /proc (or platform equivalent) can't be
// read, which happens routinely inside stripped-down containers.
func hostCores() int {
	counts, err := cpu.Counts(true)
	if err != nil || counts <= 0 {
		return runtime.NumCPU()
	}
	return counts
}
