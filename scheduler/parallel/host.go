package parallel

import (
	"runtime"

	"github.com/shirou/gopsutil/cpu"
)

func hostCores() int {
	counts, err := cpu.Counts(true)
	if err != nil || counts <= 0 {
		return runtime.NumCPU()
	}
	return counts
}
