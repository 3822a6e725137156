package lsf

import (
	"testing"

	"github.com/ashs-pipeline/qsched/scheduler"
	"github.com/stretchr/testify/assert"
)

func TestMemRusageGigabytesConvertsToThousands(t *testing.T) {
	assert.Equal(t, "4000", memRusage("4G"))
}

func TestMemRusageMegabytesPassesThrough(t *testing.T) {
	assert.Equal(t, "512", memRusage("512M"))
}

func TestMemRusageBareIntegerPassesThrough(t *testing.T) {
	assert.Equal(t, "2048", memRusage("2048"))
}

func TestWalltimeHMTakesFirstTwoComponents(t *testing.T) {
	assert.Equal(t, "01:30", walltimeHM("01:30:00"))
	assert.Equal(t, "02:00", walltimeHM("02:00"))
}

func TestCompileArgsFullResourceRequest(t *testing.T) {
	b := New("ashs")
	args := b.CompileArgs(scheduler.ResourceRequest{
		Memory:       "4G",
		Cores:        2,
		Walltime:     "01:00:00",
		Queue:        "short",
		Email:        "user@example.org",
		NotifyPolicy: scheduler.NotifyAll,
	})
	assert.Equal(t, []string{
		"-R", "rusage[mem=4000]",
		"-n", "2",
		"-W", "01:00",
		"-q", "short",
		"-u", "user@example.org", "-N",
	}, args)
}

func TestCompileArgsNotifyFailWithoutEmailEmitsNOnly(t *testing.T) {
	b := New("ashs")
	args := b.CompileArgs(scheduler.ResourceRequest{NotifyPolicy: scheduler.NotifyFail})
	assert.Equal(t, []string{"-N"}, args)
}

func TestCompileArgsNotifyEndEmitsNOnly(t *testing.T) {
	b := New("ashs")
	args := b.CompileArgs(scheduler.ResourceRequest{NotifyPolicy: scheduler.NotifyEnd})
	assert.Equal(t, []string{"-N"}, args)
}

func TestCompileArgsNotifyFailIgnoresEmail(t *testing.T) {
	b := New("ashs")
	args := b.CompileArgs(scheduler.ResourceRequest{NotifyPolicy: scheduler.NotifyFail, Email: "user@example.org"})
	assert.Equal(t, []string{"-N"}, args)
}

func TestExtractIDFromBsubBanner(t *testing.T) {
	assert.Equal(t, "42", extractID("Job <42> is submitted to default queue <normal>.\n"))
}
