package sge

import (
	"testing"

	"github.com/ashs-pipeline/qsched/scheduler"
	"github.com/stretchr/testify/assert"
)

func TestCompileArgsFullResourceRequest(t *testing.T) {
	b := New("ashs")
	args := b.CompileArgs(scheduler.ResourceRequest{
		Memory:       "4G",
		Cores:        2,
		Walltime:     "01:00:00",
		Queue:        "short",
		Email:        "user@example.org",
		NotifyPolicy: scheduler.NotifyAll,
		ExtraOpts:    "-v FOO=bar",
	})
	assert.Equal(t, []string{
		"-l", "h_vmem=4G",
		"-pe", "smp", "2",
		"-l", "h_rt=01:00:00",
		"-q", "short",
		"-M", "user@example.org", "-m", "beas",
		"-v", "FOO=bar",
	}, args)
}

func TestExtractIDFromSubmissionBanner(t *testing.T) {
	out := "Your job 98765 (\"ashs_reg_L\") has been submitted\n"
	assert.Equal(t, "98765", extractID(out))
}

func TestExtractIDNoMatch(t *testing.T) {
	assert.Equal(t, "", extractID("qsub: command not found"))
}

func TestQsubArgsShape(t *testing.T) {
	b := New("ashs")
	args := b.qsubArgs("ashs_reg_L", scheduler.ResourceRequest{}, "register.sh", []string{"extra", "L"})
	assert.Equal(t, []string{"-N", "ashs_reg_L", "-cwd", "-V", "register.sh", "extra", "L"}, args)
}
