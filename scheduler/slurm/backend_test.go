package slurm

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
		ExtraOpts:    "--gres=gpu:1",
	})
	assert.Equal(t, []string{
		"--mem=4G",
		"--cpus-per-task=2",
		"--time=01:00:00",
		"--partition=short",
		"--mail-user=user@example.org",
		"--mail-type=ALL",
		"--gres=gpu:1",
	}, args)
}

func TestCompileArgsOmitsUnsetFields(t *testing.T) {
	b := New("ashs")
	args := b.CompileArgs(scheduler.ResourceRequest{Memory: "2G"})
	assert.Equal(t, []string{"--mem=2G"}, args)
}

func TestCompileArgsNotifyFailWithoutEmail(t *testing.T) {
	b := New("ashs")
	args := b.CompileArgs(scheduler.ResourceRequest{NotifyPolicy: scheduler.NotifyFail})
	assert.Equal(t, []string{"--mail-type=FAIL"}, args)
}

func TestExtractIDDropsClusterSuffix(t *testing.T) {
	assert.Equal(t, "123456", extractID("123456\n"))
	assert.Equal(t, "123456", extractID("123456"))
	assert.Equal(t, "123456", extractID("123456;cluster\n"))
}

func TestSbatchArgsShape(t *testing.T) {
	b := New("ashs")
	dir := scheduler.NewLogDirectory(nil, "")
	// name arrives already prefixed by Manager.jobName; sbatchArgs must not
	// prepend the job prefix a second time when building the log path.
	args := b.sbatchArgs(dir, "ashs_true", scheduler.ResourceRequest{Memory: "4G", Cores: 2}, "true.sh", nil, false)
	assert.Equal(t, []string{
		"--parsable", "--mem=4G", "--cpus-per-task=2",
		"-J", "ashs_true",
		"-o", "dump/ashs_true_%j.out",
		"-D", ".", "--export=ALL", "true.sh",
	}, args)
}
