package registry

import (
	"testing"

	"github.com/ashs-pipeline/qsched/config"
	"github.com/ashs-pipeline/qsched/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFallsBackToLocalWhenNothingElseAvailable(t *testing.T) {
	conf := config.Default()
	conf.Backend = config.Auto
	conf.Priority = []string{"slurm", "sge", "lsf", "parallel", "local"}

	adapter, err := Detect(conf)
	require.NoError(t, err)
	assert.Equal(t, scheduler.Local, adapter.Name())
}

func TestDetectExplicitUnavailableBackendFails(t *testing.T) {
	conf := config.Default()
	conf.Backend = "slurm"
	t.Setenv("PATH", "")

	_, err := Detect(conf)
	assert.Error(t, err)
}

func TestDetectExplicitLocalAlwaysSucceeds(t *testing.T) {
	conf := config.Default()
	conf.Backend = "local"

	adapter, err := Detect(conf)
	require.NoError(t, err)
	assert.Equal(t, scheduler.Local, adapter.Name())
}

func TestDetectIsDeterministicForSamePriority(t *testing.T) {
	conf := config.Default()
	conf.Backend = config.Auto
	conf.Priority = []string{"local", "parallel", "slurm"}

	first, err := Detect(conf)
	require.NoError(t, err)
	second, err := Detect(conf)
	require.NoError(t, err)
	assert.Equal(t, first.Name(), second.Name())
}

func TestNewUnknownBackendErrors(t *testing.T) {
	_, err := New("made-up", config.Default())
	assert.Error(t, err)
}
