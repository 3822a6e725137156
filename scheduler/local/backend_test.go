package local

import (
	"context"
	"testing"

	"github.com/ashs-pipeline/qsched/scheduler"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitRunsSynchronouslyAndReturnsSentinel(t *testing.T) {
	b := New("ashs")
	fs := afero.NewMemMapFs()
	dir := scheduler.NewLogDirectory(fs, "work")
	h, err := b.Submit(context.Background(), dir, scheduler.SubmitSpec{Name: "true", Script: "-c", Args: []string{"true"}})
	require.NoError(t, err)
	assert.Equal(t, scheduler.LocalSentinel, h)
}

func TestWaitOnSentinelIsNoop(t *testing.T) {
	b := New("ashs")
	err := b.Wait(context.Background(), scheduler.JobSet{scheduler.LocalSentinel})
	assert.NoError(t, err)
}

func TestDetectAlwaysSucceeds(t *testing.T) {
	b := New("ashs")
	assert.NoError(t, b.Detect())
}

func TestCompileArgsIsEmpty(t *testing.T) {
	b := New("ashs")
	assert.Nil(t, b.CompileArgs(scheduler.ResourceRequest{Memory: "4G", Cores: 2}))
}
