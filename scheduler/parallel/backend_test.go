package parallel

import (
	"testing"

	"github.com/ashs-pipeline/qsched/scheduler"
	"github.com/stretchr/testify/assert"
)

func TestCompileArgsUsesGivenCores(t *testing.T) {
	b := New("ashs")
	assert.Equal(t, []string{"-j", "4"}, b.CompileArgs(scheduler.ResourceRequest{Cores: 4}))
}

func TestCompileArgsFallsBackToHostCores(t *testing.T) {
	b := New("ashs")
	args := b.CompileArgs(scheduler.ResourceRequest{})
	assert.Equal(t, "-j", args[0])
	assert.NotEmpty(t, args[1])
}

func TestReapUnknownIDIsNoop(t *testing.T) {
	b := New("ashs")
	assert.NoError(t, b.reap("999999"))
}

func TestInManagedJobAlwaysFalse(t *testing.T) {
	b := New("ashs")
	assert.False(t, b.InManagedJob())
}
