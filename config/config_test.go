package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, DefaultConfigName)
	require.NoError(t, os.WriteFile(p, []byte(body), 0644))
	return p
}

func TestDefaultWhenNoFileFound(t *testing.T) {
	dir := t.TempDir()
	conf, err := Load(LoadOptions{WorkDir: filepath.Join(dir, "missing")})
	require.NoError(t, err)
	assert.Equal(t, Auto, conf.Backend)
	assert.Equal(t, DefaultPriority, conf.Priority)
	assert.Equal(t, DefaultJobPrefix, conf.JobPrefix)
}

func TestParsesRecognizedKeys(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
# a comment
backend_selector = slurm
default_memory = 8G
default_cores = 4
default_time = 4:00:00
default_queue = normal
stage_2_memory = "16G"
job_prefix = ashs
notify_email = ops@example.org
notify_events = fail
extra_opts_slurm = --nice=100
`)

	conf, err := Load(LoadOptions{WorkDir: dir})
	require.NoError(t, err)

	assert.Equal(t, "slurm", conf.Backend)
	assert.Equal(t, "8G", conf.DefaultMemory)
	assert.Equal(t, 4, conf.DefaultCores)
	assert.Equal(t, "4:00:00", conf.DefaultTime)
	assert.Equal(t, "normal", conf.DefaultQueue)
	assert.Equal(t, "16G", conf.StageOverrides[2].Memory)
	assert.Equal(t, "ops@example.org", conf.NotifyEmail)
	assert.Equal(t, "fail", conf.NotifyEvents)
	assert.Equal(t, "--nice=100", conf.ExtraOpts["slurm"])
}

func TestUnknownKeysIgnored(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "totally_unknown_key = whatever\nbackend_selector = local\n")

	conf, err := Load(LoadOptions{WorkDir: dir})
	require.NoError(t, err)
	assert.Equal(t, "local", conf.Backend)
}

func TestMalformedStageKeyIsConfigError(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "stage_x_memory = 8G\n")

	_, err := Load(LoadOptions{WorkDir: dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage_x_memory")
}

func TestStageOverridePrecedence(t *testing.T) {
	conf := Default()
	conf.DefaultMemory = "8G"
	conf.StageOverrides[2] = StageOverride{Memory: "16G"}

	mem1, _, _ := conf.Resolve(1)
	mem2, _, _ := conf.Resolve(2)
	assert.Equal(t, "8G", mem1)
	assert.Equal(t, "16G", mem2)
}

func TestLegacyEnvOverridesConfigFileButNotExplicit(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "backend_selector = sge\n")

	t.Setenv("USE_SLURM", "1")
	conf, err := Load(LoadOptions{WorkDir: dir})
	require.NoError(t, err)
	assert.Equal(t, "slurm", conf.Backend)

	conf, err = Load(LoadOptions{WorkDir: dir, ExplicitBackend: "local"})
	require.NoError(t, err)
	assert.Equal(t, "local", conf.Backend)
}

func TestSearchPathFirstHitWins(t *testing.T) {
	dir := t.TempDir()
	home := t.TempDir()
	writeConfig(t, home, "backend_selector = lsf\n") // this must NOT win
	homeCfg := filepath.Join(home, "."+DefaultConfigName)
	require.NoError(t, os.Rename(filepath.Join(home, DefaultConfigName), homeCfg))

	writeConfig(t, dir, "backend_selector = parallel\n")

	conf, err := Load(LoadOptions{WorkDir: dir, HomeDir: home})
	require.NoError(t, err)
	assert.Equal(t, "parallel", conf.Backend)
}
