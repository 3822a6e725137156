package scheduler

// Environment variables the registry and adapters consult. Grouped here so
// the full set consumed by detect/slots/in_managed_job is visible in one
// place rather than scattered across five adapter packages.
const (
	// EnvSGERoot names the SGE install root; its presence (plus a
	// resolvable qsub) is what makes the sge backend available.
	EnvSGERoot = "SGE_ROOT"
	// EnvLSFBinDir names the LSF bin directory; its presence (plus a
	// resolvable bsub) is what makes the lsf backend available.
	EnvLSFBinDir = "LSF_BINDIR"

	// EnvSlurmJobID is set inside a job SLURM allocated.
	EnvSlurmJobID = "SLURM_JOB_ID"
	// EnvSlurmCPUsOnNode / EnvSlurmNTasks report the task's core
	// allocation; the first one found wins.
	EnvSlurmCPUsOnNode = "SLURM_CPUS_ON_NODE"
	EnvSlurmNTasks     = "SLURM_NTASKS"

	// EnvSGEJobID is set inside a job SGE allocated.
	EnvSGEJobID = "JOB_ID"
	// EnvSGENSlots reports the slot count SGE granted the job.
	EnvSGENSlots = "NSLOTS"

	// EnvLSFJobID is set inside a job LSF allocated.
	EnvLSFJobID = "LSB_JOBID"
	// EnvLSFMaxProcessors reports the core count LSF granted the job.
	EnvLSFMaxProcessors = "LSB_MAX_NUM_PROCESSORS"
)
