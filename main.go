package main

import (
	"os"

	"github.com/ashs-pipeline/qsched/cmd"
	"github.com/ashs-pipeline/qsched/logger"
)

func main() {
	if err := cmd.RootCmd.Execute(); err != nil {
		logger.PrintSimpleError(err)
		os.Exit(1)
	}
}
