package main

import (
	"os"

	"github.com/repoflow-ai/repoflow/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
