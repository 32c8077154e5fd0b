package main

import (
	"os"

	"github.com/matrixise/nouns-dashboard/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
