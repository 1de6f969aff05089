package main

import (
	"os"

	"github.com/veltaworks/docintel/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
