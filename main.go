package main

import (
	"os"

	"github.com/gilchrisn/maxcut-annealing/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
