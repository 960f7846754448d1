package main

import (
	"os"

	"github.com/willothy/overseer/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
