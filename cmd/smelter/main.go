package main

import (
	"os"

	"github.com/smelter-dev/smelter/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
