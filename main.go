package main

import (
	"os"

	"github.com/dipole-sh/dipole/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
