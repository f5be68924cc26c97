package main

import (
	"os"

	"github.com/ngxmon/ngxmon/cmd"
)

func main() {
	if err := cmd.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
