package main

import (
	"os"

	"github.com/Wikid82/logwarden/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
