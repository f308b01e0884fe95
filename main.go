package main

import (
	"os"

	"github.com/selfcaststudios/sitecast/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
