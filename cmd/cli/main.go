package main

import (
	"os"

	"github.com/seap-dev/seap/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
