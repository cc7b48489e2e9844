package main

import (
	"os"

	"github.com/slkreddy/SafeLayer/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
