package main

import (
	"os"

	"github.com/ArcadiiFlorean/Real-Project-host-Marina/services/api/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
