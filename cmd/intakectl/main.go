package main

import (
	"fmt"
	"os"

	"intake_server/internal/cli"

	"github.com/joho/godotenv"
)

// Set by ldflags at build time.
var version = "dev"

func main() {
	_ = godotenv.Load()
	cli.SetVersion(version)

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
