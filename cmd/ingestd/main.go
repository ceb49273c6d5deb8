package main

import (
	"fmt"
	"os"

	"github.com/corvuslabs/ingestd/internal/adapters/driving/cli"
)

// version is stamped by the release build with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
