package main

import (
	"os"

	"github.com/rustyeddy/marketdash/cmd/marketdash/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
