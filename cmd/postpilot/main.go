// Command postpilot researches, writes and publishes LinkedIn posts.
package main

import (
	"os"

	"github.com/kiranshivaraju/postpilot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
