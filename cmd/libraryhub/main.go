package main

import (
	"os"

	"github.com/mmcdole/libraryhub/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
