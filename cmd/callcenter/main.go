package main

import (
	"os"

	"github.com/poltergeist/callcenter/pkg/cli"
)

var version = "dev"

func main() {
	if err := cli.ExecuteWithVersion(version); err != nil {
		os.Exit(1)
	}
}
