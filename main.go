package main

import (
	"os"

	"github.com/example/wordpusher/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
