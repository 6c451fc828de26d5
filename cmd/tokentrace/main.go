package main

import (
	"os"

	"tokentrace/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
