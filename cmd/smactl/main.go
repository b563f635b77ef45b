package main

import (
	"os"

	"github.com/noah-isme/sma-adp-datatable/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
