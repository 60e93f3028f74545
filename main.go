package main

import (
	"os"

	"github.com/zalepa/roadwatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
