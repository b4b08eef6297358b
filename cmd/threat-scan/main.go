package main

import (
	"os"

	"github.com/mikey/mail-threat-filter/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
