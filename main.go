package main

import (
	"os"

	"mspro-labs/phone-advisor/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
