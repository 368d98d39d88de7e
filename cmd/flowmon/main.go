package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		bad.Fprintf(os.Stderr, "flowmon: %v\n", err)
		os.Exit(1)
	}
}
