// Package main is the entry point for the gugubot binary.
package main

import (
	"fmt"
	"os"

	"github.com/xieyuen/PF-GUGUBot/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
