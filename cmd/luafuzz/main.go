// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"luafuzz/internal/config"
	"luafuzz/internal/fuzzer"
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		color.Red("config error: %s", err)
		os.Exit(-1)
	}

	color.Green("starting fuzzing session against %s (jobs=%d)", cfg.InterpreterPath, cfg.Jobs)
	exitCode, err := fuzzer.RunMulti(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(-1)
	}

	os.Exit(exitCode)
}
