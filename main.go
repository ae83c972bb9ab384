// Copyright (c) 2026 ToeiRei
// rsaclass - RSA teaching toolkit
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for rsaclass.
//
// Usage:
//
//	go run . [flags]
//	./rsaclass [command] [flags]
//
// Without a command the interactive TUI starts. See --help for options.
package main

import (
	"os"

	"github.com/toeirei/rsaclass/ui/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
