// Package main provides the entry point for rvsim, a cycle-level RV64 core
// simulator built on Akita.
package main

import "github.com/sarchlab/rvsim/cmd"

func main() {
	cmd.Execute()
}
