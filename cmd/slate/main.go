// Package main provides the slate CLI.
package main

import "github.com/mesh-intelligence/slate/internal/cli"

func main() {
	cli.Execute()
}
