// Command tracker is the CLI entry point: query, update, search, index
// maintenance, and ontology inspection, all driven through
// internal/engine.
package main

import "github.com/trackerd/core/internal/cli"

func main() {
	cli.Execute()
}
