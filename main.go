// Command conveyor-sim simulates a baggage conveyor line.
// All command handling lives in package cmd.
package main

import (
	"github.com/inference-sim/conveyor-sim/cmd"
)

func main() {
	cmd.Execute()
}
