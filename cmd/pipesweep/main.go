// Command pipesweep runs processor microarchitecture scenarios.
package main

import "github.com/sarchlab/pipesweep/cmd"

func main() {
	cmd.Execute()
}
