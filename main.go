// The main package for the exurl-archiver executable.
package main

import (
	"github.com/JakeFAU/exurl-archiver/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
