// Command igdm is the terminal client for the DM bridge server.
package main

import (
	"fmt"
	"os"

	"igdm/cmd/igdm/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
