// Command facilityctl is a command-line client for the facility API.
package main

import (
	"os"
)

func main() {
	a := newApp()
	if err := run(a, NewRootCmd(a)); err != nil {
		os.Exit(1)
	}
}
