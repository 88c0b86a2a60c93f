// Command dealscout searches and indexes the DealScout catalog from the shell.
package main

import (
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
