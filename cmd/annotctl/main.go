// Command annotctl inspects annotation catalogs: it lists metadata types and
// resolves, finds and evaluates the metadata of catalog declarations.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
