// Command onedrive-adapter is a peripheral CLI demonstrating the adapter
// end-to-end: list/put/get/rm/mv/mkdir/quota/test against a Graph-backed
// drive. It is glue around the backend package, not part of the core.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
