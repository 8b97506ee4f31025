// Command scanwatch monitors scans on a JS leak scanning backend.
package main

import (
	"fmt"
	"os"
)

const (
	appName    = "scanwatch"
	appVersion = "1.0.0"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
