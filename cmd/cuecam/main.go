// Command cuecam watches a camera, classifies what it sees and plays an
// audio cue whenever a new class is recognized with high confidence.
//
// Usage:
//
//	cuecam [flags] <command>
//
// Commands:
//
//	run       - run recognition and the HTTPS control server
//	probe     - negotiate a camera once and report the winning tier
//	rotation  - inspect or reset per-class cue rotation
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
