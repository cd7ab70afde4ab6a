// Command termd is the headless terminal multiplexer server: it spawns and
// manages PTY panes, streams their contents to WebSocket clients, and
// exposes an out-of-band Unix-socket control protocol for administration.
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
