// cmd/crawlee/main.go
package main

import (
	"github.com/wpitallo/crawlee/internal/cli"
)

// Interrupt handling lives in the commands themselves: a crawl cancels its
// context on the first SIGINT so in-flight requests stop cleanly and the
// summary still prints.
func main() {
	cli.Execute()
}
