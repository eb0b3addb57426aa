// Command hexlua indexes Hex Casting pattern registries, resolves their
// informal type descriptions and generates LuaLS definitions. It also
// serves the same operations over MCP.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error("hexlua failed", "err", err)
		stop()
		os.Exit(1)
	}
}
