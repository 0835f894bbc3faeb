// wbtcp - a wishbone bus bridge between HDL simulations and TCP test clients.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"wbtcp/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "wbtcp: %v\n", err)
		os.Exit(1)
	}
}
