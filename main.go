// aictl - an AI controller server for game processes, speaking a framed
// control channel over a loopback TCP socket.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"aictl/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "aictl: %v\n", err)
		os.Exit(1)
	}
}
