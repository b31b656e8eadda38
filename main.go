package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kalbasit/mule/cmd"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := cmd.New()

	if err := c.Run(ctx, os.Args); err != nil {
		log.Printf("error running mule: %s", err)

		return 1
	}

	return 0
}
