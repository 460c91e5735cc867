package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cloudchatcmder "github.com/papercomputeco/cloudchat/cmd/cloudchat"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cloudchatcmder.NewCloudchatCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
