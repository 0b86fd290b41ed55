package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/loyaltyworks/loyaltyhub/internal/app"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, *configPath); err != nil {
		log.WithError(err).Error("server exited")
		os.Exit(1)
	}
}
