package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"affconsole/internal/config"
	"affconsole/internal/console"
	"affconsole/internal/log"
	"affconsole/internal/tokenstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	logger := log.NewWriter(os.Stderr, cfg.Environment, "console")

	args := os.Args[1:]
	// The refresh timer only runs in the interactive shell; a one-shot
	// command refreshes on demand when the server rejects its token.
	interval := cfg.Session.RefreshInterval
	if len(args) == 0 || args[0] != "shell" {
		interval = 0
	}

	path := cfg.Session.StorePath
	if path == "" {
		path = tokenstore.DefaultPath()
	}

	app := console.New(cfg, console.Options{
		Out:             os.Stdout,
		In:              os.Stdin,
		Store:           tokenstore.NewFile(path, cfg.Session.ObfuscationKey),
		Logger:          logger,
		RefreshInterval: interval,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = app.Run(ctx, args)
	stop()
	app.Close()

	if err != nil {
		if !errors.Is(err, console.ErrUsage) {
			logger.Debug().Err(err).Msg("command failed")
		}
		os.Exit(1)
	}
}
