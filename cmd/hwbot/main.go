package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"hwbot/internal/app"
	"hwbot/internal/failure"
	"hwbot/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./hwbot.yaml", "path to config file (yaml or json); missing file means defaults")
	flag.Parse()

	log := logx.NewConsole("info").With(logx.String("comp", "main"))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath, os.Getenv)
	if err != nil {
		c := failure.Classify(err)
		if c.Kind.Fatal() {
			log.Critical(c.Message, logx.String("kind", c.Kind.String()), logx.Err(err))
		} else {
			log.Critical("startup failed", logx.Err(err))
		}
		os.Exit(1)
	}

	if err := a.Start(ctx); err != nil {
		log.Critical("start failed", logx.Err(err))
		os.Exit(1)
	}

	<-ctx.Done()
	if err := a.Stop(context.Background()); err != nil {
		os.Exit(1)
	}
}
