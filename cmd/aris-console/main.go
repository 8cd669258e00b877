package main

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"aris/internal/bootstrap"
	"aris/internal/config"
	"aris/internal/logging"
)

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "", "Log level (overrides ARIS_LOG_LEVEL)")
	voice := cli.BoolP("voice", "v", false, "Start wake-word listening immediately")
	cli.Parse()

	_ = godotenv.Load(*envFile)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	cfg.Voice.AutoStart = *voice

	closer := logging.Setup(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := newConsoleSink(os.Stdout)
	services, err := bootstrap.Assemble(ctx, cfg, sink, bootstrap.Overrides{})
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer services.Close()
	services.Start(ctx, sink)

	c := newConsole(services, sink)
	c.banner()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok || c.handle(ctx, line) {
				return
			}
		}
	}
}
