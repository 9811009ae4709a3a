package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/vqcheckout/wardrate/internal/app"
	"github.com/vqcheckout/wardrate/internal/config"
)

// main runs the CLI entrypoint and exits on unrecoverable command errors.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if errRun := run(ctx, os.Args[1:]); errRun != nil {
		log.WithError(errRun).Error("command failed")
		os.Exit(1)
	}
}

// run parses flags, loads config, and starts the server or a one-shot
// migration.
func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("wardrate", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file path (or env CONFIG_PATH)")
	port := fs.Int("port", 8320, "server port")
	migrateOnly := fs.Bool("migrate", false, "run database migrations and exit")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}

	if errValidate := validatePort(*port); errValidate != nil {
		return errValidate
	}

	configPath := strings.TrimSpace(*cfgPath)
	if configPath == "" {
		configPath = os.Getenv(config.EnvConfigPath)
	}

	if *migrateOnly {
		return app.Migrate(ctx, configPath)
	}
	return app.RunServer(ctx, configPath, *port)
}

func validatePort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port: %d", port)
	}
	return nil
}
