package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

const (
	// ScannerLogDir specifies where scanner log files are stored.
	ScannerLogDir = "logs/scanner_logs"

	// Version is reported by the version command.
	Version = "v0.3.0"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	return newCommand().Run(ctx, os.Args)
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "scanner",
		Usage: "Scan communities for members exposing an Xbox gamertag",
		Commands: []*cli.Command{
			runCommand(),
			classifyCommand(),
			{
				Name:  "version",
				Usage: "Print the scanner version",
				Action: func(_ context.Context, c *cli.Command) error {
					_, err := fmt.Fprintln(c.Root().Writer, Version)
					return err
				},
			},
		},
	}
}
