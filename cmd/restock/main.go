package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/restock-go/internal/config"
	"github.com/andresuchdata/restock-go/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "restock",
		Usage: "Forecast marketplace demand and plan warehouse replenishment",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:    "log-json",
				Usage:   "Write logs as JSON lines",
				EnvVars: []string{"LOG_JSON"},
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("log-json") {
				logger.UseJSON()
			}
			level := config.Load().App.LogLevel
			if c.IsSet("log-level") {
				level = c.String("log-level")
			}
			logger.SetLevel(level)
			return nil
		},
		Commands: []*cli.Command{
			forecastCommand(),
			eventsCommand(),
			incomingCommand(),
			projectCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("restock failed")
	}
}
