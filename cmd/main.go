package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/mickyco94/minuteur/internal/config"
	"github.com/mickyco94/minuteur/internal/runner"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "minuteur",
		Usage: "time and log configured operations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "minuteur.yml",
				Usage:   "path to the YAML configuration",
				EnvVars: []string{"MINUTEUR_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "overrides logging.level from the configuration",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "once",
				Usage:  "execute every operation once, in configuration order",
				Action: once,
			},
			{
				Name:   "run",
				Usage:  "execute operations whenever their trigger fires, until interrupted",
				Action: run,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(c *cli.Context) (*config.Raw, *logrus.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, err
	}

	if level := c.String("log-level"); level != "" {
		cfg.Logging.Level = level
	}

	logger, err := runner.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}

	return cfg, logger, nil
}

func once(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	return runner.Once(ctx, cfg, logger)
}

func run(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	return runner.Run(ctx, cfg, logger)
}
