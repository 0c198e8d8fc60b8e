package main

import (
	"fmt"
	"os"

	"github.com/thrasher-corp/twapper/config"
	"github.com/thrasher-corp/twapper/engine"
	"github.com/thrasher-corp/twapper/log"
	"github.com/thrasher-corp/twapper/signaler"
	"github.com/urfave/cli/v2"
)

var (
	configFile    string
	envFile       string
	listenAddress string
	paperTrading  bool
	verbose       bool
)

func main() {
	app := cli.NewApp()
	app.Name = "twapd"
	app.Usage = "TWAP execution daemon serving a websocket progress channel"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "config file to load (json, yaml or toml)",
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:        "env",
			Value:       config.EnvFile,
			Usage:       "dotenv file holding API_KEY, SECRET_KEY and PASSPHRASE",
			Destination: &envFile,
		},
		&cli.StringFlag{
			Name:        "listen",
			Usage:       "overrides the configured listen address",
			Destination: &listenAddress,
		},
		&cli.BoolFlag{
			Name:        "paper",
			Usage:       "trade against the in-memory paper exchange",
			Destination: &paperTrading,
		},
		&cli.BoolFlag{
			Name:        "verbose",
			Usage:       "enables verbose TWAP and exchange logging",
			Destination: &verbose,
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(_ *cli.Context) error {
	if paperTrading {
		if err := os.Setenv(config.EnvPrefix+"_EXCHANGE_PAPER", "true"); err != nil {
			return err
		}
	}
	cfg, err := config.Load(configFile, envFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if listenAddress != "" {
		cfg.Server.ListenAddress = listenAddress
	}
	if verbose {
		cfg.TWAP.Verbose = true
		cfg.Exchange.Verbose = true
	}

	if err = log.SetupGlobalLogger(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	defer func() {
		if err := log.CloseLogger(); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}()

	e, err := engine.New(cfg)
	if err != nil {
		return fmt.Errorf("unable to initialise engine: %w", err)
	}
	if err = e.Start(); err != nil {
		return fmt.Errorf("unable to start engine: %w", err)
	}

	interrupt := signaler.WaitForInterrupt()
	log.Infof(log.Global, "Captured %v, shutdown requested", <-interrupt)
	if err = e.Stop(); err != nil {
		log.Errorf(log.Global, "Engine stopped with error: %v", err)
	}
	log.Infoln(log.Global, "Exiting.")
	return nil
}
