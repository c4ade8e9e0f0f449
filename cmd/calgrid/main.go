package main

import (
	"os"

	"github.com/urfave/cli"

	"calgrid/internal/config"
	appLog "calgrid/internal/log"
	"calgrid/internal/store"
)

var version = "0.1.0"

func main() {
	app := cli.App{
		Name:      "calgrid",
		HelpName:  "calgrid",
		Usage:     "a personal calendar with recurrence and ICS exchange",
		UsageText: "calgrid <command> [arguments...]",
		Version:   version,
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "config, c",
				Usage: "path to the config file",
				Value: defaultConfigPath(),
			},
			cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				appLog.SetLevel(appLog.LevelDebug)
			}
			return nil
		},
		Commands: []cli.Command{
			{
				Name:   "add",
				Usage:  "add a single event or a recurring series",
				Action: addAction,
				Flags:  addFlags,
			},
			{
				Name:   "day",
				Usage:  "show one day's events laid out in columns",
				Action: dayAction,
				Flags:  dayFlags,
			},
			{
				Name:      "import",
				Usage:     "import events from an ICS file",
				ArgsUsage: "<file.ics>",
				Action:    importAction,
			},
			{
				Name:   "export",
				Usage:  "export stored events as ICS",
				Action: exportAction,
				Flags:  exportFlags,
			},
			{
				Name:   "watch",
				Usage:  "re-export the calendar on the configured schedule",
				Action: watchAction,
				Flags:  watchFlags,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		appLog.Error("command failed", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "calgrid.yaml"
	}
	return home + "/.config/calgrid/config.yaml"
}

// setup loads the config and opens the event store; every command starts
// here.
func setup(c *cli.Context) (*config.Config, *store.Store, error) {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, st, nil
}
